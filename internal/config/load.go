package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads, parses and validates an environment descriptor.
func Load(path string) (*Environment, error) {
	env, err := LoadWithoutValidation(path)
	if err != nil {
		return nil, err
	}

	if err := env.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return env, nil
}

// LoadWithoutValidation reads and parses a descriptor without validating it.
func LoadWithoutValidation(path string) (*Environment, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return parse(data)
}

// LoadFromBytes parses and validates a descriptor held in memory.
func LoadFromBytes(data []byte) (*Environment, error) {
	env, err := parse(data)
	if err != nil {
		return nil, err
	}

	if err := env.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return env, nil
}

// parse decodes YAML strictly: unknown keys are rejected so that a typo
// in the descriptor never silently drops a setting.
func parse(data []byte) (*Environment, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var env Environment
	if err := dec.Decode(&env); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse YAML: empty document")
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &env, nil
}

// FindConfigFile searches for the default descriptor in the current
// directory and its parents.
func FindConfigFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	for {
		candidate := filepath.Join(dir, DefaultConfigFilename)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s not found in current directory or any parent", DefaultConfigFilename)
		}
		dir = parent
	}
}
