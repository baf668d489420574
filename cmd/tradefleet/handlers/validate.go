package handlers

import (
	"fmt"

	"github.com/imamik/tradefleet/internal/config"
)

// Validate checks a descriptor and prints every error and warning.
// Only errors make it fail.
func Validate(configPath string) error {
	path, err := resolveConfigPath(configPath)
	if err != nil {
		return err
	}
	env, err := config.LoadWithoutValidation(path)
	if err != nil {
		return err
	}

	var errCount int
	for _, ve := range env.Check() {
		if ve.IsError() {
			errCount++
		}
		fmt.Fprintln(stdout, ve.Error())
	}
	if errCount > 0 {
		return fmt.Errorf("%s has %d validation errors", path, errCount)
	}

	fmt.Fprintf(stdout, "%s is valid: %d instances, %d services\n", path, len(env.Instances), len(env.Services))
	return nil
}
