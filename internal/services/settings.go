package services

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// envFile renders settings as a systemd/docker environment file. Keys are
// upper-cased, nested maps are flattened with "_" and lists are joined
// with ",". Keys listed in skip are left out. Settings that would render
// to the same variable, or that contain a line break, are rejected.
func envFile(settings map[string]any, skip ...string) ([]byte, error) {
	vars := map[string]string{}
	if err := flatten("", "", settings, vars, map[string]string{}, skip); err != nil {
		return nil, err
	}

	var b strings.Builder
	for _, k := range slices.Sorted(maps.Keys(vars)) {
		fmt.Fprintf(&b, "%s=%s\n", k, vars[k])
	}
	return []byte(b.String()), nil
}

// flatten writes every leaf of settings into out. sources maps each
// variable to the dotted setting path it came from.
func flatten(prefix, path string, settings map[string]any, out, sources map[string]string, skip []string) error {
	for _, k := range slices.Sorted(maps.Keys(settings)) {
		if prefix == "" && slices.Contains(skip, k) {
			continue
		}
		key := envKey(prefix, k)
		setting := k
		if path != "" {
			setting = path + "." + k
		}
		if strings.ContainsAny(k, "\r\n") {
			return fmt.Errorf("setting %q: name contains a line break", setting)
		}

		var value string
		switch val := settings[k].(type) {
		case map[string]any:
			if err := flatten(key, setting, val, out, sources, nil); err != nil {
				return err
			}
			continue
		case []any:
			parts := make([]string, len(val))
			for i, item := range val {
				parts[i] = fmt.Sprint(item)
			}
			value = strings.Join(parts, ",")
		case []string:
			value = strings.Join(val, ",")
		case nil:
			value = ""
		default:
			value = fmt.Sprint(val)
		}

		if strings.ContainsAny(value, "\r\n") {
			return fmt.Errorf("setting %q: value contains a line break", setting)
		}
		if prev, ok := sources[key]; ok {
			return fmt.Errorf("settings %q and %q both render to %s", prev, setting, key)
		}
		sources[key] = setting
		out[key] = value
	}
	return nil
}

func envKey(prefix, key string) string {
	key = strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(key))
	if prefix == "" {
		return key
	}
	return prefix + "_" + key
}

// intSetting reads an integer setting that may have been decoded from
// YAML as int or from code as another numeric type.
func intSetting(settings map[string]any, key string) (int, error) {
	switch v := settings[key].(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("setting %q must be an integer, got %v", key, v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("setting %q must be an integer, got %T", key, v)
	}
}

func stringSetting(settings map[string]any, key string) (string, error) {
	switch v := settings[key].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("setting %q must be a string, got %T", key, v)
	}
}
