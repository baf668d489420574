package provisioning

// MergeSettings returns defaults overlaid with overrides. Nested maps are
// merged key by key; any other override value replaces the default.
// Neither input is modified.
func MergeSettings(defaults, overrides map[string]any) map[string]any {
	merged := make(map[string]any, len(defaults)+len(overrides))
	for k, v := range defaults {
		if m, ok := v.(map[string]any); ok {
			v = MergeSettings(m, nil)
		}
		merged[k] = v
	}
	for k, v := range overrides {
		base, baseIsMap := merged[k].(map[string]any)
		over, overIsMap := v.(map[string]any)
		if baseIsMap && overIsMap {
			merged[k] = MergeSettings(base, over)
			continue
		}
		merged[k] = v
	}
	return merged
}
