package naming

import "fmt"

// Naming functions for fleet resources.
// All Hetzner Cloud resources follow consistent naming patterns to enable
// easy identification and cleanup.

func Instance(environment, name string) string {
	return fmt.Sprintf("%s-%s", environment, name)
}

func StableAddress(environment, name string) string {
	return fmt.Sprintf("%s-%s-ipv4", environment, name)
}

func ServiceUnit(kind string) string {
	return fmt.Sprintf("tradefleet-%s.service", kind)
}

func ReportObject(environment, runID string) string {
	return fmt.Sprintf("%s/runs/%s.json", environment, runID)
}
