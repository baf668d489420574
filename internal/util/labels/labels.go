// Package labels provides consistent labeling utilities for Hetzner Cloud resources.
//
// This package enforces uniform labeling patterns across all fleet resources,
// enabling easy identification, grouping, and teardown of resources belonging to
// the same environment.
//
// Standard label keys use the tradefleet.io domain prefix for namespacing.
package labels

import "sort"

// Standard label keys for Hetzner Cloud resources.
const (
	// KeyEnvironment identifies which environment a resource belongs to
	KeyEnvironment = "tradefleet.io/environment"

	// KeyInstance identifies the logical instance name from the descriptor
	KeyInstance = "tradefleet.io/instance"

	// KeyRun identifies the deployment run that created the resource
	KeyRun = "tradefleet.io/run"

	// KeyManagedBy identifies the management system
	KeyManagedBy = "tradefleet.io/managed-by"
)

// ManagedByTradefleet is the value of KeyManagedBy for resources created by this tool.
const ManagedByTradefleet = "tradefleet"

// LabelBuilder provides a fluent interface for building Hetzner Cloud resource labels.
type LabelBuilder struct {
	labels map[string]string
}

// NewLabelBuilder creates a new label builder with the environment name pre-set.
func NewLabelBuilder(environment string) *LabelBuilder {
	return &LabelBuilder{
		labels: map[string]string{
			KeyEnvironment: environment,
			KeyManagedBy:   ManagedByTradefleet,
		},
	}
}

// WithInstance adds the logical instance name.
func (lb *LabelBuilder) WithInstance(name string) *LabelBuilder {
	lb.labels[KeyInstance] = name
	return lb
}

// WithRunIfSet adds a run label only if runID is non-empty.
func (lb *LabelBuilder) WithRunIfSet(runID string) *LabelBuilder {
	if runID != "" {
		lb.labels[KeyRun] = runID
	}
	return lb
}

// Merge adds all labels from the provided maps, later maps winning.
// Reserved keys set by the builder are never overwritten.
func (lb *LabelBuilder) Merge(extra ...map[string]string) *LabelBuilder {
	for _, m := range extra {
		for k, v := range m {
			if isReserved(k) {
				continue
			}
			lb.labels[k] = v
		}
	}
	return lb
}

// Build returns a copy of the labels map.
func (lb *LabelBuilder) Build() map[string]string {
	result := make(map[string]string, len(lb.labels))
	for k, v := range lb.labels {
		result[k] = v
	}
	return result
}

// SelectorForEnvironment returns a label selector string for all resources in an environment.
func SelectorForEnvironment(environment string) string {
	return KeyEnvironment + "=" + environment
}

// Selector builds a deterministic label selector from a label map.
func Selector(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	selector := ""
	for i, k := range keys {
		if i > 0 {
			selector += ","
		}
		selector += k + "=" + labels[k]
	}
	return selector
}

func isReserved(key string) bool {
	switch key {
	case KeyEnvironment, KeyInstance, KeyRun, KeyManagedBy:
		return true
	}
	return false
}
