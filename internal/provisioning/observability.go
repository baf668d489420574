package provisioning

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"
)

// Observer defines the interface for structured observability during a run.
type Observer interface {
	// Printf logs an informational message.
	Printf(format string, v ...any)

	// Warnf logs a condition that does not stop the run.
	Warnf(format string, v ...any)

	// Event emits a structured event
	Event(event Event)

	// Progress reports progress for a phase
	Progress(phase string, current, total int)

	// WithFields returns a new Observer with additional context fields
	WithFields(fields map[string]string) Observer
}

// Event represents a structured deployment event.
type Event struct {
	Type      EventType         // Type of event
	Phase     string            // Phase name (e.g., "infrastructure", "security")
	Message   string            // Human-readable message
	Resource  string            // Resource name/ID if applicable
	Timestamp time.Time         // When the event occurred
	Fields    map[string]string // Additional contextual fields
}

// EventType represents the type of deployment event.
type EventType string

const (
	// EventPhaseStarted indicates a phase has started.
	EventPhaseStarted EventType = "phase.started"
	// EventPhaseCompleted indicates a phase completed successfully.
	EventPhaseCompleted EventType = "phase.completed"
	// EventPhaseFailed indicates a phase failed.
	EventPhaseFailed EventType = "phase.failed"

	// EventResourceCreating indicates a resource is being created.
	EventResourceCreating EventType = "resource.creating"
	// EventResourceCreated indicates a resource was created and recorded.
	EventResourceCreated EventType = "resource.created"
	// EventResourceSkipped indicates a resource was intentionally not created or not removed.
	EventResourceSkipped EventType = "resource.skipped"
	// EventResourceFailed indicates resource creation failed.
	EventResourceFailed EventType = "resource.failed"
	// EventResourceDeleting indicates a resource is being deleted.
	EventResourceDeleting EventType = "resource.deleting"
	// EventResourceDeleted indicates a resource was deleted successfully.
	EventResourceDeleted EventType = "resource.deleted"

	// EventStepWarning indicates a non-fatal step failure.
	EventStepWarning EventType = "step.warning"

	// EventProgress indicates progress in a long-running operation.
	EventProgress EventType = "progress"
)

// SlogObserver implements Observer on a slog.Logger.
type SlogObserver struct {
	logger        *slog.Logger
	contextFields map[string]string
}

// NewSlogObserver creates an observer writing to logger, or to slog.Default() if nil.
func NewSlogObserver(logger *slog.Logger) *SlogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogObserver{
		logger:        logger,
		contextFields: make(map[string]string),
	}
}

// Printf implements Observer.
func (o *SlogObserver) Printf(format string, v ...any) {
	o.logger.Info(fmt.Sprintf(format, v...), o.attrs(nil)...)
}

// Warnf implements Observer.
func (o *SlogObserver) Warnf(format string, v ...any) {
	o.logger.Warn(fmt.Sprintf(format, v...), o.attrs(nil)...)
}

// Event implements Observer.
func (o *SlogObserver) Event(event Event) {
	args := []any{slog.String("event", string(event.Type))}
	if event.Phase != "" {
		args = append(args, slog.String("phase", event.Phase))
	}
	if event.Resource != "" {
		args = append(args, slog.String("resource", event.Resource))
	}
	args = append(args, o.attrs(event.Fields)...)

	o.logger.Log(context.Background(), levelFor(event.Type), event.Message, args...)
}

// Progress implements Observer.
func (o *SlogObserver) Progress(phase string, current, total int) {
	o.logger.Info(fmt.Sprintf("[%s] %d/%d", phase, current, total),
		append(o.attrs(nil), slog.Int("current", current), slog.Int("total", total))...)
}

// WithFields implements Observer.
func (o *SlogObserver) WithFields(fields map[string]string) Observer {
	return &SlogObserver{logger: o.logger, contextFields: mergeFields(o.contextFields, fields)}
}

// attrs merges context fields under event fields and returns them as
// sorted slog attributes.
func (o *SlogObserver) attrs(fields map[string]string) []any {
	merged := mergeFields(o.contextFields, fields)

	out := make([]any, 0, len(merged))
	for _, k := range slices.Sorted(maps.Keys(merged)) {
		out = append(out, slog.String(k, merged[k]))
	}
	return out
}

func mergeFields(base, extra map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(extra))
	maps.Copy(merged, base)
	maps.Copy(merged, extra)
	return merged
}

func levelFor(t EventType) slog.Level {
	switch t {
	case EventPhaseFailed, EventResourceFailed:
		return slog.LevelError
	case EventStepWarning, EventResourceSkipped:
		return slog.LevelWarn
	case EventProgress:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// MultiObserver fans every call out to several observers.
type MultiObserver []Observer

// NewMultiObserver combines observers, dropping nils.
func NewMultiObserver(observers ...Observer) MultiObserver {
	out := make(MultiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

// Printf implements Observer.
func (m MultiObserver) Printf(format string, v ...any) {
	for _, o := range m {
		o.Printf(format, v...)
	}
}

// Warnf implements Observer.
func (m MultiObserver) Warnf(format string, v ...any) {
	for _, o := range m {
		o.Warnf(format, v...)
	}
}

// Event implements Observer.
func (m MultiObserver) Event(event Event) {
	for _, o := range m {
		o.Event(event)
	}
}

// Progress implements Observer.
func (m MultiObserver) Progress(phase string, current, total int) {
	for _, o := range m {
		o.Progress(phase, current, total)
	}
}

// WithFields implements Observer.
func (m MultiObserver) WithFields(fields map[string]string) Observer {
	out := make(MultiObserver, len(m))
	for i, o := range m {
		out[i] = o.WithFields(fields)
	}
	return out
}

// Helper functions for common events

// LogPhaseStart logs a phase start event.
func LogPhaseStart(observer Observer, phase string) {
	observer.Event(Event{
		Type:    EventPhaseStarted,
		Phase:   phase,
		Message: "starting",
	})
}

// LogPhaseComplete logs a phase completion event.
func LogPhaseComplete(observer Observer, phase string, duration time.Duration) {
	observer.Event(Event{
		Type:    EventPhaseCompleted,
		Phase:   phase,
		Message: fmt.Sprintf("completed in %v", duration.Round(time.Millisecond)),
	})
}

// LogPhaseFailed logs a phase failure event.
func LogPhaseFailed(observer Observer, phase string, err error) {
	observer.Event(Event{
		Type:    EventPhaseFailed,
		Phase:   phase,
		Message: fmt.Sprintf("failed: %v", err),
	})
}

// LogResourceCreating logs a resource creation start event.
func LogResourceCreating(observer Observer, phase string, kind ResourceKind, name string) {
	observer.Event(Event{
		Type:     EventResourceCreating,
		Phase:    phase,
		Resource: name,
		Message:  fmt.Sprintf("creating %s", kind),
		Fields:   map[string]string{"kind": string(kind)},
	})
}

// LogResourceCreated logs a resource that was created and recorded.
func LogResourceCreated(observer Observer, phase string, rec ResourceRecord) {
	fields := map[string]string{"kind": string(rec.Kind)}
	if rec.InstanceID != "" {
		fields["id"] = rec.InstanceID
	}
	if rec.Address != "" {
		fields["address"] = rec.Address
	}
	observer.Event(Event{
		Type:     EventResourceCreated,
		Phase:    phase,
		Resource: rec.Key,
		Message:  fmt.Sprintf("%s recorded", rec.Kind),
		Fields:   fields,
	})
}

// LogResourceSkipped logs a resource that was skipped, with the reason.
func LogResourceSkipped(observer Observer, phase, resource, reason string) {
	observer.Event(Event{
		Type:     EventResourceSkipped,
		Phase:    phase,
		Resource: resource,
		Message:  "skipped: " + reason,
	})
}

// LogResourceDeleting logs a resource deletion start event.
func LogResourceDeleting(observer Observer, phase string, kind ResourceKind, name string) {
	observer.Event(Event{
		Type:     EventResourceDeleting,
		Phase:    phase,
		Resource: name,
		Message:  fmt.Sprintf("deleting %s", kind),
		Fields:   map[string]string{"kind": string(kind)},
	})
}

// LogResourceDeleted logs a successful resource deletion event.
func LogResourceDeleted(observer Observer, phase string, kind ResourceKind, name string) {
	observer.Event(Event{
		Type:     EventResourceDeleted,
		Phase:    phase,
		Resource: name,
		Message:  fmt.Sprintf("%s deleted", kind),
		Fields:   map[string]string{"kind": string(kind)},
	})
}

// LogStepWarning logs a step that failed without failing the phase.
func LogStepWarning(observer Observer, phase, resource, step string, err error) {
	observer.Event(Event{
		Type:     EventStepWarning,
		Phase:    phase,
		Resource: resource,
		Message:  fmt.Sprintf("%s failed: %v", step, err),
		Fields:   map[string]string{"step": step},
	})
}
