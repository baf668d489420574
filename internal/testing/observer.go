package testing

import (
	"fmt"
	"sync"

	"github.com/imamik/tradefleet/internal/provisioning"
)

// RecordingObserver captures everything a run reports.
type RecordingObserver struct {
	mu       sync.Mutex
	events   []provisioning.Event
	messages []string
	warnings []string
}

// NewRecordingObserver creates an empty observer.
func NewRecordingObserver() *RecordingObserver {
	return &RecordingObserver{}
}

// Printf implements provisioning.Observer.
func (o *RecordingObserver) Printf(format string, v ...any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, fmt.Sprintf(format, v...))
}

// Warnf implements provisioning.Observer.
func (o *RecordingObserver) Warnf(format string, v ...any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.warnings = append(o.warnings, fmt.Sprintf(format, v...))
}

// Event implements provisioning.Observer.
func (o *RecordingObserver) Event(event provisioning.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

// Progress implements provisioning.Observer.
func (o *RecordingObserver) Progress(string, int, int) {}

// WithFields implements provisioning.Observer. Fields are not recorded.
func (o *RecordingObserver) WithFields(map[string]string) provisioning.Observer {
	return o
}

// Events returns the events of the given type, or all events if none is given.
func (o *RecordingObserver) Events(types ...provisioning.EventType) []provisioning.Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []provisioning.Event
	for _, e := range o.events {
		if len(types) == 0 || containsType(types, e.Type) {
			out = append(out, e)
		}
	}
	return out
}

// Warnings returns every Warnf message.
func (o *RecordingObserver) Warnings() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.warnings...)
}

// Messages returns every Printf message.
func (o *RecordingObserver) Messages() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.messages...)
}

func containsType(types []provisioning.EventType, t provisioning.EventType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}
