package diag

import "sync"

// Recorder captures events in memory. Tests use it to assert on the
// diagnostics a parse or merge produced. The zero value is ready to use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Log appends the event to the recording.
func (r *Recorder) Log(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a snapshot of the recorded events in arrival order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// ByKind returns the recorded events of one kind, in arrival order.
func (r *Recorder) ByKind(kind Kind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Reset discards all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Compile-time interface satisfaction check.
var _ Logger = (*Recorder)(nil)
