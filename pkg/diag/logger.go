package diag

// Logger is the interface applications implement to receive diagnostic events.
// Pass NoopLogger to disable diagnostics.
type Logger interface {
	// Log records a diagnostic event. Implementations must be thread-safe.
	// The event should be processed quickly or queued; blocking affects
	// parse and decode performance.
	Log(event Event)
}

// NoopLogger discards all events. Use when diagnostics are disabled.
// NoopLogger is safe for concurrent use and usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// Compile-time interface satisfaction check.
var _ Logger = NoopLogger{}
