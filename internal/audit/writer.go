package audit

// Writer writes audit events to a destination
type Writer interface {
	// Write writes an event
	Write(event Event) error

	// Close closes the writer
	Close() error
}

// NoopWriter discards events. Used when the audit trail is disabled.
type NoopWriter struct{}

func (NoopWriter) Write(Event) error { return nil }
func (NoopWriter) Close() error      { return nil }
