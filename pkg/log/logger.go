package log

// Logger receives protocol events from the transport and controller
// layers. Implementations must be safe for concurrent use, and should
// return quickly: Log is called inside the bus exchange path, so a
// slow sink adds directly to command round-trip time.
type Logger interface {
	Log(event Event)
}

// NoopLogger drops every event. The zero value is ready to use; it is
// the default when no protocol log is configured.
type NoopLogger struct{}

func (NoopLogger) Log(Event) {}

var _ Logger = NoopLogger{}
