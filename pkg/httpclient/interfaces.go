package httpclient

import "context"

// Client performs requests so callers can inject the production transport or a fake one.
type Client interface {
	// Perform executes req exactly once. On failure the error is always an *Error.
	Perform(ctx context.Context, req Request) (*Result, error)
}

// Logger is the logging surface the transport relies on.
type Logger interface {
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}
func (noopLogger) ErrorObj(string, string, interface{}) {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return noopLogger{}
	}
	return log
}
