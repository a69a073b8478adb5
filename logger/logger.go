// Package logger abstracts structured logging for the x402 client engine
// and server guard.
package logger

// Logger takes a message and loosely-typed fields at one of four levels.
// The engine and guard log through this interface only, so any backend can
// be wired in; NewZapLogger and WrapZap cover the common case.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// NoopLogger discards everything. It is the default, so unconfigured
// clients and guards stay silent.
type NoopLogger struct{}

var _ Logger = NoopLogger{}

func (NoopLogger) Debug(string, map[string]any) {}

func (NoopLogger) Info(string, map[string]any) {}

func (NoopLogger) Warn(string, map[string]any) {}

func (NoopLogger) Error(string, map[string]any) {}
