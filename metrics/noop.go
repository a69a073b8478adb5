package metrics

import "time"

// NoopRecorder drops every event. It is the default recorder, so callers
// that never opt in to metrics pay nothing for them.
type NoopRecorder struct{}

var _ Recorder = NoopRecorder{}

func (NoopRecorder) IncCounter(string, map[string]string) {}

func (NoopRecorder) ObserveLatency(string, time.Duration, map[string]string) {}
