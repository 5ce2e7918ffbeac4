package access

import "time"

// Recorder receives request outcomes. The metrics package provides a
// Prometheus implementation.
type Recorder interface {
	// ObserveRequest records one operation call. outcome is "ok" or an
	// ErrorKind string.
	ObserveRequest(operation, outcome string, d time.Duration)

	// ObserveSessionInvalidated records a session removed after a rejection.
	ObserveSessionInvalidated(reason string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRequest(string, string, time.Duration) {}
func (nopRecorder) ObserveSessionInvalidated(string)             {}
