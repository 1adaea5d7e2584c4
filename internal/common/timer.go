// Package common provides shared utilities including stage timing.
package common

import (
	"fmt"
	"time"
)

// Timer measures the elapsed time of one processing stage.
type Timer struct {
	start    time.Time
	name     string
	duration time.Duration
}

// NewTimer starts an unnamed timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// NewNamedTimer starts a timer with the given stage name.
func NewNamedTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now()}
}

// Stop stops the timer and returns the elapsed duration.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// Duration returns the recorded duration (only valid after Stop).
func (t *Timer) Duration() time.Duration { return t.duration }

// Name returns the timer name (empty string if unnamed).
func (t *Timer) Name() string { return t.name }

// String returns a formatted representation of the timer.
func (t *Timer) String() string {
	if t.name != "" {
		return fmt.Sprintf("%s: %v", t.name, t.duration)
	}
	return t.duration.String()
}

// StageTimings is the per-page timing breakdown across pipeline stages.
type StageTimings struct {
	AssessNs     int64 `json:"assess_ns"`
	LayoutNs     int64 `json:"layout_ns"`
	PreprocessNs int64 `json:"preprocess_ns"`
	RecognizeNs  int64 `json:"recognize_ns"`
	TotalNs      int64 `json:"total_ns"`
}
