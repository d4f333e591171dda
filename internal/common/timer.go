// Package common holds the stage timer and memory snapshots shared by the
// pipeline, the server and the benchmark suite.
package common

import (
	"fmt"
	"time"
)

// Timer measures one pipeline stage. The zero value is not usable; create
// timers with NewTimer or NewNamedTimer.
type Timer struct {
	name     string
	start    time.Time
	duration time.Duration
	stopped  bool
}

// NewTimer starts an unnamed timer.
func NewTimer() *Timer {
	return NewNamedTimer("")
}

// NewNamedTimer starts a timer labelled with a stage name.
func NewNamedTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now()}
}

// Stop records the elapsed time. Later calls return the first measurement.
func (t *Timer) Stop() time.Duration {
	if !t.stopped {
		t.duration = time.Since(t.start)
		t.stopped = true
	}
	return t.duration
}

// Elapsed returns the time since start, or the recorded duration once stopped.
func (t *Timer) Elapsed() time.Duration {
	if t.stopped {
		return t.duration
	}
	return time.Since(t.start)
}

// Duration returns the recorded duration; zero before Stop.
func (t *Timer) Duration() time.Duration {
	return t.duration
}

// Name returns the stage label.
func (t *Timer) Name() string {
	return t.name
}

func (t *Timer) String() string {
	if t.name == "" {
		return t.Elapsed().String()
	}
	return fmt.Sprintf("%s: %v", t.name, t.Elapsed())
}
