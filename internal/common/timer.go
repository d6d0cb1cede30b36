package common

import "time"

// Timer measures one run of a benchmarked operation.
type Timer struct {
	start time.Time
}

// NewTimer returns a started timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the time elapsed since the timer last started. The timer
// keeps running, so a later Stop extends the measurement.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// Restart starts measuring again from now.
func (t *Timer) Restart() {
	t.start = time.Now()
}
