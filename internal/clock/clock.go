// Package clock provides the millisecond time source used by the motion core.
// The fake implementation lets tests control elapsed time exactly.
package clock

import "time"

// Clock reports milliseconds since an arbitrary fixed origin.
// Successive calls never go backwards.
type Clock interface {
	Millis() int64
}

// Monotonic measures milliseconds since it was created, using the
// monotonic reading carried by time.Time.
type Monotonic struct {
	origin time.Time
}

// NewMonotonic creates a clock whose origin is now.
func NewMonotonic() *Monotonic {
	return &Monotonic{origin: time.Now()}
}

// Millis returns milliseconds elapsed since the clock was created.
func (m *Monotonic) Millis() int64 {
	return time.Since(m.origin).Milliseconds()
}

// Fake is a manually driven clock for tests.
type Fake struct {
	ms int64
}

// NewFake creates a fake clock starting at ms.
func NewFake(ms int64) *Fake {
	return &Fake{ms: ms}
}

// Millis returns the current fake time.
func (f *Fake) Millis() int64 {
	return f.ms
}

// Set moves the clock to ms. Moving backwards is ignored.
func (f *Fake) Set(ms int64) {
	if ms > f.ms {
		f.ms = ms
	}
}

// Advance moves the clock forward by d, truncated to whole milliseconds.
func (f *Fake) Advance(d time.Duration) {
	if d > 0 {
		f.ms += d.Milliseconds()
	}
}
