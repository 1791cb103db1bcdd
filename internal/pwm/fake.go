package pwm

import "fmt"

// Call is a single recorded Actuator call.
type Call struct {
	Op    string // "frequency", "arm", "attach", "detach", "write"
	Pin   int
	Value int // hz for "frequency", position for "write"
}

func (c Call) String() string {
	return fmt.Sprintf("%s(%d,%d)", c.Op, c.Pin, c.Value)
}

// FakeActuator records actuator calls for test assertions.
type FakeActuator struct {
	// Calls contains every successful call in order.
	Calls []Call

	// Attached reports whether each pin is currently driven.
	Attached map[int]bool

	// Positions holds the last value written per pin.
	Positions map[int]int

	// FrequencyHz is the last frequency set.
	FrequencyHz int

	// Ranges holds the pulse range each pin was armed with.
	Ranges map[int][2]int

	// Err, if set, is returned by every call except Close (nothing is recorded).
	Err error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeActuator creates an empty FakeActuator.
func NewFakeActuator() *FakeActuator {
	return &FakeActuator{
		Attached:  make(map[int]bool),
		Positions: make(map[int]int),
		Ranges:    make(map[int][2]int),
	}
}

// SetFrequency records the frequency.
func (f *FakeActuator) SetFrequency(hz int) error {
	if f.Err != nil {
		return f.Err
	}
	f.FrequencyHz = hz
	f.Calls = append(f.Calls, Call{Op: "frequency", Value: hz})
	return nil
}

// Arm records the pulse range and marks pin attached.
func (f *FakeActuator) Arm(pin, minUs, maxUs int) error {
	if f.Err != nil {
		return f.Err
	}
	f.Ranges[pin] = [2]int{minUs, maxUs}
	f.Attached[pin] = true
	f.Calls = append(f.Calls, Call{Op: "arm", Pin: pin})
	return nil
}

// Attach marks pin attached.
func (f *FakeActuator) Attach(pin int) error {
	if f.Err != nil {
		return f.Err
	}
	f.Attached[pin] = true
	f.Calls = append(f.Calls, Call{Op: "attach", Pin: pin})
	return nil
}

// Detach marks pin detached.
func (f *FakeActuator) Detach(pin int) error {
	if f.Err != nil {
		return f.Err
	}
	f.Attached[pin] = false
	f.Calls = append(f.Calls, Call{Op: "detach", Pin: pin})
	return nil
}

// WritePosition records value for pin.
func (f *FakeActuator) WritePosition(pin, value int) error {
	if f.Err != nil {
		return f.Err
	}
	f.Positions[pin] = value
	f.Calls = append(f.Calls, Call{Op: "write", Pin: pin, Value: value})
	return nil
}

// Close marks the actuator as closed.
func (f *FakeActuator) Close() error {
	f.Closed = true
	return nil
}

// Count returns how many recorded calls have the given op.
func (f *FakeActuator) Count(op string) int {
	n := 0
	for _, c := range f.Calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Reset clears recorded calls but keeps attach state and positions.
func (f *FakeActuator) Reset() {
	f.Calls = nil
	f.Err = nil
	f.Closed = false
}
