package gpio

// FakePinMode is a test double that records mode changes.
type FakePinMode struct {
	// Changes contains every SetMode call in order.
	Changes []ModeChange

	// Modes holds the latest mode per pin.
	Modes map[int]Mode

	// SetModeError, if set, will be returned by SetMode (nothing is recorded).
	SetModeError error

	// Closed tracks if Close was called
	Closed bool
}

// ModeChange is a single recorded SetMode call.
type ModeChange struct {
	Pin  int
	Mode Mode
}

// NewFakePinMode creates an empty FakePinMode.
func NewFakePinMode() *FakePinMode {
	return &FakePinMode{Modes: make(map[int]Mode)}
}

// SetMode records the change.
func (f *FakePinMode) SetMode(pin int, mode Mode) error {
	if f.SetModeError != nil {
		return f.SetModeError
	}
	f.Changes = append(f.Changes, ModeChange{Pin: pin, Mode: mode})
	f.Modes[pin] = mode
	return nil
}

// Close marks the fake as closed.
func (f *FakePinMode) Close() error {
	f.Closed = true
	return nil
}

// Reset forgets recorded changes.
func (f *FakePinMode) Reset() {
	f.Changes = nil
	f.Modes = make(map[int]Mode)
	f.Closed = false
}
