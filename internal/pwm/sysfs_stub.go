//go:build !linux

package pwm

import "errors"

// DefaultChipPath is unused on non-Linux platforms.
const DefaultChipPath = ""

// SysfsActuator is not available on non-Linux platforms.
type SysfsActuator struct{}

// NewSysfsActuator returns an error on non-Linux platforms.
func NewSysfsActuator(chipPath string, channels map[int]int) (*SysfsActuator, error) {
	return nil, errors.New("pwm: not supported on this platform (requires Linux)")
}

// SetFrequency is not implemented on non-Linux platforms.
func (a *SysfsActuator) SetFrequency(hz int) error {
	return errors.New("pwm: not supported")
}

// Arm is not implemented on non-Linux platforms.
func (a *SysfsActuator) Arm(pin, minUs, maxUs int) error {
	return errors.New("pwm: not supported")
}

// Attach is not implemented on non-Linux platforms.
func (a *SysfsActuator) Attach(pin int) error {
	return errors.New("pwm: not supported")
}

// Detach is not implemented on non-Linux platforms.
func (a *SysfsActuator) Detach(pin int) error {
	return errors.New("pwm: not supported")
}

// WritePosition is not implemented on non-Linux platforms.
func (a *SysfsActuator) WritePosition(pin, value int) error {
	return errors.New("pwm: not supported")
}

// Close is not implemented on non-Linux platforms.
func (a *SysfsActuator) Close() error {
	return nil
}
