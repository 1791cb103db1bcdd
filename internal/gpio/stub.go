//go:build !linux

package gpio

import "errors"

// RealPinMode is not available on non-Linux platforms.
type RealPinMode struct{}

// NewRealPinMode returns an error on non-Linux platforms.
func NewRealPinMode(chipName, memPath string, functions map[int]Function) (*RealPinMode, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// SetMode is not implemented on non-Linux platforms.
func (r *RealPinMode) SetMode(pin int, mode Mode) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealPinMode) Close() error {
	return nil
}
