//go:build !linux

package adc

import "errors"

// DefaultIIODevice is unused on non-Linux platforms.
const DefaultIIODevice = ""

// IIOSampler is not available on non-Linux platforms.
type IIOSampler struct{}

// NewIIOSampler returns an error on non-Linux platforms.
func NewIIOSampler(dir string, fullScale int) (*IIOSampler, error) {
	return nil, errors.New("adc: not supported on this platform (requires Linux)")
}

// Arm is not implemented on non-Linux platforms.
func (s *IIOSampler) Arm(channel int) error {
	return errors.New("adc: not supported")
}

// Read is not implemented on non-Linux platforms.
func (s *IIOSampler) Read(channel int) (int, error) {
	return 0, errors.New("adc: not supported")
}

// FullScale is not implemented on non-Linux platforms.
func (s *IIOSampler) FullScale() int {
	return 0
}

// Close is not implemented on non-Linux platforms.
func (s *IIOSampler) Close() error {
	return nil
}
