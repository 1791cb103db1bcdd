// Package adc samples analog position sensors (potentiometers).
// The real implementation reads the Linux IIO subsystem.
// The fake implementation returns scripted readings.
package adc

// Full-scale raw readings for common converters.
const (
	FullScale8Bit  = 255
	FullScale10Bit = 1023
	FullScale12Bit = 4095
)

// Sampler reads raw analog values.
type Sampler interface {
	// Arm prepares channel for sampling.
	Arm(channel int) error

	// Read returns the raw reading of channel in [0, FullScale()].
	Read(channel int) (int, error)

	// FullScale returns the largest raw reading the converter produces.
	FullScale() int
}
