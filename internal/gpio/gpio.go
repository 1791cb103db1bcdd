// Package gpio switches servo pins between driven and high-impedance modes.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Mode is the electrical mode of a pin.
type Mode int

const (
	// Input leaves the pin high impedance so the servo draws no holding current.
	Input Mode = iota
	// Output releases the pin from GPIO use and restores the alternate
	// function that routes the PWM peripheral to it, so the servo is driven
	// again. On real hardware this rewrites the pin's GPFSEL field.
	Output
)

func (m Mode) String() string {
	switch m {
	case Input:
		return "INPUT"
	case Output:
		return "OUTPUT"
	}
	return "UNKNOWN"
}

// PinModer sets pin modes.
type PinModer interface {
	// SetMode switches pin (BCM numbering) to the given mode.
	SetMode(pin int, mode Mode) error

	// Close releases GPIO resources.
	Close() error
}

// DefaultChip is the GPIO character device carrying the Pi header pins.
const DefaultChip = "gpiochip0"

// DefaultGPIOMem exposes the GPIO register block to unprivileged users in
// the gpio group on Raspberry Pi OS.
const DefaultGPIOMem = "/dev/gpiomem"
