// Package pwm drives hobby servos with pulse width modulation.
// The real implementation uses the Linux sysfs PWM class.
// The fake implementation records calls for tests.
package pwm

// Standard servo pulse range in microseconds.
const (
	PulseMinUs = 500
	PulseMaxUs = 2400
)

// DefaultFrequencyHz is the usual analog servo refresh rate.
const DefaultFrequencyHz = 50

// maxAngle is the largest value WritePosition treats as degrees.
const maxAngle = 180

// Actuator is the raw position output for one or more servo pins.
type Actuator interface {
	// SetFrequency sets the refresh rate used by pins armed afterwards.
	SetFrequency(hz int) error

	// Arm configures pin with the given pulse range and starts driving it.
	Arm(pin, minUs, maxUs int) error

	// Attach resumes driving a previously armed pin.
	Attach(pin int) error

	// Detach stops driving pin. The pulse range is kept for the next Attach.
	Detach(pin int) error

	// WritePosition sends value to pin. See PulseWidth for the interpretation.
	WritePosition(pin, value int) error

	// Close stops all pins and releases resources.
	Close() error
}

// PulseWidth converts a position value to a pulse width in microseconds.
// Values below minUs are angles, clamped to [0, 180] and mapped linearly onto
// [minUs, maxUs]. Larger values are taken as microseconds and clamped to the
// range.
func PulseWidth(value, minUs, maxUs int) int {
	if value < minUs {
		if value < 0 {
			value = 0
		}
		if value > maxAngle {
			value = maxAngle
		}
		return minUs + value*(maxUs-minUs)/maxAngle
	}
	if value > maxUs {
		return maxUs
	}
	return value
}
