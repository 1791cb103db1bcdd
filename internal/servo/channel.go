// Package servo contains the per-channel motion and idle power state machine.
// Hardware is reached only through the clock, gpio, pwm and adc interfaces,
// so time and sensor readings are fully injectable in tests.
//
// A Channel is not safe for concurrent use. It is driven by a single polling
// loop: Write/Track set intent, Update realizes it over time.
package servo

import (
	"log"
	"time"

	"github.com/sweeney/servo-idle/internal/adc"
	"github.com/sweeney/servo-idle/internal/clock"
	"github.com/sweeney/servo-idle/internal/gpio"
	"github.com/sweeney/servo-idle/internal/pwm"
)

// NoInput marks a channel without a position sensor.
const NoInput = -1

// JitterFilter is the fraction of the sensor's full scale below which a
// change in reading is treated as noise.
const JitterFilter = 0.01

// DefaultIdleWait is how long a settled servo stays powered.
const DefaultIdleWait = 10 * time.Second

// Hardware bundles the primitives a Channel drives.
type Hardware struct {
	Clock    clock.Clock
	Pins     gpio.PinModer
	Actuator pwm.Actuator
	Sampler  adc.Sampler // may be nil for channels without a sensor
	Logger   *log.Logger // debug sink; log.Default() when nil
}

// Channel owns one servo output and its optional sensor input.
type Channel struct {
	status Status
	name   string

	inputCh   int
	outputPin int

	jitter  int
	lastRaw int

	lower float64
	upper float64

	start   float64 // position when the active move began
	target  float64
	current float64
	step    float64 // position change per millisecond

	moveStart int64 // ms
	moveEnd   int64 // ms
	idleWait  time.Duration

	lastOut int64

	clock    clock.Clock
	pins     gpio.PinModer
	actuator pwm.Actuator
	sampler  adc.Sampler
	logger   *log.Logger

	err error
}

// NewChannel creates a channel driving outputPin, optionally tracking
// inputChannel (NoInput for none). Idle management starts enabled.
func NewChannel(name string, outputPin, inputChannel int, hw Hardware) *Channel {
	c := &Channel{
		status:    EnableIdle,
		name:      name,
		inputCh:   inputChannel,
		outputPin: outputPin,
		idleWait:  DefaultIdleWait,
		clock:     hw.Clock,
		pins:      hw.Pins,
		actuator:  hw.Actuator,
		sampler:   hw.Sampler,
		logger:    hw.Logger,
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	if c.sampler != nil {
		c.jitter = int(float64(c.sampler.FullScale()) * JitterFilter)
	}
	now := c.clock.Millis()
	c.moveStart = now
	c.moveEnd = now
	return c
}

// Configure records the position limits and arms the hardware.
// It must be called exactly once, before any Write, Update or Track.
func (c *Channel) Configure(hz int, lower, upper float64) {
	c.lower = lower
	c.upper = upper

	if c.hasInput() {
		if err := c.sampler.Arm(c.inputCh); err != nil {
			c.fail("arm input", err)
		}
	}

	if err := c.actuator.SetFrequency(hz); err != nil {
		c.fail("set frequency", err)
	}
	if err := c.actuator.Arm(c.outputPin, pwm.PulseMinUs, pwm.PulseMaxUs); err != nil {
		c.fail("arm output", err)
	}

	if c.IdleEnabled() {
		c.ClearIdle()
	}
}

// Write commands a new target. A period under one millisecond is immediate,
// otherwise it is interpolated linearly over period by Update.
// Restating the current, already reached or in-progress target only
// re-flushes the output.
func (c *Channel) Write(value float64, period time.Duration) {
	if trunc(c.target) != trunc(value) || trunc(c.target) != trunc(c.current) {
		c.moveStart = c.clock.Millis()
		c.moveEnd = c.moveStart
		c.target = value
		c.start = c.current

		// The clock ticks in whole milliseconds; anything shorter is immediate.
		ms := float64(period) / float64(time.Millisecond)
		if ms < 1 {
			c.current = value
			c.step = 0
		} else {
			c.moveEnd += int64(ms)
			c.step = (value - c.current) / ms
			c.current += c.step
		}
	}
	c.flush()
}

// Update advances the active move to the current time and powers the servo
// down once it has been settled for the idle wait. It reports whether no
// further movement is pending. When wake is set a settled channel skips the
// idle check for this call.
func (c *Channel) Update(wake bool) bool {
	now := c.clock.Millis()

	if !wake && c.current == c.target {
		if c.IdleEnabled() && !c.Idle() && now-c.moveStart >= c.idleWait.Milliseconds() {
			c.sleep()
		}
		return true
	}

	if now >= c.moveEnd {
		c.target = float64(trunc(c.target))
		c.current = c.target
		c.flush()
		return true
	}

	// Recomputed from the start of the move, never accumulated.
	c.current = c.start + float64(now-c.moveStart)*c.step
	c.flush()
	return false
}

// Track reads the sensor and, when the reading moved by at least the jitter
// threshold, writes the reading mapped onto the channel's limits.
// It must not be called on a channel without a sensor.
func (c *Channel) Track(period time.Duration) {
	raw, err := c.Input()
	if err != nil {
		c.fail("read input", err)
		return
	}
	if raw == c.lastRaw || absInt(raw-c.lastRaw) < c.jitter {
		return
	}
	c.lastRaw = raw
	c.Write(float64(c.mapInput(raw)), period)
}

// Input returns the raw sensor reading without tracking it.
func (c *Channel) Input() (int, error) {
	return c.sampler.Read(c.inputCh)
}

// mapInput scales raw from [0, fullScale] onto [lower, upper] with integer
// arithmetic.
func (c *Channel) mapInput(raw int) int64 {
	lo, hi := trunc(c.lower), trunc(c.upper)
	full := int64(c.sampler.FullScale())
	if full == 0 {
		return lo
	}
	return int64(raw)*(hi-lo)/full + lo
}

// flush sends the truncated position to the servo if it changed, waking a
// detached servo first.
func (c *Channel) flush() {
	out := trunc(c.current)
	if out == c.lastOut {
		return
	}

	if c.IdleEnabled() && c.Idle() {
		if err := c.pins.SetMode(c.outputPin, gpio.Output); err != nil {
			c.fail("set pin output", err)
		}
		if err := c.actuator.Attach(c.outputPin); err != nil {
			c.fail("attach", err)
		}
		c.ClearIdle()
		if c.Debug() {
			c.logger.Printf("Setting '%s' servo as output", c.name)
		}
	}

	c.lastOut = out
	if err := c.actuator.WritePosition(c.outputPin, int(out)); err != nil {
		c.fail("write", err)
	}
	if c.Debug() {
		c.logger.Printf("Writing to '%s' servo: %d", c.name, out)
	}
}

// sleep detaches the servo and floats its pin.
func (c *Channel) sleep() {
	if err := c.actuator.Detach(c.outputPin); err != nil {
		c.fail("detach", err)
	}
	if err := c.pins.SetMode(c.outputPin, gpio.Input); err != nil {
		c.fail("set pin input", err)
	}
	c.SetIdle()
	if c.Debug() {
		c.logger.Printf("Setting '%s' servo to sleep", c.name)
	}
}

// fail records a hardware error. The state machine carries on regardless.
func (c *Channel) fail(op string, err error) {
	c.err = err
	c.logger.Printf("servo %q: %s: %v", c.name, op, err)
}

func (c *Channel) hasInput() bool {
	return c.sampler != nil && c.inputCh != NoInput
}

// Name returns the display name.
func (c *Channel) Name() string { return c.name }

// OutputPin returns the servo pin.
func (c *Channel) OutputPin() int { return c.outputPin }

// InputChannel returns the sensor channel, or NoInput.
func (c *Channel) InputChannel() int { return c.inputCh }

// HasInput reports whether the channel can Track.
func (c *Channel) HasInput() bool { return c.hasInput() }

// Position returns the interpolated position.
func (c *Channel) Position() float64 { return c.current }

// Target returns the commanded position.
func (c *Channel) Target() float64 { return c.target }

// LastOutput returns the last value written to the servo.
func (c *Channel) LastOutput() int64 { return c.lastOut }

// LastInput returns the last accepted sensor reading.
func (c *Channel) LastInput() int { return c.lastRaw }

// JitterThreshold returns the minimum accepted change in sensor reading.
func (c *Channel) JitterThreshold() int { return c.jitter }

// Limits returns the configured lower and upper limits.
func (c *Channel) Limits() (lower, upper float64) { return c.lower, c.upper }

// Range returns the distance between the limits.
func (c *Channel) Range() float64 {
	if c.lower < c.upper {
		return c.upper - c.lower
	}
	return c.lower - c.upper
}

// IdleWait returns the settled time before power down.
func (c *Channel) IdleWait() time.Duration { return c.idleWait }

// SetIdleWait sets the settled time before power down.
func (c *Channel) SetIdleWait(d time.Duration) { c.idleWait = d }

// Err returns the most recent hardware error, if any.
func (c *Channel) Err() error { return c.err }

// State returns a snapshot for status reporting.
func (c *Channel) State() ChannelState {
	return ChannelState{
		Name:        c.name,
		Position:    c.current,
		Target:      c.target,
		LastOutput:  c.lastOut,
		Moving:      c.current != c.target,
		Idle:        c.Idle(),
		IdleEnabled: c.IdleEnabled(),
		Debug:       c.Debug(),
	}
}

// trunc truncates toward zero.
func trunc(v float64) int64 { return int64(v) }

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
