// Package config loads the channel layout from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/servo-idle/internal/gpio"
)

// DefaultIdleWait applies when a channel omits idle_wait.
const DefaultIdleWait = 10 * time.Second

// Config is the daemon configuration: the hardware it talks to and one
// entry per servo.
type Config struct {
	Hardware HardwareConfig  `yaml:"hardware"`
	Channels []ChannelConfig `yaml:"channels"`
}

// HardwareConfig names the devices shared by all channels.
type HardwareConfig struct {
	// GPIOChip is the character device carrying the servo pins.
	GPIOChip string `yaml:"gpio_chip"`
	// GPIOMem is the GPIO register block used to route PWM back to a pin
	// after idle.
	GPIOMem string `yaml:"gpio_mem"`
	// PWMChip is the sysfs pwmchip directory.
	PWMChip string `yaml:"pwm_chip"`
	// IIODevice is the sysfs IIO device directory. Empty disables sensors.
	IIODevice string `yaml:"iio_device"`
	// ADCFullScale is the largest raw reading of the converter.
	ADCFullScale int `yaml:"adc_full_scale"`
}

// ChannelConfig describes one servo and its optional position sensor.
type ChannelConfig struct {
	Name string `yaml:"name"`

	// ServoPin is BCM GPIO numbering.
	ServoPin int `yaml:"servo_pin"`
	// PinFunction is the alternate function ("alt0".."alt5") carrying PWM
	// on ServoPin. Empty uses the known PWM pins (12, 13, 18, 19).
	PinFunction string `yaml:"pin_function"`
	// Function is PinFunction resolved by Parse.
	Function gpio.Function `yaml:"-"`
	// PWMChannel is the channel of hardware.pwm_chip wired to ServoPin.
	PWMChannel int `yaml:"pwm_channel"`
	// InputChannel is the IIO voltage channel of the position sensor; nil for none.
	InputChannel *int `yaml:"input_channel"`

	Frequency int     `yaml:"frequency"`
	Lower     float64 `yaml:"lower"`
	Upper     float64 `yaml:"upper"`

	// IdleWait is nil when the key is absent; Parse fills in DefaultIdleWait.
	IdleWait   *time.Duration `yaml:"idle_wait"`
	IdleEnable *bool          `yaml:"idle_enable"`
	Debug      bool           `yaml:"debug"`

	// Home is written once at startup when set.
	Home       *float64      `yaml:"home"`
	HomePeriod time.Duration `yaml:"home_period"`

	// Track follows the sensor on every poll.
	Track       bool          `yaml:"track"`
	TrackPeriod time.Duration `yaml:"track_period"`
}

// HasInput reports whether the channel has a position sensor.
func (c ChannelConfig) HasInput() bool {
	return c.InputChannel != nil
}

// IdleEnabled reports whether idle power management is on (default true).
func (c ChannelConfig) IdleEnabled() bool {
	return c.IdleEnable == nil || *c.IdleEnable
}

// Load reads and validates the YAML file at path.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

// Parse decodes YAML, applies defaults and validates the result.
func Parse(b []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	if cfg.Hardware.GPIOChip == "" {
		cfg.Hardware.GPIOChip = gpio.DefaultChip
	}
	if cfg.Hardware.GPIOMem == "" {
		cfg.Hardware.GPIOMem = gpio.DefaultGPIOMem
	}
	if cfg.Hardware.PWMChip == "" {
		cfg.Hardware.PWMChip = "/sys/class/pwm/pwmchip0"
	}
	if cfg.Hardware.ADCFullScale == 0 {
		cfg.Hardware.ADCFullScale = 4095
	}
	if cfg.Hardware.ADCFullScale < 0 {
		return Config{}, fmt.Errorf("hardware.adc_full_scale must be > 0")
	}

	if len(cfg.Channels) == 0 {
		return Config{}, fmt.Errorf("at least one channel is required")
	}

	names := make(map[string]bool, len(cfg.Channels))
	pins := make(map[int]bool, len(cfg.Channels))
	pwmChannels := make(map[int]bool, len(cfg.Channels))
	for i := range cfg.Channels {
		ch := &cfg.Channels[i]

		if ch.Name == "" {
			ch.Name = fmt.Sprintf("servo%d", i)
		}
		if names[ch.Name] {
			return Config{}, fmt.Errorf("channels[%d]: duplicate name %q", i, ch.Name)
		}
		names[ch.Name] = true

		if ch.ServoPin <= 0 {
			return Config{}, fmt.Errorf("channels[%d] (%s): servo_pin is required", i, ch.Name)
		}
		if pins[ch.ServoPin] {
			return Config{}, fmt.Errorf("channels[%d] (%s): servo_pin %d already in use", i, ch.Name, ch.ServoPin)
		}
		pins[ch.ServoPin] = true

		if ch.PWMChannel < 0 {
			return Config{}, fmt.Errorf("channels[%d] (%s): pwm_channel must be >= 0", i, ch.Name)
		}
		if pwmChannels[ch.PWMChannel] {
			return Config{}, fmt.Errorf("channels[%d] (%s): pwm_channel %d already in use", i, ch.Name, ch.PWMChannel)
		}
		pwmChannels[ch.PWMChannel] = true

		if ch.PinFunction != "" {
			fn, err := gpio.ParseFunction(ch.PinFunction)
			if err != nil {
				return Config{}, fmt.Errorf("channels[%d] (%s): %w", i, ch.Name, err)
			}
			ch.Function = fn
		} else if fn, ok := gpio.PWMFunction(ch.ServoPin); ok {
			ch.Function = fn
		} else if ch.IdleEnabled() {
			return Config{}, fmt.Errorf("channels[%d] (%s): no PWM function known for servo_pin %d, set pin_function", i, ch.Name, ch.ServoPin)
		}
		if ch.InputChannel != nil && *ch.InputChannel < 0 {
			return Config{}, fmt.Errorf("channels[%d] (%s): input_channel must be >= 0", i, ch.Name)
		}
		if ch.Track && ch.InputChannel == nil {
			return Config{}, fmt.Errorf("channels[%d] (%s): track requires input_channel", i, ch.Name)
		}
		if ch.Track && cfg.Hardware.IIODevice == "" {
			return Config{}, fmt.Errorf("channels[%d] (%s): track requires hardware.iio_device", i, ch.Name)
		}

		if ch.Frequency == 0 {
			ch.Frequency = 50
		}
		if ch.Frequency < 0 {
			return Config{}, fmt.Errorf("channels[%d] (%s): frequency must be > 0", i, ch.Name)
		}
		if ch.Lower == 0 && ch.Upper == 0 {
			ch.Upper = 180
		}
		if ch.IdleWait == nil {
			d := DefaultIdleWait
			ch.IdleWait = &d
		}
		if *ch.IdleWait < 0 {
			return Config{}, fmt.Errorf("channels[%d] (%s): idle_wait must be >= 0", i, ch.Name)
		}
		if ch.HomePeriod < 0 {
			return Config{}, fmt.Errorf("channels[%d] (%s): home_period must be >= 0", i, ch.Name)
		}
		if ch.TrackPeriod < 0 {
			return Config{}, fmt.Errorf("channels[%d] (%s): track_period must be >= 0", i, ch.Name)
		}
	}

	return cfg, nil
}

// PWMChannels returns the servo pin to pwm channel mapping.
func (c Config) PWMChannels() map[int]int {
	m := make(map[int]int, len(c.Channels))
	for _, ch := range c.Channels {
		m[ch.ServoPin] = ch.PWMChannel
	}
	return m
}

// PinFunctions returns the alternate function each idle-managed servo pin
// is restored to when it wakes.
func (c Config) PinFunctions() map[int]gpio.Function {
	m := make(map[int]gpio.Function, len(c.Channels))
	for _, ch := range c.Channels {
		if ch.IdleEnabled() && ch.Function != 0 {
			m[ch.ServoPin] = ch.Function
		}
	}
	return m
}
