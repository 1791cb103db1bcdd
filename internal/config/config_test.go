package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sweeney/servo-idle/internal/gpio"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "servos.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func requireErrEq(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", want)
	}
	if err.Error() != want {
		t.Fatalf("error=%q want %q", err.Error(), want)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeTempConfig(t, "channels:\n  - servo_pin: 18\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Hardware.GPIOChip != "gpiochip0" {
		t.Errorf("gpio_chip=%q want gpiochip0", cfg.Hardware.GPIOChip)
	}
	if cfg.Hardware.PWMChip != "/sys/class/pwm/pwmchip0" {
		t.Errorf("pwm_chip=%q", cfg.Hardware.PWMChip)
	}
	if cfg.Hardware.ADCFullScale != 4095 {
		t.Errorf("adc_full_scale=%d want 4095", cfg.Hardware.ADCFullScale)
	}

	ch := cfg.Channels[0]
	if ch.Name != "servo0" {
		t.Errorf("name=%q want servo0", ch.Name)
	}
	if ch.Frequency != 50 {
		t.Errorf("frequency=%d want 50", ch.Frequency)
	}
	if ch.Lower != 0 || ch.Upper != 180 {
		t.Errorf("limits=%v..%v want 0..180", ch.Lower, ch.Upper)
	}
	if ch.IdleWait == nil || *ch.IdleWait != 10*time.Second {
		t.Errorf("idle_wait=%v want 10s", ch.IdleWait)
	}
	if ch.Function != gpio.FuncAlt5 {
		t.Errorf("function=%v want ALT5 for pin 18", ch.Function)
	}
	if cfg.Hardware.GPIOMem != "/dev/gpiomem" {
		t.Errorf("gpio_mem=%q want /dev/gpiomem", cfg.Hardware.GPIOMem)
	}
	if !ch.IdleEnabled() {
		t.Error("expected idle management enabled by default")
	}
	if ch.HasInput() {
		t.Error("expected no input by default")
	}
	if ch.Home != nil {
		t.Error("expected no home position by default")
	}
}

func TestLoad_FullChannel(t *testing.T) {
	path := writeTempConfig(t, `
hardware:
  iio_device: /sys/bus/iio/devices/iio:device0
  adc_full_scale: 1023
channels:
  - name: pan
    servo_pin: 18
    pwm_channel: 0
    input_channel: 2
    frequency: 330
    lower: 170
    upper: 10
    idle_wait: 3s
    idle_enable: false
    debug: true
    home: 90
    home_period: 1500ms
    track: true
    track_period: 200ms
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	ch := cfg.Channels[0]

	if ch.Name != "pan" || ch.ServoPin != 18 || ch.PWMChannel != 0 {
		t.Errorf("unexpected identity: %+v", ch)
	}
	if !ch.HasInput() || *ch.InputChannel != 2 {
		t.Errorf("expected input channel 2")
	}
	if ch.Frequency != 330 {
		t.Errorf("frequency=%d want 330", ch.Frequency)
	}
	if ch.Lower != 170 || ch.Upper != 10 {
		t.Errorf("limits=%v..%v want 170..10", ch.Lower, ch.Upper)
	}
	if ch.IdleWait == nil || *ch.IdleWait != 3*time.Second {
		t.Errorf("idle_wait=%v want 3s", ch.IdleWait)
	}
	if ch.IdleEnabled() {
		t.Error("expected idle management disabled")
	}
	if !ch.Debug {
		t.Error("expected debug enabled")
	}
	if ch.Home == nil || *ch.Home != 90 || ch.HomePeriod != 1500*time.Millisecond {
		t.Errorf("unexpected home: %v over %s", ch.Home, ch.HomePeriod)
	}
	if !ch.Track || ch.TrackPeriod != 200*time.Millisecond {
		t.Errorf("unexpected tracking: %v over %s", ch.Track, ch.TrackPeriod)
	}
	if cfg.Hardware.ADCFullScale != 1023 {
		t.Errorf("adc_full_scale=%d want 1023", cfg.Hardware.ADCFullScale)
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name     string
		contents string
		want     string
	}{
		{
			name:     "no channels",
			contents: "hardware: {}\n",
			want:     "at least one channel is required",
		},
		{
			name:     "missing pin",
			contents: "channels:\n  - name: pan\n",
			want:     "channels[0] (pan): servo_pin is required",
		},
		{
			name:     "duplicate name",
			contents: "channels:\n  - {name: pan, servo_pin: 18}\n  - {name: pan, servo_pin: 19}\n",
			want:     `channels[1]: duplicate name "pan"`,
		},
		{
			name:     "duplicate pin",
			contents: "channels:\n  - {name: pan, servo_pin: 18}\n  - {name: tilt, servo_pin: 18}\n",
			want:     "channels[1] (tilt): servo_pin 18 already in use",
		},
		{
			name:     "duplicate pwm channel",
			contents: "channels:\n  - {name: pan, servo_pin: 18, pwm_channel: 0}\n  - {name: tilt, servo_pin: 19, pwm_channel: 0}\n",
			want:     "channels[1] (tilt): pwm_channel 0 already in use",
		},
		{
			name:     "defaulted pwm channel collides",
			contents: "channels:\n  - {name: pan, servo_pin: 18}\n  - {name: tilt, servo_pin: 19}\n",
			want:     "channels[1] (tilt): pwm_channel 0 already in use",
		},
		{
			name:     "negative idle wait",
			contents: "channels:\n  - {name: pan, servo_pin: 18, idle_wait: -1s}\n",
			want:     "channels[0] (pan): idle_wait must be >= 0",
		},
		{
			name:     "unknown pin function",
			contents: "channels:\n  - {name: pan, servo_pin: 18, pin_function: alt9}\n",
			want:     `channels[0] (pan): unknown pin function "alt9" (want alt0..alt5)`,
		},
		{
			name:     "pin without pwm function",
			contents: "channels:\n  - {name: pan, servo_pin: 17}\n",
			want:     "channels[0] (pan): no PWM function known for servo_pin 17, set pin_function",
		},
		{
			name:     "track without input",
			contents: "channels:\n  - {name: pan, servo_pin: 18, track: true}\n",
			want:     "channels[0] (pan): track requires input_channel",
		},
		{
			name:     "track without iio device",
			contents: "channels:\n  - {name: pan, servo_pin: 18, input_channel: 0, track: true}\n",
			want:     "channels[0] (pan): track requires hardware.iio_device",
		},
		{
			name:     "negative frequency",
			contents: "channels:\n  - {name: pan, servo_pin: 18, frequency: -50}\n",
			want:     "channels[0] (pan): frequency must be > 0",
		},
		{
			name:     "negative input channel",
			contents: "channels:\n  - {name: pan, servo_pin: 18, input_channel: -1}\n",
			want:     "channels[0] (pan): input_channel must be >= 0",
		},
		{
			name:     "negative full scale",
			contents: "hardware: {adc_full_scale: -1}\nchannels:\n  - {servo_pin: 18}\n",
			want:     "hardware.adc_full_scale must be > 0",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeTempConfig(t, tc.contents))
			requireErrEq(t, err, tc.want)
		})
	}
}

func TestLoad_ZeroIdleWaitKept(t *testing.T) {
	cfg, err := Parse([]byte("channels:\n  - {servo_pin: 18, idle_wait: 0s}\n"))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	ch := cfg.Channels[0]
	if ch.IdleWait == nil || *ch.IdleWait != 0 {
		t.Errorf("idle_wait=%v want 0s", ch.IdleWait)
	}
}

func TestLoad_PinFunctions(t *testing.T) {
	cfg, err := Parse([]byte(`
channels:
  - {name: pan, servo_pin: 12, pwm_channel: 0}
  - {name: tilt, servo_pin: 17, pwm_channel: 1, pin_function: ALT5}
  - {name: fixed, servo_pin: 22, pwm_channel: 2, idle_enable: false}
`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	m := cfg.PinFunctions()
	if len(m) != 2 || m[12] != gpio.FuncAlt0 || m[17] != gpio.FuncAlt5 {
		t.Errorf("unexpected functions: %v", m)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("channels: [")); err == nil {
		t.Fatal("expected YAML error")
	}
}

func TestPWMChannels(t *testing.T) {
	cfg, err := Parse([]byte("channels:\n  - {servo_pin: 18, pwm_channel: 0}\n  - {servo_pin: 19, pwm_channel: 1}\n"))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	m := cfg.PWMChannels()
	if len(m) != 2 || m[18] != 0 || m[19] != 1 {
		t.Errorf("unexpected mapping: %v", m)
	}
}
