//go:build linux

package pwm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultChipPath is the sysfs PWM chip exposed by the Pi pwm-2chan overlay.
const DefaultChipPath = "/sys/class/pwm/pwmchip0"

// SysfsActuator drives servo pins through /sys/class/pwm.
//
// Each BCM pin maps to a channel of one pwmchip; on a Pi with
// `dtoverlay=pwm-2chan` GPIO18 is channel 0 and GPIO19 is channel 1.
type SysfsActuator struct {
	chipPath string
	channels map[int]int // pin -> pwm channel
	periodNS uint64

	pins map[int]*sysfsPin
}

type sysfsPin struct {
	path  string
	minUs int
	maxUs int
}

// NewSysfsActuator creates an actuator on chipPath with the given pin to
// channel mapping.
func NewSysfsActuator(chipPath string, channels map[int]int) (*SysfsActuator, error) {
	if _, err := os.Stat(chipPath); err != nil {
		return nil, fmt.Errorf("pwm: %w (is the pwm overlay enabled?)", err)
	}
	m := make(map[int]int, len(channels))
	for pin, ch := range channels {
		m[pin] = ch
	}
	return &SysfsActuator{
		chipPath: chipPath,
		channels: m,
		periodNS: periodFor(DefaultFrequencyHz),
		pins:     make(map[int]*sysfsPin),
	}, nil
}

func periodFor(hz int) uint64 {
	return uint64(1_000_000_000 / hz)
}

// SetFrequency sets the period used by pins armed afterwards.
func (a *SysfsActuator) SetFrequency(hz int) error {
	if hz <= 0 {
		return fmt.Errorf("pwm: invalid frequency %d", hz)
	}
	a.periodNS = periodFor(hz)
	return nil
}

// Arm exports the pin's channel, programs the period and enables output.
func (a *SysfsActuator) Arm(pin, minUs, maxUs int) error {
	ch, ok := a.channels[pin]
	if !ok {
		return fmt.Errorf("pwm: pin %d has no pwm channel", pin)
	}
	p := &sysfsPin{
		path:  filepath.Join(a.chipPath, fmt.Sprintf("pwm%d", ch)),
		minUs: minUs,
		maxUs: maxUs,
	}
	if err := a.export(ch, p.path); err != nil {
		return err
	}

	// Period can only change while disabled, and must stay >= duty_cycle.
	_ = writeSysfs(filepath.Join(p.path, "enable"), "0")
	_ = writeSysfs(filepath.Join(p.path, "duty_cycle"), "0")
	if err := writeSysfs(filepath.Join(p.path, "period"), strconv.FormatUint(a.periodNS, 10)); err != nil {
		return fmt.Errorf("pwm: set period on pin %d: %w", pin, err)
	}
	a.pins[pin] = p
	return a.setEnabled(pin, p, true)
}

// Attach resumes output on an armed pin.
func (a *SysfsActuator) Attach(pin int) error {
	p, err := a.armed(pin)
	if err != nil {
		return err
	}
	return a.setEnabled(pin, p, true)
}

// Detach disables output on an armed pin.
func (a *SysfsActuator) Detach(pin int) error {
	p, err := a.armed(pin)
	if err != nil {
		return err
	}
	return a.setEnabled(pin, p, false)
}

// WritePosition programs the duty cycle for value (see PulseWidth).
func (a *SysfsActuator) WritePosition(pin, value int) error {
	p, err := a.armed(pin)
	if err != nil {
		return err
	}
	us := PulseWidth(value, p.minUs, p.maxUs)
	duty := uint64(us) * 1000
	if duty > a.periodNS {
		duty = a.periodNS
	}
	if err := writeSysfs(filepath.Join(p.path, "duty_cycle"), strconv.FormatUint(duty, 10)); err != nil {
		return fmt.Errorf("pwm: set duty on pin %d: %w", pin, err)
	}
	return nil
}

// Close disables every armed pin.
func (a *SysfsActuator) Close() error {
	var errs []error
	for pin, p := range a.pins {
		if err := a.setEnabled(pin, p, false); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *SysfsActuator) armed(pin int) (*sysfsPin, error) {
	p, ok := a.pins[pin]
	if !ok {
		return nil, fmt.Errorf("pwm: pin %d not armed", pin)
	}
	return p, nil
}

func (a *SysfsActuator) setEnabled(pin int, p *sysfsPin, on bool) error {
	val := "0"
	if on {
		val = "1"
	}
	if err := writeSysfs(filepath.Join(p.path, "enable"), val); err != nil {
		return fmt.Errorf("pwm: enable=%s on pin %d: %w", val, pin, err)
	}
	return nil
}

func (a *SysfsActuator) export(ch int, path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := writeSysfs(filepath.Join(a.chipPath, "export"), strconv.Itoa(ch)); err != nil {
		// Exported by someone else in the meantime.
		if _, statErr := os.Stat(path); statErr == nil {
			return nil
		}
		return fmt.Errorf("pwm: export channel %d: %w", ch, err)
	}

	// The kernel creates the channel directory asynchronously.
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("pwm: channel path not created after export: %w", err)
	}
	return nil
}

var sysfsRetryWindow = 2 * time.Second

// writeSysfs writes value to a sysfs attribute.
// Freshly exported attributes can briefly reject opens with EACCES/ENOENT
// until udev fixes permissions, so those errors are retried.
func writeSysfs(path, value string) error {
	deadline := time.Now().Add(sysfsRetryWindow)
	for {
		err := writeOnce(path, value)
		if err == nil {
			return nil
		}
		if time.Now().Before(deadline) && isRetryable(err) {
			time.Sleep(25 * time.Millisecond)
			continue
		}
		return err
	}
}

func writeOnce(path, value string) error {
	// No O_TRUNC/O_CREAT: some attributes reject them.
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return &os.PathError{Op: "open", Path: path, Err: err}
	}
	_, werr := unix.Write(fd, []byte(value))
	cerr := unix.Close(fd)
	if werr != nil {
		return &os.PathError{Op: "write", Path: path, Err: werr}
	}
	if cerr != nil {
		return &os.PathError{Op: "close", Path: path, Err: cerr}
	}
	return nil
}

func isRetryable(err error) bool {
	return errors.Is(err, unix.EACCES) || errors.Is(err, unix.EPERM) || errors.Is(err, unix.ENOENT)
}
