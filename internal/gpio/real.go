//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "servo-idle"

// RealPinMode switches pins on actual hardware using the Linux GPIO character device.
// A pin in Input mode is held as a requested line. Requesting the line
// resets the pad's GPFSEL field to GPIO input, and releasing it does not
// restore the alternate function, so Output releases the line and then
// writes the pin's PWM function back through the GPIO register block.
// This assumes a BCM2835..BCM2711 SoC (Pi 1 to Pi 4) exposing /dev/gpiomem.
type RealPinMode struct {
	chip      *gpiocdev.Chip
	lines     map[int]*gpiocdev.Line
	functions map[int]Function
	mem       *gpioMem
	regs      []uint32
}

// NewRealPinMode opens the named GPIO chip (e.g. "gpiochip0") and, when
// functions is non-empty, maps the register block at memPath
// (e.g. DefaultGPIOMem). functions gives the alternate function each
// servo pin is restored to on Output.
func NewRealPinMode(chipName, memPath string, functions map[int]Function) (*RealPinMode, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}
	r := &RealPinMode{
		chip:      chip,
		lines:     make(map[int]*gpiocdev.Line),
		functions: functions,
	}
	if len(functions) > 0 {
		mem, err := openGPIOMem(memPath)
		if err != nil {
			chip.Close()
			return nil, err
		}
		r.mem = mem
		r.regs = mem.regs
	}
	return r, nil
}

// SetMode switches pin to mode.
func (r *RealPinMode) SetMode(pin int, mode Mode) error {
	switch mode {
	case Input:
		if line, ok := r.lines[pin]; ok {
			if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithBiasDisabled); err != nil {
				return fmt.Errorf("reconfigure pin %d: %w", pin, err)
			}
			return nil
		}
		// Bias disabled so the line floats rather than pulling the servo signal.
		line, err := r.chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithBiasDisabled)
		if err != nil {
			return fmt.Errorf("request pin %d: %w", pin, err)
		}
		r.lines[pin] = line
		return nil

	case Output:
		if line, ok := r.lines[pin]; ok {
			delete(r.lines, pin)
			if err := line.Close(); err != nil {
				return fmt.Errorf("release pin %d: %w", pin, err)
			}
		}
		fn, ok := r.functions[pin]
		if !ok {
			return nil
		}
		if err := setFunction(r.regs, pin, fn); err != nil {
			return fmt.Errorf("restore pin %d to %v: %w", pin, fn, err)
		}
		return nil
	}
	return fmt.Errorf("pin %d: unsupported mode %v", pin, mode)
}

// Close releases GPIO resources.
// Held lines are left as inputs so a powered-down servo stays quiet until
// the next start.
func (r *RealPinMode) Close() error {
	var errs []error

	for pin, line := range r.lines {
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithBiasDisabled); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", pin, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", pin, err))
		}
		delete(r.lines, pin)
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		r.chip = nil
	}
	if r.mem != nil {
		if err := r.mem.Close(); err != nil {
			errs = append(errs, fmt.Errorf("unmap gpio registers: %w", err))
		}
		r.mem, r.regs = nil, nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
