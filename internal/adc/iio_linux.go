//go:build linux

package adc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// DefaultIIODevice is the first IIO device, typically an ADS1015/MCP3008 on a Pi hat.
const DefaultIIODevice = "/sys/bus/iio/devices/iio:device0"

// IIOSampler reads in_voltage<N>_raw attributes of a Linux IIO device.
// Each armed channel keeps its attribute open and is re-read with pread,
// which avoids an open/close per poll.
type IIOSampler struct {
	dir   string
	scale int
	fds   map[int]int
	buf   [16]byte
}

// NewIIOSampler creates a sampler for the IIO device at dir whose raw
// readings span [0, fullScale].
func NewIIOSampler(dir string, fullScale int) (*IIOSampler, error) {
	if fullScale <= 0 {
		return nil, fmt.Errorf("adc: invalid full scale %d", fullScale)
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("adc: %w", err)
	}
	return &IIOSampler{
		dir:   dir,
		scale: fullScale,
		fds:   make(map[int]int),
	}, nil
}

func (s *IIOSampler) attr(channel int) string {
	return filepath.Join(s.dir, fmt.Sprintf("in_voltage%d_raw", channel))
}

// Arm opens the channel's raw attribute.
func (s *IIOSampler) Arm(channel int) error {
	if _, ok := s.fds[channel]; ok {
		return nil
	}
	path := s.attr(channel)
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("adc: open %s: %w", path, err)
	}
	s.fds[channel] = fd
	return nil
}

// Read samples channel. Unarmed channels are armed on first use.
func (s *IIOSampler) Read(channel int) (int, error) {
	fd, ok := s.fds[channel]
	if !ok {
		if err := s.Arm(channel); err != nil {
			return 0, err
		}
		fd = s.fds[channel]
	}

	n, err := unix.Pread(fd, s.buf[:], 0)
	if err != nil {
		return 0, fmt.Errorf("adc: read channel %d: %w", channel, err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(s.buf[:n])))
	if err != nil {
		return 0, fmt.Errorf("adc: parse channel %d: %w", channel, err)
	}
	if v < 0 {
		v = 0
	}
	if v > s.scale {
		v = s.scale
	}
	return v, nil
}

// FullScale returns the configured full-scale reading.
func (s *IIOSampler) FullScale() int {
	return s.scale
}

// Close releases all open attributes.
func (s *IIOSampler) Close() error {
	var errs []error
	for ch, fd := range s.fds {
		if err := unix.Close(fd); err != nil {
			errs = append(errs, fmt.Errorf("adc: close channel %d: %w", ch, err))
		}
		delete(s.fds, ch)
	}
	return errors.Join(errs...)
}
