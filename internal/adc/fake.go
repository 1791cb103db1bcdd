package adc

import "fmt"

// FakeSampler is a test double that returns scripted readings per channel.
type FakeSampler struct {
	// Samples contains scripted readings per channel.
	// Each call to Read consumes the next one; the last repeats.
	Samples map[int][]int

	// Scale is returned by FullScale.
	Scale int

	// Armed records which channels were armed.
	Armed map[int]bool

	// ReadError, if set, will be returned by Read().
	ReadError error

	// Reads counts Read calls per channel.
	Reads map[int]int

	index map[int]int
}

// NewFakeSampler creates a FakeSampler with the given full scale.
func NewFakeSampler(scale int) *FakeSampler {
	return &FakeSampler{
		Samples: make(map[int][]int),
		Scale:   scale,
		Armed:   make(map[int]bool),
		Reads:   make(map[int]int),
		index:   make(map[int]int),
	}
}

// Script replaces the readings for channel and rewinds it.
func (f *FakeSampler) Script(channel int, readings ...int) {
	f.Samples[channel] = readings
	f.index[channel] = 0
}

// Arm records the channel as armed.
func (f *FakeSampler) Arm(channel int) error {
	f.Armed[channel] = true
	return nil
}

// Read returns the next scripted reading for channel.
func (f *FakeSampler) Read(channel int) (int, error) {
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	samples := f.Samples[channel]
	if len(samples) == 0 {
		return 0, fmt.Errorf("no samples configured for channel %d", channel)
	}
	f.Reads[channel]++

	i := f.index[channel]
	v := samples[i]
	if i < len(samples)-1 {
		f.index[channel] = i + 1
	}
	return v, nil
}

// FullScale returns Scale.
func (f *FakeSampler) FullScale() int {
	return f.Scale
}
