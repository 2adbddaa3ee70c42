// Package lfo provides the EMU8000's low-frequency modulators. The hardware
// runs two triangle LFOs per channel (LFO1 tremolo/filter, LFO2 vibrato);
// here a single shared oscillator per role modulates the whole voice pool.
package lfo

import "math"

// Shape selects the oscillator waveform.
type Shape int

const (
	Triangle Shape = iota
	Sine
)

// LFO produces one modulation value per output sample in [-depth, +depth].
// Depth units depend on the role: semitones for vibrato, a gain offset for
// tremolo.
type LFO struct {
	depth float64
	freq  float64
	shape Shape
	phase float64 // [0, 1)
}

// Set configures depth, rate and shape in one call.
func (l *LFO) Set(depth, freqHz float64, shape Shape) {
	l.depth = depth
	l.freq = freqHz
	l.shape = shape
}

// Active reports whether the LFO produces non-zero modulation.
func (l *LFO) Active() bool { return l.depth != 0 && l.freq != 0 }

// Reset rewinds the phase to zero.
func (l *LFO) Reset() { l.phase = 0 }

// Sample advances one output sample and returns the modulation value.
func (l *LFO) Sample(sampleRate float64) float64 {
	if !l.Active() || sampleRate <= 0 {
		return 0
	}
	var v float64
	switch l.shape {
	case Sine:
		v = math.Sin(2 * math.Pi * l.phase)
	default: // Triangle
		if l.phase < 0.5 {
			v = 4*l.phase - 1
		} else {
			v = 3 - 4*l.phase
		}
	}
	l.phase += l.freq / sampleRate
	for l.phase >= 1 {
		l.phase--
	}
	return v * l.depth
}
