// Package sampler advances fractional read positions through SoundFont
// sample data. One Layer corresponds to one zone of a playing voice: it owns
// a playback cursor, a pitch-derived rate, an interpolation mode and a
// crossfade weight, and produces one raw audio sample per call.
package sampler

import (
	"math"

	"github.com/spetrequin/awe-synth-go/internal/sf2"
)

// Interpolation selects the read kernel. Linear is the default; Cubic trades
// CPU for smoother resampling. Switching modes needs no reallocation.
type Interpolation int

const (
	Linear Interpolation = iota
	Cubic
)

// Layer plays one sample at a pitch-shifted rate with loop handling.
type Layer struct {
	sample    *sf2.Sample
	pos       float64
	rate      float64
	interp    Interpolation
	loopMode  sf2.LoopMode
	loopStart float64
	loopEnd   float64
	weight    float32
	playing   bool
	releasing bool
}

// Config carries everything needed to build a layer for a triggered note.
type Config struct {
	Sample *sf2.Sample
	Zone   *sf2.Zone // optional; supplies tuning and loop generators
	Note   int
	Weight float32
	Interp Interpolation

	// EngineRate is the output sample rate the layer resamples into.
	EngineRate float64
}

// New builds a playing layer. The playback rate follows the EMU8000 pitch
// formula: nativeRate/engineRate scaled by 2^(semitones/12), where the
// semitone distance includes the zone's coarse/fine tuning and the sample's
// pitch correction.
func New(cfg Config) Layer {
	s := cfg.Sample
	rootKey := s.OriginalPitch
	loopMode := sf2.LoopNone
	loopStart := float64(s.LoopStart)
	loopEnd := float64(s.LoopEnd)
	semis := float64(cfg.Note - rootKey)

	if z := cfg.Zone; z != nil {
		if z.RootKey >= 0 {
			rootKey = z.RootKey
			semis = float64(cfg.Note - rootKey)
		}
		semis += float64(z.CoarseTune) + float64(z.FineTune)/100
		loopMode = z.Loop
		loopStart += float64(z.LoopStartOffset)
		loopEnd += float64(z.LoopEndOffset)
	}
	semis += float64(s.PitchCorrection) / 100

	n := float64(len(s.Data))
	loopStart = clampF(loopStart, 0, n)
	loopEnd = clampF(loopEnd, 0, n)
	if loopEnd-loopStart < 1 {
		loopEnd = loopStart + 1
		if loopEnd > n {
			loopEnd = n
			loopStart = math.Max(0, n-1)
		}
	}

	rate := 1.0
	if cfg.EngineRate > 0 {
		rate = s.SampleRate / cfg.EngineRate * math.Pow(2, semis/12)
	}

	return Layer{
		sample:    s,
		rate:      rate,
		interp:    cfg.Interp,
		loopMode:  loopMode,
		loopStart: loopStart,
		loopEnd:   loopEnd,
		weight:    clampF32(cfg.Weight, 0, 1),
		playing:   len(s.Data) > 0,
	}
}

// Weight returns the layer's crossfade weight.
func (l *Layer) Weight() float32 { return l.weight }

// Playing reports whether the layer still produces audio.
func (l *Layer) Playing() bool { return l.playing }

// Position returns the current fractional read position, for diagnostics and
// tests.
func (l *Layer) Position() float64 { return l.pos }

// Rate returns the per-sample position increment.
func (l *Layer) Rate() float64 { return l.rate }

// SetInterpolation switches the read kernel in place.
func (l *Layer) SetInterpolation(m Interpolation) { l.interp = m }

// EnterRelease tells the layer the owning voice's envelope entered Release.
// Until-release loops stop wrapping from that point on.
func (l *Layer) EnterRelease() { l.releasing = true }

// looping reports whether the cursor should wrap at the loop end right now.
func (l *Layer) looping() bool {
	switch l.loopMode {
	case sf2.LoopContinuous, sf2.LoopDuringRelease:
		return true
	case sf2.LoopUntilRelease:
		return !l.releasing
	default:
		return false
	}
}

// ReadAndAdvance returns the interpolated sample at the current position,
// then moves the cursor forward by the playback rate scaled by rateMul
// (pitch modulation; 1 means no modulation). Output stays within [-1, 1].
func (l *Layer) ReadAndAdvance(rateMul float64) float32 {
	if !l.playing {
		return 0
	}
	out := l.read() * l.weight

	l.pos += l.rate * rateMul
	if l.looping() {
		// Carry the fractional overshoot into the loop body so the wrap
		// is phase-continuous.
		for l.pos >= l.loopEnd {
			l.pos = l.loopStart + (l.pos - l.loopEnd)
		}
	} else if l.pos >= float64(len(l.sample.Data)) {
		l.playing = false
	}
	return out
}

func (l *Layer) read() float32 {
	data := l.sample.Data
	n := len(data)
	idx := int(l.pos)
	if idx >= n {
		return 0
	}
	frac := float32(l.pos - float64(idx))

	var v float32
	switch l.interp {
	case Cubic:
		v = cubicRead(data, idx, frac)
	default:
		next := idx + 1
		if next >= n {
			next = idx
		}
		v = data[idx]*(1-frac) + data[next]*frac
	}
	return clampF32(v, -1, 1)
}

// cubicRead is a four-point Catmull-Rom kernel with edge clamping.
func cubicRead(data []float32, idx int, frac float32) float32 {
	n := len(data)
	at := func(i int) float32 {
		if i < 0 {
			i = 0
		}
		if i >= n {
			i = n - 1
		}
		return data[i]
	}
	p0 := at(idx - 1)
	p1 := at(idx)
	p2 := at(idx + 1)
	p3 := at(idx + 2)

	t := frac
	t2 := t * t
	t3 := t2 * t
	return 0.5 * ((2 * p1) +
		(-p0+p2)*t +
		(2*p0-5*p1+4*p2-p3)*t2 +
		(-p0+3*p1-3*p2+p3)*t3)
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampF32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
