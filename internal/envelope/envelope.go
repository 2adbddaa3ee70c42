// Package envelope implements the EMU8000 six-stage DAHDSR volume envelope.
// Stage timings arrive in timecents and the sustain level in centibels, the
// units the hardware registers use; both are converted once at construction.
package envelope

import "math"

// Stage identifies the current envelope state. Off is both the initial and
// the terminal state.
type Stage int

const (
	StageOff Stage = iota
	StageDelay
	StageAttack
	StageHold
	StageDecay
	StageSustain
	StageRelease
)

func (s Stage) String() string {
	switch s {
	case StageOff:
		return "off"
	case StageDelay:
		return "delay"
	case StageAttack:
		return "attack"
	case StageHold:
		return "hold"
	case StageDecay:
		return "decay"
	case StageSustain:
		return "sustain"
	case StageRelease:
		return "release"
	}
	return "unknown"
}

// Hardware register limits. Values outside are clamped, never rejected.
const (
	minTimecents = -12000 // 2^-10 s, about 1 ms
	maxTimecents = 8000   // about 101 s
	minCentibels = 0
	maxCentibels = 1440
)

// levelFloor is the release cutoff: once the level decays below it the
// envelope pins to exactly 0 and turns Off.
const levelFloor = 1e-4

// decaySlope shapes the decay and release curves. exp(-decaySlope) ~= 1e-3,
// so a stage spans roughly 60 dB over its configured duration.
const decaySlope = 6.91

// Params holds raw generator values for one envelope.
type Params struct {
	DelayTimecents   int
	AttackTimecents  int
	HoldTimecents    int
	DecayTimecents   int
	SustainCentibels int
	ReleaseTimecents int
}

// TimecentsToSeconds converts a timecent value to seconds: 2^(tc/1200).
// Input is clamped to the hardware range.
func TimecentsToSeconds(tc int) float64 {
	tc = clampInt(tc, minTimecents, maxTimecents)
	return math.Pow(2, float64(tc)/1200)
}

// TimecentsToSamples converts a timecent duration to a whole sample count at
// the given rate.
func TimecentsToSamples(tc int, sampleRate float64) int {
	return int(math.Round(TimecentsToSeconds(tc) * sampleRate))
}

// CentibelsToLinear converts a centibel attenuation to linear gain:
// 10^(-cb/200). 0 cb is unity, 1440 cb is effectively silence.
func CentibelsToLinear(cb int) float32 {
	cb = clampInt(cb, minCentibels, maxCentibels)
	g := math.Pow(10, -float64(cb)/200)
	if g > 1 {
		g = 1
	}
	if g < 0 {
		g = 0
	}
	return float32(g)
}

// Envelope is a per-voice amplitude state machine producing one level sample
// per Process call. Levels are always in [0, 1] and derived purely from the
// stage counter, so identical triggers replay identical sequences.
type Envelope struct {
	stage   Stage
	counter int
	level   float32

	delaySamples   int
	attackSamples  int
	holdSamples    int
	decaySamples   int
	releaseSamples int
	sustainLevel   float32

	releaseFrom float32
}

// New builds an envelope for the given sample rate. Out-of-range parameters
// are clamped to hardware bounds.
func New(sampleRate float64, p Params) *Envelope {
	return &Envelope{
		delaySamples:   TimecentsToSamples(p.DelayTimecents, sampleRate),
		attackSamples:  TimecentsToSamples(p.AttackTimecents, sampleRate),
		holdSamples:    TimecentsToSamples(p.HoldTimecents, sampleRate),
		decaySamples:   TimecentsToSamples(p.DecayTimecents, sampleRate),
		releaseSamples: TimecentsToSamples(p.ReleaseTimecents, sampleRate),
		sustainLevel:   CentibelsToLinear(p.SustainCentibels),
	}
}

// Trigger resets the envelope to the start of the Delay stage. A zero-length
// delay is skipped on the next Process call.
func (e *Envelope) Trigger() {
	e.stage = StageDelay
	e.counter = 0
	e.level = 0
	e.releaseFrom = 0
}

// Release forces the transition to the Release stage from any non-Off state.
// The current level becomes the release starting point, so the output never
// jumps upward.
func (e *Envelope) Release() {
	if e.stage == StageOff || e.stage == StageRelease {
		return
	}
	e.releaseFrom = e.level
	e.counter = 0
	e.stage = StageRelease
}

// Stage returns the current state.
func (e *Envelope) Stage() Stage { return e.stage }

// Level returns the most recently computed output level.
func (e *Envelope) Level() float32 { return e.level }

// Active reports whether the envelope is still producing a non-terminal
// level.
func (e *Envelope) Active() bool { return e.stage != StageOff }

// Process advances the envelope by one sample and returns the new level.
func (e *Envelope) Process() float32 {
	// Zero-length stages collapse immediately so the fastest hardware
	// settings behave as instantaneous transitions.
	for {
		switch e.stage {
		case StageDelay:
			if e.delaySamples == 0 {
				e.stage = StageAttack
				e.counter = 0
				continue
			}
		case StageAttack:
			if e.attackSamples == 0 {
				e.level = 1
				e.stage = StageHold
				e.counter = 0
				continue
			}
		case StageHold:
			if e.holdSamples == 0 {
				e.stage = StageDecay
				e.counter = 0
				continue
			}
		case StageDecay:
			if e.decaySamples == 0 {
				e.level = e.sustainLevel
				e.stage = StageSustain
				e.counter = 0
				continue
			}
		}
		break
	}

	switch e.stage {
	case StageOff:
		e.level = 0

	case StageDelay:
		e.level = 0
		e.counter++
		if e.counter >= e.delaySamples {
			e.stage = StageAttack
			e.counter = 0
		}

	case StageAttack:
		e.counter++
		t := float64(e.counter) / float64(e.attackSamples)
		// Convex curve: the later part of the attack carries most of the
		// amplitude change, matching the hardware's ramp shape.
		e.level = float32(t * t)
		if e.counter >= e.attackSamples {
			e.level = 1
			e.stage = StageHold
			e.counter = 0
		}

	case StageHold:
		e.level = 1
		e.counter++
		if e.counter >= e.holdSamples {
			e.stage = StageDecay
			e.counter = 0
		}

	case StageDecay:
		e.counter++
		t := float64(e.counter) / float64(e.decaySamples)
		// Exponential approach toward the sustain level: steepest at the
		// start of the stage.
		span := 1 - float64(e.sustainLevel)
		e.level = e.sustainLevel + float32(span*math.Exp(-decaySlope*t))
		if e.counter >= e.decaySamples || e.level <= e.sustainLevel {
			e.level = e.sustainLevel
			e.stage = StageSustain
			e.counter = 0
		}

	case StageSustain:
		e.level = e.sustainLevel

	case StageRelease:
		e.counter++
		if e.releaseSamples == 0 {
			e.level = 0
		} else {
			t := float64(e.counter) / float64(e.releaseSamples)
			e.level = e.releaseFrom * float32(math.Exp(-decaySlope*t))
		}
		if e.level <= levelFloor || e.counter >= e.releaseSamples {
			e.level = 0
			e.stage = StageOff
		}
	}

	if e.level < 0 {
		e.level = 0
	}
	if e.level > 1 {
		e.level = 1
	}
	return e.level
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
