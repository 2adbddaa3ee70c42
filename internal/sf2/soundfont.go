// Package sf2 loads SoundFont 2 instrument banks into an immutable
// Preset -> Instrument -> Zone -> Sample graph. The voice engine only ever
// sees data that passed validation here; it never touches the file format.
package sf2

// LoopMode describes how a zone's sample behaves at its loop points.
type LoopMode int

const (
	LoopNone LoopMode = iota
	LoopContinuous
	LoopUntilRelease
	LoopDuringRelease
)

// Sample is one PCM sample slice from the sdta block. Data is normalized to
// [-1, 1]. Loop points are relative to Data and already clamped so that
// 0 <= LoopStart < LoopEnd <= len(Data).
type Sample struct {
	Name            string
	Data            []float32
	SampleRate      float64
	OriginalPitch   int
	PitchCorrection int // cents
	LoopStart       int
	LoopEnd         int
}

// EnvelopeTimes carries the volume-envelope generators attached to a zone,
// in SoundFont units (timecents for durations, centibels for sustain).
type EnvelopeTimes struct {
	DelayTC   int
	AttackTC  int
	HoldTC    int
	DecayTC   int
	SustainCB int
	ReleaseTC int
}

// DefaultEnvelopeTimes returns the SF2 generator defaults: every timed stage
// collapsed to its -12000 tc minimum and full sustain.
func DefaultEnvelopeTimes() EnvelopeTimes {
	return EnvelopeTimes{
		DelayTC:   -12000,
		AttackTC:  -12000,
		HoldTC:    -12000,
		DecayTC:   -12000,
		SustainCB: 0,
		ReleaseTC: -12000,
	}
}

// Zone binds a sample to a key/velocity window plus tuning and loop
// generators. Ranges are inclusive.
type Zone struct {
	KeyLow, KeyHigh int
	VelLow, VelHigh int
	Sample          *Sample
	Loop            LoopMode
	RootKey         int // -1 = use Sample.OriginalPitch
	FineTune        int // cents
	CoarseTune      int // semitones
	LoopStartOffset int // samples, fine + 32768*coarse already combined
	LoopEndOffset   int
	Envelope        EnvelopeTimes
}

// Matches reports whether the zone covers the given note and velocity.
func (z *Zone) Matches(note, velocity int) bool {
	return note >= z.KeyLow && note <= z.KeyHigh &&
		velocity >= z.VelLow && velocity <= z.VelHigh
}

// Instrument groups the zones of one SF2 instrument record.
type Instrument struct {
	Name  string
	Zones []*Zone
}

// Preset is a bank/program addressable entry pointing at one or more
// instruments.
type Preset struct {
	Name        string
	Bank        int
	Program     int
	Instruments []*Instrument
}

// SoundFont is the parsed, immutable bank. It is shared by reference across
// all voices for the lifetime of the load and never mutated afterwards.
type SoundFont struct {
	Name        string
	Presets     []*Preset
	Instruments []*Instrument
	Samples     []*Sample
}

// Preset returns the preset for a bank/program pair, or nil when the bank
// does not contain it.
func (f *SoundFont) Preset(bank, program int) *Preset {
	for _, p := range f.Presets {
		if p.Bank == bank && p.Program == program {
			return p
		}
	}
	return nil
}

// clampLoop forces the loop invariants onto a sample after parsing: loop
// points inside [0, len(Data)] and a loop length of at least one sample.
func clampLoop(s *Sample) {
	n := len(s.Data)
	if s.LoopStart < 0 {
		s.LoopStart = 0
	}
	if s.LoopEnd > n {
		s.LoopEnd = n
	}
	if s.LoopEnd <= s.LoopStart {
		s.LoopEnd = s.LoopStart + 1
		if s.LoopEnd > n {
			s.LoopEnd = n
			s.LoopStart = n - 1
			if s.LoopStart < 0 {
				s.LoopStart = 0
			}
		}
	}
}
