// Package zone resolves which sample zones a (note, velocity) pair should
// trigger, and with what crossfade weights. It owns the per-instrument
// round-robin counters but no audio state.
package zone

import (
	"math"
	"math/rand"
	"sort"

	"github.com/spetrequin/awe-synth-go/internal/sf2"
)

// Strategy chooses how overlapping zones are handled.
type Strategy int

const (
	// AllMatching triggers every matching zone, velocity-crossfaded.
	AllMatching Strategy = iota
	// FirstMatch triggers only the first matching zone encountered.
	FirstMatch
	// RoundRobin cycles through the matches across successive selections.
	RoundRobin
	// Random picks one match uniformly.
	Random
	// Priority picks the deterministically best match: narrowest velocity
	// range, ties broken by lower velocity bound, then declaration order.
	Priority
)

func (s Strategy) String() string {
	switch s {
	case AllMatching:
		return "all"
	case FirstMatch:
		return "first"
	case RoundRobin:
		return "round-robin"
	case Random:
		return "random"
	case Priority:
		return "priority"
	}
	return "unknown"
}

// Match is one selected zone with its normalized crossfade weight.
type Match struct {
	Sample         *sf2.Sample
	Zone           *sf2.Zone
	Weight         float32
	PresetName     string
	InstrumentName string
}

// Selector applies the configured strategy to a loaded SoundFont. Strategy
// switches take effect on the next Select call; no reload is needed.
type Selector struct {
	strategy Strategy
	rr       map[string]int
}

func NewSelector() *Selector {
	return &Selector{rr: make(map[string]int)}
}

// SetStrategy switches the selection strategy immediately.
func (s *Selector) SetStrategy(st Strategy) { s.strategy = st }

// Strategy returns the active strategy.
func (s *Selector) Strategy() Strategy { return s.strategy }

// EnableRoundRobin toggles round-robin cycling. Disabling reverts to
// AllMatching.
func (s *Selector) EnableRoundRobin(on bool) {
	if on {
		s.strategy = RoundRobin
	} else {
		s.strategy = AllMatching
	}
}

// ResetRoundRobin clears all per-instrument cycling counters. Counters are
// created lazily and are never cleared implicitly.
func (s *Selector) ResetRoundRobin() {
	s.rr = make(map[string]int)
}

// Select returns the zones that should sound for the note/velocity pair in
// the given preset. A nil font or missing preset yields no matches.
func (s *Selector) Select(font *sf2.SoundFont, bank, program, note, velocity int) []Match {
	if font == nil {
		return nil
	}
	preset := font.Preset(bank, program)
	if preset == nil {
		return nil
	}

	var matches []Match
	for _, inst := range preset.Instruments {
		for _, z := range inst.Zones {
			if !z.Matches(note, velocity) {
				continue
			}
			matches = append(matches, Match{
				Sample:         z.Sample,
				Zone:           z,
				Weight:         crossfadeWeight(velocity, z.VelLow, z.VelHigh),
				PresetName:     preset.Name,
				InstrumentName: inst.Name,
			})
		}
	}
	if len(matches) == 0 {
		return nil
	}

	switch s.strategy {
	case FirstMatch:
		matches = matches[:1]
	case RoundRobin:
		key := matches[0].InstrumentName
		idx := s.rr[key] % len(matches)
		s.rr[key]++
		matches = []Match{matches[idx]}
	case Random:
		matches = []Match{matches[rand.Intn(len(matches))]}
	case Priority:
		sort.SliceStable(matches, func(i, j int) bool {
			si := matches[i].Zone.VelHigh - matches[i].Zone.VelLow
			sj := matches[j].Zone.VelHigh - matches[j].Zone.VelLow
			if si != sj {
				return si < sj
			}
			return matches[i].Zone.VelLow < matches[j].Zone.VelLow
		})
		matches = matches[:1]
	}

	normalize(matches)
	return matches
}

// crossfadeWeight computes a zone's velocity-crossfade contribution. The
// fade width is a quarter of the zone's velocity span; velocities inside the
// fade bands ramp linearly, everything between them gets full weight.
func crossfadeWeight(velocity, low, high int) float32 {
	fade := int(math.Round(0.25 * float64(high-low)))
	if fade <= 0 {
		return 1
	}
	switch {
	case velocity < low+fade:
		return clamp(float32(velocity-low)/float32(fade), 0, 1)
	case velocity > high-fade:
		return clamp(float32(high-velocity)/float32(fade), 0, 1)
	default:
		return 1
	}
}

// normalize rescales weights to sum to 1, guarding against several
// full-weight overlaps stacking above unity.
func normalize(matches []Match) {
	var sum float32
	for i := range matches {
		sum += matches[i].Weight
	}
	if sum <= 0 {
		// Degenerate edge weights: fall back to an equal split.
		w := 1 / float32(len(matches))
		for i := range matches {
			matches[i].Weight = w
		}
		return
	}
	for i := range matches {
		matches[i].Weight /= sum
	}
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
