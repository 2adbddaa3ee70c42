package zone

import (
	"math"
	"testing"

	"github.com/spetrequin/awe-synth-go/internal/sf2"
)

func testFont() *sf2.SoundFont {
	mk := func(name string) *sf2.Sample {
		return &sf2.Sample{
			Name:          name,
			Data:          make([]float32, 100),
			SampleRate:    44100,
			OriginalPitch: 60,
			LoopStart:     0,
			LoopEnd:       100,
		}
	}
	soft, med, loud := mk("soft"), mk("med"), mk("loud")

	inst := &sf2.Instrument{
		Name: "layered",
		Zones: []*sf2.Zone{
			{KeyLow: 0, KeyHigh: 127, VelLow: 0, VelHigh: 80, Sample: soft, RootKey: -1},
			{KeyLow: 0, KeyHigh: 127, VelLow: 40, VelHigh: 110, Sample: med, RootKey: -1},
			{KeyLow: 0, KeyHigh: 127, VelLow: 90, VelHigh: 127, Sample: loud, RootKey: -1},
		},
	}
	preset := &sf2.Preset{Name: "piano", Bank: 0, Program: 0, Instruments: []*sf2.Instrument{inst}}
	return &sf2.SoundFont{
		Name:        "test",
		Presets:     []*sf2.Preset{preset},
		Instruments: []*sf2.Instrument{inst},
		Samples:     []*sf2.Sample{soft, med, loud},
	}
}

func TestCrossfadeWeightInRange(t *testing.T) {
	for _, r := range [][2]int{{0, 127}, {40, 110}, {90, 127}, {64, 64}, {0, 3}} {
		low, high := r[0], r[1]
		for v := low; v <= high; v++ {
			w := crossfadeWeight(v, low, high)
			if w < 0 || w > 1 {
				t.Fatalf("weight out of range: v=%d range=%d..%d w=%f", v, low, high, w)
			}
		}
	}
}

func TestWeightsNormalizeToOne(t *testing.T) {
	s := NewSelector()
	font := testFont()
	for v := 0; v <= 127; v++ {
		matches := s.Select(font, 0, 0, 60, v)
		if len(matches) == 0 {
			t.Fatalf("velocity %d matched no zones", v)
		}
		var sum float64
		for _, m := range matches {
			sum += float64(m.Weight)
		}
		if math.Abs(sum-1.0) > 0.01 {
			t.Fatalf("velocity %d: weights sum to %f", v, sum)
		}
	}
}

func TestOverlapSelectsMultipleZones(t *testing.T) {
	s := NewSelector()
	matches := s.Select(testFont(), 0, 0, 60, 70)
	if len(matches) != 2 {
		t.Fatalf("velocity 70 should match soft+med, got %d matches", len(matches))
	}
}

func TestNilFontSelectsNothing(t *testing.T) {
	s := NewSelector()
	if got := s.Select(nil, 0, 0, 60, 100); got != nil {
		t.Fatalf("nil font should yield no matches, got %d", len(got))
	}
	if got := s.Select(testFont(), 5, 42, 60, 100); got != nil {
		t.Fatalf("missing preset should yield no matches, got %d", len(got))
	}
}

func TestFirstMatchReturnsSingleZone(t *testing.T) {
	s := NewSelector()
	s.SetStrategy(FirstMatch)
	matches := s.Select(testFont(), 0, 0, 60, 70)
	if len(matches) != 1 {
		t.Fatalf("first-match should return 1 zone, got %d", len(matches))
	}
	if matches[0].Sample.Name != "soft" {
		t.Errorf("first match = %q, want soft", matches[0].Sample.Name)
	}
	if matches[0].Weight != 1 {
		t.Errorf("single match weight = %f, want 1", matches[0].Weight)
	}
}

func TestRoundRobinCyclesAndWraps(t *testing.T) {
	s := NewSelector()
	s.SetStrategy(RoundRobin)
	font := testFont()

	var names []string
	for i := 0; i < 4; i++ {
		matches := s.Select(font, 0, 0, 60, 70) // soft + med match
		if len(matches) != 1 {
			t.Fatalf("round-robin should return 1 zone, got %d", len(matches))
		}
		names = append(names, matches[0].Sample.Name)
	}
	want := []string{"soft", "med", "soft", "med"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("round-robin sequence = %v, want %v", names, want)
		}
	}

	// Reset starts the cycle over.
	s.ResetRoundRobin()
	matches := s.Select(font, 0, 0, 60, 70)
	if matches[0].Sample.Name != "soft" {
		t.Errorf("after reset, first selection = %q, want soft", matches[0].Sample.Name)
	}
}

func TestRandomReturnsAMatchingZone(t *testing.T) {
	s := NewSelector()
	s.SetStrategy(Random)
	font := testFont()
	for i := 0; i < 50; i++ {
		matches := s.Select(font, 0, 0, 60, 70)
		if len(matches) != 1 {
			t.Fatalf("random should return 1 zone, got %d", len(matches))
		}
		if n := matches[0].Sample.Name; n != "soft" && n != "med" {
			t.Fatalf("random selected non-matching zone %q", n)
		}
	}
}

func TestPriorityPicksNarrowestVelocityRange(t *testing.T) {
	s := NewSelector()
	s.SetStrategy(Priority)
	// Velocity 95 matches med (40-110, span 70) and loud (90-127, span 37).
	matches := s.Select(testFont(), 0, 0, 60, 95)
	if len(matches) != 1 {
		t.Fatalf("priority should return 1 zone, got %d", len(matches))
	}
	if matches[0].Sample.Name != "loud" {
		t.Errorf("priority selected %q, want loud (narrowest range)", matches[0].Sample.Name)
	}
}

func TestStrategySwitchIsImmediate(t *testing.T) {
	s := NewSelector()
	font := testFont()
	if got := len(s.Select(font, 0, 0, 60, 70)); got != 2 {
		t.Fatalf("all-matching returned %d", got)
	}
	s.SetStrategy(FirstMatch)
	if got := len(s.Select(font, 0, 0, 60, 70)); got != 1 {
		t.Fatalf("first-match after switch returned %d", got)
	}
}

func TestEnableRoundRobinToggle(t *testing.T) {
	s := NewSelector()
	s.EnableRoundRobin(true)
	if s.Strategy() != RoundRobin {
		t.Fatalf("strategy = %v, want round-robin", s.Strategy())
	}
	s.EnableRoundRobin(false)
	if s.Strategy() != AllMatching {
		t.Fatalf("strategy = %v, want all", s.Strategy())
	}
}

func TestDegenerateZeroWidthRange(t *testing.T) {
	// A single-velocity zone has fade 0 and must still weigh 1.
	if w := crossfadeWeight(64, 64, 64); w != 1 {
		t.Errorf("zero-width range weight = %f, want 1", w)
	}
}
