package awesynth

import (
	"math"
	"path/filepath"
	"testing"
)

func TestNewValidatesSampleRate(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Error("zero sample rate should be rejected")
	}
	if _, err := New(-44100); err == nil {
		t.Error("negative sample rate should be rejected")
	}
	s, err := New(44100)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.SampleRate() != 44100 {
		t.Errorf("SampleRate = %d", s.SampleRate())
	}
}

func TestOptionsApply(t *testing.T) {
	s, err := New(44100,
		WithInterpolation(InterpolationCubic),
		WithZoneStrategy(StrategyRoundRobin),
		WithMultiZone(false),
		WithMasterGain(0.5),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := s.ZoneSelectionStrategy(); got != StrategyRoundRobin {
		t.Errorf("strategy = %v, want RoundRobin", got)
	}
}

func TestNoteOnProducesAudio(t *testing.T) {
	s, _ := New(44100)
	s.NoteOn(69, 100)
	var peak float32
	for i := 0; i < 4410; i++ {
		l, r := s.Process()
		if a := float32(math.Abs(float64(l))); a > peak {
			peak = a
		}
		if l != r {
			t.Fatal("dry signal with zero sends must be centered")
		}
	}
	if peak < 0.01 {
		t.Errorf("peak = %f, want audible output", peak)
	}
	if s.ActiveVoiceCount() != 1 {
		t.Errorf("active voices = %d, want 1", s.ActiveVoiceCount())
	}
}

func TestNoteOnVelocityZeroReleases(t *testing.T) {
	s, _ := New(44100)
	s.NoteOn(60, 100)
	s.NoteOn(60, 0)
	for _, v := range s.Voices() {
		if v.Stage != "release" && v.Stage != "off" {
			t.Errorf("velocity-zero note-on left voice in %s", v.Stage)
		}
	}
}

func TestHandleMIDIDrivesEngine(t *testing.T) {
	s, _ := New(44100)
	s.HandleMIDI([]byte{0x90, 60, 100, 64, 90}) // running status chord
	if got := s.ActiveVoiceCount(); got != 2 {
		t.Fatalf("active voices after MIDI chord = %d, want 2", got)
	}
	s.HandleMIDI([]byte{0x80, 60, 0, 64, 0})
	for _, v := range s.Voices() {
		if v.Stage != "release" {
			t.Errorf("voice for note %d in %s, want Release", v.Note, v.Stage)
		}
	}
}

func TestControlChangeReverbSend(t *testing.T) {
	s, _ := New(44100)
	s.ControlChange(0, 91, 127)
	s.NoteOn(60, 100)

	// With a full reverb send, left and right should eventually diverge
	// from the pure dry value (the tail adds onto the direct sound).
	var wet bool
	ref, _ := New(44100)
	ref.NoteOn(60, 100)
	for i := 0; i < 44100; i++ {
		l, _ := s.Process()
		rl, _ := ref.Process()
		if math.Abs(float64(l-rl)) > 1e-4 {
			wet = true
			break
		}
	}
	if !wet {
		t.Error("CC 91 at 127 should add an audible reverb component")
	}
}

func TestAllNotesOffAndAllSoundOff(t *testing.T) {
	s, _ := New(44100)
	for n := 0; n < 8; n++ {
		s.NoteOn(40+n, 100)
	}
	s.ControlChange(0, 123, 0) // all notes off
	for _, v := range s.Voices() {
		if v.Stage != "release" {
			t.Fatalf("all-notes-off left voice in %s", v.Stage)
		}
	}
	s.ControlChange(0, 120, 0) // all sound off
	if got := s.ActiveVoiceCount(); got != 0 {
		t.Errorf("all-sound-off left %d voices active", got)
	}
	l, r := s.Process()
	if l != 0 || r != 0 {
		t.Errorf("output after all-sound-off = %f/%f, want silence", l, r)
	}
}

func TestRenderFillsStereoBuffer(t *testing.T) {
	s, _ := New(44100)
	s.NoteOn(69, 100)
	buf := make([]float32, 2048)
	s.Render(buf)
	var nonZero bool
	for _, v := range buf {
		if v != 0 {
			nonZero = true
		}
		if v < -1 || v > 1 {
			t.Fatalf("rendered sample out of range: %f", v)
		}
	}
	if !nonZero {
		t.Error("render of a sounding note produced silence")
	}
}

func TestSampleTapSeesBuffers(t *testing.T) {
	var taps int
	s, _ := New(44100, WithSampleTap(func(buf []float32) { taps++ }))
	s.Render(make([]float32, 512))
	s.Render(make([]float32, 512))
	if taps != 2 {
		t.Errorf("sample tap ran %d times, want 2", taps)
	}
}

func TestMultiZoneToggle(t *testing.T) {
	s, _ := New(44100)
	s.DisableMultiZone()
	s.EnableMultiZone()
	s.NoteOn(60, 100)
	if got := s.ActiveVoiceCount(); got != 1 {
		t.Errorf("active voices = %d", got)
	}
}

func TestLoadSoundFontMissingFile(t *testing.T) {
	s, _ := New(44100)
	if err := s.LoadSoundFont(filepath.Join(t.TempDir(), "nope.sf2")); err == nil {
		t.Error("loading a missing file should fail")
	}
}

func TestSelectPresetWithoutFont(t *testing.T) {
	s, _ := New(44100)
	if err := s.SelectPreset(0, 24); err != nil {
		t.Errorf("preset selection without a font should be stored, got %v", err)
	}
}

func TestPitchBendViaMIDI(t *testing.T) {
	s, _ := New(44100)
	s.NoteOn(69, 100)
	// Bend fully up (+2 semitones) and count zero crossings; the 440 Hz
	// fallback should land near 494 Hz.
	s.HandleMIDI([]byte{0xE0, 0x7F, 0x7F})
	crossings := 0
	var prev float32
	for i := 0; i < 44100; i++ {
		l, _ := s.Process()
		if prev < 0 && l >= 0 {
			crossings++
		}
		prev = l
	}
	if crossings < 480 || crossings > 505 {
		t.Errorf("bent pitch = %d Hz, want ~494", crossings)
	}
}
