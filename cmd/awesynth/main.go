// Command awesynth plays notes through the SoundFont synthesizer, either in
// realtime or rendered offline to a WAV file.
//
//	awesynth -sf2 bank.sf2 -preset 0:0 -notes 60,64,67 -duration 2
//	awesynth -notes 69 -wav a440.wav
package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	awesynth "github.com/spetrequin/awe-synth-go"
)

func main() {
	var (
		sampleRate = flag.Int("sample-rate", 44100, "output sample rate")
		sf2Path    = flag.String("sf2", "", "path to a SoundFont 2 file (empty = sine fallback)")
		preset     = flag.String("preset", "0:0", "bank:program to select")
		notes      = flag.String("notes", "60,64,67", "comma-separated MIDI notes to play as a chord")
		velocity   = flag.Int("velocity", 100, "note velocity (1-127)")
		duration   = flag.Float64("duration", 2, "hold time in seconds")
		wavPath    = flag.String("wav", "", "render offline to this WAV file instead of playing")
		interp     = flag.String("interp", "linear", "resampling kernel: linear|cubic")
		strategy   = flag.String("strategy", "all", "zone selection: all|first|roundrobin|random|priority")
		reverb     = flag.Float64("reverb", 0, "reverb send (0-1)")
		chorus     = flag.Float64("chorus", 0, "chorus send (0-1)")
		gain       = flag.Float64("gain", 1, "master gain")
	)
	flag.Parse()

	noteList, err := parseNotes(*notes)
	if err != nil {
		log.Fatal(err)
	}
	ip, err := parseInterpolation(*interp)
	if err != nil {
		log.Fatal(err)
	}
	st, err := parseStrategy(*strategy)
	if err != nil {
		log.Fatal(err)
	}

	synth, err := awesynth.New(*sampleRate,
		awesynth.WithInterpolation(ip),
		awesynth.WithZoneStrategy(st),
		awesynth.WithMasterGain(*gain),
	)
	if err != nil {
		log.Fatal(err)
	}
	if *sf2Path != "" {
		if err := synth.LoadSoundFont(*sf2Path); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("loaded %q\n", synth.SoundFontName())
	}
	bank, program, err := parsePreset(*preset)
	if err != nil {
		log.Fatal(err)
	}
	if err := synth.SelectPreset(bank, program); err != nil {
		log.Fatal(err)
	}
	synth.SetReverbSend(*reverb)
	synth.SetChorusSend(*chorus)

	if *wavPath != "" {
		renderOffline(synth, noteList, *velocity, *duration, *wavPath, *sampleRate)
		return
	}
	playRealtime(synth, noteList, *velocity, *duration)
}

func renderOffline(synth *awesynth.Synthesizer, notes []int, velocity int, duration float64, path string, sampleRate int) {
	for _, n := range notes {
		synth.NoteOn(n, velocity)
	}
	out := synth.RenderSamples(duration)
	for _, n := range notes {
		synth.NoteOff(n)
	}
	// Render the release tail until the pool drains.
	for synth.ActiveVoiceCount() > 0 {
		out = append(out, synth.RenderSamples(0.1)...)
	}
	if err := awesynth.WriteWAV(path, out, sampleRate); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("wrote %s (%.2fs)\n", path, float64(len(out)/2)/float64(sampleRate))
}

func playRealtime(synth *awesynth.Synthesizer, notes []int, velocity int, duration float64) {
	if err := synth.Play(); err != nil {
		log.Fatal(err)
	}
	for _, n := range notes {
		synth.NoteOn(n, velocity)
	}
	time.Sleep(time.Duration(duration * float64(time.Second)))
	for _, n := range notes {
		synth.NoteOff(n)
	}
	for synth.ActiveVoiceCount() > 0 {
		time.Sleep(50 * time.Millisecond)
	}
	if err := synth.Stop(); err != nil {
		log.Fatal(err)
	}
}

func parseNotes(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid note %q", part)
		}
		if n < 0 || n > 127 {
			return nil, fmt.Errorf("note %d out of MIDI range", n)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no notes in %q", s)
	}
	return out, nil
}

func parsePreset(s string) (int, int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid -preset %q (expected bank:program)", s)
	}
	bank, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid bank in %q", s)
	}
	program, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid program in %q", s)
	}
	return bank, program, nil
}

func parseInterpolation(name string) (awesynth.Interpolation, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "linear":
		return awesynth.InterpolationLinear, nil
	case "cubic":
		return awesynth.InterpolationCubic, nil
	default:
		return 0, fmt.Errorf("invalid -interp %q (expected linear|cubic)", name)
	}
}

func parseStrategy(name string) (awesynth.ZoneStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "all":
		return awesynth.StrategyAllMatching, nil
	case "first":
		return awesynth.StrategyFirstMatch, nil
	case "roundrobin", "rr":
		return awesynth.StrategyRoundRobin, nil
	case "random":
		return awesynth.StrategyRandom, nil
	case "priority":
		return awesynth.StrategyPriority, nil
	default:
		return 0, fmt.Errorf("invalid -strategy %q (expected all|first|roundrobin|random|priority)", name)
	}
}
