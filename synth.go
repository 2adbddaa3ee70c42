// Package awesynth is a SoundFont wavetable synthesizer modeled on the
// EMU8000: a fixed pool of 32 voices, six-stage amplitude envelopes,
// velocity-crossfaded multi-zone layering and reverb/chorus send buses.
// Feed it MIDI (decoded calls or raw bytes) and pull stereo float32 audio,
// either in realtime through Play or offline through RenderSamples.
package awesynth

import (
	"errors"
	"io"
	"sync"
	"time"

	intaudio "github.com/spetrequin/awe-synth-go/internal/audio"
	intfx "github.com/spetrequin/awe-synth-go/internal/effects"
	intengine "github.com/spetrequin/awe-synth-go/internal/engine"
	intmidi "github.com/spetrequin/awe-synth-go/internal/midi"
	intsampler "github.com/spetrequin/awe-synth-go/internal/sampler"
	intsf2 "github.com/spetrequin/awe-synth-go/internal/sf2"
	intzone "github.com/spetrequin/awe-synth-go/internal/zone"
)

// Interpolation selects the resampling kernel.
type Interpolation = intsampler.Interpolation

// Interpolation kernels for sample playback.
const (
	InterpolationLinear = intsampler.Linear
	InterpolationCubic  = intsampler.Cubic
)

// ZoneStrategy selects how overlapping zones are resolved.
type ZoneStrategy = intzone.Strategy

// Zone selection strategies.
const (
	StrategyAllMatching = intzone.AllMatching
	StrategyFirstMatch  = intzone.FirstMatch
	StrategyRoundRobin  = intzone.RoundRobin
	StrategyRandom      = intzone.Random
	StrategyPriority    = intzone.Priority
)

// VoiceInfo is a diagnostic snapshot of one sounding voice.
type VoiceInfo = intengine.VoiceInfo

// PoolSize is the fixed voice count.
const PoolSize = intengine.PoolSize

type Option func(*synthConfig)

type synthConfig struct {
	interp     intsampler.Interpolation
	strategy   intzone.Strategy
	multiZone  bool
	masterGain float64
	sampleTap  func([]float32)
}

func defaultSynthConfig() synthConfig {
	return synthConfig{
		interp:     intsampler.Linear,
		strategy:   intzone.AllMatching,
		multiZone:  true,
		masterGain: 1,
	}
}

// WithInterpolation selects the resampling kernel.
func WithInterpolation(ip Interpolation) Option {
	return func(cfg *synthConfig) { cfg.interp = ip }
}

// WithZoneStrategy selects how overlapping zones are resolved.
func WithZoneStrategy(st ZoneStrategy) Option {
	return func(cfg *synthConfig) { cfg.strategy = st }
}

// WithMultiZone enables or disables velocity-crossfaded layering.
func WithMultiZone(enabled bool) Option {
	return func(cfg *synthConfig) { cfg.multiZone = enabled }
}

// WithMasterGain sets the initial output gain.
func WithMasterGain(gain float64) Option {
	return func(cfg *synthConfig) { cfg.masterGain = gain }
}

// WithSampleTap installs a callback invoked with each rendered stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) Option {
	return func(cfg *synthConfig) { cfg.sampleTap = tap }
}

// Synthesizer is the top-level instrument. All methods are safe for
// concurrent use; rendering and note dispatch serialize on one mutex.
type Synthesizer struct {
	mu         sync.Mutex
	sampleRate int
	engine     *intengine.Manager
	bus        *intfx.Bus
	router     *intmidi.Router
	audio      *intaudio.Player
	bank       int
	sampleTap  func([]float32)
}

// New builds a synthesizer for the given output rate. Without a SoundFont it
// plays a sine fallback so notes are always audible.
func New(sampleRate int, opts ...Option) (*Synthesizer, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultSynthConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Synthesizer{
		sampleRate: sampleRate,
		engine:     intengine.NewManager(sampleRate),
		bus:        intfx.NewBus(sampleRate),
		sampleTap:  cfg.sampleTap,
	}
	s.engine.SetInterpolation(cfg.interp)
	s.engine.SetStrategy(cfg.strategy)
	s.engine.SetMultiZone(cfg.multiZone)
	s.engine.SetMasterGain(cfg.masterGain)
	s.router = intmidi.NewRouter(&sinkAdapter{s})
	return s, nil
}

// SampleRate returns the output rate the synthesizer renders at.
func (s *Synthesizer) SampleRate() int { return s.sampleRate }

// LoadSoundFont loads an SF2 file and makes it the active bank.
func (s *Synthesizer) LoadSoundFont(path string) error {
	font, err := intsf2.Load(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.LoadSoundFont(font)
	return nil
}

// LoadSoundFontFrom parses SF2 data from a reader.
func (s *Synthesizer) LoadSoundFontFrom(r io.Reader) error {
	font, err := intsf2.Parse(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.LoadSoundFont(font)
	return nil
}

// SoundFontName returns the INAM of the loaded bank, or "" without one.
func (s *Synthesizer) SoundFontName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f := s.engine.SoundFont(); f != nil {
		return f.Name
	}
	return ""
}

// SelectPreset switches the active bank/program.
func (s *Synthesizer) SelectPreset(bank, program int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.engine.SelectPreset(bank, program); err != nil {
		return err
	}
	s.bank = bank
	return nil
}

// NoteOn starts a note on channel 0. Velocity 0 is a note-off.
func (s *Synthesizer) NoteOn(note, velocity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if velocity == 0 {
		s.engine.NoteOff(note)
		return
	}
	s.engine.NoteOn(note, velocity)
}

// NoteOnChannel starts a note on a specific MIDI channel.
func (s *Synthesizer) NoteOnChannel(channel, note, velocity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if velocity == 0 {
		s.engine.NoteOff(note)
		return
	}
	s.engine.NoteOnChannel(channel, note, velocity)
}

// NoteOff releases every voice playing the note.
func (s *Synthesizer) NoteOff(note int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.NoteOff(note)
}

// ControlChange applies a MIDI controller change. CC 91/93 drive the reverb
// and chorus sends, CC 7 the master volume, CC 1 vibrato depth, CC 120/123
// all-sound-off and all-notes-off. Other controllers are ignored.
func (s *Synthesizer) ControlChange(channel, controller, value int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controlChangeLocked(channel, controller, value)
}

// HandleMIDI consumes raw MIDI bytes, running status included.
func (s *Synthesizer) HandleMIDI(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.router.HandleMessage(data)
}

func (s *Synthesizer) controlChangeLocked(channel, controller, value int) {
	switch controller {
	case intmidi.CCModWheel:
		s.engine.SetVibrato(0.5*intmidi.ValueToFloat(value), 5)
	case intmidi.CCVolume:
		s.engine.SetMasterGain(intmidi.ValueToFloat(value))
	case intmidi.CCReverbSend:
		s.bus.SetReverbSend(float32(intmidi.ValueToFloat(value)))
	case intmidi.CCChorusSend:
		s.bus.SetChorusSend(float32(intmidi.ValueToFloat(value)))
	case intmidi.CCAllSoundOff:
		s.engine.Silence()
		s.bus.Reset()
	case intmidi.CCAllNotesOff:
		s.engine.ReleaseAll()
	}
}

// sinkAdapter feeds router-decoded messages back into the synthesizer. The
// router only runs under s.mu (see HandleMIDI), so these skip the lock.
type sinkAdapter struct{ s *Synthesizer }

func (a *sinkAdapter) NoteOn(channel, note, velocity int) {
	a.s.engine.NoteOnChannel(channel, note, velocity)
}

func (a *sinkAdapter) NoteOff(channel, note int) {
	a.s.engine.NoteOff(note)
}

func (a *sinkAdapter) ControlChange(channel, controller, value int) {
	a.s.controlChangeLocked(channel, controller, value)
}

func (a *sinkAdapter) ProgramChange(channel, program int) {
	// Missing presets keep the previous selection; there is nowhere to
	// report the error on the wire path.
	_ = a.s.engine.SelectPreset(a.s.bank, program)
}

func (a *sinkAdapter) PitchBend(channel, value int) {
	a.s.engine.SetPitchBend(float64(value) / 8192 * 2) // +/- 2 semitones
}

// Process renders one stereo frame.
func (s *Synthesizer) Process() (float32, float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bus.Process(s.engine.Process())
}

// ProcessEnvelopes advances all envelopes one sample without rendering audio
// and returns the count still active.
func (s *Synthesizer) ProcessEnvelopes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.ProcessEnvelopes()
}

// Render fills dst with interleaved stereo frames. Implements the sample
// source the realtime player pulls from.
func (s *Synthesizer) Render(dst []float32) {
	s.mu.Lock()
	for i := 0; i+1 < len(dst); i += 2 {
		dst[i], dst[i+1] = s.bus.Process(s.engine.Process())
	}
	tap := s.sampleTap
	s.mu.Unlock()
	if tap != nil {
		tap(dst)
	}
}

// EnableMultiZone turns velocity-crossfaded layering on.
func (s *Synthesizer) EnableMultiZone() { s.setMultiZone(true) }

// DisableMultiZone restricts each note to its first matching zone.
func (s *Synthesizer) DisableMultiZone() { s.setMultiZone(false) }

func (s *Synthesizer) setMultiZone(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.SetMultiZone(on)
}

// SetZoneSelectionStrategy switches overlapping-zone resolution immediately.
func (s *Synthesizer) SetZoneSelectionStrategy(st ZoneStrategy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.SetStrategy(st)
}

// ZoneSelectionStrategy returns the active strategy.
func (s *Synthesizer) ZoneSelectionStrategy() ZoneStrategy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Strategy()
}

// SetInterpolation switches the resampling kernel, active voices included.
func (s *Synthesizer) SetInterpolation(ip Interpolation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.SetInterpolation(ip)
}

// SetMasterGain scales the final output. Safe from any goroutine.
func (s *Synthesizer) SetMasterGain(gain float64) {
	s.engine.SetMasterGain(gain)
}

// SetVibrato configures the pitch LFO. Depth is in semitones.
func (s *Synthesizer) SetVibrato(depthSemis, rateHz float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.SetVibrato(depthSemis, rateHz)
}

// SetTremolo configures the amplitude LFO. Depth is a 0..1 gain offset.
func (s *Synthesizer) SetTremolo(depth, rateHz float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.SetTremolo(depth, rateHz)
}

// SetReverbSend sets the reverb send (0..1) directly, bypassing MIDI.
func (s *Synthesizer) SetReverbSend(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bus.SetReverbSend(float32(v))
}

// SetChorusSend sets the chorus send (0..1) directly, bypassing MIDI.
func (s *Synthesizer) SetChorusSend(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bus.SetChorusSend(float32(v))
}

// ActiveVoiceCount returns the number of voices currently sounding.
func (s *Synthesizer) ActiveVoiceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.ActiveVoiceCount()
}

// Voices returns diagnostics for every sounding voice.
func (s *Synthesizer) Voices() []VoiceInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Snapshot()
}

// Play opens the realtime output stream and starts it. Idempotent while a
// stream is open.
func (s *Synthesizer) Play() error {
	s.mu.Lock()
	if s.audio != nil {
		audio := s.audio
		s.mu.Unlock()
		audio.Play()
		return nil
	}
	s.mu.Unlock()

	// The player pulls Render on its own goroutine, so it is created
	// outside the lock.
	backend, err := intaudio.NewPlayer(s.sampleRate, s)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.audio = backend
	s.mu.Unlock()
	backend.Play()
	return nil
}

// Pause suspends the realtime stream without tearing it down.
func (s *Synthesizer) Pause() {
	s.mu.Lock()
	audio := s.audio
	s.mu.Unlock()
	if audio != nil {
		audio.Pause()
	}
}

// Stop closes the realtime stream. Rendering state is untouched; Play opens
// a fresh stream.
func (s *Synthesizer) Stop() error {
	s.mu.Lock()
	audio := s.audio
	s.audio = nil
	s.mu.Unlock()
	if audio == nil {
		return nil
	}
	return audio.Stop()
}

// PlaybackPosition returns the stream position the listener hears, or 0
// when no stream is open.
func (s *Synthesizer) PlaybackPosition() time.Duration {
	s.mu.Lock()
	audio := s.audio
	s.mu.Unlock()
	if audio == nil {
		return 0
	}
	return audio.Position()
}
