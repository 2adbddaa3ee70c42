// Package engine implements the EMU8000 polyphonic voice pool: 32 fixed
// voice slots, allocation and stealing, note dispatch and the per-sample
// mix-down. One Manager produces one mono sample per Process call; effects
// and panning happen downstream.
package engine

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/spetrequin/awe-synth-go/internal/envelope"
	"github.com/spetrequin/awe-synth-go/internal/lfo"
	"github.com/spetrequin/awe-synth-go/internal/sampler"
	"github.com/spetrequin/awe-synth-go/internal/sf2"
	"github.com/spetrequin/awe-synth-go/internal/zone"
)

// PoolSize is the hardware voice count. The pool never grows or shrinks.
const PoolSize = 32

// fallbackTableLen is the single-cycle sine table used when no SoundFont is
// loaded. The synthetic sample rate is chosen so the table plays at exactly
// 440 Hz for MIDI note 69.
const fallbackTableLen = 64

// Manager owns the fixed voice pool and drives it one sample at a time.
// All methods are single-threaded; the host must not call NoteOn/NoteOff
// concurrently with Process.
type Manager struct {
	sampleRate float64
	voices     [PoolSize]Voice

	font     *sf2.SoundFont
	selector *zone.Selector
	bank     int
	program  int

	multiZone bool
	interp    sampler.Interpolation

	orderCounter uint64
	masterGain   uint64 // float64 bits, atomically updated

	fallback    *sf2.Sample
	fallbackEnv envelope.Params

	vibrato lfo.LFO
	tremolo lfo.LFO

	bendSemis float64
}

// NewManager builds a pool for the given output rate.
func NewManager(sampleRate int) *Manager {
	m := &Manager{
		sampleRate: float64(sampleRate),
		selector:   zone.NewSelector(),
		multiZone:  true,
		masterGain: math.Float64bits(1.0),
		fallback:   buildFallbackSample(),
		fallbackEnv: envelope.Params{
			DelayTimecents:   -12000,
			AttackTimecents:  -9023, // ~5.5 ms
			HoldTimecents:    -12000,
			DecayTimecents:   -4500,
			SustainCentibels: 120,
			ReleaseTimecents: -3986, // ~100 ms
		},
	}
	return m
}

// buildFallbackSample makes a one-cycle sine wavetable dressed up as a
// SoundFont sample so the fallback path reuses the exact layer code. With a
// native rate of tableLen*440 the standard pitch formula lands on 440 Hz at
// MIDI note 69.
func buildFallbackSample() *sf2.Sample {
	data := make([]float32, fallbackTableLen)
	for i := range data {
		data[i] = float32(0.8 * math.Sin(2*math.Pi*float64(i)/fallbackTableLen))
	}
	return &sf2.Sample{
		Name:          "fallback-sine",
		Data:          data,
		SampleRate:    fallbackTableLen * 440,
		OriginalPitch: 69,
		LoopStart:     0,
		LoopEnd:       fallbackTableLen,
	}
}

// fallbackZone loops the sine table through release so the tone sustains
// until the envelope finishes.
var fallbackZone = &sf2.Zone{
	KeyLow: 0, KeyHigh: 127, VelLow: 0, VelHigh: 127,
	RootKey: -1,
	Loop:    sf2.LoopDuringRelease,
}

// LoadSoundFont atomically replaces the active bank. A nil font returns the
// engine to fallback synthesis.
func (m *Manager) LoadSoundFont(font *sf2.SoundFont) {
	m.font = font
}

// SoundFont returns the currently loaded bank, or nil.
func (m *Manager) SoundFont() *sf2.SoundFont { return m.font }

// SelectPreset switches the active bank/program. With a SoundFont loaded the
// preset must exist; without one the selection is stored for a later load.
func (m *Manager) SelectPreset(bank, program int) error {
	if m.font != nil && m.font.Preset(bank, program) == nil {
		return fmt.Errorf("engine: preset %d:%d not in SoundFont %q", bank, program, m.font.Name)
	}
	m.bank = bank
	m.program = program
	return nil
}

// SetMultiZone toggles velocity-crossfaded layering. When disabled, only the
// first matching zone of a note sounds.
func (m *Manager) SetMultiZone(on bool) { m.multiZone = on }

// MultiZone reports whether layering is enabled.
func (m *Manager) MultiZone() bool { return m.multiZone }

// SetStrategy switches the zone selection strategy immediately.
func (m *Manager) SetStrategy(st zone.Strategy) { m.selector.SetStrategy(st) }

// Strategy returns the active selection strategy.
func (m *Manager) Strategy() zone.Strategy { return m.selector.Strategy() }

// ResetRoundRobin clears the per-instrument cycling counters.
func (m *Manager) ResetRoundRobin() { m.selector.ResetRoundRobin() }

// SetInterpolation switches the resampling kernel for new and active layers.
func (m *Manager) SetInterpolation(ip sampler.Interpolation) {
	m.interp = ip
	for i := range m.voices {
		if m.voices[i].active {
			m.voices[i].setInterpolation(ip)
		}
	}
}

// SetMasterGain scales the mixed output. Safe to call from another
// goroutine.
func (m *Manager) SetMasterGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	atomic.StoreUint64(&m.masterGain, math.Float64bits(gain))
}

func (m *Manager) masterGainValue() float64 {
	return math.Float64frombits(atomic.LoadUint64(&m.masterGain))
}

// SetVibrato configures the shared pitch LFO. Depth is in semitones.
func (m *Manager) SetVibrato(depthSemis, rateHz float64) {
	m.vibrato.Set(depthSemis, rateHz, lfo.Triangle)
}

// SetTremolo configures the shared amplitude LFO. Depth is a 0..1 gain
// offset.
func (m *Manager) SetTremolo(depth, rateHz float64) {
	m.tremolo.Set(depth, rateHz, lfo.Triangle)
}

// SetPitchBend shifts every sounding voice by the given amount in semitones.
// Applied per sample alongside vibrato.
func (m *Manager) SetPitchBend(semitones float64) {
	m.bendSemis = semitones
}

// NoteOn starts a note on channel 0. See NoteOnChannel.
func (m *Manager) NoteOn(note, velocity int) int {
	return m.NoteOnChannel(0, note, velocity)
}

// NoteOnChannel allocates (or steals) a voice for the note and returns its
// pool index. The pool never exceeds PoolSize, so a slot is always found.
// Out-of-range notes and velocities are clamped, never rejected.
func (m *Manager) NoteOnChannel(channel, note, velocity int) int {
	note = clampInt(note, 0, 127)
	velocity = clampInt(velocity, 0, 127)

	idx := m.allocate()
	v := &m.voices[idx]
	m.orderCounter++

	var layers []sampler.Layer
	var p envelope.Params
	instrument := ""

	if m.font != nil {
		matches := m.selector.Select(m.font, m.bank, m.program, note, velocity)
		if !m.multiZone && len(matches) > 1 {
			matches = matches[:1]
			matches[0].Weight = 1
		}
		p = m.fallbackEnv
		for i, match := range matches {
			if i >= maxLayersPerVoice {
				break
			}
			if i == 0 {
				p = envelopeParamsFor(match.Zone)
				instrument = match.InstrumentName
			}
			layers = append(layers, sampler.New(sampler.Config{
				Sample:     match.Sample,
				Zone:       match.Zone,
				Note:       note,
				Weight:     match.Weight,
				Interp:     m.interp,
				EngineRate: m.sampleRate,
			}))
		}
	} else {
		// No SoundFont: audible sine fallback through the same layer code.
		p = m.fallbackEnv
		instrument = m.fallback.Name
		layers = append(layers, sampler.New(sampler.Config{
			Sample:     m.fallback,
			Zone:       fallbackZone,
			Note:       note,
			Weight:     float32(velocity) / 127,
			Interp:     m.interp,
			EngineRate: m.sampleRate,
		}))
	}

	v.trigger(m.sampleRate, note, velocity, channel, p, layers, instrument, m.orderCounter)
	return idx
}

func envelopeParamsFor(z *sf2.Zone) envelope.Params {
	e := z.Envelope
	return envelope.Params{
		DelayTimecents:   e.DelayTC,
		AttackTimecents:  e.AttackTC,
		HoldTimecents:    e.HoldTC,
		DecayTimecents:   e.DecayTC,
		SustainCentibels: e.SustainCB,
		ReleaseTimecents: e.ReleaseTC,
	}
}

// allocate returns a free voice slot, stealing one when the pool is full:
// first the oldest voice already in Release, otherwise the oldest active
// voice (FIFO by trigger order).
func (m *Manager) allocate() int {
	for i := range m.voices {
		if !m.voices[i].active {
			return i
		}
	}
	best := -1
	var bestOrder uint64 = math.MaxUint64
	for i := range m.voices {
		if m.voices[i].releasing() && m.voices[i].order < bestOrder {
			best = i
			bestOrder = m.voices[i].order
		}
	}
	if best >= 0 {
		return best
	}
	for i := range m.voices {
		if m.voices[i].order < bestOrder {
			best = i
			bestOrder = m.voices[i].order
		}
	}
	return best
}

// NoteOff releases every active voice playing the note. Retriggered notes
// may occupy several voices; all of them enter Release. Nothing deallocates
// here; the envelopes decide when the voices go silent.
func (m *Manager) NoteOff(note int) {
	for i := range m.voices {
		v := &m.voices[i]
		if v.active && v.note == note {
			v.release()
		}
	}
}

// ReleaseAll moves every active voice into Release (MIDI all-notes-off).
func (m *Manager) ReleaseAll() {
	for i := range m.voices {
		if m.voices[i].active {
			m.voices[i].release()
		}
	}
}

// Silence hard-stops every voice immediately (MIDI all-sound-off). Unlike
// ReleaseAll there is no tail; the next Process call outputs zero.
func (m *Manager) Silence() {
	for i := range m.voices {
		m.voices[i].active = false
		m.voices[i].processing = false
	}
}

// Process advances every active voice exactly once and returns the mixed
// mono sample. This is the one call the host makes per output sample.
func (m *Manager) Process() float32 {
	rateMul := 1.0
	if m.vibrato.Active() {
		rateMul = math.Pow(2, m.vibrato.Sample(m.sampleRate)/12)
	}
	if m.bendSemis != 0 {
		rateMul *= math.Pow(2, m.bendSemis/12)
	}
	trem := 1.0 + m.tremolo.Sample(m.sampleRate)

	var sum float64
	for i := range m.voices {
		if m.voices[i].active {
			sum += float64(m.voices[i].process(rateMul))
		}
	}
	return float32(sum * trem * m.masterGainValue())
}

// ProcessEnvelopes advances all active envelopes one sample without mixing
// audio and returns the count still active.
func (m *Manager) ProcessEnvelopes() int {
	n := 0
	for i := range m.voices {
		m.voices[i].advanceEnvelope()
		if m.voices[i].active {
			n++
		}
	}
	return n
}

// ActiveVoiceCount returns the number of voices currently sounding.
func (m *Manager) ActiveVoiceCount() int {
	n := 0
	for i := range m.voices {
		if m.voices[i].active {
			n++
		}
	}
	return n
}

// ChannelVoiceCount returns the active voices triggered on one MIDI channel.
func (m *Manager) ChannelVoiceCount(channel int) int {
	n := 0
	for i := range m.voices {
		if m.voices[i].active && m.voices[i].channel == channel {
			n++
		}
	}
	return n
}

// VoiceInfo is a diagnostic snapshot of one active voice.
type VoiceInfo struct {
	Note       int
	Velocity   int
	Channel    int
	Layers     int
	Stage      string
	Instrument string
}

// Snapshot returns diagnostics for every active voice.
func (m *Manager) Snapshot() []VoiceInfo {
	var out []VoiceInfo
	for i := range m.voices {
		v := &m.voices[i]
		if !v.active {
			continue
		}
		out = append(out, VoiceInfo{
			Note:       v.note,
			Velocity:   v.velocity,
			Channel:    v.channel,
			Layers:     len(v.layers),
			Stage:      v.env.Stage().String(),
			Instrument: v.instrumentName,
		})
	}
	return out
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
