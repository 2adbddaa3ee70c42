package engine

import (
	"github.com/spetrequin/awe-synth-go/internal/envelope"
	"github.com/spetrequin/awe-synth-go/internal/sampler"
)

// maxLayersPerVoice bounds the crossfaded zones a single note may stack.
// Matches beyond the cap are dropped, loudest-first ordering is preserved.
const maxLayersPerVoice = 8

// Voice is one slot of the fixed pool: exactly one amplitude envelope
// governing one or more sample layers. Layers differ only in which sample
// plays and at what weight; they share the envelope.
type Voice struct {
	env    *envelope.Envelope
	layers []sampler.Layer

	note     int
	velocity int
	channel  int

	instrumentName string

	active     bool
	processing bool
	order      uint64 // trigger sequence number, drives FIFO stealing
}

// trigger restarts the voice for a new note, replacing any previous layer
// set. The envelope is rebuilt from the zone's generator values.
func (v *Voice) trigger(sampleRate float64, note, velocity, channel int, p envelope.Params, layers []sampler.Layer, instrument string, order uint64) {
	v.env = envelope.New(sampleRate, p)
	v.env.Trigger()
	if cap(v.layers) < maxLayersPerVoice {
		v.layers = make([]sampler.Layer, 0, maxLayersPerVoice)
	}
	v.layers = v.layers[:0]
	for i := range layers {
		if i >= maxLayersPerVoice {
			break
		}
		v.layers = append(v.layers, layers[i])
	}
	v.note = note
	v.velocity = velocity
	v.channel = channel
	v.instrumentName = instrument
	v.active = true
	v.processing = true
	v.order = order
}

// release moves the envelope into its Release stage; layers keep producing
// audio until the envelope reaches Off.
func (v *Voice) release() {
	if !v.active {
		return
	}
	v.env.Release()
	for i := range v.layers {
		v.layers[i].EnterRelease()
	}
}

// process produces one sample: the weighted sum of all layers scaled by the
// envelope, clamped to [-1, 1]. Once the envelope turns Off the voice marks
// itself inactive and becomes a steal candidate.
func (v *Voice) process(rateMul float64) float32 {
	if !v.active {
		return 0
	}
	amp := v.env.Process()
	if !v.env.Active() {
		v.active = false
		v.processing = false
		return 0
	}
	if !v.processing || len(v.layers) == 0 {
		return 0
	}
	var sum float32
	for i := range v.layers {
		sum += v.layers[i].ReadAndAdvance(rateMul)
	}
	out := sum * amp
	if out > 1 {
		out = 1
	}
	if out < -1 {
		out = -1
	}
	return out
}

// advanceEnvelope steps the envelope one sample without touching the sample
// layers. Used by the envelope-only processing path.
func (v *Voice) advanceEnvelope() {
	if !v.active {
		return
	}
	v.env.Process()
	if !v.env.Active() {
		v.active = false
		v.processing = false
	}
}

// Releasing reports whether the voice's envelope is in its Release stage.
func (v *Voice) releasing() bool {
	return v.active && v.env.Stage() == envelope.StageRelease
}

// setInterpolation switches the read kernel on all layers in place.
func (v *Voice) setInterpolation(m sampler.Interpolation) {
	for i := range v.layers {
		v.layers[i].SetInterpolation(m)
	}
}
