// Package effects implements the AWE32 output section downstream of the
// voice engine: reverb and chorus send-return buses fed by the dry mono mix
// and the per-channel CC 91/93 send amounts. The voice engine itself stays
// mono and effect-free; this package produces the final stereo pair.
package effects

// Bus combines the dry signal with the reverb and chorus returns.
type Bus struct {
	reverb *Reverb
	chorus *Chorus

	reverbSend float32
	chorusSend float32
}

// NewBus builds the send-return section for the given sample rate.
func NewBus(sampleRate int) *Bus {
	return &Bus{
		reverb: NewReverb(sampleRate, 0.6, 0.72),
		chorus: NewChorus(sampleRate, 18, 2.5, 0.9),
	}
}

// SetReverbSend sets the reverb send amount (0..1, MIDI CC 91 scaled).
func (b *Bus) SetReverbSend(v float32) { b.reverbSend = clamp(v, 0, 1) }

// SetChorusSend sets the chorus send amount (0..1, MIDI CC 93 scaled).
func (b *Bus) SetChorusSend(v float32) { b.chorusSend = clamp(v, 0, 1) }

// ReverbSend returns the current reverb send amount.
func (b *Bus) ReverbSend() float32 { return b.reverbSend }

// ChorusSend returns the current chorus send amount.
func (b *Bus) ChorusSend() float32 { return b.chorusSend }

// Process takes one dry mono sample and returns the final stereo pair:
// dry center plus the reverb and chorus returns, clamped to [-1, 1].
func (b *Bus) Process(dry float32) (float32, float32) {
	wet := b.reverb.Process(dry * b.reverbSend)
	cl, cr := b.chorus.Process(dry * b.chorusSend)
	l := clamp(dry+wet+cl, -1, 1)
	r := clamp(dry+wet+cr, -1, 1)
	return l, r
}

// Reset clears all delay lines.
func (b *Bus) Reset() {
	b.reverb.Reset()
	b.chorus.Reset()
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
