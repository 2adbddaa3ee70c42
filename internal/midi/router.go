// Package midi decodes channel voice messages and routes them to the synth.
// It understands running status and the note-on-velocity-zero convention, so
// a byte stream from any MIDI source can be fed straight into HandleMessage.
package midi

// Controller numbers the router gives meaning to.
const (
	CCModWheel    = 1
	CCVolume      = 7
	CCPan         = 10
	CCReverbSend  = 91
	CCChorusSend  = 93
	CCAllSoundOff = 120
	CCAllNotesOff = 123
)

// Sink receives decoded channel messages. All values are pre-clamped to
// their MIDI ranges.
type Sink interface {
	NoteOn(channel, note, velocity int)
	NoteOff(channel, note int)
	ControlChange(channel, controller, value int)
	ProgramChange(channel, program int)
	PitchBend(channel, value int) // value in -8192..8191
}

// Router parses a raw MIDI byte stream and forwards decoded messages.
type Router struct {
	sink    Sink
	status  byte
	pending []byte
}

// NewRouter builds a router feeding the given sink.
func NewRouter(sink Sink) *Router {
	return &Router{sink: sink}
}

// NoteOn dispatches a note-on directly, applying the velocity-zero rule.
func (r *Router) NoteOn(channel, note, velocity int) {
	channel = clamp(channel, 0, 15)
	note = clamp(note, 0, 127)
	velocity = clamp(velocity, 0, 127)
	if velocity == 0 {
		r.sink.NoteOff(channel, note)
		return
	}
	r.sink.NoteOn(channel, note, velocity)
}

// NoteOff dispatches a note-off directly.
func (r *Router) NoteOff(channel, note int) {
	r.sink.NoteOff(clamp(channel, 0, 15), clamp(note, 0, 127))
}

// ControlChange dispatches a controller change directly.
func (r *Router) ControlChange(channel, controller, value int) {
	r.sink.ControlChange(clamp(channel, 0, 15), clamp(controller, 0, 127), clamp(value, 0, 127))
}

// HandleMessage consumes raw MIDI bytes. Partial messages are buffered
// across calls; real-time bytes (0xF8..0xFF) are ignored without breaking
// running status.
func (r *Router) HandleMessage(data []byte) {
	for _, b := range data {
		if b >= 0xF8 {
			continue // system real-time, transparent to running status
		}
		if b&0x80 != 0 {
			if b >= 0xF0 {
				// System common clears running status; bodies are skipped.
				r.status = 0
				r.pending = r.pending[:0]
				continue
			}
			r.status = b
			r.pending = r.pending[:0]
			continue
		}
		if r.status == 0 {
			continue // data byte with no status to attach to
		}
		r.pending = append(r.pending, b)
		if len(r.pending) == dataLen(r.status) {
			r.dispatch()
			r.pending = r.pending[:0] // running status: keep r.status
		}
	}
}

func dataLen(status byte) int {
	switch status & 0xF0 {
	case 0xC0, 0xD0: // program change, channel pressure
		return 1
	default:
		return 2
	}
}

func (r *Router) dispatch() {
	ch := int(r.status & 0x0F)
	switch r.status & 0xF0 {
	case 0x80:
		r.sink.NoteOff(ch, int(r.pending[0]))
	case 0x90:
		note, vel := int(r.pending[0]), int(r.pending[1])
		if vel == 0 {
			r.sink.NoteOff(ch, note)
		} else {
			r.sink.NoteOn(ch, note, vel)
		}
	case 0xB0:
		r.sink.ControlChange(ch, int(r.pending[0]), int(r.pending[1]))
	case 0xC0:
		r.sink.ProgramChange(ch, int(r.pending[0]))
	case 0xE0:
		value := int(r.pending[0]) | int(r.pending[1])<<7
		r.sink.PitchBend(ch, value-8192)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
