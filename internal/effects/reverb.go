package effects

// Reverb is a Schroeder reverberator on the reverb send: four parallel comb
// filters into two series allpass filters. Mono in, mono tail out; the send
// level is applied by the caller, so a zero send costs almost nothing.
type Reverb struct {
	combs   [4]comb
	allpass [2]allpass
}

type comb struct {
	buf []float32
	pos int
	fb  float32
}

type allpass struct {
	buf []float32
	pos int
	fb  float32
}

// NewReverb builds the reverberator. roomSize (0..1) scales the delay-line
// lengths, feedback (0..0.95) the decay time.
func NewReverb(sampleRate int, roomSize, feedback float32) *Reverb {
	base := int(float32(sampleRate) * clamp(roomSize, 0, 1) * 0.05)
	if base < 16 {
		base = 16
	}
	fb := clamp(feedback, 0, 0.95)
	r := &Reverb{}
	// Mutually prime-ish lengths keep the combs from reinforcing a pitch.
	lens := [4]int{base, base * 1117 / 1000, base * 1271 / 1000, base * 1437 / 1000}
	for i := range r.combs {
		r.combs[i] = comb{buf: make([]float32, lens[i]), fb: fb}
	}
	apLens := [2]int{base * 347 / 1000, base * 113 / 1000}
	for i := range r.allpass {
		n := apLens[i]
		if n < 1 {
			n = 1
		}
		r.allpass[i] = allpass{buf: make([]float32, n), fb: 0.5}
	}
	return r
}

// Process feeds one send sample and returns the reverb return.
func (r *Reverb) Process(in float32) float32 {
	var out float32
	for i := range r.combs {
		out += r.combs[i].process(in)
	}
	out *= 0.25
	for i := range r.allpass {
		out = r.allpass[i].process(out)
	}
	return out
}

// Reset clears the delay lines.
func (r *Reverb) Reset() {
	for i := range r.combs {
		clear(r.combs[i].buf)
		r.combs[i].pos = 0
	}
	for i := range r.allpass {
		clear(r.allpass[i].buf)
		r.allpass[i].pos = 0
	}
}

func (c *comb) process(in float32) float32 {
	out := c.buf[c.pos]
	c.buf[c.pos] = in + out*c.fb
	c.pos++
	if c.pos >= len(c.buf) {
		c.pos = 0
	}
	return out
}

func (a *allpass) process(in float32) float32 {
	delayed := a.buf[a.pos]
	out := -in + delayed
	a.buf[a.pos] = in + delayed*a.fb
	a.pos++
	if a.pos >= len(a.buf) {
		a.pos = 0
	}
	return out
}
