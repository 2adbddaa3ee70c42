package effects

import "math"

// Chorus is a modulated delay line on the chorus send. Two read taps a
// quarter cycle apart produce a widened stereo return from the mono send.
type Chorus struct {
	buf   []float32
	pos   int
	depth float64 // modulation depth in samples
	rate  float64 // radians per sample
	phase float64
}

// NewChorus builds the chorus. delayMs is the center delay, depthMs the
// modulation swing, rateHz the sweep speed.
func NewChorus(sampleRate int, delayMs, depthMs, rateHz float64) *Chorus {
	depthSamples := depthMs * float64(sampleRate) / 1000
	size := int(delayMs*float64(sampleRate)/1000+depthSamples) + 2
	if size < 8 {
		size = 8
	}
	return &Chorus{
		buf:   make([]float32, size),
		depth: depthSamples,
		rate:  2 * math.Pi * rateHz / float64(sampleRate),
	}
}

// Process feeds one send sample and returns the stereo chorus return.
func (c *Chorus) Process(in float32) (float32, float32) {
	c.buf[c.pos] = in

	center := float64(len(c.buf)) / 2
	l := c.tapAt(center + c.depth*math.Sin(c.phase))
	r := c.tapAt(center + c.depth*math.Sin(c.phase+math.Pi/2))

	c.phase += c.rate
	if c.phase > 2*math.Pi {
		c.phase -= 2 * math.Pi
	}
	c.pos++
	if c.pos >= len(c.buf) {
		c.pos = 0
	}
	return l, r
}

// tapAt reads the delay line `delay` samples behind the write head with
// linear interpolation.
func (c *Chorus) tapAt(delay float64) float32 {
	read := float64(c.pos) - delay
	n := float64(len(c.buf))
	for read < 0 {
		read += n
	}
	idx := int(read)
	frac := float32(read - float64(idx))
	next := idx + 1
	if next >= len(c.buf) {
		next = 0
	}
	return c.buf[idx]*(1-frac) + c.buf[next]*frac
}

// Reset clears the delay line.
func (c *Chorus) Reset() {
	clear(c.buf)
	c.pos = 0
	c.phase = 0
}
