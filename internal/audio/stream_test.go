package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

type rampSource struct {
	next float32
}

func (s *rampSource) Render(dst []float32) {
	for i := range dst {
		dst[i] = s.next
		s.next += 0.001
	}
}

func TestStreamReaderPacksFloat32LE(t *testing.T) {
	r := NewStreamReader(&rampSource{})
	p := make([]byte, 64) // 8 frames
	n, err := r.Read(p)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 64 {
		t.Fatalf("Read returned %d bytes, want 64", n)
	}
	for i := 0; i < 16; i++ {
		got := math.Float32frombits(binary.LittleEndian.Uint32(p[i*4:]))
		want := float32(i) * 0.001
		if math.Abs(float64(got-want)) > 1e-6 {
			t.Fatalf("sample %d = %f, want %f", i, got, want)
		}
	}
}

func TestStreamReaderContinuesAcrossReads(t *testing.T) {
	r := NewStreamReader(&rampSource{})
	p := make([]byte, 32)
	if _, err := r.Read(p); err != nil {
		t.Fatalf("first Read: %v", err)
	}
	if _, err := r.Read(p); err != nil {
		t.Fatalf("second Read: %v", err)
	}
	got := math.Float32frombits(binary.LittleEndian.Uint32(p))
	want := float32(8) * 0.001 // 4 frames x 2 channels consumed by read one
	if math.Abs(float64(got-want)) > 1e-6 {
		t.Errorf("second read starts at %f, want %f", got, want)
	}
}

func TestStreamReaderShortBuffer(t *testing.T) {
	r := NewStreamReader(&rampSource{})
	n, err := r.Read(make([]byte, 5)) // less than one frame
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 0 {
		t.Errorf("partial frame read returned %d bytes, want 0", n)
	}
}
