package sf2

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

// buildTestFont assembles a minimal two-zone SoundFont in memory: one preset
// (bank 0, program 0) pointing at one instrument with two velocity-split
// zones over the same looped sample.
func buildTestFont(t *testing.T) []byte {
	t.Helper()

	// 200 samples of a sine cycle as 16-bit PCM.
	pcm := make([]byte, 200*2)
	for i := 0; i < 200; i++ {
		v := int16(30000 * math.Sin(2*math.Pi*float64(i)/200))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}

	shdr := new(bytes.Buffer)
	writeSampleHeader(shdr, "sine", 0, 200, 5, 15, 44100, 69)
	writeSampleHeader(shdr, "EOS", 0, 0, 0, 0, 0, 0)

	inst := new(bytes.Buffer)
	writeFixedString(inst, "testinst", 20)
	binary.Write(inst, binary.LittleEndian, uint16(0)) // first bag
	writeFixedString(inst, "EOI", 20)
	binary.Write(inst, binary.LittleEndian, uint16(2)) // terminal bag index

	ibag := new(bytes.Buffer)
	binary.Write(ibag, binary.LittleEndian, []uint16{0, 0}) // zone 0 gens start at 0
	binary.Write(ibag, binary.LittleEndian, []uint16{3, 0}) // zone 1 gens start at 3
	binary.Write(ibag, binary.LittleEndian, []uint16{6, 0}) // terminal

	igen := new(bytes.Buffer)
	// Zone 0: keys 0-127, velocities 0-63, looped sample 0.
	writeGen(igen, genKeyRange, int16(0)|int16(127)<<8)
	writeGen(igen, genVelRange, int16(0)|int16(63)<<8)
	writeGen(igen, genSampleID, 0)
	// Zone 1: keys 0-127, velocities 64-127, sample 0, continuous loop.
	writeGen(igen, genVelRange, int16(64)|int16(127)<<8)
	writeGen(igen, genSampleModes, 1)
	writeGen(igen, genSampleID, 0)

	phdr := new(bytes.Buffer)
	writeFixedString(phdr, "testpreset", 20)
	binary.Write(phdr, binary.LittleEndian, uint16(0)) // program
	binary.Write(phdr, binary.LittleEndian, uint16(0)) // bank
	binary.Write(phdr, binary.LittleEndian, uint16(0)) // first bag
	binary.Write(phdr, binary.LittleEndian, []uint32{0, 0, 0})
	writeFixedString(phdr, "EOP", 20)
	binary.Write(phdr, binary.LittleEndian, uint16(0))
	binary.Write(phdr, binary.LittleEndian, uint16(0))
	binary.Write(phdr, binary.LittleEndian, uint16(1)) // terminal bag index
	binary.Write(phdr, binary.LittleEndian, []uint32{0, 0, 0})

	pbag := new(bytes.Buffer)
	binary.Write(pbag, binary.LittleEndian, []uint16{0, 0})
	binary.Write(pbag, binary.LittleEndian, []uint16{1, 0})

	pgen := new(bytes.Buffer)
	writeGen(pgen, genInstrument, 0)

	sdta := buildList("sdta", [][2]interface{}{{"smpl", pcm}})
	pdta := buildList("pdta", [][2]interface{}{
		{"phdr", phdr.Bytes()},
		{"pbag", pbag.Bytes()},
		{"pgen", pgen.Bytes()},
		{"inst", inst.Bytes()},
		{"ibag", ibag.Bytes()},
		{"igen", igen.Bytes()},
		{"shdr", shdr.Bytes()},
	})

	body := append([]byte("sfbk"), sdta...)
	body = append(body, pdta...)
	out := new(bytes.Buffer)
	out.WriteString("RIFF")
	binary.Write(out, binary.LittleEndian, uint32(len(body)))
	out.Write(body)
	return out.Bytes()
}

func writeSampleHeader(w *bytes.Buffer, name string, start, end, loopStart, loopEnd, rate uint32, pitch byte) {
	writeFixedString(w, name, 20)
	binary.Write(w, binary.LittleEndian, start)
	binary.Write(w, binary.LittleEndian, end)
	binary.Write(w, binary.LittleEndian, loopStart)
	binary.Write(w, binary.LittleEndian, loopEnd)
	binary.Write(w, binary.LittleEndian, rate)
	w.WriteByte(pitch)
	w.WriteByte(0)                                     // correction
	binary.Write(w, binary.LittleEndian, uint16(0))    // link
	binary.Write(w, binary.LittleEndian, uint16(1))    // mono sample
}

func writeFixedString(w *bytes.Buffer, s string, n int) {
	b := make([]byte, n)
	copy(b, s)
	w.Write(b)
}

func writeGen(w *bytes.Buffer, oper uint16, amount int16) {
	binary.Write(w, binary.LittleEndian, oper)
	binary.Write(w, binary.LittleEndian, amount)
}

func buildList(listType string, chunks [][2]interface{}) []byte {
	body := []byte(listType)
	for _, c := range chunks {
		id := c[0].(string)
		data := c[1].([]byte)
		body = append(body, id...)
		sz := make([]byte, 4)
		binary.LittleEndian.PutUint32(sz, uint32(len(data)))
		body = append(body, sz...)
		body = append(body, data...)
		if len(data)%2 == 1 {
			body = append(body, 0)
		}
	}
	out := []byte("LIST")
	sz := make([]byte, 4)
	binary.LittleEndian.PutUint32(sz, uint32(len(body)))
	out = append(out, sz...)
	return append(out, body...)
}

func TestParseSoundFont(t *testing.T) {
	font, err := Parse(bytes.NewReader(buildTestFont(t)))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(font.Presets) != 1 || len(font.Instruments) != 1 || len(font.Samples) != 1 {
		t.Fatalf("unexpected counts: %d presets %d instruments %d samples",
			len(font.Presets), len(font.Instruments), len(font.Samples))
	}

	p := font.Preset(0, 0)
	if p == nil {
		t.Fatal("preset 0:0 not found")
	}
	if p.Name != "testpreset" {
		t.Errorf("preset name = %q", p.Name)
	}
	if len(p.Instruments) != 1 {
		t.Fatalf("preset should reference 1 instrument, got %d", len(p.Instruments))
	}

	inst := p.Instruments[0]
	if inst.Name != "testinst" {
		t.Errorf("instrument name = %q", inst.Name)
	}
	if len(inst.Zones) != 2 {
		t.Fatalf("expected 2 zones, got %d", len(inst.Zones))
	}

	z0, z1 := inst.Zones[0], inst.Zones[1]
	if z0.VelLow != 0 || z0.VelHigh != 63 {
		t.Errorf("zone 0 velocity range = %d..%d", z0.VelLow, z0.VelHigh)
	}
	if z1.VelLow != 64 || z1.VelHigh != 127 {
		t.Errorf("zone 1 velocity range = %d..%d", z1.VelLow, z1.VelHigh)
	}
	if z0.Loop != LoopNone {
		t.Errorf("zone 0 loop mode = %v, want LoopNone", z0.Loop)
	}
	if z1.Loop != LoopContinuous {
		t.Errorf("zone 1 loop mode = %v, want LoopContinuous", z1.Loop)
	}

	s := z0.Sample
	if s == nil {
		t.Fatal("zone 0 has no sample")
	}
	if len(s.Data) != 200 {
		t.Errorf("sample length = %d, want 200", len(s.Data))
	}
	if s.LoopStart != 5 || s.LoopEnd != 15 {
		t.Errorf("loop points = %d..%d, want 5..15", s.LoopStart, s.LoopEnd)
	}
	if s.OriginalPitch != 69 {
		t.Errorf("original pitch = %d, want 69", s.OriginalPitch)
	}
	for _, v := range s.Data {
		if v < -1 || v > 1 {
			t.Fatalf("sample data not normalized: %f", v)
		}
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse(bytes.NewReader([]byte("not a soundfont at all"))); err == nil {
		t.Fatal("expected error for non-RIFF input")
	}
	// Valid RIFF but wrong form type.
	buf := new(bytes.Buffer)
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(4))
	buf.WriteString("WAVE")
	if _, err := Parse(bytes.NewReader(buf.Bytes())); err == nil {
		t.Fatal("expected error for non-sfbk RIFF")
	}
}

func TestZoneMatches(t *testing.T) {
	z := &Zone{KeyLow: 40, KeyHigh: 60, VelLow: 20, VelHigh: 80}
	for _, tc := range []struct {
		note, vel int
		want      bool
	}{
		{40, 20, true},
		{60, 80, true},
		{50, 50, true},
		{39, 50, false},
		{61, 50, false},
		{50, 19, false},
		{50, 81, false},
	} {
		if got := z.Matches(tc.note, tc.vel); got != tc.want {
			t.Errorf("Matches(%d, %d) = %v, want %v", tc.note, tc.vel, got, tc.want)
		}
	}
}

func TestClampLoopInvariants(t *testing.T) {
	s := &Sample{Data: make([]float32, 10), LoopStart: -3, LoopEnd: 50}
	clampLoop(s)
	if s.LoopStart != 0 || s.LoopEnd != 10 {
		t.Errorf("clamped loop = %d..%d", s.LoopStart, s.LoopEnd)
	}
	s = &Sample{Data: make([]float32, 10), LoopStart: 7, LoopEnd: 7}
	clampLoop(s)
	if s.LoopEnd-s.LoopStart < 1 {
		t.Errorf("loop length < 1 after clamp: %d..%d", s.LoopStart, s.LoopEnd)
	}
}
