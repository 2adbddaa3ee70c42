package sf2

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/riff"
)

// SF2 generator operators the engine cares about. Everything else is skipped.
const (
	genStartLoopOffset       = 2
	genEndLoopOffset         = 3
	genStartLoopCoarseOffset = 4
	genDelayVolEnv           = 33
	genAttackVolEnv          = 34
	genHoldVolEnv            = 35
	genDecayVolEnv           = 36
	genSustainVolEnv         = 37
	genReleaseVolEnv         = 38
	genInstrument            = 41
	genKeyRange              = 43
	genVelRange              = 44
	genEndLoopCoarseOffset   = 50
	genCoarseTune            = 51
	genFineTune              = 52
	genSampleID              = 53
	genSampleModes           = 54
	genOverridingRootKey     = 58
)

const (
	phdrRecordSize = 38
	bagRecordSize  = 4
	genRecordSize  = 4
	instRecordSize = 22
	shdrRecordSize = 46
)

var errNotSoundFont = errors.New("sf2: not a SoundFont 2 file")

// Load reads and parses a SoundFont 2 file from disk.
func Load(path string) (*SoundFont, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sf2: open: %w", err)
	}
	defer f.Close()
	font, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("sf2: %s: %w", path, err)
	}
	return font, nil
}

// rawChunks holds the undecoded pdta record arrays plus the sample data
// block, gathered during the RIFF walk and assembled afterwards.
type rawChunks struct {
	name string
	smpl []int16
	phdr []byte
	pbag []byte
	pgen []byte
	inst []byte
	ibag []byte
	igen []byte
	shdr []byte
}

// Parse decodes a SoundFont 2 stream. The RIFF framing is handled by
// go-audio/riff; the pdta record arrays inside the LIST chunks use fixed
// layouts and are decoded by hand.
func Parse(r io.Reader) (*SoundFont, error) {
	p := riff.New(r)
	if err := p.ParseHeaders(); err != nil {
		return nil, fmt.Errorf("sf2: riff headers: %w", err)
	}
	if string(p.Format[:]) != "sfbk" {
		return nil, errNotSoundFont
	}

	var raw rawChunks
	for {
		chunk, err := p.NextChunk()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("sf2: riff chunk: %w", err)
		}
		if string(chunk.ID[:]) != "LIST" {
			chunk.Done()
			continue
		}
		body := make([]byte, chunk.Size)
		if _, err := io.ReadFull(chunk, body); err != nil {
			return nil, fmt.Errorf("sf2: LIST body: %w", err)
		}
		chunk.Done()
		if len(body) < 4 {
			return nil, errors.New("sf2: truncated LIST chunk")
		}
		listType := string(body[:4])
		if err := raw.scanList(listType, body[4:]); err != nil {
			return nil, err
		}
	}
	return raw.assemble()
}

// scanList walks the sub-chunks of one LIST body.
func (raw *rawChunks) scanList(listType string, body []byte) error {
	for len(body) >= 8 {
		id := string(body[:4])
		size := int(binary.LittleEndian.Uint32(body[4:8]))
		body = body[8:]
		if size > len(body) {
			return fmt.Errorf("sf2: %s sub-chunk %q overruns LIST", listType, id)
		}
		data := body[:size]
		// Sub-chunks are word aligned.
		advance := size + size%2
		if advance > len(body) {
			advance = len(body)
		}
		body = body[advance:]

		switch listType {
		case "INFO":
			if id == "INAM" {
				raw.name = cString(data)
			}
		case "sdta":
			if id == "smpl" {
				raw.smpl = make([]int16, len(data)/2)
				for i := range raw.smpl {
					raw.smpl[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
				}
			}
		case "pdta":
			cp := make([]byte, len(data))
			copy(cp, data)
			switch id {
			case "phdr":
				raw.phdr = cp
			case "pbag":
				raw.pbag = cp
			case "pgen":
				raw.pgen = cp
			case "inst":
				raw.inst = cp
			case "ibag":
				raw.ibag = cp
			case "igen":
				raw.igen = cp
			case "shdr":
				raw.shdr = cp
			}
		}
	}
	return nil
}

func (raw *rawChunks) assemble() (*SoundFont, error) {
	if raw.phdr == nil || raw.inst == nil || raw.shdr == nil {
		return nil, errors.New("sf2: missing pdta records")
	}
	samples := raw.buildSamples()
	instruments, err := raw.buildInstruments(samples)
	if err != nil {
		return nil, err
	}
	presets, err := raw.buildPresets(instruments)
	if err != nil {
		return nil, err
	}
	return &SoundFont{
		Name:        raw.name,
		Presets:     presets,
		Instruments: instruments,
		Samples:     samples,
	}, nil
}

func (raw *rawChunks) buildSamples() []*Sample {
	count := len(raw.shdr) / shdrRecordSize
	samples := make([]*Sample, 0, count)
	for i := 0; i < count; i++ {
		rec := raw.shdr[i*shdrRecordSize:]
		name := cString(rec[:20])
		if name == "EOS" {
			break
		}
		start := int(binary.LittleEndian.Uint32(rec[20:]))
		end := int(binary.LittleEndian.Uint32(rec[24:]))
		loopStart := int(binary.LittleEndian.Uint32(rec[28:]))
		loopEnd := int(binary.LittleEndian.Uint32(rec[32:]))
		rate := binary.LittleEndian.Uint32(rec[36:])
		pitch := int(rec[40])
		correction := int(int8(rec[41]))
		sampleType := binary.LittleEndian.Uint16(rec[44:])

		if sampleType&0x8000 != 0 {
			// ROM sample, no data in this file.
			continue
		}
		if start < 0 || end > len(raw.smpl) || start >= end {
			continue
		}
		data := make([]float32, end-start)
		for j, v := range raw.smpl[start:end] {
			data[j] = float32(v) / 32768.0
		}
		if pitch > 127 {
			pitch = 60
		}
		s := &Sample{
			Name:            name,
			Data:            data,
			SampleRate:      float64(rate),
			OriginalPitch:   pitch,
			PitchCorrection: correction,
			LoopStart:       loopStart - start,
			LoopEnd:         loopEnd - start,
		}
		clampLoop(s)
		samples = append(samples, s)
	}
	return samples
}

func (raw *rawChunks) buildInstruments(samples []*Sample) ([]*Instrument, error) {
	count := len(raw.inst)/instRecordSize - 1 // last record is the EOI terminal
	if count < 0 {
		return nil, errors.New("sf2: inst chunk too short")
	}
	bags := parseBags(raw.ibag)
	gens := parseGens(raw.igen)

	instruments := make([]*Instrument, 0, count)
	for i := 0; i < count; i++ {
		rec := raw.inst[i*instRecordSize:]
		name := cString(rec[:20])
		bagStart := int(binary.LittleEndian.Uint16(rec[20:]))
		bagEnd := int(binary.LittleEndian.Uint16(raw.inst[(i+1)*instRecordSize+20:]))
		if bagStart > bagEnd || bagEnd > len(bags) {
			return nil, fmt.Errorf("sf2: instrument %q has invalid bag range", name)
		}

		inst := &Instrument{Name: name}
		global := newDefaultZone()
		for b := bagStart; b < bagEnd; b++ {
			genStart := bags[b]
			genEnd := len(gens)
			if b+1 < len(bags) {
				genEnd = bags[b+1]
			}
			zone := global // copy of the running defaults
			sampleIdx := -1
			for g := genStart; g < genEnd && g < len(gens); g++ {
				applyGenerator(&zone, gens[g])
				if gens[g].oper == genSampleID {
					sampleIdx = int(uint16(gens[g].amount))
				}
			}
			if sampleIdx < 0 {
				// Global zone: its generators become defaults for the rest.
				global = zone
				continue
			}
			if sampleIdx >= len(samples) {
				continue
			}
			z := zone
			z.Sample = samples[sampleIdx]
			inst.Zones = append(inst.Zones, &z)
		}
		instruments = append(instruments, inst)
	}
	return instruments, nil
}

func (raw *rawChunks) buildPresets(instruments []*Instrument) ([]*Preset, error) {
	count := len(raw.phdr)/phdrRecordSize - 1 // last record is the EOP terminal
	if count < 0 {
		return nil, errors.New("sf2: phdr chunk too short")
	}
	bags := parseBags(raw.pbag)
	gens := parseGens(raw.pgen)

	presets := make([]*Preset, 0, count)
	for i := 0; i < count; i++ {
		rec := raw.phdr[i*phdrRecordSize:]
		name := cString(rec[:20])
		program := int(binary.LittleEndian.Uint16(rec[20:]))
		bank := int(binary.LittleEndian.Uint16(rec[22:]))
		bagStart := int(binary.LittleEndian.Uint16(rec[24:]))
		bagEnd := int(binary.LittleEndian.Uint16(raw.phdr[(i+1)*phdrRecordSize+24:]))
		if bagStart > bagEnd || bagEnd > len(bags) {
			return nil, fmt.Errorf("sf2: preset %q has invalid bag range", name)
		}

		preset := &Preset{Name: name, Bank: bank, Program: program}
		for b := bagStart; b < bagEnd; b++ {
			genStart := bags[b]
			genEnd := len(gens)
			if b+1 < len(bags) {
				genEnd = bags[b+1]
			}
			for g := genStart; g < genEnd && g < len(gens); g++ {
				if gens[g].oper == genInstrument {
					idx := int(uint16(gens[g].amount))
					if idx < len(instruments) {
						preset.Instruments = append(preset.Instruments, instruments[idx])
					}
				}
			}
		}
		presets = append(presets, preset)
	}
	return presets, nil
}

type generator struct {
	oper   uint16
	amount int16
}

func parseBags(data []byte) []int {
	count := len(data) / bagRecordSize
	out := make([]int, count)
	for i := 0; i < count; i++ {
		out[i] = int(binary.LittleEndian.Uint16(data[i*bagRecordSize:]))
	}
	return out
}

func parseGens(data []byte) []generator {
	count := len(data) / genRecordSize
	out := make([]generator, count)
	for i := 0; i < count; i++ {
		rec := data[i*genRecordSize:]
		out[i] = generator{
			oper:   binary.LittleEndian.Uint16(rec),
			amount: int16(binary.LittleEndian.Uint16(rec[2:])),
		}
	}
	return out
}

func newDefaultZone() Zone {
	return Zone{
		KeyLow: 0, KeyHigh: 127,
		VelLow: 0, VelHigh: 127,
		RootKey:  -1,
		Envelope: DefaultEnvelopeTimes(),
	}
}

func applyGenerator(z *Zone, g generator) {
	switch g.oper {
	case genKeyRange:
		z.KeyLow = int(uint16(g.amount) & 0xFF)
		z.KeyHigh = int(uint16(g.amount) >> 8)
	case genVelRange:
		z.VelLow = int(uint16(g.amount) & 0xFF)
		z.VelHigh = int(uint16(g.amount) >> 8)
	case genSampleModes:
		switch g.amount & 0x3 {
		case 1:
			z.Loop = LoopContinuous
		case 2:
			z.Loop = LoopDuringRelease
		case 3:
			z.Loop = LoopUntilRelease
		default:
			z.Loop = LoopNone
		}
	case genOverridingRootKey:
		z.RootKey = int(g.amount)
	case genFineTune:
		z.FineTune = int(g.amount)
	case genCoarseTune:
		z.CoarseTune = int(g.amount)
	case genStartLoopOffset:
		z.LoopStartOffset += int(g.amount)
	case genStartLoopCoarseOffset:
		z.LoopStartOffset += int(g.amount) * 32768
	case genEndLoopOffset:
		z.LoopEndOffset += int(g.amount)
	case genEndLoopCoarseOffset:
		z.LoopEndOffset += int(g.amount) * 32768
	case genDelayVolEnv:
		z.Envelope.DelayTC = int(g.amount)
	case genAttackVolEnv:
		z.Envelope.AttackTC = int(g.amount)
	case genHoldVolEnv:
		z.Envelope.HoldTC = int(g.amount)
	case genDecayVolEnv:
		z.Envelope.DecayTC = int(g.amount)
	case genSustainVolEnv:
		z.Envelope.SustainCB = int(g.amount)
	case genReleaseVolEnv:
		z.Envelope.ReleaseTC = int(g.amount)
	}
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
