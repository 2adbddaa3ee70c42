package awesynth

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// RenderSamples renders the next stretch of output offline and returns
// interleaved stereo float32 frames. Notes triggered before the call sound
// from sample zero; the synthesizer state advances exactly as it would in
// realtime playback.
func (s *Synthesizer) RenderSamples(seconds float64) []float32 {
	frames := int(float64(s.sampleRate) * seconds)
	if frames <= 0 {
		return nil
	}
	out := make([]float32, frames*2)
	s.Render(out)
	return out
}

// RenderNote is a convenience for one-shot rendering: trigger a note, hold
// it for holdSeconds, then render the release tail until every voice is
// silent (capped at ten seconds of tail).
func (s *Synthesizer) RenderNote(note, velocity int, holdSeconds float64) []float32 {
	s.NoteOn(note, velocity)
	out := s.RenderSamples(holdSeconds)
	s.NoteOff(note)
	tail := make([]float32, s.sampleRate/10*2)
	for i := 0; i < 100; i++ {
		s.Render(tail)
		out = append(out, tail...)
		if s.ActiveVoiceCount() == 0 {
			break
		}
	}
	return out
}

// WriteWAV writes interleaved stereo float32 samples to a 16-bit PCM WAV
// file at the given rate.
func WriteWAV(path string, samples []float32, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("wav: %w", err)
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 2, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: sampleRate},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, v := range samples {
		if v > 1 {
			v = 1
		}
		if v < -1 {
			v = -1
		}
		buf.Data[i] = int(v * 32767)
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		f.Close()
		return fmt.Errorf("wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("wav: %w", err)
	}
	return f.Close()
}
