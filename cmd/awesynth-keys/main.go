// Command awesynth-keys is a terminal piano for the synthesizer. The middle
// letter row plays white keys, the row above plays black keys, and the
// function keys tweak the engine while notes sound.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	awesynth "github.com/spetrequin/awe-synth-go"
)

const (
	sampleRate = 44100
	noteHold   = 400 * time.Millisecond
)

// keyNotes maps the two piano rows to semitone offsets from the octave base.
var keyNotes = map[string]int{
	"a": 0, "w": 1, "s": 2, "e": 3, "d": 4,
	"f": 5, "t": 6, "g": 7, "y": 8, "h": 9,
	"u": 10, "j": 11, "k": 12, "o": 13, "l": 14,
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type tickMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

type model struct {
	synth    *awesynth.Synthesizer
	octave   int
	velocity int
	reverb   float64
	chorus   float64
	voices   []awesynth.VoiceInfo
	lastNote int
}

func newModel(synth *awesynth.Synthesizer) model {
	return model{
		synth:    synth,
		octave:   4,
		velocity: 100,
		lastNote: -1,
	}
}

func (m model) Init() tea.Cmd {
	return tickCmd()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.voices = m.synth.Voices()
		return m, tickCmd()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "ctrl+c", "q":
		m.synth.Stop()
		return m, tea.Quit
	case "z":
		if m.octave > 0 {
			m.octave--
		}
	case "x":
		if m.octave < 8 {
			m.octave++
		}
	case "c":
		m.velocity -= 10
		if m.velocity < 10 {
			m.velocity = 10
		}
	case "v":
		m.velocity += 10
		if m.velocity > 127 {
			m.velocity = 127
		}
	case "r":
		m.reverb += 0.1
		if m.reverb > 1 {
			m.reverb = 0
		}
		m.synth.SetReverbSend(m.reverb)
	case "n":
		m.chorus += 0.1
		if m.chorus > 1 {
			m.chorus = 0
		}
		m.synth.SetChorusSend(m.chorus)
	case " ":
		m.synth.NoteOff(m.lastNote)
	default:
		if offset, ok := keyNotes[key]; ok {
			note := (m.octave+1)*12 + offset
			if note <= 127 {
				m.synth.NoteOn(note, m.velocity)
				m.lastNote = note
				// Fixed hold; a terminal has no key-up events.
				go func(n int) {
					time.Sleep(noteHold)
					m.synth.NoteOff(n)
				}(note)
			}
		}
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("awesynth keys"))
	b.WriteString("\n\n")

	line := func(label, value string) {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-10s", label)))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}
	line("octave", fmt.Sprintf("%d  (z/x)", m.octave))
	line("velocity", fmt.Sprintf("%d  (c/v)", m.velocity))
	line("reverb", fmt.Sprintf("%.1f  (r)", m.reverb))
	line("chorus", fmt.Sprintf("%.1f  (n)", m.chorus))
	b.WriteString("\n")

	b.WriteString(labelStyle.Render(fmt.Sprintf("voices %d/%d", len(m.voices), awesynth.PoolSize)))
	b.WriteString("\n")
	for _, v := range m.voices {
		b.WriteString(activeStyle.Render(fmt.Sprintf("  note %3d vel %3d %-8s %s", v.Note, v.Velocity, v.Stage, v.Instrument)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("a-l: white keys  w,e,t,y,u,o: black keys  q: quit"))
	b.WriteString("\n")
	return b.String()
}

func main() {
	sf2Path := flag.String("sf2", "", "path to a SoundFont 2 file (empty = sine fallback)")
	preset := flag.String("preset", "", "bank:program to select, e.g. 0:0")
	flag.Parse()

	synth, err := awesynth.New(sampleRate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *sf2Path != "" {
		if err := synth.LoadSoundFont(*sf2Path); err != nil {
			fmt.Fprintf(os.Stderr, "error loading SoundFont: %v\n", err)
			os.Exit(1)
		}
	}
	if *preset != "" {
		var bank, program int
		if _, err := fmt.Sscanf(*preset, "%d:%d", &bank, &program); err != nil {
			fmt.Fprintf(os.Stderr, "invalid -preset %q\n", *preset)
			os.Exit(1)
		}
		if err := synth.SelectPreset(bank, program); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
	if err := synth.Play(); err != nil {
		fmt.Fprintf(os.Stderr, "error opening audio: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(newModel(synth), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
