package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"coverme/session"
)

// Presenter abstracts the display layer so both the Bubble Tea TUI and the
// plain line output receive the same session updates.
type Presenter interface {
	State(s session.State)
	Notice(text string)
}

type tuiPresenter struct{}

func (tuiPresenter) State(s session.State) { tuiSend(StateMsg{State: s}) }
func (tuiPresenter) Notice(text string)    { tuiSend(NoticeMsg{Text: text}) }

// linePresenter prints one line per visible change, for -tui=false.
type linePresenter struct {
	mu      sync.Mutex
	out     io.Writer
	headset string
	last    session.State
	seen    bool
}

func newLinePresenter(out io.Writer) *linePresenter {
	return &linePresenter{out: out}
}

func (p *linePresenter) State(s session.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seen && s.Version <= p.last.Version {
		return
	}
	prev := p.last
	p.last, p.seen = s, true

	if s.Connected && !prev.Connected {
		fmt.Fprintln(p.out, "headset connected"+headsetSuffix(p.headset))
	}
	if s.Permission != prev.Permission {
		fmt.Fprintf(p.out, "microphone permission: %s\n", s.Permission)
	}
	if s.Listening != prev.Listening {
		fmt.Fprintln(p.out, statusText(s))
	}
	if s.CurrentSuggestion != prev.CurrentSuggestion && s.CurrentSuggestion != "" {
		fmt.Fprintf(p.out, "> %s\n", s.CurrentSuggestion)
	}
	if s.Error != prev.Error && s.Error != "" {
		fmt.Fprintf(p.out, "error: %s\n", s.Error)
	}
	if s.LastArtifact != prev.LastArtifact && s.LastArtifact != "" {
		fmt.Fprintf(p.out, "saved recording: %s\n", s.LastArtifact)
	}
}

func (p *linePresenter) Notice(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, strings.TrimSpace(text))
}

// headsetSuffix names the headset after the connected status, when the
// microphone is one.
func headsetSuffix(name string) string {
	if name == "" {
		return ""
	}
	return ": " + name
}

func statusText(s session.State) string {
	if s.Listening {
		return "Active Conversation"
	}
	return "Ready to Assist"
}
