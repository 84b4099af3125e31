package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"coverme/clipboard"
	"coverme/hotkey"
	"coverme/session"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUI message types
type StateMsg struct{ State session.State }
type NoticeMsg struct{ Text string }     // transient line under the suggestion
type DeviceLineMsg struct{ Text string } // microphone device name
type commandDoneMsg struct {
	op  string
	err error
}
type tickMsg time.Time

// sessionCommands is the part of the controller the TUI drives.
type sessionCommands interface {
	Toggle(ctx context.Context) error
	RetryPermission(ctx context.Context) error
	DismissError()
}

type tuiModel struct {
	ctx        context.Context
	session    sessionCommands
	copy       func(string) error
	state      session.State
	haveState  bool
	frame      int
	width      int
	height     int
	deviceLine string
	headset    string // wireless headset name, if the mic is one
	notice     string
	hotkey     bool // global hotkey registered
}

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

var (
	titleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	subtitleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	activeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	activeDimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("88")).Bold(true)
	idleStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	connectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	noticeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	historyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	helpStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	helpKeyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
)

var bannerStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("208")).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("208")).
	Padding(0, 1)

var cardStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("238")).
	Padding(0, 1)

func newTUIModel(ctx context.Context, cmds sessionCommands, initial session.State, hotkeyOn bool) tuiModel {
	return tuiModel{
		ctx:       ctx,
		session:   cmds,
		copy:      clipboard.Copy,
		state:     initial,
		haveState: true,
		hotkey:    hotkeyOn,
	}
}

func NewTUIProgram(m tuiModel) *tea.Program {
	return tea.NewProgram(m, tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

// run wraps a controller call in a Cmd. Controller calls publish snapshots
// through Program.Send, which must not happen on the Update goroutine.
func (m tuiModel) run(op string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return commandDoneMsg{op: op, err: fn()}
	}
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		m.frame++
		return m, tuiTick()

	case StateMsg:
		// Snapshots can arrive out of order from timer goroutines.
		if m.haveState && msg.State.Version <= m.state.Version {
			return m, nil
		}
		if msg.State.Listening != m.state.Listening {
			m.notice = ""
		}
		m.state = msg.State
		m.haveState = true

	case commandDoneMsg:
		m.notice = commandNotice(msg)

	case NoticeMsg:
		m.notice = msg.Text

	case DeviceLineMsg:
		m.deviceLine = msg.Text
	}
	return m, nil
}

func (m tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case " ", "enter":
		ctx := m.ctx
		return m, m.run("toggle", func() error { return m.session.Toggle(ctx) })
	case "r":
		ctx := m.ctx
		return m, m.run("retry", func() error { return m.session.RetryPermission(ctx) })
	case "x":
		return m, m.run("dismiss", func() error { m.session.DismissError(); return nil })
	case "c":
		text := m.state.CurrentSuggestion
		if text == "" || text == session.ListeningPlaceholder {
			m.notice = "No suggestion to copy yet"
			return m, nil
		}
		copyFn := m.copy
		return m, m.run("copy", func() error { return copyFn(text) })
	}
	return m, nil
}

func commandNotice(msg commandDoneMsg) string {
	switch {
	case msg.err == nil && msg.op == "copy":
		return "Copied suggestion to clipboard"
	case msg.err == nil:
		return ""
	case errors.Is(msg.err, session.ErrBusy):
		return "Still working on the last request..."
	case errors.Is(msg.err, session.ErrListening):
		return "Stop listening before retrying the microphone"
	case errors.Is(msg.err, session.ErrPermissionRequired), errors.Is(msg.err, session.ErrPermissionDenied):
		return "Microphone access is required (press r to retry)"
	case errors.Is(msg.err, session.ErrRecordingStartFailed), errors.Is(msg.err, session.ErrRecordingStopFailed):
		// Already surfaced through State.Error.
		return ""
	case msg.op == "copy":
		return "Copy failed: " + msg.err.Error()
	default:
		return msg.err.Error()
	}
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	s := m.state
	contentWidth := min(m.width-2, 72)
	if contentWidth < 20 {
		contentWidth = 20
	}

	var lines []string

	// Header
	lines = append(lines, titleStyle.Render("CoverMe"))
	lines = append(lines, subtitleStyle.Render("Your AI Conversation Assistant"))
	lines = append(lines, "")

	// Status line
	status := statusText(s)
	if s.Listening {
		dot := activeStyle
		if m.frame%2 == 1 {
			dot = activeDimStyle
		}
		status = dot.Render("●") + " " + activeStyle.Render(status)
	} else {
		status = idleStyle.Render("○ " + status)
	}
	if s.Loading {
		status += dimStyle.Render(" ...")
	}
	lines = append(lines, status)

	// Headset and device
	if s.Connected {
		lines = append(lines, connectedStyle.Render("◉ Headset connected"+headsetSuffix(m.headset)))
	} else {
		lines = append(lines, dimStyle.Render("◌ Connecting to headset..."))
	}
	if m.deviceLine != "" {
		lines = append(lines, dimStyle.Render(m.deviceLine))
	}
	lines = append(lines, "")

	// Permission banner
	if s.Permission == session.PermissionDenied {
		banner := "Microphone permission is required to listen.\nPress r to retry."
		lines = append(lines, bannerStyle.Width(contentWidth-2).Render(banner), "")
	}

	// Error
	if s.Error != "" {
		for _, line := range wrapText("⚠ "+s.Error, contentWidth) {
			lines = append(lines, errorStyle.Render(line))
		}
		lines = append(lines, helpStyle.Render("  (x to dismiss)"), "")
	}

	// Current suggestion
	var card string
	if s.CurrentSuggestion != "" {
		card = suggestionStyle.Render(strings.Join(wrapText(s.CurrentSuggestion, contentWidth-4), "\n"))
	} else {
		card = dimStyle.Render("Press space to start listening")
	}
	lines = append(lines, cardStyle.Width(contentWidth-2).Render(card))

	if m.notice != "" {
		lines = append(lines, noticeStyle.Render(m.notice))
	}
	lines = append(lines, "")

	// History
	if len(s.History) > 0 {
		lines = append(lines, subtitleStyle.Render("Recent suggestions"))
		for i, h := range s.History {
			prefix := fmt.Sprintf("%2d. ", i+1)
			wrapped := wrapText(h, contentWidth-len(prefix))
			for j, w := range wrapped {
				if j > 0 {
					prefix = strings.Repeat(" ", len(prefix))
				}
				lines = append(lines, historyStyle.Render(prefix+w))
			}
		}
		lines = append(lines, "")
	}

	// Help line with version
	help := helpKeyStyle.Render("space") + helpStyle.Render(" listen")
	if m.hotkey {
		help += helpStyle.Render(" (or ") + helpKeyStyle.Render(hotkey.Binding) + helpStyle.Render(")")
	}
	help += helpStyle.Render(" · ") + helpKeyStyle.Render("c") + helpStyle.Render(" copy") +
		helpStyle.Render(" · ") + helpKeyStyle.Render("r") + helpStyle.Render(" retry mic") +
		helpStyle.Render(" · ") + helpKeyStyle.Render("q") + helpStyle.Render(" quit")
	lines = append(lines, help)
	lines = append(lines, helpStyle.Render("coverme "+version))

	return lipgloss.NewStyle().
		MaxHeight(m.height).
		PaddingLeft(1).
		Render(strings.Join(lines, "\n"))
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		// Find last space within width
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}
