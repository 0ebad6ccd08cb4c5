package ui

import (
	"encoding/json"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amalg/go-pommerman/internal/game"
	"github.com/amalg/go-pommerman/internal/obs"
)

// frameMsg carries a new tick from the match or replay.
type frameMsg game.Frame

// closedMsg reports that no more frames will arrive.
type closedMsg struct{}

// copiedMsg reports the outcome of copying an observation.
type copiedMsg struct{ err error }

// copyText puts text on the system clipboard. Replaced in tests.
var copyText = clipboard.WriteAll

// Input receives the moves typed by the local player.
type Input interface {
	Set(m game.Move)
}

// Model is the Bubbletea model that shows a match as it is played or
// replayed.
type Model struct {
	frames   <-chan game.Frame
	frame    *game.Frame
	me       int // Agent slot of the local player, -1 when spectating
	input    Input
	start    func()
	started  bool
	ended    bool
	quitting bool
	notice   string
}

// NewModel creates a TUI model fed from frames. me is the slot to
// highlight, or -1.
func NewModel(frames <-chan game.Frame, me int) Model {
	return Model{frames: frames, me: me}
}

// WithInput routes movement keys to in.
func (m Model) WithInput(in Input) Model {
	m.input = in
	return m
}

// WithStart sets the function called when the player presses Enter in the
// lobby. Without it the match is shown as running from the first frame.
func (m Model) WithStart(fn func()) Model {
	m.start = fn
	return m
}

// Init starts listening for frames.
func (m Model) Init() tea.Cmd {
	return waitForFrame(m.frames)
}

// Update handles incoming messages (key presses, frames).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case frameMsg:
		f := game.Frame(msg)
		m.frame = &f
		return m, waitForFrame(m.frames)

	case closedMsg:
		m.ended = true
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.notice = "copy failed: " + msg.err.Error()
		} else {
			m.notice = "observation copied"
		}
		return m, nil
	}

	return m, nil
}

// View renders the current frame.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye! 👋\n"
	}

	lobby := m.start != nil && !m.started
	board := RenderBoard(m.frame, m.me)
	hud := RenderHUD(m.frame, m.me, lobby, m.ended)
	if m.notice != "" {
		hud += "\n" + dimStyle.Render(m.notice)
	}

	// Layout: board on the left, HUD on the right
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		board,
		"  ",
		hud,
	) + "\n"
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "up", "w":
		m.send(game.MoveUp)
	case "down", "s":
		m.send(game.MoveDown)
	case "left", "a":
		m.send(game.MoveLeft)
	case "right", "d":
		m.send(game.MoveRight)
	case " ":
		m.send(game.MoveBomb)
	case "c":
		if m.frame != nil {
			return m, copyObservation(*m.frame, max(m.me, 0))
		}
	case "enter":
		if m.start != nil && !m.started {
			m.started = true
			m.start()
		}
	}

	return m, nil
}

func (m Model) send(move game.Move) {
	if m.input != nil {
		m.input.Set(move)
	}
}

// waitForFrame returns a Cmd that waits for the next frame.
func waitForFrame(frames <-chan game.Frame) tea.Cmd {
	return func() tea.Msg {
		f, ok := <-frames
		if !ok {
			return closedMsg{}
		}
		return frameMsg(f)
	}
}

// copyObservation copies the observation agent id has of the frame as JSON,
// ready to be loaded back with obs.Parse.
func copyObservation(f game.Frame, id int) tea.Cmd {
	return func() tea.Msg {
		b, err := json.Marshal(obs.FromState(&f.State, id))
		if err != nil {
			return copiedMsg{err: err}
		}
		return copiedMsg{err: copyText(string(b))}
	}
}
