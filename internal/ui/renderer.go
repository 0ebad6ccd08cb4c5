package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/amalg/go-pommerman/internal/game"
)

// Color palette
var (
	background = lipgloss.Color("#1a1a2e")

	// Tile styles
	rigidStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#3a3a3a")).
			Foreground(lipgloss.Color("#555555"))

	woodStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#8B6914")).
			Foreground(lipgloss.Color("#A0772B"))

	passageStyle = lipgloss.NewStyle().
			Background(background).
			Foreground(background)

	bombStyle = lipgloss.NewStyle().
			Background(background).
			Foreground(lipgloss.Color("#ff4444")).
			Bold(true)

	flameStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#ff6600")).
			Foreground(lipgloss.Color("#ffcc00")).
			Bold(true)

	powerUpStyle = lipgloss.NewStyle().
			Background(background).
			Foreground(lipgloss.Color("#44ffff")).
			Bold(true)

	fogStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#2a2a2a")).
			Foreground(lipgloss.Color("#777777"))

	// Agent colors, one per slot
	agentColors = []lipgloss.Color{
		lipgloss.Color("#00ff88"), // Green
		lipgloss.Color("#4488ff"), // Blue
		lipgloss.Color("#ff44ff"), // Magenta
		lipgloss.Color("#ffff44"), // Yellow
	}

	deadAgentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Strikethrough(true)

	// HUD styles
	hudBorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff8844")).
			Bold(true)

	lobbyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#44aaff")).
			Bold(true)

	winnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ff88")).
			Bold(true).
			Blink(true)

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// RenderBoard converts the frame's board into a styled terminal string.
func RenderBoard(frame *game.Frame, me int) string {
	if frame == nil {
		return "Waiting for the first tick..."
	}
	s := &frame.State

	rows := make([]string, 0, game.BoardSize)
	for y := 0; y < game.BoardSize; y++ {
		cells := make([]string, 0, game.BoardSize)
		for x := 0; x < game.BoardSize; x++ {
			cells = append(cells, renderCell(s, game.Position{X: x, Y: y}, me))
		}
		rows = append(rows, strings.Join(cells, ""))
	}
	return strings.Join(rows, "\n")
}

// renderCell renders a single board cell with the appropriate style.
// Each cell is 2 characters wide for a square-ish appearance.
func renderCell(s *game.State, p game.Position, me int) string {
	it := s.Board.At(p)
	switch it.Kind {
	case game.AgentItem:
		id := int(it.Agent)
		color := agentColors[id%len(agentColors)]
		style := lipgloss.NewStyle().
			Background(background).
			Foreground(color).
			Bold(true)
		if it.HasBombBeneath() {
			style = style.Underline(true)
		}

		label := fmt.Sprintf("P%d", id+1)
		if id == me {
			label = "██"
			style = style.Background(color)
		}
		return style.Render(label)

	case game.FlameItem:
		return flameStyle.Render("░░")

	case game.BombItem:
		if b := s.GetBomb(p.X, p.Y); b != nil && b.Timer < 10 {
			return bombStyle.Render(fmt.Sprintf("(%d", b.Timer))
		}
		return bombStyle.Render("()")

	case game.Rigid:
		return rigidStyle.Render("██")
	case game.Wood:
		return woodStyle.Render("▒▒")
	case game.ExtraBomb:
		return powerUpStyle.Render("+b")
	case game.IncrRange:
		return powerUpStyle.Render("+r")
	case game.Kick:
		return powerUpStyle.Render("+k")
	case game.Fog:
		return fogStyle.Render("??")
	case game.AgentDummy:
		return fogStyle.Render("P?")
	default:
		return passageStyle.Render("  ")
	}
}

// RenderHUD renders the heads-up display showing agent info and match status.
func RenderHUD(frame *game.Frame, me int, lobby, ended bool) string {
	var parts []string

	// Title
	parts = append(parts, titleStyle.Render("💣 POMMERMAN"))
	parts = append(parts, "")

	switch {
	case lobby:
		parts = append(parts, lobbyStyle.Render("⏳ LOBBY"))
		parts = append(parts, "   Press [Enter] to start!")
	case frame == nil:
		parts = append(parts, dimStyle.Render("waiting..."))
	case frame.Status == game.StatusOver:
		if frame.Winner >= 0 {
			parts = append(parts, winnerStyle.Render(fmt.Sprintf("🏆 AGENT %d WINS!", frame.Winner+1)))
		} else {
			parts = append(parts, dimStyle.Render("💀 DRAW"))
		}
	default:
		parts = append(parts, lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444")).Render("🔥 MATCH IN PROGRESS"))
	}
	if ended && (frame == nil || frame.Status != game.StatusOver) {
		parts = append(parts, dimStyle.Render("(no more ticks)"))
	}
	parts = append(parts, "")

	if frame != nil {
		s := &frame.State
		parts = append(parts, dimStyle.Render(fmt.Sprintf("Step %d  Wood %d  Chain %d", s.TimeStep, s.WoodDemolished, s.LongestChainedBombDistance)))
		parts = append(parts, "")

		// Agent list
		parts = append(parts, dimStyle.Render("Agents:"))
		for id := range s.Agents {
			parts = append(parts, renderAgentLine(&s.Agents[id], frame.Moves[id], me))
		}

		if line := renderReport(frame.Report); line != "" {
			parts = append(parts, "")
			parts = append(parts, dimStyle.Render(line))
		}
	}

	parts = append(parts, "")
	parts = append(parts, lipgloss.NewStyle().Foreground(lipgloss.Color("#555555")).Render("WASD/Arrows: Move | Space: Bomb | C: Copy obs | Q: Quit"))

	return hudBorderStyle.Render(strings.Join(parts, "\n"))
}

func renderAgentLine(a *game.AgentInfo, last game.Move, me int) string {
	nameStyle := lipgloss.NewStyle().Foreground(agentColors[a.ID%len(agentColors)])
	status := "❤️ "
	if a.Dead {
		status = "💀"
		nameStyle = deadAgentStyle
	}

	marker := "  "
	if a.ID == me {
		marker = "→ "
	}

	kick := ""
	if a.CanKick {
		kick = " 🦶"
	}
	return fmt.Sprintf("%s%s %s [💣×%d 🔥%d%s] %s",
		marker,
		status,
		nameStyle.Render(fmt.Sprintf("Agent %d", a.ID+1)),
		max(a.MaxBombCount-a.BombCount, 0),
		a.BombStrength,
		kick,
		dimStyle.Render(last.String()),
	)
}

// renderReport summarises the notable events of the last tick.
func renderReport(r game.StepReport) string {
	var events []string
	if r.Kicks > 0 {
		events = append(events, fmt.Sprintf("%d kick(s)", r.Kicks))
	}
	if r.Swaps > 0 {
		events = append(events, fmt.Sprintf("%d swap(s) blocked", r.Swaps))
	}
	if r.Ouroboros {
		events = append(events, "ouroboros")
	}
	if r.Deaths > 0 {
		events = append(events, fmt.Sprintf("%d death(s)", r.Deaths))
	}
	return strings.Join(events, ", ")
}
