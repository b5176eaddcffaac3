// Package tui implements the Bubble Tea decision browser.
// Uses the Charmbracelet ecosystem: Bubble Tea and Lip Gloss.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hookguard/hookguard/internal/db"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#cba6f7"))

	cursorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#89b4fa"))

	denyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#f38ba8"))

	allowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a6e3a1"))

	blockStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fab387"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6c7086"))
)

// Model browses recent hook decisions.
type Model struct {
	decisions []*db.Decision
	cursor    int
	ready     bool
	width     int
	height    int
}

// New creates a browser over the given decisions, newest first.
func New(decisions []*db.Decision) Model {
	return Model{decisions: decisions}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.decisions)-1 {
				m.cursor++
			}
		case "g":
			m.cursor = 0
		case "G":
			if len(m.decisions) > 0 {
				m.cursor = len(m.decisions) - 1
			}
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("hookguard decisions"))
	b.WriteString("\n\n")

	if len(m.decisions) == 0 {
		b.WriteString(mutedStyle.Render("No decisions recorded yet."))
		b.WriteString("\n")
		return b.String()
	}

	for i, d := range m.decisions {
		cursor := "  "
		if i == m.cursor {
			cursor = cursorStyle.Render("> ")
		}
		line := fmt.Sprintf("%s%s  %-11s %-9s %s",
			cursor,
			d.CreatedAt.Format("15:04:05"),
			d.Event,
			outcomeStyle(d.Decision).Render(d.Decision),
			summaryOf(d),
		)
		b.WriteString(line)
		b.WriteString("\n")
	}

	sel := m.decisions[m.cursor]
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(detailOf(sel)))
	b.WriteString("\n\n")
	b.WriteString(mutedStyle.Render("j/k move  g/G jump  q quit"))
	return b.String()
}

func outcomeStyle(outcome string) lipgloss.Style {
	switch outcome {
	case db.OutcomeDeny:
		return denyStyle
	case db.OutcomeBlock:
		return blockStyle
	default:
		return allowStyle
	}
}

func summaryOf(d *db.Decision) string {
	if d.Command != "" {
		return d.Command
	}
	return d.Category
}

func detailOf(d *db.Decision) string {
	parts := []string{"id: " + d.ID}
	if d.SessionID != "" {
		parts = append(parts, "session: "+d.SessionID)
	}
	if d.Category != "" {
		parts = append(parts, "category: "+d.Category)
	}
	if d.Reason != "" {
		parts = append(parts, "reason: "+d.Reason)
	}
	return strings.Join(parts, "\n")
}

// Run starts the browser over the decisions.
func Run(decisions []*db.Decision) error {
	p := tea.NewProgram(New(decisions), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
