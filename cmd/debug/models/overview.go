package models

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mydemos/lms/cmd/debug/components"
	"github.com/mydemos/lms/internal/db"
)

type overviewLoadedMsg struct {
	overview Overview
	err      error
}

// OverviewModel handles the system overview view
type OverviewModel struct {
	database *db.Database
	overview Overview
	loaded   bool
	err      error
	width    int
	height   int
}

func NewOverviewModel(database *db.Database) OverviewModel {
	return OverviewModel{database: database}
}

func (m OverviewModel) Init() tea.Cmd {
	database := m.database
	return func() tea.Msg {
		o, err := LoadOverview(context.Background(), database)
		return overviewLoadedMsg{overview: o, err: err}
	}
}

func (m OverviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case overviewLoadedMsg:
		m.overview, m.err, m.loaded = msg.overview, msg.err, true
	case tea.KeyMsg:
		if msg.String() == "r" {
			return m, m.Init()
		}
	}
	return m, nil
}

func (m OverviewModel) View() string {
	var s strings.Builder

	s.WriteString(components.TitleStyle.Render("System Overview") + "\n\n")

	switch {
	case !m.loaded:
		s.WriteString(components.HelpStyle.Render("Loading...") + "\n")
	case m.err != nil:
		s.WriteString(components.ErrorStyle.Render("Error: "+m.err.Error()) + "\n")
	default:
		health := "unhealthy"
		if m.overview.Healthy {
			health = "healthy"
		}
		healthStyle := lipgloss.NewStyle().Foreground(components.HealthColor(m.overview.Healthy)).Bold(true)

		var lines []string
		lines = append(lines, components.SubtitleStyle.Render("Store"))
		lines = append(lines, fmt.Sprintf("  provider  %s", m.overview.Provider))
		lines = append(lines, fmt.Sprintf("  status    %s", healthStyle.Render(health)))
		lines = append(lines, "", components.SubtitleStyle.Render("Rows"))
		for _, c := range m.overview.Counts {
			lines = append(lines, fmt.Sprintf("  %-12s %6d", c.Name, c.Count))
		}
		s.WriteString(components.PanelStyle.Render(strings.Join(lines, "\n")) + "\n\n")
	}

	s.WriteString(components.StatusStyle.Width(m.width).Render("Press 'r' to refresh • 'q' to go back"))
	return s.String()
}

// SetSize updates the overview size
func (m *OverviewModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}
