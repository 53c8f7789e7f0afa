package models

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mydemos/lms/cmd/debug/components"
)

// MenuModel handles the main menu view
type MenuModel struct {
	choices []MenuChoice
	cursor  int
	width   int
	height  int
}

// MenuChoice represents a menu option
type MenuChoice struct {
	Title       string
	Description string
	View        ViewType
}

func NewMenuModel() MenuModel {
	return MenuModel{
		choices: []MenuChoice{
			{
				Title:       "Table Browser",
				Description: "Browse the rows of every table",
				View:        TablesView,
			},
			{
				Title:       "Overview",
				Description: "Store health and row counts",
				View:        OverviewView,
			},
		},
	}
}

func (m MenuModel) Init() tea.Cmd {
	return nil
}

func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		} else {
			m.cursor = len(m.choices) - 1
		}

	case "down", "j":
		if m.cursor < len(m.choices)-1 {
			m.cursor++
		} else {
			m.cursor = 0
		}

	case "enter", " ":
		return m, switchTo(m.choices[m.cursor].View)

	case "1", "2":
		choice := int(keyMsg.String()[0] - '1')
		if choice < len(m.choices) {
			m.cursor = choice
			return m, switchTo(m.choices[choice].View)
		}
	}

	return m, nil
}

func switchTo(view ViewType) tea.Cmd {
	return func() tea.Msg {
		return SwitchViewMsg{View: view}
	}
}

func (m MenuModel) View() string {
	var s strings.Builder

	s.WriteString(components.TitleStyle.Render("LMS Debug Tool") + "\n\n")

	menuStyle := components.PanelStyle.Width(60)

	var items []string
	for i, choice := range m.choices {
		item := fmt.Sprintf("%-3s %-16s %s", fmt.Sprintf("%d.", i+1), choice.Title, choice.Description)
		items = append(items, components.Item(i == m.cursor).Render(item))
	}
	s.WriteString(menuStyle.Render(strings.Join(items, "\n")) + "\n\n")

	s.WriteString(components.HelpStyle.Render(
		"Use ↑/↓ or j/k to navigate • Enter or number to select • ? for help • q to quit",
	))

	content := s.String()
	if m.width > 0 {
		if w := lipgloss.Width(content); w < m.width {
			content = lipgloss.NewStyle().PaddingLeft((m.width - w) / 2).Render(content)
		}
	}
	return content
}

// SetSize updates the menu size
func (m *MenuModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}
