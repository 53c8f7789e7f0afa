// Package components holds the lipgloss theme of the debug browser.
package components

import "github.com/charmbracelet/lipgloss"

// Library palette: ink on paper with a leather binding accent.
var (
	Ink     = lipgloss.AdaptiveColor{Light: "#2B2118", Dark: "#EDE6D6"}
	Faded   = lipgloss.AdaptiveColor{Light: "#7A6F60", Dark: "#9C9385"}
	Paper   = lipgloss.AdaptiveColor{Light: "#F4EFE4", Dark: "#2A2622"}
	Binding = lipgloss.Color("#8C2F39")
	Spine   = lipgloss.Color("#3E6259")
	Alert   = lipgloss.Color("#D1495B")
	Ok      = lipgloss.Color("#6A994E")
)

var (
	TitleStyle    = lipgloss.NewStyle().Foreground(Binding).Bold(true).Padding(1, 2)
	SubtitleStyle = lipgloss.NewStyle().Foreground(Spine).Bold(true).Underline(true)
	PanelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(Binding).Padding(1, 2)
	ErrorStyle    = lipgloss.NewStyle().Foreground(Alert).Bold(true)
	HelpStyle     = lipgloss.NewStyle().Foreground(Faded).Italic(true)
	StatusStyle   = lipgloss.NewStyle().Foreground(Paper).Background(Spine).Padding(0, 1)
	HeaderStyle   = lipgloss.NewStyle().Foreground(Binding).Bold(true).Padding(0, 1)

	itemStyle     = lipgloss.NewStyle().Foreground(Ink).Padding(0, 1)
	selectedStyle = itemStyle.Foreground(Paper).Background(Binding).Bold(true)
	evenRowStyle  = itemStyle
	oddRowStyle   = itemStyle.Background(Paper)
)

// Item styles a menu entry or tab.
func Item(selected bool) lipgloss.Style {
	if selected {
		return selectedStyle
	}
	return itemStyle
}

// Row styles table row i; the row under the cursor is highlighted and the
// others alternate shading.
func Row(i, cursor int) lipgloss.Style {
	switch {
	case i == cursor:
		return selectedStyle
	case i%2 == 1:
		return oddRowStyle
	default:
		return evenRowStyle
	}
}

// HealthColor returns the status color for a health flag.
func HealthColor(healthy bool) lipgloss.TerminalColor {
	if healthy {
		return Ok
	}
	return Alert
}
