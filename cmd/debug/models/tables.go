package models

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/mydemos/lms/cmd/debug/components"
	"github.com/mydemos/lms/internal/db"
)

const maxColumnWidth = 32

type tableLoadedMsg struct {
	data TableData
	err  error
}

// TablesModel browses one table at a time. Left and right switch tables,
// up and down move the row cursor.
type TablesModel struct {
	database *db.Database
	table    int
	data     TableData
	err      error
	cursor   int
	offset   int
	width    int
	height   int
}

func NewTablesModel(database *db.Database) TablesModel {
	return TablesModel{database: database}
}

func (m TablesModel) Init() tea.Cmd {
	return m.load()
}

func (m TablesModel) load() tea.Cmd {
	database, name := m.database, TableNames[m.table]
	return func() tea.Msg {
		data, err := LoadTable(context.Background(), database, name)
		if err != nil {
			log.Debug("Failed to load table", "table", name, "error", err)
		}
		return tableLoadedMsg{data: data, err: err}
	}
}

func (m TablesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tableLoadedMsg:
		m.data, m.err = msg.data, msg.err
		if m.cursor >= len(m.data.Rows) {
			m.cursor = max(len(m.data.Rows)-1, 0)
		}
		m.scroll()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "left", "h":
			m.table = (m.table + len(TableNames) - 1) % len(TableNames)
			m.cursor, m.offset = 0, 0
			return m, m.load()
		case "right", "l":
			m.table = (m.table + 1) % len(TableNames)
			m.cursor, m.offset = 0, 0
			return m, m.load()
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.data.Rows)-1 {
				m.cursor++
			}
		case "r":
			return m, m.load()
		}
		m.scroll()
	}
	return m, nil
}

// visibleRows is how many data rows fit below the title and header.
func (m TablesModel) visibleRows() int {
	if m.height <= 0 {
		return 20
	}
	return max(m.height-10, 1)
}

func (m *TablesModel) scroll() {
	n := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+n {
		m.offset = m.cursor - n + 1
	}
}

func (m TablesModel) View() string {
	var s strings.Builder

	s.WriteString(components.TitleStyle.Render("Table Browser") + "\n")

	var tabs []string
	for i, name := range TableNames {
		tabs = append(tabs, components.Item(i == m.table).Render(name))
	}
	s.WriteString(strings.Join(tabs, " ") + "\n\n")

	switch {
	case m.err != nil:
		s.WriteString(components.ErrorStyle.Render("Error: "+m.err.Error()) + "\n")
	case len(m.data.Columns) == 0:
		s.WriteString(components.HelpStyle.Render("Loading...") + "\n")
	default:
		s.WriteString(m.renderTable())
	}

	status := fmt.Sprintf("%s • %d rows • ←/→ table • ↑/↓ row • r refresh • q back", TableNames[m.table], len(m.data.Rows))
	s.WriteString("\n" + components.StatusStyle.Width(m.width).Render(status))
	return s.String()
}

func (m TablesModel) renderTable() string {
	widths := make([]int, len(m.data.Columns))
	for i, col := range m.data.Columns {
		widths[i] = len(col)
	}
	for _, row := range m.data.Rows {
		for i, cell := range row {
			widths[i] = min(max(widths[i], len([]rune(cell))), maxColumnWidth)
		}
	}

	var s strings.Builder
	header := make([]string, len(m.data.Columns))
	for i, col := range m.data.Columns {
		header[i] = components.HeaderStyle.Render(pad(truncate(col, widths[i]), widths[i]))
	}
	s.WriteString(strings.Join(header, "") + "\n")

	if len(m.data.Rows) == 0 {
		s.WriteString(components.HelpStyle.Render("(no rows)") + "\n")
		return s.String()
	}

	end := min(m.offset+m.visibleRows(), len(m.data.Rows))
	for r := m.offset; r < end; r++ {
		style := components.Row(r, m.cursor)
		cells := make([]string, len(m.data.Rows[r]))
		for i, cell := range m.data.Rows[r] {
			cells[i] = style.Render(pad(truncate(cell, widths[i]), widths[i]))
		}
		s.WriteString(strings.Join(cells, "") + "\n")
	}
	return s.String()
}

// SetSize updates the browser size
func (m *TablesModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}
