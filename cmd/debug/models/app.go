package models

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/mydemos/lms/internal/db"
)

// ViewType represents the different views in the debug tool
type ViewType int

const (
	MenuView ViewType = iota
	TablesView
	OverviewView
	viewCount
)

// ParseView maps a --view flag value to a view; unknown names select the
// menu.
func ParseView(name string) ViewType {
	switch name {
	case "tables":
		return TablesView
	case "overview":
		return OverviewView
	default:
		return MenuView
	}
}

// App is the main application model
type App struct {
	database *db.Database

	currentView ViewType
	width       int
	height      int

	menu     MenuModel
	tables   TablesModel
	overview OverviewModel

	showHelp bool
}

func NewApp(database *db.Database, startView ViewType) *App {
	return &App{
		database:    database,
		currentView: startView,
		menu:        NewMenuModel(),
		tables:      NewTablesModel(database),
		overview:    NewOverviewModel(database),
	}
}

func (m *App) Init() tea.Cmd {
	log.Debug("Initializing debug tool", "view", m.currentView)
	return m.initCurrent()
}

func (m *App) initCurrent() tea.Cmd {
	switch m.currentView {
	case TablesView:
		return m.tables.Init()
	case OverviewView:
		return m.overview.Init()
	default:
		return m.menu.Init()
	}
}

func (m *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.menu.SetSize(msg.Width, msg.Height)
		m.tables.SetSize(msg.Width, msg.Height)
		m.overview.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q", "esc":
			if m.currentView == MenuView {
				return m, tea.Quit
			}
			// Back to the menu instead of quitting
			m.currentView = MenuView
			m.showHelp = false
			return m, m.menu.Init()
		case "?":
			m.showHelp = !m.showHelp
			return m, nil
		case "tab":
			m.currentView = (m.currentView + 1) % viewCount
			return m, m.initCurrent()
		}

	case SwitchViewMsg:
		m.currentView = msg.View
		return m, m.initCurrent()
	}

	if m.showHelp {
		return m, nil
	}

	var cmd tea.Cmd
	var next tea.Model
	switch m.currentView {
	case MenuView:
		next, cmd = m.menu.Update(msg)
		m.menu = next.(MenuModel)
	case TablesView:
		next, cmd = m.tables.Update(msg)
		m.tables = next.(TablesModel)
	case OverviewView:
		next, cmd = m.overview.Update(msg)
		m.overview = next.(OverviewModel)
	}
	return m, cmd
}

func (m *App) View() string {
	if m.showHelp {
		return helpText
	}

	switch m.currentView {
	case TablesView:
		return m.tables.View()
	case OverviewView:
		return m.overview.View()
	default:
		return m.menu.View()
	}
}

const helpText = `
 LMS Debug Tool - Help

 Global Keys:
   q, Esc       Quit (from menu) / Back to menu
   Ctrl+C       Quit
   ?            Toggle this help
   Tab          Cycle through views
   1-2          Select view (from menu)

 Table Browser:
   ←/→, h/l     Previous / next table
   ↑/↓, j/k     Move the row cursor
   r            Refresh

 Press ? again to close this help
`

// SwitchViewMsg is a message to switch views
type SwitchViewMsg struct {
	View ViewType
}
