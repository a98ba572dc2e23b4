package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fieldworks/hourboard/internal/export"
	"github.com/fieldworks/hourboard/internal/ingest"
	"github.com/fieldworks/hourboard/internal/store"
)

// App is the root Bubble Tea model.
type App struct {
	session    *session
	baseSchema ingest.Schema
	width      int
	height     int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	dashboard dashboardModel
	charts    chartsModel
	table     tableModel
	files     filesModel
	settings  settingsModel

	help   help.Model
	status string
}

// NewApp builds the shell. baseSchema is the alias set before stored
// aliases are applied; paths are the CSV files to load on startup.
func NewApp(st *store.Store, baseSchema ingest.Schema, paths []string) App {
	h := help.New()
	h.ShowAll = false

	schema, err := st.ExtendSchema(baseSchema)
	if err != nil {
		schema = baseSchema
	}
	s := newSession(st, schema, st.Threshold(), paths)

	return App{
		session:    s,
		baseSchema: baseSchema,
		activeView: viewDashboard,
		dashboard:  newDashboardModel(s),
		charts:     newChartsModel(s),
		table:      newTableModel(s),
		files:      newFilesModel(s),
		settings:   newSettingsModel(s),
		help:       h,
	}
}

func (a App) Init() tea.Cmd {
	return a.session.loadCmd()
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.dashboard.setSize(a.width, contentHeight)
		a.charts.setSize(a.width, contentHeight)
		a.table.setSize(a.width, contentHeight)
		a.files.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		a.charts.buildChart()
		return a, nil

	case tableMsg:
		a.session.table = msg.table
		a.session.reports = msg.reports
		a.status = loadStatus(msg.reports)
		// Every view renders from the table; refresh the derived ones.
		a.charts.buildChart()
		a.table.rebuild()
		return a, nil

	case tea.KeyMsg:
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Reload):
			return a, a.reload()
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewDashboard
			return a, nil
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewCharts
			a.charts.buildChart()
			return a, nil
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewTable
			a.table.rebuild()
			return a, nil
		case key.Matches(msg, keys.Tab4):
			a.activeView = viewFiles
			return a, nil
		case key.Matches(msg, keys.Tab5):
			a.activeView = viewSettings
			return a, a.settings.refresh()
		case key.Matches(msg, keys.Tab):
			if a.activeView != viewCharts {
				a.activeView = (a.activeView + 1) % 5
				if a.activeView == viewSettings {
					return a, a.settings.refresh()
				}
				return a, nil
			}
		}

	case statusMsg:
		a.status = msg.text
		return a, nil

	case settingsSavedMsg:
		// Threshold, default chart, or aliases changed; rebuild from
		// scratch so the new schema applies.
		a.session.threshold = a.session.store.Threshold()
		a.status = "Settings saved"
		return a, a.reload()

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.exportPicking = false
		return a, nil
	}

	return a.updateActiveView(msg)
}

func (a App) reload() tea.Cmd {
	if err := a.session.reloadSchema(a.baseSchema); err != nil {
		return func() tea.Msg { return errStatus(err) }
	}
	return a.session.loadCmd()
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewCharts:
		a.charts, cmd = a.charts.update(msg)
	case viewTable:
		a.table, cmd = a.table.update(msg)
	case viewFiles:
		a.files, cmd = a.files.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewTable:
		return a.table.formActive
	case viewFiles:
		return a.files.formActive
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewDashboard:
		content = a.dashboard.view()
	case viewCharts:
		content = a.charts.view()
	case viewTable:
		content = a.table.view()
	case viewFiles:
		content = a.files.view()
	case viewSettings:
		content = a.settings.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("hourboard")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		status = mutedStyle.Render(" " + a.status)
	}

	left := footerStyle.Render(helpView)
	right := status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export Format")
	formats := []string{"CSV", "JSON"}
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range formats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < 1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format int) tea.Cmd {
	// Export what the table tab shows: when a filter or sort is
	// active, serialize that view instead of the full table.
	rows := append([]ingest.Row(nil), a.session.table.Rows...)
	if a.table.filterActive() || a.table.sortBy.Field != "" {
		rows = append([]ingest.Row(nil), a.table.rows...)
	}
	metaKeys := append([]string(nil), a.session.table.MetaKeys...)
	threshold := a.session.threshold

	dir, _ := a.session.store.GetSetting("export_dir")
	if dir == "" {
		dir, _ = os.UserHomeDir()
	}

	return func() tea.Msg {
		dateStr := time.Now().Format("2006-01-02")

		var path string
		if format == 0 {
			path = filepath.Join(dir, fmt.Sprintf("tractor-hours-%s.csv", dateStr))
			if err := export.ToCSVFile(path, rows, metaKeys); err != nil {
				return statusMsg{text: fmt.Sprintf("CSV error: %v", err), isError: true}
			}
		} else {
			path = filepath.Join(dir, fmt.Sprintf("tractor-hours-%s.json", dateStr))
			if err := export.ToJSONFile(path, rows, threshold); err != nil {
				return statusMsg{text: fmt.Sprintf("JSON error: %v", err), isError: true}
			}
		}

		return exportDoneMsg{path: path}
	}
}

func loadStatus(reports []ingest.Report) string {
	var kept, dropped, rejected int
	for _, r := range reports {
		kept += r.RowsKept
		dropped += r.RowsDropped
		if r.Rejected() {
			rejected++
		}
	}
	s := fmt.Sprintf("Loaded %d rows from %d files", kept, len(reports))
	if dropped > 0 {
		s += fmt.Sprintf(", %d rows dropped", dropped)
	}
	if rejected > 0 {
		s += fmt.Sprintf(", %d files rejected", rejected)
	}
	return s
}
