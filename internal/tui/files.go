package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/fieldworks/hourboard/internal/ingest"
)

type filesModel struct {
	session *session
	width   int
	height  int

	cursor int

	formActive bool
	form       *huh.Form

	// Form field pointer (survives value copies)
	formPath *string
}

func newFilesModel(s *session) filesModel {
	path := ""
	return filesModel{
		session:  s,
		formPath: &path,
	}
}

func (f *filesModel) setSize(w, h int) {
	f.width = w
	f.height = h
}

func (f filesModel) update(msg tea.Msg) (filesModel, tea.Cmd) {
	if f.formActive && f.form != nil {
		return f.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if f.cursor > 0 {
				f.cursor--
			}
		case key.Matches(msg, keys.Down):
			if f.cursor < len(f.session.reports)-1 {
				f.cursor++
			}
		case key.Matches(msg, keys.New):
			return f.showAddForm()
		case key.Matches(msg, keys.Delete):
			if f.cursor < len(f.session.paths) {
				f.session.removePath(f.cursor)
				f.cursor = max(0, min(f.cursor, len(f.session.paths)-1))
				return f, f.session.loadCmd()
			}
		}
	}
	return f, nil
}

func (f filesModel) showAddForm() (filesModel, tea.Cmd) {
	*f.formPath = ""

	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("CSV file path").Value(f.formPath),
		),
	).WithShowHelp(true).WithShowErrors(true)

	f.formActive = true
	return f, f.form.Init()
}

func (f filesModel) updateForm(msg tea.Msg) (filesModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			f.formActive = false
			f.form = nil
			return f, nil
		}
	}

	form, cmd := f.form.Update(msg)
	if hf, ok := form.(*huh.Form); ok {
		f.form = hf
	}

	if f.form.State == huh.StateCompleted {
		f.formActive = false
		path := strings.TrimSpace(*f.formPath)
		if path != "" {
			f.session.addPath(path)
			return f, f.session.loadCmd()
		}
		return f, nil
	}

	return f, cmd
}

func (f filesModel) view() string {
	w := f.width - 4

	if f.formActive && f.form != nil {
		content := lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Add File"), "", f.form.View())
		return panelStyle.Width(w).Render(content)
	}

	title := titleStyle.Render(fmt.Sprintf("Files (%d)", len(f.session.paths)))

	if len(f.session.paths) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title, "",
			mutedStyle.Render("No files loaded. Press n to add a CSV."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title, "")

	for i, report := range f.session.reports {
		cursor := "  "
		style := normalItemStyle
		if i == f.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+truncateLabel(report.File, 40))+"  "+reportBadge(report))
	}
	// Paths added but not yet ingested.
	for i := len(f.session.reports); i < len(f.session.paths); i++ {
		cursor := "  "
		if i == f.cursor {
			cursor = "> "
		}
		rows = append(rows, mutedStyle.Render(cursor+f.session.paths[i]+"  (loading)"))
	}

	if f.cursor < len(f.session.reports) {
		rows = append(rows, "", f.renderReportDetail(f.session.reports[f.cursor]))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: add file  d: remove  r: reload"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func reportBadge(r ingest.Report) string {
	if r.Rejected() {
		return errorStyle.Render("✗ rejected")
	}
	if r.RowsDropped > 0 {
		return warningStyle.Render(fmt.Sprintf("%d kept, %d dropped", r.RowsKept, r.RowsDropped))
	}
	return successStyle.Render(fmt.Sprintf("%d rows", r.RowsKept))
}

func (f filesModel) renderReportDetail(r ingest.Report) string {
	var lines []string
	if r.Err != nil {
		lines = append(lines, errorStyle.Render(fmt.Sprintf("  %s: %s", r.Err.Kind, r.Err.Reason)))
	}
	limit := min(len(r.RowErrors), 8)
	for _, re := range r.RowErrors[:limit] {
		lines = append(lines, warningStyle.Render(fmt.Sprintf("  line %d: %s", re.Line, re.Reason)))
	}
	if len(r.RowErrors) > limit {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("  … %d more row errors", len(r.RowErrors)-limit)))
	}
	if len(lines) == 0 {
		lines = append(lines, mutedStyle.Render("  No problems in this file"))
	}
	return strings.Join(lines, "\n")
}
