package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/fieldworks/hourboard/internal/ingest"
	"github.com/fieldworks/hourboard/internal/view"
)

type tableModel struct {
	session *session
	width   int
	height  int

	filter view.Filter
	sortBy view.Sort
	cursor int
	rows   []ingest.Row
	cols   []string

	formActive bool
	form       *huh.Form

	// Form field pointers (survive value copies)
	formIdentifier *string
	formMinHours   *string
	formMaxHours   *string
}

func newTableModel(s *session) tableModel {
	ident, minH, maxH := "", "", ""
	return tableModel{
		session:        s,
		formIdentifier: &ident,
		formMinHours:   &minH,
		formMaxHours:   &maxH,
	}
}

func (t *tableModel) setSize(w, h int) {
	t.width = w
	t.height = h
}

// rebuild recomputes the visible rows from the session table under the
// current filter and sort.
func (t *tableModel) rebuild() {
	spec := view.Present(t.session.table, view.Options{
		Filter: t.filter,
		Sort:   t.sortBy,
	})
	t.rows = spec.Rows
	t.cols = spec.Columns
	if t.cursor >= len(t.rows) {
		t.cursor = max(0, len(t.rows)-1)
	}
}

func (t tableModel) update(msg tea.Msg) (tableModel, tea.Cmd) {
	if t.formActive && t.form != nil {
		return t.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if t.cursor > 0 {
				t.cursor--
			}
		case key.Matches(msg, keys.Down):
			if t.cursor < len(t.rows)-1 {
				t.cursor++
			}
		case key.Matches(msg, keys.Filter):
			return t.showFilterForm()
		case key.Matches(msg, keys.Enter):
			t.cycleSort()
			t.rebuild()
		case key.Matches(msg, keys.Back):
			t.filter = view.Filter{}
			t.sortBy = view.Sort{}
			t.rebuild()
		}
	}
	return t, nil
}

// cycleSort steps through identifier asc, hours desc, source file asc,
// then back to insertion order.
func (t *tableModel) cycleSort() {
	switch {
	case t.sortBy.Field == "":
		t.sortBy = view.Sort{Field: ingest.FieldIdentifier}
	case t.sortBy.Field == ingest.FieldIdentifier:
		t.sortBy = view.Sort{Field: ingest.FieldHours, Desc: true}
	case t.sortBy.Field == ingest.FieldHours:
		t.sortBy = view.Sort{Field: "source_file"}
	default:
		t.sortBy = view.Sort{}
	}
}

func (t tableModel) showFilterForm() (tableModel, tea.Cmd) {
	*t.formIdentifier = t.filter.Identifier
	*t.formMinHours = ""
	*t.formMaxHours = ""
	if t.filter.MinHours != nil {
		*t.formMinHours = strconv.FormatFloat(*t.filter.MinHours, 'f', -1, 64)
	}
	if t.filter.MaxHours != nil {
		*t.formMaxHours = strconv.FormatFloat(*t.filter.MaxHours, 'f', -1, 64)
	}

	t.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Tractor contains").Value(t.formIdentifier),
			huh.NewInput().Title("Min hours (blank for none)").Value(t.formMinHours),
			huh.NewInput().Title("Max hours (blank for none)").Value(t.formMaxHours),
		),
	).WithShowHelp(true).WithShowErrors(true)

	t.formActive = true
	return t, t.form.Init()
}

func (t tableModel) updateForm(msg tea.Msg) (tableModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			t.formActive = false
			t.form = nil
			return t, nil
		}
	}

	form, cmd := t.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		t.form = f
	}

	if t.form.State == huh.StateCompleted {
		t.formActive = false
		t.filter = view.Filter{
			Identifier: strings.TrimSpace(*t.formIdentifier),
			MinHours:   parseBound(*t.formMinHours),
			MaxHours:   parseBound(*t.formMaxHours),
		}
		t.cursor = 0
		t.rebuild()
		return t, nil
	}

	return t, cmd
}

func parseBound(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func (t tableModel) view() string {
	w := t.width - 4

	if t.formActive && t.form != nil {
		content := lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Filter Rows"), "", t.form.View())
		return panelStyle.Width(w).Render(content)
	}

	title := titleStyle.Render(fmt.Sprintf("Data Table (%d rows)", len(t.rows)))
	if t.filterActive() {
		title += "  " + warningStyle.Render("filtered")
	}
	if t.sortBy.Field != "" {
		dir := "asc"
		if t.sortBy.Desc {
			dir = "desc"
		}
		title += "  " + mutedStyle.Render(fmt.Sprintf("sort: %s %s", t.sortBy.Field, dir))
	}

	if len(t.rows) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title, "",
			mutedStyle.Render("No rows match. f: filter  esc: clear"),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title, "")
	rows = append(rows, mutedStyle.Render("  "+t.renderCells(headerCells(t.cols))))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 70))))

	visible := t.visibleWindow()
	for i := visible.start; i < visible.end; i++ {
		cursor := "  "
		style := normalItemStyle
		if i == t.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+t.renderCells(rowCells(t.rows[i], t.cols))))
	}
	if visible.end < len(t.rows) {
		rows = append(rows, mutedStyle.Render(fmt.Sprintf("  … %d more", len(t.rows)-visible.end)))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  f: filter  enter: cycle sort  esc: clear"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (t tableModel) filterActive() bool {
	return t.filter.Identifier != "" || t.filter.MinHours != nil || t.filter.MaxHours != nil
}

type window struct{ start, end int }

func (t tableModel) visibleWindow() window {
	capacity := t.height - 12
	if capacity < 5 {
		capacity = 5
	}
	start := 0
	if t.cursor >= capacity {
		start = t.cursor - capacity + 1
	}
	end := min(start+capacity, len(t.rows))
	return window{start: start, end: end}
}

func headerCells(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		switch c {
		case ingest.FieldIdentifier:
			out[i] = "Tractor"
		case ingest.FieldHours:
			out[i] = "Hours"
		case "source_file":
			out[i] = "File"
		default:
			out[i] = c
		}
	}
	return out
}

func rowCells(r ingest.Row, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		switch c {
		case ingest.FieldIdentifier:
			out[i] = r.Identifier
		case ingest.FieldHours:
			out[i] = hoursCell(r)
		case "source_file":
			out[i] = r.SourceFile
		default:
			out[i] = r.Meta[c]
		}
	}
	return out
}

func (t tableModel) renderCells(cells []string) string {
	widths := []int{20, 10, 18}
	var parts []string
	for i, c := range cells {
		w := 12
		if i < len(widths) {
			w = widths[i]
		}
		parts = append(parts, fmt.Sprintf("%-*s", w, truncateLabel(c, w-1)))
	}
	return strings.Join(parts, " ")
}
