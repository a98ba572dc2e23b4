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
	"github.com/fieldworks/hourboard/internal/store"
	"github.com/fieldworks/hourboard/internal/view"
)

type settingsModel struct {
	session *session
	width   int
	height  int

	aliases []store.Alias
	cursor  int

	formActive bool
	form       *huh.Form
	formType   string // "settings", "alias"

	// Form values as pointers (survive value copies)
	threshold  *string
	chartType  *string
	exportDir  *string
	aliasField *string
	aliasName  *string
}

func newSettingsModel(s *session) settingsModel {
	th, ct, ed := "", "", ""
	af, an := "", ""
	return settingsModel{
		session:    s,
		threshold:  &th,
		chartType:  &ct,
		exportDir:  &ed,
		aliasField: &af,
		aliasName:  &an,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type aliasesDataMsg struct {
	aliases []store.Alias
}

func (s settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		aliases, _ := s.session.store.ListAliases()
		return aliasesDataMsg{aliases: aliases}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case aliasesDataMsg:
		s.aliases = msg.aliases
		if s.cursor >= len(s.aliases) {
			s.cursor = max(0, len(s.aliases)-1)
		}
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if s.cursor > 0 {
				s.cursor--
			}
		case key.Matches(msg, keys.Down):
			if s.cursor < len(s.aliases)-1 {
				s.cursor++
			}
		case key.Matches(msg, keys.Enter):
			return s.showSettingsForm()
		case key.Matches(msg, keys.New):
			return s.showAliasForm()
		case key.Matches(msg, keys.Delete):
			if s.cursor < len(s.aliases) {
				s.session.store.DeleteAlias(s.aliases[s.cursor].ID)
				return s, tea.Batch(s.refresh(), func() tea.Msg { return settingsSavedMsg{} })
			}
		}
	}
	return s, nil
}

func (s settingsModel) showSettingsForm() (settingsModel, tea.Cmd) {
	*s.threshold = strconv.FormatFloat(s.session.store.Threshold(), 'f', -1, 64)
	*s.chartType = s.getVal("chart_type", "bar")
	*s.exportDir = s.getVal("export_dir", "")
	s.formType = "settings"

	chartOptions := make([]huh.Option[string], len(view.ChartTypes))
	for i, t := range view.ChartTypes {
		chartOptions[i] = huh.NewOption(chartLabel(t), string(t))
	}

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Service milestone (hours)").Value(s.threshold).
				Validate(func(v string) error {
					n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
					if err != nil || n <= 0 {
						return fmt.Errorf("enter a positive number")
					}
					return nil
				}),
			huh.NewSelect[string]().Title("Default chart").Options(chartOptions...).Value(s.chartType),
			huh.NewInput().Title("Export directory (blank for home)").Value(s.exportDir),
		),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) showAliasForm() (settingsModel, tea.Cmd) {
	*s.aliasField = ingest.FieldIdentifier
	*s.aliasName = ""
	s.formType = "alias"

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Column").
				Options(
					huh.NewOption("Tractor identifier", ingest.FieldIdentifier),
					huh.NewOption("Engine hours", ingest.FieldHours),
					huh.NewOption("Date", "date"),
					huh.NewOption("Location", "location"),
				).Value(s.aliasField),
			huh.NewInput().Title("Header alias (as it appears in the CSV)").Value(s.aliasName),
		),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		switch s.formType {
		case "settings":
			s.saveSettings()
		case "alias":
			if alias := strings.TrimSpace(*s.aliasName); alias != "" {
				s.session.store.AddAlias(*s.aliasField, alias)
			}
		}
		return s, tea.Batch(s.refresh(), func() tea.Msg { return settingsSavedMsg{} })
	}

	return s, cmd
}

func (s settingsModel) saveSettings() {
	if v, err := strconv.ParseFloat(strings.TrimSpace(*s.threshold), 64); err == nil && v > 0 {
		s.session.store.SetThreshold(v)
	}
	s.session.store.SetSetting("chart_type", *s.chartType)
	s.session.store.SetSetting("export_dir", strings.TrimSpace(*s.exportDir))
}

func (s settingsModel) getVal(k, fallback string) string {
	v, err := s.session.store.GetSetting(k)
	if err != nil || v == "" {
		return fallback
	}
	return v
}

func (s settingsModel) view() string {
	w := s.width - 4

	if s.formActive && s.form != nil {
		title := titleStyle.Render("Settings")
		if s.formType == "alias" {
			title = titleStyle.Render("New Column Alias")
		}
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	var rows []string
	rows = append(rows, titleStyle.Render("Settings"), "")

	setting := func(label, value string) string {
		return fmt.Sprintf("  %s %s",
			lipgloss.NewStyle().Width(24).Render(label),
			highlightStyle.Render(value))
	}
	exportDir := s.getVal("export_dir", "")
	if exportDir == "" {
		exportDir = "(home directory)"
	}
	rows = append(rows,
		setting("Service milestone", fmt.Sprintf("%.0f hours", s.session.store.Threshold())),
		setting("Default chart", s.getVal("chart_type", "bar")),
		setting("Export directory", exportDir),
	)

	rows = append(rows, "", titleStyle.Render("Column Aliases"), "")
	if len(s.aliases) == 0 {
		rows = append(rows, mutedStyle.Render("  No custom aliases. Press n to add one."))
	}
	for i, a := range s.aliases {
		cursor := "  "
		style := normalItemStyle
		if i == s.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%-14s → %s", cursor, a.Field, a.Alias)))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: edit settings  n: new alias  d: delete alias"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
