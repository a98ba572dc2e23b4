package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fieldworks/hourboard/internal/milestone"
)

const standingsLimit = 10

type dashboardModel struct {
	session *session
	width   int
	height  int
}

func newDashboardModel(s *session) dashboardModel {
	return dashboardModel{session: s}
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

func (d dashboardModel) view() string {
	if d.width < 20 {
		return "Terminal too small"
	}
	w := d.width - 4

	res := milestone.Aggregate(d.session.table, d.session.threshold, "")

	metrics := d.renderMetricsPanel(w, res)
	standings := d.renderStandingsPanel(w, res)

	return lipgloss.JoinVertical(lipgloss.Left, metrics, standings)
}

func (d dashboardModel) renderMetricsPanel(w int, res milestone.Result) string {
	if d.session.table.Len() == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Fleet Overview"),
			mutedStyle.Render("No data loaded. Press 4 to add CSV files."),
		)
		return panelStyle.Width(w).Render(content)
	}

	metric := func(label, value string) string {
		return fmt.Sprintf("  %s %s",
			mutedStyle.Render(fmt.Sprintf("%-18s", label)),
			highlightStyle.Render(value))
	}

	rows := []string{
		titleStyle.Render("Fleet Overview"),
		metric("Rows", fmt.Sprintf("%d", d.session.table.Len())),
		metric("Tractors", fmt.Sprintf("%d", res.Tractors)),
		metric("Files", fmt.Sprintf("%d", res.Files)),
	}
	if res.Stats.Count > 0 {
		rows = append(rows,
			metric("Average hours", formatHours(res.Stats.Mean)),
			metric("Max hours", formatHours(res.Stats.Max)),
			metric("Min hours", formatHours(res.Stats.Min)),
		)
	}
	rows = append(rows, metric(
		fmt.Sprintf("Under %.0f hrs", res.Threshold),
		fmt.Sprintf("%d of %d", res.Under, res.Tractors)))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (d dashboardModel) renderStandingsPanel(w int, res milestone.Result) string {
	title := titleStyle.Render(fmt.Sprintf("Milestone Standings (threshold %.0f)", res.Threshold))
	if len(res.Entries) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title, mutedStyle.Render("No readings yet"),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, mutedStyle.Render(
		fmt.Sprintf("  %-20s %10s %10s  %s", "Tractor", "Hours", "Margin", "Status")))

	limit := min(len(res.Entries), standingsLimit)
	for _, e := range res.Entries[:limit] {
		status := successStyle.Render("● under")
		if e.Crossed {
			status = errorStyle.Render("● over")
		}
		rows = append(rows, fmt.Sprintf("  %-20s %10s %+10.1f  %s",
			e.Identifier, formatHours(e.Hours), e.Margin, status))
	}
	if len(res.Entries) > limit {
		rows = append(rows, mutedStyle.Render(
			fmt.Sprintf("  … %d more", len(res.Entries)-limit)))
	}

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
