package tui

import (
	"fmt"

	"github.com/fieldworks/hourboard/internal/ingest"
)

// viewState represents the currently active view.
type viewState int

const (
	viewDashboard viewState = iota
	viewCharts
	viewTable
	viewFiles
	viewSettings
)

var viewNames = []string{"Dashboard", "Charts", "Table", "Files", "Settings"}

// --- Messages ---

// tableMsg carries a freshly rebuilt unified table.
type tableMsg struct {
	table   *ingest.Table
	reports []ingest.Report
}

type statusMsg struct {
	text    string
	isError bool
}

type exportDoneMsg struct {
	path string
}

type settingsSavedMsg struct{}

// --- Helpers ---

func formatHours(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

func hoursCell(r ingest.Row) string {
	if !r.HasHours {
		return "—"
	}
	return fmt.Sprintf("%.2f", r.Hours)
}

func errStatus(err error) statusMsg {
	return statusMsg{text: fmt.Sprintf("Error: %v", err), isError: true}
}
