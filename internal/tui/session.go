package tui

import (
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fieldworks/hourboard/internal/ingest"
	"github.com/fieldworks/hourboard/internal/store"
	"github.com/fieldworks/hourboard/internal/view"
)

// session owns the per-session dashboard state: the uploaded file set,
// the active schema, and the current unified table. The table is
// rebuilt from scratch whenever the file set changes; sessions never
// share it.
type session struct {
	store  *store.Store
	schema ingest.Schema
	cache  ingest.Cache

	threshold float64
	chart     view.ChartType

	paths   []string
	table   *ingest.Table
	reports []ingest.Report
}

func newSession(st *store.Store, schema ingest.Schema, threshold float64, paths []string) *session {
	chart, err := view.ParseChartType(st.ChartType())
	if err != nil {
		chart = view.ChartBar
	}
	return &session{
		store:     st,
		schema:    schema,
		threshold: threshold,
		chart:     chart,
		paths:     append([]string(nil), paths...),
		table:     &ingest.Table{},
	}
}

// loadCmd re-reads and re-ingests the current file set off the main
// loop. The result lands back in App.Update as a tableMsg. An
// unreadable path only rejects that file; the rest still load.
func (s *session) loadCmd() tea.Cmd {
	paths := append([]string(nil), s.paths...)
	schema := s.schema
	return func() tea.Msg {
		files, failed := ingest.ReadFiles(paths)
		table, reports := s.cache.Ingest(files, schema)
		return tableMsg{table: table, reports: orderReports(paths, failed, reports)}
	}
}

// orderReports restores path order after a load: read failures and
// ingest reports each keep their relative order, one entry per path.
// The files view relies on reports lining up with the path list.
func orderReports(paths []string, failed, ingested []ingest.Report) []ingest.Report {
	out := make([]ingest.Report, 0, len(paths))
	fi, ri := 0, 0
	for _, p := range paths {
		if fi < len(failed) && failed[fi].File == filepath.Base(p) {
			out = append(out, failed[fi])
			fi++
			continue
		}
		if ri < len(ingested) {
			out = append(out, ingested[ri])
			ri++
		}
	}
	return out
}

func (s *session) addPath(path string) {
	for _, p := range s.paths {
		if p == path {
			return
		}
	}
	s.paths = append(s.paths, path)
}

func (s *session) removePath(i int) {
	if i < 0 || i >= len(s.paths) {
		return
	}
	s.paths = append(s.paths[:i], s.paths[i+1:]...)
}

// reloadSchema rebuilds the schema from config defaults plus stored
// aliases and drops the memoized table.
func (s *session) reloadSchema(base ingest.Schema) error {
	schema, err := s.store.ExtendSchema(base)
	if err != nil {
		return fmt.Errorf("extend schema: %w", err)
	}
	s.schema = schema
	s.cache.Invalidate()
	return nil
}
