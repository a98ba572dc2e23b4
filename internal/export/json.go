package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fieldworks/hourboard/internal/ingest"
	"github.com/fieldworks/hourboard/internal/milestone"
)

type jsonExport struct {
	ExportedAt string      `json:"exported_at"`
	Count      int         `json:"count"`
	Summary    jsonSummary `json:"summary"`
	Rows       []JSONRow   `json:"rows"`
}

type jsonSummary struct {
	Tractors  int     `json:"tractors"`
	Files     int     `json:"files"`
	AvgHours  float64 `json:"avg_hours"`
	MinHours  float64 `json:"min_hours"`
	MaxHours  float64 `json:"max_hours"`
	Threshold float64 `json:"threshold"`
	Crossed   int     `json:"crossed"`
	Under     int     `json:"under"`
}

// JSONRow is the wire form of one table row. Missing hours are omitted,
// never rendered as 0.
type JSONRow struct {
	Identifier string            `json:"identifier"`
	Hours      *float64          `json:"hours,omitempty"`
	SourceFile string            `json:"source_file"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// JSONRows converts table rows to their wire form.
func JSONRows(rows []ingest.Row) []JSONRow {
	out := make([]JSONRow, 0, len(rows))
	for _, r := range rows {
		jr := JSONRow{
			Identifier: r.Identifier,
			SourceFile: r.SourceFile,
			Metadata:   r.Meta,
		}
		if r.HasHours {
			h := r.Hours
			jr.Hours = &h
		}
		out = append(out, jr)
	}
	return out
}

// JSONBytes renders the rows plus milestone summary as an indented JSON
// document.
func JSONBytes(rows []ingest.Row, threshold float64) ([]byte, error) {
	t := &ingest.Table{Rows: rows}
	agg := milestone.Aggregate(t, threshold, "")

	doc := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(rows),
		Summary: jsonSummary{
			Tractors:  agg.Tractors,
			Files:     agg.Files,
			AvgHours:  agg.Stats.Mean,
			MinHours:  agg.Stats.Min,
			MaxHours:  agg.Stats.Max,
			Threshold: threshold,
			Crossed:   agg.Crossed,
			Under:     agg.Under,
		},
		Rows: JSONRows(rows),
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return data, nil
}

// ToJSONFile writes the rows plus summary to a file at path.
func ToJSONFile(path string, rows []ingest.Row, threshold float64) error {
	data, err := JSONBytes(rows, threshold)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
