// Package web exposes the dashboard core as a stateless JSON API, the
// request/response counterpart to the terminal front-end. No table
// state is kept server-side: data round-trips through the request body,
// so concurrent clients never share a unified table.
package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/fieldworks/hourboard/internal/export"
	"github.com/fieldworks/hourboard/internal/ingest"
	"github.com/fieldworks/hourboard/internal/milestone"
	"github.com/fieldworks/hourboard/internal/view"
)

const maxUploadBytes = 50 << 20

type Server struct {
	schema    ingest.Schema
	threshold float64
}

func NewServer(schema ingest.Schema, threshold float64) *Server {
	if threshold <= 0 {
		threshold = milestone.DefaultThreshold
	}
	return &Server{schema: schema, threshold: threshold}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("POST /visualize", s.handleVisualize)
	mux.HandleFunc("POST /export", s.handleExport)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// ---- /upload ----

type reportPayload struct {
	File        string `json:"file"`
	RowsTotal   int    `json:"rows_total"`
	RowsKept    int    `json:"rows_kept"`
	RowsDropped int    `json:"rows_dropped"`
	Error       string `json:"error,omitempty"`
}

type uploadResponse struct {
	Success bool             `json:"success"`
	Columns []string         `json:"columns"`
	Rows    []export.JSONRow `json:"rows"`
	Reports []reportPayload  `json:"reports"`
	Summary summaryPayload   `json:"summary"`
}

type summaryPayload struct {
	TotalRows      int     `json:"total_rows"`
	Tractors       int     `json:"tractors"`
	AvgHours       float64 `json:"avg_hours"`
	MinHours       float64 `json:"min_hours"`
	MaxHours       float64 `json:"max_hours"`
	Threshold      float64 `json:"threshold"`
	UnderThreshold int     `json:"under_threshold"`
	OverThreshold  int     `json:"over_threshold"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "no files uploaded")
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	files := make([]ingest.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("open %s: %v", fh.Filename, err))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("read %s: %v", fh.Filename, err))
			return
		}
		files = append(files, ingest.File{Name: fh.Filename, Data: data})
	}

	table, reports := ingest.Ingest(files, s.schema)
	if table.Len() == 0 {
		writeError(w, http.StatusBadRequest, "no valid data found in uploaded files")
		return
	}

	agg := milestone.Aggregate(table, s.threshold, "")
	resp := uploadResponse{
		Success: true,
		Columns: view.Columns(table),
		Rows:    export.JSONRows(table.Rows),
		Summary: summaryPayload{
			TotalRows:      table.Len(),
			Tractors:       agg.Tractors,
			AvgHours:       agg.Stats.Mean,
			MinHours:       agg.Stats.Min,
			MaxHours:       agg.Stats.Max,
			Threshold:      agg.Threshold,
			UnderThreshold: agg.Under,
			OverThreshold:  agg.Crossed,
		},
	}
	for _, rep := range reports {
		p := reportPayload{
			File:        rep.File,
			RowsTotal:   rep.RowsTotal,
			RowsKept:    rep.RowsKept,
			RowsDropped: rep.RowsDropped,
			Error:       rep.Reason(),
		}
		resp.Reports = append(resp.Reports, p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ---- /visualize ----

type filterPayload struct {
	Identifier string   `json:"identifier"`
	MinHours   *float64 `json:"min_hours"`
	MaxHours   *float64 `json:"max_hours"`
}

type sortPayload struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc"`
}

type visualizeRequest struct {
	Rows      []export.JSONRow `json:"rows"`
	ChartType string           `json:"chart_type"`
	Filter    filterPayload    `json:"filter"`
	Sort      sortPayload      `json:"sort"`
	Threshold float64          `json:"threshold"`
}

type visualizeResponse struct {
	Success bool             `json:"success"`
	Chart   view.ChartType   `json:"chart"`
	Bars    []view.Bar       `json:"bars,omitempty"`
	Points  []view.Point     `json:"points,omitempty"`
	Columns []string         `json:"columns"`
	Rows    []export.JSONRow `json:"rows"`
}

func (s *Server) handleVisualize(w http.ResponseWriter, r *http.Request) {
	var req visualizeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Rows) == 0 {
		writeError(w, http.StatusBadRequest, "no data provided")
		return
	}
	chart, err := view.ParseChartType(req.ChartType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	threshold := req.Threshold
	if threshold <= 0 {
		threshold = s.threshold
	}
	spec := view.Present(tableFromWire(req.Rows), view.Options{
		Filter:    view.Filter{Identifier: req.Filter.Identifier, MinHours: req.Filter.MinHours, MaxHours: req.Filter.MaxHours},
		Sort:      view.Sort{Field: req.Sort.Field, Desc: req.Sort.Desc},
		Chart:     chart,
		Threshold: threshold,
	})

	writeJSON(w, http.StatusOK, visualizeResponse{
		Success: true,
		Chart:   spec.Chart,
		Bars:    spec.Bars,
		Points:  spec.Points,
		Columns: spec.Columns,
		Rows:    export.JSONRows(spec.Rows),
	})
}

// ---- /export ----

type exportRequest struct {
	Rows   []export.JSONRow `json:"rows"`
	Filter filterPayload    `json:"filter"`
	Sort   sortPayload      `json:"sort"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Rows) == 0 {
		writeError(w, http.StatusBadRequest, "no data provided")
		return
	}

	table := tableFromWire(req.Rows)
	spec := view.Present(table, view.Options{
		Filter: view.Filter{Identifier: req.Filter.Identifier, MinHours: req.Filter.MinHours, MaxHours: req.Filter.MaxHours},
		Sort:   view.Sort{Field: req.Sort.Field, Desc: req.Sort.Desc},
	})

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="tractor_hours.csv"`)
	if err := export.WriteCSV(w, spec.Rows, table.MetaKeys); err != nil {
		// Headers are already out; nothing more to do.
		return
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---- helpers ----

// tableFromWire rebuilds an in-memory table from wire rows, preserving
// order and first-seen metadata keys.
func tableFromWire(rows []export.JSONRow) *ingest.Table {
	t := &ingest.Table{}
	seen := make(map[string]struct{})
	for _, jr := range rows {
		row := ingest.Row{
			Identifier: jr.Identifier,
			SourceFile: jr.SourceFile,
			Meta:       jr.Metadata,
		}
		if jr.Hours != nil {
			row.Hours = *jr.Hours
			row.HasHours = true
		}
		keys := make([]string, 0, len(jr.Metadata))
		for k := range jr.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				t.MetaKeys = append(t.MetaKeys, k)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxUploadBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
