package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fieldworks/hourboard/internal/export"
	"github.com/fieldworks/hourboard/internal/ingest"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	return NewServer(ingest.DefaultSchema(), 900).Handler()
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func wireRows() []export.JSONRow {
	h1, h2 := 1250.5, 890.2
	return []export.JSONRow{
		{Identifier: "Tractor_A", Hours: &h1, SourceFile: "fleet.csv",
			Metadata: map[string]string{"location": "North"}},
		{Identifier: "Tractor_B", Hours: &h2, SourceFile: "fleet.csv",
			Metadata: map[string]string{"location": "South"}},
		{Identifier: "Plow_1", SourceFile: "other.csv"},
	}
}

// ============================================================
// /upload
// ============================================================

func TestUpload(t *testing.T) {
	h := newTestServer(t)
	body, ctype := multipartBody(t, map[string]string{
		"fleet.csv": "nickname,last_known_engine_hrs\nTractor_A,1250.5\nTractor_B,890.2\n",
	})

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp struct {
		Success bool `json:"success"`
		Rows    []struct {
			Identifier string   `json:"identifier"`
			Hours      *float64 `json:"hours"`
		} `json:"rows"`
		Reports []struct {
			File     string `json:"file"`
			RowsKept int    `json:"rows_kept"`
		} `json:"reports"`
		Summary struct {
			Tractors       int     `json:"tractors"`
			UnderThreshold int     `json:"under_threshold"`
			Threshold      float64 `json:"threshold"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || len(resp.Rows) != 2 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Reports[0].RowsKept != 2 {
		t.Fatalf("report = %+v", resp.Reports[0])
	}
	if resp.Summary.Tractors != 2 || resp.Summary.UnderThreshold != 1 || resp.Summary.Threshold != 900 {
		t.Fatalf("summary = %+v", resp.Summary)
	}
}

func TestUploadNoFiles(t *testing.T) {
	h := newTestServer(t)
	body, ctype := multipartBody(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestUploadAllFilesRejected(t *testing.T) {
	h := newTestServer(t)
	body, ctype := multipartBody(t, map[string]string{
		"bad.csv": "serial,weight\n1,2\n",
	})

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), "no valid data") {
		t.Fatalf("body = %s", rec.Body)
	}
}

// ============================================================
// /visualize
// ============================================================

func TestVisualizeBar(t *testing.T) {
	h := newTestServer(t)
	body, _ := json.Marshal(map[string]any{
		"rows":       wireRows(),
		"chart_type": "bar",
	})

	req := httptest.NewRequest(http.MethodPost, "/visualize", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp struct {
		Chart string `json:"chart"`
		Bars  []struct {
			Label string  `json:"label"`
			Value float64 `json:"value"`
		} `json:"bars"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Chart != "bar" || len(resp.Bars) != 2 {
		t.Fatalf("resp = %+v", resp)
	}
	// Ascending by hours.
	if resp.Bars[0].Label != "Tractor_B" || resp.Bars[1].Label != "Tractor_A" {
		t.Fatalf("bars = %+v", resp.Bars)
	}
}

func TestVisualizeFilterAndSort(t *testing.T) {
	h := newTestServer(t)
	body, _ := json.Marshal(map[string]any{
		"rows":       wireRows(),
		"chart_type": "scatter",
		"filter":     map[string]any{"identifier": "tractor"},
		"sort":       map[string]any{"field": "hours", "desc": true},
	})

	req := httptest.NewRequest(http.MethodPost, "/visualize", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp struct {
		Rows []struct {
			Identifier string `json:"identifier"`
		} `json:"rows"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Rows) != 2 {
		t.Fatalf("rows = %+v", resp.Rows)
	}
	if resp.Rows[0].Identifier != "Tractor_A" || resp.Rows[1].Identifier != "Tractor_B" {
		t.Fatalf("sorted rows = %+v", resp.Rows)
	}
}

func TestVisualizeBadChart(t *testing.T) {
	h := newTestServer(t)
	body, _ := json.Marshal(map[string]any{"rows": wireRows(), "chart_type": "donut"})

	req := httptest.NewRequest(http.MethodPost, "/visualize", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestVisualizeNoData(t *testing.T) {
	h := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/visualize", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

// ============================================================
// /export
// ============================================================

func TestExportCSV(t *testing.T) {
	h := newTestServer(t)
	body, _ := json.Marshal(map[string]any{"rows": wireRows()})

	req := httptest.NewRequest(http.MethodPost, "/export", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "tractor_hours.csv") {
		t.Fatalf("content disposition = %q", cd)
	}

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("csv lines = %v", lines)
	}
	if lines[0] != "identifier,hours,source_file,location" {
		t.Fatalf("header = %q", lines[0])
	}
	// Missing hours stays empty.
	if !strings.HasPrefix(lines[3], "Plow_1,,") {
		t.Fatalf("missing hours row = %q", lines[3])
	}
}

// ============================================================
// /healthz
// ============================================================

func TestHealth(t *testing.T) {
	h := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
