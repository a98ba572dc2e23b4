package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// File is one uploaded CSV file.
type File struct {
	Name string
	Data []byte
}

// ReadFiles loads the given paths into Files, preserving order. An
// unreadable path does not abort the batch: it becomes a whole-file
// report and the remaining paths still load.
func ReadFiles(paths []string) ([]File, []Report) {
	files := make([]File, 0, len(paths))
	var failed []Report
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			failed = append(failed, Report{
				File: filepath.Base(p),
				Err:  &FileError{Kind: ErrFileFormat, Reason: err.Error()},
			})
			continue
		}
		files = append(files, File{Name: filepath.Base(p), Data: data})
	}
	return files, failed
}

// Ingest parses the files into a unified table, applying the schema's
// header normalization and coercing hours to numeric. Failures are
// collected into the per-file reports; no error aborts the batch, and a
// failed file simply contributes zero rows.
func Ingest(files []File, schema Schema) (*Table, []Report) {
	table := &Table{}
	reports := make([]Report, 0, len(files))
	for _, f := range files {
		reports = append(reports, ingestFile(f, schema, table))
	}
	return table, reports
}

func ingestFile(f File, schema Schema, table *Table) Report {
	rep := Report{File: f.Name}

	text, err := decodeText(f.Data)
	if err != nil {
		rep.Err = &FileError{Kind: ErrFileFormat, Reason: err.Error()}
		return rep
	}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		rep.Err = &FileError{Kind: ErrFileFormat, Reason: "missing or unreadable header row"}
		return rep
	}

	cols, err := schema.Resolve(header)
	if err != nil {
		rep.Err = &FileError{Kind: ErrSchema, Reason: err.Error()}
		return rep
	}

	line := 1
	for {
		record, err := r.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			rep.RowsTotal++
			rep.RowsDropped++
			rep.RowErrors = append(rep.RowErrors, RowError{Line: line, Reason: "malformed CSV record"})
			continue
		}
		rep.RowsTotal++

		row, rowErr := buildRow(record, cols, f.Name)
		if rowErr != "" {
			rep.RowsDropped++
			rep.RowErrors = append(rep.RowErrors, RowError{Line: line, Reason: rowErr})
			continue
		}

		for k := range row.Meta {
			table.addMetaKey(k)
		}
		table.Rows = append(table.Rows, row)
		rep.RowsKept++
	}
	return rep
}

// buildRow assembles one Row, returning a non-empty reason when the row
// must be dropped.
func buildRow(record []string, cols ColumnMap, source string) (Row, string) {
	row := Row{SourceFile: source}

	row.Identifier = strings.TrimSpace(cell(record, cols.Identifier))
	if row.Identifier == "" {
		return Row{}, "empty identifier"
	}

	raw := cell(record, cols.Hours)
	hours, missing, err := ParseHours(raw)
	if err != nil {
		return Row{}, fmt.Sprintf("bad hours value %q", strings.TrimSpace(raw))
	}
	if !missing {
		row.Hours = hours
		row.HasHours = true
	}

	for _, mc := range cols.Meta {
		v := strings.TrimSpace(cell(record, mc.Index))
		if row.Meta == nil {
			row.Meta = make(map[string]string, len(cols.Meta))
		}
		row.Meta[mc.Key] = v
	}
	return row, ""
}

func cell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

var hoursSuffixes = []string{"hours", "hrs", "hr", "h"}

// ParseHours coerces an hours cell to a finite non-negative number.
// Thousands separators and a trailing unit ("1,250.5 hrs") are accepted.
// An empty cell means missing, reported via the second return; anything
// else that does not parse is an error.
func ParseHours(s string) (float64, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true, nil
	}
	v := strings.ToLower(s)
	for _, suf := range hoursSuffixes {
		if strings.HasSuffix(v, suf) {
			v = strings.TrimSpace(strings.TrimSuffix(v, suf))
			break
		}
	}
	v = strings.ReplaceAll(v, ",", "")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse hours %q: %w", s, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false, fmt.Errorf("hours %q is not finite", s)
	}
	if f < 0 {
		return 0, false, fmt.Errorf("hours %q is negative", s)
	}
	return f, false, nil
}

// decodeText interprets file bytes as UTF-8, falling back to Latin-1.
// NUL bytes mark the input as binary, not CSV.
func decodeText(data []byte) (string, error) {
	if bytes.IndexByte(data, 0) >= 0 {
		return "", errors.New("binary data, not CSV text")
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if utf8.Valid(data) {
		return string(data), nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode latin-1: %w", err)
	}
	return string(out), nil
}
