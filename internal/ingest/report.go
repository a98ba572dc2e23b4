package ingest

import "fmt"

// ErrKind classifies why a file or row was rejected.
type ErrKind string

const (
	// ErrFileFormat marks a file whose bytes could not be read as CSV
	// text. The whole file is rejected.
	ErrFileFormat ErrKind = "file_format"
	// ErrSchema marks a file with no recognizable identifier or hours
	// column. The whole file is rejected.
	ErrSchema ErrKind = "schema"
	// ErrRow marks a single bad value. The row is dropped, the file
	// continues.
	ErrRow ErrKind = "row"
)

// FileError is a whole-file rejection. The file contributes zero rows;
// the batch continues.
type FileError struct {
	Kind   ErrKind
	Reason string
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// RowError records one dropped row.
type RowError struct {
	Line   int // 1-based line in the source file, header = 1
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Report is the per-file ingestion outcome surfaced to the caller.
type Report struct {
	File        string
	RowsTotal   int
	RowsKept    int
	RowsDropped int

	// Err is non-nil when the whole file was rejected.
	Err *FileError
	// RowErrors lists individually dropped rows.
	RowErrors []RowError
}

// Rejected reports whether the whole file was excluded from the table.
func (r Report) Rejected() bool { return r.Err != nil }

// Reason returns a user-visible summary of what went wrong, or "" for a
// clean file.
func (r Report) Reason() string {
	if r.Err != nil {
		return r.Err.Reason
	}
	if r.RowsDropped > 0 {
		return fmt.Sprintf("%d of %d rows dropped", r.RowsDropped, r.RowsTotal)
	}
	return ""
}
