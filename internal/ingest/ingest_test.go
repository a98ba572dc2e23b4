package ingest

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func ingestOne(t *testing.T, name, data string) (*Table, Report) {
	t.Helper()
	table, reports := Ingest([]File{{Name: name, Data: []byte(data)}}, DefaultSchema())
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}
	return table, reports[0]
}

// ============================================================
// Hours coercion
// ============================================================

func TestParseHours(t *testing.T) {
	cases := []struct {
		in      string
		want    float64
		missing bool
		bad     bool
	}{
		{"1250.5", 1250.5, false, false},
		{" 890.2 ", 890.2, false, false},
		{"1,250.5", 1250.5, false, false},
		{"2,100", 2100, false, false},
		{"950 hrs", 950, false, false},
		{"950hrs", 950, false, false},
		{"1,050.25 hours", 1050.25, false, false},
		{"12h", 12, false, false},
		{"0", 0, false, false},
		{"", 0, true, false},
		{"   ", 0, true, false},
		{"N/A", 0, false, true},
		{"unknown", 0, false, true},
		{"-5", 0, false, true},
		{"NaN", 0, false, true},
		{"Inf", 0, false, true},
	}
	for _, c := range cases {
		got, missing, err := ParseHours(c.in)
		if c.bad {
			if err == nil {
				t.Errorf("ParseHours(%q): expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseHours(%q): %v", c.in, err)
			continue
		}
		if missing != c.missing {
			t.Errorf("ParseHours(%q): missing = %v, want %v", c.in, missing, c.missing)
		}
		if !missing && math.Abs(got-c.want) > 1e-9 {
			t.Errorf("ParseHours(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

// ============================================================
// Single-file ingestion
// ============================================================

func TestIngestBasic(t *testing.T) {
	table, rep := ingestOne(t, "fleet.csv",
		"nickname,last_known_engine_hrs\nTractor_A,1250.5\nTractor_B,890.2\n")

	if rep.Rejected() {
		t.Fatalf("file rejected: %v", rep.Err)
	}
	if rep.RowsTotal != 2 || rep.RowsKept != 2 || rep.RowsDropped != 0 {
		t.Fatalf("report = %+v", rep)
	}
	if table.Len() != 2 {
		t.Fatalf("table has %d rows, want 2", table.Len())
	}

	a := table.Rows[0]
	if a.Identifier != "Tractor_A" || !a.HasHours || a.Hours != 1250.5 {
		t.Fatalf("row 0 = %+v", a)
	}
	if a.SourceFile != "fleet.csv" {
		t.Fatalf("source file = %q", a.SourceFile)
	}
}

func TestIngestDropsBadRowKeepsRest(t *testing.T) {
	table, rep := ingestOne(t, "fleet.csv",
		"nickname,last_known_engine_hrs\nTractor_A,1250.5\nTractor_C,N/A\nTractor_B,890.2\n")

	if rep.RowsDropped != 1 {
		t.Fatalf("rows_dropped = %d, want 1", rep.RowsDropped)
	}
	if rep.RowsKept != 2 || table.Len() != 2 {
		t.Fatalf("row isolation violated: kept=%d table=%d", rep.RowsKept, table.Len())
	}
	if len(rep.RowErrors) != 1 || rep.RowErrors[0].Line != 3 {
		t.Fatalf("row errors = %v", rep.RowErrors)
	}
	if table.Rows[1].Identifier != "Tractor_B" {
		t.Fatalf("wrong surviving rows: %+v", table.Rows)
	}
}

func TestIngestEmptyHoursIsMissingNotDropped(t *testing.T) {
	table, rep := ingestOne(t, "f.csv", "nickname,hours\nTractor_A,\n")
	if rep.RowsDropped != 0 || table.Len() != 1 {
		t.Fatalf("empty hours should keep the row: %+v", rep)
	}
	if table.Rows[0].HasHours {
		t.Fatal("hours should be marked missing")
	}
}

func TestIngestEmptyIdentifierDropped(t *testing.T) {
	_, rep := ingestOne(t, "f.csv", "nickname,hours\n  ,100\nB,200\n")
	if rep.RowsDropped != 1 || rep.RowsKept != 1 {
		t.Fatalf("report = %+v", rep)
	}
}

func TestIngestNegativeHoursDropped(t *testing.T) {
	_, rep := ingestOne(t, "f.csv", "nickname,hours\nA,-12\n")
	if rep.RowsDropped != 1 {
		t.Fatalf("negative hours should drop the row: %+v", rep)
	}
}

func TestIngestMetadataColumns(t *testing.T) {
	table, _ := ingestOne(t, "f.csv",
		"nickname,hours,Timestamp,Operator\nA,100,2025-10-14,Sam\n")

	row := table.Rows[0]
	if row.Meta["date"] != "2025-10-14" {
		t.Fatalf("date meta = %q", row.Meta["date"])
	}
	if row.Meta["Operator"] != "Sam" {
		t.Fatalf("operator meta = %q", row.Meta["Operator"])
	}
	if len(table.MetaKeys) != 2 || table.MetaKeys[0] != "date" || table.MetaKeys[1] != "Operator" {
		t.Fatalf("meta keys = %v", table.MetaKeys)
	}
}

func TestIngestSchemaError(t *testing.T) {
	table, rep := ingestOne(t, "noid.csv", "serial,weight\n1,2\n")
	if !rep.Rejected() {
		t.Fatal("expected whole-file rejection")
	}
	if rep.Err.Kind != ErrSchema {
		t.Fatalf("kind = %v, want %v", rep.Err.Kind, ErrSchema)
	}
	if table.Len() != 0 {
		t.Fatal("rejected file must contribute zero rows")
	}
}

func TestIngestBinaryRejected(t *testing.T) {
	_, rep := ingestOne(t, "bin.dat", "PK\x03\x04\x00\x00junk")
	if !rep.Rejected() || rep.Err.Kind != ErrFileFormat {
		t.Fatalf("expected file_format rejection, got %+v", rep)
	}
}

func TestIngestEmptyFileRejected(t *testing.T) {
	_, rep := ingestOne(t, "empty.csv", "")
	if !rep.Rejected() || rep.Err.Kind != ErrFileFormat {
		t.Fatalf("expected file_format rejection, got %+v", rep)
	}
}

func TestIngestLatin1(t *testing.T) {
	// "Gr\xfcn" is Latin-1 for Grün and is not valid UTF-8.
	table, rep := ingestOne(t, "l1.csv", "nickname,hours\nGr\xfcn,42\n")
	if rep.Rejected() {
		t.Fatalf("latin-1 file rejected: %v", rep.Err)
	}
	if table.Rows[0].Identifier != "Grün" {
		t.Fatalf("identifier = %q, want Grün", table.Rows[0].Identifier)
	}
}

// ============================================================
// Multi-file ingestion
// ============================================================

func TestIngestMultipleFilesUnify(t *testing.T) {
	files := []File{
		{Name: "a.csv", Data: []byte("Nickname,Engine Hours\nA1,100\n")},
		{Name: "b.csv", Data: []byte("tractor_name,last_known_engine_hrs\nB1,200\n")},
	}
	table, reports := Ingest(files, DefaultSchema())

	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	for _, r := range reports {
		if r.Rejected() {
			t.Fatalf("file %s rejected: %v", r.File, r.Err)
		}
	}
	if table.Len() != 2 {
		t.Fatalf("unified table has %d rows, want 2", table.Len())
	}
	if table.Rows[0].SourceFile != "a.csv" || table.Rows[1].SourceFile != "b.csv" {
		t.Fatal("upload order not preserved")
	}
}

func TestIngestBadFileDoesNotAbortBatch(t *testing.T) {
	files := []File{
		{Name: "bad.csv", Data: []byte("serial\n1\n")},
		{Name: "good.csv", Data: []byte("nickname,hours\nA,10\n")},
	}
	table, reports := Ingest(files, DefaultSchema())
	if !reports[0].Rejected() {
		t.Fatal("first file should be rejected")
	}
	if reports[1].Rejected() || table.Len() != 1 {
		t.Fatal("second file should survive the batch")
	}
}

func TestReadFilesCollectsUnreadablePaths(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.csv")
	if err := os.WriteFile(good, []byte("nickname,hours\nA,10\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	files, failed := ReadFiles([]string{good, filepath.Join(dir, "missing.csv")})
	if len(files) != 1 || files[0].Name != "good.csv" {
		t.Fatalf("readable file should survive the batch, got %+v", files)
	}
	if len(failed) != 1 || failed[0].File != "missing.csv" {
		t.Fatalf("unreadable path should surface as a report, got %+v", failed)
	}
	if !failed[0].Rejected() || failed[0].Err.Kind != ErrFileFormat {
		t.Fatalf("unexpected failure report: %+v", failed[0])
	}
}

func TestIngestDuplicatesPreserved(t *testing.T) {
	files := []File{
		{Name: "a.csv", Data: []byte("nickname,hours\nSame,100\n")},
		{Name: "b.csv", Data: []byte("nickname,hours\nSame,150\n")},
	}
	table, _ := Ingest(files, DefaultSchema())
	if table.Len() != 2 {
		t.Fatalf("duplicates must be preserved, got %d rows", table.Len())
	}
}

// ============================================================
// Cache
// ============================================================

func TestCacheReuseAndInvalidate(t *testing.T) {
	files := []File{{Name: "a.csv", Data: []byte("nickname,hours\nA,10\n")}}
	var c Cache

	t1, _ := c.Ingest(files, DefaultSchema())
	t2, _ := c.Ingest(files, DefaultSchema())
	if t1 != t2 {
		t.Fatal("unchanged file set should return the memoized table")
	}

	changed := []File{{Name: "a.csv", Data: []byte("nickname,hours\nA,20\n")}}
	t3, _ := c.Ingest(changed, DefaultSchema())
	if t3 == t1 {
		t.Fatal("changed file set should rebuild the table")
	}
	if t3.Rows[0].Hours != 20 {
		t.Fatalf("stale data after change: %+v", t3.Rows[0])
	}

	c.Invalidate()
	t4, _ := c.Ingest(changed, DefaultSchema())
	if t4 == t3 {
		t.Fatal("Invalidate should drop the memoized table")
	}
}

func TestFingerprintSensitivity(t *testing.T) {
	a := []File{{Name: "a.csv", Data: []byte("x")}}
	b := []File{{Name: "b.csv", Data: []byte("x")}}
	c := []File{{Name: "a.csv", Data: []byte("y")}}
	if Fingerprint(a) == Fingerprint(b) || Fingerprint(a) == Fingerprint(c) {
		t.Fatal("fingerprint must cover names and contents")
	}
	if Fingerprint(a) != Fingerprint(a) {
		t.Fatal("fingerprint must be deterministic")
	}
}

func TestReportReason(t *testing.T) {
	_, rep := ingestOne(t, "f.csv", "nickname,hours\nA,bad\nB,1\n")
	if !strings.Contains(rep.Reason(), "1 of 2 rows dropped") {
		t.Fatalf("reason = %q", rep.Reason())
	}
}
