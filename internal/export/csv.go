package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/fieldworks/hourboard/internal/ingest"
)

// WriteCSV serializes rows with the canonical column order: identifier,
// hours, source_file, then metadata keys in first-seen order. Hours are
// fixed to 2 decimal places; missing hours become an empty field.
func WriteCSV(w io.Writer, rows []ingest.Row, metaKeys []string) error {
	cw := csv.NewWriter(w)

	header := append([]string{ingest.FieldIdentifier, ingest.FieldHours, "source_file"}, metaKeys...)
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, 0, len(header))
	for _, r := range rows {
		record = record[:0]
		record = append(record, r.Identifier, formatHours(r), r.SourceFile)
		for _, k := range metaKeys {
			record = append(record, r.Meta[k])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// CSVBytes renders the rows to CSV in memory.
func CSVBytes(rows []ingest.Row, metaKeys []string) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows, metaKeys); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToCSVFile writes the rows to a file at path.
func ToCSVFile(path string, rows []ingest.Row, metaKeys []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	if err := WriteCSV(f, rows, metaKeys); err != nil {
		return err
	}
	return f.Close()
}

func formatHours(r ingest.Row) string {
	if !r.HasHours {
		return ""
	}
	return fmt.Sprintf("%.2f", r.Hours)
}
