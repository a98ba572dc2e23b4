package ingest

// Row is one normalized reading from an uploaded file. Rows are immutable
// after ingestion.
type Row struct {
	Identifier string
	Hours      float64
	HasHours   bool // false when the hours cell was empty
	SourceFile string
	Meta       map[string]string
}

// Table is the unified, ordered result of ingesting a set of files.
// Order is file upload order, then in-file order. Duplicate identifiers
// across files are preserved, never merged.
type Table struct {
	Rows []Row

	// MetaKeys lists metadata column names in first-seen order across
	// all files. Export and table views use this as the column order.
	MetaKeys []string
}

func (t *Table) Len() int { return len(t.Rows) }

func (t *Table) addMetaKey(key string) {
	for _, k := range t.MetaKeys {
		if k == key {
			return
		}
	}
	t.MetaKeys = append(t.MetaKeys, key)
}

// HasMetaKey reports whether any ingested file contributed the given
// metadata column.
func (t *Table) HasMetaKey(key string) bool {
	for _, k := range t.MetaKeys {
		if k == key {
			return true
		}
	}
	return false
}
