package ingest

import (
	"fmt"
	"sort"
	"strings"
)

// Canonical field names produced by header normalization.
const (
	FieldIdentifier = "identifier"
	FieldHours      = "hours"
)

// Schema holds the alias sets used to map raw CSV headers onto the
// canonical fields. The alias sets are configuration, not a contract:
// callers extend them from the config file or the settings store.
type Schema struct {
	IdentifierAliases []string
	HoursAliases      []string

	// MetaAliases renames recognized metadata headers to a canonical
	// key (e.g. "timestamp" -> "date"). Unrecognized headers are kept
	// verbatim as metadata.
	MetaAliases map[string][]string
}

// DefaultSchema returns the built-in alias sets.
func DefaultSchema() Schema {
	return Schema{
		IdentifierAliases: []string{
			"nickname", "name", "tractor", "tractor_name", "id", "identifier",
		},
		HoursAliases: []string{
			"last_known_engine_hrs", "engine_hours", "hours",
			"last_engine_hours", "engine_hrs", "total_hours",
		},
		MetaAliases: map[string][]string{
			"date":     {"date", "timestamp", "created_date", "last_updated"},
			"location": {"location", "field", "site", "area"},
		},
	}
}

// WithAliases returns a copy of the schema with extra aliases appended to
// the given canonical field ("identifier", "hours", or a metadata key).
func (s Schema) WithAliases(field string, aliases ...string) Schema {
	out := s.clone()
	switch field {
	case FieldIdentifier:
		out.IdentifierAliases = append(out.IdentifierAliases, aliases...)
	case FieldHours:
		out.HoursAliases = append(out.HoursAliases, aliases...)
	default:
		out.MetaAliases[field] = append(out.MetaAliases[field], aliases...)
	}
	return out
}

func (s Schema) clone() Schema {
	out := Schema{
		IdentifierAliases: append([]string(nil), s.IdentifierAliases...),
		HoursAliases:      append([]string(nil), s.HoursAliases...),
		MetaAliases:       make(map[string][]string, len(s.MetaAliases)),
	}
	for k, v := range s.MetaAliases {
		out.MetaAliases[k] = append([]string(nil), v...)
	}
	return out
}

// MetaColumn maps a raw header index onto a metadata key.
type MetaColumn struct {
	Index int
	Key   string
}

// ColumnMap is the result of resolving one file's header row.
type ColumnMap struct {
	Identifier int
	Hours      int
	Meta       []MetaColumn
}

// Resolve matches a raw header row against the schema. Matching is
// case-insensitive and ignores punctuation and whitespace; exact alias
// matches win over substring matches. It fails when no identifier-like
// or no hours-like column is present.
func (s Schema) Resolve(header []string) (ColumnMap, error) {
	folded := make([]string, len(header))
	for i, h := range header {
		folded[i] = foldHeader(h)
	}

	idCol := findColumn(folded, s.IdentifierAliases, -1)
	if idCol < 0 {
		return ColumnMap{}, fmt.Errorf("no identifier column (tried %s)", strings.Join(s.IdentifierAliases, ", "))
	}
	hoursCol := findColumn(folded, s.HoursAliases, idCol)
	if hoursCol < 0 {
		return ColumnMap{}, fmt.Errorf("no engine-hours column (tried %s)", strings.Join(s.HoursAliases, ", "))
	}

	cm := ColumnMap{Identifier: idCol, Hours: hoursCol}
	for i, f := range folded {
		if i == idCol || i == hoursCol || f == "" {
			continue
		}
		cm.Meta = append(cm.Meta, MetaColumn{Index: i, Key: s.metaKey(f, header[i])})
	}
	return cm, nil
}

func (s Schema) metaKey(folded, raw string) string {
	keys := make([]string, 0, len(s.MetaAliases))
	for key := range s.MetaAliases {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		for _, a := range s.MetaAliases[key] {
			if folded == foldHeader(a) {
				return key
			}
		}
	}
	// Second pass: substring matches, same order as column resolution.
	for _, key := range keys {
		for _, a := range s.MetaAliases[key] {
			fa := foldHeader(a)
			if fa != "" && (strings.Contains(folded, fa) || strings.Contains(fa, folded)) {
				return key
			}
		}
	}
	return strings.TrimSpace(raw)
}

// findColumn returns the index of the first column matching any alias,
// preferring exact matches over substring matches. skip excludes a column
// already claimed by another field.
func findColumn(folded []string, aliases []string, skip int) int {
	for i, f := range folded {
		if i == skip || f == "" {
			continue
		}
		for _, a := range aliases {
			if f == foldHeader(a) {
				return i
			}
		}
	}
	for i, f := range folded {
		if i == skip || f == "" {
			continue
		}
		for _, a := range aliases {
			fa := foldHeader(a)
			if strings.Contains(f, fa) || strings.Contains(fa, f) {
				return i
			}
		}
	}
	return -1
}

// foldHeader lowercases a header and collapses punctuation and whitespace
// runs to single underscores, so "Engine Hrs." and "engine_hrs" compare
// equal.
func foldHeader(h string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(strings.TrimSpace(h)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
		default:
			pending = true
		}
	}
	return b.String()
}
