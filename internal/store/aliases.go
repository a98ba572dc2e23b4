package store

import (
	"fmt"

	"github.com/fieldworks/hourboard/internal/ingest"
)

// Alias is one user-added column alias for a canonical field.
type Alias struct {
	ID    int64
	Field string
	Alias string
}

func (s *Store) AddAlias(field, alias string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO aliases (field, alias) VALUES (?, ?)`,
		field, alias,
	)
	if err != nil {
		return fmt.Errorf("add alias %q for %s: %w", alias, field, err)
	}
	return nil
}

func (s *Store) DeleteAlias(id int64) error {
	_, err := s.db.Exec(`DELETE FROM aliases WHERE id = ?`, id)
	return err
}

func (s *Store) ListAliases() ([]Alias, error) {
	rows, err := s.db.Query(`SELECT id, field, alias FROM aliases ORDER BY field, alias`)
	if err != nil {
		return nil, fmt.Errorf("list aliases: %w", err)
	}
	defer rows.Close()

	var out []Alias
	for rows.Next() {
		var a Alias
		if err := rows.Scan(&a.ID, &a.Field, &a.Alias); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ExtendSchema appends every stored alias to the given schema.
func (s *Store) ExtendSchema(schema ingest.Schema) (ingest.Schema, error) {
	aliases, err := s.ListAliases()
	if err != nil {
		return schema, err
	}
	for _, a := range aliases {
		schema = schema.WithAliases(a.Field, a.Alias)
	}
	return schema, nil
}
