package store

import (
	"fmt"
	"strconv"

	"github.com/fieldworks/hourboard/internal/milestone"
)

type Setting struct {
	Key   string
	Value string
}

func (s *Store) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

func (s *Store) GetAllSettings() ([]Setting, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var st Setting
		if err := rows.Scan(&st.Key, &st.Value); err != nil {
			return nil, err
		}
		settings = append(settings, st)
	}
	return settings, rows.Err()
}

// Threshold returns the stored milestone threshold, falling back to the
// default when unset or malformed.
func (s *Store) Threshold() float64 {
	v, err := s.GetSetting("threshold")
	if err != nil {
		return milestone.DefaultThreshold
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return milestone.DefaultThreshold
	}
	return f
}

func (s *Store) SetThreshold(v float64) error {
	return s.SetSetting("threshold", strconv.FormatFloat(v, 'f', -1, 64))
}

// ChartType returns the stored default chart type name.
func (s *Store) ChartType() string {
	v, err := s.GetSetting("chart_type")
	if err != nil || v == "" {
		return "bar"
	}
	return v
}
