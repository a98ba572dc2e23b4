package store

import (
	"path/filepath"
	"testing"

	"github.com/fieldworks/hourboard/internal/ingest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s := newTestStore(t)

	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != 1 {
		t.Fatalf("expected user_version 1, got %d", version)
	}
}

func TestNewWithPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "hourboard.db")
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Reopen — should succeed and not re-migrate.
	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	s2.Close()
}

func TestDefaultDBPath(t *testing.T) {
	path, err := DefaultDBPath()
	if err != nil {
		t.Fatal(err)
	}
	if path == "" {
		t.Fatal("empty path")
	}
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

// ============================================================
// Settings
// ============================================================

func TestSettingsDefaults(t *testing.T) {
	s := newTestStore(t)

	if got := s.Threshold(); got != 900 {
		t.Fatalf("default threshold = %v, want 900", got)
	}
	if got := s.ChartType(); got != "bar" {
		t.Fatalf("default chart = %q, want bar", got)
	}
}

func TestSetGetSetting(t *testing.T) {
	s := newTestStore(t)

	if err := s.SetSetting("chart_type", "scatter"); err != nil {
		t.Fatal(err)
	}
	v, err := s.GetSetting("chart_type")
	if err != nil || v != "scatter" {
		t.Fatalf("got %q, %v", v, err)
	}

	if _, err := s.GetSetting("no_such_key"); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestThresholdRoundTrip(t *testing.T) {
	s := newTestStore(t)

	if err := s.SetThreshold(1250.5); err != nil {
		t.Fatal(err)
	}
	if got := s.Threshold(); got != 1250.5 {
		t.Fatalf("threshold = %v, want 1250.5", got)
	}
}

func TestThresholdMalformedFallsBack(t *testing.T) {
	s := newTestStore(t)
	s.SetSetting("threshold", "not a number")
	if got := s.Threshold(); got != 900 {
		t.Fatalf("threshold = %v, want fallback 900", got)
	}
}

func TestGetAllSettings(t *testing.T) {
	s := newTestStore(t)
	settings, err := s.GetAllSettings()
	if err != nil {
		t.Fatal(err)
	}
	if len(settings) < 3 {
		t.Fatalf("expected seeded settings, got %v", settings)
	}
}

// ============================================================
// Aliases
// ============================================================

func TestAddListAliases(t *testing.T) {
	s := newTestStore(t)

	if err := s.AddAlias("identifier", "unit_code"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddAlias("hours", "meter_reading"); err != nil {
		t.Fatal(err)
	}
	// Duplicate insert is a no-op.
	if err := s.AddAlias("identifier", "unit_code"); err != nil {
		t.Fatal(err)
	}

	aliases, err := s.ListAliases()
	if err != nil {
		t.Fatal(err)
	}
	if len(aliases) != 2 {
		t.Fatalf("aliases = %+v", aliases)
	}
}

func TestDeleteAlias(t *testing.T) {
	s := newTestStore(t)
	s.AddAlias("identifier", "unit_code")

	aliases, _ := s.ListAliases()
	if err := s.DeleteAlias(aliases[0].ID); err != nil {
		t.Fatal(err)
	}
	aliases, _ = s.ListAliases()
	if len(aliases) != 0 {
		t.Fatalf("alias not deleted: %+v", aliases)
	}
}

func TestExtendSchema(t *testing.T) {
	s := newTestStore(t)
	s.AddAlias("identifier", "unit_code")
	s.AddAlias("hours", "meter_reading")

	schema, err := s.ExtendSchema(ingest.DefaultSchema())
	if err != nil {
		t.Fatal(err)
	}
	cm, err := schema.Resolve([]string{"unit_code", "meter_reading"})
	if err != nil {
		t.Fatalf("Resolve with stored aliases: %v", err)
	}
	if cm.Identifier != 0 || cm.Hours != 1 {
		t.Fatalf("columns = %+v", cm)
	}
}
