// Package config loads the optional YAML config file. Everything in it
// has a sensible default; a missing file is not an error.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fieldworks/hourboard/internal/ingest"
	"github.com/fieldworks/hourboard/internal/milestone"
	"gopkg.in/yaml.v3"
)

// AliasConfig extends the built-in column alias sets.
type AliasConfig struct {
	Identifier []string            `yaml:"identifier"`
	Hours      []string            `yaml:"hours"`
	Metadata   map[string][]string `yaml:"metadata"`
}

type Config struct {
	// Threshold is the milestone engine-hours threshold.
	Threshold float64 `yaml:"threshold"`
	// ListenAddr is the HTTP API listen address for `hourboard serve`.
	ListenAddr string `yaml:"listen_addr"`
	// Aliases are appended to the built-in alias sets, never replacing
	// them.
	Aliases AliasConfig `yaml:"aliases"`
}

func Default() *Config {
	return &Config{
		Threshold:  milestone.DefaultThreshold,
		ListenAddr: ":8080",
	}
}

// Load reads the config at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = milestone.DefaultThreshold
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	return cfg, nil
}

// DefaultPath returns ~/.config/hourboard/config.yaml
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "hourboard", "config.yaml"), nil
}

// Schema builds the ingestion schema: built-in aliases plus the config
// extensions.
func (c *Config) Schema() ingest.Schema {
	s := ingest.DefaultSchema()
	if len(c.Aliases.Identifier) > 0 {
		s = s.WithAliases(ingest.FieldIdentifier, c.Aliases.Identifier...)
	}
	if len(c.Aliases.Hours) > 0 {
		s = s.WithAliases(ingest.FieldHours, c.Aliases.Hours...)
	}
	for key, aliases := range c.Aliases.Metadata {
		s = s.WithAliases(key, aliases...)
	}
	return s
}
