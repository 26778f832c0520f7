// Package config provides configuration management for employeedb.
//
// Config file locations (priority order):
//  1. $EMPLOYEEDB_CONFIG
//  2. ./employeedb.yaml
//  3. $XDG_CONFIG_HOME/employeedb/config.yaml
//  4. ~/.config/employeedb/config.yaml
//  5. /etc/employeedb/config.yaml
//
// When no file exists the defaults below are used unchanged.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"employeedb/internal/codec"
	"employeedb/internal/domain"
	"employeedb/internal/repository/sqlite"
)

const (
	DefaultDatabasePath = "employees.db"
	DefaultExportPath   = "exports/male_f.jsonl.gz"
	DefaultPrimaryRows  = 1_000_000
	DefaultSpecialRows  = 100
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, path, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns the settings used when no config file exists
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}

	if c.Database.Path == "" {
		c.Database.Path = DefaultDatabasePath
	}
	p := &c.Database.Pragmas
	def := sqlite.DefaultPragmas()
	if p.ForeignKeys == nil {
		p.ForeignKeys = &def.ForeignKeys
	}
	if p.JournalMode == "" {
		p.JournalMode = def.JournalMode
	}
	if p.Synchronous == "" {
		p.Synchronous = def.Synchronous
	}
	if p.TempStore == "" {
		p.TempStore = def.TempStore
	}
	if p.CacheSize == 0 {
		p.CacheSize = def.CacheSize
	}

	if c.Ingest.BatchSize == 0 {
		c.Ingest.BatchSize = sqlite.DefaultBatchSize
	}
	if c.Ingest.PrimaryRows == 0 {
		c.Ingest.PrimaryRows = DefaultPrimaryRows
	}
	if c.Ingest.SpecialRows == 0 {
		c.Ingest.SpecialRows = DefaultSpecialRows
	}

	if c.Compression.Codec == "" {
		c.Compression.Codec = string(codec.CompressionGzip)
	}
	if c.Compression.ExportPath == "" {
		c.Compression.ExportPath = DefaultExportPath
	}

	// An absent filter block selects the default filter. A block that sets
	// only some fields keeps them and defaults the gender.
	if c.Filter == (domain.Filter{}) {
		c.Filter = domain.DefaultFilter
	} else if c.Filter.Gender == "" {
		c.Filter.Gender = domain.DefaultFilter.Gender
	} else if g, err := domain.ParseGender(string(c.Filter.Gender)); err == nil {
		c.Filter.Gender = g
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate reports the first setting that cannot be used
func (c *Config) Validate() error {
	if c.Ingest.BatchSize < 0 {
		return fmt.Errorf("ingest.batch_size must not be negative, got %d", c.Ingest.BatchSize)
	}
	if c.Ingest.PrimaryRows < 0 {
		return fmt.Errorf("ingest.primary_rows must not be negative, got %d", c.Ingest.PrimaryRows)
	}
	if c.Ingest.SpecialRows < 0 {
		return fmt.Errorf("ingest.special_rows must not be negative, got %d", c.Ingest.SpecialRows)
	}
	if _, err := codec.ParseCompression(c.Compression.Codec); err != nil {
		return fmt.Errorf("compression.codec: %w", err)
	}
	if err := c.Filter.Validate(); err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

// SQLitePragmas returns the connection pragmas for sqlite.NewDatabase
func (c *Config) SQLitePragmas() sqlite.Pragmas {
	p := c.Database.Pragmas
	fk := true
	if p.ForeignKeys != nil {
		fk = *p.ForeignKeys
	}
	return sqlite.Pragmas{
		ForeignKeys: fk,
		JournalMode: p.JournalMode,
		Synchronous: p.Synchronous,
		TempStore:   p.TempStore,
		CacheSize:   p.CacheSize,
	}
}
