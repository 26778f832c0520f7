package config

import "employeedb/internal/domain"

// Config is the root configuration structure
type Config struct {
	Version     int               `yaml:"version"`
	Database    DatabaseConfig    `yaml:"database"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Compression CompressionConfig `yaml:"compression"`
	Filter      domain.Filter     `yaml:"filter"`
	Log         LogConfig         `yaml:"log"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path    string       `yaml:"path"`
	Pragmas PragmaConfig `yaml:"pragmas"`
}

// PragmaConfig overrides the connection pragmas. Zero values keep defaults.
type PragmaConfig struct {
	ForeignKeys *bool  `yaml:"foreign_keys,omitempty"`
	JournalMode string `yaml:"journal_mode,omitempty"`
	Synchronous string `yaml:"synchronous,omitempty"`
	TempStore   string `yaml:"temp_store,omitempty"`
	CacheSize   int    `yaml:"cache_size,omitempty"` // negative = KiB
}

// IngestConfig controls bulk loading of synthetic data. A zero count or
// batch size means the default.
type IngestConfig struct {
	BatchSize   int    `yaml:"batch_size"`
	PrimaryRows int    `yaml:"primary_rows"`
	SpecialRows int    `yaml:"special_rows"`
	Seed        uint64 `yaml:"seed,omitempty"` // 0 = time-based
}

// CompressionConfig controls the compressed table and JSON lines export
type CompressionConfig struct {
	Codec      string `yaml:"codec"` // gzip, zstd, snappy
	ExportPath string `yaml:"export_path"`
}
