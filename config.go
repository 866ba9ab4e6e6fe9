package hnswdb

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/hupe1980/hnswdb/distance"
	"github.com/hupe1980/hnswdb/persistence"
	"gopkg.in/yaml.v3"
)

// Preset names accepted in Config.Preset.
const (
	PresetDefault         = "default"
	PresetInsertOptimized = "insert_optimized"
	PresetRecallOptimized = "recall_optimized"
)

// Config describes an index in YAML form.
//
// Example:
//
//	dimension: 768
//	metric: cosine
//	preset: recall_optimized
//	backend: native
//	compression: zstd
//	memory_limit_bytes: 4294967296
//	log_level: info
type Config struct {
	Dimension int             `yaml:"dimension"`
	Metric    distance.Metric `yaml:"metric"`
	Preset    string          `yaml:"preset,omitempty"`

	// M and EFConstruction override the preset when both are set.
	M              int     `yaml:"m,omitempty"`
	EFConstruction int     `yaml:"ef_construction,omitempty"`
	EFSearch       int     `yaml:"ef_search,omitempty"`
	Alpha          float32 `yaml:"alpha,omitempty"`
	Seed           uint64  `yaml:"seed,omitempty"`

	Backend       distance.Backend        `yaml:"backend,omitempty"`
	VectorStorage *bool                   `yaml:"vector_storage,omitempty"`
	MappingShards int                     `yaml:"mapping_shards,omitempty"`
	Compression   persistence.Compression `yaml:"compression,omitempty"`
	BatchWorkers  int                     `yaml:"batch_workers,omitempty"`

	MemoryLimitBytes   int64 `yaml:"memory_limit_bytes,omitempty"`
	IOLimitBytesPerSec int64 `yaml:"io_limit_bytes_per_sec,omitempty"`

	// LogLevel enables a text logger at the given level (debug, info, warn,
	// error). Empty keeps logging off.
	LogLevel string `yaml:"log_level,omitempty"`
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	return ParseConfig(f)
}

// ParseConfig decodes a YAML config. Unknown keys are rejected.
func ParseConfig(r io.Reader) (*Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: decode config: %w", ErrInvalidOption, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields that do not depend on the chosen preset.
func (c *Config) Validate() error {
	if c.Dimension <= 0 {
		return &ErrInvalidDimension{Dimension: c.Dimension}
	}
	switch c.normalizedPreset() {
	case PresetDefault, PresetInsertOptimized, PresetRecallOptimized:
	default:
		return fmt.Errorf("%w: unknown preset %q", ErrInvalidOption, c.Preset)
	}
	if (c.M == 0) != (c.EFConstruction == 0) {
		return fmt.Errorf("%w: m and ef_construction must be set together", ErrInvalidOption)
	}
	if c.LogLevel != "" {
		if _, err := parseLevel(c.LogLevel); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) normalizedPreset() string {
	p := strings.ToLower(strings.TrimSpace(c.Preset))
	if p == "" {
		return PresetDefault
	}
	return p
}

// Options returns the functional options the config describes. Zero values
// keep the defaults of the chosen preset.
func (c *Config) Options() []Option {
	var opts []Option

	if c.LogLevel != "" {
		if level, err := parseLevel(c.LogLevel); err == nil {
			opts = append(opts, WithLogLevel(level))
		}
	}
	if c.Backend != distance.BackendAuto {
		opts = append(opts, WithBackend(c.Backend))
	}
	if c.EFSearch > 0 {
		opts = append(opts, WithEFSearch(c.EFSearch))
	}
	if c.Alpha > 0 {
		opts = append(opts, WithAlpha(c.Alpha))
	}
	if c.Seed != 0 {
		opts = append(opts, WithSeed(c.Seed))
	}
	if c.VectorStorage != nil {
		opts = append(opts, WithVectorStorage(*c.VectorStorage))
	}
	if c.MappingShards > 0 {
		opts = append(opts, WithMappingShards(c.MappingShards))
	}
	if c.Compression != persistence.CompressionNone {
		opts = append(opts, WithCompression(c.Compression))
	}
	if c.BatchWorkers > 0 {
		opts = append(opts, WithBatchWorkers(c.BatchWorkers))
	}
	if c.MemoryLimitBytes > 0 || c.IOLimitBytesPerSec > 0 {
		opts = append(opts, WithResourceLimits(c.MemoryLimitBytes, c.IOLimitBytesPerSec))
	}

	return opts
}

// NewFromConfig creates an index from cfg. Extra options are applied after
// the ones the config describes.
func NewFromConfig(cfg *Config, optFns ...Option) (*Index, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrInvalidOption)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := append(cfg.Options(), optFns...)

	if cfg.M != 0 {
		return NewWithParams(cfg.Dimension, cfg.Metric, cfg.M, cfg.EFConstruction, opts...)
	}

	switch cfg.normalizedPreset() {
	case PresetInsertOptimized:
		return NewInsertOptimized(cfg.Dimension, cfg.Metric, opts...)
	case PresetRecallOptimized:
		return NewRecallOptimized(cfg.Dimension, cfg.Metric, opts...)
	default:
		return New(cfg.Dimension, cfg.Metric, opts...)
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalidOption, s)
	}
	return level, nil
}
