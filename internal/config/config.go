// Package config loads the YAML configuration shared by the MCP server and the
// measure command.
//
// A missing file is not an error: every field has a default, and environment
// variables override both the defaults and the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/afm-tools-mcp/internal/detection"
	"github.com/ironsheep/afm-tools-mcp/internal/flatten"
	"github.com/ironsheep/afm-tools-mcp/internal/heightmap"
	"github.com/ironsheep/afm-tools-mcp/internal/logging"
)

// Environment variables read by ApplyEnv.
const (
	EnvLogLevel = "AFM_MCP_LOG_LEVEL"
	EnvArchive  = "AFM_MCP_ARCHIVE"
	EnvWorkers  = "AFM_MCP_WORKERS"
)

// Config is the complete runtime configuration.
type Config struct {
	Detection detection.Params   `yaml:"detection"`
	Flatten   FlattenConfig      `yaml:"flatten"`
	Scan      heightmap.ScanSize `yaml:"scan"`
	Output    OutputConfig       `yaml:"output"`
	Archive   ArchiveConfig      `yaml:"archive"`
	Preview   PreviewConfig      `yaml:"preview"`
	Log       LogConfig          `yaml:"log"`

	// Workers bounds the number of images measured concurrently. Zero means
	// one worker per CPU.
	Workers int `yaml:"workers"`
}

// FlattenConfig tunes the line-flattening filter.
type FlattenConfig struct {
	Margin float64 `yaml:"margin"`
}

// OutputConfig controls where result tables are written.
type OutputConfig struct {
	// Dir, when set, replaces the input file's directory for output tables.
	Dir string `yaml:"dir"`
}

// ArchiveConfig enables the SQLite run archive.
type ArchiveConfig struct {
	// Path of the database file; empty disables archiving.
	Path string `yaml:"path"`
}

// PreviewConfig controls the PNG preview written next to each table.
type PreviewConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Detection: detection.DefaultParams(),
		Flatten:   FlattenConfig{Margin: flatten.DefaultMargin},
		Scan:      heightmap.ScanSize{Unit: "nm"},
		Log:       LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults, then applies environment overrides. An
// empty path or a missing file yields the defaults. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from AFM_MCP_* environment variables.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		c.Log.Level = v
	}
	if v, ok := os.LookupEnv(EnvArchive); ok {
		c.Archive.Path = v
	}
	if v, ok := os.LookupEnv(EnvWorkers); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", EnvWorkers, v, err)
		}
		c.Workers = n
	}
	return nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Detection.Validate(); err != nil {
		return err
	}
	if c.Flatten.Margin < 0 || c.Flatten.Margin >= 1 {
		return fmt.Errorf("flatten.margin %g outside [0, 1)", c.Flatten.Margin)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers %d must not be negative", c.Workers)
	}
	if c.Scan.RealX < 0 || c.Scan.PixelsX < 0 {
		return fmt.Errorf("scan size %g over %d pixels: %w", c.Scan.RealX, c.Scan.PixelsX, heightmap.ErrInvalidScale)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// FlattenOptions returns the flattening options selected by c.
func (c Config) FlattenOptions() flatten.Options {
	return flatten.Options{Margin: c.Flatten.Margin}
}
