// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the YAML configuration file and overlays the
// environment on top of it. Command-line flags are applied last by cmd.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/painelmultas/painel/geo"
	"github.com/painelmultas/painel/planilha"
	"gopkg.in/yaml.v3"
)

// Geocoding providers.
const (
	ProviderOpenCage = "opencage"
	ProviderGoogle   = "google"
	ProviderNone     = "none"
)

// Spreadsheet sources.
const (
	SourceDrive = "drive"
	SourceLocal = "local"
)

// Source says where the spreadsheet comes from.
type Source struct {
	Kind string `yaml:"kind"`
	// FileID is the Drive file id, or a path for local sources.
	FileID string `yaml:"file_id"`
	// Root resolves relative local paths.
	Root string `yaml:"root"`
	// CredentialsFile is a service account key; ADC when empty.
	CredentialsFile string `yaml:"credentials_file"`
}

// Sheet describes the spreadsheet layout.
type Sheet struct {
	Format     string         `yaml:"format"` // auto, xlsx, csv
	Name       string         `yaml:"name"`
	HeaderRows int            `yaml:"header_rows"`
	Comma      string         `yaml:"comma"`
	Latin1     bool           `yaml:"latin1"`
	Columns    map[string]int `yaml:"columns"`
}

// Geocoding configures the resolver.
type Geocoding struct {
	Provider      string        `yaml:"provider"`
	OpenCageKey   string        `yaml:"opencage_key"`
	GoogleKey     string        `yaml:"google_key"`
	GoogleProject string        `yaml:"google_project"`
	CacheFile     string        `yaml:"cache_file"`
	Timeout       time.Duration `yaml:"timeout"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	Workers       int           `yaml:"workers"`
}

// Server configures the JSON API.
type Server struct {
	Addr string `yaml:"addr"`
}

// Config is the whole configuration.
type Config struct {
	DataDir   string    `yaml:"data_dir"`
	Source    Source    `yaml:"source"`
	Sheet     Sheet     `yaml:"sheet"`
	Geocoding Geocoding `yaml:"geocoding"`
	Server    Server    `yaml:"server"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		DataDir: "db",
		Source:  Source{Kind: SourceDrive},
		Sheet:   Sheet{Format: "auto", HeaderRows: 1},
		Geocoding: Geocoding{
			Provider:      ProviderOpenCage,
			Timeout:       geo.DefaultTimeout,
			FlushInterval: geo.DefaultFlushInterval,
			Workers:       geo.DefaultWorkers,
		},
		Server: Server{Addr: "127.0.0.1:8080"},
	}
}

// Load reads path over the defaults and applies the environment. An empty
// path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := []struct {
		name string
		dst  *string
	}{
		{"OPENCAGE_API_KEY", &c.Geocoding.OpenCageKey},
		{"GOOGLE_MAPS_API_KEY", &c.Geocoding.GoogleKey},
		{"GOOGLE_CLOUD_PROJECT", &c.Geocoding.GoogleProject},
		{"GOOGLE_APPLICATION_CREDENTIALS", &c.Source.CredentialsFile},
		{"PAINEL_DRIVE_FILE_ID", &c.Source.FileID},
		{"PAINEL_DATA_DIR", &c.DataDir},
		{"PAINEL_GEOCODER", &c.Geocoding.Provider},
		{"PAINEL_ADDR", &c.Server.Addr},
	}
	for _, s := range strs {
		if v, ok := lookup(s.name); ok && v != "" {
			*s.dst = v
		}
	}

	if v, ok := lookup("PAINEL_GEOCODE_WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PAINEL_GEOCODE_WORKERS: %w", err)
		}

		c.Geocoding.Workers = n
	}

	return nil
}

// Validate checks values that would otherwise fail deep in a command.
func (c *Config) Validate() error {
	var errs []error

	switch c.Source.Kind {
	case SourceDrive, SourceLocal:
	default:
		errs = append(errs, fmt.Errorf("source.kind: unknown %q", c.Source.Kind))
	}

	switch c.Geocoding.Provider {
	case ProviderOpenCage, ProviderGoogle, ProviderNone:
	default:
		errs = append(errs, fmt.Errorf("geocoding.provider: unknown %q", c.Geocoding.Provider))
	}

	if c.Sheet.HeaderRows < 0 {
		errs = append(errs, errors.New("sheet.header_rows: must not be negative"))
	}

	if c.Sheet.Comma != "" && utf8.RuneCountInString(c.Sheet.Comma) != 1 {
		errs = append(errs, fmt.Errorf("sheet.comma: %q is not a single character", c.Sheet.Comma))
	}

	if _, err := c.format(); err != nil {
		errs = append(errs, err)
	}

	if c.Geocoding.Workers < 0 {
		errs = append(errs, errors.New("geocoding.workers: must not be negative"))
	}

	return errors.Join(errs...)
}

func (c *Config) format() (planilha.Format, error) {
	switch c.Sheet.Format {
	case "", "auto":
		return planilha.FormatAuto, nil
	case "xlsx":
		return planilha.FormatXLSX, nil
	case "csv":
		return planilha.FormatCSV, nil
	default:
		return planilha.FormatAuto, fmt.Errorf("sheet.format: unknown %q", c.Sheet.Format)
	}
}

// Layout returns the default column layout with the configured overrides.
func (c *Config) Layout() (*planilha.Layout, error) {
	return planilha.DefaultLayout().WithOverrides(c.Sheet.Columns)
}

// ReaderOptions translates the sheet section.
func (c *Config) ReaderOptions() planilha.ReaderOptions {
	format, _ := c.format()

	opts := planilha.ReaderOptions{
		Format:     format,
		Sheet:      c.Sheet.Name,
		HeaderRows: c.Sheet.HeaderRows,
		Latin1:     c.Sheet.Latin1,
	}

	if c.Sheet.Comma != "" {
		opts.Comma, _ = utf8.DecodeRuneInString(c.Sheet.Comma)
	}

	return opts
}

// DBPath is the DuckDB file inside the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "painel.duckdb")
}

// CachePath is the geocode cache file, inside the data directory unless
// set explicitly.
func (c *Config) CachePath() string {
	if c.Geocoding.CacheFile != "" {
		return c.Geocoding.CacheFile
	}

	return filepath.Join(c.DataDir, "coordinates_cache.json")
}
