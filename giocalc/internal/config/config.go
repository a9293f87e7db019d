// Package config loads the calculator settings file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fjl/gio-scicalc/giocalc/internal/calc"
	"github.com/fjl/gio-scicalc/giocalc/internal/funcs"
	"github.com/fjl/gio-scicalc/giocalc/internal/numfmt"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// FileName is the name of the settings file in the config directory.
const FileName = "giocalc.yaml"

// Config is the content of the settings file.
type Config struct {
	AngleMode        string `yaml:"angle_mode"`
	Precision        int    `yaml:"precision"`
	ClearResetsAngle bool   `yaml:"clear_resets_angle"`
	Tape             Tape   `yaml:"tape"`
	LogLevel         string `yaml:"log_level"`
}

// Tape configures the result history.
type Tape struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir,omitempty"` // empty means the user config directory
}

// Default returns the settings used when there is no settings file.
func Default() *Config {
	return &Config{
		AngleMode: "rad",
		Precision: numfmt.DefaultPrecision,
		Tape:      Tape{Enabled: true},
		LogLevel:  "info",
	}
}

// DefaultPath returns the location of the settings file in the user
// config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "giocalc", FileName), nil
}

// Load reads the settings file at path. Keys missing from the file keep
// their default value. A missing file is not an error.
func Load(fsys afero.Fs, path string) (*Config, error) {
	cfg := Default()
	data, err := afero.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("can't read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the settings to path, creating its directory.
func (c *Config) Save(fsys afero.Fs, path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("can't create config directory: %w", err)
	}
	if err := afero.WriteFile(fsys, path, data, 0o644); err != nil {
		return fmt.Errorf("can't write config: %w", err)
	}
	return nil
}

// Validate checks that all values are in range.
func (c *Config) Validate() error {
	if _, ok := funcs.ParseAngleMode(c.AngleMode); !ok {
		return fmt.Errorf("angle_mode must be rad or deg, not %q", c.AngleMode)
	}
	if c.Precision < 1 || c.Precision > numfmt.MaxPrecision {
		return fmt.Errorf("precision must be between 1 and %d, not %d", numfmt.MaxPrecision, c.Precision)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Angle returns the configured initial angle mode.
func (c *Config) Angle() funcs.AngleMode {
	m, _ := funcs.ParseAngleMode(c.AngleMode)
	return m
}

// Level returns the configured log level.
func (c *Config) Level() slog.Level {
	l, _ := ParseLevel(c.LogLevel)
	return l
}

// TapeDir returns the directory of the tape file. base is used when the
// settings leave it empty.
func (c *Config) TapeDir(base string) string {
	if c.Tape.Dir != "" {
		return c.Tape.Dir
	}
	return base
}

// EngineOptions returns the calculator options for these settings.
func (c *Config) EngineOptions() []calc.Option {
	return []calc.Option{
		calc.WithAngleMode(c.Angle()),
		calc.WithPrecision(c.Precision),
		calc.WithClearResetsAngle(c.ClearResetsAngle),
	}
}

// ParseLevel parses a log level name: debug, info, warn or error.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log_level must be debug, info, warn or error, not %q", s)
	}
	return l, nil
}
