// Package config provides configuration management for peopledb.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultDBPath is the SQLite file used when nothing else is configured.
	DefaultDBPath = "people.db"

	// DefaultHTTPAddr is the listen address for `peopledb serve`.
	DefaultHTTPAddr = ":8080"

	// EnvPrefix prefixes every environment override (PEOPLEDB_DB_PATH, ...).
	EnvPrefix = "PEOPLEDB_"
)

// Storage backends.
const (
	BackendGorm = "gorm"
	BackendSQL  = "sql"
)

// Output formats for the driver routine.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// Config holds the application configuration.
type Config struct {
	// Database settings
	DBPath   string `yaml:"db_path"`
	DSN      string `yaml:"dsn"`     // PostgreSQL DSN, gorm backend only
	Backend  string `yaml:"backend"` // "gorm" or "sql"
	MaxConns int    `yaml:"max_conns"`

	// Logging settings
	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`     // "console" or "json"
	GormLogLevel string `yaml:"gorm_log_level"` // silent, error, warn, info

	HTTPAddr string `yaml:"http_addr"`
	Output   string `yaml:"output"` // "text" or "json"
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		DBPath:       DefaultDBPath,
		Backend:      BackendGorm,
		MaxConns:     4,
		LogLevel:     "info",
		LogFormat:    "console",
		GormLogLevel: "silent",
		HTTPAddr:     DefaultHTTPAddr,
		Output:       OutputText,
	}
}

// Load reads the YAML file at path over the defaults and then applies
// PEOPLEDB_* environment overrides. An empty path or a missing file
// yields the defaults plus the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"DB_PATH":        &c.DBPath,
		"DSN":            &c.DSN,
		"BACKEND":        &c.Backend,
		"LOG_LEVEL":      &c.LogLevel,
		"LOG_FORMAT":     &c.LogFormat,
		"GORM_LOG_LEVEL": &c.GormLogLevel,
		"HTTP_ADDR":      &c.HTTPAddr,
		"OUTPUT":         &c.Output,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	if v, ok := lookup(EnvPrefix + "MAX_CONNS"); ok && v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sMAX_CONNS: %w", EnvPrefix, err)
		}
		c.MaxConns = n
	}
	return nil
}

// Validate rejects values the rest of the program cannot act on.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendGorm, BackendSQL:
	default:
		return fmt.Errorf("unknown backend %q (want %q or %q)", c.Backend, BackendGorm, BackendSQL)
	}
	if c.Backend == BackendSQL && c.DSN != "" {
		return fmt.Errorf("dsn is only supported by the %q backend", BackendGorm)
	}
	if c.DSN == "" && c.DBPath == "" {
		return errors.New("db_path is empty")
	}
	switch c.Output {
	case OutputText, OutputJSON:
	default:
		return fmt.Errorf("unknown output format %q", c.Output)
	}
	if c.MaxConns < 0 {
		return fmt.Errorf("max_conns must not be negative, got %d", c.MaxConns)
	}
	return nil
}
