// Package config loads marinedb settings.
//
// Settings are resolved in order: built-in defaults, an optional YAML file,
// then MARINEDB_* environment variables. Command-line flags are applied last
// by the cmd package.
//
// Environment Variables:
//
//	MARINEDB_DB_DRIVER            - sqlite3 (default), sqlite or postgres
//	MARINEDB_DB_PATH              - SQLite database file (default: db/marine_life.db)
//	MARINEDB_DB_DSN               - connection string, required for postgres
//	MARINEDB_DB_WAL               - enable WAL journal mode on SQLite
//	MARINEDB_SOURCE_DELIMITER     - CSV field delimiter (default: ",")
//	MARINEDB_SOURCE_ENCODING      - utf-8 (default), latin1, windows-1252, utf-16
//	MARINEDB_S3_REGION            - region for s3:// sources
//	MARINEDB_S3_ENDPOINT          - S3-compatible endpoint URL
//	MARINEDB_S3_PATH_STYLE        - use path-style bucket addressing
//	MARINEDB_S3_ACCESS_KEY_ID     - static credentials
//	MARINEDB_S3_SECRET_ACCESS_KEY - static credentials
//	MARINEDB_LOG_LEVEL            - debug, info (default), warn, error
//	MARINEDB_LOG_FORMAT           - text (default) or json
//	MARINEDB_METRICS_FILE         - Prometheus textfile written after ingest
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/Zerofisher/marinedb/pkg/source"
	"github.com/Zerofisher/marinedb/pkg/store/sqlstore"
)

// DefaultDBPath is where the SQLite database lives unless configured.
const DefaultDBPath = "db/marine_life.db"

// Config is the complete marinedb configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Source   SourceConfig   `yaml:"source"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// DatabaseConfig selects the storage engine.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
	WAL    bool   `yaml:"wal"`
}

// SourceConfig controls how tabular sources are read.
type SourceConfig struct {
	Delimiter string          `yaml:"delimiter"`
	Encoding  string          `yaml:"encoding"`
	S3        source.S3Config `yaml:"s3"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls ingest metric export.
type MetricsConfig struct {
	File string `yaml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: sqlstore.DriverSQLite3,
			Path:   DefaultDBPath,
		},
		Source: SourceConfig{
			Delimiter: ",",
			Encoding:  "utf-8",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path (if non-empty) over the defaults, then applies the
// process environment.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.Getenv)
}

// LoadWithEnv is Load with an explicit environment lookup.
func LoadWithEnv(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	flag := func(key string, dst *bool) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
		return nil
	}

	str("MARINEDB_DB_DRIVER", &c.Database.Driver)
	str("MARINEDB_DB_PATH", &c.Database.Path)
	str("MARINEDB_DB_DSN", &c.Database.DSN)
	str("MARINEDB_SOURCE_DELIMITER", &c.Source.Delimiter)
	str("MARINEDB_SOURCE_ENCODING", &c.Source.Encoding)
	str("MARINEDB_S3_REGION", &c.Source.S3.Region)
	str("MARINEDB_S3_ENDPOINT", &c.Source.S3.Endpoint)
	str("MARINEDB_S3_ACCESS_KEY_ID", &c.Source.S3.AccessKeyID)
	str("MARINEDB_S3_SECRET_ACCESS_KEY", &c.Source.S3.SecretAccessKey)
	str("MARINEDB_LOG_LEVEL", &c.Log.Level)
	str("MARINEDB_LOG_FORMAT", &c.Log.Format)
	str("MARINEDB_METRICS_FILE", &c.Metrics.File)

	return errors.Join(
		flag("MARINEDB_DB_WAL", &c.Database.WAL),
		flag("MARINEDB_S3_PATH_STYLE", &c.Source.S3.PathStyle),
	)
}

// Validate checks that the configuration can be used.
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case sqlstore.DriverSQLite3, sqlstore.DriverSQLite:
		if c.Database.Path == "" && c.Database.DSN == "" {
			errs = append(errs, errors.New("database.path is required for sqlite"))
		}
	case sqlstore.DriverPostgres:
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}

	if _, err := c.delimiter(); err != nil {
		errs = append(errs, err)
	}
	if _, err := source.Decoder(c.Source.Encoding); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q (use text or json)", c.Log.Format))
	}

	return errors.Join(errs...)
}

func (c *Config) delimiter() (rune, error) {
	d := c.Source.Delimiter
	if d == "" {
		return ',', nil
	}
	if d == `\t` || d == "tab" {
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(d)
	if size != len(d) || r == utf8.RuneError || r == '"' || r == '\r' || r == '\n' {
		return 0, fmt.Errorf("invalid delimiter %q", d)
	}
	return r, nil
}

// LogLevel parses the configured level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if c.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	return level, nil
}

// StoreConfig returns the settings for sqlstore.Open.
func (c *Config) StoreConfig(logger *slog.Logger) sqlstore.Config {
	return sqlstore.Config{
		Driver: c.Database.Driver,
		Path:   c.Database.Path,
		DSN:    c.Database.DSN,
		WAL:    c.Database.WAL,
		Logger: logger,
	}
}

// SourceOptions returns the settings for source.Open. Call Validate first.
func (c *Config) SourceOptions() source.Options {
	d, err := c.delimiter()
	if err != nil {
		d = ','
	}
	return source.Options{
		Delimiter: d,
		Encoding:  c.Source.Encoding,
		S3:        c.Source.S3,
	}
}
