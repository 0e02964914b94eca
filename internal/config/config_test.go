package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zerofisher/marinedb/pkg/store/sqlstore"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, sqlstore.DriverSQLite3, cfg.Database.Driver)
	assert.Equal(t, "db/marine_life.db", cfg.Database.Path)
	assert.Equal(t, ',', cfg.SourceOptions().Delimiter)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marinedb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: sqlite
  path: /tmp/whales.db
source:
  delimiter: ";"
  encoding: latin1
  s3:
    region: eu-west-1
log:
  level: debug
`), 0644))

	cfg, err := LoadWithEnv(path, env(map[string]string{
		"MARINEDB_DB_PATH":       "/data/override.db",
		"MARINEDB_S3_PATH_STYLE": "true",
		"MARINEDB_LOG_FORMAT":    "json",
	}))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, sqlstore.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "/data/override.db", cfg.Database.Path)
	assert.Equal(t, "latin1", cfg.Source.Encoding)
	assert.Equal(t, "eu-west-1", cfg.Source.S3.Region)
	assert.True(t, cfg.Source.S3.PathStyle)
	assert.Equal(t, "json", cfg.Log.Format)

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	opts := cfg.SourceOptions()
	assert.Equal(t, ';', opts.Delimiter)
	assert.Equal(t, "eu-west-1", opts.S3.Region)

	sc := cfg.StoreConfig(nil)
	assert.Equal(t, "/data/override.db", sc.Path)
}

func TestLoadErrors(t *testing.T) {
	_, err := LoadWithEnv(filepath.Join(t.TempDir(), "missing.yaml"), env(nil))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("database: [1, 2"), 0644))
	_, err = LoadWithEnv(bad, env(nil))
	assert.Error(t, err)

	_, err = LoadWithEnv("", env(map[string]string{"MARINEDB_DB_WAL": "maybe"}))
	assert.ErrorContains(t, err, "MARINEDB_DB_WAL")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = sqlstore.DriverPostgres }},
		{"sqlite without path", func(c *Config) { c.Database.Path = "" }},
		{"long delimiter", func(c *Config) { c.Source.Delimiter = ";;" }},
		{"quote delimiter", func(c *Config) { c.Source.Delimiter = `"` }},
		{"unknown encoding", func(c *Config) { c.Source.Encoding = "ebcdic" }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestTabDelimiter(t *testing.T) {
	cfg := Default()
	cfg.Source.Delimiter = `\t`
	require.NoError(t, cfg.Validate())
	assert.Equal(t, '\t', cfg.SourceOptions().Delimiter)
}
