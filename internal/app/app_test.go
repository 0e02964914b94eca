package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zerofisher/marinedb/export"
	"github.com/Zerofisher/marinedb/internal/config"
	"github.com/Zerofisher/marinedb/pkg/query"
	"github.com/Zerofisher/marinedb/pkg/store"
)

const sightings = `occurrence_id,scientific_name,vernacular_name,recorded_by,locality,event_date,decimal_latitude
A,Eschrichtius robustus,Gray Whale,Ana Lopez,Laguna San Ignacio,2024-01-01,27.7
B,Megaptera novaeangliae,Humpback Whale,Ben Ortiz,Monterey Bay,2024-06-15,36.8
C,Orcinus orca,Orca,Ana Lopez,Puget Sound,2023-03-01,north
`

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "db", "marine.db")
	return cfg
}

func TestOpenStoreInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "oracle"
	_, err := OpenStore(context.Background(), cfg, discard)
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestOpenStoreRecordsSchemaVersion(t *testing.T) {
	ctx := context.Background()
	st, err := OpenStore(ctx, testConfig(t), discard)
	require.NoError(t, err)
	defer st.Close()

	v, err := st.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.SchemaVersion, v)
}

func TestRunIngestAndExport(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	st, err := OpenStore(ctx, cfg, discard)
	require.NoError(t, err)
	defer st.Close()

	dir := t.TempDir()
	src := filepath.Join(dir, "sightings.csv")
	require.NoError(t, os.WriteFile(src, []byte(sightings), 0644))
	metricsFile := filepath.Join(dir, "ingest.prom")

	result, err := RunIngest(ctx, st, IngestConfig{
		Source:      src,
		Options:     cfg.SourceOptions(),
		MetricsFile: metricsFile,
	}, discard)
	require.NoError(t, err)
	assert.Equal(t, 3, result.RowsRead)
	assert.Equal(t, 2, result.RowsWritten)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "C", result.Skipped[0].OccurrenceID)

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `marinedb_ingest_rows_total{outcome="skipped"} 1`)
	assert.Contains(t, string(prom), `marinedb_ingest_batches_total{outcome="committed"} 1`)

	obs, err := query.NewSQLEngine(st).Search(ctx, query.SearchFilter{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, RunExport(&buf, obs, ExportConfig{
		Where:  `coord.lat > 30`,
		Format: export.FormatFields,
		Fields: []string{"occurrence_id", "organism.vernacular_name"},
	}))
	assert.Equal(t, "B\tHumpback Whale\n", buf.String())
}

func TestRunIngestMissingSourceWritesMetrics(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	st, err := OpenStore(ctx, cfg, discard)
	require.NoError(t, err)
	defer st.Close()

	metricsFile := filepath.Join(t.TempDir(), "ingest.prom")
	_, err = RunIngest(ctx, st, IngestConfig{
		Source:      filepath.Join(t.TempDir(), "nope.csv"),
		MetricsFile: metricsFile,
	}, discard)
	require.ErrorIs(t, err, os.ErrNotExist)

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `marinedb_ingest_batches_total{outcome="aborted"} 1`)
}

func TestRunExportErrors(t *testing.T) {
	err := RunExport(io.Discard, nil, ExportConfig{Where: "coord.lat >"})
	assert.ErrorContains(t, err, "where")

	err = RunExport(io.Discard, nil, ExportConfig{Format: export.FormatFields})
	assert.Error(t, err)
}

func TestCompileWhereEmpty(t *testing.T) {
	keep, err := CompileWhere(strings.TrimSpace("  "))
	require.NoError(t, err)
	assert.Nil(t, keep)
}
