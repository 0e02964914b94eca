package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sightings = `occurrence_id,scientific_name,vernacular_name,recorded_by,locality,event_date
A,Eschrichtius robustus,Gray Whale,Ana Lopez,"Laguna San Ignacio, Mexico",2024-02-10
B,Megaptera novaeangliae,Humpback Whale,Ben Ortiz,Monterey Bay,2023-08-01
`

// execute runs the root command once and returns what it wrote to stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestParseSet(t *testing.T) {
	got, err := parseSet([]string{"event_date=2024-01-01", " locality =a=b", "event_date=2024-02-02"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"event_date": "2024-02-02", "locality": "a=b"}, got)

	_, err = parseSet([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseSet([]string{"=x"})
	assert.Error(t, err)
}

func TestCommands(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "marine.db")
	src := filepath.Join(dir, "sightings.csv")
	require.NoError(t, os.WriteFile(src, []byte(sightings), 0644))

	out, err := execute(t, "ingest", src, "--db", db, "--quiet")
	require.NoError(t, err)
	assert.Contains(t, out, "Rows written:  2")

	out, err = execute(t, "search", "--db", db, "--species", "eschrichtius",
		"-T", "fields", "-e", "occurrence_id", "-e", "organism.vernacular_name")
	require.NoError(t, err)
	assert.Equal(t, "A\tGray Whale\n", out)

	out, err = execute(t, "observations", "--db", db, "--location", "mexico", "-T", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"occurrence_id":"A"`)

	out, err = execute(t, "add", "--db", db, "--set", "occurrence_id=Z", "--set", "scientific_name=Orcinus orca")
	require.NoError(t, err)
	assert.Equal(t, "Z\n", out)

	out, err = execute(t, "update", "Z", "--db", db, "--set", "event_date=2025-01-01")
	require.NoError(t, err)
	assert.Equal(t, "Updated Z (1 fields)\n", out)

	out, err = execute(t, "stats", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Records:             3")
	assert.Contains(t, out, "2023-08-01 .. 2025-01-01")

	out, err = execute(t, "stats", "quality", "--db", db, "--severity", "warning")
	require.NoError(t, err)
	assert.Contains(t, out, "Data Quality Summary")

	out, err = execute(t, "delete", "Z", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "Deleted Z\n", out)

	_, err = execute(t, "delete", "Z", "--db", db)
	assert.ErrorContains(t, err, "not found")

	_, err = execute(t, "get", "nope", "--db", db)
	assert.ErrorContains(t, err, "not found")

	out, err = execute(t, "runs", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, src)
}

func TestIngestMissingSource(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "marine.db")

	_, err := execute(t, "ingest", filepath.Join(dir, "nope.csv"), "--db", db)
	require.ErrorIs(t, err, os.ErrNotExist)

	_, statErr := os.Stat(db)
	assert.True(t, os.IsNotExist(statErr), "no store is created for a missing source")
}

func TestInvalidDriver(t *testing.T) {
	_, err := execute(t, "stats", "--driver", "oracle")
	assert.ErrorContains(t, err, "invalid configuration")
}
