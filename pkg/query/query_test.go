package query

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zerofisher/marinedb/pkg/ingest"
	"github.com/Zerofisher/marinedb/pkg/source"
	"github.com/Zerofisher/marinedb/pkg/store"
	"github.com/Zerofisher/marinedb/pkg/store/sqlstore"
)

const sightings = `occurrence_id,scientific_name,vernacular_name,taxon_rank,recorded_by,locality,water_body,event_date
A,Eschrichtius robustus,Gray Whale,species,Ana Lopez,Laguna San Ignacio,Pacific Ocean,2024-01-01
B,Eschrichtius robustus,Gray Whale,species,Ben Ortiz,Laguna Ojo de Liebre,Pacific Ocean,2024-06-15
C,Megaptera novaeangliae,Humpback Whale,species,Ana Lopez,Monterey Bay,Pacific Ocean,2024-12-31
D,Balaenoptera musculus,Blue Whale,species,Cy Park,Sea of Cortez 100%,Gulf of California,
E,,,,Cy Park,Monterey Bay,Pacific Ocean,2025-02-02
`

func newEngine(t *testing.T) (*SQLEngine, *sqlstore.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := sqlstore.Open(context.Background(), sqlstore.Config{
		Driver: sqlstore.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "marine.db"),
		Logger: logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	r, err := source.NewReader("sightings", strings.NewReader(sightings), source.Options{})
	require.NoError(t, err)
	_, err = ingest.New(st, ingest.Config{Logger: logger}).Ingest(context.Background(), "sightings", r)
	require.NoError(t, err)

	return NewSQLEngine(st), st
}

func TestSpecies(t *testing.T) {
	e, _ := newEngine(t)
	species, err := e.Species(context.Background())
	require.NoError(t, err)

	var names []string
	for _, sp := range species {
		names = append(names, sp.ScientificName)
	}
	assert.Equal(t, []string{"Balaenoptera musculus", "Eschrichtius robustus", "Megaptera novaeangliae"}, names)
}

func TestBySpeciesExact(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	obs, err := e.BySpecies(ctx, "Eschrichtius robustus")
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.Equal(t, "B", obs[0].OccurrenceID, "newest first")
	assert.Equal(t, "A", obs[1].OccurrenceID)
	assert.Equal(t, "Gray Whale", obs[0].VernacularName)
	assert.Equal(t, "Ben Ortiz", obs[0].RecordedBy)

	obs, err = e.BySpecies(ctx, "Eschrichtius")
	require.NoError(t, err)
	assert.Empty(t, obs)
}

func TestByLocationSubstring(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	obs, err := e.ByLocation(ctx, "laguna")
	require.NoError(t, err)
	assert.Len(t, obs, 2)

	// Wildcards in the input match literally.
	obs, err = e.ByLocation(ctx, "100%")
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, "D", obs[0].OccurrenceID)

	obs, err = e.ByLocation(ctx, "_")
	require.NoError(t, err)
	assert.Empty(t, obs)
}

func TestByDateRangeInclusive(t *testing.T) {
	e, _ := newEngine(t)
	obs, err := e.ByDateRange(context.Background(), "2024-01-01", "2024-12-31")
	require.NoError(t, err)

	var got []string
	for _, o := range obs {
		got = append(got, o.OccurrenceID)
	}
	assert.Equal(t, []string{"C", "B", "A"}, got)
}

func TestSearch(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter SearchFilter
		want   []string
	}{
		{"no filters", SearchFilter{}, []string{"E", "C", "B", "A", "D"}},
		{"impossible species", SearchFilter{Species: "Architeuthis"}, nil},
		{"species substring", SearchFilter{Species: "robustus"}, []string{"B", "A"}},
		{"observer and location", SearchFilter{Observer: "ana", Location: "Monterey"}, []string{"C"}},
		{"start date only", SearchFilter{StartDate: "2024-12-31"}, []string{"E", "C"}},
		{"end date only", SearchFilter{EndDate: "2024-01-01"}, []string{"A", "D"}},
		{"gray in range", SearchFilter{Species: "Eschrichtius", StartDate: "2024-01-01", EndDate: "2025-12-31"}, []string{"B", "A"}},
		{"limit", SearchFilter{Limit: 2}, []string{"E", "C"}},
		{"offset", SearchFilter{Offset: 3}, []string{"A", "D"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs, err := e.Search(ctx, tt.filter)
			require.NoError(t, err)
			var got []string
			for _, o := range obs {
				got = append(got, o.OccurrenceID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGet(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	obs, err := e.Get(ctx, "C")
	require.NoError(t, err)
	assert.Equal(t, "Megaptera novaeangliae", obs.ScientificName)
	assert.Equal(t, "C", obs.OrganismID)
	assert.Equal(t, "Monterey Bay", obs.Fields()["locality"])

	_, err = e.Get(ctx, "Z")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStatistics(t *testing.T) {
	e, _ := newEngine(t)
	stats, err := e.Statistics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, stats.TotalRecords)
	assert.Equal(t, 3, stats.UniqueSpecies)
	assert.Equal(t, 3, stats.TotalObservers)
	assert.Equal(t, 4, stats.TotalLocations)
	assert.Equal(t, "2024-01-01", stats.ObservationPeriod.Start)
	assert.Equal(t, "2025-02-02", stats.ObservationPeriod.End)
}

func TestStatisticsEmptyStore(t *testing.T) {
	st, err := sqlstore.Open(context.Background(), sqlstore.Config{Path: filepath.Join(t.TempDir(), "empty.db")})
	require.NoError(t, err)
	defer st.Close()

	stats, err := NewSQLEngine(st).Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalRecords)
	assert.Equal(t, "", stats.ObservationPeriod.Start)
}

func TestIngestRuns(t *testing.T) {
	e, _ := newEngine(t)
	runs, err := e.IngestRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "sightings", runs[0].Source)
	assert.Equal(t, 5, runs[0].RowsWritten)
	assert.False(t, runs[0].StartedAt.IsZero())
}
