package mutate

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zerofisher/marinedb/pkg/model"
	"github.com/Zerofisher/marinedb/pkg/query"
	"github.com/Zerofisher/marinedb/pkg/store"
	"github.com/Zerofisher/marinedb/pkg/store/sqlstore"
)

var fixedNow = time.Date(2025, 7, 4, 9, 30, 15, 0, time.UTC)

func newService(t *testing.T) (*Service, *query.SQLEngine) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := sqlstore.Open(context.Background(), sqlstore.Config{
		Path:   filepath.Join(t.TempDir(), "marine.db"),
		Logger: logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	svc := New(st, WithLogger(logger), WithClock(func() time.Time { return fixedNow }))
	return svc, query.NewSQLEngine(st)
}

func TestGenerateID(t *testing.T) {
	assert.Equal(t, "new_20250704_093015", GenerateID(fixedNow))
}

func TestAddGeneratesID(t *testing.T) {
	svc, q := newService(t)
	ctx := context.Background()

	id, err := svc.Add(ctx, model.RawRow{
		model.ColScientificName: "Orcinus orca",
		model.ColLocality:       "Puget Sound",
		model.ColEventDate:      "2025-07-04",
	})
	require.NoError(t, err)
	assert.Equal(t, "new_20250704_093015", id)

	obs, err := q.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Orcinus orca", obs.ScientificName)
	assert.Equal(t, id, obs.OrganismID)
}

func TestAddKeepsSuppliedID(t *testing.T) {
	svc, _ := newService(t)
	id, err := svc.Add(context.Background(), model.RawRow{model.ColOccurrenceID: "obs-42"})
	require.NoError(t, err)
	assert.Equal(t, "obs-42", id)
}

func TestAddInvalidRow(t *testing.T) {
	svc, q := newService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, model.RawRow{model.ColOccurrenceID: "bad", model.ColDecimalLatitude: "north"})
	require.Error(t, err)

	stats, err := q.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalRecords)
}

func TestDeleteThenRedelete(t *testing.T) {
	svc, q := newService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, model.RawRow{model.ColOccurrenceID: "A", model.ColScientificName: "Orcinus orca"})
	require.NoError(t, err)

	ok, err := svc.Delete(ctx, "A")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Delete(ctx, "A")
	require.NoError(t, err)
	assert.False(t, ok)

	// The organism survives.
	species, err := q.Species(ctx)
	require.NoError(t, err)
	assert.Len(t, species, 1)
}

func TestUpdate(t *testing.T) {
	svc, q := newService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, model.RawRow{
		model.ColOccurrenceID:    "A",
		model.ColScientificName:  "Orcinus orca",
		model.ColDecimalLatitude: "47.6",
	})
	require.NoError(t, err)

	ok, err := svc.Update(ctx, "A", map[string]string{
		model.ColDecimalLatitude: "48.1",
		model.ColEventDate:       "2025-08-01",
		model.ColScientificName:  "Changed",
	})
	require.NoError(t, err)
	assert.True(t, ok)

	obs, err := q.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 48.1, obs.DecimalLatitude)
	assert.Equal(t, "2025-08-01", obs.EventDate)
	assert.Equal(t, "Orcinus orca", obs.ScientificName)
}

func TestUpdateScope(t *testing.T) {
	svc, q := newService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, model.RawRow{model.ColOccurrenceID: "A", model.ColScientificName: "Orcinus orca"})
	require.NoError(t, err)

	ok, err := svc.Update(ctx, "A", map[string]string{model.ColScientificName: "Changed"})
	require.NoError(t, err)
	assert.False(t, ok)

	obs, err := q.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "Orcinus orca", obs.ScientificName)
}

func TestUpdateMissingRecord(t *testing.T) {
	svc, _ := newService(t)
	ok, err := svc.Update(context.Background(), "nope", map[string]string{model.ColEventDate: "2025-01-01"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateBadNumber(t *testing.T) {
	svc, _ := newService(t)
	ok, err := svc.Update(context.Background(), "A", map[string]string{model.ColDecimalLongitude: "west"})
	assert.Error(t, err)
	assert.False(t, ok)

	for _, v := range []string{"Inf", "NaN"} {
		ok, err = svc.Update(context.Background(), "A", map[string]string{model.ColDecimalLatitude: v})
		assert.Error(t, err, v)
		assert.False(t, ok, v)
	}
}

func TestAssignmentsOrder(t *testing.T) {
	set, err := Assignments(map[string]string{
		model.ColGeodeticDatum:   "WGS84",
		model.ColDecimalLatitude: "",
		"locality":               "ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, []store.Assignment{
		{Column: model.ColDecimalLatitude, Value: 0.0},
		{Column: model.ColGeodeticDatum, Value: "WGS84"},
	}, set)
}
