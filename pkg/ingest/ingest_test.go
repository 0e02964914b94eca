package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zerofisher/marinedb/pkg/model"
	"github.com/Zerofisher/marinedb/pkg/source"
	"github.com/Zerofisher/marinedb/pkg/store/sqlstore"
)

const header = "occurrence_id,scientific_name,vernacular_name,recorded_by,higher_geography,water_body,locality,verbatim_locality,decimal_latitude,decimal_longitude,event_date,oid,notes\n"

const sample = header +
	`A,Eschrichtius robustus,Gray Whale,Ana,North Pacific,Pacific Ocean,Baja California,,24.8,-112.1,2024-02-10,ds1,"{""boat"":""Maria""}"` + "\n" +
	`B,Megaptera novaeangliae,Humpback Whale,Ben,North Pacific,Pacific Ocean,Baja California,,24.9,-112.0,2024-03-01,ds1,not json` + "\n" +
	`C,Eschrichtius robustus,Gray Whale,Ana,North Pacific,Pacific Ocean,Monterey Bay,,36.8,-121.9,2024-04-15,ds1,` + "\n"

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func openStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	s, err := sqlstore.Open(context.Background(), sqlstore.Config{
		Path:   filepath.Join(t.TempDir(), "marine.db"),
		Logger: quietLogger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func ingestString(t *testing.T, s *sqlstore.Store, data string) *Result {
	t.Helper()
	r, err := source.NewReader("inline", strings.NewReader(data), source.Options{})
	require.NoError(t, err)
	res, err := New(s, Config{Logger: quietLogger}).Ingest(context.Background(), "inline", r)
	require.NoError(t, err)
	return res
}

func counts(t *testing.T, s *sqlstore.Store) map[string]int {
	t.Helper()
	c, err := s.TableCounts(context.Background())
	require.NoError(t, err)
	return c
}

func TestIngestIdempotent(t *testing.T) {
	s := openStore(t)

	res := ingestString(t, s, sample)
	assert.Equal(t, 3, res.RowsRead)
	assert.Equal(t, 3, res.RowsWritten)
	assert.Empty(t, res.Skipped)
	first := counts(t, s)

	ingestString(t, s, sample)
	second := counts(t, s)

	for _, table := range []string{
		sqlstore.TableOrganism, sqlstore.TableObserver, sqlstore.TableLocation,
		sqlstore.TableEvent, sqlstore.TableMedia, sqlstore.TableRecord,
	} {
		assert.Equal(t, first[table], second[table], table)
	}
	assert.Equal(t, 3, first[sqlstore.TableDatasetMetadata])
	assert.Equal(t, 6, second[sqlstore.TableDatasetMetadata])
	assert.Equal(t, 2, second[sqlstore.TableIngestRun])
}

func TestIngestLocationDedup(t *testing.T) {
	s := openStore(t)
	ingestString(t, s, sample)

	c := counts(t, s)
	assert.Equal(t, 2, c[sqlstore.TableLocation])
	assert.Equal(t, 2, c[sqlstore.TableObserver])
	assert.Equal(t, 1, c[sqlstore.TableMedia], "all rows share the empty media key")

	var a, b model.Ref
	require.NoError(t, s.DB().QueryRow(`SELECT location_id FROM record WHERE occurrence_id = 'A'`).Scan(&a))
	require.NoError(t, s.DB().QueryRow(`SELECT location_id FROM record WHERE occurrence_id = 'B'`).Scan(&b))
	require.True(t, a.Valid)
	assert.Equal(t, a, b)
}

func TestIngestUpsertReplaces(t *testing.T) {
	s := openStore(t)
	ingestString(t, s, "occurrence_id,decimal_latitude,geodetic_datum\nX,10.0,WGS84\n")
	ingestString(t, s, "occurrence_id,decimal_latitude\nX,20.0\n")

	var n int
	var lat float64
	var datum string
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM record WHERE occurrence_id = 'X'`).Scan(&n))
	require.NoError(t, s.DB().QueryRow(`SELECT decimal_latitude, geodetic_datum FROM record WHERE occurrence_id = 'X'`).Scan(&lat, &datum))
	assert.Equal(t, 1, n)
	assert.Equal(t, 20.0, lat)
	assert.Equal(t, "", datum, "absent field reverts to default")
}

func TestIngestRowIsolation(t *testing.T) {
	s := openStore(t)
	data := "occurrence_id,decimal_latitude,recorded_by\n" +
		"R1,1.5,Ana\n" +
		"R2,north,Ben\n" +
		"R3,3.5,Cy\n"
	res := ingestString(t, s, data)

	assert.Equal(t, 3, res.RowsRead)
	assert.Equal(t, 2, res.RowsWritten)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 1, res.Skipped[0].Index)
	assert.Equal(t, "R2", res.Skipped[0].OccurrenceID)

	var fe *FieldError
	require.ErrorAs(t, res.Skipped[0], &fe)
	assert.Equal(t, model.ColDecimalLatitude, fe.Column)

	c := counts(t, s)
	assert.Equal(t, 2, c[sqlstore.TableRecord])
	assert.Equal(t, 2, c[sqlstore.TableObserver])
}

func TestIngestSkipsNonFiniteCoordinates(t *testing.T) {
	s := openStore(t)
	res := ingestString(t, s, "occurrence_id,decimal_latitude\nA,Inf\nB,NaN\nC,5\n")

	assert.Equal(t, 1, res.RowsWritten)
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, "A", res.Skipped[0].OccurrenceID)
	assert.Equal(t, "B", res.Skipped[1].OccurrenceID)

	var lat float64
	require.NoError(t, s.DB().QueryRow(`SELECT decimal_latitude FROM record WHERE occurrence_id = 'C'`).Scan(&lat))
	assert.Equal(t, 5.0, lat)
	assert.Equal(t, 1, counts(t, s)[sqlstore.TableRecord])
}

// failingWriter fails the record write of one occurrence after its entities
// have been written, to check that the row savepoint discards them.
type failingWriter struct {
	*sqlstore.Store
	failID string
}

func (w *failingWriter) UpsertRecord(ctx context.Context, r model.Record) error {
	if r.OccurrenceID == w.failID {
		return errors.New("disk on fire")
	}
	return w.Store.UpsertRecord(ctx, r)
}

func TestIngestRollsBackFailedRowEntities(t *testing.T) {
	s := openStore(t)
	w := &failingWriter{Store: s, failID: "R2"}

	data := "occurrence_id,recorded_by\nR1,Ana\nR2,Ben\nR3,Cy\n"
	r, err := source.NewReader("inline", strings.NewReader(data), source.Options{})
	require.NoError(t, err)
	res, err := New(w, Config{Logger: quietLogger}).Ingest(context.Background(), "inline", r)
	require.NoError(t, err)

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "R2", res.Skipped[0].OccurrenceID)

	var n int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM observer WHERE recorded_by = 'Ben'`).Scan(&n))
	assert.Equal(t, 0, n)
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM record`).Scan(&n))
	assert.Equal(t, 2, n)
}

type brokenRows struct{ n int }

func (b *brokenRows) Next() (model.RawRow, error) {
	b.n++
	if b.n == 1 {
		return model.RawRow{model.ColOccurrenceID: "ok"}, nil
	}
	return nil, errors.New("truncated input")
}

func TestIngestReadErrorAbortsBatch(t *testing.T) {
	s := openStore(t)
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	_, err := New(s, Config{Logger: quietLogger, Metrics: m}).Ingest(context.Background(), "broken", &brokenRows{})
	require.Error(t, err)

	c := counts(t, s)
	assert.Equal(t, 0, c[sqlstore.TableRecord])
	assert.Equal(t, 0, c[sqlstore.TableIngestRun])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Batches.WithLabelValues(outcomeAborted)))
}

func TestRunMissingSource(t *testing.T) {
	s := openStore(t)
	_, err := New(s, Config{Source: filepath.Join(t.TempDir(), "nope.csv"), Logger: quietLogger}).Run(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, 0, counts(t, s)[sqlstore.TableIngestRun])
}

func TestRunFromFileWithMetrics(t *testing.T) {
	s := openStore(t)
	path := filepath.Join(t.TempDir(), "whales.csv")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	var progress []int
	p := New(s, Config{
		Source:           path,
		Logger:           quietLogger,
		Metrics:          m,
		ProgressEvery:    2,
		ProgressCallback: func(rows int, _ time.Duration) { progress = append(progress, rows) },
	})
	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, path, res.Source)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []int{2}, progress)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Rows.WithLabelValues(outcomeWritten)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Batches.WithLabelValues(outcomeCommitted)))

	var rows int
	require.NoError(t, s.DB().QueryRow(`SELECT rows_written FROM ingest_run WHERE run_id = ?`, res.RunID).Scan(&rows))
	assert.Equal(t, 3, rows)
}

func TestCancelledContextAborts(t *testing.T) {
	s := openStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, err := source.NewReader("inline", strings.NewReader(sample), source.Options{})
	require.NoError(t, err)
	_, err = New(s, Config{Logger: quietLogger}).Ingest(ctx, "inline", r)
	assert.Error(t, err)
}
