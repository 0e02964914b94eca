// Package ingest provides the ingestion pipeline for occurrence sources.
// It reads rows, decomposes each into entities, and writes the whole source
// in one batch with per-row isolation.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Zerofisher/marinedb/pkg/model"
	"github.com/Zerofisher/marinedb/pkg/source"
	"github.com/Zerofisher/marinedb/pkg/store"
)

// rowSavepoint brackets the writes of a single row.
const rowSavepoint = "ingest_row"

// Config holds configuration for the ingest pipeline.
type Config struct {
	// Source is a local path or s3://bucket/key.
	Source string

	// SourceOptions control decoding of the source.
	SourceOptions source.Options

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics is optional.
	Metrics *Metrics

	// ProgressCallback is called every ProgressEvery rows.
	ProgressCallback func(rows int, elapsed time.Duration)

	// ProgressEvery defaults to 1000 if <= 0.
	ProgressEvery int
}

// RowIterator yields rows until io.EOF.
type RowIterator interface {
	Next() (model.RawRow, error)
}

// RowError is a row that was skipped. Index is the 0-based position in the source.
type RowError struct {
	Index        int
	OccurrenceID string
	Err          error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d (occurrence %q): %v", e.Index, e.OccurrenceID, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// Result holds the result of an ingest operation.
type Result struct {
	RunID       string
	Source      string
	RowsRead    int
	RowsWritten int
	Skipped     []RowError
	Duration    time.Duration
}

// Pipeline is the ingest pipeline.
type Pipeline struct {
	cfg    Config
	store  store.Writer
	norm   *Normalizer
	logger *slog.Logger
	now    func() time.Time
}

// New creates a new ingest pipeline writing to w.
func New(w store.Writer, cfg Config) *Pipeline {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = 1000
	}
	return &Pipeline{
		cfg:    cfg,
		store:  w,
		norm:   NewNormalizer(w, cfg.Logger),
		logger: cfg.Logger,
		now:    time.Now,
	}
}

// Run opens the configured source and ingests it. Failing to open the source
// or read its header writes nothing.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	r, err := source.Open(ctx, p.cfg.Source, p.cfg.SourceOptions)
	if err != nil {
		p.cfg.Metrics.batch(outcomeAborted, 0)
		return nil, err
	}
	defer r.Close()

	return p.Ingest(ctx, r.Name(), r)
}

// Ingest writes every row of rows in a single batch. A row that fails is
// rolled back to its savepoint and recorded in Result.Skipped; earlier and
// later rows are unaffected. A read error or cancellation aborts the whole
// batch.
func (p *Pipeline) Ingest(ctx context.Context, name string, rows RowIterator) (*Result, error) {
	started := p.now()
	result := &Result{Source: name}

	runID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("run id: %w", err)
	}
	result.RunID = runID.String()

	log := p.logger.With("run_id", result.RunID, "source", name)
	log.Info("ingest started")

	if err := p.store.BeginBatch(ctx); err != nil {
		p.cfg.Metrics.batch(outcomeAborted, 0)
		return nil, err
	}

	abort := func(err error) (*Result, error) {
		if rbErr := p.store.RollbackBatch(); rbErr != nil {
			log.Warn("rollback failed", "error", rbErr)
		}
		p.cfg.Metrics.batch(outcomeAborted, 0)
		log.Error("ingest aborted", "rows_read", result.RowsRead, "error", err)
		return nil, err
	}

	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return abort(err)
		}

		row, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return abort(fmt.Errorf("read source: %w", err))
		}
		result.RowsRead++

		rowErr, err := p.ingestRow(ctx, row)
		if err != nil {
			return abort(err)
		}
		if rowErr != nil {
			skipped := RowError{Index: index, OccurrenceID: row.Get(model.ColOccurrenceID), Err: rowErr}
			result.Skipped = append(result.Skipped, skipped)
			p.cfg.Metrics.row(outcomeSkipped)
			log.Error("row skipped", "row", index, "occurrence_id", skipped.OccurrenceID, "error", rowErr)
		} else {
			result.RowsWritten++
			p.cfg.Metrics.row(outcomeWritten)
		}

		if p.cfg.ProgressCallback != nil && result.RowsRead%p.cfg.ProgressEvery == 0 {
			p.cfg.ProgressCallback(result.RowsRead, p.now().Sub(started))
		}
	}

	finished := p.now()
	err = p.store.InsertIngestRun(ctx, model.IngestRun{
		RunID:       result.RunID,
		Source:      name,
		StartedAt:   started,
		FinishedAt:  finished,
		RowsRead:    result.RowsRead,
		RowsWritten: result.RowsWritten,
		RowsSkipped: len(result.Skipped),
	})
	if err != nil {
		return abort(err)
	}

	if err := p.store.CommitBatch(); err != nil {
		p.cfg.Metrics.batch(outcomeAborted, 0)
		return nil, err
	}

	result.Duration = finished.Sub(started)
	p.cfg.Metrics.batch(outcomeCommitted, result.Duration.Seconds())
	log.Info("ingest committed",
		"rows_read", result.RowsRead,
		"rows_written", result.RowsWritten,
		"rows_skipped", len(result.Skipped),
		"duration", result.Duration)
	return result, nil
}

// ingestRow returns a row-level error when the row was discarded, or a
// non-nil second error when the batch itself can no longer continue.
func (p *Pipeline) ingestRow(ctx context.Context, row model.RawRow) (rowErr, err error) {
	occ, err := Extract(row)
	if err != nil {
		return err, nil
	}

	if err := p.store.Savepoint(ctx, rowSavepoint); err != nil {
		return nil, err
	}

	if _, nerr := p.norm.Normalize(ctx, occ); nerr != nil {
		if err := p.store.RollbackToSavepoint(ctx, rowSavepoint); err != nil {
			return nil, err
		}
		if err := p.store.ReleaseSavepoint(ctx, rowSavepoint); err != nil {
			return nil, err
		}
		return nerr, nil
	}

	if err := p.store.ReleaseSavepoint(ctx, rowSavepoint); err != nil {
		return nil, err
	}
	return nil, nil
}
