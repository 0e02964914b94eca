// Package store defines the storage interfaces for the normalized occurrence store.
package store

import (
	"context"
	"errors"

	"github.com/Zerofisher/marinedb/pkg/model"
)

// SchemaVersion is recorded in the meta table by the SQL stores.
const SchemaVersion = 1

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoBatch is returned by write operations outside BeginBatch/CommitBatch.
	ErrNoBatch = errors.New("no batch in progress")

	// ErrBatchInProgress is returned by BeginBatch when a batch is already open.
	ErrBatchInProgress = errors.New("batch already in progress")
)

// Store defines the interface for the occurrence store.
type Store interface {
	// Lifecycle
	Close() error

	// Provision creates all tables if absent. Safe to call repeatedly.
	Provision(ctx context.Context) error

	// Write operations (used by ingest and mutate)
	Writer
}

// Resolver turns entity attributes into stable identifiers, inserting an
// entity only when its natural key is not stored yet.
type Resolver interface {
	// ResolveOrganism returns the organism id, which is its own natural key.
	ResolveOrganism(ctx context.Context, o model.Organism) (string, error)

	// ResolveObserver returns the id bound to RecordedBy.
	ResolveObserver(ctx context.Context, o model.Observer) (model.Ref, error)

	// ResolveLocation returns the id bound to the four location fields.
	ResolveLocation(ctx context.Context, l model.Location) (model.Ref, error)

	// ResolveEvent returns the event id, which is its own natural key.
	ResolveEvent(ctx context.Context, e model.Event) (string, error)

	// ResolveMedia returns the id bound to (ExternalResource, CatalogNumber).
	ResolveMedia(ctx context.Context, m model.Media) (model.Ref, error)

	// InsertDatasetMetadata always inserts and returns the new id.
	InsertDatasetMetadata(ctx context.Context, d model.DatasetMetadata) (model.Ref, error)
}

// Writer defines write-side operations. All of them run inside a batch.
type Writer interface {
	// BeginBatch starts a batch write transaction.
	BeginBatch(ctx context.Context) error

	// CommitBatch commits the current batch.
	CommitBatch() error

	// RollbackBatch rolls back the current batch. No-op without a batch.
	RollbackBatch() error

	// Savepoint marks a point inside the batch that RollbackToSavepoint can
	// return to without losing earlier work.
	Savepoint(ctx context.Context, name string) error

	// ReleaseSavepoint forgets a savepoint, keeping its work.
	ReleaseSavepoint(ctx context.Context, name string) error

	// RollbackToSavepoint discards work done since the savepoint.
	RollbackToSavepoint(ctx context.Context, name string) error

	Resolver

	// UpsertRecord inserts the record or fully replaces the one with the same occurrence id.
	UpsertRecord(ctx context.Context, r model.Record) error

	// DeleteRecord removes a record. Reports whether a row was removed.
	DeleteRecord(ctx context.Context, occurrenceID string) (bool, error)

	// UpdateRecord sets record scalars. Columns must be in model.UpdatableRecordFields.
	// Reports whether a row was changed.
	UpdateRecord(ctx context.Context, occurrenceID string, set []Assignment) (bool, error)

	// InsertIngestRun records a completed ingest batch.
	InsertIngestRun(ctx context.Context, run model.IngestRun) error
}

// Assignment is one column = value pair of an update.
type Assignment struct {
	Column string
	Value  any
}
