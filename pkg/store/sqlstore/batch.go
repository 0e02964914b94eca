package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Zerofisher/marinedb/pkg/store"
)

// ────────────────────────────────────────────────────────────────────────────────
// Batch Write Operations
// ────────────────────────────────────────────────────────────────────────────────

// BeginBatch starts a batch write transaction.
func (s *Store) BeginBatch(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx != nil {
		return store.ErrBatchInProgress
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	s.tx = tx
	s.stmts = make(map[string]*sql.Stmt)
	return nil
}

// CommitBatch commits the current batch.
func (s *Store) CommitBatch() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx == nil {
		return store.ErrNoBatch
	}

	s.closeStmts()
	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// RollbackBatch rolls back the current batch.
func (s *Store) RollbackBatch() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx == nil {
		return nil
	}

	s.closeStmts()
	err := s.tx.Rollback()
	s.tx = nil
	return err
}

// Savepoint marks a point in the current batch.
func (s *Store) Savepoint(ctx context.Context, name string) error {
	return s.execSavepoint(ctx, "SAVEPOINT ", name)
}

// ReleaseSavepoint keeps the work done since the savepoint.
func (s *Store) ReleaseSavepoint(ctx context.Context, name string) error {
	return s.execSavepoint(ctx, "RELEASE SAVEPOINT ", name)
}

// RollbackToSavepoint discards the work done since the savepoint. On Postgres
// this also clears the aborted state a failed statement leaves behind.
func (s *Store) RollbackToSavepoint(ctx context.Context, name string) error {
	return s.execSavepoint(ctx, "ROLLBACK TO SAVEPOINT ", name)
}

func (s *Store) execSavepoint(ctx context.Context, verb, name string) error {
	if !validIdentifier(name) {
		return fmt.Errorf("invalid savepoint name %q", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx == nil {
		return store.ErrNoBatch
	}
	if _, err := s.tx.ExecContext(ctx, verb+name); err != nil {
		return fmt.Errorf("%s%s: %w", verb, name, err)
	}
	return nil
}

// getStmt returns a statement prepared on the batch tx. Caller holds s.mu.
func (s *Store) getStmt(ctx context.Context, name, query string) (*sql.Stmt, error) {
	if stmt, ok := s.stmts[name]; ok {
		return stmt, nil
	}

	stmt, err := s.tx.PrepareContext(ctx, s.d.rebind(query))
	if err != nil {
		return nil, fmt.Errorf("prepare %s: %w", name, err)
	}
	s.stmts[name] = stmt
	return stmt, nil
}

func (s *Store) closeStmts() {
	for _, stmt := range s.stmts {
		stmt.Close()
	}
	s.stmts = nil
}

func validIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
