// Package app provides application-level orchestration for marinedb.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Zerofisher/marinedb/filter"
	"github.com/Zerofisher/marinedb/internal/config"
	"github.com/Zerofisher/marinedb/pkg/model"
	"github.com/Zerofisher/marinedb/pkg/store/sqlstore"
)

// OpenStore validates cfg and opens the configured store. The schema is
// provisioned on open.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sqlstore.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	st, err := sqlstore.Open(ctx, cfg.StoreConfig(logger))
	if err != nil {
		return nil, fmt.Errorf("error opening store: %w", err)
	}

	version, err := st.SchemaVersion(ctx)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("error opening store: %w", err)
	}

	logger.Debug("store opened", "driver", st.Driver(), "path", st.Path(), "schema_version", version)
	return st, nil
}

// CompileWhere compiles a --where expression.
// Returns nil filter function if expr is empty.
func CompileWhere(expr string) (func(*model.Observation) bool, error) {
	if expr == "" {
		return nil, nil
	}
	return filter.Compile(expr)
}
