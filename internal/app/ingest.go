package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Zerofisher/marinedb/pkg/ingest"
	"github.com/Zerofisher/marinedb/pkg/source"
	"github.com/Zerofisher/marinedb/pkg/store"
)

// IngestConfig holds ingest configuration.
type IngestConfig struct {
	Source      string
	Options     source.Options
	MetricsFile string // Prometheus textfile; empty disables
	Progress    func(rows int, elapsed time.Duration)
}

// RunIngest runs one ingestion batch and, when configured, writes the ingest
// metrics as a Prometheus textfile. The metrics file is written even when the
// batch aborts.
func RunIngest(ctx context.Context, w store.Writer, cfg IngestConfig, logger *slog.Logger) (*ingest.Result, error) {
	reg := prometheus.NewRegistry()
	metrics := ingest.NewMetrics(reg)

	p := ingest.New(w, ingest.Config{
		Source:           cfg.Source,
		SourceOptions:    cfg.Options,
		Logger:           logger,
		Metrics:          metrics,
		ProgressCallback: cfg.Progress,
	})

	result, err := p.Run(ctx)

	if cfg.MetricsFile != "" {
		if werr := prometheus.WriteToTextfile(cfg.MetricsFile, reg); werr != nil {
			logger.Warn("write metrics file", "path", cfg.MetricsFile, "error", werr)
		} else {
			logger.Debug("metrics written", "path", cfg.MetricsFile)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", cfg.Source, err)
	}
	return result, nil
}
