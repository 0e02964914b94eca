package app

import (
	"fmt"
	"io"

	"github.com/Zerofisher/marinedb/export"
	"github.com/Zerofisher/marinedb/pkg/model"
)

// ExportConfig holds export configuration.
type ExportConfig struct {
	Where      string
	Format     export.OutputFormat
	MaxCount   int
	ShowDetail bool
	ShowHeader bool
	Fields     []string
}

// RunExport executes the export flow: filter -> export.
func RunExport(out io.Writer, obs []*model.Observation, cfg ExportConfig) error {
	// 1. Compile where filter
	keep, err := CompileWhere(cfg.Where)
	if err != nil {
		return fmt.Errorf("error compiling where expression: %w", err)
	}

	// 2. Create exporter
	exporter := export.NewExporter(out, cfg.Format)
	exporter.SetMaxCount(cfg.MaxCount)

	if cfg.Format == export.FormatText {
		exporter.SetShowDetail(cfg.ShowDetail)
	}
	if cfg.Format == export.FormatFields {
		exporter.SetFields(cfg.Fields)
		exporter.SetShowHeader(cfg.ShowHeader)
	}
	if err := exporter.Validate(); err != nil {
		return err
	}

	if err := exporter.Start(); err != nil {
		return fmt.Errorf("error starting export: %w", err)
	}

	// 3. Process observations
	for _, o := range obs {
		if keep != nil && !keep(o) {
			continue
		}
		if err := exporter.ExportObservation(o); err != nil {
			return fmt.Errorf("error exporting observation: %w", err)
		}
		if exporter.ShouldStop() {
			break
		}
	}

	return exporter.Finish()
}
