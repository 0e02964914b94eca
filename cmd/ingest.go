package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Zerofisher/marinedb/internal/app"
	"github.com/Zerofisher/marinedb/pkg/source"
	"github.com/Zerofisher/marinedb/stats"
)

// ingest command flags
var (
	ingestDelimiter   string
	ingestEncoding    string
	ingestMetricsFile string
	ingestQuiet       bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <source>",
	Short: "Load occurrence records from a CSV source",
	Long: `Read a CSV file (local path or s3://bucket/key) and store every row.

All rows are written in one transaction. A row that cannot be stored is
skipped and reported; the other rows are kept. Re-ingesting the same file
replaces records with the same occurrence_id and reuses existing organisms,
observers, locations, events and media.`,
	Example: `  marinedb ingest datasets/obis_seamap_dataset_1739_points.csv
  marinedb ingest sightings.tsv --delimiter '\t' --encoding latin1
  marinedb ingest s3://ocean-data/whales.csv --metrics-file /var/lib/node_exporter/marinedb.prom`,
	Args:    cobra.ExactArgs(1),
	GroupID: "data",
	RunE:    runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestDelimiter, "delimiter", "d", "",
		`Field delimiter (default ","; use '\t' for tab)`)
	ingestCmd.Flags().StringVar(&ingestEncoding, "encoding", "",
		"Source encoding: utf-8, latin1, windows-1252, utf-16")
	ingestCmd.Flags().StringVar(&ingestMetricsFile, "metrics-file", "",
		"Write ingest metrics to a Prometheus textfile")
	ingestCmd.Flags().BoolVarP(&ingestQuiet, "quiet", "q", false,
		"Do not print progress")
}

func runIngest(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if flags.Changed("delimiter") {
		cfg.Source.Delimiter = ingestDelimiter
	}
	if flags.Changed("encoding") {
		cfg.Source.Encoding = ingestEncoding
	}
	if flags.Changed("metrics-file") {
		cfg.Metrics.File = ingestMetricsFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Local sources are checked before the store is created.
	src := args[0]
	if !source.IsS3(src) {
		if _, err := os.Stat(src); err != nil {
			return fmt.Errorf("open source %s: %w", src, err)
		}
	}

	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	stderr := cmd.ErrOrStderr()
	progressed := false
	var progress func(int, time.Duration)
	if !ingestQuiet {
		progress = func(rows int, elapsed time.Duration) {
			progressed = true
			fmt.Fprintf(stderr, "\rProcessed %d rows (%.1f rows/s)", rows, float64(rows)/elapsed.Seconds())
		}
	}

	result, err := app.RunIngest(cmd.Context(), st, app.IngestConfig{
		Source:      src,
		Options:     cfg.SourceOptions(),
		MetricsFile: cfg.Metrics.File,
		Progress:    progress,
	}, logger)
	if progressed {
		fmt.Fprintln(stderr)
	}
	if err != nil {
		return err
	}

	stats.PrintIngestResult(cmd.OutOrStdout(), result)
	return nil
}
