package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Zerofisher/marinedb/internal/app"
	"github.com/Zerofisher/marinedb/pkg/query"
	"github.com/Zerofisher/marinedb/stats"
)

var demoCmd = &cobra.Command{
	Use:   "demo <source>",
	Short: "Ingest a file and run the sample queries",
	Long: `Ingest a CSV source, then print statistics, the first species and the
results of a few typical queries: gray whale observations, a species and
date search, and observations in Mexico.`,
	Example: `  marinedb demo datasets/obis_seamap_dataset_1739_points.csv`,
	GroupID: "data",
	Args:    cobra.ExactArgs(1),
	RunE:    runDemo,
}

func runDemo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	fmt.Fprintln(out, "1. Loading CSV data...")
	result, err := app.RunIngest(ctx, st, app.IngestConfig{
		Source:      args[0],
		Options:     cfg.SourceOptions(),
		MetricsFile: cfg.Metrics.File,
	}, logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "  Read %d rows, wrote %d, skipped %d\n", result.RowsRead, result.RowsWritten, len(result.Skipped))

	engine := query.NewSQLEngine(st)

	fmt.Fprintln(out, "\n2. Database statistics:")
	s, err := engine.Statistics(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "  total_records: %d\n", s.TotalRecords)
	fmt.Fprintf(out, "  unique_species: %d\n", s.UniqueSpecies)
	fmt.Fprintf(out, "  total_observers: %d\n", s.TotalObservers)
	fmt.Fprintf(out, "  total_locations: %d\n", s.TotalLocations)
	fmt.Fprintf(out, "  observation_period: %s\n", stats.FormatPeriod(s.ObservationPeriod))

	fmt.Fprintln(out, "\n3. Species in the database:")
	species, err := engine.Species(ctx)
	if err != nil {
		return err
	}
	for i, sp := range species {
		if i == 5 {
			break
		}
		fmt.Fprintf(out, "  %s (%s)\n", sp.ScientificName, sp.VernacularName)
	}

	fmt.Fprintln(out, "\n4. Gray whale observations:")
	gray, err := engine.BySpecies(ctx, "Eschrichtius robustus")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "  Found %d observations\n", len(gray))

	fmt.Fprintln(out, "\n5. Search by parameters:")
	found, err := engine.Search(ctx, query.SearchFilter{
		Species:   "Gray",
		StartDate: "2024-01-01",
		EndDate:   "2025-12-31",
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "  Found %d records\n", len(found))

	fmt.Fprintln(out, "\n6. Observations in Mexico:")
	mexico, err := engine.ByLocation(ctx, "Mexico")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "  Found %d observations\n", len(mexico))
	return nil
}
