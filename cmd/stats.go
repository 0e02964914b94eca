package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Zerofisher/marinedb/expert"
	"github.com/Zerofisher/marinedb/filter"
	"github.com/Zerofisher/marinedb/internal/app"
	"github.com/Zerofisher/marinedb/pkg/model"
	"github.com/Zerofisher/marinedb/pkg/query"
	"github.com/Zerofisher/marinedb/stats"
)

// stats command flags
var statsWhere string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Database statistics",
	Long: `Display aggregate counts over the whole store: records, distinct species,
observers, locations and the observation period.

Subcommands break records down by species, observer or year.`,
	Example: `  marinedb stats
  marinedb stats years
  marinedb stats observers --where 'location.water_body == "Pacific Ocean"'`,
	GroupID: "query",
	Args:    cobra.NoArgs,
	RunE:    runStats,
}

var statsSpeciesCmd = &cobra.Command{
	Use:   "species",
	Short: "Records per species",
	RunE:  runStatsBreakdown,
}

var statsObserversCmd = &cobra.Command{
	Use:   "observers",
	Short: "Records per observer",
	RunE:  runStatsBreakdown,
}

var statsYearsCmd = &cobra.Command{
	Use:   "years",
	Short: "Records per year",
	RunE:  runStatsBreakdown,
}

// quality subcommand flags
var statsQualitySeverity string

var statsQualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "Data quality analysis",
	Long: `Check every record for likely data problems: coordinates out of range,
missing or malformed dates, dates in the future, missing names and repeated
sightings of the same species at the same place and time.`,
	Example: `  marinedb stats quality
  marinedb stats quality --severity warning`,
	RunE: runStatsQuality,
}

func init() {
	statsCmd.PersistentFlags().StringVarP(&statsWhere, "where", "Y", "",
		"Only count observations matching this expression (subcommands)")

	statsCmd.AddCommand(statsSpeciesCmd)
	statsCmd.AddCommand(statsObserversCmd)
	statsCmd.AddCommand(statsYearsCmd)
	statsCmd.AddCommand(statsQualityCmd)

	statsQualityCmd.Flags().StringVar(&statsQualitySeverity, "severity", "note",
		"Minimum severity level: chat, note, warning, error")
}

// runStats shows store-wide statistics
func runStats(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	s, err := query.NewSQLEngine(st).Statistics(cmd.Context())
	if err != nil {
		return err
	}
	stats.PrintStatistics(cmd.OutOrStdout(), s)
	return nil
}

// filteredObservations loads every observation matching --where
func filteredObservations(cmd *cobra.Command) ([]*model.Observation, error) {
	keep, err := app.CompileWhere(statsWhere)
	if err != nil {
		return nil, err
	}

	st, err := openStore(cmd)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	obs, err := query.NewSQLEngine(st).Search(cmd.Context(), query.SearchFilter{})
	if err != nil {
		return nil, err
	}
	return filter.Apply(obs, keep), nil
}

// runStatsBreakdown tallies every observation and prints the view named by
// the subcommand
func runStatsBreakdown(cmd *cobra.Command, args []string) error {
	obs, err := filteredObservations(cmd)
	if err != nil {
		return err
	}

	mgr := stats.NewManager()
	for _, o := range obs {
		mgr.ProcessObservation(o)
	}

	out := cmd.OutOrStdout()
	switch cmd.Name() {
	case "species":
		mgr.PrintSpecies(out)
	case "observers":
		mgr.PrintObservers(out)
	default:
		mgr.PrintYears(out)
	}
	return nil
}

// runStatsQuality performs data quality analysis
func runStatsQuality(cmd *cobra.Command, args []string) error {
	minSeverity, err := expert.ParseSeverity(statsQualitySeverity)
	if err != nil {
		return err
	}

	obs, err := filteredObservations(cmd)
	if err != nil {
		return err
	}

	analyzer := expert.NewAnalyzer()
	for _, o := range obs {
		analyzer.Analyze(o)
	}

	out := cmd.OutOrStdout()
	analyzer.PrintSummary(out)
	fmt.Fprintln(out)
	analyzer.PrintDetails(out, minSeverity)
	return nil
}
