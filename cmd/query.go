package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Zerofisher/marinedb/pkg/model"
	"github.com/Zerofisher/marinedb/pkg/query"
	"github.com/Zerofisher/marinedb/pkg/store"
	"github.com/Zerofisher/marinedb/stats"
)

// species command flags
var (
	speciesJSON  bool
	speciesLimit int
)

var speciesCmd = &cobra.Command{
	Use:     "species",
	Short:   "List distinct species",
	Long:    `List every distinct taxon with a scientific name, alphabetically.`,
	Example: `  marinedb species
  marinedb species --json`,
	GroupID: "query",
	Args:    cobra.NoArgs,
	RunE:    runSpecies,
}

// observations command flags
var (
	obsSpecies  string
	obsLocation string
	obsFrom     string
	obsTo       string
	obsOutput   outputFlags
)

var observationsCmd = &cobra.Command{
	Use:   "observations",
	Short: "Observations of one species, place or period",
	Long: `Run one targeted query. Exactly one of --species, --location or the
--from/--to pair must be given.

  --species    exact scientific name
  --location   locality substring, case-insensitive
  --from/--to  inclusive event date range (YYYY-MM-DD)

Results are ordered by event date, newest first.`,
	Example: `  marinedb observations --species "Eschrichtius robustus"
  marinedb observations --location mexico -T fields -e occurrence_id -e event.date
  marinedb observations --from 2024-01-01 --to 2024-12-31 -T json`,
	Aliases: []string{"obs"},
	GroupID: "query",
	Args:    cobra.NoArgs,
	RunE:    runObservations,
}

// search command flags
var (
	searchFilter query.SearchFilter
	searchOutput outputFlags
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search observations by any combination of criteria",
	Long: `Search with optional criteria combined with AND. Name and place criteria
match substrings, case-insensitively. With no criteria every observation is
returned.`,
	Example: `  marinedb search --species Eschrichtius --from 2024-01-01 --to 2025-12-31
  marinedb search --observer lopez --limit 20
  marinedb search --where 'has_coords && coord.lat > 30' -T fields -e occurrence_id -e coord.lat`,
	GroupID: "query",
	Args:    cobra.NoArgs,
	RunE:    runSearch,
}

// get command flags
var getJSON bool

var getCmd = &cobra.Command{
	Use:     "get <occurrence_id>",
	Short:   "Show one observation",
	Example: `  marinedb get 1739_1
  marinedb get 1739_1 --json`,
	GroupID: "query",
	Args:    cobra.ExactArgs(1),
	RunE:    runGet,
}

// runs command flags
var runsLimit int

var runsCmd = &cobra.Command{
	Use:     "runs",
	Short:   "Show ingestion history",
	Example: `  marinedb runs --limit 5`,
	GroupID: "info",
	Args:    cobra.NoArgs,
	RunE:    runRuns,
}

func init() {
	speciesCmd.Flags().BoolVar(&speciesJSON, "json", false, "Output as JSON")
	speciesCmd.Flags().IntVarP(&speciesLimit, "count", "c", 0, "Show at most n species (0 = all)")

	observationsCmd.Flags().StringVar(&obsSpecies, "species", "", "Exact scientific name")
	observationsCmd.Flags().StringVar(&obsLocation, "location", "", "Locality substring")
	observationsCmd.Flags().StringVar(&obsFrom, "from", "", "Start date, inclusive")
	observationsCmd.Flags().StringVar(&obsTo, "to", "", "End date, inclusive")
	observationsCmd.MarkFlagsMutuallyExclusive("species", "location", "from")
	observationsCmd.MarkFlagsMutuallyExclusive("species", "location", "to")
	observationsCmd.MarkFlagsRequiredTogether("from", "to")
	obsOutput.register(observationsCmd)

	f := searchCmd.Flags()
	f.StringVar(&searchFilter.Species, "species", "", "Scientific name substring")
	f.StringVar(&searchFilter.Location, "location", "", "Locality substring")
	f.StringVar(&searchFilter.Observer, "observer", "", "Observer substring")
	f.StringVar(&searchFilter.StartDate, "from", "", "Start date, inclusive")
	f.StringVar(&searchFilter.EndDate, "to", "", "End date, inclusive")
	f.IntVar(&searchFilter.Limit, "limit", 0, "Maximum rows from the store (0 = no limit)")
	f.IntVar(&searchFilter.Offset, "offset", 0, "Rows to skip")
	searchOutput.register(searchCmd)

	getCmd.Flags().BoolVar(&getJSON, "json", false, "Output as JSON")

	runsCmd.Flags().IntVar(&runsLimit, "limit", 10, "Show at most n runs (0 = all)")
}

func runSpecies(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	species, err := query.NewSQLEngine(st).Species(cmd.Context())
	if err != nil {
		return err
	}
	if speciesLimit > 0 && len(species) > speciesLimit {
		species = species[:speciesLimit]
	}

	if speciesJSON {
		return writeJSON(cmd.OutOrStdout(), species)
	}
	stats.PrintSpeciesList(cmd.OutOrStdout(), species)
	return nil
}

func runObservations(cmd *cobra.Command, args []string) error {
	if obsSpecies == "" && obsLocation == "" && obsFrom == "" {
		return errors.New("one of --species, --location or --from/--to is required")
	}

	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	engine := query.NewSQLEngine(st)
	ctx := cmd.Context()

	var obs []*model.Observation
	switch {
	case obsSpecies != "":
		obs, err = engine.BySpecies(ctx, obsSpecies)
	case obsLocation != "":
		obs, err = engine.ByLocation(ctx, obsLocation)
	default:
		obs, err = engine.ByDateRange(ctx, obsFrom, obsTo)
	}
	if err != nil {
		return err
	}

	logger.Debug("observations", "matched", len(obs))
	return obsOutput.write(cmd, obs)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchFilter.Limit < 0 || searchFilter.Offset < 0 {
		return errors.New("--limit and --offset must not be negative")
	}

	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	obs, err := query.NewSQLEngine(st).Search(cmd.Context(), searchFilter)
	if err != nil {
		return err
	}

	logger.Debug("search", "matched", len(obs), "unfiltered", searchFilter.IsEmpty())
	return searchOutput.write(cmd, obs)
}

func runGet(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	o, err := query.NewSQLEngine(st).Get(cmd.Context(), args[0])
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("occurrence %q not found", args[0])
	}
	if err != nil {
		return err
	}

	if getJSON {
		return writeJSON(cmd.OutOrStdout(), o)
	}
	out := outputFlags{format: "text", detail: true}
	return out.write(cmd, []*model.Observation{o})
}

func runRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := query.NewSQLEngine(st).IngestRuns(cmd.Context(), runsLimit)
	if err != nil {
		return err
	}
	stats.PrintIngestRuns(cmd.OutOrStdout(), runs)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
