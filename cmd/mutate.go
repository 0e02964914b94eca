package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Zerofisher/marinedb/pkg/model"
	"github.com/Zerofisher/marinedb/pkg/mutate"
)

// add / update command flags
var (
	addSet    []string
	updateSet []string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add one occurrence record",
	Long: `Add a record from column=value pairs, using the same column names as CSV
sources. Without occurrence_id an id of the form new_YYYYMMDD_HHMMSS is
generated. The stored occurrence id is printed.`,
	Example: `  marinedb add --set scientific_name="Balaenoptera musculus" \
      --set vernacular_name="Blue Whale" --set decimal_latitude=34.0522 \
      --set decimal_longitude=-118.2437 --set event_date=2025-05-29 \
      --set recorded_by="Test Observer" --set locality="Los Angeles Coast"`,
	GroupID: "data",
	Args:    cobra.NoArgs,
	RunE:    runAdd,
}

var deleteCmd = &cobra.Command{
	Use:     "delete <occurrence_id>",
	Short:   "Delete one occurrence record",
	Long:    `Delete a record. Organisms, observers and other shared entities are kept.`,
	Aliases: []string{"rm"},
	GroupID: "data",
	Args:    cobra.ExactArgs(1),
	RunE:    runDelete,
}

var updateCmd = &cobra.Command{
	Use:   "update <occurrence_id>",
	Short: "Change fields of one occurrence record",
	Long: `Change record fields in place. Only these columns can be updated:

  ` + strings.Join(model.UpdatableRecordFields, ", ") + `

Other keys are ignored.`,
	Example: `  marinedb update 1739_1 --set event_date=2024-02-11 --set event_time=06:45:00`,
	GroupID: "data",
	Args:    cobra.ExactArgs(1),
	RunE:    runUpdate,
}

func init() {
	addCmd.Flags().StringArrayVarP(&addSet, "set", "s", nil,
		"column=value (can be specified multiple times)")
	addCmd.MarkFlagRequired("set")

	updateCmd.Flags().StringArrayVarP(&updateSet, "set", "s", nil,
		"column=value (can be specified multiple times)")
	updateCmd.MarkFlagRequired("set")
}

// parseSet turns column=value pairs into a map. Later pairs win.
func parseSet(pairs []string) (map[string]string, error) {
	values := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --set %q (want column=value)", p)
		}
		values[k] = v
	}
	return values, nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	values, err := parseSet(addSet)
	if err != nil {
		return err
	}
	for k := range values {
		if !model.IsRecognizedColumn(k) {
			logger.Warn("ignoring unknown column", "column", k)
		}
	}

	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	id, err := mutate.New(st, mutate.WithLogger(logger)).Add(cmd.Context(), model.RawRow(values))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	deleted, err := mutate.New(st, mutate.WithLogger(logger)).Delete(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("occurrence %q not found", args[0])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
	return nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	patch, err := parseSet(updateSet)
	if err != nil {
		return err
	}
	assignments, err := mutate.Assignments(patch)
	if err != nil {
		return err
	}
	if len(assignments) == 0 {
		return errors.New("no updatable columns given (allowed: " + strings.Join(model.UpdatableRecordFields, ", ") + ")")
	}

	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	updated, err := mutate.New(st, mutate.WithLogger(logger)).Update(cmd.Context(), args[0], patch)
	if err != nil {
		return err
	}
	if !updated {
		return fmt.Errorf("occurrence %q not found", args[0])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated %s (%d fields)\n", args[0], len(assignments))
	return nil
}
