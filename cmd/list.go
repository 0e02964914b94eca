package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Zerofisher/marinedb/fields"
	"github.com/Zerofisher/marinedb/pkg/model"
	"github.com/Zerofisher/marinedb/pkg/source"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List available resources",
	Long:    `List observation fields, source columns and supported encodings.`,
	GroupID: "info",
}

// fields subcommand flags
var listFieldsFilter string

var listFieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List available observation fields",
	Long:  `Display the fields that can be printed with -e or used in --where expressions.`,
	Example: `  marinedb list fields
  marinedb list fields --filter coord`,
	RunE: runListFields,
}

var listColumnsCmd = &cobra.Command{
	Use:     "columns",
	Short:   "List recognized source columns",
	Long:    `Display the CSV header names read by ingest and add. Other columns are ignored.`,
	Example: `  marinedb list columns`,
	RunE:    runListColumns,
}

var listEncodingsCmd = &cobra.Command{
	Use:     "encodings",
	Short:   "List supported source encodings",
	Example: `  marinedb list encodings`,
	RunE:    runListEncodings,
}

func init() {
	listFieldsCmd.Flags().StringVar(&listFieldsFilter, "filter", "",
		"Filter fields by name pattern")

	listCmd.AddCommand(listFieldsCmd)
	listCmd.AddCommand(listColumnsCmd)
	listCmd.AddCommand(listEncodingsCmd)
}

// runListFields prints the field registry, optionally narrowed to names
// containing --filter
func runListFields(cmd *cobra.Command, args []string) error {
	registry := fields.NewRegistry()
	pattern := strings.ToLower(listFieldsFilter)

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tDESCRIPTION")
	shown := 0
	for _, name := range registry.List() {
		if pattern != "" && !strings.Contains(strings.ToLower(name), pattern) {
			continue
		}
		fmt.Fprintln(tw, registry.GetFieldInfo(name))
		shown++
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if shown == 0 {
		fmt.Fprintf(out, "no fields match %q\n", listFieldsFilter)
		return nil
	}
	fmt.Fprintln(out, "\nShorthands in --where: dated, located")
	return nil
}

// runListColumns lists source columns in canonical order
func runListColumns(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	for _, c := range model.Columns {
		fmt.Fprintln(out, c)
	}
	return nil
}

func runListEncodings(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	for _, e := range source.Encodings {
		fmt.Fprintln(out, e)
	}
	return nil
}
