package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zerofisher/marinedb/internal/report"
	"github.com/Zerofisher/marinedb/pkg/query"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a summary report",
	Long:  `Generate a Markdown or JSON summary of the store contents.`,
	Example: `  marinedb report
  marinedb report -o report.md
  marinedb report -f json`,
	GroupID: "query",
	Args:    cobra.NoArgs,
	RunE:    runReport,
}

var (
	reportFormat string
	reportOutput string
)

func init() {
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "markdown", "Output format: markdown, json")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Output file (default: stdout)")
}

func runReport(cmd *cobra.Command, args []string) error {
	switch reportFormat {
	case "markdown", "md", "json":
	default:
		return fmt.Errorf("unknown format: %s", reportFormat)
	}

	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	// Generate report
	data, err := report.Generate(cmd.Context(), query.NewSQLEngine(st))
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	// Output
	out := cmd.OutOrStdout()
	if reportOutput != "" && reportOutput != "-" {
		f, err := os.Create(reportOutput)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if reportFormat == "json" {
		return writeJSON(out, data)
	}
	return report.WriteMarkdown(out, data)
}
