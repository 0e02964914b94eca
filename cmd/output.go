package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Zerofisher/marinedb/export"
	"github.com/Zerofisher/marinedb/internal/app"
	"github.com/Zerofisher/marinedb/pkg/model"
)

// outputFlags are the tshark-style output options shared by the
// observation commands.
type outputFlags struct {
	format string
	fields []string
	count  int
	detail bool
	header bool
	where  string
}

func (o *outputFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&o.format, "output", "T", "text", "Output format: text, json, fields")
	f.StringArrayVarP(&o.fields, "field", "e", nil,
		"Field to print with -T fields (can be specified multiple times)")
	f.IntVarP(&o.count, "count", "c", 0, "Stop after n observations (0 = unlimited)")
	f.BoolVarP(&o.detail, "detail", "V", false, "Show every field of each observation")
	f.BoolVarP(&o.header, "header", "H", false, "Print field names before -T fields output")
	f.StringVarP(&o.where, "where", "Y", "", `Filter expression, e.g. 'coord.lat > 20 && dated'`)
}

// write renders obs to the command's stdout.
func (o *outputFlags) write(cmd *cobra.Command, obs []*model.Observation) error {
	format, err := export.ParseFormat(o.format)
	if err != nil {
		return err
	}
	return app.RunExport(cmd.OutOrStdout(), obs, app.ExportConfig{
		Where:      o.where,
		Format:     format,
		MaxCount:   o.count,
		ShowDetail: o.detail,
		ShowHeader: o.header,
		Fields:     o.fields,
	})
}
