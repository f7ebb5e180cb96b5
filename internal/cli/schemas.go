package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/coinconvert/internal/core"
)

type schemaJSON struct {
	Key       string   `json:"key"`
	Exchange  string   `json:"exchange"`
	Label     string   `json:"label,omitempty"`
	Supported bool     `json:"supported"`
	Columns   []string `json:"columns"`
}

func newSchemasCmd(app *App) *cobra.Command {
	var asJSON, withColumns bool

	cmd := &cobra.Command{
		Use:   "schemas",
		Short: "List the recognized export formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defs := app.service().ListSchemas()
			out := cmd.OutOrStdout()

			if asJSON {
				list := make([]schemaJSON, 0, len(defs))
				for _, d := range defs {
					list = append(list, schemaJSON{
						Key:       d.Info.Key,
						Exchange:  d.Info.Exchange,
						Label:     d.Info.Label,
						Supported: d.Supported(),
						Columns:   d.Signature,
					})
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			header := "KEY\tEXCHANGE\tEXPORT\tSTATUS"
			if withColumns {
				header += "\tCOLUMNS"
			}
			fmt.Fprintln(tw, header)
			for _, d := range defs {
				line := fmt.Sprintf("%s\t%s\t%s\t%s", d.Info.Key, d.Info.Exchange, d.Info.Label, status(d))
				if withColumns {
					line += "\t" + strings.Join(d.Signature, ", ")
				}
				fmt.Fprintln(tw, line)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().BoolVar(&withColumns, "columns", false, "include the header signature")
	return cmd
}

func status(d core.SchemaDefinition) string {
	if d.Supported() {
		return "supported"
	}
	return "not supported"
}
