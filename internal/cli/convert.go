package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConvertCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "convert FILE...",
		Short: "Convert one or more exports",
		Long: `Convert each file in turn and print its summary. Files are independent:
a failure is reported with its fixed message and the next file is still
converted. The exit status is non-zero if any file failed.

Example:
  coinconvert convert bitfinex.csv cex-orders.xlsx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := app.service()
			out := cmd.OutOrStdout()

			failed := 0
			for i, path := range args {
				text, err := svc.RunFile(cmd.Context(), path)
				if err != nil {
					failed++
				}
				if len(args) > 1 {
					fmt.Fprintf(out, "%s:\n", path)
				}
				fmt.Fprintln(out, text)
				if len(args) > 1 && i < len(args)-1 {
					fmt.Fprintln(out)
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(args))
			}
			return nil
		},
	}
}
