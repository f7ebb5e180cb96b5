// Package cli builds the coinconvert command tree.
package cli

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/coinconvert/internal/config"
	"github.com/JonMunkholm/coinconvert/internal/core"
	"github.com/JonMunkholm/coinconvert/internal/history"
	"github.com/JonMunkholm/coinconvert/internal/logging"
	"github.com/JonMunkholm/coinconvert/internal/metrics"
	"github.com/JonMunkholm/coinconvert/internal/rates"
	"github.com/JonMunkholm/coinconvert/internal/web"
)

// App carries what the commands share. History is nil without a database
// and Metrics nil when disabled.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Rates   rates.Lookup
	History *history.Store
	Metrics *metrics.Metrics
	Out     io.Writer
	ErrOut  io.Writer
}

// NewRootCmd returns the root command with every subcommand attached.
func NewRootCmd(app *App) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "coinconvert",
		Short: "Convert exchange trade exports to one unified CSV",
		Long: `coinconvert reads CSV or XLSX exports from crypto exchanges, recognizes
the format from its header row and writes <name>_converted.csv next to it
with the columns Date, Action, Symbol, Volume, Currency, Account, Total,
Price, Fee and FeeCurrency. Only BUY and SELL rows are kept; everything else
is reported.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if cmd.Flags().Changed("log-level") {
				app.Config.Logging.Level = logLevel
				app.Logger = logging.SetupWriter(app.errOut(), logLevel, app.Config.Logging.Format)
			}
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", app.Config.Logging.Level, "debug, info, warn or error")

	cmd.SetOut(app.out())
	cmd.SetErr(app.errOut())

	cmd.AddCommand(
		newConvertCmd(app),
		newSchemasCmd(app),
		newServeCmd(app),
	)
	return cmd
}

// Execute runs the command tree against args.
func Execute(ctx context.Context, app *App, args []string) error {
	root := NewRootCmd(app)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// service builds the pipeline. Recorders are only attached when they
// exist, so the recorder interface never holds a nil pointer.
func (a *App) service() *core.Service {
	var recs core.Recorders
	if a.History != nil {
		recs = append(recs, a.History)
	}
	if a.Metrics != nil {
		recs = append(recs, a.Metrics)
	}

	var rec core.Recorder
	switch len(recs) {
	case 0:
	case 1:
		rec = recs[0]
	default:
		rec = recs
	}
	return core.NewService(a.Config, a.Rates, rec, a.Logger)
}

func (a *App) metricsHandler() http.Handler {
	if a.Metrics == nil {
		return nil
	}
	return a.Metrics.Handler()
}

func (a *App) historyReader() web.HistoryReader {
	if a.History == nil {
		return nil
	}
	return a.History
}

func (a *App) log() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

func (a *App) out() io.Writer {
	if a.Out == nil {
		return io.Discard
	}
	return a.Out
}

func (a *App) errOut() io.Writer {
	if a.ErrOut == nil {
		return io.Discard
	}
	return a.ErrOut
}
