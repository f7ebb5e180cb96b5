package cli

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/coinconvert/internal/web"
)

func newServeCmd(app *App) *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP upload server",
		Long: `Serve the upload page and the JSON API until interrupted. On SIGINT or
SIGTERM the server stops accepting requests and waits for running
conversions, bounded by SERVER_SHUTDOWN_TIMEOUT.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := app.Config
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			log := app.log()
			svc := app.service()
			server := web.NewServer(cfg, svc, app.historyReader(), app.metricsHandler())

			g, ctx := errgroup.WithContext(cmd.Context())

			g.Go(func() error {
				if err := server.Start(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})

			// Stops the server on interrupt, or when Start fails.
			g.Go(func() error {
				<-ctx.Done()
				log.Info("shutting down...", "active_conversions", svc.LimiterStatus().Active)

				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					log.Warn("shutdown incomplete", "error", err)
					return err
				}
				log.Info("server stopped")
				return nil
			})

			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&host, "host", app.Config.Server.Host, "interface to bind")
	cmd.Flags().IntVar(&port, "port", app.Config.Server.Port, "port to listen on")
	return cmd
}
