package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/map-harvest/harvest/internal/httpapi"
)

var serveStart bool

// serveCmd runs the HTTP API that controls the engine and serves
// harvested data.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Starts the HTTP API that exposes engine control (start/stop/status),
harvested businesses, job state, stats, a health probe and Prometheus metrics.`,
	Example: `  # Serve on the default address
  harvest serve --config plan.yaml

  # Serve and kick off a crawl immediately
  harvest serve --config plan.yaml --start

  # Custom listen address
  harvest serve --config plan.yaml --addr :9090`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveStart, "start", false, "Start the engine immediately")
}

func runServe(cmd *cobra.Command, _ []string) error {
	a := GetApp()
	srv := httpapi.New(a.Config.HTTPAddr, a.Engine, a.Store, *a.Logger)

	if serveStart {
		if err := a.Engine.Start(cmd.Context()); err != nil {
			return err
		}
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		a.Logger.Warn().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
