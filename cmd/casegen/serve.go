package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	casegenhttp "github.com/fyrsmithlabs/casegen/internal/http"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve the story processing API:

  GET  /health
  GET  /metrics
  POST /api/v1/stories
  POST /api/v1/stories/batch
  GET  /api/v1/coverage?project=KEY

The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, root, func(ctx context.Context, a *app) error {
				cfg := &casegenhttp.Config{
					Host:           a.cfg.Server.Host,
					Port:           a.cfg.Server.Port,
					DefaultProject: a.cfg.Tracker.ProjectKey,
					Version:        version,
				}
				if cmd.Flags().Changed("host") {
					cfg.Host = host
				}
				if cmd.Flags().Changed("port") {
					cfg.Port = port
				}

				srv, err := casegenhttp.NewServer(a.generator, a.logger.Named("http"), cfg,
					casegenhttp.WithTelemetry(a.telemetry))
				if err != nil {
					return fmt.Errorf("failed to create http server: %w", err)
				}
				return serveUntilDone(ctx, a, srv)
			})
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (default server.host)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default server.http_port)")
	return cmd
}

// httpServer is the lifecycle of *casegenhttp.Server.
type httpServer interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// serveUntilDone runs srv until it fails or ctx is cancelled, then shuts it
// down within the configured timeout.
func serveUntilDone(ctx context.Context, a *app, srv httpServer) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info(ctx, "shutdown signal received", zap.Duration("timeout", a.cfg.Server.ShutdownTimeout.Duration()))
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return <-errCh
}
