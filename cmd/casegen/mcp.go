package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/casegen/internal/mcp"
)

func newMCPCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the pipeline as MCP tools over stdio",
		Long: `Run an MCP server on stdin/stdout exposing process_user_story,
batch_process_stories and test_coverage_report. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, root, func(ctx context.Context, a *app) error {
				srv, err := mcp.NewServer(&mcp.Config{
					Name:           "casegen",
					Version:        version,
					Logger:         a.logger.Named("mcp"),
					Telemetry:      a.telemetry,
					DefaultProject: a.cfg.Tracker.ProjectKey,
				}, a.generator, a.scrubber)
				if err != nil {
					return fmt.Errorf("failed to create mcp server: %w", err)
				}
				if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
					return err
				}
				return nil
			})
		},
	}
}
