package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newCoverageCmd(root *rootOptions) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "coverage",
		Short: "Print the test coverage report for a project",
		Long: `Print how many stories in a project have at least one linked test.
When the tracker cannot be queried the report is empty ({} in JSON output).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, root, func(ctx context.Context, a *app) error {
				if project == "" {
					project = a.cfg.Tracker.ProjectKey
				}
				return newPrinter(cmd.OutOrStdout(), root.output).
					coverage(a.generator.GetTestCoverageReport(ctx, project))
			})
		},
	}
	cmd.Flags().StringVarP(&project, "project", "p", "", "project key (default tracker.project_key)")
	return cmd
}
