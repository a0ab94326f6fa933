package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/casegen/internal/pipeline"
	"github.com/fyrsmithlabs/casegen/internal/storyfile"
)

func newBatchCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "batch [file]",
		Short: "Process a batch of user stories in order",
		Long: `Process every story in a batch file in order, pausing between stories.
A malformed entry is reported in place and does not stop the batch.

The file is JSON, YAML or TOML with a "stories" list of {story, parent_key}
entries; JSON and YAML files may also be a bare list. Without a file a
built-in two-story batch is processed.`,
		Example: `  casegen batch
  casegen batch sprint-12.yaml -o text`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := sampleBatch()
			if len(args) == 1 {
				var err error
				if entries, err = storyfile.LoadBatch(args[0]); err != nil {
					return err
				}
			}
			return withApp(cmd, root, func(ctx context.Context, a *app) error {
				return printBatch(newPrinter(cmd.OutOrStdout(), root.output),
					a.generator.BatchProcessStories(ctx, entries))
			})
		},
	}
}

func printBatch(p *printer, reports []pipeline.Report) error {
	p.section("BATCH PROCESSING RESULTS")
	for _, r := range reports {
		if err := p.report(r); err != nil {
			return err
		}
		p.separator()
	}
	return nil
}
