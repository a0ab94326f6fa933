// Casegen turns user stories into test cases with a language model and
// publishes them as issues in Jira or GitHub.
//
// Usage:
//
//	# Process the built-in sample story, then print the coverage report
//	casegen run
//
//	# Process a story file and link the tests to a parent issue
//	casegen run --story-file login.yaml --parent PROJ-12
//
//	# Process a batch file
//	casegen batch stories.json
//
//	# Serve the HTTP API or the MCP stdio server
//	casegen serve
//	casegen mcp
//
// Configuration comes from ~/.config/casegen/config.yaml and environment
// variables. See internal/config for details.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

const (
	outputJSON = "json"
	outputText = "text"
)

type rootOptions struct {
	configPath string
	logLevel   string
	output     string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "casegen",
		Short: "Generate test cases from user stories and publish them to an issue tracker",
		Long: `casegen asks a language model for test cases covering a user story, creates one
tracker issue per test case, links them to the story and reports test coverage
per project.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			switch opts.output {
			case outputJSON, outputText:
				return nil
			default:
				return fmt.Errorf("invalid --output %q (want json or text)", opts.output)
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.config/casegen/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override pipeline.log_level (trace, debug, info, warn, error)")
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", outputJSON, "output format: json or text")

	cmd.AddCommand(
		newRunCmd(opts),
		newBatchCmd(opts),
		newCoverageCmd(opts),
		newServeCmd(opts),
		newMCPCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "casegen by Fyrsmith Labs\n")
			fmt.Fprintf(out, "Version:    %s\n", version)
			fmt.Fprintf(out, "Commit:     %s\n", gitCommit)
			fmt.Fprintf(out, "Build Date: %s\n", buildDate)
		},
	}
}
