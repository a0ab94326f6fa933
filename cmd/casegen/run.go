package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/casegen/internal/domain"
	"github.com/fyrsmithlabs/casegen/internal/storyfile"
)

type runOptions struct {
	storyFile   string
	format      string
	title       string
	description string
	criteria    []string
	parent      string
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process one user story, then print the project coverage report",
		Long: `Process one user story: generate test cases, create an issue per test case,
link them to --parent when given and print the processing report followed by
the coverage report for the configured project.

The story comes from --story-file ("-" reads stdin), from --title and
--description, or defaults to a built-in login story.`,
		Example: `  casegen run
  casegen run --story-file login.yaml --parent PROJ-12
  cat story.json | casegen run --story-file - --format json
  casegen run --title "Logout" --description "As a user I want to log out" --criteria "Session ends"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			story, err := opts.story(cmd)
			if err != nil {
				return err
			}
			return withApp(cmd, root, func(ctx context.Context, a *app) error {
				p := newPrinter(cmd.OutOrStdout(), root.output)

				report := a.generator.ProcessUserStory(ctx, story, opts.parent)
				p.section("PROCESSING RESULTS")
				if err := p.report(report); err != nil {
					return err
				}

				coverage := a.generator.GetTestCoverageReport(ctx, a.cfg.Tracker.ProjectKey)
				p.section("COVERAGE REPORT")
				return p.coverage(coverage)
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.storyFile, "story-file", "f", "", `story file (.json, .yaml, .yml, .toml) or "-" for stdin`)
	f.StringVar(&opts.format, "format", string(storyfile.FormatYAML), "format of stdin input: json, yaml or toml")
	f.StringVar(&opts.title, "title", "", "story title")
	f.StringVar(&opts.description, "description", "", "story description")
	f.StringArrayVar(&opts.criteria, "criteria", nil, "acceptance criterion (repeatable)")
	f.StringVar(&opts.parent, "parent", "", "issue key the generated tests are linked to")
	cmd.MarkFlagsMutuallyExclusive("story-file", "title")
	cmd.MarkFlagsMutuallyExclusive("story-file", "description")
	cmd.MarkFlagsMutuallyExclusive("story-file", "criteria")

	return cmd
}

// story resolves the story to process. A story given by flags needs both
// --title and --description, though either may be set to "".
func (o *runOptions) story(cmd *cobra.Command) (domain.UserStory, error) {
	switch {
	case o.storyFile == "-":
		var story domain.UserStory
		format, err := parseFormat(o.format)
		if err != nil {
			return story, err
		}
		if err := storyfile.Decode(cmd.InOrStdin(), format, &story); err != nil {
			return story, fmt.Errorf("failed to read story from stdin: %w", err)
		}
		if err := story.Validate(); err != nil {
			return story, fmt.Errorf("story from stdin: %w", err)
		}
		return story, nil
	case o.storyFile != "":
		return storyfile.LoadStory(o.storyFile)
	case changed(cmd, "title", "description", "criteria"):
		criteria := o.criteria
		if criteria == nil {
			criteria = []string{}
		}
		story := domain.UserStory{Title: o.title, Description: o.description, AcceptanceCriteria: criteria}
		for _, name := range []string{"title", "description"} {
			if !changed(cmd, name) {
				return story, fmt.Errorf("story from flags: %w", domain.MissingField("UserStory", name))
			}
		}
		return story, nil
	default:
		return sampleStory(), nil
	}
}

// changed reports whether any of the named flags was set.
func changed(cmd *cobra.Command, names ...string) bool {
	for _, name := range names {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

func parseFormat(s string) (storyfile.Format, error) {
	switch f := storyfile.Format(s); f {
	case storyfile.FormatJSON, storyfile.FormatYAML, storyfile.FormatTOML:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", storyfile.ErrUnsupportedFormat, s)
	}
}

// withApp builds the application, runs fn and flushes telemetry afterwards.
func withApp(cmd *cobra.Command, root *rootOptions, fn func(context.Context, *app) error) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, root)
	if err != nil {
		return err
	}
	err = fn(ctx, a)
	if cerr := a.close(context.WithoutCancel(ctx)); cerr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: shutdown incomplete: %v\n", cerr)
	}
	return err
}
