package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/casegen/internal/domain"
	"github.com/fyrsmithlabs/casegen/internal/logging"
	"github.com/fyrsmithlabs/casegen/internal/pipeline"
)

// storyInput mirrors domain.UserStory. Title and description are pointers
// so the tool reports a missing one itself instead of failing schema
// validation; an empty string is a present value.
type storyInput struct {
	Title              *string  `json:"title,omitempty" jsonschema:"Story title (required)"`
	Description        *string  `json:"description,omitempty" jsonschema:"Story description, usually in As a / I want / So that form (required)"`
	AcceptanceCriteria []string `json:"acceptance_criteria,omitempty" jsonschema:"Acceptance criteria the test cases must cover"`
	StoryPoints        *int     `json:"story_points,omitempty" jsonschema:"Story points estimate"`
	EpicLink           string   `json:"epic_link,omitempty" jsonschema:"Key of the epic the story belongs to"`
}

func (in storyInput) story() (domain.UserStory, error) {
	var story domain.UserStory
	if in.Title != nil {
		story.Title = *in.Title
	}
	switch {
	case in.Title == nil:
		return story, domain.MissingField("UserStory", "title")
	case in.Description == nil:
		return story, domain.MissingField("UserStory", "description")
	}
	story.Description = *in.Description
	story.AcceptanceCriteria = in.AcceptanceCriteria
	if story.AcceptanceCriteria == nil {
		story.AcceptanceCriteria = []string{}
	}
	story.StoryPoints = in.StoryPoints
	story.EpicLink = in.EpicLink
	return story, story.Validate()
}

type processStoryInput struct {
	Story     storyInput `json:"story" jsonschema:"The user story to generate test cases for"`
	ParentKey string     `json:"parent_key,omitempty" jsonschema:"Issue key to link created test issues to"`
}

// batchInput leaves entries untyped so that a malformed entry reaches the
// pipeline as a failed report instead of failing the whole call.
type batchInput struct {
	Stories []any `json:"stories" jsonschema:"Stories to process in order. Each entry is an object with a story (title, description, optional acceptance_criteria, story_points and epic_link) and an optional parent_key"`
}

// batchEntries decodes each raw entry on its own. Decode failures are kept
// in BatchEntry.Err.
func batchEntries(raw []any) []pipeline.BatchEntry {
	entries := make([]pipeline.BatchEntry, len(raw))
	for i, r := range raw {
		data, err := json.Marshal(r)
		if err == nil {
			err = json.Unmarshal(data, &entries[i])
		}
		if err != nil {
			entries[i] = pipeline.BatchEntry{Err: err}
		}
	}
	return entries
}

type batchOutput struct {
	Reports []pipeline.Report `json:"reports" jsonschema:"One report per input story, in input order"`
}

type coverageInput struct {
	ProjectKey string `json:"project_key,omitempty" jsonschema:"Project key; defaults to the configured project"`
}

// coverageOutput carries the coverage report. Available is false when the
// tracker could not be queried and every count is zero.
type coverageOutput struct {
	Available          bool    `json:"available" jsonschema:"False when the tracker could not be queried"`
	ProjectKey         string  `json:"project_key"`
	TotalStories       int     `json:"total_stories"`
	TotalTests         int     `json:"total_tests"`
	StoriesWithTests   int     `json:"stories_with_tests"`
	CoveragePercentage float64 `json:"coverage_percentage"`
	TestsPerStoryAvg   float64 `json:"tests_per_story_avg"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "process_user_story",
		Description: "Generate test cases for a user story, create a tracker issue per test case and optionally link them to a parent issue",
	}, s.processUserStory)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "batch_process_stories",
		Description: "Process several user stories sequentially; a malformed story is reported in place without stopping the batch",
	}, s.batchProcessStories)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "test_coverage_report",
		Description: "Report how many stories in a project have at least one test issue",
	}, s.testCoverageReport)
}

func (s *Server) processUserStory(ctx context.Context, _ *mcp.CallToolRequest, args processStoryInput) (*mcp.CallToolResult, pipeline.Report, error) {
	done := s.metrics.track(ctx, "process_user_story")
	ctx = withRequestID(ctx)

	story, err := args.Story.story()
	if err != nil {
		done(err)
		return nil, pipeline.Report{}, err
	}

	report := s.scrubReport(s.pipeline.ProcessUserStory(ctx, story, args.ParentKey))
	done(nil)

	text := fmt.Sprintf("Processed %q: %d generated, %d created, %d failed",
		report.UserStory, report.GeneratedTestCases, report.CreatedIssues, report.FailedIssues)
	return textResult(text), report, nil
}

func (s *Server) batchProcessStories(ctx context.Context, _ *mcp.CallToolRequest, args batchInput) (*mcp.CallToolResult, batchOutput, error) {
	done := s.metrics.track(ctx, "batch_process_stories")
	ctx = withRequestID(ctx)

	if len(args.Stories) == 0 {
		err := errors.New("stories is required")
		done(err)
		return nil, batchOutput{}, err
	}
	if len(args.Stories) > s.config.MaxBatchSize {
		err := fmt.Errorf("batch too large: %d stories (max %d)", len(args.Stories), s.config.MaxBatchSize)
		done(err)
		return nil, batchOutput{}, err
	}

	reports := s.pipeline.BatchProcessStories(ctx, batchEntries(args.Stories))
	var created, failed int
	for i := range reports {
		reports[i] = s.scrubReport(reports[i])
		created += reports[i].CreatedIssues
		failed += reports[i].FailedIssues
	}
	done(nil)

	text := fmt.Sprintf("Processed %d stories: %d issues created, %d failed", len(reports), created, failed)
	return textResult(text), batchOutput{Reports: reports}, nil
}

func (s *Server) testCoverageReport(ctx context.Context, _ *mcp.CallToolRequest, args coverageInput) (*mcp.CallToolResult, coverageOutput, error) {
	done := s.metrics.track(ctx, "test_coverage_report")
	ctx = withRequestID(ctx)

	project := args.ProjectKey
	if project == "" {
		project = s.config.DefaultProject
	}
	if project == "" {
		err := errors.New("project_key is required")
		done(err)
		return nil, coverageOutput{}, err
	}

	report := s.pipeline.GetTestCoverageReport(ctx, project)
	done(nil)

	raw, err := json.Marshal(report)
	if err != nil {
		return nil, coverageOutput{}, fmt.Errorf("encode coverage report: %w", err)
	}
	out := coverageOutput{
		Available:          !report.IsEmpty(),
		ProjectKey:         report.ProjectKey,
		TotalStories:       report.TotalStories,
		TotalTests:         report.TotalTests,
		StoriesWithTests:   report.StoriesWithTests,
		CoveragePercentage: report.CoveragePercentage,
		TestsPerStoryAvg:   report.TestsPerStoryAvg,
	}
	if !out.Available {
		s.logger.Warn(ctx, "coverage report unavailable", zap.String("project", project))
	}
	return textResult(string(raw)), out, nil
}

// scrubReport redacts secrets from error strings, which may quote service
// responses.
func (s *Server) scrubReport(r pipeline.Report) pipeline.Report {
	if !s.scrubber.IsEnabled() {
		return r
	}
	errs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = s.scrubber.Scrub(e).Scrubbed
	}
	r.Errors = errs
	return r
}

func withRequestID(ctx context.Context) context.Context {
	return logging.WithRequestID(ctx, uuid.NewString())
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
