package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/casegen/internal/config"
	"github.com/fyrsmithlabs/casegen/internal/domain"
	"github.com/fyrsmithlabs/casegen/internal/logging"
	"github.com/fyrsmithlabs/casegen/internal/pipeline"
	"github.com/fyrsmithlabs/casegen/internal/secrets"
	"github.com/fyrsmithlabs/casegen/internal/telemetry"
)

type fakePipeline struct {
	report     pipeline.Report
	coverage   pipeline.CoverageReport
	stories    []domain.UserStory
	parents    []string
	batches    [][]pipeline.BatchEntry
	projects   []string
	requestIDs []string
}

func (f *fakePipeline) ProcessUserStory(ctx context.Context, story domain.UserStory, parentKey string) pipeline.Report {
	f.stories = append(f.stories, story)
	f.parents = append(f.parents, parentKey)
	f.requestIDs = append(f.requestIDs, logging.RequestIDFromContext(ctx))
	r := f.report
	r.UserStory = story.Title
	return r
}

func (f *fakePipeline) BatchProcessStories(_ context.Context, entries []pipeline.BatchEntry) []pipeline.Report {
	f.batches = append(f.batches, entries)
	reports := make([]pipeline.Report, 0, len(entries))
	for _, e := range entries {
		r := f.report
		r.UserStory = e.Story.Title
		reports = append(reports, r)
	}
	return reports
}

func (f *fakePipeline) GetTestCoverageReport(_ context.Context, project string) pipeline.CoverageReport {
	f.projects = append(f.projects, project)
	return f.coverage
}

func completedReport() pipeline.Report {
	return pipeline.Report{
		GeneratedTestCases: 2,
		CreatedIssues:      2,
		TestCaseKeys:       []string{"TEST-1", "TEST-2"},
		Errors:             []string{},
	}
}

// connect starts s on an in-memory transport and returns a client session.
func connect(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := s.mcp.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func newTestServer(t *testing.T, p *fakePipeline) *Server {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DefaultProject = "PROJ"
	cfg.MaxBatchSize = 3
	s, err := NewServer(cfg, p, secrets.NoopScrubber{})
	require.NoError(t, err)
	return s
}

func call(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	return res
}

// decode re-encodes structured content into v.
func decode(t *testing.T, res *mcp.CallToolResult, v any) {
	t.Helper()
	raw, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, v))
}

func text(res *mcp.CallToolResult) string {
	if len(res.Content) == 0 {
		return ""
	}
	if tc, ok := res.Content[0].(*mcp.TextContent); ok {
		return tc.Text
	}
	return ""
}

func TestNewServer(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		s, err := NewServer(nil, &fakePipeline{}, secrets.NoopScrubber{})
		require.NoError(t, err)
		assert.Equal(t, "casegen", s.config.Name)
		assert.Equal(t, DefaultMaxBatchSize, s.config.MaxBatchSize)
	})

	t.Run("requires pipeline", func(t *testing.T) {
		_, err := NewServer(nil, nil, secrets.NoopScrubber{})
		assert.EqualError(t, err, "pipeline is required")
	})

	t.Run("requires scrubber", func(t *testing.T) {
		_, err := NewServer(nil, &fakePipeline{}, nil)
		assert.EqualError(t, err, "scrubber is required")
	})
}

func TestListTools(t *testing.T) {
	cs := connect(t, newTestServer(t, &fakePipeline{}))

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"process_user_story", "batch_process_stories", "test_coverage_report"}, names)
}

func TestProcessUserStoryTool(t *testing.T) {
	p := &fakePipeline{report: completedReport()}
	cs := connect(t, newTestServer(t, p))

	res := call(t, cs, "process_user_story", map[string]any{
		"story": map[string]any{
			"title":       "User Login",
			"description": "As a user I want to log in",
		},
		"parent_key": "PROJ-7",
	})
	require.False(t, res.IsError, text(res))

	var report pipeline.Report
	decode(t, res, &report)
	assert.Equal(t, "User Login", report.UserStory)
	assert.Equal(t, []string{"TEST-1", "TEST-2"}, report.TestCaseKeys)
	assert.Equal(t, `Processed "User Login": 2 generated, 2 created, 0 failed`, text(res))

	require.Len(t, p.stories, 1)
	assert.Equal(t, []string{}, p.stories[0].AcceptanceCriteria)
	assert.Equal(t, []string{"PROJ-7"}, p.parents)
	assert.NotEmpty(t, p.requestIDs[0])
}

func TestProcessUserStoryTool_InvalidStory(t *testing.T) {
	tests := []struct {
		name  string
		story map[string]any
		want  string
	}{
		{"missing description", map[string]any{"title": "t"}, "invalid UserStory: description is required"},
		{"missing title", map[string]any{"description": "d"}, "invalid UserStory: title is required"},
		{"negative points", map[string]any{"title": "t", "description": "d", "story_points": -1}, "story_points must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePipeline{}
			cs := connect(t, newTestServer(t, p))

			res := call(t, cs, "process_user_story", map[string]any{"story": tt.story})
			assert.True(t, res.IsError)
			assert.Contains(t, text(res), tt.want)
			assert.Empty(t, p.stories)
		})
	}
}

func TestProcessUserStoryTool_EmptyStringsArePresent(t *testing.T) {
	p := &fakePipeline{report: completedReport()}
	cs := connect(t, newTestServer(t, p))

	res := call(t, cs, "process_user_story", map[string]any{
		"story": map[string]any{"title": "t", "description": ""},
	})
	require.False(t, res.IsError, text(res))
	require.Len(t, p.stories, 1)
	assert.Equal(t, domain.UserStory{Title: "t", AcceptanceCriteria: []string{}}, p.stories[0])
}

func TestProcessUserStoryTool_ScrubsErrors(t *testing.T) {
	scrubber, err := secrets.New(config.SecretsConfig{Enabled: true})
	require.NoError(t, err)

	p := &fakePipeline{report: pipeline.Report{
		TestCaseKeys: []string{},
		Errors:       []string{"Error processing user story: dial postgres://svc:hunter2secret@db:5432/app failed"},
	}}
	s, err := NewServer(DefaultConfig(), p, scrubber)
	require.NoError(t, err)
	cs := connect(t, s)

	res := call(t, cs, "process_user_story", map[string]any{
		"story": map[string]any{"title": "t", "description": "d"},
	})
	require.False(t, res.IsError, text(res))

	var report pipeline.Report
	decode(t, res, &report)
	require.Len(t, report.Errors, 1)
	assert.NotContains(t, report.Errors[0], "hunter2secret")
	assert.Contains(t, report.Errors[0], secrets.Redaction)
}

func TestBatchProcessStoriesTool(t *testing.T) {
	p := &fakePipeline{report: completedReport()}
	cs := connect(t, newTestServer(t, p))

	res := call(t, cs, "batch_process_stories", map[string]any{
		"stories": []any{
			map[string]any{"story": map[string]any{"title": "User Registration", "description": "d", "acceptance_criteria": []string{"unique email"}}, "parent_key": "PROJ-123"},
			map[string]any{"story": map[string]any{"title": "Password Reset", "description": "d"}},
		},
	})
	require.False(t, res.IsError, text(res))

	var out batchOutput
	decode(t, res, &out)
	require.Len(t, out.Reports, 2)
	assert.Equal(t, "User Registration", out.Reports[0].UserStory)
	assert.Equal(t, "Password Reset", out.Reports[1].UserStory)
	assert.Equal(t, "Processed 2 stories: 4 issues created, 0 failed", text(res))

	require.Len(t, p.batches, 1)
	assert.Equal(t, "PROJ-123", p.batches[0][0].ParentKey)
	assert.Equal(t, []string{"unique email"}, p.batches[0][0].Story.AcceptanceCriteria)
}

func TestBatchProcessStoriesTool_MalformedEntries(t *testing.T) {
	p := &fakePipeline{report: completedReport()}
	cs := connect(t, newTestServer(t, p))

	res := call(t, cs, "batch_process_stories", map[string]any{
		"stories": []any{
			map[string]any{"story": map[string]any{"title": "Checkout", "description": "d"}},
			map[string]any{"story": map[string]any{"title": 7, "description": "d"}},
			map[string]any{"story": map[string]any{"title": "Search"}, "parent_key": "PROJ-2"},
			"not an entry",
			map[string]any{"story": map[string]any{"title": "Profile", "description": ""}},
		},
	})
	require.False(t, res.IsError, text(res))

	var out batchOutput
	decode(t, res, &out)
	require.Len(t, out.Reports, 5)

	require.Len(t, p.batches, 1)
	entries := p.batches[0]
	require.Len(t, entries, 5)
	assert.NoError(t, entries[0].Err)
	assert.ErrorContains(t, entries[1].Err, "cannot unmarshal")
	assert.ErrorContains(t, entries[2].Err, "description is required")
	assert.Equal(t, "Search", entries[2].Story.Title)
	assert.Equal(t, "PROJ-2", entries[2].ParentKey)
	assert.Error(t, entries[3].Err)
	assert.NoError(t, entries[4].Err)
	assert.Equal(t, "Profile", entries[4].Story.Title)
}

func TestBatchProcessStoriesTool_Limits(t *testing.T) {
	p := &fakePipeline{}
	cs := connect(t, newTestServer(t, p))

	story := map[string]any{"story": map[string]any{"title": "t", "description": "d"}}
	res := call(t, cs, "batch_process_stories", map[string]any{
		"stories": []any{story, story, story, story},
	})
	assert.True(t, res.IsError)
	assert.Contains(t, text(res), "batch too large: 4 stories (max 3)")

	res = call(t, cs, "batch_process_stories", map[string]any{"stories": []any{}})
	assert.True(t, res.IsError)
	assert.Empty(t, p.batches)
}

func TestTestCoverageReportTool(t *testing.T) {
	t.Run("default project", func(t *testing.T) {
		p := &fakePipeline{coverage: pipeline.CoverageReport{
			ProjectKey: "PROJ", TotalStories: 4, TotalTests: 10, StoriesWithTests: 3,
			CoveragePercentage: 75, TestsPerStoryAvg: 2.5,
		}}
		cs := connect(t, newTestServer(t, p))

		res := call(t, cs, "test_coverage_report", map[string]any{})
		require.False(t, res.IsError, text(res))

		var out coverageOutput
		decode(t, res, &out)
		assert.True(t, out.Available)
		assert.Equal(t, 75.0, out.CoveragePercentage)
		assert.Equal(t, 2.5, out.TestsPerStoryAvg)
		assert.Equal(t, []string{"PROJ"}, p.projects)
	})

	t.Run("empty report", func(t *testing.T) {
		p := &fakePipeline{}
		cs := connect(t, newTestServer(t, p))

		res := call(t, cs, "test_coverage_report", map[string]any{"project_key": "OTHER"})
		require.False(t, res.IsError, text(res))

		var out coverageOutput
		decode(t, res, &out)
		assert.False(t, out.Available)
		assert.Equal(t, "{}", text(res))
		assert.Equal(t, []string{"OTHER"}, p.projects)
	})
}

func TestToolMetrics(t *testing.T) {
	tt := telemetry.NewTestTelemetry()
	cfg := DefaultConfig()
	cfg.Telemetry = tt.Telemetry
	cfg.DefaultProject = "PROJ"
	s, err := NewServer(cfg, &fakePipeline{}, secrets.NoopScrubber{})
	require.NoError(t, err)
	cs := connect(t, s)

	call(t, cs, "test_coverage_report", map[string]any{})
	call(t, cs, "test_coverage_report", map[string]any{})

	assert.Equal(t, int64(2), tt.CounterValue(t, "casegen.mcp.tool.invocations_total"))
}
