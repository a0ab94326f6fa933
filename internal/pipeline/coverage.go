package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/casegen/internal/tracker"
)

var errNoProject = errors.New("project key is required")

// GetTestCoverageReport counts the stories in project that have at least
// one test. A story counts as covered when its key appears anywhere in a
// test's description. If project is empty or either query fails the empty
// report is returned.
func (g *Generator) GetTestCoverageReport(ctx context.Context, project string) (report CoverageReport) {
	ctx, span := g.tracer.Start(ctx, "pipeline.coverage",
		trace.WithAttributes(attribute.String("project.key", project)),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			g.logger.Error(ctx, "error generating coverage report", zap.Any("panic", r))
			span.SetStatus(codes.Error, fmt.Sprint(r))
			report = CoverageReport{}
		}
	}()

	if project == "" {
		g.coverageFailed(ctx, span, errNoProject)
		return CoverageReport{}
	}

	stories, err := g.sink.SearchIssues(ctx, g.sink.StoryQuery(project))
	if err != nil {
		g.coverageFailed(ctx, span, err)
		return CoverageReport{}
	}
	tests, err := g.sink.SearchIssues(ctx, g.sink.TestQuery(project))
	if err != nil {
		g.coverageFailed(ctx, span, err)
		return CoverageReport{}
	}

	report = computeCoverage(project, stories, tests)
	span.SetAttributes(
		attribute.Int("coverage.stories", report.TotalStories),
		attribute.Int("coverage.tests", report.TotalTests),
		attribute.Float64("coverage.percentage", report.CoveragePercentage),
	)
	return report
}

func (g *Generator) coverageFailed(ctx context.Context, span trace.Span, err error) {
	g.logger.Error(ctx, "error generating coverage report", zap.Error(err))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func computeCoverage(project string, stories, tests []tracker.Issue) CoverageReport {
	report := CoverageReport{
		ProjectKey:   project,
		TotalStories: len(stories),
		TotalTests:   len(tests),
	}

	for _, story := range stories {
		for _, test := range tests {
			if isLinked(story.Key, test) {
				report.StoriesWithTests++
				break
			}
		}
	}

	if report.TotalStories > 0 {
		total := float64(report.TotalStories)
		report.CoveragePercentage = round2(float64(report.StoriesWithTests) / total * 100)
		report.TestsPerStoryAvg = round2(float64(report.TotalTests) / total)
	}
	return report
}

// isLinked is a textual heuristic, not a link-graph check: it over-counts
// when a key appears incidentally (PROJ-1 inside PROJ-12) and misses links
// that are not mirrored into the description.
func isLinked(storyKey string, test tracker.Issue) bool {
	return storyKey != "" && strings.Contains(test.Description, storyKey)
}
