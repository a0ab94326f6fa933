package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/casegen/internal/pipeline"
)

func TestPrinter_ReportText(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf, outputText)

	require.NoError(t, p.report(pipeline.Report{
		UserStory:          "Login",
		GeneratedTestCases: 3,
		CreatedIssues:      2,
		FailedIssues:       1,
		TestCaseKeys:       []string{"PROJ-1", "PROJ-2"},
		Errors:             []string{"Failed to create issue for: c"},
	}))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Login\n"))
	assert.Contains(t, out, "Generated test cases: 3")
	assert.Contains(t, out, "Failed issues:        1")
	assert.Contains(t, out, "PROJ-1, PROJ-2")
	assert.Contains(t, out, "    - Failed to create issue for: c")
}

func TestPrinter_ReportJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newPrinter(&buf, outputJSON).report(pipeline.Report{
		UserStory:    "Login",
		TestCaseKeys: []string{},
		Errors:       []string{"No test cases generated"},
	}))

	assert.Contains(t, buf.String(), "\n  \"user_story\": \"Login\",\n")
	assert.JSONEq(t, `{
		"user_story": "Login",
		"generated_test_cases": 0,
		"created_jira_issues": 0,
		"failed_issues": 0,
		"test_case_keys": [],
		"errors": ["No test cases generated"]
	}`, buf.String())
}

func TestPrinter_Coverage(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf, outputText)

	require.NoError(t, p.coverage(pipeline.CoverageReport{
		ProjectKey:         "PROJ",
		TotalStories:       4,
		TotalTests:         10,
		StoriesWithTests:   3,
		CoveragePercentage: 75,
		TestsPerStoryAvg:   2.5,
	}))
	assert.Contains(t, buf.String(), "Coverage for PROJ")
	assert.Contains(t, buf.String(), "Coverage:             75.00%")
	assert.Contains(t, buf.String(), "Tests per story:      2.50")

	buf.Reset()
	require.NoError(t, p.coverage(pipeline.CoverageReport{}))
	assert.Equal(t, "Coverage report unavailable\n", buf.String())
}

func TestPrinter_Sections(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf, outputJSON)
	p.section("COVERAGE REPORT")
	p.separator()
	assert.Equal(t, "\n=== COVERAGE REPORT ===\n"+strings.Repeat("-", 50)+"\n", buf.String())
}
