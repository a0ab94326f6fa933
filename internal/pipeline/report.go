package pipeline

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/fyrsmithlabs/casegen/internal/domain"
)

// Report is the outcome of processing one user story. Partial success is a
// normal outcome: failures are recorded in Errors.
type Report struct {
	UserStory          string   `json:"user_story"`
	GeneratedTestCases int      `json:"generated_test_cases"`
	CreatedIssues      int      `json:"created_jira_issues"`
	FailedIssues       int      `json:"failed_issues"`
	TestCaseKeys       []string `json:"test_case_keys"`
	Errors             []string `json:"errors"`
}

func newReport(title string) Report {
	return Report{
		UserStory:    title,
		TestCaseKeys: []string{},
		Errors:       []string{},
	}
}

// BatchEntry is one story of a batch with an optional parent issue key.
//
// Err is set when the entry could not be decoded. Such an entry is reported
// in place by BatchProcessStories; Story then holds at most a best-effort
// title.
type BatchEntry struct {
	Story     domain.UserStory `json:"story"`
	ParentKey string           `json:"parent_key,omitempty"`
	Err       error            `json:"-"`
}

// UnmarshalJSON never fails on a syntactically valid entry. Missing keys,
// wrong types and unknown keys are recorded in Err so one bad entry cannot
// reject the rest of its batch.
func (e *BatchEntry) UnmarshalJSON(data []byte) error {
	*e = BatchEntry{}

	var raw struct {
		Story     json.RawMessage `json:"story"`
		ParentKey string          `json:"parent_key"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		e.Err = err
		e.Story.Title = titleOf(fieldRaw(data, "story"))
		return nil
	}
	e.ParentKey = raw.ParentKey

	if len(raw.Story) == 0 || string(raw.Story) == "null" {
		e.Err = domain.MissingField("BatchEntry", "story")
		return nil
	}
	if err := json.Unmarshal(raw.Story, &e.Story); err != nil {
		e.Err = err
		e.Story = domain.UserStory{Title: titleOf(raw.Story)}
	}
	return nil
}

// fieldRaw returns the raw value of key in the JSON object data, or nil.
func fieldRaw(data []byte, key string) json.RawMessage {
	var obj map[string]json.RawMessage
	if json.Unmarshal(data, &obj) != nil {
		return nil
	}
	return obj[key]
}

// titleOf returns the story's title when it is a JSON string.
func titleOf(story json.RawMessage) string {
	var title string
	if json.Unmarshal(fieldRaw(story, "title"), &title) != nil {
		return ""
	}
	return title
}

// CoverageReport summarizes how many stories in a project have tests.
// A computed report always names its project. The zero value is the empty
// report returned when the tracker could not be queried or no project was
// given; it marshals to {}.
type CoverageReport struct {
	ProjectKey         string  `json:"project_key"`
	TotalStories       int     `json:"total_stories"`
	TotalTests         int     `json:"total_tests"`
	StoriesWithTests   int     `json:"stories_with_tests"`
	CoveragePercentage float64 `json:"coverage_percentage"`
	TestsPerStoryAvg   float64 `json:"tests_per_story_avg"`
}

// IsEmpty reports whether r is the empty report. A report for a project
// with no stories and no tests is not empty.
func (r CoverageReport) IsEmpty() bool {
	return r.ProjectKey == ""
}

// MarshalJSON implements json.Marshaler.
func (r CoverageReport) MarshalJSON() ([]byte, error) {
	if r.IsEmpty() {
		return []byte("{}"), nil
	}
	type plain CoverageReport
	return json.Marshal(plain(r))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
