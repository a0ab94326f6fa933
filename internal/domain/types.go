package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// UserStory is the caller-supplied requirement a test suite is derived from.
// It is read-only input to the pipeline.
//
// Title and description are required keys when a story is decoded. An
// empty string is a present value.
type UserStory struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	AcceptanceCriteria []string `json:"acceptance_criteria"`
	StoryPoints        *int     `json:"story_points,omitempty"`
	EpicLink           string   `json:"epic_link,omitempty"`
}

// UnmarshalJSON rejects a story that lacks title or description, sets
// either to null, or carries a key outside the fields above.
func (s *UserStory) UnmarshalJSON(data []byte) error {
	if err := requireFields("UserStory", data, "title", "description"); err != nil {
		return err
	}
	type plain UserStory
	var decoded plain
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&decoded); err != nil {
		return err
	}
	*s = UserStory(decoded)
	return nil
}

// Validate checks the values a decoded story may still get wrong.
func (s UserStory) Validate() error {
	if s.StoryPoints != nil && *s.StoryPoints < 0 {
		return &ValidationError{Object: "UserStory", Field: "story_points", Reason: "must not be negative"}
	}
	return nil
}

// TestStep is one action of a test case and the result it should produce.
// StepNumber is caller-assigned; it is neither required to be contiguous nor
// unique, and steps are displayed in source order.
type TestStep struct {
	StepNumber     int    `json:"step_number"`
	Action         string `json:"action"`
	ExpectedResult string `json:"expected_result"`
}

// UnmarshalJSON requires all three keys. Empty strings are accepted.
func (s *TestStep) UnmarshalJSON(data []byte) error {
	if err := requireFields("TestStep", data, "step_number", "action", "expected_result"); err != nil {
		return err
	}
	type plain TestStep
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*s = TestStep(decoded)
	return nil
}

// Validate checks that the step number is positive.
func (s TestStep) Validate() error {
	if s.StepNumber <= 0 {
		return &ValidationError{Object: "TestStep", Field: "step_number", Reason: fmt.Sprintf("must be positive, got %d", s.StepNumber)}
	}
	return nil
}

// TestCase is a structured verification scenario generated for a story.
// A test case has no identity of its own; it gains one only when the tracker
// assigns an issue key.
type TestCase struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Preconditions   []string   `json:"preconditions"`
	TestSteps       []TestStep `json:"test_steps"`
	ExpectedOutcome string     `json:"expected_outcome"`
	TestData        string     `json:"test_data,omitempty"`
	Priority        Priority   `json:"priority"`
	TestType        TestType   `json:"test_type"`
	Labels          []string   `json:"labels"`
}

// ApplyDefaults fills optional fields the way an omitted value is defined:
// Medium priority, Functional type and empty lists.
func (tc *TestCase) ApplyDefaults() {
	if tc.Priority == "" {
		tc.Priority = PriorityMedium
	}
	if tc.TestType == "" {
		tc.TestType = TestTypeFunctional
	}
	if tc.Preconditions == nil {
		tc.Preconditions = []string{}
	}
	if tc.TestSteps == nil {
		tc.TestSteps = []TestStep{}
	}
	if tc.Labels == nil {
		tc.Labels = []string{}
	}
}

// UnmarshalJSON requires title, description and expected_outcome, decodes
// each step with its index in any error, and applies defaults for omitted
// fields. Unknown keys are ignored. It does not validate; call Validate
// afterwards.
func (tc *TestCase) UnmarshalJSON(data []byte) error {
	if err := requireFields("TestCase", data, "title", "description", "expected_outcome"); err != nil {
		return err
	}
	type plain TestCase
	var decoded struct {
		plain
		TestSteps []json.RawMessage `json:"test_steps"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*tc = TestCase(decoded.plain)
	tc.TestSteps = nil
	if decoded.TestSteps != nil {
		tc.TestSteps = make([]TestStep, len(decoded.TestSteps))
	}
	for i, raw := range decoded.TestSteps {
		if err := json.Unmarshal(raw, &tc.TestSteps[i]); err != nil {
			return fmt.Errorf("test_steps[%d]: %w", i, err)
		}
	}
	tc.ApplyDefaults()
	return nil
}

// Validate checks enumerations and every step.
func (tc TestCase) Validate() error {
	if !tc.Priority.Valid() {
		return &ValidationError{Object: "TestCase", Field: "priority", Reason: fmt.Sprintf("has unrecognized value %q", tc.Priority)}
	}
	if !tc.TestType.Valid() {
		return &ValidationError{Object: "TestCase", Field: "test_type", Reason: fmt.Sprintf("has unrecognized value %q", tc.TestType)}
	}
	for i, step := range tc.TestSteps {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("test_steps[%d]: %w", i, err)
		}
	}
	return nil
}

// Issue types the pipeline reads and writes.
const (
	IssueTypeTest  = "Test"
	IssueTypeStory = "Story"
)

// TrackerIssue is a record in the external tracker. Key is empty until the
// tracker has accepted the issue; it is never generated locally.
type TrackerIssue struct {
	Key         string   `json:"key,omitempty"`
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	IssueType   string   `json:"issue_type"`
	Priority    string   `json:"priority,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	ParentKey   string   `json:"parent_key,omitempty"`
}

