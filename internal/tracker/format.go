package tracker

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/casegen/internal/domain"
)

// FormatDescription renders a test case as an issue description in Jira
// wiki markup. Sections appear in a fixed order: description,
// preconditions, steps, expected outcome, test data, test type, priority.
// Empty optional sections are omitted.
func FormatDescription(tc domain.TestCase) string {
	var b strings.Builder

	fmt.Fprintf(&b, "*Description:* %s\n\n", tc.Description)

	if len(tc.Preconditions) > 0 {
		b.WriteString("*Preconditions:*\n")
		for _, p := range tc.Preconditions {
			fmt.Fprintf(&b, "• %s\n", p)
		}
		b.WriteString("\n")
	}

	if len(tc.TestSteps) > 0 {
		b.WriteString("*Test Steps:*\n")
		for _, step := range tc.TestSteps {
			fmt.Fprintf(&b, "%d. %s\n", step.StepNumber, step.Action)
			fmt.Fprintf(&b, "   _Expected Result:_ %s\n\n", step.ExpectedResult)
		}
	}

	fmt.Fprintf(&b, "*Expected Outcome:* %s\n\n", tc.ExpectedOutcome)

	if tc.TestData != "" {
		fmt.Fprintf(&b, "*Test Data:* %s\n\n", tc.TestData)
	}

	fmt.Fprintf(&b, "*Test Type:* %s\n", tc.TestType)
	fmt.Fprintf(&b, "*Priority:* %s", tc.Priority)

	return b.String()
}

// BuildIssue maps a test case to the tracker issue that represents it.
func BuildIssue(tc domain.TestCase, parentKey string) domain.TrackerIssue {
	issue := domain.TrackerIssue{
		Summary:     tc.Title,
		Description: FormatDescription(tc),
		IssueType:   domain.IssueTypeTest,
		Priority:    string(tc.Priority),
		ParentKey:   parentKey,
	}
	if len(tc.Labels) > 0 {
		issue.Labels = append([]string(nil), tc.Labels...)
	}
	return issue
}
