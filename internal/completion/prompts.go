package completion

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/casegen/internal/domain"
)

const generationPrompt = `
You are a Senior QA Engineer tasked with creating comprehensive test cases.

Given a user story, generate detailed test cases that cover:
1. Happy path scenarios
2. Edge cases and boundary conditions
3. Negative test scenarios
4. Integration points

For each test case, provide:
- Clear, descriptive title
- Detailed description
- Preconditions (if any)
- Numbered test steps with expected results
- Overall expected outcome
- Test data requirements
- Priority level (Critical/High/Medium/Low)
- Test type (Functional/Integration/Boundary/Negative/Edge Case)
- Relevant labels

Format your response as valid JSON with an array of test cases.
Each test case should follow this structure:
{
    "title": "Test case title",
    "description": "Detailed description",
    "preconditions": ["precondition 1", "precondition 2"],
    "test_steps": [
        {"step_number": 1, "action": "action description", "expected_result": "expected result"},
        {"step_number": 2, "action": "action description", "expected_result": "expected result"}
    ],
    "expected_outcome": "Overall expected outcome",
    "test_data": "Test data requirements or examples",
    "priority": "High",
    "test_type": "Functional",
    "labels": ["label1", "label2"]
}

Ensure test cases are:
- Comprehensive and cover all acceptance criteria
- Clear and actionable
- Include realistic test data examples
- Properly prioritized based on business impact
`

const reviewPrompt = `
You are a QA Lead reviewing test cases for quality and completeness.

Evaluate the following test case and provide feedback on:
1. Clarity of test steps
2. Completeness of coverage
3. Realistic test data
4. Appropriate priority level
5. Missing elements

Respond with JSON format:
{
    "is_valid": true/false,
    "quality_score": 1-10,
    "feedback": "Detailed feedback",
    "suggestions": ["suggestion 1", "suggestion 2"]
}
`

// Sampling parameters per call.
const (
	generationMaxTokens   = 4000
	generationTemperature = 0.3
	reviewMaxTokens       = 1000
	reviewTemperature     = 0.2
)

// criteriaDelimiter joins acceptance criteria into a single prompt line.
const criteriaDelimiter = " | "

// storyPrompt renders the user message for a generation call.
func storyPrompt(story domain.UserStory) string {
	return fmt.Sprintf("\nTitle: %s\nDescription: %s\nAcceptance Criteria: %s\n",
		story.Title,
		story.Description,
		strings.Join(story.AcceptanceCriteria, criteriaDelimiter),
	)
}
