package completion

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/casegen/internal/domain"
)

const validCase = `{
	"title": "Login with valid credentials",
	"description": "User signs in with a known account",
	"preconditions": ["Account exists"],
	"test_steps": [
		{"step_number": 1, "action": "Open login page", "expected_result": "Form shown"},
		{"step_number": 2, "action": "Submit credentials", "expected_result": "Dashboard shown"}
	],
	"expected_outcome": "User is signed in",
	"priority": "High",
	"test_type": "Functional",
	"labels": ["login"]
}`

func TestStripFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `[1]`, `[1]`},
		{"whitespace", "  \n[1]\n ", `[1]`},
		{"fenced", "```\n[1]\n```", `[1]`},
		{"fenced with tag", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"single line fence", "```[1]```", `[1]`},
		{"unterminated", "```json\n[1]", "```json\n[1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripFence(tt.in))
		})
	}
}

func TestDecodeTestCases(t *testing.T) {
	t.Run("valid array", func(t *testing.T) {
		cases, err := DecodeTestCases("[" + validCase + "]")
		require.NoError(t, err)
		require.Len(t, cases, 1)

		tc := cases[0]
		assert.Equal(t, "Login with valid credentials", tc.Title)
		assert.Equal(t, domain.PriorityHigh, tc.Priority)
		require.Len(t, tc.TestSteps, 2)
		assert.Equal(t, "Dashboard shown", tc.TestSteps[1].ExpectedResult)
	})

	t.Run("fenced reply", func(t *testing.T) {
		cases, err := DecodeTestCases("```json\n[" + validCase + "," + validCase + "]\n```")
		require.NoError(t, err)
		assert.Len(t, cases, 2)
	})

	t.Run("empty array", func(t *testing.T) {
		cases, err := DecodeTestCases("[]")
		require.NoError(t, err)
		assert.Empty(t, cases)
	})

	t.Run("defaults applied", func(t *testing.T) {
		cases, err := DecodeTestCases(`[{"title":"t","description":"d","expected_outcome":"o"}]`)
		require.NoError(t, err)
		assert.Equal(t, domain.PriorityMedium, cases[0].Priority)
		assert.Equal(t, domain.TestTypeFunctional, cases[0].TestType)
		assert.NotNil(t, cases[0].Labels)
	})

	t.Run("empty strings are values", func(t *testing.T) {
		cases, err := DecodeTestCases(`[
			{"title":"t","description":"d","expected_outcome":"o","test_steps":[{"step_number":1,"action":"Submit the form","expected_result":""}]},
			` + validCase + `
		]`)
		require.NoError(t, err)
		require.Len(t, cases, 2)
		assert.Empty(t, cases[0].TestSteps[0].ExpectedResult)
	})

	failures := map[string]string{
		"not json":         "Here are your test cases!",
		"object not array": validCase,
		"truncated":        "[" + validCase,
		"trailing data":    "[" + validCase + "] extra",
		"bad priority":     `[{"title":"t","description":"d","expected_outcome":"o","priority":"Urgent"}]`,
		"missing title":    `[{"description":"d","expected_outcome":"o"}]`,
		"bad step":         `[{"title":"t","description":"d","expected_outcome":"o","test_steps":[{"step_number":0,"action":"a","expected_result":"r"}]}]`,
		"wrong type":       `[{"title":5,"description":"d","expected_outcome":"o"}]`,
		"step missing key": `[{"title":"t","description":"d","expected_outcome":"o","test_steps":[{"step_number":1,"action":"a"}]}]`,
	}
	for name, reply := range failures {
		t.Run(name, func(t *testing.T) {
			cases, err := DecodeTestCases(reply)
			assert.Nil(t, cases)

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, reply, pe.Raw)
		})
	}

	t.Run("validation error is discoverable", func(t *testing.T) {
		_, err := DecodeTestCases(`[{"title":"t","description":"d","expected_outcome":"o","test_type":"Smoke"}]`)
		var ve *domain.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "test_type", ve.Field)
	})
}

func TestDecodeAssessment(t *testing.T) {
	a, err := DecodeAssessment(`{"is_valid": false, "quality_score": 4, "feedback": "thin", "suggestions": ["add data"]}`)
	require.NoError(t, err)
	assert.False(t, a.IsValid)
	assert.Equal(t, 4.0, a.QualityScore)
	assert.Equal(t, []string{"add data"}, a.Suggestions)

	a, err = DecodeAssessment("```json\n{\"is_valid\": true, \"quality_score\": 8.5}\n```")
	require.NoError(t, err)
	assert.Equal(t, 8.5, a.QualityScore)
	assert.NotNil(t, a.Suggestions)

	for _, bad := range []string{`[]`, `nope`, `{"quality_score": 11}`, `{"quality_score": -1}`, `{"is_valid": "yes"}`} {
		_, err := DecodeAssessment(bad)
		var pe *ParseError
		assert.ErrorAs(t, err, &pe, bad)
	}
}

func TestNeutralAssessment(t *testing.T) {
	a := NeutralAssessment()
	assert.True(t, a.IsValid)
	assert.Equal(t, 5.0, a.QualityScore)
	assert.Equal(t, "Validation failed", a.Feedback)
	assert.NotNil(t, a.Suggestions)
	assert.Empty(t, a.Suggestions)
}
