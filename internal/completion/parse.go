package completion

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/casegen/internal/domain"
)

// Assessment is the reviewer's verdict on a single test case.
type Assessment struct {
	IsValid      bool     `json:"is_valid"`
	QualityScore float64  `json:"quality_score"`
	Feedback     string   `json:"feedback"`
	Suggestions  []string `json:"suggestions"`
}

// NeutralAssessment is substituted when a review cannot be obtained.
func NeutralAssessment() Assessment {
	return Assessment{
		IsValid:      true,
		QualityScore: 5,
		Feedback:     "Validation failed",
		Suggestions:  []string{},
	}
}

// stripFence removes one surrounding Markdown code fence, with or without a
// language tag. Anything else is returned trimmed but otherwise untouched.
func stripFence(reply string) string {
	s := strings.TrimSpace(reply)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(s[3:], "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "[{") {
		s = s[nl+1:]
	}
	return strings.TrimSpace(s)
}

// decodeStrict decodes exactly one JSON value from body into v.
func decodeStrict(body string, v any) error {
	dec := json.NewDecoder(strings.NewReader(body))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}

// DecodeTestCases parses a generation reply. The reply must be a JSON array
// whose every element is a valid test case; nothing is repaired and no
// partial list is returned.
func DecodeTestCases(reply string) ([]domain.TestCase, error) {
	body := stripFence(reply)
	if !strings.HasPrefix(body, "[") {
		return nil, &ParseError{Raw: reply, Err: errors.New("reply is not a JSON array")}
	}

	var elems []json.RawMessage
	if err := decodeStrict(body, &elems); err != nil {
		return nil, &ParseError{Raw: reply, Err: err}
	}

	cases := make([]domain.TestCase, 0, len(elems))
	for i, raw := range elems {
		var tc domain.TestCase
		if err := json.Unmarshal(raw, &tc); err != nil {
			return nil, &ParseError{Raw: reply, Err: fmt.Errorf("test case %d: %w", i, err)}
		}
		if err := tc.Validate(); err != nil {
			return nil, &ParseError{Raw: reply, Err: fmt.Errorf("test case %d: %w", i, err)}
		}
		cases = append(cases, tc)
	}
	return cases, nil
}

// DecodeAssessment parses a review reply into an Assessment.
func DecodeAssessment(reply string) (Assessment, error) {
	body := stripFence(reply)
	if !strings.HasPrefix(body, "{") {
		return Assessment{}, &ParseError{Raw: reply, Err: errors.New("reply is not a JSON object")}
	}

	var a Assessment
	if err := decodeStrict(body, &a); err != nil {
		return Assessment{}, &ParseError{Raw: reply, Err: err}
	}
	if a.QualityScore < 0 || a.QualityScore > 10 {
		return Assessment{}, &ParseError{Raw: reply, Err: fmt.Errorf("quality_score %v out of range", a.QualityScore)}
	}
	if a.Suggestions == nil {
		a.Suggestions = []string{}
	}
	return a, nil
}
