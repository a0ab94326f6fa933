package domain

// Priority ranks a test case by business impact. The values double as the
// tracker's priority names.
type Priority string

const (
	PriorityCritical Priority = "Critical"
	PriorityHigh     Priority = "High"
	PriorityMedium   Priority = "Medium"
	PriorityLow      Priority = "Low"
)

// Priorities lists every recognized priority in descending order.
func Priorities() []Priority {
	return []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}
}

// Valid reports whether p is one of the recognized literals.
func (p Priority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// TestType classifies what a test case exercises.
type TestType string

const (
	TestTypeFunctional  TestType = "Functional"
	TestTypeIntegration TestType = "Integration"
	TestTypeBoundary    TestType = "Boundary"
	TestTypeNegative    TestType = "Negative"
	TestTypeEdgeCase    TestType = "Edge Case"
)

// TestTypes lists every recognized test type.
func TestTypes() []TestType {
	return []TestType{TestTypeFunctional, TestTypeIntegration, TestTypeBoundary, TestTypeNegative, TestTypeEdgeCase}
}

// Valid reports whether t is one of the recognized literals.
func (t TestType) Valid() bool {
	switch t {
	case TestTypeFunctional, TestTypeIntegration, TestTypeBoundary, TestTypeNegative, TestTypeEdgeCase:
		return true
	}
	return false
}
