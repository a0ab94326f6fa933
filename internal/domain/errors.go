package domain

import (
	"encoding/json"
	"fmt"
)

// ValidationError reports a domain object that is missing a required field
// or uses an enumeration value outside its literal set.
type ValidationError struct {
	// Object is the type being validated (e.g. "TestCase").
	Object string
	// Field is the offending field, using its wire name.
	Field string
	// Reason describes the violation.
	Reason string
}

// Error implements error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s %s", e.Object, e.Field, e.Reason)
}

// MissingField reports that object lacks the required field.
func MissingField(object, field string) *ValidationError {
	return &ValidationError{Object: object, Field: field, Reason: "is required"}
}

// requireFields checks that data, a JSON object, has every name as a key
// with a non-null value. A JSON null document lacks every field.
func requireFields(object string, data []byte, names ...string) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid %s: %w", object, err)
	}
	for _, name := range names {
		raw, ok := obj[name]
		if !ok || len(raw) == 0 || string(raw) == "null" {
			return MissingField(object, name)
		}
	}
	return nil
}
