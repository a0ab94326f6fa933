// Package domain defines the shapes that flow through the test case pipeline:
// the user story supplied by the caller, the test cases produced by the
// completion service, and the tracker issues they become.
//
// Types here carry no behavior beyond structural validation. Required
// fields are a presence check made while decoding JSON: a key that is
// absent or null yields a *ValidationError, while an empty string is a
// value. Validate then checks what decoding cannot, such as enumerations
// and step numbers, and must be called on untrusted input.
package domain
