package completion

import "fmt"

// ServiceError reports that the completion backend itself failed: network,
// authentication, quota or an empty reply.
type ServiceError struct {
	// Op names the call that failed ("generate" or "review").
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("completion %s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// ParseError reports a reply that did not match the expected structure.
// Raw holds the reply text exactly as received.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse completion reply: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
