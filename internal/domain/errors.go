package domain

import "fmt"

// ValidationError reports malformed caller input. It is surfaced to the UI
// layer immediately and never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// EncodingError reports a failure to render a pass image. The underlying
// pending record is unaffected; callers may retry or fall back to a textual
// representation of the claim.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("failed to render pass image: %v", e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// StoreError reports that the record store was unreachable or rejected an
// operation. It is distinct from the four scan outcomes: callers must treat
// it as transient and never as a definitive accept or reject.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("record store failure during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
