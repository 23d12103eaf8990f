package models

import "fmt"

// ValidationError reports malformed or missing client input. It never
// aborts processing of sibling items in a batch.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports an unknown entity id.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// StateConflictError reports an operation that is invalid for the entity's
// current state machine state, e.g. executing a draft playbook.
type StateConflictError struct {
	Resource string
	ID       string
	State    string
	Op       string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("cannot %s %s %s in state %q", e.Op, e.Resource, e.ID, e.State)
}

func NewStateConflictError(resource, id, state, op string) *StateConflictError {
	return &StateConflictError{Resource: resource, ID: id, State: state, Op: op}
}

// TransportError wraps an email/webhook delivery failure. Dispatch treats it
// as best-effort: logged and counted, never propagated to the caller.
type TransportError struct {
	Channel string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport: %v", e.Channel, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError reports a malformed timeframe token. Rule creation surfaces it
// as a hard failure; the evaluator treats it permissively (no time bound).
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s", e.Input, e.Reason)
}
