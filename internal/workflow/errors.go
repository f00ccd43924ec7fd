package workflow

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors, matched with errors.Is().
var (
	// ErrInvalidTransition is returned when the requested status change is
	// not legal for the acting role and the request's current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUnauthorized is returned when the principal may not see or act on
	// the request at all (visibility or ownership check failed).
	ErrUnauthorized = errors.New("unauthorized")
)

// TransitionError carries the context of a refused transition.
type TransitionError struct {
	Role    string
	Action  Action
	Status  string
	Message string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("role %q cannot %q a request with status %q: %s",
		e.Role, e.Action, e.Status, e.Message)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// ValidationError collects every failing field of a request payload,
// keyed by field path (e.g. "items[1].quantity").
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records a failing field. Returns the receiver for chaining.
func (e *ValidationError) Add(field, message string) *ValidationError {
	e.Fields[field] = message
	return e
}

// Empty reports whether no field failed.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
