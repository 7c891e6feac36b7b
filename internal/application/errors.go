package application

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrInvalidID       = errors.New("invalid id")
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrNothingToUpdate = errors.New("nothing to update")
)

// ValidationError reports malformed or out-of-range input, keyed by field name.
type ValidationError struct {
	Details map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return "invalid input"
	}
	fields := make([]string, 0, len(e.Details))
	for f := range e.Details {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+" "+e.Details[f])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// Store operations named in StoreError.
const (
	OpCreate = "create"
	OpList   = "list"
	OpGet    = "get"
	OpUpdate = "update"
	OpDelete = "delete"
	OpSearch = "search"
)

// StoreError wraps a persistence failure that is neither a missing record
// nor a uniqueness violation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return e.Op + " user: " + e.Err.Error()
}

func (e *StoreError) Unwrap() error { return e.Err }
