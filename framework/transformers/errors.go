package transformers

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrNotApplicable is returned by a constructor or adapter to decline a
	// source instance. The engine treats it as "no result" for that candidate
	// and moves on to the next one.
	ErrNotApplicable = errors.New("transformers: not applicable")
	// ErrInvalidMetadata indicates a rejected transform declaration.
	ErrInvalidMetadata = errors.New("transformers: invalid metadata")
	// ErrNoTransformer indicates that no candidate produced a result.
	ErrNoTransformer = errors.New("transformers: no transformer produced a result")
	// ErrAdapterPanic indicates that an adapter panicked while running.
	ErrAdapterPanic = errors.New("transformers: adapter panicked")
)

// ValidationError describes why a declaration was rejected at registration
// time. Only the offending registration fails.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("transformers: invalid metadata: %s", e.Reason)
	}
	return fmt.Sprintf("transformers: invalid metadata: %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidMetadata) hold for every ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidMetadata
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// AdapterError wraps a failure raised by a candidate while transforming.
// The original error stays reachable through errors.Is and errors.As.
type AdapterError struct {
	Source  reflect.Type
	Target  reflect.Type
	Adapter string
	Err     error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("transformers: %s failed transforming %v to %v: %v", e.Adapter, e.Source, e.Target, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }
