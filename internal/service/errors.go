package service

import (
	"context"
	"errors"
	"fmt"
)

// ValidationError is a client fault: a missing field, a disallowed column or a
// malformed value. It is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NotFoundError reports an id_input absent from the table an operation targets.
type NotFoundError struct {
	Table   string
	IDInput string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("id_input %s not found in %s", e.IDInput, e.Table)
}

// GenerationError reports that no identifier can be minted for a month-year prefix.
type GenerationError struct {
	Prefix string
	Reason string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("cannot generate id_input for %s: %s", e.Prefix, e.Reason)
}

// InProgressError reports that another request holding the same idempotency
// key is still creating its order.
type InProgressError struct {
	Key string
}

func (e *InProgressError) Error() string {
	return fmt.Sprintf("request %s is already in progress", e.Key)
}

// DatabaseError wraps connectivity failures, constraint violations and timeouts.
// The open transaction has been rolled back by the time it is returned.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database error during %s: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

// PublicMessage omits the driver error, which can carry query text.
func (e *DatabaseError) PublicMessage() string {
	return "database error during " + e.Op
}

// Timeout reports whether the operation ran out of its time budget.
func (e *DatabaseError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// classify leaves engine errors untouched and turns everything else into a DatabaseError.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		ve *ValidationError
		ne *NotFoundError
		ge *GenerationError
		pe *InProgressError
		de *DatabaseError
	)
	if errors.As(err, &ve) || errors.As(err, &ne) || errors.As(err, &ge) || errors.As(err, &pe) || errors.As(err, &de) {
		return err
	}
	return &DatabaseError{Op: op, Err: err}
}

// IsClientError reports whether err is a validation or not-found result.
func IsClientError(err error) bool {
	var (
		ve *ValidationError
		ne *NotFoundError
	)
	return errors.As(err, &ve) || errors.As(err, &ne)
}
