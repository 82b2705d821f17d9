/*
errors.go - Error taxonomy for the portal

PURPOSE:
  Every service returns errors from this file (or wraps one of them) so the
  HTTP layer can pick a status with errors.Is and never has to parse text.

ERROR CATEGORIES:
  ErrValidation    malformed or missing input                      -> 400
  ErrNotFound      referenced entity does not exist                -> 404
  ErrConflict      uniqueness violation                            -> 409
  ErrBusinessRule  rule violation such as a payment overdraft      -> 400
  ErrUnauthorized  missing/invalid credentials or token            -> 401
  ErrForbidden     authenticated but not allowed                   -> 403

  Anything else is an infrastructure failure (500). The transaction it
  happened in has already been rolled back by the time it surfaces.

BILLING ERRORS:
  billing.ErrInvalidAmount is reported as a ValidationError and
  billing.ErrOverdraft as a RuleError. Both keep the billing error in their
  chain, so errors.Is works against either sentinel.
*/
package portal

import (
	"errors"
	"fmt"

	"github.com/sciencemaster/portal/billing"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrBusinessRule = errors.New("business rule violated")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrInvalidCredentials is returned by Login for an unknown mobile or a
	// wrong password. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrValidation, e.Err}
	}
	return []error{ErrValidation}
}

// NotFoundError describes a missing entity. Missing is set when a list of
// ids was only partially resolved.
type NotFoundError struct {
	Entity  string
	ID      int64
	Missing int
}

func (e *NotFoundError) Error() string {
	switch {
	case e.Missing > 0:
		return fmt.Sprintf("%d requested %s id(s) not found", e.Missing, e.Entity)
	case e.ID != 0:
		return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
	default:
		return fmt.Sprintf("%s not found", e.Entity)
	}
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError describes a uniqueness violation.
type ConflictError struct {
	Entity  string
	Field   string
	Message string
}

func (e *ConflictError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Field == "" {
		return fmt.Sprintf("%s already exists", e.Entity)
	}
	return fmt.Sprintf("%s %s already exists", e.Entity, e.Field)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// RuleError wraps a business-rule violation raised by the billing engine.
type RuleError struct {
	Err error
}

func (e *RuleError) Error() string { return e.Err.Error() }

func (e *RuleError) Unwrap() []error { return []error{ErrBusinessRule, e.Err} }

// ForbiddenError explains why an authenticated actor was turned away.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string { return "forbidden: " + e.Reason }

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// fromBilling lifts billing engine errors into the portal taxonomy.
func fromBilling(field string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, billing.ErrInvalidAmount):
		return &ValidationError{Field: field, Message: err.Error(), Err: err}
	case errors.Is(err, billing.ErrOverdraft):
		return &RuleError{Err: err}
	default:
		return err
	}
}

func required(field string) error {
	return &ValidationError{Field: field, Message: "is required"}
}

// IsClientError returns true if the error is due to the caller's input or
// permissions rather than an infrastructure failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrBusinessRule) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrForbidden)
}
