package crud

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors of the CRUD runtime. Every typed error below matches one
// of them through errors.Is.
var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("crud: document not found")

	// ErrConflict is returned when a write would break a uniqueness rule or
	// a deletion constraint.
	ErrConflict = errors.New("crud: conflict")

	// ErrValidation is returned when input fails validation.
	ErrValidation = errors.New("crud: validation failed")

	// ErrForbidden is returned when a privacy policy denies an operation.
	ErrForbidden = errors.New("crud: forbidden")

	// ErrInternal is returned for unexpected datastore failures.
	ErrInternal = errors.New("crud: internal error")
)

// NotFoundError represents a missing document.
type NotFoundError struct {
	label string
	key   string
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key %s not found", e.label, e.key)
}

// Is reports whether the target error matches NotFoundError.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the entity label.
func (e *NotFoundError) Label() string { return e.label }

// Key returns the key that was searched for.
func (e *NotFoundError) Key() string { return e.key }

// NewNotFoundError returns a new NotFoundError.
func NewNotFoundError(label, key string) *NotFoundError {
	return &NotFoundError{label: label, key: key}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	return err != nil && errors.Is(err, ErrNotFound)
}

// ConflictError represents a uniqueness or deletion constraint violation.
type ConflictError struct {
	label  string
	detail string
}

// Error returns the error string.
func (e *ConflictError) Error() string {
	return e.detail
}

// Is reports whether the target error matches ConflictError.
func (e *ConflictError) Is(err error) bool {
	return err == ErrConflict
}

// Label returns the entity label.
func (e *ConflictError) Label() string { return e.label }

// NewUniqueConflictError returns a ConflictError for a duplicate combination
// of fields.
func NewUniqueConflictError(label string, fields []string) *ConflictError {
	return &ConflictError{
		label:  label,
		detail: fmt.Sprintf("%s with the same %s already exists", label, strings.Join(fields, ", ")),
	}
}

// NewReferencedError returns a ConflictError for a document still referenced
// by edges of another collection.
func NewReferencedError(label, key, collection string) *ConflictError {
	return &ConflictError{
		label:  label,
		detail: fmt.Sprintf("cannot delete %s %s: it is referenced by %s", label, key, collection),
	}
}

// IsConflict returns true if the error is a ConflictError.
func IsConflict(err error) bool {
	return err != nil && errors.Is(err, ErrConflict)
}

// ValidationError represents invalid input.
type ValidationError struct {
	label  string
	field  string
	reason string
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	if e.field != "" {
		return fmt.Sprintf("%s: field %q %s", e.label, e.field, e.reason)
	}
	return fmt.Sprintf("%s: %s", e.label, e.reason)
}

// Is reports whether the target error matches ValidationError.
func (e *ValidationError) Is(err error) bool {
	return err == ErrValidation
}

// Field returns the offending field, if any.
func (e *ValidationError) Field() string { return e.field }

// NewValidationError returns a new ValidationError.
func NewValidationError(label, field, reason string) *ValidationError {
	return &ValidationError{label: label, field: field, reason: reason}
}

// NewMissingFieldError returns a ValidationError for a required field that
// is absent.
func NewMissingFieldError(label, field string) *ValidationError {
	return NewValidationError(label, field, "is required")
}

// IsValidation returns true if the error is a ValidationError.
func IsValidation(err error) bool {
	return err != nil && errors.Is(err, ErrValidation)
}

// ForbiddenError represents an operation denied by a privacy policy.
type ForbiddenError struct {
	label string
	op    string
	err   error
}

// Error returns the error string.
func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("%s: %s is not allowed", e.label, e.op)
}

// Unwrap returns the policy decision.
func (e *ForbiddenError) Unwrap() error { return e.err }

// Is reports whether the target error matches ForbiddenError.
func (e *ForbiddenError) Is(err error) bool {
	return err == ErrForbidden
}

// NewForbiddenError returns a new ForbiddenError.
func NewForbiddenError(label, op string, decision error) *ForbiddenError {
	return &ForbiddenError{label: label, op: op, err: decision}
}

// IsForbidden returns true if the error is a ForbiddenError.
func IsForbidden(err error) bool {
	return err != nil && errors.Is(err, ErrForbidden)
}

// InternalError wraps an unexpected datastore failure.
type InternalError struct {
	op  string
	err error
}

// Error returns the error string.
func (e *InternalError) Error() string {
	return fmt.Sprintf("crud: %s: %v", e.op, e.err)
}

// Unwrap returns the underlying error.
func (e *InternalError) Unwrap() error { return e.err }

// Is reports whether the target error matches InternalError.
func (e *InternalError) Is(err error) bool {
	return err == ErrInternal
}

// NewInternalError returns a new InternalError.
func NewInternalError(op string, err error) *InternalError {
	return &InternalError{op: op, err: err}
}

// StatusCode maps err to the HTTP status a handler responds with.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Detail returns the client-facing message for err. Internal failures are
// not disclosed.
func Detail(err error) string {
	if StatusCode(err) == http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}
