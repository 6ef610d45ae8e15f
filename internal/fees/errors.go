package fees

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError reports malformed admin input (inverted validity
// window, negative price or capacity). Never retried.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// NotFoundError reports a fee or conference that does not exist from the
// caller's point of view, including tenant mismatches: a fee belonging to
// another conference is indistinguishable from a missing one.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// AllocationError is the final, user-facing outcome of a reserve attempt
// that hit a business rule. Reason is one of the evaluator reasons.
type AllocationError struct {
	FeeID  string
	Reason Reason
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("fee %s cannot be reserved: %s", e.FeeID, e.Reason)
}

// TransientConflictError wraps a lock or serialization conflict that the
// allocation gate could not resolve within its retry budget. The caller
// may safely retry the whole request.
type TransientConflictError struct {
	Err error
}

func (e *TransientConflictError) Error() string {
	return fmt.Sprintf("transient conflict, retry later: %v", e.Err)
}

func (e *TransientConflictError) Unwrap() error { return e.Err }

// HTTPStatus maps the error taxonomy to response codes so handlers never
// match on error strings.
func HTTPStatus(err error) int {
	var (
		validation *ValidationError
		notFound   *NotFoundError
		allocation *AllocationError
		transient  *TransientConflictError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &allocation):
		return http.StatusConflict
	case errors.As(err, &transient):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
