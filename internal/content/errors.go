package content

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound means the page does not exist yet. It is a valid state:
	// the caller should offer to create the page.
	ErrNotFound = errors.New("page not found")

	// ErrAuthRequired means the credential is missing, rejected or expired.
	ErrAuthRequired = errors.New("authentication required")

	// ErrConflict means the page changed remotely since it was read. Nothing
	// was written; the caller must reload and re-apply its edit.
	ErrConflict = errors.New("page was modified remotely")

	// ErrInvalidName means the page name cannot be mapped to a file.
	ErrInvalidName = errors.New("invalid page name")
)

// TransientError is any other failure: a network error, an unexpected status
// code or an unreadable body. It is never retried automatically.
type TransientError struct {
	// Op is the operation that failed, e.g. "load" or "save".
	Op string
	// Page is the page name.
	Page string
	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int
	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *TransientError) Error() string {
	if e.StatusCode != 0 && e.Err == nil {
		return fmt.Sprintf("%s page %q: unexpected status %d %s", e.Op, e.Page, e.StatusCode, http.StatusText(e.StatusCode))
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s page %q: status %d: %v", e.Op, e.Page, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s page %q: %v", e.Op, e.Page, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransientError) Unwrap() error {
	return e.Err
}

// Outcome is the tagged result of a store operation.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeNotFound
	OutcomeAuthRequired
	OutcomeConflict
	OutcomeTransient
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeAuthRequired:
		return "auth_required"
	case OutcomeConflict:
		return "conflict"
	default:
		return "transient_error"
	}
}

// OutcomeOf classifies an error returned by Store into an Outcome.
// Errors that are none of the known kinds classify as OutcomeTransient.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrAuthRequired):
		return OutcomeAuthRequired
	case errors.Is(err, ErrConflict):
		return OutcomeConflict
	default:
		return OutcomeTransient
	}
}
