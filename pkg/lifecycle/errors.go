package lifecycle

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the error categories the HTTP edge maps to a status code.
type Kind int

const (
	BadRequest Kind = iota
	Unauthorized
	Forbidden
	NotFound
	Conflict
	RegistryUnavailable
	DeploymentFailed
	IoError
	TemplateError
)

func (k Kind) String() string {
	switch k {
	case BadRequest:
		return "bad_request"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case RegistryUnavailable:
		return "registry_unavailable"
	case DeploymentFailed:
		return "deployment_failed"
	case IoError:
		return "io_error"
	case TemplateError:
		return "template_error"
	default:
		return "unknown"
	}
}

// Status returns the HTTP status code this kind surfaces as.
func (k Kind) Status() int {
	switch k {
	case BadRequest:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case RegistryUnavailable:
		return http.StatusServiceUnavailable
	case DeploymentFailed, IoError, TemplateError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Error wraps an underlying cause with the Kind the HTTP edge needs to pick
// a status code, without losing the cause for logging.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an Error of the given kind.
func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an Error of the given kind around a lower-level cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the Kind from err, defaulting to IoError for errors that
// were never classified — an unclassified error is a bug, not an expected
// outcome, so it surfaces as a 500 rather than guessing at a 4xx.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return IoError
}
