package httpx

import (
	"net/http"

	"github.com/sundayezeilo/linkmetrics/internal/errx"
)

// ErrorKindToStatus maps errx.Kind to HTTP status codes.
func ErrorKindToStatus(kind errx.Kind) int {
	switch kind {
	case errx.NotFound:
		return http.StatusNotFound
	case errx.Conflict:
		return http.StatusConflict
	case errx.Invalid:
		return http.StatusBadRequest
	case errx.Unauthorized:
		return http.StatusUnauthorized
	case errx.Forbidden, errx.QuotaExceeded:
		return http.StatusForbidden
	case errx.Unavailable, errx.Exhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorKindToCode maps errx.Kind to error codes for JSON responses.
func ErrorKindToCode(kind errx.Kind) string {
	switch kind {
	case errx.NotFound:
		return "not_found"
	case errx.Conflict:
		return "conflict"
	case errx.Invalid:
		return "invalid_input"
	case errx.Unauthorized:
		return "unauthorized"
	case errx.Forbidden:
		return "forbidden"
	case errx.QuotaExceeded:
		return "quota_exceeded"
	case errx.Unavailable:
		return "unavailable"
	case errx.Exhausted:
		return "allocation_exhausted"
	default:
		return "internal_error"
	}
}

// WriteKindError writes err using its kind for status and code. Client
// errors echo the message; server errors use fallback so internals stay
// private.
func WriteKindError(w http.ResponseWriter, err error, fallback string, details any) {
	kind := errx.KindOf(err)
	status := ErrorKindToStatus(kind)
	message := fallback
	if status < http.StatusInternalServerError {
		message = err.Error()
	}
	WriteError(w, status, ErrorKindToCode(kind), message, details)
}
