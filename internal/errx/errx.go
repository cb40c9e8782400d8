// Package errx provides application error kinds shared by the link, click and
// analytics layers. Kinds map onto HTTP status codes in httpx; QuotaExceeded and
// Exhausted exist because the link registry has to report owner limits and code
// space exhaustion separately from ordinary conflicts.
package errx

import (
	"errors"
	"fmt"
)

// Kind classifies an error independently of its message.
type Kind uint8

const (
	Unknown Kind = iota
	NotFound
	Conflict
	Invalid
	Unauthorized
	Forbidden
	Unavailable
	Internal
	QuotaExceeded
	Exhausted
)

// Error records the operation that failed, its kind and the cause.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

// E wraps err with op and kind. It returns nil for a nil err.
func E(op string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

var kindNames = [...]string{
	Unknown:       "Unknown",
	NotFound:      "NotFound",
	Conflict:      "Conflict",
	Invalid:       "Invalid",
	Unauthorized:  "Unauthorized",
	Forbidden:     "Forbidden",
	Unavailable:   "Unavailable",
	Internal:      "Internal",
	QuotaExceeded: "QuotaExceeded",
	Exhausted:     "Exhausted",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op
	}
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether the outermost *Error in err's chain has the given
// kind. Kinds of errors it wraps are not consulted.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func OpOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}
