package links

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAlias is returned for aliases outside [A-Za-z0-9_-]{3,30} or
	// equal to a reserved path segment.
	ErrInvalidAlias = errors.New("invalid alias")
	// ErrAliasTaken is returned when a requested alias already resolves.
	ErrAliasTaken = errors.New("alias already taken")
	// ErrCodeTaken marks an insert-time collision on a generated code.
	ErrCodeTaken = errors.New("short code already taken")
	// ErrAllocationExhausted means no free code was found within the attempt
	// budget. The code length or alphabet is too small for the table.
	ErrAllocationExhausted = errors.New("short code allocation exhausted")
	// ErrDuplicateURL is returned when an update would leave an owner with
	// two active links to the same URL.
	ErrDuplicateURL = errors.New("an active link to this url already exists")
	// ErrLinkUnavailable covers missing, inactive and expired links alike.
	ErrLinkUnavailable = errors.New("link unavailable")
)

// QuotaError reports an owner at their active link limit.
type QuotaError struct {
	Limit int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("active link quota of %d reached", e.Limit)
}
