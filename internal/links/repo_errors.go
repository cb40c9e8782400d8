package links

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sundayezeilo/linkmetrics/internal/errx"
)

const uniqueViolation = "23505"

func uniqueConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return "", false
	}
	return pgErr.ConstraintName, true
}

// codeConflict translates a unique violation raised while writing a code of
// the given kind into ErrAliasTaken or ErrCodeTaken.
func codeConflict(op, kind string, err error) error {
	constraint, ok := uniqueConstraint(err)
	if !ok {
		return mapRepoError(op, err)
	}
	switch {
	case constraint == "links_custom_alias_unique", kind == codeKindAlias:
		return errx.E(op, errx.Conflict, fmt.Errorf("%w: %v", ErrAliasTaken, err))
	default:
		return errx.E(op, errx.Conflict, fmt.Errorf("%w: %v", ErrCodeTaken, err))
	}
}

func mapRepoError(op string, err error) error {
	if _, ok := uniqueConstraint(err); ok {
		return errx.E(op, errx.Conflict, err)
	}
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return errx.E(op, errx.NotFound, err)
	default:
		return errx.E(op, errx.Unavailable, err)
	}
}
