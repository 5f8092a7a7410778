package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// MapError translates database errors to domain errors.
//
// sql.ErrNoRows maps to notFoundErr. A foreign key violation also maps to
// notFoundErr: a write that references a missing parent row (a result for
// an unknown rack, an item for an unknown batch) is a lookup failure from
// the caller's point of view. A unique violation maps to duplicateErr.
// PostgreSQL errors keep the violated constraint in the message. Other
// errors are returned unchanged.
func MapError(err error, notFoundErr, duplicateErr error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return notFoundErr
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", duplicateErr, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", notFoundErr, pgErr.ConstraintName)
		}
	}

	return err
}
