package repositories

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates the attempted write would violate a uniqueness constraint.
	ErrConflict = errors.New("record conflict")
)

// translatePgError maps constraint violations onto the package sentinels. It
// returns nil when err carries no code of interest.
func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	switch pgErr.Code {
	case "23505":
		return ErrConflict
	case "23503", "22P02":
		// foreign key violation or malformed uuid: the referenced row cannot exist
		return ErrNotFound
	}
	return nil
}
