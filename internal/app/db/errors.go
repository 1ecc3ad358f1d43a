package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

var (
	// ErrInvalidID is returned for user ids that are not valid UUIDs.
	ErrInvalidID = errors.New("invalid user id")

	// ErrUserNotFound is returned when no user row matches the id.
	ErrUserNotFound = errors.New("user not found")
)

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
