/*
Package db holds the PostgreSQL side of the social website: pool setup with embedded
goose migrations, the friendship and username lookups the chat core depends on, and
the LISTEN based feed of new profile-wall messages.
*/
package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	queryAreFriends = `SELECT EXISTS (
	SELECT 1 FROM friendships WHERE first_id = $1::uuid AND second_id = $2::uuid
)`

	queryUsername = `SELECT username FROM users WHERE id = $1::uuid`
)

// Store answers friendship and username queries from PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps an initialized pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// CanonicalPair orders two ids the way friendship rows are stored: lower id first.
func CanonicalPair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

func parseID(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	// uuid.String is lowercase hex, whose ordering matches Postgres uuid ordering.
	return u.String(), nil
}

// AreFriends reports whether a friendship row exists between a and b, in either order.
func (s *Store) AreFriends(ctx context.Context, a, b string) (bool, error) {
	first, err := parseID(a)
	if err != nil {
		return false, err
	}
	second, err := parseID(b)
	if err != nil {
		return false, err
	}

	first, second = CanonicalPair(first, second)

	var exists bool
	if err := s.pool.QueryRow(ctx, queryAreFriends, first, second).Scan(&exists); err != nil {
		return false, fmt.Errorf("check friendship: %w", err)
	}
	return exists, nil
}

// UsernameFor returns the username of the user with the given id.
func (s *Store) UsernameFor(ctx context.Context, id string) (string, error) {
	parsed, err := parseID(id)
	if err != nil {
		return "", err
	}

	var username string
	if err := s.pool.QueryRow(ctx, queryUsername, parsed).Scan(&username); err != nil {
		if isNoRows(err) {
			return "", fmt.Errorf("%w: %s", ErrUserNotFound, id)
		}
		return "", fmt.Errorf("lookup username: %w", err)
	}
	return username, nil
}
