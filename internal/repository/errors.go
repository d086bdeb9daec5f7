package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound means no visible row matched.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate means a unique or primary key constraint rejected the write.
	ErrDuplicate = errors.New("duplicate key")
)

const uniqueViolation = "23505"

// IsUniqueViolation reports whether err carries PostgreSQL SQLSTATE 23505.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}
