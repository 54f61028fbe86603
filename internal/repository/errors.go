package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("record not found")

// ErrNotUpdated is returned when a session update matched no editable row,
// either because the session is gone or because it was already submitted.
var ErrNotUpdated = errors.New("session not updated")

// translate maps driver-specific "no rows" errors to ErrNotFound.
func translate(err error) error {
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
