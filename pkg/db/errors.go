package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolationCode = "23505"

// IsUniqueViolation reports whether err is a unique-constraint violation.
// When constraintName is provided, the violation must reference that
// constraint. The storage constraint is the authoritative collision signal;
// callers treat it as a recoverable outcome (retry generation or surface
// "already registered").
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolationCode {
			return false
		}
		if constraintName != "" {
			return pgErr.ConstraintName == constraintName
		}
		return true
	}

	// SQLite (tests) and lib/pq fall back to message inspection.
	msg := err.Error()
	if constraintName != "" && strings.Contains(msg, constraintName) {
		return true
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// UniqueViolationRefers reports whether err is a unique violation on any of
// the given identifiers. Pass both the constraint name and the table.column
// pair: postgres reports the former, sqlite and lib/pq messages carry the
// latter.
func UniqueViolationRefers(err error, identifiers ...string) bool {
	if !IsUniqueViolation(err, "") {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName != "" {
		for _, id := range identifiers {
			if pgErr.ConstraintName == id {
				return true
			}
		}
		return false
	}

	msg := err.Error()
	for _, id := range identifiers {
		if strings.Contains(msg, id) {
			return true
		}
	}
	return false
}
