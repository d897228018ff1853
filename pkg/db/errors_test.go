package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "idx_users_email"}

	assert.True(t, IsUniqueViolation(pgErr, ""))
	assert.True(t, IsUniqueViolation(pgErr, "idx_users_email"))
	assert.False(t, IsUniqueViolation(pgErr, "idx_users_phone"))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
	assert.False(t, IsUniqueViolation(nil, ""))

	sqliteErr := errors.New("UNIQUE constraint failed: users.username")
	assert.True(t, IsUniqueViolation(sqliteErr, ""))
	assert.False(t, IsUniqueViolation(errors.New("no such table: users"), ""))
}

func TestUniqueViolationRefers(t *testing.T) {
	pgErr := fmt.Errorf("create user: %w",
		&pgconn.PgError{Code: "23505", ConstraintName: "idx_users_username"})

	assert.True(t, UniqueViolationRefers(pgErr, "idx_users_username", "users.username"))
	assert.False(t, UniqueViolationRefers(pgErr, "idx_users_email", "users.email"))

	sqliteErr := errors.New("UNIQUE constraint failed: users.username")
	assert.True(t, UniqueViolationRefers(sqliteErr, "idx_users_username", "users.username"))
	assert.False(t, UniqueViolationRefers(sqliteErr, "idx_users_email", "users.email"))

	assert.False(t, UniqueViolationRefers(errors.New("connection reset"), "idx_users_username"))
}
