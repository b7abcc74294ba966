package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolationSqliteMessage(t *testing.T) {
	t.Parallel()

	err := errors.New("UNIQUE constraint failed: dining_tables.code")
	if !IsUniqueViolation(err, "ux_dining_tables_code") {
		t.Fatal("expected sqlite unique violation to match despite missing constraint name")
	}
	if !IsUniqueViolation(err, "") {
		t.Fatal("expected sqlite unique violation to match with no constraint filter")
	}
}

func TestIsUniqueViolationPostgresConstraint(t *testing.T) {
	t.Parallel()

	unique := &pgconn.PgError{Code: "23505", ConstraintName: "ux_users_username"}
	if !IsUniqueViolation(unique, "ux_users_username") {
		t.Fatal("expected matching postgres constraint to be a unique violation")
	}
	if IsUniqueViolation(unique, "ux_dining_tables_code") {
		t.Fatal("expected mismatched postgres constraint to be rejected")
	}
	if !IsUniqueViolation(fmt.Errorf("create: %w", unique), "ux_users_username") {
		t.Fatal("expected wrapped postgres error to match")
	}

	notNull := &pgconn.PgError{Code: "23502", ConstraintName: "ux_users_username"}
	if IsUniqueViolation(notNull, "ux_users_username") {
		t.Fatal("expected non-unique postgres code to be rejected")
	}
}

func TestIsUniqueViolationUnrelatedErrors(t *testing.T) {
	t.Parallel()

	if IsUniqueViolation(nil, "ux_users_username") {
		t.Fatal("expected nil error to be rejected")
	}
	if IsUniqueViolation(errors.New("connection refused"), "") {
		t.Fatal("expected unrelated error to be rejected")
	}
}
