package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsConflict(t *testing.T) {
	exclusion := &pgconn.PgError{Code: "23P01", ConstraintName: "appointments_no_overlap"}
	if !IsConflict(exclusion) {
		t.Fatal("exclusion violation must classify as conflict")
	}
	if !IsConflict(fmt.Errorf("insert appointment: %w", exclusion)) {
		t.Fatal("wrapped exclusion violation must classify as conflict")
	}
	if IsConflict(&pgconn.PgError{Code: "23505"}) {
		t.Fatal("unique violation is not a scheduling conflict")
	}
	if IsConflict(errors.New("boom")) {
		t.Fatal("plain errors are not conflicts")
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(pgx.ErrNoRows) {
		t.Fatal("pgx.ErrNoRows must classify as not found")
	}
	if !IsNotFound(fmt.Errorf("get appointment: %w", pgx.ErrNoRows)) {
		t.Fatal("wrapped ErrNoRows must classify as not found")
	}
	if IsNotFound(errors.New("boom")) {
		t.Fatal("plain errors are not not-found")
	}
}

func TestIsDuplicate(t *testing.T) {
	if !IsDuplicate(&pgconn.PgError{Code: "23505"}) {
		t.Fatal("unique violation must classify as duplicate")
	}
	if IsDuplicate(&pgconn.PgError{Code: "23P01"}) {
		t.Fatal("exclusion violation is not a duplicate")
	}
}
