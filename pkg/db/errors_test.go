package db

import (
	"errors"
	"testing"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := errors.New(`ERROR: duplicate key value violates unique constraint "ux_reviews_order_item_id" (SQLSTATE 23505)`)
	sqliteErr := errors.New("UNIQUE constraint failed: reviews.order_item_id")

	// Bare form, as the repositories call it.
	if !IsUniqueViolation(pgErr) {
		t.Fatal("postgres duplicate key not detected")
	}
	if !IsUniqueViolation(sqliteErr) {
		t.Fatal("sqlite unique constraint not detected")
	}
	if IsUniqueViolation(errors.New("connection refused")) {
		t.Fatal("unrelated error misclassified")
	}
	if IsUniqueViolation(nil) {
		t.Fatal("nil error misclassified")
	}

	// Named-constraint form.
	if !IsUniqueViolation(pgErr, "ux_reviews_order_item_id") {
		t.Fatal("named constraint not matched")
	}
	if IsUniqueViolation(pgErr, "ux_reports_reporter_listing") {
		t.Fatal("mismatched constraint name should not match")
	}
}
