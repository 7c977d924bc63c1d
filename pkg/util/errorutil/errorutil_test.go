package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestToDomainError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"domain passthrough", NewForbidden("nope"), "FORBIDDEN", http.StatusForbidden},
		{"wrapped domain", fmt.Errorf("ctx: %w", NewConflict("dup", nil)), "CONFLICT", http.StatusConflict},
		{"no rows", fmt.Errorf("get: %w", pgx.ErrNoRows), "NOT_FOUND", http.StatusNotFound},
		{"unique", &pgconn.PgError{Code: "23505", ConstraintName: "uq_approval"}, "CONFLICT", http.StatusConflict},
		{"foreign key", &pgconn.PgError{Code: "23503"}, "VALIDATION_FAILED", http.StatusBadRequest},
		{"bad uuid", &pgconn.PgError{Code: "22P02"}, "VALIDATION_FAILED", http.StatusBadRequest},
		{"fiber", fiber.NewError(http.StatusMethodNotAllowed, "method"), "METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed},
		{"unknown", errors.New("boom"), "INTERNAL_ERROR", http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			de := ToDomainError(tc.err)
			assert.Equal(t, tc.code, de.Code)
			assert.Equal(t, tc.status, de.HTTPStatus)
		})
	}
}

func TestNotFoundOr(t *testing.T) {
	err := NotFoundOr(pgx.ErrNoRows, "ticket", map[string]any{"ticket_id": "x"})
	de := ToDomainError(err)
	assert.Equal(t, "ticket not found", de.Message)
	assert.Equal(t, "x", de.Details["ticket_id"])

	assert.Nil(t, MapError(nil))
}
