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
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/helpdeskhq/helpdesk/internal/domain"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{name: "domain error passthrough", err: NewConflict("dup", nil), code: "CONFLICT", status: http.StatusConflict},
		{name: "wrapped domain error", err: fmt.Errorf("outer: %w", NewForbidden("nope")), code: "FORBIDDEN", status: http.StatusForbidden},
		{name: "pgx no rows", err: pgx.ErrNoRows, code: "NOT_FOUND", status: http.StatusNotFound},
		{name: "mongo no documents", err: fmt.Errorf("find: %w", mongo.ErrNoDocuments), code: "NOT_FOUND", status: http.StatusNotFound},
		{name: "invalid role state", err: fmt.Errorf("%w: empty", domain.ErrInvalidRoleState), code: "INVALID_ROLE_STATE", status: http.StatusForbidden},
		{name: "unrecognized role", err: fmt.Errorf("%w: x", domain.ErrUnrecognizedRole), code: "UNRECOGNIZED_ROLE", status: http.StatusForbidden},
		{name: "unique violation", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}), code: "CONFLICT", status: http.StatusConflict},
		{name: "invalid tax id", err: domain.ErrInvalidTaxID, code: "VALIDATION_FAILED", status: http.StatusBadRequest},
		{name: "fiber error", err: fiber.NewError(http.StatusBadRequest, "bad"), code: "BAD_REQUEST", status: http.StatusBadRequest},
		{name: "unknown", err: errors.New("boom"), code: "INTERNAL_ERROR", status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			de := ToDomainError(tt.err)
			assert.Equal(t, tt.code, de.Code)
			assert.Equal(t, tt.status, de.HTTPStatus)
		})
	}
}

func TestMapError_Nil(t *testing.T) {
	assert.NoError(t, MapError(nil))
	assert.Nil(t, ToDomainError(nil))
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("dial tcp")
	err := NewBadGateway("registry unavailable", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "registry unavailable: dial tcp", err.Error())
}
