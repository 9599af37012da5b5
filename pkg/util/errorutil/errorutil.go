package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/helpdeskhq/helpdesk/internal/domain"
)

const uniqueViolation = "23505"

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewBadGateway(message string, err error) error {
	return &DomainError{
		Code:       "UPSTREAM_UNAVAILABLE",
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return &DomainError{
			Code:       codeForStatus(fiberErr.Code),
			Message:    fiberErr.Message,
			HTTPStatus: fiberErr.Code,
		}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &DomainError{
			Code:       "CONFLICT",
			Message:    "resource already exists",
			HTTPStatus: http.StatusConflict,
			Details:    map[string]any{"constraint": pgErr.ConstraintName},
			Err:        err,
		}
	}
	switch {
	case errors.Is(err, domain.ErrInvalidRoleState):
		return &DomainError{Code: "INVALID_ROLE_STATE", Message: err.Error(), HTTPStatus: http.StatusForbidden, Err: err}
	case errors.Is(err, domain.ErrUnrecognizedRole):
		return &DomainError{Code: "UNRECOGNIZED_ROLE", Message: err.Error(), HTTPStatus: http.StatusForbidden, Err: err}
	case errors.Is(err, domain.ErrInvalidTaxID):
		return &DomainError{Code: "VALIDATION_FAILED", Message: err.Error(), HTTPStatus: http.StatusBadRequest, Details: map[string]any{"tax_id": "invalid"}, Err: err}
	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, mongo.ErrNoDocuments):
		return &DomainError{
			Code:       "NOT_FOUND",
			Message:    "resource not found",
			HTTPStatus: http.StatusNotFound,
			Details:    map[string]any{},
			Err:        err,
		}
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// MapError converts err into a DomainError while keeping nil as nil.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	}
	if status >= 500 {
		return "INTERNAL_ERROR"
	}
	return "REQUEST_FAILED"
}
