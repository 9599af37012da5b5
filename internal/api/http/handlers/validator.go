package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/helpdeskhq/helpdesk/pkg/util/errorutil"
)

// Validator binds request bodies and checks their `validate` tags.
type Validator struct {
	v *validator.Validate
}

// NewValidator reports field errors under their JSON names.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// Bind parses the JSON body into out and validates it.
func (val *Validator) Bind(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return val.Struct(out)
}

// Struct validates an already populated value.
func (val *Validator) Struct(i any) error {
	err := val.v.Struct(i)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	details := make(map[string]any, len(ve))
	for _, fe := range ve {
		details[fieldPath(fe)] = fieldError(fe)
	}
	return apperrors.NewValidationError("request validation failed", details)
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "uuid":
		return "must be a valid id"
	case "url":
		return "must be a valid url"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "nefield":
		return fmt.Sprintf("must differ from %s", strings.ToLower(fe.Param()))
	default:
		return fmt.Sprintf("failed validation (%s)", fe.Tag())
	}
}
