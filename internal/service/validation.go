package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"storefront/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// requestValidator checks request payloads against their struct tags and
// reports failures using JSON field names.
type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// The built-in uuid tag only matches lowercase hex. Accept whatever
	// uuid.Parse accepts, as path parameters do.
	_ = v.RegisterValidation("uuid", func(fl validator.FieldLevel) bool {
		_, err := uuid.Parse(fl.Field().String())
		return err == nil
	})

	return &requestValidator{validate: v}
}

// Struct validates s and converts failures into an INVALID_REQUEST error.
func (rv *requestValidator) Struct(s any) error {
	err := rv.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return model.NewInvalidRequestError(err.Error())
	}

	messages := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		messages = append(messages, fieldMessage(fe))
	}

	return model.NewInvalidRequestError("Validation failed: " + strings.Join(messages, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	// Drop the root struct name, e.g. "PlaceOrderRequest.items[0].sku".
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "alphanum":
		return fmt.Sprintf("%s must be alphanumeric", field)
	default:
		return fmt.Sprintf("%s failed '%s' validation", field, fe.Tag())
	}
}

// parseDeliveryDate accepts an RFC 3339 timestamp or a plain date.
func parseDeliveryDate(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, value, loc); err == nil {
		return t, nil
	}
	return time.Time{}, model.NewInvalidRequestError(
		fmt.Sprintf("expectedDeliveryDate %q must be an RFC 3339 timestamp or a YYYY-MM-DD date", value),
	)
}
