// Package validation checks operation inputs with go-playground/validator
// and converts failures to INVALID_REQUEST errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	tagerrors "github.com/jimmcbubbles/usertags/internal/errors"
)

// Validator wraps validator.Validate with error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a Validator that reports fields by their JSON names and
// understands the notblank rule.
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("notblank", validators.NotBlank)

	return &Validator{v: v}
}

var std = New()

// Struct validates s with the shared Validator.
func Struct(s any) error {
	return std.Validate(s)
}

// Validate checks s and returns a *errors.TagError listing every bad field.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

func (v *Validator) formatError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return tagerrors.NewInternal(err)
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, e := range fieldErrs {
		fields[e.Field()] = friendlyMessage(e)
	}
	return tagerrors.NewValidation(fields)
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "notblank":
		return "is required"
	case "max":
		return fmt.Sprintf("must not exceed %s", e.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	case "dive":
		return "has an invalid element"
	default:
		return "is invalid"
	}
}
