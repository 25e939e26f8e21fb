package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/triagedesk/backend/internal/apperrors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report fields by their JSON names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateStruct runs the validate tags of s and converts the first failure
// into a ValidationError naming the field.
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.NewValidationError("Invalid request", err.Error())
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return apperrors.NewValidationError(fmt.Sprintf("%s is required", fe.Field()), verrs.Error())
	default:
		return apperrors.NewValidationError(fmt.Sprintf("%s is invalid", fe.Field()), verrs.Error())
	}
}

// trimPtr trims *s in place and clears it when only whitespace remains
func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
