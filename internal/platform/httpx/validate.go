package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/hrforms/internal/shared"
)

// NewValidator returns a validator that reports JSON field names and knows
// the "strongpassword" rule.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return IsStrongPassword(fl.Field().String())
	})
	return v
}

// IsStrongPassword requires upper, lower, digit and symbol characters.
func IsStrongPassword(s string) bool {
	var upper, lower, digit, symbol bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	return upper && lower && digit && symbol
}

// ValidateStruct runs struct validation and converts every failure into a
// single validation error.
func ValidateStruct(v *validator.Validate, target any) error {
	err := v.Struct(target)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return shared.Validation([]shared.FieldError{{Field: "body", Message: err.Error()}})
	}
	failures := make([]shared.FieldError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		failures = append(failures, shared.FieldError{Field: fieldPath(fe), Message: describe(fe)})
	}
	return shared.Validation(failures)
}

// DecodeAndValidate decodes the JSON body and validates it.
func DecodeAndValidate(v *validator.Validate, r *http.Request, target any) error {
	if err := DecodeJSON(r, target); err != nil {
		return err
	}
	return ValidateStruct(v, target)
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	field := fieldPath(fe)
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "uuid", "uuid4":
		return field + " must be a valid UUID"
	case "min":
		if fe.Kind() == reflect.String {
			return field + " must be at least " + fe.Param() + " characters"
		}
		return field + " must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return field + " must be at most " + fe.Param() + " characters"
		}
		return field + " must be at most " + fe.Param()
	case "gt":
		return field + " must be greater than " + fe.Param()
	case "oneof":
		return field + " must be one of " + fe.Param()
	case "strongpassword":
		return field + " must contain upper and lower case letters, a digit and a symbol"
	default:
		return field + " is invalid"
	}
}

// DecodeAndValidateList decodes a JSON array body and validates every element.
// Field paths are prefixed with the element index, e.g. "[1].api".
func DecodeAndValidateList[T any](v *validator.Validate, r *http.Request) ([]T, error) {
	var items []T
	if err := DecodeJSON(r, &items); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, shared.Validation([]shared.FieldError{{Field: "body", Message: "body must be a non-empty array"}})
	}
	var failures []shared.FieldError
	for i := range items {
		err := ValidateStruct(v, &items[i])
		if err == nil {
			continue
		}
		typed, _ := shared.AsError(err)
		for _, f := range typed.Fields {
			failures = append(failures, shared.FieldError{Field: fmt.Sprintf("[%d].%s", i, f.Field), Message: f.Message})
		}
	}
	if len(failures) > 0 {
		return nil, shared.Validation(failures)
	}
	return items, nil
}
