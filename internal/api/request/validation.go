package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/edvin/vpanel/internal/address"
)

var validate = validator.New()

func init() {
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	validate.RegisterValidation("localpart_or_email", func(fl validator.FieldLevel) bool {
		return address.ValidLocalPartOrEmail(fl.Field().String())
	})
}

// ValidationFailure reports struct validation failures keyed by JSON field name.
type ValidationFailure struct {
	Fields map[string]string
}

func (e *ValidationFailure) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "validation error: " + strings.Join(parts, "; ")
}

// Decode reads a JSON body into v and validates it. Malformed JSON yields a
// plain error; failed validation yields a *ValidationFailure.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return Validate(v)
}

// Validate runs struct validation on v.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validation error: %w", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = message(fe)
	}
	return &ValidationFailure{Fields: fields}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "localpart_or_email":
		return "must be a valid email address format"
	case "eqfield":
		return "confirmation does not match"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		if fe.Kind() == reflect.String {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "must not be longer than " + fe.Param() + " characters"
		}
		return "must not be greater than " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "numeric":
		return "must be numeric"
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	}
	return "is invalid"
}

// RequireID parses a positive integer path id.
func RequireID(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("missing required ID")
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid ID %q", s)
	}
	return id, nil
}
