// Package validation turns request input into per-field error messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Errors maps a field name to its messages.
type Errors map[string][]string

func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

func (e Errors) Empty() bool {
	return len(e) == 0
}

// Merge copies other into e, prefixing each field with "prefix.".
func (e Errors) Merge(prefix string, other Errors) {
	for field, messages := range other {
		if prefix != "" {
			field = prefix + "." + field
		}
		e[field] = append(e[field], messages...)
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Struct runs the `validate` tags of s.
func Struct(s interface{}) Errors {
	errs := Errors{}

	var fieldErrors validator.ValidationErrors
	if err := validate.Struct(s); errors.As(err, &fieldErrors) {
		for _, fe := range fieldErrors {
			errs.Add(fe.Field(), message(fe))
		}
	}
	return errs
}

// Var validates a single value against tag, reporting under field.
func Var(errs Errors, field string, value interface{}, tag string) {
	var fieldErrors validator.ValidationErrors
	if err := validate.Var(value, tag); errors.As(err, &fieldErrors) {
		for _, fe := range fieldErrors {
			errs.Add(field, messageFor(field, fe.Tag(), fe.Param(), fe.Kind()))
		}
	}
}

func message(fe validator.FieldError) string {
	return messageFor(fe.Field(), fe.Tag(), fe.Param(), fe.Kind())
}

func messageFor(field, tag, param string, kind reflect.Kind) string {
	label := strings.ReplaceAll(field, "_", " ")

	switch tag {
	case "required":
		return fmt.Sprintf("The %s field is required.", label)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", label)
	case "max":
		if kind == reflect.String {
			return fmt.Sprintf("The %s field must not be greater than %s characters.", label, param)
		}
		return fmt.Sprintf("The %s field must not be greater than %s.", label, param)
	case "min":
		if kind == reflect.String {
			return fmt.Sprintf("The %s field must be at least %s characters.", label, param)
		}
		return fmt.Sprintf("The %s field must be at least %s.", label, param)
	default:
		return fmt.Sprintf("The %s field is invalid.", label)
	}
}

// Integer parses raw as an integer, recording an error under field on failure.
func Integer(errs Errors, field, raw string) (int, bool) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		errs.Add(field, fmt.Sprintf("The %s field must be an integer.", strings.ReplaceAll(field, "_", " ")))
		return 0, false
	}
	return value, true
}

// Required records the standard message when a mandatory key is missing or blank.
func Required(errs Errors, field string, value string) bool {
	if strings.TrimSpace(value) == "" {
		errs.Add(field, messageFor(field, "required", "", reflect.String))
		return false
	}
	return true
}
