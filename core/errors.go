package core

import "github.com/pkg/errors"

// FormField collects errors that are not tied to a single request field.
const FormField = "form"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return "validation failed"
	}
	return err.Err.Error()
}

// FieldMap groups the field errors by field name, keeping their order.
func (err ValidationError) FieldMap() map[string][]string {
	m := make(map[string][]string, len(err.Fields)+1)
	for _, f := range err.Fields {
		m[f.Field] = append(m[f.Field], f.Error)
	}
	if _, ok := m[FormField]; !ok {
		m[FormField] = []string{}
	}
	return m
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
