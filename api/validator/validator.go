// Package validator validates request bodies at the API boundary before
// they reach any handler logic.
package validator

import (
	"github.com/go-playground/validator/v10"
)

// Validator wraps the underlying validator library for struct and value
// validation.
type Validator struct {
	cli *validator.Validate
}

// ValidationError describes one field that failed validation.
type ValidationError struct {
	Field   string      `json:"field"`
	Message interface{} `json:"message"`
}

func (v *Validator) formatError(err error) []ValidationError {
	errors := make([]ValidationError, 0)
	for _, err := range err.(validator.ValidationErrors) {
		errors = append(errors, ValidationError{
			Field:   err.StructField(),
			Message: err.Error(),
		})
	}

	return errors
}

// ValidateStruct validates the tagged fields of the provided struct and
// returns a slice of validation errors.
func (v *Validator) ValidateStruct(s interface{}) []ValidationError {
	err := v.cli.Struct(s)
	if err != nil {
		return v.formatError(err)
	}
	return nil
}

// Validate checks a single value against the given validation tag.
func (v *Validator) Validate(value interface{}, tag string) []ValidationError {
	err := v.cli.Var(value, tag)
	if err != nil {
		return v.formatError(err)
	}
	return nil
}

// New initializes and returns a new Validator.
func New() *Validator {
	return &Validator{
		cli: validator.New(validator.WithRequiredStructEnabled()),
	}
}
