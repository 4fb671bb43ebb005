package library

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct tags of a Book or Customer.
func Validate(entity any) error {
	if err := validate.Struct(entity); err != nil {
		return errors.Join(ErrInvalidInput, err)
	}

	return nil
}
