package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Rrens/workspace-access/internal/domain"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validateInput runs struct validation and reports failures as ErrInvalidInput
func validateInput(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := e.Field()
		switch e.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be a valid email")
		case "min":
			msgs = append(msgs, field+" must be at least "+e.Param()+" characters")
		case "max":
			msgs = append(msgs, field+" must be at most "+e.Param()+" characters")
		case "oneof":
			msgs = append(msgs, field+" must be one of: "+e.Param())
		default:
			msgs = append(msgs, field+" failed "+e.Tag())
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(msgs, "; "))
}
