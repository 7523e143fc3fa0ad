// Package forms implements the viewer's two mutation forms: adding a
// single paper and uploading a CSV or JSON file of papers.
package forms

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrValidation is wrapped by every form validation failure.
var ErrValidation = errors.New("validation failed")

var validate = validator.New()

// fieldMessages maps a struct field and failed tag to the message shown to
// the user.
var fieldMessages = map[string]string{
	"Title.required": MsgTitleRequired,
}

// ValidationError is a failed form check with the message to show.
type ValidationError struct {
	Field   string
	Tag     string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// validateStruct checks s against its validate tags and reports the first
// failure as a *ValidationError.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	fe := verrs[0]
	msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]
	if !ok {
		msg = fmt.Sprintf("%s is invalid", strings.ToLower(fe.Field()))
	}
	return &ValidationError{Field: fe.Field(), Tag: fe.Tag(), Message: msg}
}

// validationMessage returns the user-facing text of a validation failure.
func validationMessage(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	return err.Error()
}
