package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"examcms/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validationError переводит ошибки validator в доменную ValidationError
func validationError(err error) error {
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return &domain.ValidationError{Reason: err.Error()}
	}

	reasons := make([]string, 0, len(errs))
	for _, fe := range errs {
		reasons = append(reasons, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
	}
	return &domain.ValidationError{Reason: strings.Join(reasons, "; ")}
}

// validateSnapshot проверяет поля и набор вложений версии
func validateSnapshot(fields domain.Fields, refs domain.AttachmentRefs) error {
	if err := validate.Struct(fields); err != nil {
		return validationError(err)
	}
	for _, ref := range refs {
		if err := validate.Struct(ref); err != nil {
			return validationError(err)
		}
	}
	if key, ok := refs.DuplicateKey(); ok {
		return &domain.ValidationError{Reason: fmt.Sprintf("attachment %s is referenced twice", key)}
	}
	return nil
}
