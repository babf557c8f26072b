package validator

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

var ownerIDPattern = regexp.MustCompile(`^[A-Za-z0-9._@:\-]{1,128}$`)

// validateOwnerID accepts opaque account identifiers that are safe to embed
// in a template id and a lock key.
func validateOwnerID(fl validator.FieldLevel) bool {
	return ownerIDPattern.MatchString(fl.Field().String())
}

func validateStruct(payload interface{}) *[]error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &[]error{err}
	}
	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, fmt.Errorf("%s failed on the %s rule", fe.Namespace(), fe.Tag()))
	}
	return &errs
}

func validateField(value any, rules string) error {
	return validate.Var(value, rules)
}
