package validator

import (
	"errors"
	"regexp"
	"sort"

	"hotelrides/internal/domain"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		return currencyPattern.MatchString(fl.Field().String())
	})
}

// Validate struct fields
func Validate(v interface{}) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}

	out := make(map[string]string)
	for _, err := range verrs {
		out[err.Field()] = err.Tag()
	}
	return out
}

// Check returns the first failing field, by name, as a domain validation error.
func Check(v interface{}) error {
	errs := Validate(v)
	if len(errs) == 0 {
		return nil
	}
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return domain.NewValidationError(fields[0], "failed "+errs[fields[0]])
}
