package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
	ierr "github.com/vircom/folio/internal/errors"
	"github.com/vircom/folio/internal/types"
)

var validate *validator.Validate

// prefixPattern keeps prefixes short and alphanumeric; the last character
// must be a letter so a prefix never swallows digits of the counter.
var prefixPattern = regexp.MustCompile(`^[A-Za-z0-9]{0,9}[A-Za-z]$`)

// NewValidator builds the shared validator and registers the folio tags
//
//	doc_prefix: sequence prefix format
//	doc_type:   registered document type
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("doc_prefix", func(fl validator.FieldLevel) bool {
		return IsValidPrefix(fl.Field().String())
	})
	_ = v.RegisterValidation("doc_type", func(fl validator.FieldLevel) bool {
		return types.DocumentType(fl.Field().String()).Validate() == nil
	})
	validate = v
	return validate
}

func GetValidator() *validator.Validate {
	return validate
}

// IsValidPrefix reports whether p is usable as a sequence prefix
func IsValidPrefix(p string) bool {
	return prefixPattern.MatchString(p)
}

func ValidateRequest(req interface{}) error {
	if validate == nil {
		return ierr.NewError("validator not initialized").
			WithHint("Validator must be initialized before using it").
			Mark(ierr.ErrSystem)
	}

	if err := validate.Struct(req); err != nil {
		details := make(map[string]any)
		var validateErrs validator.ValidationErrors
		if ierr.As(err, &validateErrs) {
			for _, err := range validateErrs {
				details[err.Field()] = err.Error()
			}
		}
		return ierr.WithError(err).
			WithHint("Request validation failed").
			WithReportableDetails(details).
			Mark(ierr.ErrValidation)
	}
	return nil
}
