package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
)

// DefaultValidator checks struct tags and renders failures in English.
var DefaultValidator *Validator

func init() {
	var err error
	if DefaultValidator, err = NewValidator(); err != nil {
		panic(err)
	}
}

// Validator wraps a tag validator and the translator used for its messages.
type Validator struct {
	v *validator.Validate
	t ut.Translator
}

// NewValidator builds a Validator whose field names come from the
// mapstructure, koanf or yaml tags, so messages name keys as users write them.
func NewValidator() (*Validator, error) {
	enLoc := en.New()
	uni := ut.New(enLoc, enLoc)
	translate, _ := uni.GetTranslator("en")
	validate := validator.New(validator.WithRequiredStructEnabled())

	if err := entranslations.RegisterDefaultTranslations(validate, translate); err != nil {
		return nil, err
	}

	if err := registerTranslations(validate, translate); err != nil {
		return nil, err
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := ""
		for _, tagName := range []string{"mapstructure", "koanf", "yaml", "json"} {
			if val := fld.Tag.Get(tagName); len(val) != 0 {
				name = val
				break
			}
		}
		if len(name) == 0 {
			name = fld.Name
		}

		return "'" + strings.SplitN(name, ",", 2)[0] + "'"
	})

	return &Validator{v: validate, t: translate}, nil
}

func registerTranslations(validate *validator.Validate, trans ut.Translator) error {
	custom := map[string]string{
		"hostname_port": "{0} must be an address in host:port form",
		"oneof":         "{0} must be one of [{1}]",
	}

	for tag, text := range custom {
		err := validate.RegisterTranslation(tag, trans,
			func(ut ut.Translator) error {
				return ut.Add(tag, text, true)
			},
			func(ut ut.Translator, fe validator.FieldError) string {
				msg, _ := ut.T(fe.Tag(), fe.Field(), fe.Param())
				return msg
			})
		if err != nil {
			return err
		}
	}

	return nil
}

// ValidateStruct checks s against its validate tags. The returned error
// lists one translated problem per failing field, in field order.
func (v *Validator) ValidateStruct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, fe.Translate(v.t))
	}

	return &StructError{Problems: problems}
}

// ValidateStruct validates s with DefaultValidator.
func ValidateStruct(s any) error { return DefaultValidator.ValidateStruct(s) }

// StructError is returned when one or more fields fail validation.
type StructError struct {
	Problems []string
}

func (e *StructError) Error() string {
	return strings.Join(e.Problems, ", ")
}
