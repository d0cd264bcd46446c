package core

import (
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"
)

var (
	// custom validation tags & texts
	usernameTag   = "username"
	usernameText  = "enter a valid username: letters, digits and @/./+/-/_ only"
	usernameRegex = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)

	floatTag  = "float"
	floatText = "enter a number"

	requiredTag  = "required"
	requiredText = "this field is required"
)

// NewTranslator returns the english translator used for validation messages.
func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use form tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return strings.ToLower(fld.Name)
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(usernameTag, usernameValidation)
	RegisterCustomTranslation(validate, translator, usernameTag, usernameText)

	_ = validate.RegisterValidation(floatTag, floatValidation)
	RegisterCustomTranslation(validate, translator, floatTag, floatText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// FieldErrors flattens validation errors into a {field: message} map.
// The empty key holds errors that are not bound to a single field.
// ok is false when err is not a validation error.
func FieldErrors(err error, translator ut.Translator) (fldErrs map[string]string, ok bool) {
	switch verr := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		fldErrs = make(map[string]string, len(verr))
		for _, fe := range verr {
			if _, exists := fldErrs[fe.Field()]; !exists {
				fldErrs[fe.Field()] = fe.Translate(translator)
			}
		}
		return fldErrs, true
	case *ValidationError:
		fldErrs = make(map[string]string, len(verr.Fields)+1)
		for _, fe := range verr.Fields {
			fldErrs[fe.Field] = fe.Error
		}
		if len(verr.Fields) == 0 {
			fldErrs[""] = verr.Error()
		}
		return fldErrs, true
	}
	return nil, false
}

// Custom Global Validators

// usernameValidation only allows letters, digits, `_` and `.`, `@`, `+`, `-`, in any script.
func usernameValidation(fl validator.FieldLevel) bool {
	return usernameRegex.MatchString(fl.Field().String())
}

// floatValidation accepts finite decimal numbers such as `85`, `.5`, `5.` or `1e2`.
func floatValidation(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if strings.ContainsAny(s, "xX_") {
		return false
	}
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsInf(f, 0) && !math.IsNaN(f)
}
