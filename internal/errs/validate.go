package errs

import (
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"reflect"
	"regexp"
	"runtime"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var postCodeRx = regexp.MustCompile(`^\d{2}-\d{3}$`)

var validate *validator.Validate
var translator ut.Translator

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	translator, _ = ut.New(en.New(), en.New()).GetTranslator("en")
	en_translations.RegisterDefaultTranslations(validate, translator)

	RegisterRules(validate, translator)

	//mail.Address is validated through its address part.
	validate.RegisterCustomTypeFunc(func(v reflect.Value) any {
		addr, ok := v.Interface().(mail.Address)
		if !ok {
			return nil
		}
		return addr.Address
	}, mail.Address{})

	//report json names when present, otherwise the lowerCamel field name.
	validate.RegisterTagNameFunc(FieldName)
}

// RegisterRules adds the app specific validation tags to v, so the gin binding
// validator and Check agree on them.
func RegisterRules(v *validator.Validate, trans ut.Translator) {
	_ = v.RegisterValidation("postcode", func(fl validator.FieldLevel) bool {
		return postCodeRx.MatchString(fl.Field().String())
	})

	_ = v.RegisterTranslation("postcode", trans,
		func(ut ut.Translator) error {
			return ut.Add("postcode", "{0} must be in the XX-XXX format", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T("postcode", fe.Field())
			return t
		},
	)
}

// FieldName is a validator tag name func.
func FieldName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	name := strings.SplitN(tag, ",", 2)[0]

	switch name {
	case "-":
		return ""
	case "":
		r, size := utf8.DecodeRuneInString(field.Name)
		return string(unicode.ToLower(r)) + field.Name[size:]
	default:
		return name
	}
}

// Check validates value against its "validate" tags and returns FieldErrors
// when any rule fails.
func Check(value any) error {
	if err := validate.Struct(value); err != nil {
		var verrors validator.ValidationErrors
		if !errors.As(err, &verrors) {
			return FieldErrors{"err": err.Error()}
		}

		fieldErrs := make(FieldErrors, len(verrors))
		for _, e := range verrors {
			fieldErrs[e.Field()] = e.Translate(translator)
		}

		return fieldErrs
	}

	return nil
}

// Translate renders gin binding errors the same way Check does.
func Translate(verrors validator.ValidationErrors, trans ut.Translator) FieldErrors {
	fieldErrs := make(FieldErrors, len(verrors))
	for _, e := range verrors {
		fieldErrs[e.Field()] = e.Translate(trans)
	}
	return fieldErrs
}

// FromBinding passes validator errors through for the Error middleware to
// translate and turns decoding failures into 400s.
func FromBinding(err error) error {
	var verrors validator.ValidationErrors
	if errors.As(err, &verrors) {
		return verrors
	}

	pc, filename, line, _ := runtime.Caller(1)
	return &Error{
		Code:     http.StatusBadRequest,
		Message:  "malformed request: " + err.Error(),
		FuncName: runtime.FuncForPC(pc).Name(),
		FileName: fmt.Sprintf("%s:%d", filename, line),
	}
}
