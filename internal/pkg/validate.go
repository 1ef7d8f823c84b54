package pkg

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// EmailPattern is the loose address check shared by the API and the forms.
var EmailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// RegisterRules installs the custom validation tags used by domain DTOs.
func RegisterRules(v *validator.Validate) error {
	if err := v.RegisterValidation("basic_email", func(fl validator.FieldLevel) bool {
		return EmailPattern.MatchString(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.String {
			return true
		}
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

var (
	bindingOnce sync.Once
	bindingErr  error
)

// RegisterBinding installs the custom rules on gin's default validator so
// ShouldBindJSON enforces them. It is safe to call more than once; every
// call reports the outcome of the first.
func RegisterBinding() error {
	bindingOnce.Do(func() {
		bindingErr = registerOn(binding.Validator)
	})
	return bindingErr
}

func registerOn(sv binding.StructValidator) error {
	v, ok := sv.Engine().(*validator.Validate)
	if !ok {
		return errors.New("pkg: gin validator engine is not validator/v10")
	}
	v.RegisterTagNameFunc(jsonFieldName)
	return RegisterRules(v)
}

// NewValidator returns a validator that reads the same "binding" tags gin
// uses and reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("binding")
	v.RegisterTagNameFunc(jsonFieldName)
	if err := RegisterRules(v); err != nil {
		panic("pkg.NewValidator: " + err.Error())
	}
	return v
}

func jsonFieldName(f reflect.StructField) string {
	return parseJSONTagName(f.Tag.Get("json"))
}

// parseJSONTagName extracts the field name from a JSON struct tag value.
func parseJSONTagName(tag string) string {
	if tag == "" || tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" || name == "-" {
		return ""
	}
	return name
}
