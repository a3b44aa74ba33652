package configloader

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// TagNameFunction makes validation errors report the yaml (or json) name of a field instead of its Go name.
var TagNameFunction = func(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
	if name == "" {
		name = strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	}
	if name == "-" {
		return ""
	}
	return name
}

// Validate checks conf against its `validate` tags. Failures are returned as validator.ValidationErrors.
func Validate(conf interface{}) error {
	validate := validator.New()
	validate.RegisterTagNameFunc(TagNameFunction)
	return validate.Struct(conf)
}
