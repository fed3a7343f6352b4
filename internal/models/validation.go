package models

import (
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// RegisterValidators installs the custom "grade" rule and reports field
// names by their JSON tag so issue lists match the request body.
func RegisterValidators(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v.RegisterValidation("grade", validateGrade)
}

// validateGrade accepts blank grades (normalized to GradeRaw later) and
// otherwise limits the trimmed grade to MaxGradeLength characters.
func validateGrade(fl validator.FieldLevel) bool {
	g := strings.TrimSpace(fl.Field().String())
	return utf8.RuneCountInString(g) <= MaxGradeLength
}
