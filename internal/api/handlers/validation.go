package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/codyseavey/tcg-portfolio/internal/models"
)

// Issues lists validation problems: formErrors apply to the whole body,
// fieldErrors are keyed by JSON field name.
type Issues struct {
	FormErrors  []string            `json:"formErrors"`
	FieldErrors map[string][]string `json:"fieldErrors"`
}

// ValidationErrorResponse is the 400 body for rejected input
type ValidationErrorResponse struct {
	Error  string `json:"error"`
	Issues Issues `json:"issues"`
}

func newIssues() Issues {
	return Issues{
		FormErrors:  []string{},
		FieldErrors: map[string][]string{},
	}
}

func (i *Issues) addField(field, msg string) {
	i.FieldErrors[field] = append(i.FieldErrors[field], msg)
}

func (i *Issues) addForm(msg string) {
	i.FormErrors = append(i.FormErrors, msg)
}

func invalidInput(c *gin.Context, issues Issues) {
	c.JSON(http.StatusBadRequest, ValidationErrorResponse{
		Error:  "Invalid input",
		Issues: issues,
	})
}

// bindJSON decodes the body into obj and validates it. A field holding the
// wrong JSON type does not stop the rest of the body from being validated:
// the decoder fills every other field, so both error sets are returned.
func bindJSON(c *gin.Context, obj any) error {
	err := c.ShouldBindJSON(obj)

	var typeErr *json.UnmarshalTypeError
	if !errors.As(err, &typeErr) || typeErr.Field == "" {
		return err
	}
	if verr := binding.Validator.ValidateStruct(obj); verr != nil {
		return errors.Join(err, verr)
	}
	return err
}

// bindIssues converts a bindJSON error into the issue shape.
func bindIssues(err error) Issues {
	issues := newIssues()

	var verrs validator.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError

	if errors.As(err, &typeErr) {
		if typeErr.Field == "" {
			issues.addForm(fmt.Sprintf("Expected object, received %s", typeErr.Value))
		} else {
			issues.addField(typeErr.Field, fmt.Sprintf("Expected %s, received %s", typeName(typeErr.Type.Kind().String()), typeErr.Value))
		}
	}
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			// a mistyped field decodes as missing; its type error already covers it
			if typeErr != nil && fe.Field() == typeErr.Field {
				continue
			}
			issues.addField(fe.Field(), fieldMessage(fe))
		}
	}
	if len(issues.FormErrors) > 0 || len(issues.FieldErrors) > 0 {
		return issues
	}

	switch {
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		issues.addForm("Malformed JSON body")
	case errors.Is(err, io.EOF):
		issues.addForm("Request body is required")
	default:
		issues.addForm(err.Error())
	}
	return issues
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Required"
	case "max":
		return fmt.Sprintf("String must contain at most %s character(s)", fe.Param())
	case "gte":
		return fmt.Sprintf("Number must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("Number must be less than or equal to %s", fe.Param())
	case "grade":
		return fmt.Sprintf("String must contain at most %d character(s)", models.MaxGradeLength)
	default:
		return fmt.Sprintf("Failed %s validation", fe.Tag())
	}
}

func typeName(kind string) string {
	switch kind {
	case "int", "int64", "int32":
		return "integer"
	case "float64", "float32":
		return "number"
	default:
		return kind
	}
}
