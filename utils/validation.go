package utils

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = newValidator()

// newValidator builds the shared validator. Field names in error output use
// the struct's json tags so they match what the client actually sent.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// ValidateStruct validates a struct's `validate` tags and returns the
// first failure as an error.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		fe := errs[0]
		return fmt.Errorf("validation failed for field '%s': %s", fieldName(fe), validationErrorMessage(fe))
	}
	return err
}

// ValidationFieldErrors maps every failing field to a readable message.
func ValidationFieldErrors(err error) map[string]string {
	details := make(map[string]string)
	if errs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range errs {
			details[fieldName(fe)] = validationErrorMessage(fe)
		}
	} else if err != nil {
		details["_body"] = err.Error()
	}
	return details
}

// ParseAndValidate parses the JSON body into target and validates it,
// writing the error response itself. Returns false when the request was
// rejected.
func ParseAndValidate(c *fiber.Ctx, target interface{}) bool {
	if err := c.BodyParser(target); err != nil {
		BadRequestResponse(c, "Invalid request body format", map[string]string{
			"error": err.Error(),
		})
		return false
	}

	if err := validate.Struct(target); err != nil {
		ValidationErrorResponse(c, ValidationFieldErrors(err))
		return false
	}
	return true
}

func fieldName(fe validator.FieldError) string {
	// Field() already reflects the json tag via RegisterTagNameFunc.
	return fe.Field()
}

func validationErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Field is required"
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("Field must be at least %s characters long", fe.Param())
		}
		return fmt.Sprintf("Field must be at least %s", fe.Param())
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("Field must be at most %s characters long", fe.Param())
		}
		return fmt.Sprintf("Field must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Field must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "uuid4":
		return "Field must be a valid UUID"
	case "url":
		return "Field must be a valid URL"
	default:
		return fmt.Sprintf("Field failed validation rule '%s'", fe.Tag())
	}
}
