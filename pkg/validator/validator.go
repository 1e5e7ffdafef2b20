package validator

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"anoa.com/campusfix/pkg/apperror"
	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// engine shares the "binding" tag with gin so request structs validate the
// same way whether they arrive over HTTP or are built in code.
func engine() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		validate.SetTagName("binding")
	})
	return validate
}

// Struct validates s and returns an apperror.ErrInvalidInput on failure.
func Struct(s any) error {
	if err := engine().Struct(s); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return apperror.Validation(FormatValidationError(validationErrors))
		}
		return apperror.Validation(err.Error())
	}
	return nil
}

func FormatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, fieldError := range validationErrors {
			message := getFieldErrorMessage(fieldError)
			messages = append(messages, message)
		}
		return strings.Join(messages, "; ")
	}
	return err.Error()
}

func getFieldErrorMessage(fe validator.FieldError) string {
	field := getFieldName(fe.Field())

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "uuid":
		return fmt.Sprintf("%s must be a valid id", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "min":
		if fe.Type().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Type().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func getFieldName(field string) string {
	fieldNames := map[string]string{
		"CollegeID":    "college_id",
		"FullName":     "full_name",
		"Email":        "email",
		"Password":     "password",
		"DepartmentID": "department_id",
		"RoomNo":       "room_no",
		"ItemID":       "item_id",
		"Title":        "title",
		"Description":  "description",
		"Status":       "status",
		"Role":         "role",
		"Name":         "name",
		"Code":         "code",
		"Sort":         "sort",
	}

	if name, ok := fieldNames[field]; ok {
		return name
	}
	return field
}
