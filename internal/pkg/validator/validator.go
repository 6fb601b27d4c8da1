package validator

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

// playerNamePattern matches the account-name format reports arrive with.
var playerNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{1,16}$`)

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Register custom validations
	registerCustomValidations()
}

func registerCustomValidations() {
	// Report status validation
	validate.RegisterValidation("reportstatus", func(fl validator.FieldLevel) bool {
		status := strings.ToUpper(fl.Field().String())
		validStatuses := []string{"OPEN", "IN_PROGRESS", "RESOLVED", "REJECTED"}
		for _, s := range validStatuses {
			if status == s {
				return true
			}
		}
		return false
	})

	// Player name validation
	validate.RegisterValidation("playername", func(fl validator.FieldLevel) bool {
		return playerNamePattern.MatchString(fl.Field().String())
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "gte":
			errors[field] = "Value must be at least " + err.Param()
		case "lte":
			errors[field] = "Value must be at most " + err.Param()
		case "uuid4":
			errors[field] = "Invalid UUID format"
		case "reportstatus":
			errors[field] = "Invalid status. Must be: OPEN, IN_PROGRESS, RESOLVED, or REJECTED"
		case "playername":
			errors[field] = "Invalid player name. Letters, digits and underscores only, 1-16 characters"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
