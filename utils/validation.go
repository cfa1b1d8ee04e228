package utils

import (
    "fmt"
    "strings"

    "github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
    validate = validator.New()
}

func ValidateStruct(s interface{}) error {
    return validate.Struct(s)
}

func SanitizeString(input string) string {
    return strings.TrimSpace(input)
}

// NormalizeTags trims each comma-separated tag and drops empties.
func NormalizeTags(tags string) string {
    parts := strings.Split(tags, ",")
    cleaned := make([]string, 0, len(parts))
    for _, p := range parts {
        if t := strings.TrimSpace(p); t != "" {
            cleaned = append(cleaned, strings.ToLower(t))
        }
    }
    return strings.Join(cleaned, ",")
}

func FormatValidationError(err error) map[string]string {
    errors := make(map[string]string)

    if validationErrors, ok := err.(validator.ValidationErrors); ok {
        for _, fieldError := range validationErrors {
            field := strings.ToLower(fieldError.Field())
            switch fieldError.Tag() {
            case "required":
                errors[field] = fmt.Sprintf("%s is required", field)
            case "email":
                errors[field] = "Invalid email format"
            case "min":
                errors[field] = fmt.Sprintf("%s must be at least %s", field, fieldError.Param())
            case "max":
                errors[field] = fmt.Sprintf("%s must be at most %s", field, fieldError.Param())
            default:
                errors[field] = fmt.Sprintf("%s is invalid", field)
            }
        }
    }

    return errors
}
