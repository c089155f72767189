package ads

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ternarybob/adscope/internal/models"
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check runs struct validation and reports the first failure as a ValidationError
func (s *Service) check(request interface{}) error {
	err := s.validate.Struct(request)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &models.ValidationError{Field: fe.Field(), Message: describe(fe)}
	}
	return &models.ValidationError{Message: err.Error()}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "is required"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "len=2|eq=ALL":
		return "must be a two-letter country code or ALL"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func parseStatus(value string) (models.JobStatus, error) {
	status := models.JobStatus(strings.ToLower(strings.TrimSpace(value)))
	switch status {
	case "", models.JobStatusQueued, models.JobStatusRunning, models.JobStatusCompleted,
		models.JobStatusFailed, models.JobStatusCancelled:
		return status, nil
	}
	return "", &models.ValidationError{Field: "status", Message: "unknown status " + value}
}
