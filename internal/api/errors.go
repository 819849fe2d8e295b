package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/hdx-age-api/internal/service"
	"github.com/phrazzld/hdx-age-api/internal/task"
)

// ErrInvalidParameter indicates a path or query parameter with an unusable value.
// Its message is built by this package and safe to show to clients.
var ErrInvalidParameter = errors.New("invalid parameter")

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	var validationErrs validator.ValidationErrors

	switch {
	case errors.Is(err, ErrInvalidParameter),
		errors.As(err, &validationErrs):
		return http.StatusBadRequest

	case errors.Is(err, task.ErrJobNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrUpstream):
		return http.StatusBadGateway

	case errors.Is(err, task.ErrQueueFull),
		errors.Is(err, task.ErrQueueClosed):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErrs validator.ValidationErrors

	switch {
	case errors.Is(err, ErrInvalidParameter):
		return err.Error()

	case errors.As(err, &validationErrs):
		return SanitizeValidationError(validationErrs)

	case errors.Is(err, task.ErrJobNotFound):
		return "Job not found"

	case errors.Is(err, service.ErrUpstream):
		return "Upstream service failed"

	case errors.Is(err, task.ErrQueueFull):
		return "Job queue is full, try again later"

	case errors.Is(err, task.ErrQueueClosed):
		return "Job queue is shutting down"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns validator failures into a message naming
// the first offending parameter.
func SanitizeValidationError(errs validator.ValidationErrors) string {
	if len(errs) == 0 {
		return "Validation error"
	}

	fe := errs[0]
	return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag(), fe.Param()))
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag, param string) string {
	switch tag {
	case "required":
		return "required field"
	case "gt":
		return "must be greater than " + param
	case "gte":
		return "must be at least " + param
	case "oneof":
		return "invalid value"
	case "url":
		return "must be a valid URL"
	default:
		return "validation failed"
	}
}
