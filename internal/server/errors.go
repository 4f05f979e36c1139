// Package server provides the HTTP REST API for the entity catalog.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/entity-catalog/internal/catalog"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrNotFound indicates the requested record does not exist
type ErrNotFound struct {
	Resource string
	ID       int64
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: entity_id=%d", e.Resource, e.ID)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	switch err.(type) {
	case *ErrValidation, *catalog.MissingParameterError:
		return http.StatusBadRequest
	case *ErrNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// validationError converts a validator failure into *ErrValidation naming the
// first offending query parameter.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ErrValidation{Field: "query", Message: err.Error()}
	}

	fe := fieldErrs[0]
	var msg string
	switch fe.Tag() {
	case "required":
		msg = "is required"
	case "gte":
		msg = "must be at least " + fe.Param()
	case "lte":
		msg = "must be at most " + fe.Param()
	case "oneof":
		msg = "must be one of: " + fe.Param()
	default:
		msg = "failed " + fe.Tag() + " check"
	}
	return &ErrValidation{Field: fe.Field(), Message: msg}
}
