package service

import (
	"errors"
	"fmt"

	"kilnbazaar/storage"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("not allowed")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNoOrdersToRate = errors.New("no orders with this provider to rate")
	ErrBusy           = errors.New("another submission is in progress")
	ErrDeleteFailed   = errors.New("nothing was deleted")
)

// ValidationError is returned before any store call is made.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func translate(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
