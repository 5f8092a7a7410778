package racks

import (
	"errors"
	"net/http"
)

// Domain errors for rack operations.
var (
	ErrNotFound        = errors.New("rack not found")
	ErrDuplicate       = errors.New("rack already exists")
	ErrForbidden       = errors.New("rack not accessible to caller")
	ErrUnauthenticated = errors.New("caller identity missing or invalid")
	ErrInvalidID       = errors.New("invalid rack id")
)

// MapHTTPStatus maps rack domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
