package analysis

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/racksmith/internal/racks"
	"github.com/JaimeStill/racksmith/pkg/adg"
)

// Domain errors for analysis operations.
var (
	ErrNotFound            = errors.New("rack not found")
	ErrNotAnalyzed         = errors.New("rack has not been analyzed")
	ErrChainNotFound       = errors.New("chain not found")
	ErrConcurrencyConflict = errors.New("analysis already running for rack")
	ErrDuplicate           = errors.New("analysis already exists")
	ErrInvalidRequest      = errors.New("invalid analysis request")
)

// MapHTTPStatus maps analysis domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrNotAnalyzed),
		errors.Is(err, ErrChainNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConcurrencyConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, adg.ErrParse):
		return http.StatusUnprocessableEntity
	}
	return racks.MapHTTPStatus(err)
}
