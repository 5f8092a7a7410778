package batches

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/racksmith/internal/racks"
)

// Domain errors for batch operations.
var (
	ErrNotFound           = errors.New("batch not found")
	ErrAdmission          = errors.New("batch rejected")
	ErrInvalidStatus      = errors.New("batch is not in a cancellable state")
	ErrResultsUnavailable = errors.New("batch results are not available yet")
	ErrStopped            = errors.New("scheduler is not running")
)

// MapHTTPStatus maps batch domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAdmission):
		return http.StatusBadRequest
	case errors.Is(err, racks.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrResultsUnavailable):
		return http.StatusConflict
	case errors.Is(err, ErrStopped):
		return http.StatusServiceUnavailable
	}
	return racks.MapHTTPStatus(err)
}
