package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rideshare/internal/repository"
	"rideshare/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	c.JSON(mapErrorToHTTPStatus(err), ErrorResponse{Error: err.Error()})
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
// The mapping keeps "nothing available", "invalid request" and "wrong state"
// distinguishable for the caller.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors
	case errors.Is(err, service.ErrInvalidRiderID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidRideID),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrInvalidVehicleType),
		errors.Is(err, service.ErrInvalidRating):
		return http.StatusBadRequest

	// Precondition failures
	case errors.Is(err, service.ErrIllegalTransition),
		errors.Is(err, service.ErrRideNotAssigned),
		errors.Is(err, service.ErrRideNotOngoing),
		errors.Is(err, service.ErrRideNotCompleted),
		errors.Is(err, service.ErrRideAlreadyRated),
		errors.Is(err, service.ErrRideCannotBeCancelled),
		errors.Is(err, service.ErrDriverOnActiveRide),
		errors.Is(err, service.ErrRiderOnActiveRide):
		return http.StatusConflict

	// Business rule errors
	case errors.Is(err, service.ErrDriverNotAssignedToRide):
		return http.StatusForbidden

	// Nothing available right now
	case errors.Is(err, service.ErrNoDriverAvailable):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}
