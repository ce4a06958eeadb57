package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"rideshare/internal/domain"
	"rideshare/internal/service"
)

// RideHandler handles HTTP requests for rides.
type RideHandler struct {
	rideService *service.RideService
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(rideService *service.RideService) *RideHandler {
	return &RideHandler{rideService: rideService}
}

// RequestRideRequest is the HTTP request body for requesting a ride.
type RequestRideRequest struct {
	RiderID      int64   `json:"rider_id"`
	RiderName    string  `json:"rider_name,omitempty"`
	LanguageCode string  `json:"language_code,omitempty"`
	PickupLat    float64 `json:"pickup_lat"`
	PickupLng    float64 `json:"pickup_lng"`
}

// RideResponse is the HTTP representation of a ride.
type RideResponse struct {
	ID          int64   `json:"id"`
	RiderID     int64   `json:"rider_id"`
	DriverID    int64   `json:"driver_id,omitempty"`
	Status      string  `json:"status"`
	PickupLat   float64 `json:"pickup_lat"`
	PickupLng   float64 `json:"pickup_lng"`
	DistanceKm  float64 `json:"distance_km,omitempty"`
	Rating      int     `json:"rating,omitempty"`
	CreatedAt   string  `json:"created_at"`
	CompletedAt string  `json:"completed_at,omitempty"`
}

// RequestRideResponse is the HTTP response for requesting a ride.
type RequestRideResponse struct {
	Ride           RideResponse `json:"ride"`
	DriverAssigned bool         `json:"driver_assigned"`
	DriverName     string       `json:"driver_name,omitempty"`
	VehicleType    string       `json:"vehicle_type,omitempty"`
}

// HistoryEntryResponse is one audit entry of a ride's lifecycle.
type HistoryEntryResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// RequestRide handles POST /v1/rides
func (h *RideHandler) RequestRide(c *gin.Context) {
	var req RequestRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.rideService.RequestRide(c.Request.Context(), service.RequestRideRequest{
		RiderID:       req.RiderID,
		RiderName:     req.RiderName,
		RiderLanguage: req.LanguageCode,
		PickupLat:     req.PickupLat,
		PickupLng:     req.PickupLng,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp := RequestRideResponse{
		Ride:           toRideResponse(result.Ride),
		DriverAssigned: result.DriverAssigned,
	}
	if result.Driver != nil {
		resp.DriverName = result.Driver.Name
		resp.VehicleType = string(result.Driver.VehicleType)
	}
	c.JSON(http.StatusCreated, resp)
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	rideID, ok := pathID(c, "id")
	if !ok {
		return
	}

	ride, err := h.rideService.GetRide(c.Request.Context(), rideID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRideResponse(ride))
}

// GetAll handles GET /v1/rides
func (h *RideHandler) GetAll(c *gin.Context) {
	rides, err := h.rideService.GetAllRides(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]RideResponse, 0, len(rides))
	for _, r := range rides {
		response = append(response, toRideResponse(r))
	}
	c.JSON(http.StatusOK, response)
}

// GetHistory handles GET /v1/rides/:id/history
func (h *RideHandler) GetHistory(c *gin.Context) {
	rideID, ok := pathID(c, "id")
	if !ok {
		return
	}

	entries, err := h.rideService.GetRideHistory(c.Request.Context(), rideID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		response = append(response, HistoryEntryResponse{
			Status:    string(e.Status),
			Timestamp: e.Timestamp.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, response)
}

// CancelRideRequest is the HTTP request body for cancelling a ride.
type CancelRideRequest struct {
	CancelledBy int64 `json:"cancelled_by"`
}

// CancelRide handles POST /v1/rides/:id/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	rideID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req CancelRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.CancelRide(c.Request.Context(), rideID, req.CancelledBy)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRideResponse(ride))
}

// DriverActionRequest identifies the driver performing a start or complete.
type DriverActionRequest struct {
	DriverID int64 `json:"driver_id"`
}

// StartRide handles POST /v1/rides/:id/start
func (h *RideHandler) StartRide(c *gin.Context) {
	rideID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req DriverActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.StartRide(c.Request.Context(), rideID, req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRideResponse(ride))
}

// CompleteRide handles POST /v1/rides/:id/complete
func (h *RideHandler) CompleteRide(c *gin.Context) {
	rideID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req DriverActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.CompleteRide(c.Request.Context(), rideID, req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRideResponse(ride))
}

// RateRideRequest is the HTTP request body for rating a completed ride.
type RateRideRequest struct {
	Rating int `json:"rating"`
}

// RateRide handles POST /v1/rides/:id/rate
func (h *RideHandler) RateRide(c *gin.Context) {
	rideID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req RateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.RateRide(c.Request.Context(), rideID, req.Rating)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRideResponse(ride))
}

// GetActiveRide handles GET /v1/users/:id/active-ride
func (h *RideHandler) GetActiveRide(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}

	ride, err := h.rideService.GetActiveRideForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if ride == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no active ride"})
		return
	}
	c.JSON(http.StatusOK, toRideResponse(ride))
}

func toRideResponse(ride *domain.Ride) RideResponse {
	resp := RideResponse{
		ID:         ride.ID,
		RiderID:    ride.RiderID,
		DriverID:   ride.DriverID,
		Status:     string(ride.Status),
		PickupLat:  ride.PickupLat,
		PickupLng:  ride.PickupLng,
		DistanceKm: ride.Distance,
		Rating:     ride.Rating,
		CreatedAt:  ride.CreatedAt.Format(time.RFC3339),
	}
	if !ride.CompletedAt.IsZero() {
		resp.CompletedAt = ride.CompletedAt.Format(time.RFC3339)
	}
	return resp
}

// pathID parses a positive int64 path parameter, writing a 400 on failure.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + name})
		return 0, false
	}
	return id, true
}
