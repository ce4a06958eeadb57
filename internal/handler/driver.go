package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rideshare/internal/domain"
	"rideshare/internal/service"
)

// DriverHandler handles HTTP requests for drivers.
type DriverHandler struct {
	driverService *service.DriverService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(driverService *service.DriverService) *DriverHandler {
	return &DriverHandler{driverService: driverService}
}

// RegisterDriverRequest is the HTTP request body for driver registration.
// Omitting coordinates places the driver randomly within the city bounds.
type RegisterDriverRequest struct {
	DriverID     int64   `json:"driver_id"`
	Name         string  `json:"name"`
	VehicleType  string  `json:"vehicle_type"`
	Lat          float64 `json:"lat,omitempty"`
	Lng          float64 `json:"lng,omitempty"`
	LanguageCode string  `json:"language_code,omitempty"`
}

// SetAvailabilityRequest is the HTTP request body for the availability toggle.
type SetAvailabilityRequest struct {
	Available *bool `json:"available" binding:"required"`
}

// DriverResponse is the HTTP representation of a driver.
type DriverResponse struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	VehicleType  string  `json:"vehicle_type"`
	Available    bool    `json:"available"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	Rating       float64 `json:"rating"`
	TotalRides   int     `json:"total_rides"`
	LanguageCode string  `json:"language_code,omitempty"`
}

// Register handles POST /v1/drivers/register
func (h *DriverHandler) Register(c *gin.Context) {
	var req RegisterDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.Name == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "name is required"})
		return
	}

	driver, err := h.driverService.RegisterDriver(c.Request.Context(), service.RegisterDriverRequest{
		DriverID:     req.DriverID,
		Name:         req.Name,
		VehicleType:  domain.VehicleType(req.VehicleType),
		Lat:          req.Lat,
		Lng:          req.Lng,
		LanguageCode: req.LanguageCode,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toDriverResponse(driver))
}

// SetAvailability handles POST /v1/drivers/:id/availability
func (h *DriverHandler) SetAvailability(c *gin.Context) {
	driverID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req SetAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	driver, err := h.driverService.SetAvailability(c.Request.Context(), driverID, *req.Available)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDriverResponse(driver))
}

// GetDriver handles GET /v1/drivers/:id
func (h *DriverHandler) GetDriver(c *gin.Context) {
	driverID, ok := pathID(c, "id")
	if !ok {
		return
	}

	driver, err := h.driverService.GetDriver(c.Request.Context(), driverID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDriverResponse(driver))
}

// GetAll handles GET /v1/drivers
func (h *DriverHandler) GetAll(c *gin.Context) {
	drivers, err := h.driverService.GetAllDrivers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]DriverResponse, 0, len(drivers))
	for _, d := range drivers {
		response = append(response, toDriverResponse(d))
	}
	c.JSON(http.StatusOK, response)
}

func toDriverResponse(d *domain.Driver) DriverResponse {
	return DriverResponse{
		ID:           d.ID,
		Name:         d.Name,
		VehicleType:  string(d.VehicleType),
		Available:    d.Available,
		Lat:          d.Lat,
		Lng:          d.Lng,
		Rating:       d.Rating,
		TotalRides:   d.TotalRides,
		LanguageCode: d.LanguageCode,
	}
}
