package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rideshare/internal/domain"
	"rideshare/internal/repository"
)

// RiderHandler handles HTTP requests for riders.
type RiderHandler struct {
	riderRepo repository.RiderRepository
}

// NewRiderHandler creates a new RiderHandler.
func NewRiderHandler(riderRepo repository.RiderRepository) *RiderHandler {
	return &RiderHandler{riderRepo: riderRepo}
}

// RegisterRiderRequest is the HTTP request body for rider registration.
type RegisterRiderRequest struct {
	RiderID      int64  `json:"rider_id"`
	Name         string `json:"name"`
	LanguageCode string `json:"language_code,omitempty"`
}

// RiderResponse is the HTTP representation of a rider.
type RiderResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	LanguageCode string `json:"language_code,omitempty"`
}

// Register handles POST /v1/riders/register
func (h *RiderHandler) Register(c *gin.Context) {
	var req RegisterRiderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.RiderID <= 0 || req.Name == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "rider_id and name are required"})
		return
	}

	rider := &domain.Rider{
		ID:           req.RiderID,
		Name:         req.Name,
		LanguageCode: req.LanguageCode,
		CreatedAt:    time.Now(),
	}
	if err := h.riderRepo.Upsert(c.Request.Context(), rider); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toRiderResponse(rider))
}

// GetRider handles GET /v1/riders/:id
func (h *RiderHandler) GetRider(c *gin.Context) {
	riderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	rider, err := h.riderRepo.GetByID(c.Request.Context(), riderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRiderResponse(rider))
}

func toRiderResponse(r *domain.Rider) RiderResponse {
	return RiderResponse{ID: r.ID, Name: r.Name, LanguageCode: r.LanguageCode}
}
