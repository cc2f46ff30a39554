package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smarttransit/bus-booking-backend/internal/models"
	"github.com/smarttransit/bus-booking-backend/internal/services"
)

// SeatHandler exposes the bus seat layout endpoints
type SeatHandler struct {
	seatService *services.SeatService
}

// NewSeatHandler creates a new SeatHandler
func NewSeatHandler(seatService *services.SeatService) *SeatHandler {
	return &SeatHandler{seatService: seatService}
}

// CreateMatrix builds the seat layout for a bus
// POST /api/v1/buses/:id/seats
func (h *SeatHandler) CreateMatrix(c *gin.Context) {
	var req models.CreateSeatMatrixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
		return
	}

	matrix, err := h.seatService.CreateMatrix(c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Seat matrix created",
		"seat_matrix": matrix,
	})
}

// UpdateMatrix rebuilds the seat layout wholesale
// PUT /api/v1/buses/:id/seats
func (h *SeatHandler) UpdateMatrix(c *gin.Context) {
	var req models.CreateSeatMatrixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
		return
	}

	matrix, err := h.seatService.UpdateMatrix(c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Seat matrix updated",
		"seat_matrix": matrix,
	})
}

// GetMatrix returns the layout with positions and stats
// GET /api/v1/buses/:id/seats
func (h *SeatHandler) GetMatrix(c *gin.Context) {
	seats, stats, err := h.seatService.GetMatrix(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"seats": seats,
		"stats": stats,
	})
}

// GetSeat returns one seat by position
// GET /api/v1/buses/:id/seats/:row/:column
func (h *SeatHandler) GetSeat(c *gin.Context) {
	seat, err := h.seatService.GetSeat(c.Param("id"), c.Param("row"), c.Param("column"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, seat)
}

// PatchSeat updates one seat in place
// PATCH /api/v1/buses/:id/seats/:row/:column
func (h *SeatHandler) PatchSeat(c *gin.Context) {
	var req models.UpdateSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
		return
	}

	seat, err := h.seatService.PatchSeat(c.Param("id"), c.Param("row"), c.Param("column"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, seat)
}

// DeleteMatrix resets the bus to an empty layout
// DELETE /api/v1/buses/:id/seats
func (h *SeatHandler) DeleteMatrix(c *gin.Context) {
	if err := h.seatService.DeleteMatrix(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Seat matrix deleted"})
}
