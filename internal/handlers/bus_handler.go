package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smarttransit/bus-booking-backend/internal/middleware"
	"github.com/smarttransit/bus-booking-backend/internal/models"
	"github.com/smarttransit/bus-booking-backend/internal/services"
)

// BusHandler exposes the fleet management endpoints
type BusHandler struct {
	busService *services.BusService
}

// NewBusHandler creates a new BusHandler
func NewBusHandler(busService *services.BusService) *BusHandler {
	return &BusHandler{busService: busService}
}

// CreateBus registers a bus under the authenticated operator
// POST /api/v1/buses
func (h *BusHandler) CreateBus(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req models.CreateBusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
		return
	}

	bus, err := h.busService.Register(userCtx.UserID.String(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, bus)
}

// GetBusByID returns a bus by id
// GET /api/v1/buses/:id
func (h *BusHandler) GetBusByID(c *gin.Context) {
	bus, err := h.busService.GetByID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, bus)
}

// GetMyBuses returns the authenticated operator's fleet
// GET /api/v1/buses
func (h *BusHandler) GetMyBuses(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	buses, err := h.busService.GetByOperator(userCtx.UserID.String())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"buses": buses, "count": len(buses)})
}
