package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smarttransit/bus-booking-backend/internal/middleware"
	"github.com/smarttransit/bus-booking-backend/internal/models"
	"github.com/smarttransit/bus-booking-backend/internal/services"
)

// PermitHandler exposes the permit management endpoints
type PermitHandler struct {
	permitService *services.PermitService
}

// NewPermitHandler creates a new PermitHandler
func NewPermitHandler(permitService *services.PermitService) *PermitHandler {
	return &PermitHandler{permitService: permitService}
}

// CreatePermit issues a permit
// POST /api/v1/permits
func (h *PermitHandler) CreatePermit(c *gin.Context) {
	var req models.CreatePermitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
		return
	}

	permit, err := h.permitService.Create(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, permit)
}

// GetAllPermits lists every permit
// GET /api/v1/permits
func (h *PermitHandler) GetAllPermits(c *gin.Context) {
	permits, err := h.permitService.GetAll()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"permits": permits, "count": len(permits)})
}

// GetPermitByID returns a permit by id
// GET /api/v1/permits/:id
func (h *PermitHandler) GetPermitByID(c *gin.Context) {
	permit, err := h.permitService.GetByID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, permit)
}

// UpdatePermit applies a partial update
// PUT /api/v1/permits/:id
func (h *PermitHandler) UpdatePermit(c *gin.Context) {
	var req models.UpdatePermitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
		return
	}

	permit, err := h.permitService.Update(c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, permit)
}

// DeletePermit soft-deletes a permit
// DELETE /api/v1/permits/:id
func (h *PermitHandler) DeletePermit(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	permit, err := h.permitService.SoftDelete(c.Param("id"), userCtx.UserID.String())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Permit deleted",
		"permit":  permit,
	})
}

// CheckValidity reports whether a permit is currently valid
// GET /api/v1/permits/validity/:number
func (h *PermitHandler) CheckValidity(c *gin.Context) {
	result, err := h.permitService.CheckValidity(c.Param("number"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
