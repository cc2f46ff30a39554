package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smarttransit/bus-booking-backend/internal/middleware"
	"github.com/smarttransit/bus-booking-backend/internal/models"
	"github.com/smarttransit/bus-booking-backend/internal/services"
)

// BookingHandler exposes the booking, availability and fare endpoints
type BookingHandler struct {
	bookingService *services.BookingService
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(bookingService *services.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

// BookSeats books seats for the authenticated user
// POST /api/v1/bookings
func (h *BookingHandler) BookSeats(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req models.BookSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
		return
	}

	result, err := h.bookingService.BookSeats(userCtx.UserID.String(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// CancelBooking cancels a booking and releases its seats
// POST /api/v1/bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	booking, err := h.bookingService.CancelBooking(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Booking cancelled",
		"booking": booking,
	})
}

// GetBookingByID returns one booking with its QR code. Commuters only see
// their own bookings.
// GET /api/v1/bookings/:id
func (h *BookingHandler) GetBookingByID(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	details, err := h.bookingService.GetBookingDetails(userCtx.UserID.String(), userCtx.Role, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, details)
}

// GetMyBookings lists the authenticated user's bookings
// GET /api/v1/bookings
func (h *BookingHandler) GetMyBookings(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	bookings, err := h.bookingService.GetUserBookings(userCtx.UserID.String())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "count": len(bookings)})
}

// GetAllBookings lists every booking (admin)
// GET /api/v1/admin/bookings
func (h *BookingHandler) GetAllBookings(c *gin.Context) {
	bookings, err := h.bookingService.GetAllBookings()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "count": len(bookings)})
}

// CheckAvailability returns the seat map for a route and date with
// booked seats marked blocked
// GET /api/v1/routes/:id/availability?date=YYYY-MM-DD
func (h *BookingHandler) CheckAvailability(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "date query parameter is required"})
		return
	}

	seats, stats, err := h.bookingService.CheckAvailability(c.Param("id"), date)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"seats": seats,
		"stats": stats,
	})
}

// CalculateFare resolves the fare for a stop pair on a route
// GET /api/v1/routes/:id/fare?from=X&to=Y
func (h *BookingHandler) CalculateFare(c *gin.Context) {
	from := c.Query("from")
	to := c.Query("to")
	if from == "" || to == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "from and to query parameters are required"})
		return
	}

	fare, err := h.bookingService.CalculateFare(c.Param("id"), from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"from_stop": from,
		"to_stop":   to,
		"fare":      fare,
	})
}
