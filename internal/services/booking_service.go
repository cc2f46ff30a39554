package services

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/smarttransit/bus-booking-backend/internal/database"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

// RouteStore is the route persistence the booking engine consumes
type RouteStore interface {
	GetByID(routeID string) (*models.Route, error)
}

// BusStore is the bus persistence the booking engine consumes
type BusStore interface {
	GetByID(busID string) (*models.Bus, error)
}

// BookingStore is the booking persistence the booking engine consumes
type BookingStore interface {
	GetByID(bookingID string) (*models.Booking, error)
	GetByUserID(userID string) ([]models.Booking, error)
	GetAll() ([]models.Booking, error)
	GetActiveSeatIDs(routeID string, travelDate time.Time) ([]string, error)
	CreateWithSeatBlocks(booking *models.Booking, bus *models.Bus) error
	CancelWithSeatRelease(booking *models.Booking, bus *models.Bus) error
}

// UserStore resolves users for notification dispatch
type UserStore interface {
	GetByID(userID string) (*models.User, error)
}

// Notifier dispatches a templated notification. Dispatch is best-effort:
// the engines log failures and move on.
type Notifier interface {
	Notify(recipient, subject, templateID string, variables map[string]string) error
}

// BookingConfig holds booking policy knobs
type BookingConfig struct {
	// CancellationWindow is the minimum notice before the travel date
	// required to cancel.
	CancellationWindow time.Duration
	// PaymentCategories lists bus types that require payment details.
	PaymentCategories []models.BusType
	// SiteURL is the base URL encoded into booking QR codes.
	SiteURL string
}

// DefaultBookingConfig returns the default policy: 24h cancellation notice,
// payment required on luxury tiers.
func DefaultBookingConfig() BookingConfig {
	return BookingConfig{
		CancellationWindow: 24 * time.Hour,
		PaymentCategories:  []models.BusType{models.BusTypeLuxury, models.BusTypeSemiLuxury},
		SiteURL:            "http://localhost:8080",
	}
}

// maxMatrixRetries bounds the optimistic-write retry loop when a concurrent
// booking or cancellation bumped the bus version between read and write.
const maxMatrixRetries = 3

// BookingService implements the availability, booking and cancellation
// engines. Validation never mutates state; the only writes happen inside a
// single repository transaction.
type BookingService struct {
	routeStore   RouteStore
	busStore     BusStore
	bookingStore BookingStore
	userStore    UserStore
	notifier     Notifier
	config       BookingConfig
	logger       *logrus.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(
	routeStore RouteStore,
	busStore BusStore,
	bookingStore BookingStore,
	userStore UserStore,
	notifier Notifier,
	config BookingConfig,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		routeStore:   routeStore,
		busStore:     busStore,
		bookingStore: bookingStore,
		userStore:    userStore,
		notifier:     notifier,
		config:       config,
		logger:       logger,
	}
}

// BookSeats runs the booking algorithm: resolve route, schedule and bus,
// validate payment details and seat availability, compute the fare, then
// persist the booking and the seat blocks as one transaction. All-or-nothing:
// a single unavailable seat rejects the whole request.
func (s *BookingService) BookSeats(userID string, req *models.BookSeatsRequest) (*models.BookSeatsResponse, error) {
	if req.RouteID == "" || req.Date == "" || req.FromStop == "" || req.ToStop == "" || len(req.SeatIDs) == 0 {
		return nil, models.BadRequestError("missing required fields or empty seat list")
	}

	travelDate, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, models.BadRequestError("date must be in YYYY-MM-DD format")
	}

	route, err := s.routeStore.GetByID(req.RouteID)
	if err != nil {
		return nil, fmt.Errorf("failed to load route: %w", err)
	}
	if route == nil {
		return nil, models.NotFoundError("route not found")
	}
	if route.Status != models.RouteStatusActive {
		return nil, models.PolicyViolationError("route is not active")
	}

	if _, ok := route.ActiveScheduleForDate(travelDate); !ok {
		return nil, models.PolicyViolationError("route is not active on this day")
	}

	assigned, ok := route.ResolveActiveBus()
	if !ok {
		return nil, models.NotFoundError("no available bus for this route")
	}

	bus, err := s.busStore.GetByID(assigned.BusID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bus: %w", err)
	}
	if bus == nil {
		return nil, models.NotFoundError("assigned bus not found")
	}

	requiresPayment := bus.RequiresPayment(s.config.PaymentCategories)
	if requiresPayment {
		if err := validatePaymentDetails(req.PaymentDetails); err != nil {
			return nil, err
		}
	}

	selected, unavailable := selectSeats(bus.SeatMatrix, req.SeatIDs)
	if len(unavailable) > 0 {
		return nil, models.ConflictError("seats not available: "+strings.Join(unavailable, ", ")).
			WithDetail("seat_ids", unavailable)
	}

	// Matrix flags are the fast path; the booking rows are the source of
	// truth for date conflicts.
	bookedIDs, err := s.bookingStore.GetActiveSeatIDs(route.ID, travelDate)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing bookings: %w", err)
	}
	if conflicts := intersect(req.SeatIDs, bookedIDs); len(conflicts) > 0 {
		return nil, models.ConflictError("seats already booked: "+strings.Join(conflicts, ", ")).
			WithDetail("seat_ids", conflicts)
	}

	farePerSeat, ok := route.CalculateFare(req.FromStop, req.ToStop)
	if !ok {
		return nil, models.UnprocessableError(
			fmt.Sprintf("no fare defined between %s and %s", req.FromStop, req.ToStop))
	}
	totalFare := farePerSeat * float64(len(req.SeatIDs))

	payment := buildPaymentInfo(requiresPayment, req.PaymentDetails, totalFare)

	booking := &models.Booking{
		UserID:     userID,
		RouteID:    route.ID,
		TravelDate: travelDate,
		Seats:      selected,
		TotalFare:  totalFare,
		Payment:    payment,
		Status:     models.BookingStatusConfirmed,
	}

	if err := s.persistBooking(booking, bus, req.SeatIDs); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":  booking.ID,
		"user_id":     userID,
		"route_id":    route.ID,
		"travel_date": req.Date,
		"seats":       len(selected),
		"total_fare":  totalFare,
	}).Info("Booking confirmed")

	s.sendBookingConfirmation(booking, route, requiresPayment)

	return &models.BookSeatsResponse{
		BookingID: booking.ID,
		TotalFare: totalFare,
		Status:    string(booking.Status),
	}, nil
}

// persistBooking blocks the selected seats on the in-memory matrix and
// commits booking + seat rows + matrix in one transaction. A stale bus
// version is retried against a fresh read; the unique active-seat index
// still rejects true double-bookings.
func (s *BookingService) persistBooking(booking *models.Booking, bus *models.Bus, seatIDs []string) error {
	for attempt := 0; ; attempt++ {
		blockSeats(bus.SeatMatrix, seatIDs, true)

		err := s.bookingStore.CreateWithSeatBlocks(booking, bus)
		if err == nil {
			return nil
		}
		if err != database.ErrVersionConflict || attempt >= maxMatrixRetries-1 {
			if err == database.ErrVersionConflict {
				return models.ConflictError("bus seat map changed, please retry")
			}
			return err
		}

		s.logger.WithField("bus_id", bus.ID).Warn("Seat matrix version conflict, retrying")
		fresh, loadErr := s.busStore.GetByID(bus.ID)
		if loadErr != nil {
			return fmt.Errorf("failed to reload bus: %w", loadErr)
		}
		if fresh == nil {
			return models.NotFoundError("assigned bus not found")
		}
		if _, unavailable := selectSeats(fresh.SeatMatrix, seatIDs); len(unavailable) > 0 {
			return models.ConflictError("seats not available: " + strings.Join(unavailable, ", ")).
				WithDetail("seat_ids", unavailable)
		}
		*bus = *fresh
	}
}

// CancelBooking enforces the cancellation window, reverts the booking and
// restores seat availability. State is untouched on any failure.
func (s *BookingService) CancelBooking(bookingID string) (*models.Booking, error) {
	booking, err := s.bookingStore.GetByID(bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if booking == nil {
		return nil, models.NotFoundError("booking not found")
	}
	if booking.Status == models.BookingStatusCancelled {
		return nil, models.ConflictError("booking is already cancelled")
	}

	if time.Until(booking.TravelDate) < s.config.CancellationWindow {
		return nil, models.PolicyViolationError(fmt.Sprintf(
			"cancellation not allowed less than %d hours before departure",
			int(s.config.CancellationWindow.Hours())))
	}

	booking.Status = models.BookingStatusCancelled
	if booking.Payment.Status == models.PaymentStatusCompleted {
		booking.Payment.Status = models.PaymentStatusRefunded
	}

	bus, err := s.resolveBookingBus(booking.RouteID)
	if err != nil {
		return nil, err
	}

	if err := s.persistCancellation(booking, bus); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":     booking.ID,
		"route_id":       booking.RouteID,
		"payment_status": booking.Payment.Status,
	}).Info("Booking cancelled")

	s.sendCancellationNotice(booking)

	return booking, nil
}

// resolveBookingBus finds the active bus for the booking's route. A route
// without an active bus still allows the cancellation; there is just no
// matrix to restore.
func (s *BookingService) resolveBookingBus(routeID string) (*models.Bus, error) {
	route, err := s.routeStore.GetByID(routeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load route: %w", err)
	}
	if route == nil {
		return nil, nil
	}
	assigned, ok := route.ResolveActiveBus()
	if !ok {
		return nil, nil
	}
	bus, err := s.busStore.GetByID(assigned.BusID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bus: %w", err)
	}
	return bus, nil
}

func (s *BookingService) persistCancellation(booking *models.Booking, bus *models.Bus) error {
	// Every seat in the booking's seats list is unblocked, not just one.
	seatIDs := booking.Seats.SeatIDs()

	for attempt := 0; ; attempt++ {
		if bus != nil {
			blockSeats(bus.SeatMatrix, seatIDs, false)
		}

		err := s.bookingStore.CancelWithSeatRelease(booking, bus)
		if err == nil {
			return nil
		}
		if err != database.ErrVersionConflict || attempt >= maxMatrixRetries-1 {
			return err
		}

		s.logger.WithField("bus_id", bus.ID).Warn("Seat matrix version conflict, retrying")
		fresh, loadErr := s.busStore.GetByID(bus.ID)
		if loadErr != nil {
			return fmt.Errorf("failed to reload bus: %w", loadErr)
		}
		if fresh == nil {
			bus = nil
			continue
		}
		*bus = *fresh
	}
}

// CheckAvailability returns the route's seat matrix for a date with blocked
// flags overlaid from the active bookings of that date.
func (s *BookingService) CheckAvailability(routeID string, date string) ([]models.PositionedSeat, *models.SeatMatrixStats, error) {
	travelDate, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, nil, models.BadRequestError("date must be in YYYY-MM-DD format")
	}

	route, err := s.routeStore.GetByID(routeID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load route: %w", err)
	}
	if route == nil {
		return nil, nil, models.NotFoundError("route not found")
	}

	assigned, ok := route.ResolveActiveBus()
	if !ok {
		return nil, nil, models.NotFoundError("no available bus for this route")
	}
	bus, err := s.busStore.GetByID(assigned.BusID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load bus: %w", err)
	}
	if bus == nil {
		return nil, nil, models.NotFoundError("assigned bus not found")
	}

	bookedIDs, err := s.bookingStore.GetActiveSeatIDs(routeID, travelDate)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check existing bookings: %w", err)
	}
	booked := make(map[string]bool, len(bookedIDs))
	for _, id := range bookedIDs {
		booked[id] = true
	}

	seats := bus.SeatMatrix.Flatten()
	for i := range seats {
		if booked[seats[i].Seat.ID] {
			seats[i].Seat.IsBlocked = true
		}
	}

	stats := models.SeatMatrixStats{
		SeatTypes: map[models.SeatType]int{
			models.SeatTypeWindow: 0,
			models.SeatTypeMiddle: 0,
			models.SeatTypeAisle:  0,
		},
	}
	for _, ps := range seats {
		stats.TotalSeats++
		if ps.Seat.IsBlocked {
			stats.BlockedSeats++
		}
		if ps.Seat.IsAisle {
			stats.AisleSeats++
		}
		stats.SeatTypes[ps.Seat.Type]++
	}

	return seats, &stats, nil
}

// CalculateFare resolves the directional fare for a stop pair on a route
func (s *BookingService) CalculateFare(routeID, fromStop, toStop string) (float64, error) {
	route, err := s.routeStore.GetByID(routeID)
	if err != nil {
		return 0, fmt.Errorf("failed to load route: %w", err)
	}
	if route == nil {
		return 0, models.NotFoundError("route not found")
	}
	fare, ok := route.CalculateFare(fromStop, toStop)
	if !ok {
		return 0, models.UnprocessableError(
			fmt.Sprintf("no fare defined between %s and %s", fromStop, toStop))
	}
	return fare, nil
}

// GetBookingDetails returns a single booking with its route name and a QR
// code encoding the booking link. Commuters can only view their own
// bookings; other users' booking ids resolve as not found.
func (s *BookingService) GetBookingDetails(userID, role, bookingID string) (*models.BookingDetailsResponse, error) {
	booking, err := s.bookingStore.GetByID(bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if booking == nil {
		return nil, models.NotFoundError("booking not found")
	}
	if role != string(models.RoleAdmin) && booking.UserID != userID {
		return nil, models.NotFoundError("booking not found")
	}

	routeName := ""
	if route, err := s.routeStore.GetByID(booking.RouteID); err == nil && route != nil {
		routeName = route.Name
	}

	qr, err := s.bookingQRCode(booking.ID)
	if err != nil {
		s.logger.WithField("booking_id", booking.ID).Warnf("Failed to render QR code: %v", err)
	}

	return &models.BookingDetailsResponse{
		Booking:   booking,
		RouteName: routeName,
		QRCode:    qr,
	}, nil
}

// bookingQRCode renders the booking link as a PNG data URL
func (s *BookingService) bookingQRCode(bookingID string) (string, error) {
	link := fmt.Sprintf("%s/bookings/%s", strings.TrimRight(s.config.SiteURL, "/"), bookingID)
	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// GetUserBookings returns a user's bookings, newest first
func (s *BookingService) GetUserBookings(userID string) ([]models.Booking, error) {
	return s.bookingStore.GetByUserID(userID)
}

// GetAllBookings returns every booking (admin view)
func (s *BookingService) GetAllBookings() ([]models.Booking, error) {
	return s.bookingStore.GetAll()
}

// validatePaymentDetails checks the payment method enum and its
// method-specific required fields.
func validatePaymentDetails(details *models.PaymentDetailsRequest) error {
	if details == nil || details.Method == "" {
		return models.BadRequestError("payment details required for this bus category")
	}
	switch models.PaymentMethod(details.Method) {
	case models.PaymentMethodCreditCard, models.PaymentMethodDebitCard:
		if details.CardNumber == "" || details.CardType == "" {
			return models.BadRequestError("invalid card details")
		}
	case models.PaymentMethodUPI:
		if details.UPIID == "" {
			return models.BadRequestError("upi_id is required")
		}
	case models.PaymentMethodNetBanking:
		if details.BankReference == "" {
			return models.BadRequestError("bank_reference is required")
		}
	default:
		return models.BadRequestError("invalid payment method")
	}
	return nil
}

// buildPaymentInfo records the payment metadata. No gateway is called; the
// status is recorded completed immediately.
func buildPaymentInfo(required bool, details *models.PaymentDetailsRequest, totalFare float64) models.PaymentInfo {
	info := models.PaymentInfo{
		Required: required,
		Status:   models.PaymentStatusCompleted,
	}
	if !required {
		return info
	}

	now := time.Now()
	info.Method = models.PaymentMethod(details.Method)
	info.PaidAmount = totalFare
	info.PaidAt = &now

	switch info.Method {
	case models.PaymentMethodCreditCard, models.PaymentMethodDebitCard:
		last4 := details.CardNumber
		if len(last4) > 4 {
			last4 = last4[len(last4)-4:]
		}
		info.CardDetails = &models.CardDetails{
			LastFourDigits: last4,
			CardType:       details.CardType,
		}
	case models.PaymentMethodUPI:
		info.UPIID = details.UPIID
	case models.PaymentMethodNetBanking:
		info.BankReference = details.BankReference
	}
	return info
}

// selectSeats partitions the requested seat ids into selected seats (with
// labels) and unavailable ones (missing from the matrix or blocked).
func selectSeats(matrix models.SeatMatrix, seatIDs []string) (models.BookingSeatList, []string) {
	selected := models.BookingSeatList{}
	unavailable := []string{}
	for _, seatID := range seatIDs {
		ps, found := matrix.FindByID(seatID)
		if !found || ps.Seat.IsBlocked {
			unavailable = append(unavailable, seatID)
			continue
		}
		selected = append(selected, models.BookingSeat{SeatID: seatID, Label: ps.Seat.Label})
	}
	return selected, unavailable
}

// blockSeats flips the blocked flag for the given seat ids on the matrix
func blockSeats(matrix models.SeatMatrix, seatIDs []string, blocked bool) {
	for _, seatID := range seatIDs {
		ps, found := matrix.FindByID(seatID)
		if !found {
			continue
		}
		seat := ps.Seat
		seat.IsBlocked = blocked
		matrix.SetSeat(ps.Row, ps.Column, seat)
	}
}

func intersect(a, b []string) []string {
	set := make(map[string]bool, len(b))
	for _, v := range b {
		set[v] = true
	}
	var out []string
	for _, v := range a {
		if set[v] {
			out = append(out, v)
		}
	}
	return out
}

func (s *BookingService) sendBookingConfirmation(booking *models.Booking, route *models.Route, requiresPayment bool) {
	if s.notifier == nil || s.userStore == nil {
		return
	}
	user, err := s.userStore.GetByID(booking.UserID)
	if err != nil || user == nil {
		s.logger.WithField("user_id", booking.UserID).Warn("Skipping booking confirmation: user not found")
		return
	}

	labels := make([]string, len(booking.Seats))
	for i, seat := range booking.Seats {
		labels[i] = seat.Label
	}
	method := "Not Required"
	if requiresPayment {
		method = string(booking.Payment.Method)
	}

	err = s.notifier.Notify(user.Email, "Ticket Booking Confirmation", "ticket_booking", map[string]string{
		"first_name":     user.FirstName(),
		"route_name":     route.Name,
		"seat_numbers":   strings.Join(labels, ", "),
		"date":           booking.TravelDate.Format("2006-01-02"),
		"price":          fmt.Sprintf("Rs %.2f", booking.TotalFare),
		"payment_status": "Confirmed",
		"payment_method": method,
		"booking_id":     booking.ID,
	})
	if err != nil {
		s.logger.WithError(err).Warn("Failed to send booking confirmation")
	}
}

func (s *BookingService) sendCancellationNotice(booking *models.Booking) {
	if s.notifier == nil || s.userStore == nil {
		return
	}
	user, err := s.userStore.GetByID(booking.UserID)
	if err != nil || user == nil {
		s.logger.WithField("user_id", booking.UserID).Warn("Skipping cancellation notice: user not found")
		return
	}

	refund := "No payment to refund"
	if booking.Payment.Status == models.PaymentStatusRefunded {
		refund = "Refund initiated"
	}
	err = s.notifier.Notify(user.Email, "Booking Cancellation", "booking_cancellation", map[string]string{
		"first_name":    user.FirstName(),
		"booking_id":    booking.ID,
		"refund_status": refund,
	})
	if err != nil {
		s.logger.WithError(err).Warn("Failed to send cancellation notice")
	}
}
