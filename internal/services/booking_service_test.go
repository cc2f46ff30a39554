package services

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarttransit/bus-booking-backend/internal/database"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

type fakeRouteStore struct {
	routes map[string]*models.Route
}

func (f *fakeRouteStore) GetByID(routeID string) (*models.Route, error) {
	return f.routes[routeID], nil
}

type fakeBusStore struct {
	buses map[string]*models.Bus
}

// GetByID hands out a deep copy, like a real repository read. The engine
// mutates the matrix it holds before the store write; a failed write must
// not leak those mutations back into storage.
func (f *fakeBusStore) GetByID(busID string) (*models.Bus, error) {
	return cloneBus(f.buses[busID]), nil
}

func cloneBus(b *models.Bus) *models.Bus {
	if b == nil {
		return nil
	}
	clone := *b
	matrix := make(models.SeatMatrix, len(b.SeatMatrix))
	for row, cols := range b.SeatMatrix {
		rowSeats := make(map[string]models.Seat, len(cols))
		for col, seat := range cols {
			rowSeats[col] = seat
		}
		matrix[row] = rowSeats
	}
	clone.SeatMatrix = matrix
	return &clone
}

type fakeBookingStore struct {
	bookings      map[string]*models.Booking
	activeSeatIDs []string
	busStore      *fakeBusStore

	// createErrs is consumed one per CreateWithSeatBlocks call, letting a
	// test simulate a version conflict followed by success.
	createErrs []error
	created    []*models.Booking
	cancelled  []*models.Booking
}

func newFakeBookingStore(busStore *fakeBusStore) *fakeBookingStore {
	return &fakeBookingStore{bookings: map[string]*models.Booking{}, busStore: busStore}
}

func (f *fakeBookingStore) GetByID(bookingID string) (*models.Booking, error) {
	return f.bookings[bookingID], nil
}

func (f *fakeBookingStore) GetByUserID(userID string) ([]models.Booking, error) {
	var out []models.Booking
	for _, b := range f.bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBookingStore) GetAll() ([]models.Booking, error) {
	var out []models.Booking
	for _, b := range f.bookings {
		out = append(out, *b)
	}
	return out, nil
}

func (f *fakeBookingStore) GetActiveSeatIDs(routeID string, travelDate time.Time) ([]string, error) {
	return f.activeSeatIDs, nil
}

func (f *fakeBookingStore) CreateWithSeatBlocks(booking *models.Booking, bus *models.Bus) error {
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return err
		}
	}
	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}
	f.bookings[booking.ID] = booking
	f.created = append(f.created, booking)
	bus.Version++
	f.busStore.buses[bus.ID] = cloneBus(bus)
	return nil
}

func (f *fakeBookingStore) CancelWithSeatRelease(booking *models.Booking, bus *models.Bus) error {
	f.bookings[booking.ID] = booking
	f.cancelled = append(f.cancelled, booking)
	if bus != nil {
		bus.Version++
		f.busStore.buses[bus.ID] = cloneBus(bus)
	}
	return nil
}

type fakeUserStore struct {
	users map[string]*models.User
}

func (f *fakeUserStore) GetByID(userID string) (*models.User, error) {
	return f.users[userID], nil
}

type sentMail struct {
	Recipient  string
	Subject    string
	TemplateID string
	Variables  map[string]string
}

type fakeNotifier struct {
	sent []sentMail
}

func (f *fakeNotifier) Notify(recipient, subject, templateID string, variables map[string]string) error {
	f.sent = append(f.sent, sentMail{recipient, subject, templateID, variables})
	return nil
}

type bookingFixture struct {
	service      *BookingService
	routeStore   *fakeRouteStore
	busStore     *fakeBusStore
	bookingStore *fakeBookingStore
	notifier     *fakeNotifier

	route      *models.Route
	bus        *models.Bus
	travelDate string
	seatA      string // seat id of 1A
	seatB      string // seat id of 1B
}

func allWeekdays() []string {
	return []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
}

func newBookingFixture(t *testing.T, busType models.BusType) *bookingFixture {
	t.Helper()

	matrix, err := models.BuildSeatMatrix(2, nil, []string{"A", "B"})
	require.NoError(t, err)
	seatA, err := matrix.Seat("1", "A")
	require.NoError(t, err)
	seatB, err := matrix.Seat("1", "B")
	require.NoError(t, err)

	bus := &models.Bus{
		ID:         "bus-1",
		BusNumber:  "NA-1234",
		BusType:    busType,
		SeatMatrix: matrix,
		Version:    1,
	}

	route := &models.Route{
		ID:     "route-1",
		Name:   "Colombo - Kandy",
		Status: models.RouteStatusActive,
		Stops:  models.StopList{{Name: "Colombo"}, {Name: "Kandy"}},
		Schedules: models.ScheduleList{
			{ID: "s1", DepartureTime: "06:30", OperatingDays: allWeekdays(), IsActive: true},
		},
		Fares: models.FareList{
			{FromStop: "Colombo", ToStop: "Kandy", Amount: 25},
		},
		AssignedBuses: models.AssignedBusList{
			{BusID: "bus-1", ScheduleID: "s1", IsActive: true, AssignedAt: time.Now().AddDate(0, -1, 0)},
		},
	}

	routeStore := &fakeRouteStore{routes: map[string]*models.Route{"route-1": route}}
	busStore := &fakeBusStore{buses: map[string]*models.Bus{"bus-1": bus}}
	bookingStore := newFakeBookingStore(busStore)
	userStore := &fakeUserStore{users: map[string]*models.User{
		"user-1": {ID: "user-1", Name: "Nimal Perera", Email: "nimal@example.com", Role: models.RoleCommuter},
	}}
	notifier := &fakeNotifier{}

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	service := NewBookingService(routeStore, busStore, bookingStore, userStore, notifier, DefaultBookingConfig(), logger)

	return &bookingFixture{
		service:      service,
		routeStore:   routeStore,
		busStore:     busStore,
		bookingStore: bookingStore,
		notifier:     notifier,
		route:        route,
		bus:          bus,
		travelDate:   time.Now().AddDate(0, 0, 7).Format("2006-01-02"),
		seatA:        seatA.ID,
		seatB:        seatB.ID,
	}
}

func (fx *bookingFixture) request(seatIDs ...string) *models.BookSeatsRequest {
	return &models.BookSeatsRequest{
		RouteID:  "route-1",
		Date:     fx.travelDate,
		SeatIDs:  seatIDs,
		FromStop: "Colombo",
		ToStop:   "Kandy",
	}
}

func assertKind(t *testing.T, err error, kind models.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok, "expected AppError, got %T: %v", err, err)
	assert.Equal(t, kind, appErr.Kind)
}

func TestBookSeatsSuccess(t *testing.T) {
	fx := newBookingFixture(t, models.BusTypeNormal)

	result, err := fx.service.BookSeats("user-1", fx.request(fx.seatA, fx.seatB))
	require.NoError(t, err)

	assert.NotEmpty(t, result.BookingID)
	assert.Equal(t, 50.0, result.TotalFare)
	assert.Equal(t, "confirmed", result.Status)

	require.Len(t, fx.bookingStore.created, 1)
	booking := fx.bookingStore.created[0]
	assert.Equal(t, "user-1", booking.UserID)
	assert.Len(t, booking.Seats, 2)
	assert.Equal(t, "1A", booking.Seats[0].Label)
	assert.False(t, booking.Payment.Required)
	assert.Equal(t, models.PaymentStatusCompleted, booking.Payment.Status)

	// Seats are blocked on the stored bus matrix
	stored := fx.busStore.buses["bus-1"]
	seat, err := stored.SeatMatrix.Seat("1", "A")
	require.NoError(t, err)
	assert.True(t, seat.IsBlocked)
	assert.Equal(t, 2, stored.Version)

	// Confirmation email went out
	require.Len(t, fx.notifier.sent, 1)
	mail := fx.notifier.sent[0]
	assert.Equal(t, "nimal@example.com", mail.Recipient)
	assert.Equal(t, "ticket_booking", mail.TemplateID)
	assert.Equal(t, "Nimal", mail.Variables["first_name"])
	assert.Equal(t, "1A, 1B", mail.Variables["seat_numbers"])
	assert.Equal(t, "Rs 50.00", mail.Variables["price"])
}

func TestBookSeatsMissingFields(t *testing.T) {
	fx := newBookingFixture(t, models.BusTypeNormal)

	req := fx.request(fx.seatA)
	req.FromStop = ""
	_, err := fx.service.BookSeats("user-1", req)
	assertKind(t, err, models.ErrBadRequest)

	req = fx.request()
	_, err = fx.service.BookSeats("user-1", req)
	assertKind(t, err, models.ErrBadRequest)
}

func TestBookSeatsBadDate(t *testing.T) {
	fx := newBookingFixture(t, models.BusTypeNormal)

	req := fx.request(fx.seatA)
	req.Date = "28-08-2026"
	_, err := fx.service.BookSeats("user-1", req)
	assertKind(t, err, models.ErrBadRequest)
}

func TestBookSeatsRouteNotFound(t *testing.T) {
	fx := newBookingFixture(t, models.BusTypeNormal)

	req := fx.request(fx.seatA)
	req.RouteID = "missing"
	_, err := fx.service.BookSeats("user-1", req)
	assertKind(t, err, models.ErrNotFound)
}

func TestBookSeatsRouteInactive(t *testing.T) {
	fx := newBookingFixture(t, models.BusTypeNormal)
	fx.route.Status = models.RouteStatusSuspended

	_, err := fx.service.BookSeats("user-1", fx.request(fx.seatA))
	assertKind(t, err, models.ErrPolicyViolation)
}

func TestBookSeatsNoScheduleOnDay(t *testing.T) {
	fx := newBookingFixture(t, models.BusTypeNormal)
	fx.route.Schedules[0].IsActive = false

	_, err := fx.service.BookSeats("user-1", fx.request(fx.seatA))
	assertKind(t, err, models.ErrPolicyViolation)
}

func TestBookSeatsNoActiveBus(t *testing.T) {
	fx := newBookingFixture(t, models.BusTypeNormal)
	fx.route.AssignedBuses[0].IsActive = false

	_, err := fx.service.BookSeats("user-1", fx.request(fx.seatA))
	assertKind(t, err, models.ErrNotFound)
}

func TestBookSeatsLuxuryRequiresPayment(t *testing.T) {
	fx := newBookingFixture(t, models.BusTypeLuxury)

	// No payment details at all
	_, err := fx.service.BookSeats("user-1", fx.request(fx.seatA))
	assertKind(t, err, models.ErrBadRequest)

	// Card payment without card number
	req := fx.request(fx.seatA)
	req.PaymentDetails = &models.PaymentDetailsRequest{Method: "credit_card"}
	_, err = fx.service.BookSeats("user-1", req)
	assertKind(t, err, models.ErrBadRequest)

	// Valid card payment records the masked details
	req = fx.request(fx.seatA)
	req.PaymentDetails = &models.PaymentDetailsRequest{
		Method:     "credit_card",
		CardNumber: "4111111111111111",
		CardType:   "visa",
	}
	result, err := fx.service.BookSeats("user-1", req)
	require.NoError(t, err)
	assert.Equal(t, 25.0, result.TotalFare)

	booking := fx.bookingStore.created[0]
	assert.True(t, booking.Payment.Required)
	assert.Equal(t, models.PaymentMethodCreditCard, booking.Payment.Method)
	require.NotNil(t, booking.Payment.CardDetails)
	assert.Equal(t, "1111", booking.Payment.CardDetails.LastFourDigits)
	assert.Equal(t, 25.0, booking.Payment.PaidAmount)
}

func TestBookSeatsUPIPayment(t *testing.T) {
	fx := newBookingFixture(t, models.BusTypeSemiLuxury)

	req := fx.request(fx.seatA)
	req.PaymentDetails = &models.PaymentDetailsRequest{Method: "upi"}
	_, err := fx.service.BookSeats("user-1", req)
	assertKind(t, err, models.ErrBadRequest)

	req.PaymentDetails.UPIID = "nimal@upi"
	_, err = fx.service.BookSeats("user-1", req)
	require.NoError(t, err)
	assert.Equal(t, "nimal@upi", fx.bookingStore.created[0].Payment.UPIID)
}

func TestBookSeatsUnavailableSeat(t *testing.T) {
	fx := newBookingFixture(t, models.BusTypeNormal)

	seat, err := fx.bus.SeatMatrix.Seat("1", "A")
	require.NoError(t, err)
	seat.IsBlocked = true
	require.NoError(t, fx.bus.SeatMatrix.SetSeat("1", "A", seat))

	_, err = fx.service.BookSeats("user-1", fx.request(fx.seatA, fx.seatB))
	assertKind(t, err, models.ErrConflict)
	assert.Empty(t, fx.bookingStore.created)
}

func TestBookSeatsUnknownSeatID(t *testing.T) {
	fx := newBookingFixture(t, models.BusTypeNormal)

	_, err := fx.service.BookSeats("user-1", fx.request("no-such-seat"))
	assertKind(t, err, models.ErrConflict)
}

func TestBookSeatsAlreadyBookedForDate(t *testing.T) {
	fx := newBookingFixture(t, models.BusTypeNormal)
	fx.bookingStore.activeSeatIDs = []string{fx.seatA}

	_, err := fx.service.BookSeats("user-1", fx.request(fx.seatA))
	assertKind(t, err, models.ErrConflict)
}

func TestBookSeatsNoFareForPair(t *testing.T) {
	fx := newBookingFixture(t, models.BusTypeNormal)

	req := fx.request(fx.seatA)
	req.FromStop = "Kandy"
	req.ToStop = "Colombo"
	_, err := fx.service.BookSeats("user-1", req)
	assertKind(t, err, models.ErrUnprocessable)
}

func TestBookSeatsRetriesOnVersionConflict(t *testing.T) {
	fx := newBookingFixture(t, models.BusTypeNormal)
	fx.bookingStore.createErrs = []error{database.ErrVersionConflict}

	result, err := fx.service.BookSeats("user-1", fx.request(fx.seatA))
	require.NoError(t, err)
	assert.NotEmpty(t, result.BookingID)
	require.Len(t, fx.bookingStore.created, 1)
}

func TestBookSeatsGivesUpAfterRepeatedConflicts(t *testing.T) {
	fx := newBookingFixture(t, models.BusTypeNormal)
	fx.bookingStore.createErrs = []error{
		database.ErrVersionConflict,
		database.ErrVersionConflict,
		database.ErrVersionConflict,
	}

	_, err := fx.service.BookSeats("user-1", fx.request(fx.seatA))
	assertKind(t, err, models.ErrConflict)
}

func TestCancelBooking(t *testing.T) {
	fx := newBookingFixture(t, models.BusTypeLuxury)

	req := fx.request(fx.seatA, fx.seatB)
	req.PaymentDetails = &models.PaymentDetailsRequest{
		Method:     "credit_card",
		CardNumber: "4111111111111111",
		CardType:   "visa",
	}
	result, err := fx.service.BookSeats("user-1", req)
	require.NoError(t, err)

	cancelled, err := fx.service.CancelBooking(result.BookingID)
	require.NoError(t, err)

	assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)
	assert.Equal(t, models.PaymentStatusRefunded, cancelled.Payment.Status)

	// Every booked seat is released on the stored bus matrix
	stored := fx.busStore.buses["bus-1"]
	for _, pos := range []string{"A", "B"} {
		seat, err := stored.SeatMatrix.Seat("1", pos)
		require.NoError(t, err)
		assert.False(t, seat.IsBlocked)
	}

	// Confirmation then cancellation mail
	require.Len(t, fx.notifier.sent, 2)
	assert.Equal(t, "booking_cancellation", fx.notifier.sent[1].TemplateID)
	assert.Equal(t, "Refund initiated", fx.notifier.sent[1].Variables["refund_status"])
}

func TestCancelBookingNotFound(t *testing.T) {
	fx := newBookingFixture(t, models.BusTypeNormal)

	_, err := fx.service.CancelBooking("missing")
	assertKind(t, err, models.ErrNotFound)
}

func TestCancelBookingAlreadyCancelled(t *testing.T) {
	fx := newBookingFixture(t, models.BusTypeNormal)

	result, err := fx.service.BookSeats("user-1", fx.request(fx.seatA))
	require.NoError(t, err)

	_, err = fx.service.CancelBooking(result.BookingID)
	require.NoError(t, err)

	_, err = fx.service.CancelBooking(result.BookingID)
	assertKind(t, err, models.ErrConflict)
}

func TestCancelBookingInsideWindow(t *testing.T) {
	fx := newBookingFixture(t, models.BusTypeNormal)

	result, err := fx.service.BookSeats("user-1", fx.request(fx.seatA))
	require.NoError(t, err)

	// Pull the travel date inside the 24h window
	booking := fx.bookingStore.bookings[result.BookingID]
	booking.TravelDate = time.Now().Add(6 * time.Hour)

	_, err = fx.service.CancelBooking(result.BookingID)
	assertKind(t, err, models.ErrPolicyViolation)

	// State unchanged
	assert.Equal(t, models.BookingStatusConfirmed, booking.Status)
	assert.Empty(t, fx.bookingStore.cancelled)
	seat, err := fx.busStore.buses["bus-1"].SeatMatrix.Seat("1", "A")
	require.NoError(t, err)
	assert.True(t, seat.IsBlocked)
}

func TestCheckAvailability(t *testing.T) {
	fx := newBookingFixture(t, models.BusTypeNormal)
	fx.bookingStore.activeSeatIDs = []string{fx.seatB}

	seats, stats, err := fx.service.CheckAvailability("route-1", fx.travelDate)
	require.NoError(t, err)

	require.Len(t, seats, 4)
	assert.Equal(t, 4, stats.TotalSeats)
	assert.Equal(t, 1, stats.BlockedSeats)

	for _, ps := range seats {
		if ps.Seat.ID == fx.seatB {
			assert.True(t, ps.Seat.IsBlocked)
		} else {
			assert.False(t, ps.Seat.IsBlocked)
		}
	}
}

func TestCheckAvailabilityBadDate(t *testing.T) {
	fx := newBookingFixture(t, models.BusTypeNormal)

	_, _, err := fx.service.CheckAvailability("route-1", "not-a-date")
	assertKind(t, err, models.ErrBadRequest)
}

func TestCalculateFare(t *testing.T) {
	fx := newBookingFixture(t, models.BusTypeNormal)

	fare, err := fx.service.CalculateFare("route-1", "Colombo", "Kandy")
	require.NoError(t, err)
	assert.Equal(t, 25.0, fare)

	_, err = fx.service.CalculateFare("route-1", "Kandy", "Colombo")
	assertKind(t, err, models.ErrUnprocessable)

	_, err = fx.service.CalculateFare("missing", "Colombo", "Kandy")
	assertKind(t, err, models.ErrNotFound)
}

func TestGetBookingDetails(t *testing.T) {
	fx := newBookingFixture(t, models.BusTypeNormal)

	result, err := fx.service.BookSeats("user-1", fx.request(fx.seatA))
	require.NoError(t, err)

	t.Run("Owner", func(t *testing.T) {
		details, err := fx.service.GetBookingDetails("user-1", "commuter", result.BookingID)
		require.NoError(t, err)
		assert.Equal(t, result.BookingID, details.Booking.ID)
		assert.Equal(t, "Colombo - Kandy", details.RouteName)
		assert.True(t, strings.HasPrefix(details.QRCode, "data:image/png;base64,"))
	})

	t.Run("Admin", func(t *testing.T) {
		details, err := fx.service.GetBookingDetails("admin-1", "admin", result.BookingID)
		require.NoError(t, err)
		assert.Equal(t, result.BookingID, details.Booking.ID)
	})

	t.Run("Other Commuter", func(t *testing.T) {
		_, err := fx.service.GetBookingDetails("user-2", "commuter", result.BookingID)
		assertKind(t, err, models.ErrNotFound)
	})

	t.Run("Unknown Booking", func(t *testing.T) {
		_, err := fx.service.GetBookingDetails("user-1", "commuter", "missing")
		assertKind(t, err, models.ErrNotFound)
	})
}
