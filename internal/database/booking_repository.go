package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

// activeSeatConstraint is the partial unique index over
// (route_id, travel_date, seat_id) for non-cancelled booking seats. It is
// the storage-level guarantee that two concurrent bookings for the same seat
// cannot both commit.
const activeSeatConstraint = "booking_seats_active_seat_idx"

// Seat rows carry their own two-state status, distinct from the booking
// lifecycle: a row is active while it holds its unique-index slot and
// cancelled once released.
const (
	seatRowActive    = "active"
	seatRowCancelled = "cancelled"
)

// BookingRepository handles database operations for bookings and their
// seat rows
type BookingRepository struct {
	db DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `
	id, user_id, route_id, travel_date, seats, total_fare, payment, status,
	created_at, updated_at
`

// CreateWithSeatBlocks persists the booking, its per-seat conflict rows and
// the updated bus seat matrix in one transaction. A unique violation on the
// active-seat index surfaces as Conflict; a stale bus version surfaces as
// ErrVersionConflict.
func (r *BookingRepository) CreateWithSeatBlocks(booking *models.Booking, bus *models.Bus) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}

	bookingQuery := `
		INSERT INTO bookings (
			id, user_id, route_id, travel_date, seats,
			total_fare, payment, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	err = tx.QueryRowx(
		bookingQuery,
		booking.ID, booking.UserID, booking.RouteID, booking.TravelDate,
		booking.Seats, booking.TotalFare, booking.Payment, booking.Status,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	seatQuery := `
		INSERT INTO booking_seats (
			id, booking_id, route_id, travel_date, seat_id, seat_label, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, seat := range booking.Seats {
		_, err = tx.Exec(
			seatQuery,
			uuid.New().String(), booking.ID, booking.RouteID, booking.TravelDate,
			seat.SeatID, seat.Label, seatRowActive,
		)
		if err != nil {
			if IsUniqueViolation(err, activeSeatConstraint) {
				return models.ConflictError("seat already booked for this date").
					WithDetail("seat_ids", []string{seat.SeatID})
			}
			return fmt.Errorf("failed to create booking seat: %w", err)
		}
	}

	busQuery := `
		UPDATE buses
		SET seat_matrix = $2, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $3
	`
	result, err := tx.Exec(busQuery, bus.ID, bus.SeatMatrix, bus.Version)
	if err != nil {
		return fmt.Errorf("failed to block seats on bus: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrVersionConflict
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	bus.Version++
	return nil
}

// CancelWithSeatRelease flips the booking to cancelled, marks its seat rows
// cancelled (freeing the unique index slots) and unblocks the seats on the
// bus, all in one transaction.
func (r *BookingRepository) CancelWithSeatRelease(booking *models.Booking, bus *models.Bus) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	bookingQuery := `
		UPDATE bookings
		SET status = $2, payment = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err = tx.QueryRowx(
		bookingQuery,
		booking.ID, booking.Status, booking.Payment,
	).Scan(&booking.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.NotFoundError("booking not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}

	seatQuery := `
		UPDATE booking_seats
		SET status = $2
		WHERE booking_id = $1
	`
	if _, err := tx.Exec(seatQuery, booking.ID, seatRowCancelled); err != nil {
		return fmt.Errorf("failed to release booking seats: %w", err)
	}

	if bus != nil {
		busQuery := `
			UPDATE buses
			SET seat_matrix = $2, version = version + 1, updated_at = NOW()
			WHERE id = $1 AND version = $3
		`
		result, err := tx.Exec(busQuery, bus.ID, bus.SeatMatrix, bus.Version)
		if err != nil {
			return fmt.Errorf("failed to unblock seats on bus: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrVersionConflict
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cancellation: %w", err)
	}

	if bus != nil {
		bus.Version++
	}
	return nil
}

// GetByID retrieves a booking by ID. Returns nil when absent.
func (r *BookingRepository) GetByID(bookingID string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking := &models.Booking{}
	err := r.db.Get(booking, query, bookingID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// GetByUserID retrieves all bookings for a user, newest first
func (r *BookingRepository) GetByUserID(userID string) ([]models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	bookings := []models.Booking{}
	if err := r.db.Select(&bookings, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// GetAll retrieves every booking, newest first
func (r *BookingRepository) GetAll() ([]models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		ORDER BY created_at DESC
	`

	bookings := []models.Booking{}
	if err := r.db.Select(&bookings, query); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// GetActiveSeatIDs returns the seat ids held by non-cancelled bookings on a
// route for a travel date. This is the authoritative conflict check; the
// matrix blocked flag is only the fast path.
func (r *BookingRepository) GetActiveSeatIDs(routeID string, travelDate time.Time) ([]string, error) {
	query := `
		SELECT seat_id
		FROM booking_seats
		WHERE route_id = $1
		  AND travel_date = $2
		  AND status != 'cancelled'
	`

	seatIDs := []string{}
	if err := r.db.Select(&seatIDs, query, routeID, travelDate); err != nil {
		return nil, fmt.Errorf("failed to query booked seats: %w", err)
	}
	return seatIDs, nil
}
