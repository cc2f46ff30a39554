package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

// BusRepository handles database operations for the buses table
type BusRepository struct {
	db DB
}

// NewBusRepository creates a new BusRepository
func NewBusRepository(db DB) *BusRepository {
	return &BusRepository{db: db}
}

// Create inserts a new bus
func (r *BusRepository) Create(bus *models.Bus) error {
	query := `
		INSERT INTO buses (
			id, bus_number, operator_id, bus_type,
			seating_capacity, standing_capacity, seat_matrix, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 1)
		RETURNING version, created_at, updated_at
	`

	if bus.ID == "" {
		bus.ID = uuid.New().String()
	}
	if bus.SeatMatrix == nil {
		bus.SeatMatrix = models.SeatMatrix{}
	}

	err := r.db.QueryRow(
		query,
		bus.ID, bus.BusNumber, bus.OperatorID, bus.BusType,
		bus.SeatingCapacity, bus.StandingCapacity, bus.SeatMatrix,
	).Scan(&bus.Version, &bus.CreatedAt, &bus.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err, "") {
			return models.ConflictError("bus number is already registered")
		}
		return fmt.Errorf("failed to create bus: %w", err)
	}

	return nil
}

// GetByID retrieves a bus by ID. Returns nil when absent.
func (r *BusRepository) GetByID(busID string) (*models.Bus, error) {
	query := `
		SELECT id, bus_number, operator_id, bus_type,
		       seating_capacity, standing_capacity, seat_matrix, version,
		       created_at, updated_at
		FROM buses
		WHERE id = $1
	`

	bus := &models.Bus{}
	err := r.db.Get(bus, query, busID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bus: %w", err)
	}
	return bus, nil
}

// GetByOperatorID retrieves all buses registered by an operator
func (r *BusRepository) GetByOperatorID(operatorID string) ([]models.Bus, error) {
	query := `
		SELECT id, bus_number, operator_id, bus_type,
		       seating_capacity, standing_capacity, seat_matrix, version,
		       created_at, updated_at
		FROM buses
		WHERE operator_id = $1
		ORDER BY created_at DESC
	`

	buses := []models.Bus{}
	if err := r.db.Select(&buses, query, operatorID); err != nil {
		return nil, fmt.Errorf("failed to list buses: %w", err)
	}
	return buses, nil
}

// ReplaceMatrix writes the bus's seat matrix wholesale, guarded by the
// version the caller read. ErrVersionConflict means a concurrent writer got
// there first; reload and retry.
func (r *BusRepository) ReplaceMatrix(busID string, matrix models.SeatMatrix, expectedVersion int) error {
	query := `
		UPDATE buses
		SET seat_matrix = $2, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $3
	`

	result, err := r.db.Exec(query, busID, matrix, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to replace seat matrix: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrVersionConflict
	}
	return nil
}
