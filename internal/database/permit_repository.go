package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

// PermitRepository handles database operations for the permits table
type PermitRepository struct {
	db DB
}

// NewPermitRepository creates a new PermitRepository
func NewPermitRepository(db DB) *PermitRepository {
	return &PermitRepository{db: db}
}

const permitColumns = `
	id, permit_number, issue_date, expiry_date, route_id, bus_id, operator_id,
	status, is_deleted, deleted_at, deleted_by, created_at, updated_at
`

// Create inserts a new permit
func (r *PermitRepository) Create(permit *models.Permit) error {
	query := `
		INSERT INTO permits (
			id, permit_number, issue_date, expiry_date,
			route_id, bus_id, operator_id, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	if permit.ID == "" {
		permit.ID = uuid.New().String()
	}
	if permit.Status == "" {
		permit.Status = models.PermitStatusActive
	}

	err := r.db.QueryRow(
		query,
		permit.ID, permit.PermitNumber, permit.IssueDate, permit.ExpiryDate,
		permit.RouteID, permit.BusID, permit.OperatorID, permit.Status,
	).Scan(&permit.CreatedAt, &permit.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err, "") {
			return models.ConflictError("permit number already exists")
		}
		return fmt.Errorf("failed to create permit: %w", err)
	}
	return nil
}

// GetByID retrieves a permit by ID. Returns nil when absent.
func (r *PermitRepository) GetByID(permitID string) (*models.Permit, error) {
	query := `SELECT ` + permitColumns + ` FROM permits WHERE id = $1`

	permit := &models.Permit{}
	err := r.db.Get(permit, query, permitID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get permit: %w", err)
	}
	return permit, nil
}

// GetByPermitNumber retrieves a permit by its unique number
func (r *PermitRepository) GetByPermitNumber(permitNumber string) (*models.Permit, error) {
	query := `SELECT ` + permitColumns + ` FROM permits WHERE permit_number = $1`

	permit := &models.Permit{}
	err := r.db.Get(permit, query, permitNumber)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get permit: %w", err)
	}
	return permit, nil
}

// GetActiveByBusID retrieves the valid permits currently held by a bus.
// Used to enforce the one-active-permit rule at creation time.
func (r *PermitRepository) GetActiveByBusID(busID string, now time.Time) ([]models.Permit, error) {
	query := `
		SELECT ` + permitColumns + `
		FROM permits
		WHERE bus_id = $1
		  AND status = 'active'
		  AND expiry_date > $2
		  AND is_deleted = FALSE
	`

	permits := []models.Permit{}
	if err := r.db.Select(&permits, query, busID, now); err != nil {
		return nil, fmt.Errorf("failed to query active permits: %w", err)
	}
	return permits, nil
}

// GetAll retrieves all permits, soft-deleted ones included (admin view)
func (r *PermitRepository) GetAll() ([]models.Permit, error) {
	query := `SELECT ` + permitColumns + ` FROM permits ORDER BY created_at DESC`

	permits := []models.Permit{}
	if err := r.db.Select(&permits, query); err != nil {
		return nil, fmt.Errorf("failed to list permits: %w", err)
	}
	return permits, nil
}

// Update rewrites the mutable permit fields
func (r *PermitRepository) Update(permit *models.Permit) error {
	query := `
		UPDATE permits
		SET expiry_date = $2, status = $3, is_deleted = $4,
		    deleted_at = $5, deleted_by = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRow(
		query,
		permit.ID, permit.ExpiryDate, permit.Status,
		permit.IsDeleted, permit.DeletedAt, permit.DeletedBy,
	).Scan(&permit.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.NotFoundError("permit not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update permit: %w", err)
	}
	return nil
}
