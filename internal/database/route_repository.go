package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

// RouteRepository handles database operations for the routes table
type RouteRepository struct {
	db DB
}

// NewRouteRepository creates a new RouteRepository
func NewRouteRepository(db DB) *RouteRepository {
	return &RouteRepository{db: db}
}

const routeColumns = `
	id, name, status, stops, schedules, fares, assigned_buses,
	created_at, updated_at
`

// Create inserts a new route
func (r *RouteRepository) Create(route *models.Route) error {
	query := `
		INSERT INTO routes (
			id, name, status, stops, schedules, fares, assigned_buses
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	if route.ID == "" {
		route.ID = uuid.New().String()
	}
	if route.Status == "" {
		route.Status = models.RouteStatusActive
	}

	err := r.db.QueryRow(
		query,
		route.ID, route.Name, route.Status,
		route.Stops, route.Schedules, route.Fares, route.AssignedBuses,
	).Scan(&route.CreatedAt, &route.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create route: %w", err)
	}
	return nil
}

// GetByID retrieves a route by ID. Returns nil when absent.
func (r *RouteRepository) GetByID(routeID string) (*models.Route, error) {
	query := `SELECT ` + routeColumns + ` FROM routes WHERE id = $1`

	route := &models.Route{}
	err := r.db.Get(route, query, routeID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get route: %w", err)
	}
	return route, nil
}

// GetAll retrieves every route that has not been discontinued
func (r *RouteRepository) GetAll() ([]models.Route, error) {
	query := `
		SELECT ` + routeColumns + `
		FROM routes
		WHERE status != 'discontinued'
		ORDER BY name
	`

	routes := []models.Route{}
	if err := r.db.Select(&routes, query); err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	return routes, nil
}

// Update rewrites the route aggregate in place (last write wins at the
// document level, per the storage model).
func (r *RouteRepository) Update(route *models.Route) error {
	query := `
		UPDATE routes
		SET name = $2, status = $3, stops = $4, schedules = $5,
		    fares = $6, assigned_buses = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRow(
		query,
		route.ID, route.Name, route.Status,
		route.Stops, route.Schedules, route.Fares, route.AssignedBuses,
	).Scan(&route.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.NotFoundError("route not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update route: %w", err)
	}
	return nil
}

// UpdateStatus transitions the route status. Discontinuation is the soft
// delete; routes are never removed.
func (r *RouteRepository) UpdateStatus(routeID string, status models.RouteStatus) error {
	query := `
		UPDATE routes
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(query, routeID, status)
	if err != nil {
		return fmt.Errorf("failed to update route status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.NotFoundError("route not found")
	}
	return nil
}
