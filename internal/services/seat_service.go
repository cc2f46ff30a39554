package services

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/database"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

// SeatBusStore is the bus persistence the seat layout operations consume.
// Matrix writes carry the version the caller read.
type SeatBusStore interface {
	GetByID(busID string) (*models.Bus, error)
	ReplaceMatrix(busID string, matrix models.SeatMatrix, expectedVersion int) error
}

// SeatService manages bus seat layouts. The bus owns its matrix; every
// write goes through ReplaceMatrix under the optimistic version check.
type SeatService struct {
	busStore SeatBusStore
	logger   *logrus.Logger
}

// NewSeatService creates a new SeatService
func NewSeatService(busStore SeatBusStore, logger *logrus.Logger) *SeatService {
	return &SeatService{busStore: busStore, logger: logger}
}

// CreateMatrix builds and stores a bus's seat layout. A bus that already
// has a matrix must use UpdateMatrix instead.
func (s *SeatService) CreateMatrix(busID string, req *models.CreateSeatMatrixRequest) (models.SeatMatrix, error) {
	bus, err := s.loadBus(busID)
	if err != nil {
		return nil, err
	}
	if len(bus.SeatMatrix) > 0 {
		return nil, models.ConflictError("seat matrix already exists, use the update endpoint to modify it")
	}
	return s.buildAndStore(bus, req)
}

// UpdateMatrix rebuilds a bus's seat layout wholesale
func (s *SeatService) UpdateMatrix(busID string, req *models.CreateSeatMatrixRequest) (models.SeatMatrix, error) {
	bus, err := s.loadBus(busID)
	if err != nil {
		return nil, err
	}
	return s.buildAndStore(bus, req)
}

func (s *SeatService) buildAndStore(bus *models.Bus, req *models.CreateSeatMatrixRequest) (models.SeatMatrix, error) {
	matrix, err := models.BuildSeatMatrix(req.Rows, req.ColumnLayouts, req.DefaultLayout)
	if err != nil {
		return nil, err
	}
	if req.SeatTypes != nil {
		matrix.ApplySeatTypeOverrides(req.SeatTypes)
	}

	if err := s.storeMatrix(bus, matrix); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"bus_id": bus.ID,
		"rows":   req.Rows,
		"seats":  matrix.Stats().TotalSeats,
	}).Info("Seat matrix stored")

	return matrix, nil
}

// GetMatrix returns the stored layout with positions and stats
func (s *SeatService) GetMatrix(busID string) ([]models.PositionedSeat, *models.SeatMatrixStats, error) {
	bus, err := s.loadBus(busID)
	if err != nil {
		return nil, nil, err
	}
	stats := bus.SeatMatrix.Stats()
	return bus.SeatMatrix.Flatten(), &stats, nil
}

// GetSeat returns a single seat by position
func (s *SeatService) GetSeat(busID, row, column string) (*models.PositionedSeat, error) {
	bus, err := s.loadBus(busID)
	if err != nil {
		return nil, err
	}
	seat, err := bus.SeatMatrix.Seat(row, column)
	if err != nil {
		return nil, err
	}
	return &models.PositionedSeat{Row: row, Column: column, Position: row + column, Seat: seat}, nil
}

// PatchSeat updates the blocked/aisle/type fields of one seat in place
func (s *SeatService) PatchSeat(busID, row, column string, req *models.UpdateSeatRequest) (*models.Seat, error) {
	if req.Type != nil && !models.ValidSeatType(models.SeatType(*req.Type)) {
		return nil, models.BadRequestError("invalid seat type: must be window, middle, or aisle")
	}

	bus, err := s.loadBus(busID)
	if err != nil {
		return nil, err
	}
	seat, err := bus.SeatMatrix.Seat(row, column)
	if err != nil {
		return nil, err
	}

	if req.IsBlocked != nil {
		seat.IsBlocked = *req.IsBlocked
	}
	if req.IsAisle != nil {
		seat.IsAisle = *req.IsAisle
	}
	if req.Type != nil {
		seat.Type = models.SeatType(*req.Type)
	}
	if err := bus.SeatMatrix.SetSeat(row, column, seat); err != nil {
		return nil, err
	}

	if err := s.storeMatrix(bus, bus.SeatMatrix); err != nil {
		return nil, err
	}
	return &seat, nil
}

// DeleteMatrix resets the bus to an empty layout
func (s *SeatService) DeleteMatrix(busID string) error {
	bus, err := s.loadBus(busID)
	if err != nil {
		return err
	}
	return s.storeMatrix(bus, models.SeatMatrix{})
}

func (s *SeatService) loadBus(busID string) (*models.Bus, error) {
	bus, err := s.busStore.GetByID(busID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bus: %w", err)
	}
	if bus == nil {
		return nil, models.NotFoundError("bus not found")
	}
	return bus, nil
}

func (s *SeatService) storeMatrix(bus *models.Bus, matrix models.SeatMatrix) error {
	err := s.busStore.ReplaceMatrix(bus.ID, matrix, bus.Version)
	if err == database.ErrVersionConflict {
		return models.ConflictError("bus was modified concurrently, please retry")
	}
	if err != nil {
		return err
	}
	bus.SeatMatrix = matrix
	bus.Version++
	return nil
}
