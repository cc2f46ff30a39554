package services

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

// BusAdminStore is the bus persistence the fleet management engine
// consumes.
type BusAdminStore interface {
	Create(bus *models.Bus) error
	GetByID(busID string) (*models.Bus, error)
	GetByOperatorID(operatorID string) ([]models.Bus, error)
}

// BusService manages the bus fleet
type BusService struct {
	busStore BusAdminStore
	logger   *logrus.Logger
}

// NewBusService creates a new BusService
func NewBusService(busStore BusAdminStore, logger *logrus.Logger) *BusService {
	return &BusService{busStore: busStore, logger: logger}
}

// Register adds a bus to the operator's fleet. The seat matrix starts
// empty; it is built through the seat layout endpoints.
func (s *BusService) Register(operatorID string, req *models.CreateBusRequest) (*models.Bus, error) {
	if err := req.Validate(); err != nil {
		return nil, models.BadRequestError(err.Error())
	}

	bus := &models.Bus{
		BusNumber:        req.BusNumber,
		OperatorID:       operatorID,
		BusType:          models.BusType(req.BusType),
		SeatingCapacity:  req.SeatingCapacity,
		StandingCapacity: req.StandingCapacity,
		SeatMatrix:       models.SeatMatrix{},
	}
	if err := s.busStore.Create(bus); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"bus_id":      bus.ID,
		"bus_number":  bus.BusNumber,
		"operator_id": operatorID,
		"bus_type":    bus.BusType,
	}).Info("Bus registered")

	return bus, nil
}

// GetByID returns a bus by id
func (s *BusService) GetByID(busID string) (*models.Bus, error) {
	bus, err := s.busStore.GetByID(busID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bus: %w", err)
	}
	if bus == nil {
		return nil, models.NotFoundError("bus not found")
	}
	return bus, nil
}

// GetByOperator returns the operator's fleet
func (s *BusService) GetByOperator(operatorID string) ([]models.Bus, error) {
	return s.busStore.GetByOperatorID(operatorID)
}
