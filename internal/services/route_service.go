package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

// RouteAdminStore is the route persistence the route management engine
// consumes.
type RouteAdminStore interface {
	Create(route *models.Route) error
	GetByID(routeID string) (*models.Route, error)
	GetAll() ([]models.Route, error)
	Update(route *models.Route) error
	UpdateStatus(routeID string, status models.RouteStatus) error
}

// RouteService manages routes: stops, schedules, fares and bus
// assignments. Discontinuation is the soft delete.
type RouteService struct {
	routeStore RouteAdminStore
	busStore   BusStore
	logger     *logrus.Logger
}

// NewRouteService creates a new RouteService
func NewRouteService(routeStore RouteAdminStore, busStore BusStore, logger *logrus.Logger) *RouteService {
	return &RouteService{routeStore: routeStore, busStore: busStore, logger: logger}
}

// Create registers a route with its stops, schedules and fare table
func (s *RouteService) Create(req *models.CreateRouteRequest) (*models.Route, error) {
	if err := req.Validate(); err != nil {
		return nil, models.BadRequestError(err.Error())
	}

	schedules := make(models.ScheduleList, len(req.Schedules))
	for i, sched := range req.Schedules {
		if sched.ID == "" {
			sched.ID = uuid.New().String()
		}
		schedules[i] = sched
	}

	route := &models.Route{
		Name:          req.Name,
		Status:        models.RouteStatusActive,
		Stops:         req.Stops,
		Schedules:     schedules,
		Fares:         req.Fares,
		AssignedBuses: models.AssignedBusList{},
	}
	if err := s.routeStore.Create(route); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"route_id": route.ID,
		"name":     route.Name,
		"stops":    len(route.Stops),
	}).Info("Route created")

	return route, nil
}

// Update applies a partial update to the route aggregate
func (s *RouteService) Update(routeID string, req *models.UpdateRouteRequest) (*models.Route, error) {
	route, err := s.load(routeID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		route.Name = *req.Name
	}
	if req.Status != nil {
		status := models.RouteStatus(*req.Status)
		switch status {
		case models.RouteStatusActive, models.RouteStatusSuspended, models.RouteStatusDiscontinued:
			route.Status = status
		default:
			return nil, models.BadRequestError("invalid status: must be active, suspended, or discontinued")
		}
	}
	if req.Stops != nil {
		if len(*req.Stops) < 2 {
			return nil, models.BadRequestError("a route needs at least two stops")
		}
		route.Stops = *req.Stops
	}
	if req.Schedules != nil {
		schedules := make(models.ScheduleList, len(*req.Schedules))
		for i, sched := range *req.Schedules {
			if sched.ID == "" {
				sched.ID = uuid.New().String()
			}
			schedules[i] = sched
		}
		route.Schedules = schedules
	}
	if req.Fares != nil {
		for _, f := range *req.Fares {
			if f.Amount <= 0 {
				return nil, models.BadRequestError("fare amount must be greater than 0")
			}
		}
		route.Fares = *req.Fares
	}

	if err := s.routeStore.Update(route); err != nil {
		return nil, err
	}
	return route, nil
}

// Discontinue soft-deletes a route. Existing bookings keep their route
// reference; the route just stops accepting new ones.
func (s *RouteService) Discontinue(routeID string) error {
	if err := s.routeStore.UpdateStatus(routeID, models.RouteStatusDiscontinued); err != nil {
		return err
	}
	s.logger.WithField("route_id", routeID).Info("Route discontinued")
	return nil
}

// AssignBus binds an existing bus to a schedule slot on the route
func (s *RouteService) AssignBus(routeID string, req *models.AssignBusRequest) (*models.Route, error) {
	route, err := s.load(routeID)
	if err != nil {
		return nil, err
	}

	bus, err := s.busStore.GetByID(req.BusID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bus: %w", err)
	}
	if bus == nil {
		return nil, models.NotFoundError("bus not found")
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	if err := route.AssignBus(req.BusID, req.ScheduleID, isActive, time.Now()); err != nil {
		return nil, err
	}

	if err := s.routeStore.Update(route); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"route_id":    route.ID,
		"bus_id":      req.BusID,
		"schedule_id": req.ScheduleID,
	}).Info("Bus assigned to route")

	return route, nil
}

// GetByID returns a route by id
func (s *RouteService) GetByID(routeID string) (*models.Route, error) {
	return s.load(routeID)
}

// GetAll returns every non-discontinued route
func (s *RouteService) GetAll() ([]models.Route, error) {
	return s.routeStore.GetAll()
}

func (s *RouteService) load(routeID string) (*models.Route, error) {
	route, err := s.routeStore.GetByID(routeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load route: %w", err)
	}
	if route == nil {
		return nil, models.NotFoundError("route not found")
	}
	return route, nil
}
