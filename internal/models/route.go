package models

import (
	"errors"
	"sort"
	"time"
)

// RouteStatus represents the lifecycle state of a route. Routes are never
// hard-deleted; discontinuation is a status transition.
type RouteStatus string

const (
	RouteStatusActive       RouteStatus = "active"
	RouteStatusSuspended    RouteStatus = "suspended"
	RouteStatusDiscontinued RouteStatus = "discontinued"
)

// Stop is a named point on a route
type Stop struct {
	Name              string  `json:"name"`
	Latitude          float64 `json:"latitude"`
	Longitude         float64 `json:"longitude"`
	DistanceFromStart float64 `json:"distance_from_start"`
	EstimatedTime     int     `json:"estimated_time_minutes"`
}

// Schedule is a recurring departure time and the weekdays it operates on
type Schedule struct {
	ID            string     `json:"id"`
	DepartureTime string     `json:"departure_time"` // HH:MM
	OperatingDays []string   `json:"operating_days"` // weekday names
	IsActive      bool       `json:"is_active"`
	SeasonStart   *time.Time `json:"season_start,omitempty"`
	SeasonEnd     *time.Time `json:"season_end,omitempty"`
}

// Fare prices a directional stop pair. FromStop to ToStop only; the reverse
// direction needs its own entry.
type Fare struct {
	FromStop string  `json:"from_stop"`
	ToStop   string  `json:"to_stop"`
	Amount   float64 `json:"amount"`
}

// AssignedBus binds a bus to a schedule slot on a route
type AssignedBus struct {
	BusID      string    `json:"bus_id"`
	ScheduleID string    `json:"schedule_id"`
	IsActive   bool      `json:"is_active"`
	AssignedAt time.Time `json:"assigned_at"`
}

// StopList is stored as a JSONB column
type StopList []Stop

// ScheduleList is stored as a JSONB column
type ScheduleList []Schedule

// FareList is stored as a JSONB column
type FareList []Fare

// AssignedBusList is stored as a JSONB column
type AssignedBusList []AssignedBus

// Route represents a bus route with its stops, schedules, fare table and
// bus assignments.
type Route struct {
	ID            string          `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	Status        RouteStatus     `json:"status" db:"status"`
	Stops         StopList        `json:"stops" db:"stops"`
	Schedules     ScheduleList    `json:"schedules" db:"schedules"`
	Fares         FareList        `json:"fares" db:"fares"`
	AssignedBuses AssignedBusList `json:"assigned_buses" db:"assigned_buses"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// ActiveScheduleForDate returns the first active schedule operating on the
// weekday of date. Seasonal schedules must also cover the date.
func (r *Route) ActiveScheduleForDate(date time.Time) (*Schedule, bool) {
	weekday := date.Weekday().String()
	for i := range r.Schedules {
		s := &r.Schedules[i]
		if !s.IsActive {
			continue
		}
		if s.SeasonStart != nil && date.Before(*s.SeasonStart) {
			continue
		}
		if s.SeasonEnd != nil && date.After(*s.SeasonEnd) {
			continue
		}
		for _, day := range s.OperatingDays {
			if day == weekday {
				return s, true
			}
		}
	}
	return nil, false
}

// CalculateFare looks up the directional fare between two stops. The lookup
// is not symmetric; ok is false when no fare is defined for the pair.
func (r *Route) CalculateFare(fromStop, toStop string) (float64, bool) {
	for _, fare := range r.Fares {
		if fare.FromStop == fromStop && fare.ToStop == toStop {
			return fare.Amount, true
		}
	}
	return 0, false
}

// ResolveActiveBus returns the active bus assignment with the earliest
// assignment time, ties broken by bus id. Deterministic regardless of the
// stored order.
func (r *Route) ResolveActiveBus() (*AssignedBus, bool) {
	active := make([]AssignedBus, 0, len(r.AssignedBuses))
	for _, ab := range r.AssignedBuses {
		if ab.IsActive {
			active = append(active, ab)
		}
	}
	if len(active) == 0 {
		return nil, false
	}
	sort.Slice(active, func(i, j int) bool {
		if !active[i].AssignedAt.Equal(active[j].AssignedAt) {
			return active[i].AssignedAt.Before(active[j].AssignedAt)
		}
		return active[i].BusID < active[j].BusID
	})
	return &active[0], true
}

// AssignBus adds a bus assignment. A schedule slot can hold only one
// assignment, and a bus can be assigned to a route only once.
func (r *Route) AssignBus(busID, scheduleID string, isActive bool, now time.Time) error {
	found := false
	for _, s := range r.Schedules {
		if s.ID == scheduleID {
			found = true
			break
		}
	}
	if !found {
		return NotFoundError("schedule not found on route")
	}
	for _, ab := range r.AssignedBuses {
		if ab.ScheduleID == scheduleID {
			return ConflictError("schedule slot already has an assigned bus")
		}
		if ab.BusID == busID {
			return ConflictError("bus is already assigned to this route")
		}
	}
	r.AssignedBuses = append(r.AssignedBuses, AssignedBus{
		BusID:      busID,
		ScheduleID: scheduleID,
		IsActive:   isActive,
		AssignedAt: now,
	})
	return nil
}

// CreateRouteRequest represents the request to create a route
type CreateRouteRequest struct {
	Name      string     `json:"name" binding:"required"`
	Stops     []Stop     `json:"stops" binding:"required,min=2"`
	Schedules []Schedule `json:"schedules"`
	Fares     []Fare     `json:"fares"`
}

// Validate validates the CreateRouteRequest
func (req *CreateRouteRequest) Validate() error {
	if len(req.Stops) < 2 {
		return errors.New("a route needs at least two stops")
	}
	for _, s := range req.Schedules {
		if len(s.OperatingDays) == 0 {
			return errors.New("schedule must name at least one operating day")
		}
		for _, day := range s.OperatingDays {
			if !validWeekday(day) {
				return errors.New("invalid operating day: " + day)
			}
		}
	}
	for _, f := range req.Fares {
		if f.Amount <= 0 {
			return errors.New("fare amount must be greater than 0")
		}
		if f.FromStop == f.ToStop {
			return errors.New("fare stops must differ")
		}
	}
	return nil
}

// UpdateRouteRequest represents a partial route update
type UpdateRouteRequest struct {
	Name      *string     `json:"name,omitempty"`
	Status    *string     `json:"status,omitempty"`
	Stops     *[]Stop     `json:"stops,omitempty"`
	Schedules *[]Schedule `json:"schedules,omitempty"`
	Fares     *[]Fare     `json:"fares,omitempty"`
}

// AssignBusRequest binds a bus to a schedule slot
type AssignBusRequest struct {
	BusID      string `json:"bus_id" binding:"required"`
	ScheduleID string `json:"schedule_id" binding:"required"`
	IsActive   *bool  `json:"is_active"`
}

func validWeekday(day string) bool {
	switch day {
	case "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday":
		return true
	}
	return false
}
