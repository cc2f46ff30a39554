package models

import (
	"errors"
	"time"
)

// BusType represents the service category of a bus. Premium categories
// require payment details at booking time.
type BusType string

const (
	BusTypeNormal     BusType = "normal"
	BusTypeSemiLuxury BusType = "semi_luxury"
	BusTypeLuxury     BusType = "luxury"
)

// ValidBusType reports whether t is a known bus type
func ValidBusType(t BusType) bool {
	return t == BusTypeNormal || t == BusTypeSemiLuxury || t == BusTypeLuxury
}

// Bus represents a bus operated on a route. The bus exclusively owns its
// seat matrix; Version supports optimistic concurrency on matrix writes.
type Bus struct {
	ID               string     `json:"id" db:"id"`
	BusNumber        string     `json:"bus_number" db:"bus_number"`
	OperatorID       string     `json:"operator_id" db:"operator_id"`
	BusType          BusType    `json:"bus_type" db:"bus_type"`
	SeatingCapacity  int        `json:"seating_capacity" db:"seating_capacity"`
	StandingCapacity int        `json:"standing_capacity" db:"standing_capacity"`
	SeatMatrix       SeatMatrix `json:"seat_matrix" db:"seat_matrix"`
	Version          int        `json:"version" db:"version"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// RequiresPayment reports whether the bus category is in the payment
// allow-list (premium tiers).
func (b *Bus) RequiresPayment(categories []BusType) bool {
	for _, c := range categories {
		if b.BusType == c {
			return true
		}
	}
	return false
}

// CreateBusRequest represents the request to register a new bus
type CreateBusRequest struct {
	BusNumber        string `json:"bus_number" binding:"required"`
	BusType          string `json:"bus_type" binding:"required"`
	SeatingCapacity  int    `json:"seating_capacity" binding:"required,gt=0"`
	StandingCapacity int    `json:"standing_capacity"`
}

// Validate validates the CreateBusRequest
func (req *CreateBusRequest) Validate() error {
	if !ValidBusType(BusType(req.BusType)) {
		return errors.New("invalid bus_type: must be normal, semi_luxury, or luxury")
	}
	if req.SeatingCapacity <= 0 {
		return errors.New("seating_capacity must be greater than 0")
	}
	if req.StandingCapacity < 0 {
		return errors.New("standing_capacity must not be negative")
	}
	return nil
}

// CreateSeatMatrixRequest carries the layout used to build a bus seat matrix
type CreateSeatMatrixRequest struct {
	Rows          int                                `json:"rows" binding:"required,gt=0"`
	ColumnLayouts [][]string                         `json:"column_layouts"`
	DefaultLayout []string                           `json:"default_layout"`
	SeatTypes     map[string]map[string]SeatOverride `json:"seat_types"`
}

// UpdateSeatRequest patches a single seat in place
type UpdateSeatRequest struct {
	IsBlocked *bool   `json:"is_blocked"`
	IsAisle   *bool   `json:"is_aisle"`
	Type      *string `json:"type"`
}
