package models

import (
	"errors"
	"time"
)

// PermitStatus represents the stored status of a route permit
type PermitStatus string

const (
	PermitStatusActive    PermitStatus = "active"
	PermitStatusExpired   PermitStatus = "expired"
	PermitStatusSuspended PermitStatus = "suspended"
)

// Permit is a time-bounded authorization for a bus to operate a route.
// Validity is derived, never stored.
type Permit struct {
	ID           string       `json:"id" db:"id"`
	PermitNumber string       `json:"permit_number" db:"permit_number"`
	IssueDate    time.Time    `json:"issue_date" db:"issue_date"`
	ExpiryDate   time.Time    `json:"expiry_date" db:"expiry_date"`
	RouteID      string       `json:"route_id" db:"route_id"`
	BusID        string       `json:"bus_id" db:"bus_id"`
	OperatorID   string       `json:"operator_id" db:"operator_id"`
	Status       PermitStatus `json:"status" db:"status"`
	IsDeleted    bool         `json:"is_deleted" db:"is_deleted"`
	DeletedAt    *time.Time   `json:"deleted_at,omitempty" db:"deleted_at"`
	DeletedBy    *string      `json:"deleted_by,omitempty" db:"deleted_by"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

// IsValid reports whether the permit is valid at the given instant:
// active, not expired, not soft-deleted.
func (p *Permit) IsValid(now time.Time) bool {
	return p.Status == PermitStatusActive &&
		p.ExpiryDate.After(now) &&
		!p.IsDeleted
}

// CreatePermitRequest represents the request to issue a permit
type CreatePermitRequest struct {
	PermitNumber string `json:"permit_number" binding:"required"`
	IssueDate    string `json:"issue_date" binding:"required"`  // YYYY-MM-DD
	ExpiryDate   string `json:"expiry_date" binding:"required"` // YYYY-MM-DD
	RouteID      string `json:"route_id" binding:"required"`
	BusID        string `json:"bus_id" binding:"required"`
	OperatorID   string `json:"operator_id" binding:"required"`
}

// Validate validates the CreatePermitRequest. Expiry must follow issue and
// may not exceed two years from it.
func (req *CreatePermitRequest) Validate() error {
	issue, err := time.Parse("2006-01-02", req.IssueDate)
	if err != nil {
		return errors.New("issue_date must be in YYYY-MM-DD format")
	}
	expiry, err := time.Parse("2006-01-02", req.ExpiryDate)
	if err != nil {
		return errors.New("expiry_date must be in YYYY-MM-DD format")
	}
	if !expiry.After(issue) {
		return errors.New("expiry_date must be after issue_date")
	}
	if expiry.After(issue.AddDate(2, 0, 0)) {
		return errors.New("expiry_date must be within two years of issue_date")
	}
	return nil
}

// UpdatePermitRequest represents a partial permit update
type UpdatePermitRequest struct {
	ExpiryDate *string `json:"expiry_date,omitempty"`
	Status     *string `json:"status,omitempty"`
}

// PermitValidityResponse is returned by the validity check. Permit is null
// when the permit is invalid.
type PermitValidityResponse struct {
	IsValid bool    `json:"is_valid"`
	Permit  *Permit `json:"permit"`
	Message string  `json:"message"`
}
