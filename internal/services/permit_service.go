package services

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

// PermitStore is the permit persistence the validity engine consumes
type PermitStore interface {
	GetByID(permitID string) (*models.Permit, error)
	GetByPermitNumber(permitNumber string) (*models.Permit, error)
	GetActiveByBusID(busID string, now time.Time) ([]models.Permit, error)
	GetAll() ([]models.Permit, error)
	Create(permit *models.Permit) error
	Update(permit *models.Permit) error
}

// PermitService manages route permits and their derived validity
type PermitService struct {
	permitStore PermitStore
	logger      *logrus.Logger
}

// NewPermitService creates a new PermitService
func NewPermitService(permitStore PermitStore, logger *logrus.Logger) *PermitService {
	return &PermitService{permitStore: permitStore, logger: logger}
}

// Create issues a permit. A bus may hold at most one active, non-expired
// permit; the rule is enforced here at creation time, not continuously.
func (s *PermitService) Create(req *models.CreatePermitRequest) (*models.Permit, error) {
	if err := req.Validate(); err != nil {
		return nil, models.BadRequestError(err.Error())
	}

	issue, _ := time.Parse("2006-01-02", req.IssueDate)
	expiry, _ := time.Parse("2006-01-02", req.ExpiryDate)

	active, err := s.permitStore.GetActiveByBusID(req.BusID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to check existing permits: %w", err)
	}
	if len(active) > 0 {
		return nil, models.ConflictError("bus already holds an active permit").
			WithDetail("permit_number", active[0].PermitNumber)
	}

	permit := &models.Permit{
		PermitNumber: req.PermitNumber,
		IssueDate:    issue,
		ExpiryDate:   expiry,
		RouteID:      req.RouteID,
		BusID:        req.BusID,
		OperatorID:   req.OperatorID,
		Status:       models.PermitStatusActive,
	}
	if err := s.permitStore.Create(permit); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"permit_id":     permit.ID,
		"permit_number": permit.PermitNumber,
		"bus_id":        permit.BusID,
		"expiry_date":   permit.ExpiryDate.Format("2006-01-02"),
	}).Info("Permit issued")

	return permit, nil
}

// Update applies a partial update. Setting status to expired forces the
// expiry date to now.
func (s *PermitService) Update(permitID string, req *models.UpdatePermitRequest) (*models.Permit, error) {
	permit, err := s.permitStore.GetByID(permitID)
	if err != nil {
		return nil, fmt.Errorf("failed to load permit: %w", err)
	}
	if permit == nil {
		return nil, models.NotFoundError("permit not found")
	}

	if req.ExpiryDate != nil {
		expiry, err := time.Parse("2006-01-02", *req.ExpiryDate)
		if err != nil {
			return nil, models.BadRequestError("expiry_date must be in YYYY-MM-DD format")
		}
		if !expiry.After(permit.IssueDate) {
			return nil, models.BadRequestError("expiry_date must be after issue_date")
		}
		if expiry.After(permit.IssueDate.AddDate(2, 0, 0)) {
			return nil, models.BadRequestError("expiry_date must be within two years of issue_date")
		}
		permit.ExpiryDate = expiry
	}

	if req.Status != nil {
		status := models.PermitStatus(*req.Status)
		switch status {
		case models.PermitStatusActive, models.PermitStatusSuspended:
			permit.Status = status
		case models.PermitStatusExpired:
			permit.Status = status
			permit.ExpiryDate = time.Now()
		default:
			return nil, models.BadRequestError("invalid status: must be active, expired, or suspended")
		}
	}

	if err := s.permitStore.Update(permit); err != nil {
		return nil, err
	}
	return permit, nil
}

// SoftDelete suspends the permit and marks it deleted; permits are never
// removed from storage.
func (s *PermitService) SoftDelete(permitID, deletedBy string) (*models.Permit, error) {
	permit, err := s.permitStore.GetByID(permitID)
	if err != nil {
		return nil, fmt.Errorf("failed to load permit: %w", err)
	}
	if permit == nil {
		return nil, models.NotFoundError("permit not found")
	}
	if permit.IsDeleted {
		return nil, models.ConflictError("permit is already deleted")
	}

	now := time.Now()
	permit.Status = models.PermitStatusSuspended
	permit.IsDeleted = true
	permit.DeletedAt = &now
	permit.DeletedBy = &deletedBy

	if err := s.permitStore.Update(permit); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"permit_id":  permit.ID,
		"deleted_by": deletedBy,
	}).Info("Permit soft-deleted")

	return permit, nil
}

// CheckValidity resolves a permit by number and reports its derived
// validity. The permit payload is only returned when valid.
func (s *PermitService) CheckValidity(permitNumber string) (*models.PermitValidityResponse, error) {
	permit, err := s.permitStore.GetByPermitNumber(permitNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to load permit: %w", err)
	}
	if permit == nil {
		return nil, models.NotFoundError("permit not found")
	}

	if permit.IsValid(time.Now()) {
		return &models.PermitValidityResponse{
			IsValid: true,
			Permit:  permit,
			Message: "Permit is valid",
		}, nil
	}
	return &models.PermitValidityResponse{
		IsValid: false,
		Permit:  nil,
		Message: "Permit is not valid",
	}, nil
}

// GetByID returns a permit by id
func (s *PermitService) GetByID(permitID string) (*models.Permit, error) {
	permit, err := s.permitStore.GetByID(permitID)
	if err != nil {
		return nil, fmt.Errorf("failed to load permit: %w", err)
	}
	if permit == nil {
		return nil, models.NotFoundError("permit not found")
	}
	return permit, nil
}

// GetAll returns every permit
func (s *PermitService) GetAll() ([]models.Permit, error) {
	return s.permitStore.GetAll()
}
