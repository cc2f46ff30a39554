package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarttransit/bus-booking-backend/internal/models"
)

type fakePermitStore struct {
	permits map[string]*models.Permit
}

func newFakePermitStore() *fakePermitStore {
	return &fakePermitStore{permits: map[string]*models.Permit{}}
}

func (f *fakePermitStore) GetByID(permitID string) (*models.Permit, error) {
	return f.permits[permitID], nil
}

func (f *fakePermitStore) GetByPermitNumber(permitNumber string) (*models.Permit, error) {
	for _, p := range f.permits {
		if p.PermitNumber == permitNumber {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakePermitStore) GetActiveByBusID(busID string, now time.Time) ([]models.Permit, error) {
	var out []models.Permit
	for _, p := range f.permits {
		if p.BusID == busID && p.IsValid(now) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePermitStore) GetAll() ([]models.Permit, error) {
	var out []models.Permit
	for _, p := range f.permits {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakePermitStore) Create(permit *models.Permit) error {
	if permit.ID == "" {
		permit.ID = uuid.New().String()
	}
	f.permits[permit.ID] = permit
	return nil
}

func (f *fakePermitStore) Update(permit *models.Permit) error {
	f.permits[permit.ID] = permit
	return nil
}

func newPermitService(store *fakePermitStore) *PermitService {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewPermitService(store, logger)
}

func validPermitRequest() *models.CreatePermitRequest {
	return &models.CreatePermitRequest{
		PermitNumber: "NTC-2026-001",
		IssueDate:    time.Now().Format("2006-01-02"),
		ExpiryDate:   time.Now().AddDate(1, 0, 0).Format("2006-01-02"),
		RouteID:      "route-1",
		BusID:        "bus-1",
		OperatorID:   "op-1",
	}
}

func TestPermitCreate(t *testing.T) {
	store := newFakePermitStore()
	service := newPermitService(store)

	permit, err := service.Create(validPermitRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, permit.ID)
	assert.Equal(t, models.PermitStatusActive, permit.Status)
	assert.True(t, permit.IsValid(time.Now()))
}

func TestPermitCreateRejectsSecondActivePermit(t *testing.T) {
	store := newFakePermitStore()
	service := newPermitService(store)

	_, err := service.Create(validPermitRequest())
	require.NoError(t, err)

	req := validPermitRequest()
	req.PermitNumber = "NTC-2026-002"
	_, err = service.Create(req)
	assertKind(t, err, models.ErrConflict)
}

func TestPermitCreateAllowsNewPermitAfterExpiry(t *testing.T) {
	store := newFakePermitStore()
	service := newPermitService(store)

	permit, err := service.Create(validPermitRequest())
	require.NoError(t, err)

	// Force-expire the existing permit
	status := string(models.PermitStatusExpired)
	_, err = service.Update(permit.ID, &models.UpdatePermitRequest{Status: &status})
	require.NoError(t, err)

	req := validPermitRequest()
	req.PermitNumber = "NTC-2026-002"
	_, err = service.Create(req)
	assert.NoError(t, err)
}

func TestPermitCreateInvalidDates(t *testing.T) {
	service := newPermitService(newFakePermitStore())

	req := validPermitRequest()
	req.ExpiryDate = req.IssueDate
	_, err := service.Create(req)
	assertKind(t, err, models.ErrBadRequest)

	req = validPermitRequest()
	req.ExpiryDate = time.Now().AddDate(3, 0, 0).Format("2006-01-02")
	_, err = service.Create(req)
	assertKind(t, err, models.ErrBadRequest)
}

func TestPermitForceExpire(t *testing.T) {
	store := newFakePermitStore()
	service := newPermitService(store)

	permit, err := service.Create(validPermitRequest())
	require.NoError(t, err)

	status := string(models.PermitStatusExpired)
	updated, err := service.Update(permit.ID, &models.UpdatePermitRequest{Status: &status})
	require.NoError(t, err)

	assert.Equal(t, models.PermitStatusExpired, updated.Status)
	// Forcing expiry pulls the expiry date to now
	assert.WithinDuration(t, time.Now(), updated.ExpiryDate, 5*time.Second)
	assert.False(t, updated.IsValid(time.Now()))
}

func TestPermitSoftDelete(t *testing.T) {
	store := newFakePermitStore()
	service := newPermitService(store)

	permit, err := service.Create(validPermitRequest())
	require.NoError(t, err)

	deleted, err := service.SoftDelete(permit.ID, "admin-1")
	require.NoError(t, err)

	assert.True(t, deleted.IsDeleted)
	assert.Equal(t, models.PermitStatusSuspended, deleted.Status)
	require.NotNil(t, deleted.DeletedBy)
	assert.Equal(t, "admin-1", *deleted.DeletedBy)
	assert.NotNil(t, deleted.DeletedAt)

	// Still in storage, never removed
	stored, err := store.GetByID(permit.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)

	_, err = service.SoftDelete(permit.ID, "admin-1")
	assertKind(t, err, models.ErrConflict)
}

func TestPermitCheckValidity(t *testing.T) {
	store := newFakePermitStore()
	service := newPermitService(store)

	permit, err := service.Create(validPermitRequest())
	require.NoError(t, err)

	result, err := service.CheckValidity(permit.PermitNumber)
	require.NoError(t, err)
	assert.True(t, result.IsValid)
	require.NotNil(t, result.Permit)
	assert.Equal(t, permit.ID, result.Permit.ID)

	// Soft-deleted permits check as invalid, with no payload returned
	_, err = service.SoftDelete(permit.ID, "admin-1")
	require.NoError(t, err)

	result, err = service.CheckValidity(permit.PermitNumber)
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Nil(t, result.Permit)

	_, err = service.CheckValidity("no-such-permit")
	assertKind(t, err, models.ErrNotFound)
}
