package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarttransit/bus-booking-backend/internal/models"
	"github.com/smarttransit/bus-booking-backend/pkg/jwt"
)

type fakeUserAccountStore struct {
	users map[string]*models.User
}

func newFakeUserAccountStore() *fakeUserAccountStore {
	return &fakeUserAccountStore{users: map[string]*models.User{}}
}

func (f *fakeUserAccountStore) Create(user *models.User) error {
	for _, u := range f.users {
		if u.Email == user.Email {
			return models.ConflictError("email is already registered")
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = models.RoleCommuter
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserAccountStore) GetByID(userID string) (*models.User, error) {
	return f.users[userID], nil
}

func (f *fakeUserAccountStore) GetByEmail(email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

type fakeTokenStore struct {
	tokens map[string]*models.RefreshToken
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: map[string]*models.RefreshToken{}}
}

func (f *fakeTokenStore) Create(token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	f.tokens[token.TokenHash] = token
	return nil
}

func (f *fakeTokenStore) GetByHash(tokenHash string) (*models.RefreshToken, error) {
	return f.tokens[tokenHash], nil
}

func (f *fakeTokenStore) Revoke(tokenHash string) error {
	if token, ok := f.tokens[tokenHash]; ok && token.RevokedAt == nil {
		now := time.Now()
		token.RevokedAt = &now
	}
	return nil
}

func (f *fakeTokenStore) RevokeAllForUser(userID string) error {
	now := time.Now()
	for _, token := range f.tokens {
		if token.UserID == userID && token.RevokedAt == nil {
			token.RevokedAt = &now
		}
	}
	return nil
}

func newAuthFixture() (*AuthService, *fakeUserAccountStore, *fakeTokenStore) {
	userStore := newFakeUserAccountStore()
	tokenStore := newFakeTokenStore()
	jwtService := jwt.NewService("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewAuthService(userStore, tokenStore, jwtService, logger), userStore, tokenStore
}

func TestAuthRegister(t *testing.T) {
	service, _, _ := newAuthFixture()

	user, err := service.Register(&models.RegisterRequest{
		Name:     "Nimal Perera",
		Email:    "nimal@example.com",
		Password: "s3cret-password",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, models.RoleCommuter, user.Role)
	// Stored hash must verify but never equal the raw password
	assert.NotEqual(t, "s3cret-password", user.PasswordHash)
	assert.NotEmpty(t, user.PasswordHash)
}

func TestAuthRegisterShortPassword(t *testing.T) {
	service, _, _ := newAuthFixture()

	_, err := service.Register(&models.RegisterRequest{
		Name:     "Nimal",
		Email:    "nimal@example.com",
		Password: "short",
	})
	assertKind(t, err, models.ErrBadRequest)
}

func TestAuthRegisterDuplicateEmail(t *testing.T) {
	service, _, _ := newAuthFixture()

	req := &models.RegisterRequest{Name: "Nimal", Email: "nimal@example.com", Password: "s3cret-password"}
	_, err := service.Register(req)
	require.NoError(t, err)

	_, err = service.Register(req)
	assertKind(t, err, models.ErrConflict)
}

func TestAuthLogin(t *testing.T) {
	service, _, tokenStore := newAuthFixture()

	_, err := service.Register(&models.RegisterRequest{
		Name:     "Nimal Perera",
		Email:    "nimal@example.com",
		Password: "s3cret-password",
	})
	require.NoError(t, err)

	user, tokens, err := service.Login(&models.LoginRequest{
		Email:    "nimal@example.com",
		Password: "s3cret-password",
	}, "Chrome 120 on Linux")
	require.NoError(t, err)

	assert.Equal(t, "nimal@example.com", user.Email)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, int((15 * time.Minute).Seconds()), tokens.ExpiresIn)

	// The refresh token is stored hashed with the device recorded
	stored := tokenStore.tokens[HashToken(tokens.RefreshToken)]
	require.NotNil(t, stored)
	assert.Equal(t, user.ID, stored.UserID)
	assert.Equal(t, "Chrome 120 on Linux", stored.UserAgent)
	assert.NotEqual(t, tokens.RefreshToken, stored.TokenHash)
}

func TestAuthLoginWrongPassword(t *testing.T) {
	service, _, _ := newAuthFixture()

	_, err := service.Register(&models.RegisterRequest{
		Name:     "Nimal",
		Email:    "nimal@example.com",
		Password: "s3cret-password",
	})
	require.NoError(t, err)

	_, _, err = service.Login(&models.LoginRequest{
		Email:    "nimal@example.com",
		Password: "wrong-password",
	}, "test")
	assertKind(t, err, models.ErrBadRequest)

	_, _, err = service.Login(&models.LoginRequest{
		Email:    "nobody@example.com",
		Password: "s3cret-password",
	}, "test")
	assertKind(t, err, models.ErrBadRequest)
}

func TestAuthRefreshRotatesToken(t *testing.T) {
	service, _, tokenStore := newAuthFixture()

	_, err := service.Register(&models.RegisterRequest{
		Name:     "Nimal",
		Email:    "nimal@example.com",
		Password: "s3cret-password",
	})
	require.NoError(t, err)

	_, tokens, err := service.Login(&models.LoginRequest{
		Email:    "nimal@example.com",
		Password: "s3cret-password",
	}, "test")
	require.NoError(t, err)

	fresh, err := service.Refresh(tokens.RefreshToken, "test")
	require.NoError(t, err)
	assert.NotEmpty(t, fresh.AccessToken)
	assert.NotEqual(t, tokens.RefreshToken, fresh.RefreshToken)

	// The old token is revoked and cannot be replayed
	old := tokenStore.tokens[HashToken(tokens.RefreshToken)]
	require.NotNil(t, old)
	assert.NotNil(t, old.RevokedAt)

	_, err = service.Refresh(tokens.RefreshToken, "test")
	assertKind(t, err, models.ErrBadRequest)
}

func TestAuthRefreshRejectsUnknownToken(t *testing.T) {
	service, _, _ := newAuthFixture()

	_, err := service.Refresh("not-a-jwt", "test")
	assertKind(t, err, models.ErrBadRequest)
}

func TestAuthLogoutRevokesAllTokens(t *testing.T) {
	service, _, tokenStore := newAuthFixture()

	user, err := service.Register(&models.RegisterRequest{
		Name:     "Nimal",
		Email:    "nimal@example.com",
		Password: "s3cret-password",
	})
	require.NoError(t, err)

	login := &models.LoginRequest{Email: "nimal@example.com", Password: "s3cret-password"}
	_, first, err := service.Login(login, "device-1")
	require.NoError(t, err)
	_, second, err := service.Login(login, "device-2")
	require.NoError(t, err)

	require.NoError(t, service.Logout(user.ID))

	for _, token := range []string{first.RefreshToken, second.RefreshToken} {
		stored := tokenStore.tokens[HashToken(token)]
		require.NotNil(t, stored)
		assert.NotNil(t, stored.RevokedAt)
	}
}
