package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/models"
	"github.com/smarttransit/bus-booking-backend/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

// UserAccountStore is the user persistence the auth engine consumes
type UserAccountStore interface {
	Create(user *models.User) error
	GetByID(userID string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
}

// TokenStore persists refresh tokens. Tokens are stored hashed; the raw
// token never touches storage.
type TokenStore interface {
	Create(token *models.RefreshToken) error
	GetByHash(tokenHash string) (*models.RefreshToken, error)
	Revoke(tokenHash string) error
	RevokeAllForUser(userID string) error
}

// AuthService implements registration, login and the refresh token
// rotation flow.
type AuthService struct {
	userStore  UserAccountStore
	tokenStore TokenStore
	jwtService *jwt.Service
	logger     *logrus.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(userStore UserAccountStore, tokenStore TokenStore, jwtService *jwt.Service, logger *logrus.Logger) *AuthService {
	return &AuthService{
		userStore:  userStore,
		tokenStore: tokenStore,
		jwtService: jwtService,
		logger:     logger,
	}
}

// Register creates an account. Self-registration is always a commuter;
// elevated roles come from an admin-seeded account.
func (s *AuthService) Register(req *models.RegisterRequest) (*models.User, error) {
	if err := req.Validate(); err != nil {
		return nil, models.BadRequestError(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := models.RoleCommuter
	if req.Role != "" {
		role = models.Role(req.Role)
	}

	user := &models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.userStore.Create(user); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("User registered")

	return user, nil
}

// Login verifies credentials and issues a token pair. The refresh token
// is stored hashed along with the caller's device description.
func (s *AuthService) Login(req *models.LoginRequest, userAgent string) (*models.User, *models.TokenPairResponse, error) {
	user, err := s.userStore.GetByEmail(req.Email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, nil, models.BadRequestError("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, nil, models.BadRequestError("invalid email or password")
	}

	tokens, err := s.issueTokenPair(user, userAgent)
	if err != nil {
		return nil, nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"device":  userAgent,
	}).Info("User logged in")

	return user, tokens, nil
}

// Refresh rotates a refresh token: the presented token is validated
// against the store, revoked, and a fresh pair is issued.
func (s *AuthService) Refresh(refreshToken, userAgent string) (*models.TokenPairResponse, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, models.BadRequestError("invalid refresh token")
	}

	hash := HashToken(refreshToken)
	stored, err := s.tokenStore.GetByHash(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to look up refresh token: %w", err)
	}
	if stored == nil || !stored.IsUsable(time.Now()) {
		return nil, models.BadRequestError("refresh token is expired or revoked")
	}

	user, err := s.userStore.GetByID(claims.UserID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, models.NotFoundError("user not found")
	}

	if err := s.tokenStore.Revoke(hash); err != nil {
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	return s.issueTokenPair(user, userAgent)
}

// Logout revokes every refresh token the user holds
func (s *AuthService) Logout(userID string) error {
	if err := s.tokenStore.RevokeAllForUser(userID); err != nil {
		return fmt.Errorf("failed to revoke tokens: %w", err)
	}
	s.logger.WithField("user_id", userID).Info("User logged out")
	return nil
}

func (s *AuthService) issueTokenPair(user *models.User, userAgent string) (*models.TokenPairResponse, error) {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %w", err)
	}

	accessToken, err := s.jwtService.GenerateAccessToken(userID, user.Email, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, err := s.jwtService.GenerateRefreshToken(userID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	record := &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: HashToken(refreshToken),
		UserAgent: userAgent,
		ExpiresAt: time.Now().Add(s.jwtService.RefreshTokenExpiry()),
	}
	if err := s.tokenStore.Create(record); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &models.TokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtService.AccessTokenExpiry().Seconds()),
	}, nil
}

// HashToken derives the storage key for a refresh token
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
