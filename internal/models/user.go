package models

import (
	"errors"
	"strings"
	"time"
)

// Role represents the access level of a user
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleCommuter Role = "commuter"
)

// ValidRole reports whether r is a known role
func ValidRole(r Role) bool {
	return r == RoleAdmin || r == RoleOperator || r == RoleCommuter
}

// User represents an account in the system
type User struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// FirstName returns the leading word of the user's name, used in
// notification templates.
func (u *User) FirstName() string {
	parts := strings.Fields(u.Name)
	if len(parts) == 0 {
		return u.Name
	}
	return parts[0]
}

// RegisterRequest represents the request to create an account
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role"`
}

// Validate validates the RegisterRequest
func (req *RegisterRequest) Validate() error {
	if len(req.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if req.Role != "" && !ValidRole(Role(req.Role)) {
		return errors.New("invalid role: must be admin, operator, or commuter")
	}
	return nil
}

// LoginRequest represents a login attempt
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenPairResponse carries a fresh access/refresh token pair
type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// RefreshRequest carries a refresh token to exchange
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}
