package models

import "time"

// RefreshToken is a stored, revocable refresh token. Tokens are persisted
// hashed; the store supports create, lookup and revoke so a restart or a
// logout invalidates them (no process-wide token list).
type RefreshToken struct {
	ID        string     `json:"id" db:"id"`
	UserID    string     `json:"user_id" db:"user_id"`
	TokenHash string     `json:"-" db:"token_hash"`
	UserAgent string     `json:"user_agent" db:"user_agent"`
	ExpiresAt time.Time  `json:"expires_at" db:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty" db:"revoked_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// IsUsable reports whether the token can still be exchanged
func (t *RefreshToken) IsUsable(now time.Time) bool {
	return t.RevokedAt == nil && t.ExpiresAt.After(now)
}
