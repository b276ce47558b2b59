package model

import (
	"errors"
	"time"
)

// RefreshToken is one long-lived session credential. Only its hash is stored.
// Rotation revokes a token and points ReplacedBy at its successor.
type RefreshToken struct {
	ID         string     `db:"id"`
	UserID     int64      `db:"user_id"`
	TokenHash  string     `db:"token_hash"`
	ExpiresAt  time.Time  `db:"expires_at"`
	CreatedAt  time.Time  `db:"created_at"`
	RevokedAt  *time.Time `db:"revoked_at"`
	ReplacedBy *string    `db:"replaced_by"`
	UserAgent  *string    `db:"device_info"`
	ClientIP   *string    `db:"ip_address"`
}

// CheckUsable returns nil when the token may still be exchanged at now.
// A revoked token is reported as reused.
func (t *RefreshToken) CheckUsable(now time.Time) error {
	if t.RevokedAt != nil {
		return ErrRefreshTokenReused
	}
	if !now.Before(t.ExpiresAt) {
		return ErrRefreshTokenExpired
	}
	return nil
}

var (
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")
	ErrRefreshTokenReused   = errors.New("refresh token reuse detected")
)

const (
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeTokenInvalid = "TOKEN_INVALID"
	CodeTokenReused  = "TOKEN_REUSED"
)

// TokenPair is issued on login, registration and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int `json:"expires_in"`
}

// AuthResponse is the body of a successful login or registration.
type AuthResponse struct {
	User *User `json:"user"`
	TokenPair
}

// RefreshTokenRequest is the body of /auth/refresh and /auth/logout.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}
