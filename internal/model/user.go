package model

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// User represents a user in the system
type User struct {
	ID                   int64      `db:"id" json:"id"`
	Username             string     `db:"username" json:"username"`
	Email                string     `db:"email" json:"email"`
	PasswordHashed       string     `db:"password_hashed" json:"-"` // "-" hides from JSON output
	ProfileImage         string     `db:"profile_image" json:"profile_image"`
	ProfileImageKey      *string    `db:"profile_image_key" json:"-"`
	PushToken            *string    `db:"push_token" json:"-"`
	NotificationCount    int        `db:"notification_count" json:"-"`
	LastNotificationDate *time.Time `db:"last_notification_date" json:"-"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// Counter returns the user's daily notification counter.
func (u *User) Counter() DailyCounter {
	return DailyCounter{Count: u.NotificationCount, LastDate: u.LastNotificationDate}
}

// UserSummary is the public owner projection {username, profileImage}.
type UserSummary struct {
	ID           int64  `db:"id" json:"id"`
	Username     string `db:"username" json:"username"`
	ProfileImage string `db:"profile_image" json:"profile_image"`
}

// RegisterRequest represents the data needed to register a new user
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	// ProfileImage is an inline data URI or an existing URL. Optional.
	ProfileImage string `json:"profile_image"`
}

// LoginRequest represents the data needed to log in
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PushTokenRequest is the request body for POST /api/auth/push-token
type PushTokenRequest struct {
	Token string `json:"token"`
}

// Registration rules
const (
	MinPasswordLength = 6
	MinUsernameLength = 3
)

// DefaultProfileImage returns the generated initials avatar for a username.
func DefaultProfileImage(username string) string {
	return fmt.Sprintf("https://api.dicebear.com/9.x/initials/svg?seed=%s", url.QueryEscape(username))
}

var (
	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameExists is returned when attempting to create a user with a taken username
	ErrUsernameExists = errors.New("username already exists")

	// ErrEmailExists is returned when attempting to create a user with a registered email
	ErrEmailExists = errors.New("email already exists")

	// ErrInvalidCredentials is returned when login credentials are incorrect
	ErrInvalidCredentials = errors.New("invalid credentials")
)
