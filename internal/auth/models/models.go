package models

import (
	"time"

	"auditflow/pkg/domain"
)

// User is a stored account. Role is fixed at creation.
type User struct {
	ID           domain.UserID
	Username     string
	PasswordHash string
	Role         domain.Role
	CreatedAt    time.Time
}

// Identity is the public projection of a user.
func (u *User) Identity() domain.Identity {
	return domain.Identity{ID: u.ID, Username: u.Username, Role: u.Role}
}

// Session is the server-side record behind a session cookie.
type Session struct {
	Token     string          `json:"-"`
	Identity  domain.Identity `json:"identity"`
	Device    string          `json:"device,omitempty"`
	ClientIP  string          `json:"client_ip,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// IsExpired reports whether the session's absolute lifetime has elapsed.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Identity  domain.Identity
	Token     string
	ExpiresAt time.Time
}
