// Package domain contains the persisted entities and the pure membership
// rules that operate on them. Nothing here performs I/O.
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	MaxUserIDLen   = 36
	MaxUsernameLen = 36
)

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
)

type UserID string

type User struct {
	ID           UserID    `gorm:"primarykey;size:36" json:"id"`
	Username     string    `gorm:"size:36;uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Avatar       string    `gorm:"size:500" json:"avatar"`
	IsOnline     bool      `json:"is_online"`
	LastSeen     time.Time `json:"last_seen"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
// The password hash is set by the auth service, not here.
func NewUser(username string) (*User, error) {
	if len(username) == 0 {
		return nil, ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return nil, ErrUsernameTooLong
	}
	id := UserID(uuid.NewString())
	return &User{ID: id, Username: username, CreatedAt: time.Now().UTC()}, nil
}

// Identity is the authenticated user reference every authorization check
// runs against. It is immutable for the lifetime of a session.
type Identity struct {
	UserID   UserID `json:"user_id"`
	Username string `json:"username"`
}
