package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const MaxMessageLen = 4096

// SystemUsername is the author of synthetic join/leave notices.
const SystemUsername = "System"

var (
	ErrMessageEmpty   = errors.New("message empty")
	ErrMessageTooLong = errors.New("message too long")
)

// Message is one append-only chat log entry, keyed to a room by name.
type Message struct {
	ID        string    `gorm:"primarykey;size:36" json:"-"`
	Room      string    `gorm:"size:100;index;not null" json:"room"`
	Username  string    `gorm:"size:36;not null" json:"username"`
	Body      string    `gorm:"size:4096;not null" json:"message"`
	Timestamp time.Time `gorm:"index" json:"timestamp"`
}

func NewMessage(room, username, body string) (*Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrMessageEmpty
	}
	if len(body) > MaxMessageLen {
		return nil, ErrMessageTooLong
	}
	return &Message{
		ID:        uuid.NewString(),
		Room:      room,
		Username:  username,
		Body:      body,
		Timestamp: nowUTC(),
	}, nil
}

// NewSystemMessage builds a platform-authored notice such as
// "alice joined the room".
func NewSystemMessage(room, text string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Room:      room,
		Username:  SystemUsername,
		Body:      text,
		Timestamp: nowUTC(),
	}
}
