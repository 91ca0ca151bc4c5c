package app

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"parley/internal/core"
)

// Outbound realtime events. The signal adapter and the coordinator share
// these so broadcasts and direct replies speak the same wire format.

type MessageEvent struct {
	Type      string    `json:"type"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Room      string    `json:"room"`
}

type OnlineUsersEvent struct {
	Type  string   `json:"type"`
	Room  string   `json:"room"`
	Users []string `json:"users"`
}

type UserTypingEvent struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	IsTyping bool   `json:"is_typing"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewErrorEvent(message string) ErrorEvent {
	return ErrorEvent{Type: "error", Message: message}
}

// EncodeEvent marshals an event for the wire. Events are plain structs,
// so a marshal failure is a programming error and yields an empty frame.
func EncodeEvent(v any) core.Frame {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.events").Msg("encode event")
		return nil
	}
	return b
}
