package signal

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"parley/internal/app"
	"parley/internal/core"
	"parley/internal/domain"
)

func (ctl *Controller) handleJoin(ctx context.Context, sid core.SessionID, c *wsConn, data []byte) {
	var p struct {
		Type string `json:"type"`
		Room string `json:"room"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Room == "" {
		ctl.sendError(c, "bad payload")
		return
	}

	if err := ctl.Coord.JoinRoom(ctx, sid, p.Room); err != nil {
		switch {
		case errors.Is(err, domain.ErrRoomNotFound):
			ctl.sendError(c, "Room not found")
		case errors.Is(err, domain.ErrBanned):
			ctl.sendError(c, "You are banned from this room")
		case errors.Is(err, domain.ErrNotAMember):
			// the session stays connected and may join another room
			ctl.sendError(c, "This room requires an invite or approval to join")
		default:
			log.Error().Err(err).Str("module", "signal").Str("room", p.Room).Msg("join failed")
			ctl.sendError(c, "Failed to join room")
		}
		return
	}
}

func (ctl *Controller) handleChat(ctx context.Context, sid core.SessionID, c *wsConn, data []byte) {
	var p struct {
		Type    string `json:"type"`
		Room    string `json:"room"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(c, "bad payload")
		return
	}
	if !ctl.Limiter.Allow(sid) {
		ctl.sendError(c, "You are sending messages too fast")
		return
	}

	if err := ctl.Coord.Chat(ctx, sid, p.Message); err != nil {
		switch {
		case errors.Is(err, app.ErrNotInRoom):
			ctl.sendError(c, "Join a room first")
		case errors.Is(err, domain.ErrBanned):
			ctl.sendError(c, "You are banned from this room")
		case errors.Is(err, domain.ErrNotAMember):
			ctl.sendError(c, "You are not authorized to send messages in this room")
		case errors.Is(err, domain.ErrMessageEmpty), errors.Is(err, domain.ErrMessageTooLong):
			ctl.sendError(c, err.Error())
		default:
			log.Error().Err(err).Str("module", "signal").Msg("chat failed")
			ctl.sendError(c, "Failed to send message")
		}
	}
}

func (ctl *Controller) handleTyping(sid core.SessionID, c *wsConn, data []byte) {
	var p struct {
		Type     string `json:"type"`
		IsTyping bool   `json:"is_typing"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(c, "bad payload")
		return
	}
	// typing is fire-and-forget; an unbound session is simply ignored
	_ = ctl.Coord.Typing(sid, p.IsTyping)
}

func (ctl *Controller) handleLeave(ctx context.Context, sid core.SessionID, c *wsConn) {
	ctl.Coord.LeaveRoom(ctx, sid)
	ctl.sendEvent(c, map[string]string{"type": "left"})
}
