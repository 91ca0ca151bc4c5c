package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"parley/internal/core"
	"parley/internal/domain"
	"parley/internal/storage"
)

// ErrNotInRoom is returned for chat and typing events from a session that
// has not bound a room yet.
var ErrNotInRoom = errors.New("join a room first")

// Coordinator owns the per-connection state machine of the realtime
// channel: connect, join, chat, typing, disconnect. It never caches
// membership; every chat and join re-reads the current room document, so
// HTTP-side bans and removals take effect on the very next event.
type Coordinator struct {
	rooms    *storage.RoomRepository
	messages *storage.MessageRepository
	users    *storage.UserRepository
	presence *core.Presence
	registry *Registry
	locks    *RoomLocks
	timeout  time.Duration
}

func NewCoordinator(
	rooms *storage.RoomRepository,
	messages *storage.MessageRepository,
	users *storage.UserRepository,
	presence *core.Presence,
	registry *Registry,
	locks *RoomLocks,
	timeout time.Duration,
) *Coordinator {
	return &Coordinator{
		rooms:    rooms,
		messages: messages,
		users:    users,
		presence: presence,
		registry: registry,
		locks:    locks,
		timeout:  timeout,
	}
}

// Connect registers an authenticated session and marks the user online.
func (c *Coordinator) Connect(ctx context.Context, sid core.SessionID, id domain.Identity, conn core.SignalConnection, cancel context.CancelFunc) {
	c.registry.Bind(sid, id, conn, cancel)
	ctx, done := context.WithTimeout(ctx, c.timeout)
	defer done()
	if err := c.users.SetPresence(ctx, id.UserID, true, time.Now().UTC()); err != nil {
		log.Error().Err(err).Str("module", "app.coordinator").Str("sid", string(sid)).Msg("mark online")
	}
}

func (c *Coordinator) loadByName(ctx context.Context, name string) (*domain.Room, error) {
	room, err := c.rooms.FindByName(ctx, name)
	if err != nil && !errors.Is(err, domain.ErrRoomNotFound) {
		time.Sleep(readRetryBackoff)
		room, err = c.rooms.FindByName(ctx, name)
	}
	return room, err
}

// JoinRoom binds the session to a room. Non-members of public rooms that
// do not gate on approval are added as members on the way in; everyone
// else is turned away. A session bound elsewhere leaves that room first.
func (c *Coordinator) JoinRoom(ctx context.Context, sid core.SessionID, roomName string) error {
	id, ok := c.registry.Identity(sid)
	if !ok {
		return ErrNotInRoom
	}
	ctx, done := context.WithTimeout(ctx, c.timeout)
	defer done()

	room, err := c.loadByName(ctx, roomName)
	if err != nil {
		return err
	}
	unlock := c.locks.Lock(room.ID)
	defer unlock()
	// reload under the lock so the checks run against current state
	room, err = c.rooms.FindByID(ctx, room.ID)
	if err != nil {
		return err
	}
	if room.IsBanned(id.UserID) {
		return domain.ErrBanned
	}
	if !room.IsMember(id.UserID) {
		if room.IsPrivate || room.Settings.RequireApproval {
			return domain.ErrNotAMember
		}
		if _, err := room.Join(id, ""); err != nil {
			return err
		}
		if err := c.rooms.Save(ctx, room); err != nil {
			return err
		}
	}

	if prev, ok := c.registry.RoomOf(sid); ok && prev != room.Name {
		c.leaveRoom(ctx, sid, prev, id.Username)
	}

	conn, ok := c.registry.Conn(sid)
	if !ok {
		return ErrNotInRoom
	}
	c.presence.Add(room.Name, &core.Entry{SID: sid, UserID: id.UserID, Username: id.Username, Conn: conn})
	c.registry.SetRoom(sid, room.Name)
	c.broadcastOnline(room.Name)
	c.systemMessage(ctx, room.Name, id.Username+" joined the room")
	log.Info().Str("module", "app.coordinator").Str("sid", string(sid)).Str("room", room.Name).Str("user", id.Username).Msg("joined room")
	return nil
}

// Chat validates the sender against the room's current membership, then
// persists and fans out the message.
func (c *Coordinator) Chat(ctx context.Context, sid core.SessionID, text string) error {
	id, ok := c.registry.Identity(sid)
	if !ok {
		return ErrNotInRoom
	}
	bound, ok := c.registry.RoomOf(sid)
	if !ok {
		return ErrNotInRoom
	}
	ctx, done := context.WithTimeout(ctx, c.timeout)
	defer done()

	room, err := c.loadByName(ctx, bound)
	if err != nil {
		return err
	}
	unlock := c.locks.Lock(room.ID)
	defer unlock()
	room, err = c.rooms.FindByID(ctx, room.ID)
	if err != nil {
		return err
	}
	if room.IsBanned(id.UserID) {
		return domain.ErrBanned
	}
	if !room.IsMember(id.UserID) {
		return domain.ErrNotAMember
	}

	msg, err := domain.NewMessage(room.Name, id.Username, text)
	if err != nil {
		return err
	}
	if err := c.messages.Append(ctx, msg); err != nil {
		return err
	}
	c.presence.Broadcast(room.Name, EncodeEvent(MessageEvent{
		Type:      "message",
		Username:  msg.Username,
		Message:   msg.Body,
		Timestamp: msg.Timestamp,
		Room:      msg.Room,
	}))
	return nil
}

// Typing relays a typing indicator to everyone else in the bound room.
// No persistence, no membership re-check.
func (c *Coordinator) Typing(sid core.SessionID, isTyping bool) error {
	id, ok := c.registry.Identity(sid)
	if !ok {
		return ErrNotInRoom
	}
	bound, ok := c.registry.RoomOf(sid)
	if !ok {
		return ErrNotInRoom
	}
	c.presence.BroadcastExcept(bound, sid, EncodeEvent(UserTypingEvent{
		Type:     "user_typing",
		Username: id.Username,
		IsTyping: isTyping,
	}))
	return nil
}

// LeaveRoom unbinds the session from its room without closing it.
func (c *Coordinator) LeaveRoom(ctx context.Context, sid core.SessionID) {
	id, ok := c.registry.Identity(sid)
	if !ok {
		return
	}
	bound, ok := c.registry.RoomOf(sid)
	if !ok {
		return
	}
	ctx, done := context.WithTimeout(ctx, c.timeout)
	defer done()
	c.leaveRoom(ctx, sid, bound, id.Username)
	c.registry.ClearRoom(sid)
}

// Disconnect tears the session down. Safe to call more than once.
func (c *Coordinator) Disconnect(ctx context.Context, sid core.SessionID) {
	id, ok := c.registry.Identity(sid)
	if !ok {
		return
	}
	ctx, done := context.WithTimeout(ctx, c.timeout)
	defer done()
	if bound, ok := c.registry.RoomOf(sid); ok {
		c.leaveRoom(ctx, sid, bound, id.Username)
	}
	if err := c.users.SetPresence(ctx, id.UserID, false, time.Now().UTC()); err != nil {
		log.Error().Err(err).Str("module", "app.coordinator").Str("sid", string(sid)).Msg("mark offline")
	}
	c.registry.Unbind(sid)
	log.Info().Str("module", "app.coordinator").Str("sid", string(sid)).Msg("session closed")
}

func (c *Coordinator) leaveRoom(ctx context.Context, sid core.SessionID, room, username string) {
	c.presence.Remove(room, sid)
	c.broadcastOnline(room)
	c.systemMessage(ctx, room, username+" left the room")
}

func (c *Coordinator) broadcastOnline(room string) {
	c.presence.Broadcast(room, EncodeEvent(OnlineUsersEvent{
		Type:  "online_users",
		Room:  room,
		Users: c.presence.OnlineUsernames(room),
	}))
}

// systemMessage appends a platform notice to the log and fans it out.
// The broadcast still goes out if the append fails; notices are not worth
// failing a join or disconnect over.
func (c *Coordinator) systemMessage(ctx context.Context, room, text string) {
	msg := domain.NewSystemMessage(room, text)
	if err := c.messages.Append(ctx, msg); err != nil {
		log.Error().Err(err).Str("module", "app.coordinator").Str("room", room).Msg("append system message")
	}
	c.presence.Broadcast(room, EncodeEvent(MessageEvent{
		Type:      "message",
		Username:  msg.Username,
		Message:   msg.Body,
		Timestamp: msg.Timestamp,
		Room:      msg.Room,
	}))
}
