// Package app wires the membership engine, repositories and presence
// table together: room use-cases for the HTTP API and the per-connection
// session coordinator for the realtime channel.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"parley/internal/core"
	"parley/internal/domain"
)

type sessionEntry struct {
	Identity domain.Identity
	Room     string
	Conn     core.SignalConnection
	Cancel   context.CancelFunc
}

// Registry tracks every live session: its identity, its transport and the
// room it is currently bound to (at most one).
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[core.SessionID]*sessionEntry)}
}

func (r *Registry) Bind(sid core.SessionID, id domain.Identity, conn core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{Identity: id, Conn: conn, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("user", string(id.UserID)).Msg("bound session")
}

// Unbind removes the session and reports whether it existed.
func (r *Registry) Unbind(sid core.SessionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[sid]
	delete(r.sessions, sid)
	if ok {
		log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbound session")
	}
	return ok
}

func (r *Registry) Identity(sid core.SessionID) (domain.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Identity, true
	}
	return domain.Identity{}, false
}

func (r *Registry) Conn(sid core.SessionID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Conn, true
	}
	return nil, false
}

// RoomOf returns the room the session is bound to, if any.
func (r *Registry) RoomOf(sid core.SessionID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok || e.Room == "" {
		return "", false
	}
	return e.Room, true
}

func (r *Registry) SetRoom(sid core.SessionID, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[sid]; ok {
		e.Room = room
		log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", room).Msg("updated room")
	}
}

func (r *Registry) ClearRoom(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[sid]; ok {
		e.Room = ""
	}
}

// SessionsOf returns the sessions of a user currently bound to room.
func (r *Registry) SessionsOf(user domain.UserID, room string) []core.SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sids []core.SessionID
	for sid, e := range r.sessions {
		if e.Identity.UserID == user && e.Room == room {
			sids = append(sids, sid)
		}
	}
	return sids
}

// Cancel stops a session's context and closes its transport, forcing the
// pumps to wind down. Used to evict a session, for example after a ban.
func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	if e.Conn != nil {
		e.Conn.Close()
	}
	return true
}
