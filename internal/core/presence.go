package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"parley/internal/domain"
)

// Entry is one live connection bound to one room.
type Entry struct {
	SID      SessionID
	UserID   domain.UserID
	Username string
	Conn     SignalConnection
}

// Presence is the process-wide table of which connections are in which
// room. It doubles as the broadcast subscriber set: publishing to a room
// iterates its entries directly. Purely a liveness view; it starts empty
// on every process start and is never persisted.
type Presence struct {
	mu    sync.RWMutex
	rooms map[string][]*Entry
}

func NewPresence() *Presence {
	return &Presence{rooms: make(map[string][]*Entry)}
}

// Add registers a connection in a room, replacing any previous entry for
// the same session id.
func (p *Presence) Add(room string, e *Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entries := p.rooms[room]
	for i, old := range entries {
		if old.SID == e.SID {
			entries[i] = e
			return
		}
	}
	p.rooms[room] = append(entries, e)
	log.Debug().Str("module", "core.presence").Str("room", room).Str("sid", string(e.SID)).Msg("entry added")
}

// Remove drops the session's entry from a room. Removing an absent entry
// is a no-op, which keeps disconnects idempotent.
func (p *Presence) Remove(room string, sid SessionID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entries := p.rooms[room]
	kept := entries[:0]
	for _, e := range entries {
		if e.SID != sid {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(p.rooms, room)
	} else {
		p.rooms[room] = kept
	}
}

// OnlineUsernames returns the display names currently in a room,
// de-duplicated so multiple connections of one user count once.
func (p *Presence) OnlineUsernames(room string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	seen := make(map[string]struct{})
	names := make([]string, 0, len(p.rooms[room]))
	for _, e := range p.rooms[room] {
		if _, ok := seen[e.Username]; ok {
			continue
		}
		seen[e.Username] = struct{}{}
		names = append(names, e.Username)
	}
	return names
}

func (p *Presence) Count(room string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.rooms[room])
}

// Broadcast fans a frame out to every entry of a room. Best effort and
// at most once: a full send buffer drops the frame for that session.
func (p *Presence) Broadcast(room string, frame Frame) {
	p.BroadcastExcept(room, "", frame)
}

// BroadcastExcept fans out to every entry but the given session.
func (p *Presence) BroadcastExcept(room string, skip SessionID, frame Frame) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	sent, dropped := 0, 0
	for _, e := range p.rooms[room] {
		if e.SID == skip {
			continue
		}
		if err := e.Conn.TrySend(frame); err != nil {
			dropped++
			continue
		}
		sent++
	}
	log.Debug().Str("module", "core.presence").Str("room", room).Int("sent_to", sent).Int("dropped", dropped).Msg("broadcast result")
}
