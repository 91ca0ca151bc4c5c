package app

import "sync"

// RoomLocks serializes read-modify-write cycles per room id. Operations
// on different rooms proceed in parallel; two operations on the same room
// never interleave in-process. The repository's version check remains the
// backstop for anything outside these locks.
type RoomLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRoomLocks() *RoomLocks {
	return &RoomLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for a room id and returns its unlock func.
func (l *RoomLocks) Lock(id string) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}
