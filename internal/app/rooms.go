package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"parley/internal/domain"
	"parley/internal/storage"
)

const readRetryBackoff = 100 * time.Millisecond

// Rooms implements the request/response room operations. Every mutation
// is a lock-load-apply-save cycle: the per-room lock serializes writers
// in-process, the engine applies the rules, the save replaces the
// document under a version check.
type Rooms struct {
	repo     *storage.RoomRepository
	messages *storage.MessageRepository
	locks    *RoomLocks
	registry *Registry
	timeout  time.Duration
	history  int
}

func NewRooms(repo *storage.RoomRepository, messages *storage.MessageRepository, locks *RoomLocks, registry *Registry, timeout time.Duration, historyLimit int) *Rooms {
	return &Rooms{repo: repo, messages: messages, locks: locks, registry: registry, timeout: timeout, history: historyLimit}
}

// loadByID retries once with a short backoff; reads are idempotent, so a
// transient storage hiccup is worth a second attempt. Writes never are.
func (s *Rooms) loadByID(ctx context.Context, id string) (*domain.Room, error) {
	room, err := s.repo.FindByID(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrRoomNotFound) {
		log.Warn().Err(err).Str("module", "app.rooms").Str("room_id", id).Msg("retrying room load")
		time.Sleep(readRetryBackoff)
		room, err = s.repo.FindByID(ctx, id)
	}
	return room, err
}

// mutate runs fn against the current room state and persists the result.
func (s *Rooms) mutate(ctx context.Context, roomID string, fn func(*domain.Room) error) (*domain.Room, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	unlock := s.locks.Lock(roomID)
	defer unlock()
	room, err := s.loadByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := fn(room); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *Rooms) ListRooms(ctx context.Context, id domain.Identity) ([]*domain.Room, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.repo.FindVisibleTo(ctx, id.UserID)
}

func (s *Rooms) CreateRoom(ctx context.Context, id domain.Identity, name, description string, isPrivate bool, settings *domain.RoomSettings) (*domain.Room, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	room, err := domain.NewRoom(name, description, isPrivate, id)
	if err != nil {
		return nil, err
	}
	if settings != nil {
		room.Settings = *settings
	}
	if err := s.repo.Create(ctx, room); err != nil {
		return nil, err
	}
	log.Info().Str("module", "app.rooms").Str("room", room.Name).Str("admin", string(id.UserID)).Msg("room created")
	return room, nil
}

func (s *Rooms) JoinRoom(ctx context.Context, id domain.Identity, roomID, inviteCode string) (domain.JoinStatus, *domain.Room, error) {
	var status domain.JoinStatus
	room, err := s.mutate(ctx, roomID, func(room *domain.Room) error {
		var err error
		status, err = room.Join(id, inviteCode)
		return err
	})
	if err != nil {
		return 0, nil, err
	}
	return status, room, nil
}

func (s *Rooms) PendingRequests(ctx context.Context, id domain.Identity, roomID string) ([]domain.PendingRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	room, err := s.loadByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.CanModerate(id.UserID) {
		return nil, domain.ErrForbidden
	}
	return room.PendingRequests, nil
}

func (s *Rooms) ApproveRequest(ctx context.Context, id domain.Identity, roomID string, target domain.UserID) (string, error) {
	var username string
	_, err := s.mutate(ctx, roomID, func(room *domain.Room) error {
		var err error
		username, err = room.ApproveRequest(id.UserID, target)
		return err
	})
	return username, err
}

func (s *Rooms) RejectRequest(ctx context.Context, id domain.Identity, roomID string, target domain.UserID) (string, error) {
	var username string
	_, err := s.mutate(ctx, roomID, func(room *domain.Room) error {
		var err error
		username, err = room.RejectRequest(id.UserID, target)
		return err
	})
	return username, err
}

// RemoveMember removes target, or deletes the whole room when the admin
// leaves as the last member. Returns whether the room was deleted.
func (s *Rooms) RemoveMember(ctx context.Context, id domain.Identity, roomID string, target domain.UserID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	unlock := s.locks.Lock(roomID)
	defer unlock()
	room, err := s.loadByID(ctx, roomID)
	if err != nil {
		return false, err
	}
	deleted, err := room.RemoveMember(id.UserID, target)
	if err != nil {
		return false, err
	}
	if deleted {
		if err := s.repo.Delete(ctx, roomID); err != nil {
			return false, err
		}
		log.Info().Str("module", "app.rooms").Str("room", room.Name).Msg("room deleted with last member")
		return true, nil
	}
	return false, s.repo.Save(ctx, room)
}

// BanUser records the ban, then evicts any live session the banned user
// still has in the room.
func (s *Rooms) BanUser(ctx context.Context, id domain.Identity, roomID string, target domain.UserID) error {
	room, err := s.mutate(ctx, roomID, func(room *domain.Room) error {
		return room.BanUser(id.UserID, target)
	})
	if err != nil {
		return err
	}
	for _, sid := range s.registry.SessionsOf(target, room.Name) {
		s.registry.Cancel(sid)
		log.Info().Str("module", "app.rooms").Str("sid", string(sid)).Str("room", room.Name).Msg("evicted banned session")
	}
	return nil
}

func (s *Rooms) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.loadByID(ctx, roomID)
}

func (s *Rooms) UpdateRoom(ctx context.Context, id domain.Identity, roomID string, name, description *string) (*domain.Room, error) {
	return s.mutate(ctx, roomID, func(room *domain.Room) error {
		return room.UpdateDetails(id.UserID, name, description)
	})
}

func (s *Rooms) TransferAdmin(ctx context.Context, id domain.Identity, roomID string, newAdmin domain.UserID) (*domain.Room, error) {
	return s.mutate(ctx, roomID, func(room *domain.Room) error {
		return room.TransferAdmin(id.UserID, newAdmin)
	})
}

// History returns the most recent messages of a room, oldest first.
func (s *Rooms) History(ctx context.Context, room string) ([]*domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.messages.History(ctx, room, s.history)
}
