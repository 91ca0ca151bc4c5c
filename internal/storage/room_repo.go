package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"parley/internal/domain"
)

// RoomRepository persists room documents. Saves are full-document
// replaces guarded by a version check; callers serialize writes per room
// and treat ErrVersionConflict as a lost race.
type RoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

func (r *RoomRepository) Create(ctx context.Context, room *domain.Room) error {
	room.EnsureInviteCode()
	if err := r.db.WithContext(ctx).Create(room).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrDuplicateName
		}
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

func (r *RoomRepository) FindByID(ctx context.Context, id string) (*domain.Room, error) {
	var room domain.Room
	if err := r.db.WithContext(ctx).First(&room, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, fmt.Errorf("find room: %w", err)
	}
	return &room, nil
}

func (r *RoomRepository) FindByName(ctx context.Context, name string) (*domain.Room, error) {
	var room domain.Room
	if err := r.db.WithContext(ctx).First(&room, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, fmt.Errorf("find room: %w", err)
	}
	return &room, nil
}

// FindVisibleTo returns the rooms id may see: public rooms plus rooms it
// is a member of, newest first. Membership lives inside a JSON column, so
// the filter runs in process rather than in SQL.
func (r *RoomRepository) FindVisibleTo(ctx context.Context, id domain.UserID) ([]*domain.Room, error) {
	var rooms []*domain.Room
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	visible := rooms[:0]
	for _, room := range rooms {
		if !room.IsPrivate || room.IsMember(id) {
			visible = append(visible, room)
		}
	}
	return visible, nil
}

// Save replaces the whole room document if and only if the stored version
// still matches the one the room was loaded at. On success the in-memory
// version is bumped to match the row.
func (r *RoomRepository) Save(ctx context.Context, room *domain.Room) error {
	room.EnsureInviteCode()
	loaded := room.Version
	room.Version = loaded + 1
	res := r.db.WithContext(ctx).
		Model(&domain.Room{}).
		Where("id = ? AND version = ?", room.ID, loaded).
		Select("*").
		Omit("id", "created_at").
		Updates(room)
	if res.Error != nil {
		room.Version = loaded
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return domain.ErrDuplicateName
		}
		return fmt.Errorf("save room: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		room.Version = loaded
		var count int64
		if err := r.db.WithContext(ctx).Model(&domain.Room{}).Where("id = ?", room.ID).Count(&count).Error; err == nil && count == 0 {
			return domain.ErrRoomNotFound
		}
		return domain.ErrVersionConflict
	}
	return nil
}

func (r *RoomRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&domain.Room{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete room: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}
