package domain

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MaxRoomNameLen    = 100
	MaxDescriptionLen = 500
	inviteCodeLen     = 8
	inviteCodeChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleMember    Role = "member"
)

// Member is one entry of a room's ordered membership list. Username is
// denormalized so views and system messages never need a user lookup.
type Member struct {
	UserID   UserID    `json:"user_id"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joined_at"`
	Role     Role      `json:"role"`
}

type PendingRequest struct {
	UserID      UserID    `json:"user_id"`
	Username    string    `json:"username"`
	RequestedAt time.Time `json:"requested_at"`
}

type RoomSettings struct {
	AllowMemberInvite bool `json:"allow_member_invite"`
	RequireApproval   bool `json:"require_approval"`
}

// Room is a full membership document: one row per room, the collections
// stored as JSON columns and replaced wholesale on save. Version backs the
// compare-and-swap in the repository.
type Room struct {
	ID              string           `gorm:"primarykey;size:36" json:"id"`
	Name            string           `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description     string           `gorm:"size:500" json:"description"`
	Avatar          string           `gorm:"size:500" json:"avatar"`
	IsPrivate       bool             `json:"is_private"`
	InviteCode      string           `gorm:"size:8" json:"invite_code,omitempty"`
	AdminID         UserID           `gorm:"size:36;not null" json:"admin_id"`
	Moderators      []UserID         `gorm:"serializer:json" json:"moderators"`
	Members         []Member         `gorm:"serializer:json" json:"members"`
	PendingRequests []PendingRequest `gorm:"serializer:json" json:"pending_requests"`
	BannedUsers     []UserID         `gorm:"serializer:json" json:"banned_users"`
	CreatedBy       string           `gorm:"size:36" json:"created_by"`
	CreatedAt       time.Time        `json:"created_at"`
	Settings        RoomSettings     `gorm:"serializer:json" json:"settings"`
	Version         int64            `gorm:"not null;default:0" json:"-"`
}

// NewRoom creates a room whose creator is the sole member and admin.
// Approval is required by default; callers opt out via settings.
func NewRoom(name, description string, isPrivate bool, creator Identity) (*Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameEmpty
	}
	now := time.Now().UTC()
	return &Room{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		IsPrivate:   isPrivate,
		AdminID:     creator.UserID,
		Members: []Member{{
			UserID:   creator.UserID,
			Username: creator.Username,
			JoinedAt: now,
			Role:     RoleAdmin,
		}},
		CreatedBy: creator.Username,
		CreatedAt: now,
		Settings:  RoomSettings{RequireApproval: true},
	}, nil
}

// EnsureInviteCode assigns the invite code for a private room that does
// not have one yet. It is called at persistence time and never replaces
// an existing code, so the code survives a later switch to public.
func (r *Room) EnsureInviteCode() {
	if r.IsPrivate && r.InviteCode == "" {
		r.InviteCode = newInviteCode()
	}
}

func newInviteCode() string {
	b := make([]byte, inviteCodeLen)
	max := big.NewInt(int64(len(inviteCodeChars)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails if the platform source is broken
			panic(err)
		}
		b[i] = inviteCodeChars[n.Int64()]
	}
	return string(b)
}

func (r *Room) IsMember(id UserID) bool {
	for _, m := range r.Members {
		if m.UserID == id {
			return true
		}
	}
	return false
}

func (r *Room) IsBanned(id UserID) bool {
	for _, b := range r.BannedUsers {
		if b == id {
			return true
		}
	}
	return false
}

func (r *Room) isPending(id UserID) bool {
	for _, p := range r.PendingRequests {
		if p.UserID == id {
			return true
		}
	}
	return false
}

// MemberRole reports the role of id, and whether id is a member at all.
func (r *Room) MemberRole(id UserID) (Role, bool) {
	for _, m := range r.Members {
		if m.UserID == id {
			return m.Role, true
		}
	}
	return "", false
}

// CanModerate reports whether id may act on pending join requests.
func (r *Room) CanModerate(id UserID) bool {
	role, ok := r.MemberRole(id)
	return ok && (role == RoleAdmin || role == RoleModerator)
}

// MemberUsername returns the display name recorded for a member, if any.
func (r *Room) MemberUsername(id UserID) (string, bool) {
	for _, m := range r.Members {
		if m.UserID == id {
			return m.Username, true
		}
	}
	return "", false
}

func nowUTC() time.Time { return time.Now().UTC() }

func (r *Room) addMember(id UserID, username string, role Role) {
	r.Members = append(r.Members, Member{
		UserID:   id,
		Username: username,
		JoinedAt: nowUTC(),
		Role:     role,
	})
}

func (r *Room) removeMember(id UserID) {
	kept := r.Members[:0]
	for _, m := range r.Members {
		if m.UserID != id {
			kept = append(kept, m)
		}
	}
	r.Members = kept
}

func (r *Room) removePending(id UserID) {
	kept := r.PendingRequests[:0]
	for _, p := range r.PendingRequests {
		if p.UserID != id {
			kept = append(kept, p)
		}
	}
	r.PendingRequests = kept
}
