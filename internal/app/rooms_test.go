package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"parley/internal/domain"
	"parley/internal/storage"
)

var (
	alice = domain.Identity{UserID: "u-alice", Username: "alice"}
	bob   = domain.Identity{UserID: "u-bob", Username: "bob"}
	carol = domain.Identity{UserID: "u-carol", Username: "carol"}
	dave  = domain.Identity{UserID: "u-dave", Username: "dave"}
	eve   = domain.Identity{UserID: "u-eve", Username: "eve"}
)

func setupRooms(t *testing.T) (*Rooms, *Registry) {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	registry := NewRegistry()
	svc := NewRooms(
		storage.NewRoomRepository(db),
		storage.NewMessageRepository(db),
		NewRoomLocks(),
		registry,
		5*time.Second,
		100,
	)
	return svc, registry
}

func TestRooms_CreateAndList(t *testing.T) {
	svc, _ := setupRooms(t)
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, alice, "general", "chit-chat", false, &domain.RoomSettings{})
	if err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}
	if room.AdminID != alice.UserID {
		t.Errorf("admin = %s, want alice", room.AdminID)
	}

	if _, err := svc.CreateRoom(ctx, bob, "general", "", false, nil); !errors.Is(err, domain.ErrDuplicateName) {
		t.Fatalf("duplicate CreateRoom() error = %v, want ErrDuplicateName", err)
	}

	visible, err := svc.ListRooms(ctx, bob)
	if err != nil {
		t.Fatalf("ListRooms() error = %v", err)
	}
	if len(visible) != 1 || visible[0].Name != "general" {
		t.Errorf("ListRooms() = %v, want [general]", visible)
	}
}

func TestRooms_ApprovalFlow(t *testing.T) {
	svc, _ := setupRooms(t)
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, alice, "dev", "", false, nil) // approval required by default
	if err != nil {
		t.Fatal(err)
	}

	status, _, err := svc.JoinRoom(ctx, dave, room.ID, "")
	if err != nil {
		t.Fatalf("JoinRoom() error = %v", err)
	}
	if status != domain.JoinStatusPending {
		t.Fatalf("status = %v, want pending", status)
	}

	if _, err := svc.PendingRequests(ctx, dave, room.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("PendingRequests() by requester error = %v, want ErrForbidden", err)
	}
	pending, err := svc.PendingRequests(ctx, alice, room.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].UserID != dave.UserID {
		t.Fatalf("pending = %v, want dave", pending)
	}

	username, err := svc.ApproveRequest(ctx, alice, room.ID, dave.UserID)
	if err != nil {
		t.Fatalf("ApproveRequest() error = %v", err)
	}
	if username != "dave" {
		t.Errorf("username = %q, want dave", username)
	}

	loaded, err := svc.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !loaded.IsMember(dave.UserID) {
		t.Error("dave not a member after approval")
	}

	if _, err := svc.ApproveRequest(ctx, alice, room.ID, dave.UserID); !errors.Is(err, domain.ErrNoSuchRequest) {
		t.Fatalf("second ApproveRequest() error = %v, want ErrNoSuchRequest", err)
	}
}

func TestRooms_PrivateRoomInvite(t *testing.T) {
	svc, _ := setupRooms(t)
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, alice, "secret", "", true, &domain.RoomSettings{})
	if err != nil {
		t.Fatal(err)
	}
	if len(room.InviteCode) != 8 {
		t.Fatalf("invite code = %q, want 8 characters", room.InviteCode)
	}

	if _, _, err := svc.JoinRoom(ctx, carol, room.ID, ""); !errors.Is(err, domain.ErrInvalidInvite) {
		t.Fatalf("JoinRoom() without code error = %v, want ErrInvalidInvite", err)
	}
	status, _, err := svc.JoinRoom(ctx, carol, room.ID, room.InviteCode)
	if err != nil {
		t.Fatalf("JoinRoom() with code error = %v", err)
	}
	if status != domain.JoinStatusJoined {
		t.Errorf("status = %v, want joined", status)
	}
}

func TestRooms_RemoveLastMemberDeletesRoom(t *testing.T) {
	svc, _ := setupRooms(t)
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, alice, "solo", "", false, nil)
	if err != nil {
		t.Fatal(err)
	}

	deleted, err := svc.RemoveMember(ctx, alice, room.ID, alice.UserID)
	if err != nil {
		t.Fatalf("RemoveMember() error = %v", err)
	}
	if !deleted {
		t.Fatal("expected room deletion")
	}
	if _, err := svc.GetRoom(ctx, room.ID); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("GetRoom(deleted) error = %v, want ErrRoomNotFound", err)
	}
}

func TestRooms_BanAndTransfer(t *testing.T) {
	svc, _ := setupRooms(t)
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, alice, "general", "", false, &domain.RoomSettings{})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.JoinRoom(ctx, bob, room.ID, ""); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.JoinRoom(ctx, eve, room.ID, ""); err != nil {
		t.Fatal(err)
	}

	if err := svc.BanUser(ctx, bob, room.ID, eve.UserID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("BanUser() by non-admin error = %v, want ErrForbidden", err)
	}
	if err := svc.BanUser(ctx, alice, room.ID, eve.UserID); err != nil {
		t.Fatalf("BanUser() error = %v", err)
	}

	if _, _, err := svc.JoinRoom(ctx, eve, room.ID, ""); !errors.Is(err, domain.ErrBanned) {
		t.Fatalf("JoinRoom() after ban error = %v, want ErrBanned", err)
	}

	updated, err := svc.TransferAdmin(ctx, alice, room.ID, bob.UserID)
	if err != nil {
		t.Fatalf("TransferAdmin() error = %v", err)
	}
	if updated.AdminID != bob.UserID {
		t.Errorf("admin = %s, want bob", updated.AdminID)
	}

	// former admin can now leave
	if _, err := svc.RemoveMember(ctx, alice, room.ID, alice.UserID); err != nil {
		t.Fatalf("self-leave after transfer error = %v", err)
	}
}

func TestRooms_BanEvictsLiveSession(t *testing.T) {
	svc, registry := setupRooms(t)
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, alice, "general", "", false, &domain.RoomSettings{})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.JoinRoom(ctx, eve, room.ID, ""); err != nil {
		t.Fatal(err)
	}

	conn := &fakeConn{}
	cancelled := false
	registry.Bind("s-eve", eve, conn, func() { cancelled = true })
	registry.SetRoom("s-eve", room.Name)

	elsewhere := &fakeConn{}
	registry.Bind("s-eve-2", eve, elsewhere, func() {})
	registry.SetRoom("s-eve-2", "random")

	if err := svc.BanUser(ctx, alice, room.ID, eve.UserID); err != nil {
		t.Fatalf("BanUser() error = %v", err)
	}
	if !cancelled {
		t.Error("banned session context not cancelled")
	}
	if !conn.isClosed() {
		t.Error("banned session connection not closed")
	}
	// sessions in other rooms are untouched
	if elsewhere.isClosed() {
		t.Error("session in another room was evicted")
	}
}

func TestRooms_AdminCannotBanSelf(t *testing.T) {
	svc, _ := setupRooms(t)
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, alice, "general", "", false, &domain.RoomSettings{})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.JoinRoom(ctx, bob, room.ID, ""); err != nil {
		t.Fatal(err)
	}

	if err := svc.BanUser(ctx, alice, room.ID, alice.UserID); !errors.Is(err, domain.ErrCannotRemoveAdmin) {
		t.Fatalf("self-ban error = %v, want ErrCannotRemoveAdmin", err)
	}
	loaded, err := svc.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !loaded.IsMember(alice.UserID) || loaded.IsBanned(alice.UserID) {
		t.Error("rejected self-ban mutated the room")
	}
}

func TestRooms_ConcurrentJoinsSerialized(t *testing.T) {
	svc, _ := setupRooms(t)
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, alice, "busy", "", false, &domain.RoomSettings{})
	if err != nil {
		t.Fatal(err)
	}

	joiners := []domain.Identity{bob, carol, dave, eve}
	errs := make(chan error, len(joiners))
	for _, id := range joiners {
		go func(id domain.Identity) {
			_, _, err := svc.JoinRoom(ctx, id, room.ID, "")
			errs <- err
		}(id)
	}
	for range joiners {
		if err := <-errs; err != nil {
			t.Fatalf("concurrent JoinRoom() error = %v", err)
		}
	}

	loaded, err := svc.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Members) != len(joiners)+1 {
		t.Errorf("members = %d, want %d (no lost updates)", len(loaded.Members), len(joiners)+1)
	}
}
