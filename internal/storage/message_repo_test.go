package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"parley/internal/domain"
)

func TestMessageRepository_HistoryOrderAndLimit(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	repo := NewMessageRepository(db)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 105; i++ {
		msg, err := domain.NewMessage("general", "alice", fmt.Sprintf("msg %03d", i))
		if err != nil {
			t.Fatal(err)
		}
		msg.Timestamp = base.Add(time.Duration(i) * time.Second)
		if err := repo.Append(ctx, msg); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	// a different room must not leak into the history
	other := domain.NewSystemMessage("random", "bob joined the room")
	if err := repo.Append(ctx, other); err != nil {
		t.Fatal(err)
	}

	msgs, err := repo.History(ctx, "general", 100)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(msgs) != 100 {
		t.Fatalf("history length = %d, want 100", len(msgs))
	}
	// most recent 100 of 105, ascending: first entry is msg 005
	if msgs[0].Body != "msg 005" {
		t.Errorf("first message = %q, want %q", msgs[0].Body, "msg 005")
	}
	if msgs[99].Body != "msg 104" {
		t.Errorf("last message = %q, want %q", msgs[99].Body, "msg 104")
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].Timestamp.Before(msgs[i-1].Timestamp) {
			t.Fatalf("history not ascending at index %d", i)
		}
	}
}

func TestMessageRepository_EmptyRoom(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	repo := NewMessageRepository(db)

	msgs, err := repo.History(context.Background(), "nowhere", 100)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("history length = %d, want 0", len(msgs))
	}
}
