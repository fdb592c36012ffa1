package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"trivia-room-service/internal/domain"
)

func newTestStore(t *testing.T) (*RoomStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRoomStore(client, 2*time.Hour), mr
}

func testRoom(t *testing.T, code string) *domain.Room {
	t.Helper()
	room, err := domain.NewRoom(code, "test", domain.VisibilityPrivate, time.Now())
	if err != nil {
		t.Fatalf("new room: %v", err)
	}
	return room
}

func TestRoomStoreCreateSetsKeyWithTTL(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	if err := store.Create(ctx, testRoom(t, "AAAAA1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !mr.Exists("trivia:room:AAAAA1") {
		t.Fatalf("expected room key to be set")
	}
	if ttl := mr.TTL("trivia:room:AAAAA1"); ttl != 2*time.Hour {
		t.Fatalf("expected 2h ttl, got %v", ttl)
	}

	if err := store.Create(ctx, testRoom(t, "AAAAA1")); !errors.Is(err, domain.ErrRoomExists) {
		t.Fatalf("expected collision error, got %v", err)
	}
}

func TestRoomStoreGetMissingIsNotFound(t *testing.T) {
	store, _ := newTestStore(t)
	if _, _, err := store.Get(context.Background(), "ZZZZZ9"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRoomStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	if err := store.Create(ctx, testRoom(t, "AAAAA1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	room, version, err := store.Get(ctx, "AAAAA1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if version != 1 {
		t.Fatalf("expected version 1, got %d", version)
	}

	room.Name = "renamed"
	if err := store.Update(ctx, room, version); err != nil {
		t.Fatalf("update: %v", err)
	}

	room, version, err = store.Get(ctx, "AAAAA1")
	if err != nil {
		t.Fatalf("reread: %v", err)
	}
	if room.Name != "renamed" || version != 2 {
		t.Fatalf("expected renamed room at version 2, got %q v%d", room.Name, version)
	}
}

func TestRoomStoreUpdateDetectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	if err := store.Create(ctx, testRoom(t, "AAAAA1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	first, v1, _ := store.Get(ctx, "AAAAA1")
	second, v2, _ := store.Get(ctx, "AAAAA1")

	first.Name = "first writer"
	if err := store.Update(ctx, first, v1); err != nil {
		t.Fatalf("first update: %v", err)
	}

	second.Name = "second writer"
	if err := store.Update(ctx, second, v2); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	room, _, err := store.Get(ctx, "AAAAA1")
	if err != nil {
		t.Fatalf("reread: %v", err)
	}
	if room.Name != "first writer" {
		t.Fatalf("lost update: got %q", room.Name)
	}
}

func TestRoomStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	if err := store.Create(ctx, testRoom(t, "AAAAA1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	mr.FastForward(3 * time.Hour)
	if _, _, err := store.Get(ctx, "AAAAA1"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected expired room to be gone, got %v", err)
	}
}
