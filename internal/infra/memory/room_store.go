// Package memory provides store implementations used when Redis/Postgres
// are not configured, and by tests.
package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"trivia-room-service/internal/domain"
)

// RoomStore is an in-memory implementation of app.RoomRepository with the
// same contract as the Redis store: versioned compare-and-set writes and a
// refreshing expiry.
type RoomStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu    sync.Mutex
	rooms map[string]*roomEntry
}

type roomEntry struct {
	data      []byte
	version   int64
	expiresAt time.Time
}

func NewRoomStore(ttl time.Duration) *RoomStore {
	return &RoomStore{
		ttl:   ttl,
		clock: time.Now,
		rooms: make(map[string]*roomEntry),
	}
}

// NewRoomStoreWithClock is test-only for deterministic expiry.
func NewRoomStoreWithClock(ttl time.Duration, clock func() time.Time) *RoomStore {
	s := NewRoomStore(ttl)
	s.clock = clock
	return s
}

func (s *RoomStore) Create(_ context.Context, room *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	if entry, ok := s.rooms[room.Code]; ok && entry.live(now) {
		return domain.ErrRoomExists
	}
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}
	s.rooms[room.Code] = &roomEntry{data: data, version: 1, expiresAt: s.expiry(now)}
	return nil
}

func (s *RoomStore) Get(_ context.Context, code string) (*domain.Room, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.rooms[code]
	if !ok || !entry.live(s.clock()) {
		return nil, 0, domain.ErrRoomNotFound
	}
	room := &domain.Room{}
	if err := json.Unmarshal(entry.data, room); err != nil {
		return nil, 0, err
	}
	return room, entry.version, nil
}

func (s *RoomStore) Update(_ context.Context, room *domain.Room, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	entry, ok := s.rooms[room.Code]
	if !ok || !entry.live(now) {
		return domain.ErrRoomNotFound
	}
	if entry.version != version {
		return domain.ErrConflict
	}
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}
	entry.data = data
	entry.version++
	entry.expiresAt = s.expiry(now)
	return nil
}

func (e *roomEntry) live(now time.Time) bool {
	return e.expiresAt.IsZero() || e.expiresAt.After(now)
}

func (s *RoomStore) expiry(now time.Time) time.Time {
	if s.ttl <= 0 {
		return time.Time{}
	}
	return now.Add(s.ttl)
}
