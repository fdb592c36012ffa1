// Package redis backs the room store and the archive cache with Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"trivia-room-service/internal/domain"
)

// RoomStore persists rooms as JSON envelopes under a refreshing TTL and
// implements optimistic concurrency with WATCH: a write against a version
// that has moved on fails with domain.ErrConflict, and the service replays
// the whole read-mutate-write cycle. This closes the lost-update window
// between handlers in any number of processes sharing one Redis.
type RoomStore struct {
	client *redis.Client
	ttl    time.Duration
}

type roomEnvelope struct {
	Version int64        `json:"version"`
	Room    *domain.Room `json:"room"`
}

func NewRoomStore(client *redis.Client, ttl time.Duration) *RoomStore {
	return &RoomStore{client: client, ttl: ttl}
}

func (s *RoomStore) Create(ctx context.Context, room *domain.Room) error {
	data, err := json.Marshal(roomEnvelope{Version: 1, Room: room})
	if err != nil {
		return fmt.Errorf("marshal room: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.key(room.Code), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	if !ok {
		return domain.ErrRoomExists
	}
	return nil
}

func (s *RoomStore) Get(ctx context.Context, code string) (*domain.Room, int64, error) {
	raw, err := s.client.Get(ctx, s.key(code)).Bytes()
	if err == redis.Nil {
		return nil, 0, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("get room: %w", err)
	}
	env := roomEnvelope{}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, 0, fmt.Errorf("unmarshal room: %w", err)
	}
	return env.Room, env.Version, nil
}

func (s *RoomStore) Update(ctx context.Context, room *domain.Room, version int64) error {
	key := s.key(room.Code)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return domain.ErrRoomNotFound
		}
		if err != nil {
			return err
		}
		env := roomEnvelope{}
		if err := json.Unmarshal(raw, &env); err != nil {
			return fmt.Errorf("unmarshal room: %w", err)
		}
		if env.Version != version {
			return domain.ErrConflict
		}
		data, err := json.Marshal(roomEnvelope{Version: version + 1, Room: room})
		if err != nil {
			return fmt.Errorf("marshal room: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		// Key changed between WATCH and EXEC.
		return domain.ErrConflict
	}
	return err
}

func (s *RoomStore) key(code string) string {
	return "trivia:room:" + code
}
