package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"trivia-room-service/internal/app"
	"trivia-room-service/internal/domain"
)

// ArchiveCache fronts a durable archive store with Redis so the mix/replay
// read path avoids repeated backing-store hits. Quizzes are cached whole as
// JSON strings: GET/SET trivia:quiz:{id}.
type ArchiveCache struct {
	client *redis.Client
	inner  app.ArchiveRepository
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewArchiveCache(client *redis.Client, inner app.ArchiveRepository, ttl time.Duration) *ArchiveCache {
	return &ArchiveCache{
		client: client,
		inner:  inner,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *ArchiveCache) Save(ctx context.Context, quiz domain.Quiz) error {
	if err := c.inner.Save(ctx, quiz); err != nil {
		return err
	}
	if data, err := json.Marshal(quiz); err == nil {
		// best-effort warm; the store remains the source of truth
		_ = c.client.Set(ctx, c.key(quiz.ID), data, c.ttlWithJitter()).Err()
	}
	return nil
}

func (c *ArchiveCache) Get(ctx context.Context, id string) (domain.Quiz, error) {
	if quiz, ok := c.cached(ctx, id); ok {
		return quiz, nil
	}

	result, err, _ := c.sf.Do(id, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := c.cached(ctx, id); ok {
			return quiz, nil
		}
		quiz, err := c.inner.Get(ctx, id)
		if err != nil {
			return domain.Quiz{}, err
		}
		if data, err := json.Marshal(quiz); err == nil {
			_ = c.client.Set(ctx, c.key(id), data, c.ttlWithJitter()).Err()
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (c *ArchiveCache) List(ctx context.Context) ([]domain.QuizSummary, error) {
	return c.inner.List(ctx)
}

func (c *ArchiveCache) Delete(ctx context.Context, id string) error {
	if err := c.inner.Delete(ctx, id); err != nil {
		return err
	}
	_ = c.client.Del(ctx, c.key(id)).Err()
	return nil
}

func (c *ArchiveCache) cached(ctx context.Context, id string) (domain.Quiz, bool) {
	raw, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		return domain.Quiz{}, false
	}
	quiz := domain.Quiz{}
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

func (c *ArchiveCache) key(id string) string {
	return "trivia:quiz:" + id
}

func (c *ArchiveCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
