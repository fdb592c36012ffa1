package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"trivia-room-service/internal/domain"
	"trivia-room-service/internal/infra/memory"
)

type countingArchive struct {
	*memory.ArchiveStore
	gets int
}

func (a *countingArchive) Get(ctx context.Context, id string) (domain.Quiz, error) {
	a.gets++
	return a.ArchiveStore.Get(ctx, id)
}

func newTestCache(t *testing.T) (*ArchiveCache, *countingArchive, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	inner := &countingArchive{ArchiveStore: memory.NewArchiveStore(time.Hour)}
	return NewArchiveCache(client, inner, time.Minute), inner, mr
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:   "quiz-1",
		Name: "sample",
		Questions: []domain.Question{
			{
				Text:         "What is 2 + 2?",
				Options:      []string{"3", "4", "5", "6"},
				CorrectIndex: 1,
				Explanation:  "Basic arithmetic.",
			},
		},
		CreatedAt: time.Now(),
	}
}

func TestArchiveCacheServesSecondReadFromRedis(t *testing.T) {
	ctx := context.Background()
	cache, inner, mr := newTestCache(t)

	if err := inner.Save(ctx, sampleQuiz()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := cache.Get(ctx, "quiz-1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if inner.gets != 1 {
		t.Fatalf("expected one backing read, got %d", inner.gets)
	}
	if !mr.Exists("trivia:quiz:quiz-1") {
		t.Fatalf("expected cache key to be set")
	}

	if _, err := cache.Get(ctx, "quiz-1"); err != nil {
		t.Fatalf("get 2: %v", err)
	}
	if inner.gets != 1 {
		t.Fatalf("expected cache hit, backing reads=%d", inner.gets)
	}
}

func TestArchiveCacheSaveWarmsCache(t *testing.T) {
	ctx := context.Background()
	cache, inner, mr := newTestCache(t)

	if err := cache.Save(ctx, sampleQuiz()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("trivia:quiz:quiz-1") {
		t.Fatalf("expected cache warmed on save")
	}
	if _, err := cache.Get(ctx, "quiz-1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if inner.gets != 0 {
		t.Fatalf("expected zero backing reads, got %d", inner.gets)
	}
}

func TestArchiveCacheDeleteInvalidates(t *testing.T) {
	ctx := context.Background()
	cache, _, mr := newTestCache(t)

	if err := cache.Save(ctx, sampleQuiz()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := cache.Delete(ctx, "quiz-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("trivia:quiz:quiz-1") {
		t.Fatalf("expected cache key removed")
	}
	if _, err := cache.Get(ctx, "quiz-1"); err == nil {
		t.Fatalf("expected quiz gone after delete")
	}
}
