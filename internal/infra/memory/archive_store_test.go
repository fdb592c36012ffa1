package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"trivia-room-service/internal/domain"
)

func sampleQuiz(id string, createdAt time.Time) domain.Quiz {
	return domain.Quiz{
		ID:   id,
		Name: "sample " + id,
		Questions: []domain.Question{
			{
				Text:         "What is 2 + 2?",
				Options:      []string{"3", "4", "5", "6"},
				CorrectIndex: 1,
				Explanation:  "Basic arithmetic.",
			},
		},
		CreatedAt: createdAt,
	}
}

func TestArchiveStoreSaveGetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewArchiveStore(time.Hour)

	quiz := sampleQuiz("quiz-1", time.Now())
	if err := store.Save(ctx, quiz); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Get(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != quiz.Name || len(got.Questions) != 1 {
		t.Fatalf("unexpected quiz %+v", got)
	}

	if err := store.Delete(ctx, "quiz-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "quiz-1"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestArchiveStoreListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewArchiveStore(time.Hour)
	base := time.Now()

	_ = store.Save(ctx, sampleQuiz("old", base.Add(-time.Hour)))
	_ = store.Save(ctx, sampleQuiz("new", base))

	summaries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(summaries) != 2 || summaries[0].ID != "new" {
		t.Fatalf("expected newest first, got %+v", summaries)
	}
	if summaries[0].QuestionCount != 1 {
		t.Fatalf("expected question count 1, got %d", summaries[0].QuestionCount)
	}
}

func TestArchiveStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	clock := func() time.Time { return now }
	store := NewArchiveStoreWithClock(time.Hour, clock)

	if err := store.Save(ctx, sampleQuiz("quiz-1", now)); err != nil {
		t.Fatalf("save: %v", err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := store.Get(ctx, "quiz-1"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected expired quiz to be gone, got %v", err)
	}
	summaries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(summaries) != 0 {
		t.Fatalf("expected expired quiz excluded from list, got %+v", summaries)
	}
}
