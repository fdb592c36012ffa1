package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"trivia-room-service/internal/domain"
)

// ArchiveStore keeps archived quizzes in memory with TTL-based expiry.
type ArchiveStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu      sync.RWMutex
	quizzes map[string]archivedQuiz
}

type archivedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewArchiveStore(ttl time.Duration) *ArchiveStore {
	return &ArchiveStore{
		ttl:     ttl,
		clock:   time.Now,
		quizzes: make(map[string]archivedQuiz),
	}
}

// NewArchiveStoreWithClock is test-only for deterministic expiry.
func NewArchiveStoreWithClock(ttl time.Duration, clock func() time.Time) *ArchiveStore {
	s := NewArchiveStore(ttl)
	s.clock = clock
	return s
}

func (s *ArchiveStore) Save(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expiresAt time.Time
	if s.ttl > 0 {
		expiresAt = s.clock().Add(s.ttl)
	}
	s.quizzes[quiz.ID] = archivedQuiz{quiz: quiz, expiresAt: expiresAt}
	return nil
}

func (s *ArchiveStore) Get(_ context.Context, id string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.quizzes[id]
	if !ok || s.expired(entry) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return entry.quiz, nil
}

func (s *ArchiveStore) List(_ context.Context) ([]domain.QuizSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summaries := make([]domain.QuizSummary, 0, len(s.quizzes))
	for _, entry := range s.quizzes {
		if s.expired(entry) {
			continue
		}
		summaries = append(summaries, domain.QuizSummary{
			ID:            entry.quiz.ID,
			Name:          entry.quiz.Name,
			QuestionCount: len(entry.quiz.Questions),
			CreatedAt:     entry.quiz.CreatedAt,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries, nil
}

func (s *ArchiveStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.quizzes, id)
	return nil
}

func (s *ArchiveStore) expired(entry archivedQuiz) bool {
	return !entry.expiresAt.IsZero() && !entry.expiresAt.After(s.clock())
}
