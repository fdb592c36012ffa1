// Package app wires the session engine: every operation runs one
// read-mutate-write cycle against the room store, retried on optimistic
// conflicts.
package app

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"trivia-room-service/internal/domain"
	"trivia-room-service/internal/game"
	"trivia-room-service/internal/quizgen"
)

// RoomRepository abstracts the room store (in-memory, Redis, etc). Get
// returns a private copy plus a version token; Update fails with
// domain.ErrConflict when the stored version moved, which forces the caller
// to redo the whole cycle. Update also refreshes the room's expiry.
type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	Get(ctx context.Context, code string) (*domain.Room, int64, error)
	Update(ctx context.Context, room *domain.Room, version int64) error
}

// ArchiveRepository stores named quizzes for replay and mixing.
type ArchiveRepository interface {
	Save(ctx context.Context, quiz domain.Quiz) error
	Get(ctx context.Context, id string) (domain.Quiz, error)
	List(ctx context.Context) ([]domain.QuizSummary, error)
	Delete(ctx context.Context, id string) error
}

// maxConflictRetries bounds how often a lost optimistic race is replayed
// before surfacing domain.ErrConflict to the caller.
const maxConflictRetries = 3

// maxCodeAttempts bounds room code regeneration on collision.
const maxCodeAttempts = 5

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RoomService orchestrates the session engine behind the external
// operations. Handlers are stateless; all shared state lives in the stores.
type RoomService struct {
	rooms   RoomRepository
	archive ArchiveRepository
	loader  *quizgen.Loader
	rules   game.Rules
	now     func() time.Time
	logger  *slog.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewRoomService(rooms RoomRepository, archive ArchiveRepository, loader *quizgen.Loader, rules game.Rules) *RoomService {
	return &RoomService{
		rooms:   rooms,
		archive: archive,
		loader:  loader,
		rules:   rules,
		now:     time.Now,
		logger:  slog.Default(),
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewRoomServiceWithClock is test-only for deterministic timestamps.
func NewRoomServiceWithClock(rooms RoomRepository, archive ArchiveRepository, loader *quizgen.Loader, rules game.Rules, now func() time.Time) *RoomService {
	s := NewRoomService(rooms, archive, loader, rules)
	s.now = now
	return s
}

// Rules exposes the configured session rules (the transport layer reports
// windows to clients).
func (s *RoomService) Rules() game.Rules {
	return s.rules
}

// CreateRoom generates a code, rejects collisions, and stores a fresh
// waiting room.
func (s *RoomService) CreateRoom(ctx context.Context, name string, visibility domain.Visibility) (*domain.Room, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		room, err := domain.NewRoom(s.newCode(), name, visibility, s.now())
		if err != nil {
			return nil, err
		}
		err = s.rooms.Create(ctx, room)
		if errors.Is(err, domain.ErrRoomExists) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return room, nil
	}
	return nil, domain.ErrRoomExists
}

// JoinRoom registers a player and returns the room as stored.
func (s *RoomService) JoinRoom(ctx context.Context, code, player string) (*domain.Room, error) {
	return s.update(ctx, code, func(room *domain.Room) (bool, error) {
		if err := game.Join(room, player, s.now()); err != nil {
			return false, err
		}
		return true, nil
	})
}

// LoadQuestions assembles a question set per the request and installs it in
// the room. Generation happens outside the store cycle; a failing upstream
// leaves the room untouched.
func (s *RoomService) LoadQuestions(ctx context.Context, code string, req quizgen.Request) (quizgen.Result, error) {
	room, _, err := s.rooms.Get(ctx, code)
	if err != nil {
		return quizgen.Result{}, err
	}
	if room.Status == domain.StatusPlaying {
		return quizgen.Result{}, domain.ErrInvalidState
	}

	result, err := s.loader.Load(ctx, req)
	if err != nil {
		return quizgen.Result{}, err
	}

	if _, err := s.update(ctx, code, func(room *domain.Room) (bool, error) {
		if err := game.SetQuestions(room, result.Questions, s.now()); err != nil {
			return false, err
		}
		return true, nil
	}); err != nil {
		return quizgen.Result{}, err
	}
	return result, nil
}

// LoadArchivedQuiz installs an archived set verbatim (order reshuffled).
func (s *RoomService) LoadArchivedQuiz(ctx context.Context, code, quizID string) (quizgen.Result, error) {
	return s.LoadQuestions(ctx, code, quizgen.Request{ArchiveID: quizID})
}

// StartGame begins (or restarts) the session.
func (s *RoomService) StartGame(ctx context.Context, code string) error {
	_, err := s.update(ctx, code, func(room *domain.Room) (bool, error) {
		if err := game.Start(room, s.now()); err != nil {
			return false, err
		}
		return true, nil
	})
	return err
}

// CurrentView resolves at most one pending phase boundary, persists it if
// one fired, and returns the caller-facing snapshot.
func (s *RoomService) CurrentView(ctx context.Context, code string) (game.View, error) {
	room, err := s.update(ctx, code, func(room *domain.Room) (bool, error) {
		return game.Advance(room, s.now(), s.rules), nil
	})
	if err != nil {
		return game.View{}, err
	}
	return game.Snapshot(room, s.now(), s.rules), nil
}

// SubmitAnswer records one player's answer for the current question. A
// resubmission is reported as a duplicate, not an error, and writes nothing.
func (s *RoomService) SubmitAnswer(ctx context.Context, code, player string, chosen int) (game.SubmitOutcome, map[string]int, error) {
	var outcome game.SubmitOutcome
	room, err := s.update(ctx, code, func(room *domain.Room) (bool, error) {
		changed := game.Advance(room, s.now(), s.rules)
		var err error
		outcome, err = game.Submit(room, player, chosen, s.now(), s.rules)
		if err != nil {
			return false, err
		}
		return changed || !outcome.Duplicate, nil
	})
	if err != nil {
		return game.SubmitOutcome{}, nil, err
	}
	return outcome, game.Snapshot(room, s.now(), s.rules).Scores, nil
}

// Results returns final scores, the winner, and the player's review history.
func (s *RoomService) Results(ctx context.Context, code, player string) (game.Results, error) {
	room, _, err := s.rooms.Get(ctx, code)
	if err != nil {
		return game.Results{}, err
	}
	return game.ResultsFor(room, player), nil
}

// ListQuizzes lists the archive.
func (s *RoomService) ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error) {
	return s.archive.List(ctx)
}

// DeleteQuiz removes an archived quiz.
func (s *RoomService) DeleteQuiz(ctx context.Context, id string) error {
	return s.archive.Delete(ctx, id)
}

// update runs one read-mutate-write cycle. mutate reports whether the room
// copy is dirty; clean cycles skip the store write so reads stay cheap and
// duplicates stay side-effect free. Conflicts replay the whole cycle.
func (s *RoomService) update(ctx context.Context, code string, mutate func(*domain.Room) (bool, error)) (*domain.Room, error) {
	var lastErr error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		room, version, err := s.rooms.Get(ctx, code)
		if err != nil {
			return nil, err
		}
		dirty, err := mutate(room)
		if err != nil {
			return nil, err
		}
		if !dirty {
			return room, nil
		}
		err = s.rooms.Update(ctx, room, version)
		if err == nil {
			return room, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		lastErr = err
		s.logger.Warn("room write conflict, retrying", "room", code, "attempt", attempt+1)
	}
	return nil, lastErr
}

func (s *RoomService) newCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	code := make([]byte, domain.RoomCodeLength)
	for i := range code {
		code[i] = codeAlphabet[s.rnd.Intn(len(codeAlphabet))]
	}
	return string(code)
}
