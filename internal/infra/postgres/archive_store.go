// Package postgres holds the durable quiz archive.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-room-service/internal/domain"
)

// ArchiveStore keeps archived quizzes as JSONB rows. Expiry is a column
// checked on read and reaped lazily on list; there is no background sweeper.
type ArchiveStore struct {
	pool  *pgxpool.Pool
	ttl   time.Duration
	clock func() time.Time
}

func NewArchiveStore(pool *pgxpool.Pool, ttl time.Duration) *ArchiveStore {
	return &ArchiveStore{pool: pool, ttl: ttl, clock: time.Now}
}

func (s *ArchiveStore) Save(ctx context.Context, quiz domain.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	var expiresAt *time.Time
	if s.ttl > 0 {
		t := s.clock().Add(s.ttl)
		expiresAt = &t
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO quizzes (id, name, data, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, data=EXCLUDED.data, expires_at=EXCLUDED.expires_at`,
		quiz.ID, quiz.Name, data, quiz.CreatedAt, expiresAt)
	if err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}
	return nil
}

func (s *ArchiveStore) Get(ctx context.Context, id string) (domain.Quiz, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `
		SELECT data FROM quizzes
		WHERE id=$1 AND (expires_at IS NULL OR expires_at > $2)`,
		id, s.clock()).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	quiz := domain.Quiz{}
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}

func (s *ArchiveStore) List(ctx context.Context) ([]domain.QuizSummary, error) {
	now := s.clock()
	// reap expired rows while we are here
	if _, err := s.pool.Exec(ctx, `DELETE FROM quizzes WHERE expires_at IS NOT NULL AND expires_at <= $1`, now); err != nil {
		return nil, fmt.Errorf("reap quizzes: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, name, jsonb_array_length(data->'questions'), created_at
		FROM quizzes
		WHERE expires_at IS NULL OR expires_at > $1
		ORDER BY created_at DESC`, now)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var summaries []domain.QuizSummary
	for rows.Next() {
		var s domain.QuizSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.QuestionCount, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (s *ArchiveStore) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM quizzes WHERE id=$1`, id); err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	return nil
}
