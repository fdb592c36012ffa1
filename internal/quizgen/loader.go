// Package quizgen assembles a room's question list from the generation
// capability and the quiz archive, and persists new sets for replay.
package quizgen

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"trivia-room-service/internal/domain"
)

// Generator is the external question-authoring capability. It may fail or
// return malformed output; implementations surface both as
// domain.ErrUpstreamFailure.
type Generator interface {
	GenerateQuestions(ctx context.Context, content string, count int) ([]domain.Question, error)
}

// Archive is the slice of the quiz archive the loader needs.
type Archive interface {
	Get(ctx context.Context, id string) (domain.Quiz, error)
	Save(ctx context.Context, quiz domain.Quiz) error
}

// Request describes one load-questions call.
type Request struct {
	Content     string
	Count       int
	ArchiveID   string
	Mix         bool
	MixCount    int
	QuizName    string
	SourceFiles []string
}

// DefaultQuestionCount applies when the caller does not ask for a count.
const DefaultQuestionCount = 5

// Loader implements the load strategies: archived set verbatim, mix of
// archived sample plus fresh questions, or pure generation.
type Loader struct {
	gen     Generator
	archive Archive
	now     func() time.Time
	newID   func() string

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewLoader(gen Generator, archive Archive) *Loader {
	return &Loader{
		gen:     gen,
		archive: archive,
		now:     time.Now,
		newID:   uuid.NewString,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Result is the assembled question set plus the archive entry it came from
// or produced.
type Result struct {
	Questions []domain.Question
	QuizID    string
	QuizName  string
}

// Load assembles, shuffles, and (when new content was generated) archives a
// question set. On any generation or validation failure the error surfaces
// untouched so the caller leaves the room's question list as it was.
func (l *Loader) Load(ctx context.Context, req Request) (Result, error) {
	count := req.Count
	if count <= 0 {
		count = DefaultQuestionCount
	}

	if req.ArchiveID != "" && !req.Mix {
		quiz, err := l.archive.Get(ctx, req.ArchiveID)
		if err != nil {
			return Result{}, err
		}
		return Result{
			Questions: l.shuffle(quiz.Questions),
			QuizID:    quiz.ID,
			QuizName:  quiz.Name,
		}, nil
	}

	var questions []domain.Question
	if req.ArchiveID != "" {
		quiz, err := l.archive.Get(ctx, req.ArchiveID)
		if err != nil {
			return Result{}, err
		}
		mixCount := req.MixCount
		if mixCount <= 0 || mixCount > count {
			mixCount = count / 2
		}
		questions = l.sample(quiz.Questions, count-mixCount)
		generated, err := l.generate(ctx, req.Content, mixCount)
		if err != nil {
			return Result{}, err
		}
		questions = append(questions, generated...)
	} else {
		generated, err := l.generate(ctx, req.Content, count)
		if err != nil {
			return Result{}, err
		}
		questions = generated
	}

	questions = l.shuffle(questions)

	quiz, err := domain.NewQuiz(l.newID(), l.quizName(req), questions, req.SourceFiles, l.now())
	if err != nil {
		return Result{}, err
	}
	if err := l.archive.Save(ctx, quiz); err != nil {
		return Result{}, err
	}
	return Result{Questions: questions, QuizID: quiz.ID, QuizName: quiz.Name}, nil
}

func (l *Loader) generate(ctx context.Context, content string, count int) ([]domain.Question, error) {
	questions, err := l.gen.GenerateQuestions(ctx, content, count)
	if err != nil {
		return nil, err
	}
	if len(questions) < count {
		return nil, fmt.Errorf("%w: generator returned %d of %d questions", domain.ErrUpstreamFailure, len(questions), count)
	}
	questions = questions[:count]
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
		}
	}
	return questions, nil
}

// sample draws n questions uniformly without replacement. Fewer than n
// available means all of them.
func (l *Loader) sample(questions []domain.Question, n int) []domain.Question {
	if n >= len(questions) {
		return l.shuffle(questions)
	}
	l.mu.Lock()
	perm := l.rnd.Perm(len(questions))
	l.mu.Unlock()
	out := make([]domain.Question, 0, n)
	for _, idx := range perm[:n] {
		out = append(out, questions[idx])
	}
	return out
}

func (l *Loader) shuffle(questions []domain.Question) []domain.Question {
	out := append([]domain.Question(nil), questions...)
	l.mu.Lock()
	l.rnd.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	l.mu.Unlock()
	return out
}

func (l *Loader) quizName(req Request) string {
	if req.QuizName != "" {
		return req.QuizName
	}
	if len(req.SourceFiles) > 0 {
		names := make([]string, 0, len(req.SourceFiles))
		for _, f := range req.SourceFiles {
			names = append(names, strings.TrimSuffix(filepath.Base(f), filepath.Ext(f)))
		}
		return strings.Join(names, ", ")
	}
	return "Quiz " + l.now().Format("2006-01-02 15:04")
}
