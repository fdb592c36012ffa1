// Package game holds the pure session logic: the room state machine, the
// scoring rule, and the answer tracker. Functions here mutate an in-memory
// Room copy only; persistence and retry live in the app layer.
package game

import (
	"time"

	"trivia-room-service/internal/domain"
)

// Advance resolves at most one time-based phase boundary against the wall
// clock and reports whether the room changed. There is no background
// scheduler; whichever read crosses a threshold performs the transition.
// Callers that skipped more than one boundary catch up one evaluation at a
// time.
func Advance(room *domain.Room, now time.Time, r Rules) bool {
	if room.Status != domain.StatusPlaying {
		return false
	}
	switch room.Phase {
	case domain.PhaseAnswering:
		if now.Sub(room.QuestionStartTime) >= r.AnswerWindow {
			room.Phase = domain.PhaseRevealing
			room.RevealStartTime = now
			room.Touch(now)
			return true
		}
	case domain.PhaseRevealing:
		if now.Sub(room.RevealStartTime) >= r.RevealWindow {
			room.CurrentQuestionIndex++
			room.CurrentQuestionAnswers = map[string]int{}
			if room.CurrentQuestionIndex >= len(room.Questions) {
				room.Status = domain.StatusFinished
				room.Phase = domain.PhaseWaiting
			} else {
				room.Phase = domain.PhaseAnswering
				room.QuestionStartTime = now
			}
			room.Touch(now)
			return true
		}
	}
	return false
}

// QuestionView is the caller-facing shape of the current question. The
// correct index and explanation are withheld while the question still
// accepts answers.
type QuestionView struct {
	Index        int      `json:"index"`
	Total        int      `json:"total"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex *int     `json:"correctIndex,omitempty"`
	Explanation  string   `json:"explanation,omitempty"`
}

// View is one poll of the room's live state.
type View struct {
	Code            string          `json:"code"`
	Name            string          `json:"name"`
	Status          domain.Status   `json:"status"`
	Phase           domain.Phase    `json:"phase"`
	Question        *QuestionView   `json:"question,omitempty"`
	TimeLeftSeconds float64         `json:"timeLeftSeconds"`
	Players         []domain.Player `json:"players"`
	Scores          map[string]int  `json:"scores"`
	AnswerCount     int             `json:"answerCount"`
}

// Snapshot builds the view for an already-advanced room. It does not mutate.
func Snapshot(room *domain.Room, now time.Time, r Rules) View {
	v := View{
		Code:        room.Code,
		Name:        room.Name,
		Status:      room.Status,
		Phase:       room.Phase,
		Players:     append([]domain.Player(nil), room.Players...),
		Scores:      copyScores(room.Scores),
		AnswerCount: len(room.CurrentQuestionAnswers),
	}
	if room.Status != domain.StatusPlaying {
		return v
	}
	q := room.Questions[room.CurrentQuestionIndex]
	qv := &QuestionView{
		Index:   room.CurrentQuestionIndex,
		Total:   len(room.Questions),
		Text:    q.Text,
		Options: append([]string(nil), q.Options...),
	}
	switch room.Phase {
	case domain.PhaseAnswering:
		v.TimeLeftSeconds = timeLeft(r.AnswerWindow, now.Sub(room.QuestionStartTime)).Seconds()
	case domain.PhaseRevealing:
		correct := q.CorrectIndex
		qv.CorrectIndex = &correct
		qv.Explanation = q.Explanation
		v.TimeLeftSeconds = timeLeft(r.RevealWindow, now.Sub(room.RevealStartTime)).Seconds()
	}
	v.Question = qv
	return v
}

// SubmitOutcome reports what one submission did to the room.
type SubmitOutcome struct {
	Duplicate  bool
	Correct    bool
	Awarded    int
	TotalScore int
}

// Submit is the answer tracker. It enforces at-most-one scored submission
// per (player, question): a resubmission returns Duplicate without touching
// score or history. Unknown players are registered on first submission.
// The caller must have run Advance first so the phase reflects the clock.
func Submit(room *domain.Room, player string, chosen int, now time.Time, r Rules) (SubmitOutcome, error) {
	if room.Status != domain.StatusPlaying || room.Phase != domain.PhaseAnswering {
		return SubmitOutcome{}, domain.ErrInvalidState
	}
	if chosen < 0 || chosen >= domain.OptionCount {
		return SubmitOutcome{}, domain.ErrInvalidChoice
	}

	room.EnsurePlayer(player, now)
	if _, answered := room.CurrentQuestionAnswers[player]; answered {
		return SubmitOutcome{Duplicate: true, TotalScore: room.Scores[player]}, nil
	}

	q := room.Questions[room.CurrentQuestionIndex]
	correct := chosen == q.CorrectIndex
	left := timeLeft(r.AnswerWindow, now.Sub(room.QuestionStartTime))
	awarded := Score(correct, left, r)

	room.PlayerAnswers[player] = append(room.PlayerAnswers[player], domain.AnswerRecord{
		QuestionIndex: room.CurrentQuestionIndex,
		QuestionText:  q.Text,
		Options:       append([]string(nil), q.Options...),
		CorrectIndex:  q.CorrectIndex,
		Explanation:   q.Explanation,
		ChosenIndex:   chosen,
		IsCorrect:     correct,
	})
	room.Scores[player] += awarded
	room.CurrentQuestionAnswers[player] = chosen
	room.Touch(now)

	return SubmitOutcome{Correct: correct, Awarded: awarded, TotalScore: room.Scores[player]}, nil
}

// Join registers a new player. Names are unique within a room.
func Join(room *domain.Room, player string, now time.Time) error {
	if room.HasPlayer(player) {
		return domain.ErrPlayerNameTaken
	}
	room.EnsurePlayer(player, now)
	room.Touch(now)
	return nil
}

// Start begins (or restarts) the game. Scores and history reset for every
// known player; the question list must be non-empty.
func Start(room *domain.Room, now time.Time) error {
	if len(room.Questions) == 0 {
		return domain.ErrInvalidState
	}
	room.Status = domain.StatusPlaying
	room.Phase = domain.PhaseAnswering
	room.CurrentQuestionIndex = 0
	room.QuestionStartTime = now
	room.RevealStartTime = time.Time{}
	for _, p := range room.Players {
		room.Scores[p.Name] = 0
		room.PlayerAnswers[p.Name] = []domain.AnswerRecord{}
	}
	room.CurrentQuestionAnswers = map[string]int{}
	room.Touch(now)
	return nil
}

// SetQuestions replaces the room's question list. Loading is rejected while
// a game is in progress; the list stays fixed until the next load.
func SetQuestions(room *domain.Room, questions []domain.Question, now time.Time) error {
	if room.Status == domain.StatusPlaying {
		return domain.ErrInvalidState
	}
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return err
		}
	}
	room.Questions = append([]domain.Question(nil), questions...)
	room.Status = domain.StatusWaiting
	room.Phase = domain.PhaseWaiting
	room.CurrentQuestionIndex = 0
	room.CurrentQuestionAnswers = map[string]int{}
	room.Touch(now)
	return nil
}

// Results is the post-game summary for one player.
type Results struct {
	Scores  map[string]int        `json:"scores"`
	Winner  string                `json:"winner"`
	History []domain.AnswerRecord `json:"history"`
}

// ResultsFor computes final scores, the winner (highest score, ties broken
// by earlier join), and the requesting player's answer history.
func ResultsFor(room *domain.Room, player string) Results {
	res := Results{
		Scores:  copyScores(room.Scores),
		History: append([]domain.AnswerRecord(nil), room.PlayerAnswers[player]...),
	}
	var winner *domain.Player
	for i := range room.Players {
		p := &room.Players[i]
		if winner == nil {
			winner = p
			continue
		}
		if room.Scores[p.Name] > room.Scores[winner.Name] {
			winner = p
		} else if room.Scores[p.Name] == room.Scores[winner.Name] && p.JoinedAt.Before(winner.JoinedAt) {
			winner = p
		}
	}
	if winner != nil {
		res.Winner = winner.Name
	}
	return res
}

func timeLeft(window, elapsed time.Duration) time.Duration {
	left := window - elapsed
	if left < 0 {
		return 0
	}
	return left
}

func copyScores(scores map[string]int) map[string]int {
	out := make(map[string]int, len(scores))
	for name, score := range scores {
		out[name] = score
	}
	return out
}
