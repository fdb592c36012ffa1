package domain

import "time"

// Status is the lifecycle state of a room.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// Phase is the sub-state of an active room. It is meaningful only while
// Status is playing.
type Phase string

const (
	PhaseWaiting   Phase = "waiting"
	PhaseAnswering Phase = "answering"
	PhaseRevealing Phase = "revealing"
)

// Visibility controls whether a room is listed publicly.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// OptionCount is the fixed number of choices per question.
const OptionCount = 4

// RoomCodeLength is the length of generated room codes.
const RoomCodeLength = 6

// Player is a participant in a room.
type Player struct {
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Question models an MCQ question with exactly four options.
type Question struct {
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Explanation  string   `json:"explanation"`
}

// NewQuestion validates the MCQ shape before a question can enter a room or
// the archive.
func NewQuestion(text string, options []string, correctIndex int, explanation string) (Question, error) {
	q := Question{Text: text, Options: options, CorrectIndex: correctIndex, Explanation: explanation}
	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	return q, nil
}

// Validate checks the 4-option invariant and the correct-index range.
func (q Question) Validate() error {
	if q.Text == "" {
		return ErrInvalidQuestion
	}
	if len(q.Options) != OptionCount {
		return ErrInvalidQuestion
	}
	for _, opt := range q.Options {
		if opt == "" {
			return ErrInvalidQuestion
		}
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= OptionCount {
		return ErrInvalidQuestion
	}
	return nil
}

// AnswerRecord is one entry in a player's review history. It snapshots the
// question so review survives a later question reload.
type AnswerRecord struct {
	QuestionIndex int      `json:"questionIndex"`
	QuestionText  string   `json:"questionText"`
	Options       []string `json:"options"`
	CorrectIndex  int      `json:"correctIndex"`
	Explanation   string   `json:"explanation"`
	ChosenIndex   int      `json:"chosenIndex"`
	IsCorrect     bool     `json:"isCorrect"`
}

// Room is one trivia session: players, questions, and live game state.
// Rooms are persisted whole; every mutation goes through a read-modify-write
// cycle against the room store.
type Room struct {
	Code       string     `json:"code"`
	Name       string     `json:"name"`
	Visibility Visibility `json:"visibility"`

	Players   []Player   `json:"players"`
	Questions []Question `json:"questions"`

	Status               Status    `json:"status"`
	Phase                Phase     `json:"phase"`
	CurrentQuestionIndex int       `json:"currentQuestionIndex"`
	QuestionStartTime    time.Time `json:"questionStartTime"`
	RevealStartTime      time.Time `json:"revealStartTime"`

	Scores        map[string]int            `json:"scores"`
	PlayerAnswers map[string][]AnswerRecord `json:"playerAnswers"`
	// CurrentQuestionAnswers guards against double scoring: player name to
	// chosen option index, scoped to the current question only.
	CurrentQuestionAnswers map[string]int `json:"currentQuestionAnswers"`

	LastUpdate time.Time `json:"lastUpdate"`
}

// NewRoom builds a waiting room with an already-generated code.
func NewRoom(code, name string, visibility Visibility, now time.Time) (*Room, error) {
	if !ValidRoomCode(code) {
		return nil, ErrInvalidRoomCode
	}
	if visibility != VisibilityPublic && visibility != VisibilityPrivate {
		visibility = VisibilityPrivate
	}
	return &Room{
		Code:                   code,
		Name:                   name,
		Visibility:             visibility,
		Players:                []Player{},
		Questions:              []Question{},
		Status:                 StatusWaiting,
		Phase:                  PhaseWaiting,
		Scores:                 map[string]int{},
		PlayerAnswers:          map[string][]AnswerRecord{},
		CurrentQuestionAnswers: map[string]int{},
		LastUpdate:             now,
	}, nil
}

// ValidRoomCode reports whether code is six upper-case alphanumerics.
func ValidRoomCode(code string) bool {
	if len(code) != RoomCodeLength {
		return false
	}
	for _, c := range code {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// HasPlayer reports whether name has joined the room.
func (r *Room) HasPlayer(name string) bool {
	for _, p := range r.Players {
		if p.Name == name {
			return true
		}
	}
	return false
}

// EnsurePlayer registers name if unknown, initializing score and history.
// Late registration keeps the scores/playerAnswers key sets consistent with
// the player list for join-on-submit.
func (r *Room) EnsurePlayer(name string, now time.Time) {
	if r.HasPlayer(name) {
		return
	}
	r.Players = append(r.Players, Player{Name: name, JoinedAt: now})
	if _, ok := r.Scores[name]; !ok {
		r.Scores[name] = 0
	}
	if _, ok := r.PlayerAnswers[name]; !ok {
		r.PlayerAnswers[name] = []AnswerRecord{}
	}
}

// Touch bumps the advisory staleness marker.
func (r *Room) Touch(now time.Time) {
	r.LastUpdate = now
}

// Quiz is a named, archived question set independent of any room.
type Quiz struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Questions   []Question `json:"questions"`
	SourceFiles []string   `json:"sourceFiles,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// NewQuiz validates every question before the set can be archived.
func NewQuiz(id, name string, questions []Question, sourceFiles []string, now time.Time) (Quiz, error) {
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return Quiz{}, err
		}
	}
	return Quiz{ID: id, Name: name, Questions: questions, SourceFiles: sourceFiles, CreatedAt: now}, nil
}

// QuizSummary is a listing-friendly view of an archived quiz.
type QuizSummary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	QuestionCount int       `json:"questionCount"`
	CreatedAt     time.Time `json:"createdAt"`
}
