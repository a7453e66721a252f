package battle

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status tracks where a battle sits in its lifecycle. It only moves forward.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

func (s Status) rank() int {
	switch s {
	case StatusWaiting:
		return 0
	case StatusInProgress:
		return 1
	case StatusCompleted:
		return 2
	default:
		return -1
	}
}

// Mode selects how questions are resolved.
type Mode string

const (
	// ModeTime: first correct submission wins the question.
	ModeTime Mode = "time"
	// ModeQuality: each question has a fixed time budget and may expire unanswered.
	ModeQuality Mode = "quality"

	legacyModeSpeed = "speed"
)

// ParseMode accepts the canonical labels plus the legacy "speed" alias for time mode.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case string(ModeTime), legacyModeSpeed:
		return ModeTime, true
	case string(ModeQuality):
		return ModeQuality, true
	}
	return "", false
}

// Difficulty is the question tier a battle draws from.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) valid() bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

// Side identifies which slot of a battle a connection occupies.
type Side string

const (
	SideCreator    Side = "creator"
	SideChallenger Side = "challenger"
)

// Other returns the opposing side.
func (s Side) Other() Side {
	if s == SideCreator {
		return SideChallenger
	}
	return SideCreator
}

// QuestionStatus tracks a single assigned question.
type QuestionStatus string

const (
	QuestionNotStarted QuestionStatus = "not-started"
	QuestionInProgress QuestionStatus = "in-progress"
	QuestionCompleted  QuestionStatus = "completed"
)

const (
	MinQuestions                = 3
	MaxQuestions                = 10
	DefaultTimeLimitPerQuestion = 300
	minTextLength               = 3
)

// ParticipantID is the opaque identity of a user taking part in a battle.
// Compare with Equal, never by formatting.
type ParticipantID struct {
	value uuid.UUID
}

// NewParticipantID wraps a user id.
func NewParticipantID(id uuid.UUID) ParticipantID {
	return ParticipantID{value: id}
}

// ParseParticipantID parses the textual form produced by String.
func ParseParticipantID(s string) (ParticipantID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ParticipantID{}, fmt.Errorf("parse participant id: %w", err)
	}
	return ParticipantID{value: id}, nil
}

func (p ParticipantID) Equal(other ParticipantID) bool { return p.value == other.value }

func (p ParticipantID) IsZero() bool { return p.value == uuid.Nil }

func (p ParticipantID) UUID() uuid.UUID { return p.value }

func (p ParticipantID) String() string {
	if p.IsZero() {
		return ""
	}
	return p.value.String()
}

func (p ParticipantID) MarshalJSON() ([]byte, error) {
	if p.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(p.value.String())
}

func (p *ParticipantID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = ParticipantID{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseParticipantID(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Participant pairs an identity with the display name it joined under.
type Participant struct {
	ID   ParticipantID `json:"id"`
	Name string        `json:"name,omitempty"`
}

// Config is fixed at creation time.
type Config struct {
	Name                 string     `json:"battleName"`
	Description          string     `json:"description"`
	QuestionsNumber      int        `json:"questionsNumber"`
	Difficulty           Difficulty `json:"difficulty"`
	Mode                 Mode       `json:"mode"`
	IsPrivate            bool       `json:"isPrivate"`
	IsSameLanguage       bool       `json:"isSameLanguage"`
	AllowedLanguages     []string   `json:"allowedLanguages"`
	TimeLimitPerQuestion int        `json:"timeLimitPerQuestion"`
}

// AllowsLanguage reports whether submissions in lang are accepted.
func (c Config) AllowsLanguage(lang string) bool {
	if !c.IsSameLanguage {
		return true
	}
	for _, l := range c.AllowedLanguages {
		if l == lang {
			return true
		}
	}
	return false
}

// AssignedQuestion is one slot of the ordered question list.
type AssignedQuestion struct {
	ID     string         `json:"id"`
	Status QuestionStatus `json:"status"`
}

// Battle is the aggregate root persisted by a Store.
type Battle struct {
	ID       uuid.UUID `json:"id"`
	RoomCode string    `json:"roomCode"`
	Config

	CreatedBy  Participant  `json:"createdBy"`
	Challenger *Participant `json:"challenger"`
	// FormerChallenger is the challenger who dropped out of an in-progress
	// battle. Its score still counts and it may reclaim the seat.
	FormerChallenger *Participant `json:"formerChallenger,omitempty"`

	CreatorConnectionID    string `json:"creatorConnectionId,omitempty"`
	ChallengerConnectionID string `json:"challengerConnectionId,omitempty"`

	Status               Status             `json:"status"`
	Questions            []AssignedQuestion `json:"questions"`
	CurrentQuestionIndex int                `json:"currentQuestionIndex"`
	CreatorScore         int                `json:"creatorScore"`
	ChallengerScore      int                `json:"challengerScore"`

	Winner      ParticipantID `json:"winner"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`

	Version   int64     `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy safe to mutate.
func (b *Battle) Clone() *Battle {
	c := *b
	c.AllowedLanguages = append([]string(nil), b.AllowedLanguages...)
	c.Questions = append([]AssignedQuestion(nil), b.Questions...)
	if b.Challenger != nil {
		ch := *b.Challenger
		c.Challenger = &ch
	}
	if b.FormerChallenger != nil {
		fc := *b.FormerChallenger
		c.FormerChallenger = &fc
	}
	if b.CompletedAt != nil {
		at := *b.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}

// SideOf resolves the side held by id, if any.
func (b *Battle) SideOf(id ParticipantID) (Side, bool) {
	if b.CreatedBy.ID.Equal(id) {
		return SideCreator, true
	}
	if b.Challenger != nil && b.Challenger.ID.Equal(id) {
		return SideChallenger, true
	}
	return "", false
}

// SideOfConnection resolves the side bound to connID, if any.
func (b *Battle) SideOfConnection(connID string) (Side, bool) {
	switch {
	case connID == "":
		return "", false
	case b.CreatorConnectionID == connID:
		return SideCreator, true
	case b.ChallengerConnectionID == connID:
		return SideChallenger, true
	}
	return "", false
}

// ParticipantAt returns the participant holding side, or nil.
func (b *Battle) ParticipantAt(side Side) *Participant {
	if side == SideCreator {
		p := b.CreatedBy
		return &p
	}
	return b.Challenger
}

// ChallengerOfRecord is the identity the challenger score belongs to: the
// seated challenger, or the one who dropped out mid-battle.
func (b *Battle) ChallengerOfRecord() *Participant {
	if b.Challenger != nil {
		return b.Challenger
	}
	return b.FormerChallenger
}

// ConnectionAt returns the connection bound to side.
func (b *Battle) ConnectionAt(side Side) string {
	if side == SideCreator {
		return b.CreatorConnectionID
	}
	return b.ChallengerConnectionID
}

// Score returns the score held by side.
func (b *Battle) Score(side Side) int {
	if side == SideCreator {
		return b.CreatorScore
	}
	return b.ChallengerScore
}

// IsTie reports a completed battle without a winner.
func (b *Battle) IsTie() bool {
	return b.Status == StatusCompleted && b.Winner.IsZero()
}

// CurrentQuestion returns the question being played, if any.
func (b *Battle) CurrentQuestion() (AssignedQuestion, bool) {
	if b.Status != StatusInProgress || b.CurrentQuestionIndex >= len(b.Questions) {
		return AssignedQuestion{}, false
	}
	return b.Questions[b.CurrentQuestionIndex], true
}

// Scores is the pair of running totals exchanged with clients.
type Scores struct {
	Creator    int `json:"creator"`
	Challenger int `json:"challenger"`
}

func (b *Battle) Scores() Scores {
	return Scores{Creator: b.CreatorScore, Challenger: b.ChallengerScore}
}
