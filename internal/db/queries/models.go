package queries

import "github.com/jackc/pgx/v5/pgtype"

// Battle mirrors one row of the battles table.
type Battle struct {
	ID                     pgtype.UUID
	RoomCode               string
	BattleName             string
	Description            string
	QuestionsNumber        int32
	Difficulty             string
	Mode                   string
	IsPrivate              bool
	IsSameLanguage         bool
	AllowedLanguages       []string
	TimeLimitPerQuestion   int32
	CreatorID              pgtype.UUID
	CreatorName            string
	ChallengerID           pgtype.UUID
	ChallengerName         pgtype.Text
	FormerChallengerID     pgtype.UUID
	FormerChallengerName   pgtype.Text
	CreatorConnectionID    pgtype.Text
	ChallengerConnectionID pgtype.Text
	Status                 string
	Questions              []byte
	CurrentQuestionIndex   int32
	CreatorScore           int32
	ChallengerScore        int32
	WinnerID               pgtype.UUID
	CompletedAt            pgtype.Timestamptz
	Version                int64
	CreatedAt              pgtype.Timestamptz
	UpdatedAt              pgtype.Timestamptz
}

// Question mirrors one row of the questions table. Body holds the full
// question document as jsonb.
type Question struct {
	ID         string
	Difficulty string
	Title      string
	Body       []byte
	CreatedAt  pgtype.Timestamptz
	UpdatedAt  pgtype.Timestamptz
}

type UpsertQuestionParams struct {
	ID         string
	Difficulty string
	Title      string
	Body       []byte
}
