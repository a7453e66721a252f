package queries

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const battleColumns = `id, room_code, battle_name, description, questions_number, difficulty, mode,
	is_private, is_same_language, allowed_languages, time_limit_per_question,
	creator_id, creator_name, challenger_id, challenger_name,
	former_challenger_id, former_challenger_name,
	creator_connection_id, challenger_connection_id, status, questions,
	current_question_index, creator_score, challenger_score, winner_id, completed_at,
	version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBattle(row rowScanner) (Battle, error) {
	var b Battle
	err := row.Scan(
		&b.ID, &b.RoomCode, &b.BattleName, &b.Description, &b.QuestionsNumber, &b.Difficulty, &b.Mode,
		&b.IsPrivate, &b.IsSameLanguage, &b.AllowedLanguages, &b.TimeLimitPerQuestion,
		&b.CreatorID, &b.CreatorName, &b.ChallengerID, &b.ChallengerName,
		&b.FormerChallengerID, &b.FormerChallengerName,
		&b.CreatorConnectionID, &b.ChallengerConnectionID, &b.Status, &b.Questions,
		&b.CurrentQuestionIndex, &b.CreatorScore, &b.ChallengerScore, &b.WinnerID, &b.CompletedAt,
		&b.Version, &b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

const insertBattle = `INSERT INTO battles (` + battleColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)`

func (q *Queries) InsertBattle(ctx context.Context, arg Battle) error {
	_, err := q.db.Exec(ctx, insertBattle,
		arg.ID, arg.RoomCode, arg.BattleName, arg.Description, arg.QuestionsNumber, arg.Difficulty, arg.Mode,
		arg.IsPrivate, arg.IsSameLanguage, arg.AllowedLanguages, arg.TimeLimitPerQuestion,
		arg.CreatorID, arg.CreatorName, arg.ChallengerID, arg.ChallengerName,
		arg.FormerChallengerID, arg.FormerChallengerName,
		arg.CreatorConnectionID, arg.ChallengerConnectionID, arg.Status, arg.Questions,
		arg.CurrentQuestionIndex, arg.CreatorScore, arg.ChallengerScore, arg.WinnerID, arg.CompletedAt,
		arg.Version, arg.CreatedAt, arg.UpdatedAt,
	)
	return err
}

const getBattle = `SELECT ` + battleColumns + ` FROM battles WHERE id = $1`

func (q *Queries) GetBattle(ctx context.Context, id pgtype.UUID) (Battle, error) {
	return scanBattle(q.db.QueryRow(ctx, getBattle, id))
}

// Active battles win over completed ones sharing the code.
const getBattleByRoomCode = `SELECT ` + battleColumns + ` FROM battles
WHERE room_code = $1
ORDER BY (status <> 'completed') DESC, created_at DESC
LIMIT 1`

func (q *Queries) GetBattleByRoomCode(ctx context.Context, roomCode string) (Battle, error) {
	return scanBattle(q.db.QueryRow(ctx, getBattleByRoomCode, roomCode))
}

const listBattles = `SELECT ` + battleColumns + ` FROM battles ORDER BY created_at DESC`

func (q *Queries) ListBattles(ctx context.Context) ([]Battle, error) {
	rows, err := q.db.Query(ctx, listBattles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Battle
	for rows.Next() {
		b, err := scanBattle(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

// updateBattle only matches when the caller still holds the latest version.
const updateBattle = `UPDATE battles SET
	challenger_id = $3,
	challenger_name = $4,
	former_challenger_id = $5,
	former_challenger_name = $6,
	creator_connection_id = $7,
	challenger_connection_id = $8,
	status = $9,
	questions = $10,
	current_question_index = $11,
	creator_score = $12,
	challenger_score = $13,
	winner_id = $14,
	completed_at = $15,
	updated_at = $16,
	version = version + 1
WHERE id = $1 AND version = $2`

func (q *Queries) UpdateBattle(ctx context.Context, arg Battle) (int64, error) {
	tag, err := q.db.Exec(ctx, updateBattle,
		arg.ID, arg.Version,
		arg.ChallengerID, arg.ChallengerName,
		arg.FormerChallengerID, arg.FormerChallengerName,
		arg.CreatorConnectionID, arg.ChallengerConnectionID,
		arg.Status, arg.Questions, arg.CurrentQuestionIndex,
		arg.CreatorScore, arg.ChallengerScore, arg.WinnerID, arg.CompletedAt, arg.UpdatedAt,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const battleExists = `SELECT EXISTS (SELECT 1 FROM battles WHERE id = $1)`

func (q *Queries) BattleExists(ctx context.Context, id pgtype.UUID) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, battleExists, id).Scan(&exists)
	return exists, err
}

const deleteBattle = `DELETE FROM battles WHERE id = $1`

func (q *Queries) DeleteBattle(ctx context.Context, id pgtype.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteBattle, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const roomCodeActive = `SELECT EXISTS (SELECT 1 FROM battles WHERE room_code = $1 AND status <> 'completed')`

func (q *Queries) RoomCodeActive(ctx context.Context, roomCode string) (bool, error) {
	var active bool
	err := q.db.QueryRow(ctx, roomCodeActive, roomCode).Scan(&active)
	return active, err
}
