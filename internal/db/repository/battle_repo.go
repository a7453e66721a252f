package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/gokatarajesh/code-battle/internal/battle"
	"github.com/gokatarajesh/code-battle/internal/db/queries"
)

const uniqueViolation = "23505"

type battleStore interface {
	InsertBattle(ctx context.Context, arg queries.Battle) error
	GetBattle(ctx context.Context, id pgtype.UUID) (queries.Battle, error)
	GetBattleByRoomCode(ctx context.Context, roomCode string) (queries.Battle, error)
	ListBattles(ctx context.Context) ([]queries.Battle, error)
	UpdateBattle(ctx context.Context, arg queries.Battle) (int64, error)
	BattleExists(ctx context.Context, id pgtype.UUID) (bool, error)
	DeleteBattle(ctx context.Context, id pgtype.UUID) (int64, error)
	RoomCodeActive(ctx context.Context, roomCode string) (bool, error)
}

// BattleRepository persists battles in Postgres.
type BattleRepository struct {
	store battleStore
}

var _ battle.Store = (*BattleRepository)(nil)

func NewBattleRepository(store battleStore) *BattleRepository {
	return &BattleRepository{store: store}
}

// Create inserts b at version 1. A partial unique index on active room codes
// turns a code collision into battle.ErrRoomCodeTaken.
func (r *BattleRepository) Create(ctx context.Context, b *battle.Battle) error {
	row, err := toBattleRow(b)
	if err != nil {
		return err
	}
	row.Version = 1
	if err := r.store.InsertBattle(ctx, row); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return battle.ErrRoomCodeTaken
		}
		return fmt.Errorf("insert battle: %w", err)
	}
	b.Version = 1
	return nil
}

func (r *BattleRepository) Get(ctx context.Context, id uuid.UUID) (*battle.Battle, error) {
	row, err := r.store.GetBattle(ctx, pgUUID(id))
	if err != nil {
		return nil, notFoundOr(err, "get battle")
	}
	return fromBattleRow(row)
}

func (r *BattleRepository) GetByRoomCode(ctx context.Context, code string) (*battle.Battle, error) {
	row, err := r.store.GetBattleByRoomCode(ctx, code)
	if err != nil {
		return nil, notFoundOr(err, "get battle by room code")
	}
	return fromBattleRow(row)
}

func (r *BattleRepository) List(ctx context.Context) ([]*battle.Battle, error) {
	rows, err := r.store.ListBattles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list battles: %w", err)
	}
	out := make([]*battle.Battle, 0, len(rows))
	for _, row := range rows {
		b, err := fromBattleRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// Update writes b only if the stored row is still at b.Version.
func (r *BattleRepository) Update(ctx context.Context, b *battle.Battle) error {
	row, err := toBattleRow(b)
	if err != nil {
		return err
	}
	n, err := r.store.UpdateBattle(ctx, row)
	if err != nil {
		return fmt.Errorf("update battle: %w", err)
	}
	if n == 0 {
		exists, err := r.store.BattleExists(ctx, row.ID)
		if err != nil {
			return fmt.Errorf("check battle: %w", err)
		}
		if exists {
			return battle.ErrStaleWrite
		}
		return battle.ErrRecordNotFound
	}
	b.Version++
	return nil
}

func (r *BattleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := r.store.DeleteBattle(ctx, pgUUID(id))
	if err != nil {
		return fmt.Errorf("delete battle: %w", err)
	}
	if n == 0 {
		return battle.ErrRecordNotFound
	}
	return nil
}

func (r *BattleRepository) RoomCodeInUse(ctx context.Context, code string) (bool, error) {
	return r.store.RoomCodeActive(ctx, code)
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return battle.ErrRecordNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func toBattleRow(b *battle.Battle) (queries.Battle, error) {
	questions, err := json.Marshal(b.Questions)
	if err != nil {
		return queries.Battle{}, fmt.Errorf("encode questions: %w", err)
	}
	row := queries.Battle{
		ID:                     pgUUID(b.ID),
		RoomCode:               b.RoomCode,
		BattleName:             b.Name,
		Description:            b.Description,
		QuestionsNumber:        int32(b.QuestionsNumber),
		Difficulty:             string(b.Difficulty),
		Mode:                   string(b.Mode),
		IsPrivate:              b.IsPrivate,
		IsSameLanguage:         b.IsSameLanguage,
		AllowedLanguages:       append([]string{}, b.AllowedLanguages...),
		TimeLimitPerQuestion:   int32(b.TimeLimitPerQuestion),
		CreatorID:              pgUUID(b.CreatedBy.ID.UUID()),
		CreatorName:            b.CreatedBy.Name,
		CreatorConnectionID:    pgText(b.CreatorConnectionID),
		ChallengerConnectionID: pgText(b.ChallengerConnectionID),
		Status:                 string(b.Status),
		Questions:              questions,
		CurrentQuestionIndex:   int32(b.CurrentQuestionIndex),
		CreatorScore:           int32(b.CreatorScore),
		ChallengerScore:        int32(b.ChallengerScore),
		WinnerID:               pgUUID(b.Winner.UUID()),
		CompletedAt:            pgTimePtr(b.CompletedAt),
		Version:                b.Version,
		CreatedAt:              pgTime(b.CreatedAt),
		UpdatedAt:              pgTime(b.UpdatedAt),
	}
	if b.Challenger != nil {
		row.ChallengerID = pgUUID(b.Challenger.ID.UUID())
		row.ChallengerName = pgText(b.Challenger.Name)
	}
	if b.FormerChallenger != nil {
		row.FormerChallengerID = pgUUID(b.FormerChallenger.ID.UUID())
		row.FormerChallengerName = pgText(b.FormerChallenger.Name)
	}
	return row, nil
}

func fromBattleRow(row queries.Battle) (*battle.Battle, error) {
	var assigned []battle.AssignedQuestion
	if len(row.Questions) > 0 {
		if err := json.Unmarshal(row.Questions, &assigned); err != nil {
			return nil, fmt.Errorf("decode questions of battle %s: %w", fromPgUUID(row.ID), err)
		}
	}
	b := &battle.Battle{
		ID:       fromPgUUID(row.ID),
		RoomCode: row.RoomCode,
		Config: battle.Config{
			Name:                 row.BattleName,
			Description:          row.Description,
			QuestionsNumber:      int(row.QuestionsNumber),
			Difficulty:           battle.Difficulty(row.Difficulty),
			Mode:                 battle.Mode(row.Mode),
			IsPrivate:            row.IsPrivate,
			IsSameLanguage:       row.IsSameLanguage,
			AllowedLanguages:     append([]string{}, row.AllowedLanguages...),
			TimeLimitPerQuestion: int(row.TimeLimitPerQuestion),
		},
		CreatedBy: battle.Participant{
			ID:   battle.NewParticipantID(fromPgUUID(row.CreatorID)),
			Name: row.CreatorName,
		},
		CreatorConnectionID:    row.CreatorConnectionID.String,
		ChallengerConnectionID: row.ChallengerConnectionID.String,
		Status:                 battle.Status(row.Status),
		Questions:              assigned,
		CurrentQuestionIndex:   int(row.CurrentQuestionIndex),
		CreatorScore:           int(row.CreatorScore),
		ChallengerScore:        int(row.ChallengerScore),
		Winner:                 battle.NewParticipantID(fromPgUUID(row.WinnerID)),
		CompletedAt:            fromPgTimePtr(row.CompletedAt),
		Version:                row.Version,
		CreatedAt:              row.CreatedAt.Time,
		UpdatedAt:              row.UpdatedAt.Time,
	}
	if row.ChallengerID.Valid {
		b.Challenger = &battle.Participant{
			ID:   battle.NewParticipantID(fromPgUUID(row.ChallengerID)),
			Name: row.ChallengerName.String,
		}
	}
	if row.FormerChallengerID.Valid {
		b.FormerChallenger = &battle.Participant{
			ID:   battle.NewParticipantID(fromPgUUID(row.FormerChallengerID)),
			Name: row.FormerChallengerName.String,
		}
	}
	return b, nil
}
