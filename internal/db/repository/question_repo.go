package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gokatarajesh/code-battle/internal/db/queries"
	"github.com/gokatarajesh/code-battle/internal/question"
)

type questionStore interface {
	ListQuestionIDsByDifficulty(ctx context.Context, difficulty string) ([]string, error)
	GetQuestion(ctx context.Context, id string) (queries.Question, error)
	UpsertQuestion(ctx context.Context, arg queries.UpsertQuestionParams) error
}

// QuestionRepository serves the question pool from Postgres.
type QuestionRepository struct {
	store questionStore
}

var _ question.Pool = (*QuestionRepository)(nil)

func NewQuestionRepository(store questionStore) *QuestionRepository {
	return &QuestionRepository{store: store}
}

func (r *QuestionRepository) IDsByDifficulty(ctx context.Context, difficulty string) ([]string, error) {
	return r.store.ListQuestionIDsByDifficulty(ctx, difficulty)
}

func (r *QuestionRepository) Get(ctx context.Context, id string) (*question.Question, error) {
	row, err := r.store.GetQuestion(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, question.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}
	var q question.Question
	if err := json.Unmarshal(row.Body, &q); err != nil {
		return nil, fmt.Errorf("decode question %s: %w", id, err)
	}
	return &q, nil
}

// Upsert stores q, replacing any existing question with the same id.
func (r *QuestionRepository) Upsert(ctx context.Context, q question.Question) error {
	body, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encode question %s: %w", q.ID, err)
	}
	return r.store.UpsertQuestion(ctx, queries.UpsertQuestionParams{
		ID:         q.ID,
		Difficulty: q.Difficulty,
		Title:      q.Title,
		Body:       body,
	})
}
