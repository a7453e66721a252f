package queries

import "context"

const listQuestionIDsByDifficulty = `SELECT id FROM questions WHERE difficulty = $1 ORDER BY id`

func (q *Queries) ListQuestionIDsByDifficulty(ctx context.Context, difficulty string) ([]string, error) {
	rows, err := q.db.Query(ctx, listQuestionIDsByDifficulty, difficulty)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const getQuestion = `SELECT id, difficulty, title, body, created_at, updated_at FROM questions WHERE id = $1`

func (q *Queries) GetQuestion(ctx context.Context, id string) (Question, error) {
	var row Question
	err := q.db.QueryRow(ctx, getQuestion, id).Scan(
		&row.ID, &row.Difficulty, &row.Title, &row.Body, &row.CreatedAt, &row.UpdatedAt,
	)
	return row, err
}

const upsertQuestion = `INSERT INTO questions (id, difficulty, title, body)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET
	difficulty = EXCLUDED.difficulty,
	title = EXCLUDED.title,
	body = EXCLUDED.body,
	updated_at = NOW()`

func (q *Queries) UpsertQuestion(ctx context.Context, arg UpsertQuestionParams) error {
	_, err := q.db.Exec(ctx, upsertQuestion, arg.ID, arg.Difficulty, arg.Title, arg.Body)
	return err
}
