package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"yds-challenge-service/internal/domain"
)

// QuestionCatalog reads the question bank from Postgres.
type QuestionCatalog struct {
	pool *pgxpool.Pool
}

func NewQuestionCatalog(pool *pgxpool.Pool) *QuestionCatalog {
	return &QuestionCatalog{pool: pool}
}

func (c *QuestionCatalog) SampleByCategory(ctx context.Context, category string, n int) ([]domain.Question, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := c.pool.Query(ctx, `
		SELECT id, question_text, options, correct_answer, category
		FROM questions
		WHERE category = $1
		ORDER BY RANDOM()
		LIMIT $2`, category, n)
	if err != nil {
		return nil, fmt.Errorf("sample questions: %w", err)
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (c *QuestionCatalog) Question(ctx context.Context, id int64) (domain.Question, error) {
	row := c.pool.QueryRow(ctx, `
		SELECT id, question_text, options, correct_answer, category
		FROM questions WHERE id = $1`, id)
	q, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, err
}

func scanQuestion(row pgx.Row) (domain.Question, error) {
	var (
		q   domain.Question
		raw []byte
	)
	if err := row.Scan(&q.ID, &q.Text, &raw, &q.CorrectAnswer, &q.Category); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Question{}, err
		}
		return domain.Question{}, fmt.Errorf("scan question: %w", err)
	}
	if err := json.Unmarshal(raw, &q.Options); err != nil {
		return domain.Question{}, fmt.Errorf("unmarshal options of question %d: %w", q.ID, err)
	}
	return q, nil
}
