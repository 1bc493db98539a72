package postgres

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"yds-challenge-service/internal/domain"
)

type questionRow struct {
	bun.BaseModel `bun:"table:questions,alias:q"`

	ID            int64    `bun:"id,pk,autoincrement"`
	Text          string   `bun:"question_text,notnull"`
	Options       []string `bun:"options,type:jsonb,notnull"`
	CorrectAnswer string   `bun:"correct_answer,notnull"`
	Category      string   `bun:"category,notnull"`
}

// SeedQuestions loads questions into an empty question bank and reports how
// many rows were inserted. A bank that already has rows is left alone.
func SeedQuestions(ctx context.Context, db bun.IDB, questions []domain.Question) (int, error) {
	n, err := db.NewSelect().Model((*questionRow)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	if n > 0 || len(questions) == 0 {
		return 0, nil
	}

	rows := make([]questionRow, len(questions))
	for i, q := range questions {
		rows[i] = questionRow{Text: q.Text, Options: q.Options, CorrectAnswer: q.CorrectAnswer, Category: q.Category}
	}
	if _, err := db.NewInsert().Model(&rows).ExcludeColumn("id").Exec(ctx); err != nil {
		return 0, fmt.Errorf("insert questions: %w", err)
	}
	return len(rows), nil
}
