package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"yds-challenge-service/internal/domain"
)

// SubmitAnswerInput is one answer submission for a room question.
type SubmitAnswerInput struct {
	Code           string
	Username       string
	QuestionIndex  int
	SelectedAnswer string
	AnswerTimeMs   int
}

// AnswerOutcome is what the submitter learns after an answer is scored.
type AnswerOutcome struct {
	IsCorrect     bool   `json:"isCorrect"`
	CorrectAnswer string `json:"correctAnswer"`
	PointsEarned  int    `json:"pointsEarned"`
	NewStreak     int    `json:"newStreak"`
	NewLives      int    `json:"newLives"`
	IsEliminated  bool   `json:"isEliminated"`
	TotalScore    int    `json:"totalScore"`
}

// SubmitAnswer scores an answer for the room's current or an earlier question.
// Resubmitting the same index replaces the previous answer.
func (s *RoomService) SubmitAnswer(ctx context.Context, in SubmitAnswerInput) (AnswerOutcome, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return AnswerOutcome{}, domain.Validation("username is required")
	}
	if in.QuestionIndex < 0 {
		return AnswerOutcome{}, domain.Validation("question index cannot be negative")
	}
	if len([]rune(in.SelectedAnswer)) > domain.MaxAnswerLength {
		return AnswerOutcome{}, domain.Validation("answer is too long")
	}

	room, err := s.roomByCode(ctx, in.Code)
	if err != nil {
		return AnswerOutcome{}, err
	}
	participant, err := s.store.Participant(ctx, room.ID, username)
	if err != nil {
		return AnswerOutcome{}, err
	}
	if room.Status != domain.RoomActive {
		return AnswerOutcome{}, domain.ErrNotActive
	}
	if participant.IsEliminated {
		return AnswerOutcome{}, domain.ErrEliminated
	}
	if in.QuestionIndex > room.CurrentQuestionIndex {
		return AnswerOutcome{}, domain.ErrFutureQuestion
	}

	questionID, err := s.store.RoomQuestionID(ctx, room.ID, in.QuestionIndex)
	if err != nil {
		return AnswerOutcome{}, err
	}
	question, err := s.catalog.Question(ctx, questionID)
	if err != nil {
		return AnswerOutcome{}, err
	}

	sub := domain.Submission{
		QuestionIndex:  in.QuestionIndex,
		SelectedAnswer: in.SelectedAnswer,
		AnswerTimeMs:   in.AnswerTimeMs,
	}
	now := s.now()
	answer, updated, err := s.store.RecordAnswer(ctx, participant.ID, func(fresh domain.Room, p domain.Participant, prior []domain.Answer) (domain.Answer, domain.Participant, error) {
		// The room may have finished since it was read above.
		if fresh.Status != domain.RoomActive {
			return domain.Answer{}, domain.Participant{}, domain.ErrNotActive
		}
		if p.IsEliminated {
			return domain.Answer{}, domain.Participant{}, domain.ErrEliminated
		}
		a, next := domain.ScoreAnswer(fresh, p, prior, sub, question.CorrectAnswer, now)
		return a, next, nil
	})
	if err != nil {
		return AnswerOutcome{}, fmt.Errorf("record answer: %w", err)
	}

	if updated.UserID != nil {
		s.awardBadges(ctx, *updated.UserID, domain.EarnedAnswerBadges(answer, updated.CurrentStreak))
	}

	return AnswerOutcome{
		IsCorrect:     answer.IsCorrect,
		CorrectAnswer: question.CorrectAnswer,
		PointsEarned:  answer.PointsEarned,
		NewStreak:     updated.CurrentStreak,
		NewLives:      updated.Lives,
		IsEliminated:  updated.IsEliminated,
		TotalScore:    updated.Score,
	}, nil
}

// awardBadges grants badges best-effort; failures are logged and skipped.
func (s *RoomService) awardBadges(ctx context.Context, userID int64, badges []domain.Badge) {
	for _, b := range badges {
		if err := s.store.AwardBadge(ctx, userID, b); err != nil {
			s.log.Warn("award badge failed",
				zap.Int64("user_id", userID),
				zap.String("badge", string(b)),
				zap.Error(err),
			)
		}
	}
}
