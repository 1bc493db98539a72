package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"yds-challenge-service/internal/domain"
)

// QuestionView is the current question as shown to a player.
// CorrectAnswer is empty until the viewer has answered.
type QuestionView struct {
	ID            int64    `json:"id"`
	Index         int      `json:"questionIndex"`
	Text          string   `json:"questionText"`
	Options       []string `json:"options"`
	Category      string   `json:"category"`
	CorrectAnswer string   `json:"correctAnswer,omitempty"`
}

// AnswerView is one answer to the current question. Selection and
// correctness are only filled for viewers who have answered themselves.
type AnswerView struct {
	ParticipantID  int64     `json:"participantId"`
	Username       string    `json:"username"`
	SelectedAnswer string    `json:"selectedAnswer,omitempty"`
	IsCorrect      *bool     `json:"isCorrect,omitempty"`
	AnsweredAt     time.Time `json:"answeredAt"`
}

// RoomState is the polling snapshot of a room.
type RoomState struct {
	Room                   domain.Room          `json:"room"`
	TotalQuestions         int                  `json:"totalQuestions"`
	Participants           []domain.Participant `json:"participants"`
	CurrentQuestion        *QuestionView        `json:"currentQuestion,omitempty"`
	Answers                []AnswerView         `json:"answers"`
	AnsweredCount          int                  `json:"answeredCount"`
	ActiveParticipantCount int                  `json:"activeParticipantCount"`
	AllAnswered            bool                 `json:"allAnswered"`
	QuestionDeadline       *time.Time           `json:"questionDeadline,omitempty"`
}

// GetRoomState builds the room snapshot for viewer, who may be empty for spectators.
func (s *RoomService) GetRoomState(ctx context.Context, code, viewer string) (RoomState, error) {
	room, err := s.roomByCode(ctx, code)
	if err != nil {
		return RoomState{}, err
	}
	viewer = strings.TrimSpace(viewer)
	if viewer != "" {
		err := s.store.TouchParticipant(ctx, room.ID, viewer, s.now())
		if err != nil && !errors.Is(err, domain.ErrParticipantNotFound) {
			return RoomState{}, fmt.Errorf("touch participant: %w", err)
		}
	}

	participants, err := s.store.Participants(ctx, room.ID)
	if err != nil {
		return RoomState{}, fmt.Errorf("list participants: %w", err)
	}
	state := RoomState{
		Room:           room,
		TotalQuestions: room.QuestionCount,
		Participants:   participants,
		Answers:        []AnswerView{},
	}
	for _, p := range participants {
		if !p.IsEliminated {
			state.ActiveParticipantCount++
		}
	}

	if room.Status != domain.RoomActive || room.CurrentQuestionIndex < 0 {
		return state, nil
	}

	questionID, err := s.store.RoomQuestionID(ctx, room.ID, room.CurrentQuestionIndex)
	if err != nil {
		return RoomState{}, err
	}
	question, err := s.catalog.Question(ctx, questionID)
	if err != nil {
		return RoomState{}, err
	}
	answers, err := s.store.AnswersForQuestion(ctx, room.ID, room.CurrentQuestionIndex)
	if err != nil {
		return RoomState{}, fmt.Errorf("list answers: %w", err)
	}

	answered := make(map[int64]bool, len(answers))
	viewerAnswered := false
	for _, a := range answers {
		answered[a.ParticipantID] = true
		if viewer != "" && a.Username == viewer {
			viewerAnswered = true
		}
	}

	view := &QuestionView{
		ID:       question.ID,
		Index:    room.CurrentQuestionIndex,
		Text:     question.Text,
		Options:  question.Options,
		Category: question.Category,
	}
	if viewerAnswered {
		view.CorrectAnswer = question.CorrectAnswer
	}
	state.CurrentQuestion = view

	for _, a := range answers {
		av := AnswerView{ParticipantID: a.ParticipantID, Username: a.Username, AnsweredAt: a.AnsweredAt}
		if viewerAnswered {
			correct := a.IsCorrect
			av.SelectedAnswer = a.SelectedAnswer
			av.IsCorrect = &correct
		}
		state.Answers = append(state.Answers, av)
	}
	state.AnsweredCount = len(answers)

	allAnswered := state.ActiveParticipantCount > 0
	for _, p := range participants {
		if !p.IsEliminated && !answered[p.ID] {
			allAnswered = false
			break
		}
	}
	state.AllAnswered = allAnswered

	if room.TimeLimit > 0 && room.QuestionStartedAt != nil {
		deadline := room.QuestionStartedAt.Add(time.Duration(room.TimeLimit) * time.Second)
		state.QuestionDeadline = &deadline
	}
	return state, nil
}

// ResultEntry is a participant's final line with accuracy in percent.
type ResultEntry struct {
	domain.Participant
	Percentage float64 `json:"percentage"`
}

// ResultAnswer is one answer joined with its question.
type ResultAnswer struct {
	QuestionIndex  int    `json:"questionIndex"`
	ParticipantID  int64  `json:"participantId"`
	Username       string `json:"username"`
	SelectedAnswer string `json:"selectedAnswer"`
	IsCorrect      bool   `json:"isCorrect"`
	Category       string `json:"category"`
	QuestionText   string `json:"questionText"`
	CorrectAnswer  string `json:"correctAnswer"`
}

// CategoryScore counts a player's answers within a category.
type CategoryScore struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// Results is the final breakdown of a room.
type Results struct {
	Room          domain.Room                         `json:"room"`
	Participants  []ResultEntry                       `json:"participants"`
	Answers       []ResultAnswer                      `json:"answers"`
	CategoryStats map[string]map[string]CategoryScore `json:"categoryStats"`
}

// GetResults ranks participants and breaks their answers down by category.
func (s *RoomService) GetResults(ctx context.Context, code string) (Results, error) {
	room, err := s.roomByCode(ctx, code)
	if err != nil {
		return Results{}, err
	}
	participants, err := s.store.Participants(ctx, room.ID)
	if err != nil {
		return Results{}, fmt.Errorf("list participants: %w", err)
	}
	sort.SliceStable(participants, func(i, j int) bool {
		a, b := participants[i], participants[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.TotalCorrect != b.TotalCorrect {
			return a.TotalCorrect > b.TotalCorrect
		}
		return a.TotalWrong < b.TotalWrong
	})

	res := Results{
		Room:          room,
		Participants:  make([]ResultEntry, 0, len(participants)),
		Answers:       []ResultAnswer{},
		CategoryStats: make(map[string]map[string]CategoryScore),
	}
	names := make(map[int64]string, len(participants))
	for _, p := range participants {
		names[p.ID] = p.Username
		res.Participants = append(res.Participants, ResultEntry{Participant: p, Percentage: accuracy(p)})
	}

	assigned, err := s.store.RoomQuestions(ctx, room.ID)
	if err != nil {
		return Results{}, fmt.Errorf("list room questions: %w", err)
	}
	questions := make(map[int]domain.Question, len(assigned))
	for _, rq := range assigned {
		q, err := s.catalog.Question(ctx, rq.QuestionID)
		if err != nil {
			return Results{}, err
		}
		questions[rq.QuestionIndex] = q
	}

	answers, err := s.store.RoomAnswers(ctx, room.ID)
	if err != nil {
		return Results{}, fmt.Errorf("list answers: %w", err)
	}
	for _, a := range answers {
		q, ok := questions[a.QuestionIndex]
		if !ok {
			continue
		}
		username := a.Username
		if username == "" {
			username = names[a.ParticipantID]
		}
		res.Answers = append(res.Answers, ResultAnswer{
			QuestionIndex:  a.QuestionIndex,
			ParticipantID:  a.ParticipantID,
			Username:       username,
			SelectedAnswer: a.SelectedAnswer,
			IsCorrect:      a.IsCorrect,
			Category:       q.Category,
			QuestionText:   q.Text,
			CorrectAnswer:  q.CorrectAnswer,
		})

		byCategory, ok := res.CategoryStats[username]
		if !ok {
			byCategory = make(map[string]CategoryScore)
			res.CategoryStats[username] = byCategory
		}
		cs := byCategory[q.Category]
		cs.Total++
		if a.IsCorrect {
			cs.Correct++
		}
		byCategory[q.Category] = cs
	}
	sort.SliceStable(res.Answers, func(i, j int) bool {
		if res.Answers[i].QuestionIndex != res.Answers[j].QuestionIndex {
			return res.Answers[i].QuestionIndex < res.Answers[j].QuestionIndex
		}
		return res.Answers[i].Username < res.Answers[j].Username
	})
	return res, nil
}

func accuracy(p domain.Participant) float64 {
	total := p.TotalCorrect + p.TotalWrong
	if total == 0 {
		return 0
	}
	return math.Round(float64(p.TotalCorrect)*1000/float64(total)) / 10
}
