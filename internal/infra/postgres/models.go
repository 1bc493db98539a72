package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"yds-challenge-service/internal/domain"
)

type roomRow struct {
	bun.BaseModel `bun:"table:challenge_rooms,alias:cr"`

	ID                   int64      `bun:"id,pk,autoincrement"`
	Code                 string     `bun:"room_code,notnull"`
	Name                 string     `bun:"room_name,notnull"`
	AdminID              *int64     `bun:"admin_id"`
	AdminName            string     `bun:"admin_name,notnull"`
	Status               string     `bun:"status,notnull"`
	QuestionCount        int        `bun:"question_count,notnull"`
	Categories           []string   `bun:"categories,type:jsonb,notnull"`
	CurrentQuestionIndex int        `bun:"current_question_index,notnull"`
	QuestionStartedAt    *time.Time `bun:"question_started_at"`
	TimeLimit            int        `bun:"time_limit,notnull"`
	EnableLives          bool       `bun:"enable_lives,notnull"`
	MaxLives             int        `bun:"max_lives,notnull"`
	ShuffleQuestions     bool       `bun:"shuffle_questions,notnull"`
	ScoringMode          string     `bun:"scoring_mode,notnull"`
	GameMode             string     `bun:"game_mode,notnull"`
	CreatedAt            time.Time  `bun:"created_at,notnull"`
	StartedAt            *time.Time `bun:"started_at"`
	EndedAt              *time.Time `bun:"ended_at"`
}

func roomFromDomain(r domain.Room) roomRow {
	categories := r.Categories
	if categories == nil {
		categories = []string{}
	}
	return roomRow{
		ID:                   r.ID,
		Code:                 r.Code,
		Name:                 r.Name,
		AdminID:              r.AdminID,
		AdminName:            r.AdminName,
		Status:               string(r.Status),
		QuestionCount:        r.QuestionCount,
		Categories:           categories,
		CurrentQuestionIndex: r.CurrentQuestionIndex,
		QuestionStartedAt:    r.QuestionStartedAt,
		TimeLimit:            r.TimeLimit,
		EnableLives:          r.EnableLives,
		MaxLives:             r.MaxLives,
		ShuffleQuestions:     r.ShuffleQuestions,
		ScoringMode:          string(r.ScoringMode),
		GameMode:             r.GameMode,
		CreatedAt:            r.CreatedAt,
		StartedAt:            r.StartedAt,
		EndedAt:              r.EndedAt,
	}
}

func (r roomRow) toDomain() domain.Room {
	return domain.Room{
		ID:                   r.ID,
		Code:                 r.Code,
		Name:                 r.Name,
		AdminID:              r.AdminID,
		AdminName:            r.AdminName,
		Status:               domain.RoomStatus(r.Status),
		QuestionCount:        r.QuestionCount,
		Categories:           r.Categories,
		CurrentQuestionIndex: r.CurrentQuestionIndex,
		QuestionStartedAt:    r.QuestionStartedAt,
		TimeLimit:            r.TimeLimit,
		EnableLives:          r.EnableLives,
		MaxLives:             r.MaxLives,
		ShuffleQuestions:     r.ShuffleQuestions,
		ScoringMode:          domain.ScoringMode(r.ScoringMode),
		GameMode:             r.GameMode,
		CreatedAt:            r.CreatedAt,
		StartedAt:            r.StartedAt,
		EndedAt:              r.EndedAt,
	}
}

type participantRow struct {
	bun.BaseModel `bun:"table:room_participants,alias:rp"`

	ID            int64     `bun:"id,pk,autoincrement"`
	RoomID        int64     `bun:"room_id,notnull"`
	UserID        *int64    `bun:"user_id"`
	Username      string    `bun:"username,notnull"`
	IsAdmin       bool      `bun:"is_admin,notnull"`
	IsReady       bool      `bun:"is_ready,notnull"`
	Lives         int       `bun:"lives,notnull"`
	IsEliminated  bool      `bun:"is_eliminated,notnull"`
	CurrentStreak int       `bun:"current_streak,notnull"`
	MaxStreak     int       `bun:"max_streak,notnull"`
	TotalCorrect  int       `bun:"total_correct,notnull"`
	TotalWrong    int       `bun:"total_wrong,notnull"`
	Score         int       `bun:"score,notnull"`
	JoinedAt      time.Time `bun:"joined_at,notnull"`
	LastSeen      time.Time `bun:"last_seen,notnull"`
}

func participantFromDomain(p domain.Participant) participantRow {
	return participantRow{
		ID:            p.ID,
		RoomID:        p.RoomID,
		UserID:        p.UserID,
		Username:      p.Username,
		IsAdmin:       p.IsAdmin,
		IsReady:       p.IsReady,
		Lives:         p.Lives,
		IsEliminated:  p.IsEliminated,
		CurrentStreak: p.CurrentStreak,
		MaxStreak:     p.MaxStreak,
		TotalCorrect:  p.TotalCorrect,
		TotalWrong:    p.TotalWrong,
		Score:         p.Score,
		JoinedAt:      p.JoinedAt,
		LastSeen:      p.LastSeen,
	}
}

func (p participantRow) toDomain() domain.Participant {
	return domain.Participant{
		ID:            p.ID,
		RoomID:        p.RoomID,
		UserID:        p.UserID,
		Username:      p.Username,
		IsAdmin:       p.IsAdmin,
		IsReady:       p.IsReady,
		Lives:         p.Lives,
		IsEliminated:  p.IsEliminated,
		CurrentStreak: p.CurrentStreak,
		MaxStreak:     p.MaxStreak,
		TotalCorrect:  p.TotalCorrect,
		TotalWrong:    p.TotalWrong,
		Score:         p.Score,
		JoinedAt:      p.JoinedAt,
		LastSeen:      p.LastSeen,
	}
}

type roomQuestionRow struct {
	bun.BaseModel `bun:"table:room_questions,alias:rq"`

	ID            int64 `bun:"id,pk,autoincrement"`
	RoomID        int64 `bun:"room_id,notnull"`
	QuestionID    int64 `bun:"question_id,notnull"`
	QuestionIndex int   `bun:"question_index,notnull"`
}

type answerRow struct {
	bun.BaseModel `bun:"table:room_answers,alias:ra"`

	ID             int64     `bun:"id,pk,autoincrement"`
	RoomID         int64     `bun:"room_id,notnull"`
	ParticipantID  int64     `bun:"participant_id,notnull"`
	QuestionIndex  int       `bun:"question_index,notnull"`
	SelectedAnswer string    `bun:"selected_answer,notnull"`
	IsCorrect      bool      `bun:"is_correct,notnull"`
	AnswerTimeMs   int       `bun:"answer_time_ms,notnull"`
	PointsEarned   int       `bun:"points_earned,notnull"`
	AnsweredAt     time.Time `bun:"answered_at,notnull"`
	Username       string    `bun:"username,scanonly"`
}

func answerFromDomain(a domain.Answer) answerRow {
	return answerRow{
		RoomID:         a.RoomID,
		ParticipantID:  a.ParticipantID,
		QuestionIndex:  a.QuestionIndex,
		SelectedAnswer: a.SelectedAnswer,
		IsCorrect:      a.IsCorrect,
		AnswerTimeMs:   a.AnswerTimeMs,
		PointsEarned:   a.PointsEarned,
		AnsweredAt:     a.AnsweredAt,
	}
}

func (a answerRow) toDomain() domain.Answer {
	return domain.Answer{
		RoomID:         a.RoomID,
		ParticipantID:  a.ParticipantID,
		Username:       a.Username,
		QuestionIndex:  a.QuestionIndex,
		SelectedAnswer: a.SelectedAnswer,
		IsCorrect:      a.IsCorrect,
		AnswerTimeMs:   a.AnswerTimeMs,
		PointsEarned:   a.PointsEarned,
		AnsweredAt:     a.AnsweredAt,
	}
}

type statsRow struct {
	bun.BaseModel `bun:"table:challenge_stats,alias:cs"`

	ID            int64     `bun:"id,pk,autoincrement"`
	UserID        int64     `bun:"user_id,notnull"`
	TotalGames    int       `bun:"total_games,notnull"`
	TotalWins     int       `bun:"total_wins,notnull"`
	TotalPoints   int       `bun:"total_points,notnull"`
	HighestStreak int       `bun:"highest_streak,notnull"`
	EloRating     int       `bun:"elo_rating,notnull"`
	UpdatedAt     time.Time `bun:"updated_at,notnull"`
}

func (s statsRow) toDomain() domain.ChallengeStats {
	return domain.ChallengeStats{
		UserID:        s.UserID,
		TotalGames:    s.TotalGames,
		TotalWins:     s.TotalWins,
		TotalPoints:   s.TotalPoints,
		HighestStreak: s.HighestStreak,
		EloRating:     s.EloRating,
		UpdatedAt:     s.UpdatedAt,
	}
}

type badgeRow struct {
	bun.BaseModel `bun:"table:user_badges,alias:ub"`

	ID       int64     `bun:"id,pk,autoincrement"`
	UserID   int64     `bun:"user_id,notnull"`
	BadgeID  string    `bun:"badge_id,notnull"`
	EarnedAt time.Time `bun:"earned_at,notnull"`
}

type messageRow struct {
	bun.BaseModel `bun:"table:room_messages,alias:rm"`

	ID          int64     `bun:"id,pk,autoincrement"`
	RoomID      int64     `bun:"room_id,notnull"`
	Username    string    `bun:"username,notnull"`
	Message     string    `bun:"message,notnull"`
	Emoji       string    `bun:"emoji,notnull"`
	MessageType string    `bun:"message_type,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
}

func (m messageRow) toDomain() domain.ChatMessage {
	return domain.ChatMessage{
		ID:          m.ID,
		RoomID:      m.RoomID,
		Username:    m.Username,
		Message:     m.Message,
		Emoji:       m.Emoji,
		MessageType: m.MessageType,
		CreatedAt:   m.CreatedAt,
	}
}
