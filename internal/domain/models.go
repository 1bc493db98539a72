package domain

import (
	"strings"
	"time"
)

// RoomStatus is the lifecycle phase of a challenge room.
type RoomStatus string

const (
	RoomWaiting  RoomStatus = "waiting"
	RoomActive   RoomStatus = "active"
	RoomFinished RoomStatus = "finished"
)

// ScoringMode selects how correct answers are rewarded.
type ScoringMode string

const (
	ScoringSpeed  ScoringMode = "speed"
	ScoringNormal ScoringMode = "normal"
)

// Valid reports whether the mode is one the engine knows how to score.
func (m ScoringMode) Valid() bool {
	return m == ScoringSpeed || m == ScoringNormal
}

// NotStarted is the question index of a room that has not been started.
const NotStarted = -1

// DefaultGameMode labels rooms whose admin never picked a game mode.
// The label is stored and echoed back; scoring does not read it.
const DefaultGameMode = "normal"

const maxGameModeLength = 20

// Room is one multiplayer quiz session identified by a short code.
type Room struct {
	ID                   int64       `json:"id"`
	Code                 string      `json:"roomCode"`
	Name                 string      `json:"name"`
	AdminID              *int64      `json:"adminId,omitempty"`
	AdminName            string      `json:"adminName"`
	Status               RoomStatus  `json:"status"`
	QuestionCount        int         `json:"questionCount"`
	Categories           []string    `json:"categories"`
	CurrentQuestionIndex int         `json:"currentQuestionIndex"`
	QuestionStartedAt    *time.Time  `json:"questionStartedAt,omitempty"`
	TimeLimit            int         `json:"timeLimit"` // seconds per question, 0 = unlimited
	EnableLives          bool        `json:"enableLives"`
	MaxLives             int         `json:"maxLives"`
	ShuffleQuestions     bool        `json:"shuffleQuestions"`
	ScoringMode          ScoringMode `json:"scoringMode"`
	GameMode             string      `json:"gameMode"`
	CreatedAt            time.Time   `json:"createdAt"`
	StartedAt            *time.Time  `json:"startedAt,omitempty"`
	EndedAt              *time.Time  `json:"endedAt,omitempty"`
}

// IsAdmin reports whether name is the room's admin.
func (r Room) IsAdmin(name string) bool {
	return name != "" && r.AdminName == name
}

// Participant is a player's membership record within one room.
type Participant struct {
	ID            int64     `json:"id"`
	RoomID        int64     `json:"roomId"`
	UserID        *int64    `json:"userId,omitempty"`
	Username      string    `json:"username"`
	IsAdmin       bool      `json:"isAdmin"`
	IsReady       bool      `json:"isReady"`
	Lives         int       `json:"lives"`
	IsEliminated  bool      `json:"isEliminated"`
	CurrentStreak int       `json:"currentStreak"`
	MaxStreak     int       `json:"maxStreak"`
	TotalCorrect  int       `json:"totalCorrect"`
	TotalWrong    int       `json:"totalWrong"`
	Score         int       `json:"score"`
	JoinedAt      time.Time `json:"joinedAt"`
	LastSeen      time.Time `json:"lastSeen"`
}

// RoomQuestion pins a catalog question to a fixed index inside a room.
type RoomQuestion struct {
	RoomID        int64 `json:"roomId"`
	QuestionID    int64 `json:"questionId"`
	QuestionIndex int   `json:"questionIndex"`
}

// Answer is the stored answer of one participant for one question index.
type Answer struct {
	RoomID         int64     `json:"roomId"`
	ParticipantID  int64     `json:"participantId"`
	Username       string    `json:"username,omitempty"`
	QuestionIndex  int       `json:"questionIndex"`
	SelectedAnswer string    `json:"selectedAnswer"`
	IsCorrect      bool      `json:"isCorrect"`
	AnswerTimeMs   int       `json:"answerTimeMs"`
	PointsEarned   int       `json:"pointsEarned"`
	AnsweredAt     time.Time `json:"answeredAt"`
}

// Question is a read-only entry of the question catalog.
type Question struct {
	ID            int64    `json:"id"`
	Text          string   `json:"questionText"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Category      string   `json:"category"`
}

// ChallengeStats aggregates a user's results across rooms.
type ChallengeStats struct {
	UserID        int64     `json:"userId"`
	TotalGames    int       `json:"totalGames"`
	TotalWins     int       `json:"totalWins"`
	TotalPoints   int       `json:"totalPoints"`
	HighestStreak int       `json:"highestStreak"`
	EloRating     int       `json:"eloRating"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// BadgeAward records that a user holds a badge.
type BadgeAward struct {
	UserID   int64     `json:"userId"`
	Badge    Badge     `json:"badgeId"`
	EarnedAt time.Time `json:"earnedAt"`
}

// ChatMessage is one entry of a room's append-only chat log.
type ChatMessage struct {
	ID          int64     `json:"id"`
	RoomID      int64     `json:"roomId"`
	Username    string    `json:"username"`
	Message     string    `json:"message,omitempty"`
	Emoji       string    `json:"emoji,omitempty"`
	MessageType string    `json:"messageType"`
	CreatedAt   time.Time `json:"createdAt"`
}

// HistoryEntry summarizes one room a username took part in.
type HistoryEntry struct {
	Room             Room `json:"room"`
	TotalCorrect     int  `json:"totalCorrect"`
	TotalWrong       int  `json:"totalWrong"`
	Score            int  `json:"score"`
	IsAdmin          bool `json:"isAdmin"`
	ParticipantCount int  `json:"participantCount"`
}

// RoomSettingsPatch carries optional room setting changes; nil fields stay as they are.
type RoomSettingsPatch struct {
	TimeLimit        *int
	EnableLives      *bool
	MaxLives         *int
	ScoringMode      *ScoringMode
	ShuffleQuestions *bool
	GameMode         *string
}

// Validate checks that every provided field holds an acceptable value.
func (p RoomSettingsPatch) Validate() error {
	if p.TimeLimit != nil && *p.TimeLimit < 0 {
		return Validation("time limit cannot be negative")
	}
	if p.MaxLives != nil && *p.MaxLives < 1 {
		return Validation("max lives must be at least 1")
	}
	if p.ScoringMode != nil && !p.ScoringMode.Valid() {
		return Validation("unknown scoring mode")
	}
	if p.GameMode != nil {
		if mode := strings.TrimSpace(*p.GameMode); mode == "" || len(mode) > maxGameModeLength {
			return Validation("game mode must be 1 to 20 characters")
		}
	}
	return nil
}

// Apply returns room with the patch applied.
func (p RoomSettingsPatch) Apply(room Room) Room {
	if p.TimeLimit != nil {
		room.TimeLimit = *p.TimeLimit
	}
	if p.EnableLives != nil {
		room.EnableLives = *p.EnableLives
	}
	if p.MaxLives != nil {
		room.MaxLives = *p.MaxLives
	}
	if p.ScoringMode != nil {
		room.ScoringMode = *p.ScoringMode
	}
	if p.ShuffleQuestions != nil {
		room.ShuffleQuestions = *p.ShuffleQuestions
	}
	if p.GameMode != nil {
		room.GameMode = strings.TrimSpace(*p.GameMode)
	}
	return room
}
