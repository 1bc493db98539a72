package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"yds-challenge-service/internal/app"
	"yds-challenge-service/internal/domain"
)

// RoomHandler exposes the challenge room use cases as JSON endpoints.
type RoomHandler struct {
	service *app.RoomService
	log     *zap.Logger
}

func NewRoomHandler(service *app.RoomService, logger *zap.Logger) *RoomHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomHandler{service: service, log: logger}
}

type createRoomRequest struct {
	Name              string             `json:"name"`
	AdminID           *int64             `json:"adminId"`
	AdminName         string             `json:"adminName"`
	Mode              string             `json:"mode"`
	CategoryQuestions orderedCounts      `json:"categoryQuestions"`
	Template          string             `json:"template"`
	TimeLimit         *int               `json:"timeLimit"`
	EnableLives       bool               `json:"enableLives"`
	MaxLives          int                `json:"maxLives"`
	ShuffleQuestions  *bool              `json:"shuffleQuestions"`
	ScoringMode       domain.ScoringMode `json:"scoringMode"`
}

// orderedCounts decodes a {"category": count} object in key order. A repeated
// key keeps its first position and its last count.
type orderedCounts []domain.CategoryCount

func (c *orderedCounts) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*c = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("categoryQuestions must be an object")
	}

	out := orderedCounts{}
	pos := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		category, _ := tok.(string)
		var n int
		if err := dec.Decode(&n); err != nil {
			return err
		}
		if i, ok := pos[category]; ok {
			out[i].Count = n
			continue
		}
		pos[category] = len(out)
		out = append(out, domain.CategoryCount{Category: category, Count: n})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*c = out
	return nil
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	res, err := h.service.CreateRoom(r.Context(), app.CreateRoomInput{
		AdminName:         req.AdminName,
		AdminID:           req.AdminID,
		Name:              req.Name,
		Mode:              req.Mode,
		CategoryQuestions: req.CategoryQuestions,
		Template:          req.Template,
		TimeLimit:         req.TimeLimit,
		EnableLives:       req.EnableLives,
		MaxLives:          req.MaxLives,
		ShuffleQuestions:  req.ShuffleQuestions,
		ScoringMode:       req.ScoringMode,
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	mode := res.Mode
	if mode == "" {
		mode = "custom"
	}
	writeOK(w, envelope{"room": res.Room, "actualQuestionCount": res.ActualQuestionCount, "mode": mode})
}

type joinRequest struct {
	RoomCode string `json:"roomCode"`
	UserID   *int64 `json:"userId"`
	Username string `json:"username"`
}

func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	p, room, err := h.service.JoinRoom(r.Context(), req.RoomCode, req.Username, req.UserID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, envelope{"participant": p, "room": room})
}

type readyRequest struct {
	RoomCode string `json:"roomCode"`
	Username string `json:"username"`
	IsReady  bool   `json:"isReady"`
}

func (h *RoomHandler) Ready(w http.ResponseWriter, r *http.Request) {
	var req readyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.service.SetReady(r.Context(), req.RoomCode, req.Username, req.IsReady); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, nil)
}

type adminRequest struct {
	RoomCode  string `json:"roomCode"`
	AdminName string `json:"adminName"`
}

func (h *RoomHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	room, err := h.service.StartGame(r.Context(), req.RoomCode, req.AdminName)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, envelope{"room": room})
}

type answerRequest struct {
	RoomCode      string `json:"roomCode"`
	Username      string `json:"username"`
	QuestionIndex *int   `json:"questionIndex"`
	Answer        string `json:"answer"`
	AnswerTimeMs  int    `json:"answerTimeMs"`
}

func (h *RoomHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if req.QuestionIndex == nil || req.Answer == "" {
		writeError(w, r, h.log, domain.Validation("questionIndex and answer are required"))
		return
	}
	out, err := h.service.SubmitAnswer(r.Context(), app.SubmitAnswerInput{
		Code:           req.RoomCode,
		Username:       req.Username,
		QuestionIndex:  *req.QuestionIndex,
		SelectedAnswer: req.Answer,
		AnswerTimeMs:   req.AnswerTimeMs,
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, envelope{
		"isCorrect":     out.IsCorrect,
		"correctAnswer": out.CorrectAnswer,
		"pointsEarned":  out.PointsEarned,
		"newStreak":     out.NewStreak,
		"newLives":      out.NewLives,
		"isEliminated":  out.IsEliminated,
		"totalScore":    out.TotalScore,
	})
}

func (h *RoomHandler) Next(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	res, err := h.service.AdvanceQuestion(r.Context(), req.RoomCode, req.AdminName)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, envelope{"finished": res.Finished, "currentQuestionIndex": res.QuestionIndex})
}

func (h *RoomHandler) End(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.service.EndGame(r.Context(), req.RoomCode, req.AdminName); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, envelope{"finished": true})
}

type leaveRequest struct {
	RoomCode string `json:"roomCode"`
	Username string `json:"username"`
}

func (h *RoomHandler) Leave(w http.ResponseWriter, r *http.Request) {
	var req leaveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.service.LeaveRoom(r.Context(), req.RoomCode, req.Username); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, nil)
}

func (h *RoomHandler) State(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.GetRoomState(r.Context(), chi.URLParam(r, "code"), r.URL.Query().Get("username"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, envelope{
		"room":                   state.Room,
		"totalQuestions":         state.TotalQuestions,
		"participants":           state.Participants,
		"currentQuestion":        state.CurrentQuestion,
		"answers":                state.Answers,
		"answeredCount":          state.AnsweredCount,
		"activeParticipantCount": state.ActiveParticipantCount,
		"allAnswered":            state.AllAnswered,
		"questionDeadline":       state.QuestionDeadline,
	})
}

func (h *RoomHandler) Results(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.GetResults(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, envelope{
		"room":          res.Room,
		"participants":  res.Participants,
		"answers":       res.Answers,
		"categoryStats": res.CategoryStats,
	})
}

type settingsRequest struct {
	AdminName        string              `json:"adminName"`
	TimeLimit        *int                `json:"timeLimit"`
	EnableLives      *bool               `json:"enableLives"`
	MaxLives         *int                `json:"maxLives"`
	ScoringMode      *domain.ScoringMode `json:"scoringMode"`
	ShuffleQuestions *bool               `json:"shuffleQuestions"`
	GameMode         *string             `json:"gameMode"`
}

func (h *RoomHandler) Settings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	room, err := h.service.UpdateSettings(r.Context(), chi.URLParam(r, "code"), req.AdminName, domain.RoomSettingsPatch{
		TimeLimit:        req.TimeLimit,
		EnableLives:      req.EnableLives,
		MaxLives:         req.MaxLives,
		ScoringMode:      req.ScoringMode,
		ShuffleQuestions: req.ShuffleQuestions,
		GameMode:         req.GameMode,
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, envelope{"room": room})
}

type chatRequest struct {
	Username    string `json:"username"`
	Message     string `json:"message"`
	Emoji       string `json:"emoji"`
	MessageType string `json:"messageType"`
}

func (h *RoomHandler) PostChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	msg, err := h.service.PostMessage(r.Context(), chi.URLParam(r, "code"), req.Username, req.Message, req.Emoji, req.MessageType)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, envelope{"message": msg})
}

func (h *RoomHandler) ListChat(w http.ResponseWriter, r *http.Request) {
	var since *time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeError(w, r, h.log, domain.Validation("since must be an RFC 3339 timestamp"))
			return
		}
		since = &t
	}
	msgs, err := h.service.ListMessages(r.Context(), chi.URLParam(r, "code"), since)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	writeOK(w, envelope{"messages": msgs})
}

func (h *RoomHandler) History(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.service.History(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if rooms == nil {
		rooms = []domain.HistoryEntry{}
	}
	writeOK(w, envelope{"rooms": rooms})
}

func (h *RoomHandler) Templates(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, envelope{"templates": h.service.Templates()})
}

func (h *RoomHandler) Badges(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, envelope{"badges": h.service.Badges()})
}

func (h *RoomHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil || userID <= 0 {
		writeError(w, r, h.log, domain.Validation("invalid user id"))
		return
	}
	profile, err := h.service.PlayerStats(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, envelope{"stats": profile.Stats, "badges": profile.Badges})
}
