package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"yds-challenge-service/internal/app"
	"yds-challenge-service/internal/domain"
)

// WSHandler streams room snapshots over a websocket and accepts answers
// and chat messages on the same connection.
type WSHandler struct {
	service  *app.RoomService
	log      *zap.Logger
	interval time.Duration
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.RoomService, logger *zap.Logger, interval time.Duration) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &WSHandler{
		service:  service,
		log:      logger,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionIndex int    `json:"questionIndex"`
	Answer        string `json:"answer"`
	AnswerTimeMs  int    `json:"answerTimeMs"`
}

type chatPayload struct {
	Message     string `json:"message"`
	Emoji       string `json:"emoji"`
	MessageType string `json:"messageType"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: domain.MessageOf(err)}}
}

// fail logs unexpected errors, which the client only sees as a generic message.
func (h *WSHandler) fail(code, username string, err error) outboundMessage[any] {
	if domain.KindOf(err) == domain.KindInternal {
		h.log.Error("ws request failed",
			zap.String("room", code),
			zap.String("username", username),
			zap.Error(err),
		)
	}
	return errorMessage(err)
}

// ServeWS watches the room in the path for the player named by the username query parameter.
// Spectators connect without a username and cannot send answers.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	username := strings.TrimSpace(r.URL.Query().Get("username"))

	ctx := r.Context()
	first, err := h.service.GetRoomState(ctx, code, username)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.String("room", code), zap.Error(err))
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	watchDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write failed", zap.String("room", code), zap.Error(err))
				return
			}
		}
	}()

	go func() {
		defer close(watchDone)
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
			case <-closeSignals:
				return
			}
			state, err := h.service.GetRoomState(ctx, code, username)
			msg := outboundMessage[any]{Type: "state", Payload: state}
			if err != nil {
				msg = h.fail(code, username, err)
			}
			select {
			case send <- msg:
			case <-closeSignals:
				return
			}
			if err != nil || state.Room.Status == domain.RoomFinished {
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "state", Payload: first}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		reply := h.dispatch(r, code, username, inbound)
		select {
		case send <- reply:
		case <-writerDone:
		}
	}

	close(closeSignals)
	<-watchDone
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(r *http.Request, code, username string, inbound inboundMessage) outboundMessage[any] {
	if username == "" && inbound.Type != "ping" {
		return errorMessage(domain.Validation("username is required to send messages"))
	}
	switch inbound.Type {
	case "ping":
		return outboundMessage[any]{Type: "pong", Payload: struct{}{}}
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Answer == "" {
			return errorMessage(domain.Validation("invalid answer payload"))
		}
		out, err := h.service.SubmitAnswer(r.Context(), app.SubmitAnswerInput{
			Code:           code,
			Username:       username,
			QuestionIndex:  payload.QuestionIndex,
			SelectedAnswer: payload.Answer,
			AnswerTimeMs:   payload.AnswerTimeMs,
		})
		if err != nil {
			return h.fail(code, username, err)
		}
		return outboundMessage[any]{Type: "answerResult", Payload: out}
	case "chat":
		var payload chatPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage(domain.Validation("invalid chat payload"))
		}
		msg, err := h.service.PostMessage(r.Context(), code, username, payload.Message, payload.Emoji, payload.MessageType)
		if err != nil {
			return h.fail(code, username, err)
		}
		return outboundMessage[any]{Type: "chat", Payload: msg}
	default:
		return errorMessage(domain.Validation("unsupported message type"))
	}
}
