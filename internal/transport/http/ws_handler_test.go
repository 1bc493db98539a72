package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"yds-challenge-service/internal/app"
	"yds-challenge-service/internal/domain"
	"yds-challenge-service/internal/infra/memory"
)

func TestWebSocketAnswerFlow(t *testing.T) {
	store := memory.NewStore()
	bank := memory.NewQuestionBank(memory.SampleQuestions(), 1)
	service := app.NewRoomService(store, bank, nil, app.WithShuffler(noShuffle{}))
	server := httptest.NewServer(NewRouter(service, nil, 20*time.Millisecond))
	defer server.Close()

	ctx := context.Background()
	created, err := service.CreateRoom(ctx, app.CreateRoomInput{
		AdminName: "ayse",
		Template:  "quick-practice",
	})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	code := created.Room.Code
	if _, err := service.StartGame(ctx, code, "ayse"); err != nil {
		t.Fatalf("start: %v", err)
	}

	u := "ws" + server.URL[len("http"):] + "/api/rooms/" + code + "/ws?username=ayse"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Expect a snapshot first.
	_, payload := readNext(conn, t, "state")
	room := payload["room"].(map[string]any)
	if room["status"] != "active" {
		t.Fatalf("expected active room, got %v", room["status"])
	}

	qid, err := store.RoomQuestionID(ctx, created.Room.ID, 0)
	if err != nil {
		t.Fatalf("question id: %v", err)
	}
	q, _ := bank.Question(ctx, qid)
	answer := map[string]any{
		"type": "answer",
		"payload": map[string]any{
			"questionIndex": 0,
			"answer":        q.CorrectAnswer,
			"answerTimeMs":  1500,
		},
	}
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}

	// Snapshots keep arriving, so skip them until the answer result.
	var result map[string]any
	for i := 0; i < 50 && result == nil; i++ {
		typ, p := readNext(conn, t, "")
		if typ == "answerResult" {
			result = p
		}
	}
	if result == nil || result["isCorrect"] != true {
		t.Fatalf("expected correct answerResult, got %v", result)
	}

	// The next snapshot reveals the answer to the player who gave it.
	for i := 0; i < 50; i++ {
		typ, p := readNext(conn, t, "")
		if typ != "state" {
			continue
		}
		current := p["currentQuestion"].(map[string]any)
		if current["correctAnswer"] == q.CorrectAnswer && p["allAnswered"] == true {
			return
		}
	}
	t.Fatalf("expected a snapshot with the revealed answer")
}

func TestWebSocketStopsWatchingFinishedRoom(t *testing.T) {
	store := memory.NewStore()
	bank := memory.NewQuestionBank(memory.SampleQuestions(), 1)
	service := app.NewRoomService(store, bank, nil)
	server := httptest.NewServer(NewRouter(service, nil, 10*time.Millisecond))
	defer server.Close()

	ctx := context.Background()
	created, err := service.CreateRoom(ctx, app.CreateRoomInput{AdminName: "ayse", Template: "quick-practice"})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	code := created.Room.Code

	u := "ws" + server.URL[len("http"):] + "/api/rooms/" + code + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readNext(conn, t, "state")

	if err := conn.WriteJSON(map[string]any{"type": "answer", "payload": map[string]any{"answer": "A"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	for i := 0; ; i++ {
		typ, p := readNext(conn, t, "")
		if typ == "error" {
			if p["message"] == "" {
				t.Fatalf("expected error message")
			}
			break
		}
		if i > 50 {
			t.Fatalf("spectator answer was not rejected")
		}
	}

	if err := service.EndGame(ctx, code, "ayse"); err != nil {
		t.Fatalf("end: %v", err)
	}
	for i := 0; i < 50; i++ {
		typ, p := readNext(conn, t, "")
		if typ == "state" && p["room"].(map[string]any)["status"] == "finished" {
			return
		}
	}
	t.Fatalf("expected a final finished snapshot")
}

type flakyCatalog struct {
	*memory.QuestionBank
	down atomic.Bool
}

func (c *flakyCatalog) Question(ctx context.Context, id int64) (domain.Question, error) {
	if c.down.Load() {
		return domain.Question{}, errors.New("catalog unavailable")
	}
	return c.QuestionBank.Question(ctx, id)
}

func TestWebSocketLogsInternalErrors(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	catalog := &flakyCatalog{QuestionBank: memory.NewQuestionBank(memory.SampleQuestions(), 1)}
	service := app.NewRoomService(memory.NewStore(), catalog, nil)
	server := httptest.NewServer(NewRouter(service, zap.New(core), time.Hour))
	defer server.Close()

	ctx := context.Background()
	created, err := service.CreateRoom(ctx, app.CreateRoomInput{AdminName: "ayse", Template: "quick-practice"})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	code := created.Room.Code
	if _, err := service.StartGame(ctx, code, "ayse"); err != nil {
		t.Fatalf("start: %v", err)
	}

	u := "ws" + server.URL[len("http"):] + "/api/rooms/" + code + "/ws?username=ayse"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readNext(conn, t, "state")

	catalog.down.Store(true)
	answer := map[string]any{"type": "answer", "payload": map[string]any{"questionIndex": 0, "answer": "A"}}
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	_, p := readNext(conn, t, "error")
	if p["message"] != "internal server error" {
		t.Fatalf("expected generic message, got %v", p["message"])
	}

	entries := logs.FilterMessage("ws request failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one logged failure, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if entries[0].Level != zapcore.ErrorLevel || fields["room"] != code || fields["username"] != "ayse" {
		t.Fatalf("unexpected log entry: %v %v", entries[0].Level, fields)
	}

	// Client mistakes are not logged as failures.
	if err := conn.WriteJSON(map[string]any{"type": "dance"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readNext(conn, t, "error")
	if n := logs.FilterMessage("ws request failed").Len(); n != 1 {
		t.Fatalf("expected validation errors to stay out of the error log, got %d entries", n)
	}
}

func TestWebSocketUnknownRoom(t *testing.T) {
	service := app.NewRoomService(memory.NewStore(), memory.NewQuestionBank(nil, 1), nil)
	server := httptest.NewServer(NewRouter(service, nil, time.Second))
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/api/rooms/NOROOM/ws"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 before upgrade, got %v", resp)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}
