package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"yds-challenge-service/internal/app"
	"yds-challenge-service/internal/domain"
	"yds-challenge-service/internal/infra/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// sequenceCodes hands out codes in order and repeats the last one.
type sequenceCodes struct {
	mu    sync.Mutex
	codes []string
	next  int
}

func (g *sequenceCodes) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	code := g.codes[g.next]
	if g.next < len(g.codes)-1 {
		g.next++
	}
	return code
}

type keepOrder struct{}

func (keepOrder) Shuffle([]domain.Question) {}

type testEnv struct {
	service *app.RoomService
	store   *memory.Store
	bank    *memory.QuestionBank
	clock   *fakeClock
}

func newTestEnv(t *testing.T, opts ...app.Option) *testEnv {
	t.Helper()
	clock := newFakeClock()
	store := memory.NewStoreWithClock(clock.Now)
	bank := memory.NewQuestionBank(memory.SampleQuestions(), 7)
	base := []app.Option{app.WithClock(clock.Now), app.WithShuffler(keepOrder{})}
	service := app.NewRoomService(store, bank, nil, append(base, opts...)...)
	return &testEnv{service: service, store: store, bank: bank, clock: clock}
}

func int64p(v int64) *int64 { return &v }

func boolp(v bool) *bool { return &v }

// createRoom makes a room of two Tenses and two Modals questions in that order.
func (e *testEnv) createRoom(t *testing.T, admin string, adminID *int64, mutate ...func(*app.CreateRoomInput)) domain.Room {
	t.Helper()
	in := app.CreateRoomInput{
		AdminName: admin,
		AdminID:   adminID,
		CategoryQuestions: []domain.CategoryCount{
			{Category: "Tenses", Count: 2},
			{Category: "Modals", Count: 2},
		},
		ShuffleQuestions: boolp(false),
	}
	for _, m := range mutate {
		m(&in)
	}
	res, err := e.service.CreateRoom(context.Background(), in)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	return res.Room
}

func (e *testEnv) correctAnswer(t *testing.T, roomID int64, index int) string {
	t.Helper()
	ctx := context.Background()
	id, err := e.store.RoomQuestionID(ctx, roomID, index)
	if err != nil {
		t.Fatalf("room question %d: %v", index, err)
	}
	q, err := e.bank.Question(ctx, id)
	if err != nil {
		t.Fatalf("question %d: %v", id, err)
	}
	return q.CorrectAnswer
}

func wrongAnswer(correct string) string {
	if correct == "A" {
		return "B"
	}
	return "A"
}

func (e *testEnv) join(t *testing.T, code, username string, userID *int64) domain.Participant {
	t.Helper()
	p, _, err := e.service.JoinRoom(context.Background(), code, username, userID)
	if err != nil {
		t.Fatalf("join %s: %v", username, err)
	}
	return p
}

func (e *testEnv) room(t *testing.T, code string) domain.Room {
	t.Helper()
	room, err := e.store.RoomByCode(context.Background(), code)
	if err != nil {
		t.Fatalf("room %s: %v", code, err)
	}
	return room
}
