package postgres

import (
	"testing"
	"time"

	"yds-challenge-service/internal/domain"
)

func TestRoomRowRoundTripKeepsCategories(t *testing.T) {
	adminID := int64(3)
	room := domain.Room{
		ID:                   9,
		Code:                 "ABC123",
		AdminID:              &adminID,
		AdminName:            "ayse",
		Status:               domain.RoomActive,
		QuestionCount:        4,
		CurrentQuestionIndex: 2,
		ScoringMode:          domain.ScoringSpeed,
		CreatedAt:            time.Unix(100, 0),
	}

	row := roomFromDomain(room)
	if row.Categories == nil {
		t.Fatalf("nil categories must be stored as an empty array")
	}
	got := row.toDomain()
	if got.Code != room.Code || got.Status != domain.RoomActive || got.ScoringMode != domain.ScoringSpeed {
		t.Fatalf("unexpected room: %+v", got)
	}
	if got.AdminID == nil || *got.AdminID != 3 || got.CurrentQuestionIndex != 2 {
		t.Fatalf("unexpected room: %+v", got)
	}
}

func TestMergeAggregatesKeepsIdentity(t *testing.T) {
	userID := int64(5)
	stored := domain.Participant{ID: 1, RoomID: 2, UserID: &userID, Username: "mehmet", IsAdmin: true, IsReady: true}
	next := domain.Participant{ID: 99, Username: "other", Lives: 1, IsEliminated: true, CurrentStreak: 0, MaxStreak: 3, TotalCorrect: 3, TotalWrong: 2, Score: 300}

	got := mergeAggregates(stored, next)
	if got.ID != 1 || got.Username != "mehmet" || !got.IsAdmin || !got.IsReady || got.UserID != &userID {
		t.Fatalf("identity changed: %+v", got)
	}
	if got.Score != 300 || got.TotalCorrect != 3 || got.TotalWrong != 2 || got.MaxStreak != 3 || !got.IsEliminated || got.Lives != 1 {
		t.Fatalf("aggregates not applied: %+v", got)
	}
}
