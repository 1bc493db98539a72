package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"yds-challenge-service/internal/app"
	"yds-challenge-service/internal/domain"
)

func TestChatMessages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := env.createRoom(t, "ayse", nil)

	first, err := env.service.PostMessage(ctx, room.Code, "ayse", " merhaba ", "", "")
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if first.Message != "merhaba" || first.MessageType != "text" || first.ID == 0 {
		t.Fatalf("unexpected message: %+v", first)
	}
	env.clock.Advance(time.Second)
	if _, err := env.service.PostMessage(ctx, room.Code, "mehmet", "", "🔥", "reaction"); err != nil {
		t.Fatalf("post emoji: %v", err)
	}

	all, err := env.service.ListMessages(ctx, room.Code, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].Username != "ayse" || all[1].Emoji != "🔥" {
		t.Fatalf("expected oldest first, got %+v", all)
	}

	since := first.CreatedAt
	newer, err := env.service.ListMessages(ctx, room.Code, &since)
	if err != nil {
		t.Fatalf("list since: %v", err)
	}
	if len(newer) != 1 || newer[0].Username != "mehmet" {
		t.Fatalf("expected only newer messages, got %+v", newer)
	}

	if _, err := env.service.PostMessage(ctx, room.Code, "ayse", "", "", ""); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected empty message rejected, got %v", err)
	}
	if _, err := env.service.PostMessage(ctx, room.Code, "ayse", strings.Repeat("ş", 501), "", ""); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected long message rejected, got %v", err)
	}
}

func TestChatKeepsLatestPage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := env.createRoom(t, "ayse", nil)
	for i := 0; i < 60; i++ {
		env.clock.Advance(time.Second)
		if _, err := env.service.PostMessage(ctx, room.Code, "ayse", "hi", "", ""); err != nil {
			t.Fatalf("post: %v", err)
		}
	}
	msgs, err := env.service.ListMessages(ctx, room.Code, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 50 || !msgs[49].CreatedAt.Equal(env.clock.Now()) {
		t.Fatalf("expected the latest 50 messages, got %d", len(msgs))
	}
}

func TestHistoryAndProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	older := env.createRoom(t, "ayse", int64p(1))
	env.join(t, older.Code, "mehmet", int64p(2))
	env.clock.Advance(time.Hour)
	newer := env.createRoom(t, "mehmet", int64p(2))

	history, err := env.service.History(ctx, "mehmet")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].Room.ID != newer.ID || !history[0].IsAdmin {
		t.Fatalf("expected newest room first with admin flag, got %+v", history)
	}
	if history[1].ParticipantCount != 2 || history[1].IsAdmin {
		t.Fatalf("unexpected older entry: %+v", history[1])
	}
	if _, err := env.service.History(ctx, " "); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	profile, err := env.service.PlayerStats(ctx, 42)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if profile.Stats.EloRating != domain.DefaultElo || profile.Badges == nil {
		t.Fatalf("expected default profile, got %+v", profile)
	}
	if len(env.service.Templates()) != 4 || len(env.service.Badges()) == 0 {
		t.Fatalf("expected static catalogs")
	}
}

func TestCleanupStaleRooms(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	abandoned := env.createRoom(t, "ayse", nil)
	done := env.createRoom(t, "ali", nil)
	if _, err := env.service.StartGame(ctx, done.Code, "ali"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := env.service.EndGame(ctx, done.Code, "ali"); err != nil {
		t.Fatalf("end: %v", err)
	}

	env.clock.Advance(3 * time.Hour)
	fresh := env.createRoom(t, "zeynep", nil)

	policy := app.CleanupPolicy{WaitingTTL: 2 * time.Hour, FinishedRetention: 24 * time.Hour}
	rep, err := env.service.CleanupStaleRooms(ctx, policy)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if rep.Waiting != 1 || rep.Finished != 0 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if _, err := env.store.RoomByID(ctx, abandoned.ID); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected abandoned lobby removed")
	}
	if _, err := env.store.RoomByID(ctx, fresh.ID); err != nil {
		t.Fatalf("fresh lobby must survive: %v", err)
	}

	env.clock.Advance(48 * time.Hour)
	rep, err = env.service.CleanupStaleRooms(ctx, app.CleanupPolicy{FinishedRetention: 24 * time.Hour})
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if rep.Finished != 1 || rep.Waiting != 0 {
		t.Fatalf("expected finished room expired, got %+v", rep)
	}
}

func TestJanitorRejectsBadSchedule(t *testing.T) {
	env := newTestEnv(t)
	if _, err := app.NewJanitor(env.service, app.CleanupPolicy{}, "not a schedule", nil); err == nil {
		t.Fatalf("expected schedule error")
	}
	j, err := app.NewJanitor(env.service, app.CleanupPolicy{WaitingTTL: time.Hour}, "@every 1h", nil)
	if err != nil {
		t.Fatalf("janitor: %v", err)
	}
	j.Start()
	j.Stop()
}
