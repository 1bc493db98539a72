package app_test

import (
	"context"
	"testing"
	"time"

	"yds-challenge-service/internal/app"
	"yds-challenge-service/internal/domain"
)

func TestRoomStateWithholdsAnswersUntilViewerAnswers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := startedRoom(t, env)
	correct := env.correctAnswer(t, room.ID, 0)
	env.answer(t, room, "mehmet", 0, correct, 900)

	before, err := env.service.GetRoomState(ctx, room.Code, "ayse")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if before.CurrentQuestion == nil || before.CurrentQuestion.CorrectAnswer != "" {
		t.Fatalf("expected correct answer hidden from a viewer who has not answered, got %+v", before.CurrentQuestion)
	}
	if len(before.Answers) != 1 || before.Answers[0].SelectedAnswer != "" || before.Answers[0].IsCorrect != nil {
		t.Fatalf("expected other selections hidden, got %+v", before.Answers)
	}
	if before.AllAnswered || before.AnsweredCount != 1 || before.ActiveParticipantCount != 2 {
		t.Fatalf("unexpected counters: %+v", before)
	}

	env.answer(t, room, "ayse", 0, wrongAnswer(correct), 900)
	after, err := env.service.GetRoomState(ctx, room.Code, "ayse")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if after.CurrentQuestion.CorrectAnswer != correct {
		t.Fatalf("expected correct answer once answered, got %q", after.CurrentQuestion.CorrectAnswer)
	}
	for _, a := range after.Answers {
		if a.SelectedAnswer == "" || a.IsCorrect == nil {
			t.Fatalf("expected selections revealed, got %+v", a)
		}
	}
	if !after.AllAnswered {
		t.Fatalf("expected all answered")
	}

	spectator, err := env.service.GetRoomState(ctx, room.Code, "")
	if err != nil {
		t.Fatalf("spectator state: %v", err)
	}
	if spectator.CurrentQuestion.CorrectAnswer != "" {
		t.Fatalf("spectators never see the correct answer of an open question")
	}
}

func TestRoomStateIgnoresEliminatedForAllAnswered(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := startedRoom(t, env, func(in *app.CreateRoomInput) {
		in.EnableLives = true
		in.MaxLives = 1
	})
	env.answer(t, room, "mehmet", 0, wrongAnswer(env.correctAnswer(t, room.ID, 0)), 0)
	if _, err := env.service.AdvanceQuestion(ctx, room.Code, "ayse"); err != nil {
		t.Fatalf("advance: %v", err)
	}
	env.answer(t, room, "ayse", 1, env.correctAnswer(t, room.ID, 1), 0)

	state, err := env.service.GetRoomState(ctx, room.Code, "ayse")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state.ActiveParticipantCount != 1 || !state.AllAnswered {
		t.Fatalf("expected eliminated player ignored, got active=%d all=%v", state.ActiveParticipantCount, state.AllAnswered)
	}
}

func TestRoomStateLobbyAndDeadline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	limit := 20
	room := env.createRoom(t, "ayse", nil, func(in *app.CreateRoomInput) { in.TimeLimit = &limit })

	lobby, err := env.service.GetRoomState(ctx, room.Code, "ayse")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if lobby.CurrentQuestion != nil || lobby.QuestionDeadline != nil || lobby.TotalQuestions != 4 {
		t.Fatalf("unexpected lobby state: %+v", lobby)
	}

	started, err := env.service.StartGame(ctx, room.Code, "ayse")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	state, err := env.service.GetRoomState(ctx, room.Code, "ayse")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	want := started.QuestionStartedAt.Add(20 * time.Second)
	if state.QuestionDeadline == nil || !state.QuestionDeadline.Equal(want) {
		t.Fatalf("expected deadline %v, got %v", want, state.QuestionDeadline)
	}
}

func TestRoomStateTouchesViewer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := env.createRoom(t, "ayse", nil)
	env.join(t, room.Code, "mehmet", nil)

	env.clock.Advance(time.Minute)
	if _, err := env.service.GetRoomState(ctx, room.Code, "mehmet"); err != nil {
		t.Fatalf("state: %v", err)
	}
	p, _ := env.store.Participant(ctx, room.ID, "mehmet")
	if !p.LastSeen.Equal(env.clock.Now()) {
		t.Fatalf("expected last seen refreshed")
	}
	if _, err := env.service.GetRoomState(ctx, room.Code, "stranger"); err != nil {
		t.Fatalf("unknown viewers are treated as spectators, got %v", err)
	}
}

func TestEndToEndFourQuestionGame(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := env.createRoom(t, "ayse", int64p(1))

	if room.QuestionCount != 4 {
		t.Fatalf("expected 4 questions, got %d", room.QuestionCount)
	}
	if _, err := env.service.StartGame(ctx, room.Code, "ayse"); err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := 0; i < 4; i++ {
		state, err := env.service.GetRoomState(ctx, room.Code, "ayse")
		if err != nil {
			t.Fatalf("state: %v", err)
		}
		if state.Room.CurrentQuestionIndex != i {
			t.Fatalf("expected index %d, got %d", i, state.Room.CurrentQuestionIndex)
		}
		wantCategory := "Tenses"
		if i >= 2 {
			wantCategory = "Modals"
		}
		if state.CurrentQuestion.Category != wantCategory {
			t.Fatalf("question %d: expected %s without shuffling, got %s", i, wantCategory, state.CurrentQuestion.Category)
		}

		env.answer(t, room, "ayse", i, env.correctAnswer(t, room.ID, i), 3000)
		state, err = env.service.GetRoomState(ctx, room.Code, "ayse")
		if err != nil {
			t.Fatalf("state: %v", err)
		}
		if !state.AllAnswered || state.ActiveParticipantCount != 1 || state.AnsweredCount != 1 {
			t.Fatalf("expected the only player to have answered: %+v", state)
		}

		res, err := env.service.AdvanceQuestion(ctx, room.Code, "ayse")
		if err != nil {
			t.Fatalf("advance: %v", err)
		}
		if last := i == 3; res.Finished != last {
			t.Fatalf("advance after %d: finished=%v", i, res.Finished)
		}
	}

	if got := env.room(t, room.Code); got.Status != domain.RoomFinished {
		t.Fatalf("expected finished room, got %s", got.Status)
	}

	results, err := env.service.GetResults(ctx, room.Code)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(results.Answers) != 4 || results.Participants[0].Percentage != 100 {
		t.Fatalf("unexpected results: %+v", results)
	}
	stats := results.CategoryStats["ayse"]
	if stats["Tenses"] != (app.CategoryScore{Correct: 2, Total: 2}) || stats["Modals"] != (app.CategoryScore{Correct: 2, Total: 2}) {
		t.Fatalf("unexpected category stats: %+v", stats)
	}
}

func TestResultsRanking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := startedRoom(t, env)
	correct := env.correctAnswer(t, room.ID, 0)
	env.answer(t, room, "ayse", 0, wrongAnswer(correct), 0)
	env.answer(t, room, "mehmet", 0, correct, 0)

	res, err := env.service.GetResults(ctx, room.Code)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if res.Participants[0].Username != "mehmet" || res.Participants[0].Percentage != 100 || res.Participants[1].Percentage != 0 {
		t.Fatalf("unexpected ranking: %+v", res.Participants)
	}
	for _, a := range res.Answers {
		if a.CorrectAnswer != correct || a.Category != "Tenses" {
			t.Fatalf("expected answers joined with their question, got %+v", a)
		}
	}
}
