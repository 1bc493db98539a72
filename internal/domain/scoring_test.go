package domain

import (
	"testing"
	"time"
)

func TestCalculatePoints(t *testing.T) {
	cases := []struct {
		name    string
		correct bool
		timeMs  int
		streak  int
		mode    ScoringMode
		want    int
	}{
		{"wrong answer", false, 0, 3, ScoringSpeed, 0},
		{"normal ignores timing and streak", true, 100, 7, ScoringNormal, 100},
		{"instant answer without streak", true, 0, 0, ScoringSpeed, 150},
		{"half window with streak", true, 5000, 2, ScoringSpeed, 145},
		{"window boundary gets no bonus", true, 10000, 3, ScoringSpeed, 130},
		{"slow answer keeps streak bonus", true, 25000, 1, ScoringSpeed, 110},
		{"negative time treated as zero", true, -50, 0, ScoringSpeed, 150},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CalculatePoints(tc.correct, tc.timeMs, tc.streak, tc.mode)
			if got != tc.want {
				t.Fatalf("expected %d points, got %d", tc.want, got)
			}
		})
	}
}

func TestTallyAnswersComputesStreaks(t *testing.T) {
	answers := []Answer{
		{QuestionIndex: 3, IsCorrect: true, PointsEarned: 100},
		{QuestionIndex: 0, IsCorrect: true, PointsEarned: 100},
		{QuestionIndex: 1, IsCorrect: true, PointsEarned: 100},
		{QuestionIndex: 2, IsCorrect: false},
		{QuestionIndex: 5, IsCorrect: true, PointsEarned: 100},
	}
	tally := TallyAnswers(answers)
	if tally.TotalCorrect != 4 || tally.TotalWrong != 1 {
		t.Fatalf("unexpected counts %+v", tally)
	}
	if tally.Score != 400 {
		t.Fatalf("expected score 400, got %d", tally.Score)
	}
	// index 4 was skipped; skipping does not reset the run.
	if tally.CurrentStreak != 2 || tally.MaxStreak != 2 {
		t.Fatalf("expected streak 2/2, got %d/%d", tally.CurrentStreak, tally.MaxStreak)
	}
}

func TestScoreAnswerAppliesSpeedAndStreak(t *testing.T) {
	room := Room{ID: 1, ScoringMode: ScoringSpeed, MaxLives: 3}
	p := Participant{ID: 7, Username: "alice", Lives: 3}
	prior := []Answer{
		{QuestionIndex: 0, IsCorrect: true, PointsEarned: 150},
		{QuestionIndex: 1, IsCorrect: true, PointsEarned: 160},
	}
	now := time.Unix(1700000000, 0)

	answer, updated := ScoreAnswer(room, p, prior, Submission{QuestionIndex: 2, SelectedAnswer: "B", AnswerTimeMs: 0}, "B", now)
	if !answer.IsCorrect || answer.PointsEarned != 170 {
		t.Fatalf("expected correct answer worth 170, got %+v", answer)
	}
	if updated.CurrentStreak != 3 || updated.MaxStreak != 3 {
		t.Fatalf("expected streak 3, got %d/%d", updated.CurrentStreak, updated.MaxStreak)
	}
	if updated.Score != 480 || updated.TotalCorrect != 3 {
		t.Fatalf("unexpected aggregates %+v", updated)
	}
	if !answer.AnsweredAt.Equal(now) {
		t.Fatalf("expected answered at %v, got %v", now, answer.AnsweredAt)
	}
}

func TestScoreAnswerResubmissionDoesNotDoubleCount(t *testing.T) {
	room := Room{ID: 1, ScoringMode: ScoringNormal, MaxLives: 3}
	p := Participant{ID: 7, Lives: 3}
	sub := Submission{QuestionIndex: 0, SelectedAnswer: "A"}

	first, p := ScoreAnswer(room, p, nil, sub, "A", time.Now())
	_, p = ScoreAnswer(room, p, []Answer{first}, sub, "A", time.Now())

	if p.TotalCorrect != 1 || p.Score != 100 {
		t.Fatalf("resubmission double counted: %+v", p)
	}
}

func TestScoreAnswerEliminatesWhenLivesRunOut(t *testing.T) {
	room := Room{ID: 1, ScoringMode: ScoringSpeed, EnableLives: true, MaxLives: 1}
	p := Participant{ID: 1, Lives: 1}

	_, p = ScoreAnswer(room, p, nil, Submission{QuestionIndex: 0, SelectedAnswer: "C"}, "A", time.Now())
	if !p.IsEliminated || p.Lives != 0 {
		t.Fatalf("expected eliminated with 0 lives, got %+v", p)
	}
}

func TestScoreAnswerIgnoresLivesWhenDisabled(t *testing.T) {
	room := Room{ID: 1, ScoringMode: ScoringSpeed, EnableLives: false, MaxLives: 1}
	p := Participant{ID: 1, Lives: 1}
	var prior []Answer
	for i := 0; i < 5; i++ {
		var a Answer
		a, p = ScoreAnswer(room, p, prior, Submission{QuestionIndex: i, SelectedAnswer: "D"}, "A", time.Now())
		prior = append(prior, a)
	}
	if p.IsEliminated || p.Lives != 1 {
		t.Fatalf("lives changed while disabled: %+v", p)
	}
	if p.TotalWrong != 5 {
		t.Fatalf("expected 5 wrong answers, got %d", p.TotalWrong)
	}
}

func TestEarnedAnswerBadges(t *testing.T) {
	got := EarnedAnswerBadges(Answer{IsCorrect: true, AnswerTimeMs: 3000}, 10)
	want := []Badge{BadgeStreak5, BadgeStreak10, BadgeSpeedDemon}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if badges := EarnedAnswerBadges(Answer{IsCorrect: false, AnswerTimeMs: 10}, 20); len(badges) != 0 {
		t.Fatalf("wrong answers earn nothing, got %v", badges)
	}
}
