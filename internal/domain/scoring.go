package domain

import (
	"math"
	"sort"
	"time"
)

const (
	BasePoints         = 100
	StreakBonus        = 10
	MaxSpeedBonus      = 50
	SpeedBonusWindowMs = 10000
	SpeedBadgeWindowMs = 5000
	DefaultMaxLives    = 3
	// MaxAnswerLength is the widest option label an answer row can hold.
	MaxAnswerLength = 5
)

// Submission is a participant's answer to one question index.
type Submission struct {
	QuestionIndex  int
	SelectedAnswer string
	AnswerTimeMs   int
}

// CalculatePoints returns the points a correct answer earns. streakBefore is the
// correct run leading into this answer.
func CalculatePoints(correct bool, answerTimeMs, streakBefore int, mode ScoringMode) int {
	if !correct {
		return 0
	}
	if mode == ScoringNormal {
		return BasePoints
	}
	points := BasePoints + streakBefore*StreakBonus
	if answerTimeMs < 0 {
		answerTimeMs = 0
	}
	if answerTimeMs < SpeedBonusWindowMs {
		ratio := 1 - float64(answerTimeMs)/SpeedBonusWindowMs
		points += int(math.Round(MaxSpeedBonus * ratio))
	}
	return points
}

// Tally is the set of participant aggregates derived from stored answers.
type Tally struct {
	TotalCorrect  int
	TotalWrong    int
	Score         int
	CurrentStreak int
	MaxStreak     int
}

func sortedByIndex(answers []Answer) []Answer {
	out := make([]Answer, len(answers))
	copy(out, answers)
	sort.SliceStable(out, func(i, j int) bool { return out[i].QuestionIndex < out[j].QuestionIndex })
	return out
}

// TallyAnswers recomputes aggregates from a participant's answers. Questions
// without an answer do not break a streak.
func TallyAnswers(answers []Answer) Tally {
	var t Tally
	for _, a := range sortedByIndex(answers) {
		t.Score += a.PointsEarned
		if a.IsCorrect {
			t.TotalCorrect++
			t.CurrentStreak++
			if t.CurrentStreak > t.MaxStreak {
				t.MaxStreak = t.CurrentStreak
			}
			continue
		}
		t.TotalWrong++
		t.CurrentStreak = 0
	}
	return t
}

// StreakBefore is the correct run of answers with an index below questionIndex.
func StreakBefore(answers []Answer, questionIndex int) int {
	var earlier []Answer
	for _, a := range answers {
		if a.QuestionIndex < questionIndex {
			earlier = append(earlier, a)
		}
	}
	return TallyAnswers(earlier).CurrentStreak
}

// ScoreAnswer folds a submission into the participant's stored answers and
// returns the answer row to persist and the participant with recomputed
// aggregates. A previous answer for the same index is replaced.
func ScoreAnswer(room Room, p Participant, prior []Answer, sub Submission, correctAnswer string, now time.Time) (Answer, Participant) {
	others := make([]Answer, 0, len(prior))
	for _, a := range prior {
		if a.QuestionIndex != sub.QuestionIndex {
			others = append(others, a)
		}
	}

	timeMs := sub.AnswerTimeMs
	if timeMs < 0 {
		timeMs = 0
	}
	correct := sub.SelectedAnswer == correctAnswer
	answer := Answer{
		RoomID:         room.ID,
		ParticipantID:  p.ID,
		Username:       p.Username,
		QuestionIndex:  sub.QuestionIndex,
		SelectedAnswer: sub.SelectedAnswer,
		IsCorrect:      correct,
		AnswerTimeMs:   timeMs,
		PointsEarned:   CalculatePoints(correct, timeMs, StreakBefore(others, sub.QuestionIndex), room.ScoringMode),
		AnsweredAt:     now,
	}

	t := TallyAnswers(append(others, answer))
	p.TotalCorrect = t.TotalCorrect
	p.TotalWrong = t.TotalWrong
	p.Score = t.Score
	p.CurrentStreak = t.CurrentStreak
	p.MaxStreak = t.MaxStreak
	p.LastSeen = now

	if room.EnableLives {
		lives := room.MaxLives - t.TotalWrong
		if lives < 0 {
			lives = 0
		}
		p.Lives = lives
		if lives <= 0 {
			p.IsEliminated = true
		}
	}
	return answer, p
}

// EarnedAnswerBadges lists the badges a scored answer qualifies for.
func EarnedAnswerBadges(answer Answer, streak int) []Badge {
	if !answer.IsCorrect {
		return nil
	}
	badges := StreakBadges(streak)
	if answer.AnswerTimeMs < SpeedBadgeWindowMs {
		badges = append(badges, BadgeSpeedDemon)
	}
	return badges
}
