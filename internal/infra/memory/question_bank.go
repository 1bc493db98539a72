package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"

	"yds-challenge-service/internal/domain"
)

// QuestionBank is a question catalog held in memory (useful for tests/demos).
type QuestionBank struct {
	mu         sync.Mutex
	rnd        *rand.Rand
	byID       map[int64]domain.Question
	byCategory map[string][]int64
}

// NewQuestionBank indexes questions; seed fixes the sampling order.
func NewQuestionBank(questions []domain.Question, seed int64) *QuestionBank {
	b := &QuestionBank{
		rnd:        rand.New(rand.NewSource(seed)),
		byID:       make(map[int64]domain.Question, len(questions)),
		byCategory: make(map[string][]int64),
	}
	for _, q := range questions {
		if _, dup := b.byID[q.ID]; dup {
			continue
		}
		b.byID[q.ID] = q
		b.byCategory[q.Category] = append(b.byCategory[q.Category], q.ID)
	}
	for _, ids := range b.byCategory {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return b
}

// SampleByCategory returns up to n distinct random questions of category.
func (b *QuestionBank) SampleByCategory(_ context.Context, category string, n int) ([]domain.Question, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := b.byCategory[category]
	if n <= 0 || len(ids) == 0 {
		return nil, nil
	}
	if n > len(ids) {
		n = len(ids)
	}
	out := make([]domain.Question, 0, n)
	for _, i := range b.rnd.Perm(len(ids))[:n] {
		out = append(out, b.byID[ids[i]])
	}
	return out, nil
}

func (b *QuestionBank) Question(_ context.Context, id int64) (domain.Question, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.byID[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, nil
}

// SampleQuestions is a small YDS-style bank for local runs without a database.
func SampleQuestions() []domain.Question {
	opts := []string{"A", "B", "C", "D", "E"}
	raw := []struct {
		category, text, answer string
	}{
		{"Tenses", "By the time the rescue team arrived, the climbers ---- for two days.", "C"},
		{"Tenses", "Scientists ---- the effects of the drug since last year.", "B"},
		{"Tenses", "The committee ---- its decision by next Monday.", "E"},
		{"Modals", "You ---- have told me earlier; now it is too late.", "A"},
		{"Modals", "The results ---- be accurate, as the sample was very small.", "D"},
		{"If Clauses", "If the project had been funded, it ---- by now.", "B"},
		{"If Clauses", "Had they listened to the warnings, they ---- the disaster.", "C"},
		{"Passive", "The bridge ---- when the earthquake struck.", "D"},
		{"Passive", "Many species ---- extinct before they are even identified.", "A"},
		{"Relative Clauses", "The author, ---- novels sold millions, rarely gave interviews.", "E"},
		{"Relative Clauses", "This is the laboratory ---- the vaccine was first developed.", "B"},
		{"Conjunctions", "---- the weather was terrible, the match went ahead.", "A"},
		{"Conjunctions", "The policy failed, ---- its ambitious goals.", "C"},
		{"Gerunds & Infinitives", "She avoided ---- the question directly.", "D"},
		{"Gerunds & Infinitives", "They agreed ---- the contract after long talks.", "E"},
		{"Noun Clauses", "---- the ancient city was abandoned remains a mystery.", "B"},
	}
	out := make([]domain.Question, len(raw))
	for i, r := range raw {
		out[i] = domain.Question{
			ID:            int64(i + 1),
			Text:          r.text,
			Options:       opts,
			CorrectAnswer: r.answer,
			Category:      r.category,
		}
	}
	return out
}
