package domain

import "math"

// CategoryCount asks for count questions from one category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// FullYDSQuestions is the length of a complete YDS simulation.
const FullYDSQuestions = 80

// Real YDS exam distribution.
var ydsDistribution = []CategoryCount{
	{"Tenses", 8},
	{"Modals", 4},
	{"If Clauses", 6},
	{"Passive", 8},
	{"Noun Clauses", 6},
	{"Relative Clauses", 7},
	{"Reductions", 3},
	{"Nouns", 5},
	{"Adjectives & Adverbs", 5},
	{"Conjunctions", 6},
	{"Gerunds & Infinitives", 6},
	{"Grammar Revision", 16},
}

var presetDivisors = map[string]int{
	"yds":      1,
	"orta-yds": 2,
	"mini-yds": 4,
}

// PresetDistribution scales the YDS table for a preset mode. Every category
// keeps at least one question.
func PresetDistribution(mode string) ([]CategoryCount, bool) {
	divisor, ok := presetDivisors[mode]
	if !ok {
		return nil, false
	}
	out := make([]CategoryCount, 0, len(ydsDistribution))
	for _, cc := range ydsDistribution {
		n := int(math.Round(float64(cc.Count) / float64(divisor)))
		if n < 1 {
			n = 1
		}
		out = append(out, CategoryCount{Category: cc.Category, Count: n})
	}
	return out, true
}

// RoomTemplate is a canned room configuration.
type RoomTemplate struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Categories    []string `json:"categories"`
	QuestionCount int      `json:"questionCount"`
	TimeLimit     int      `json:"timeLimit,omitempty"`
}

var roomTemplates = []RoomTemplate{
	{ID: "grammar-basics", Name: "Grammar Basics", Categories: []string{"Tenses", "Modals", "If Clauses"}, QuestionCount: 15},
	{ID: "advanced-grammar", Name: "Advanced Grammar", Categories: []string{"Noun Clauses", "Relative Clauses", "Reductions"}, QuestionCount: 20},
	{ID: "vocabulary-focus", Name: "Vocabulary Focus", Categories: []string{"Nouns", "Adjectives & Adverbs", "Conjunctions"}, QuestionCount: 20},
	{ID: "quick-practice", Name: "Quick Practice", Categories: []string{"Tenses", "Passive"}, QuestionCount: 10, TimeLimit: 30},
}

// Templates lists the room templates.
func Templates() []RoomTemplate {
	out := make([]RoomTemplate, len(roomTemplates))
	copy(out, roomTemplates)
	return out
}

// TemplateByID looks a template up by id.
func TemplateByID(id string) (RoomTemplate, bool) {
	for _, t := range roomTemplates {
		if t.ID == id {
			return t, true
		}
	}
	return RoomTemplate{}, false
}

// Distribution splits the template's question count evenly over its
// categories, giving the remainder to the first ones.
func (t RoomTemplate) Distribution() []CategoryCount {
	if len(t.Categories) == 0 {
		return nil
	}
	base := t.QuestionCount / len(t.Categories)
	extra := t.QuestionCount % len(t.Categories)
	out := make([]CategoryCount, 0, len(t.Categories))
	for i, c := range t.Categories {
		n := base
		if i < extra {
			n++
		}
		out = append(out, CategoryCount{Category: c, Count: n})
	}
	return out
}
