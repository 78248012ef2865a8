// Package scoring turns questionnaire answers into a lead score.
//
// Scoring is a pure function of the response set: five capped categories
// (budget, timeline, authority, complexity, engagement) summed into a total
// between 0 and 100 and bucketed into a temperature tier.
package scoring

import (
	"math"
	"strings"
	"sync"
	"unicode/utf8"

	"lead_portal_backend/internal/questionnaire"
)

// ModelVersion identifies the scoring tables. Bump when they change.
const ModelVersion = "intake-2026-v1"

// Breakdown is the score of one response set.
type Breakdown struct {
	Budget      int         `json:"budget"`
	Timeline    int         `json:"timeline"`
	Authority   int         `json:"authority"`
	Complexity  int         `json:"complexity"`
	Engagement  int         `json:"engagement"`
	Total       int         `json:"total"`
	Temperature Temperature `json:"temperature"`
}

// Engine scores responses to one questionnaire. It holds no mutable state and
// is safe for concurrent use.
type Engine struct {
	questions map[string]struct{}
	freeText  []string
}

// NewEngine builds an engine for graph. Engagement is measured against every
// question in the graph.
func NewEngine(graph *questionnaire.Graph) *Engine {
	e := &Engine{questions: make(map[string]struct{}, graph.Len())}
	for _, q := range graph.Questions() {
		e.questions[q.ID] = struct{}{}
		if q.Type == questionnaire.TypeFreeText {
			e.freeText = append(e.freeText, q.ID)
		}
	}
	return e
}

var defaultEngine = sync.OnceValue(func() *Engine {
	return NewEngine(questionnaire.Default())
})

// Default returns the engine for the built-in questionnaire.
func Default() *Engine {
	return defaultEngine()
}

// CalculateLeadScore scores responses against the built-in questionnaire.
func CalculateLeadScore(responses questionnaire.ResponseSet) Breakdown {
	return Default().Score(responses)
}

// Score computes the breakdown. Absent or unrecognised answers score zero.
func (e *Engine) Score(responses questionnaire.ResponseSet) Breakdown {
	b := Breakdown{
		Budget:     lookup(budgetPoints, responses, questionBudget),
		Timeline:   lookup(timelinePoints, responses, questionTimeline),
		Authority:  lookup(authorityPoints, responses, questionDecisionMaker),
		Complexity: e.complexity(responses),
		Engagement: e.engagement(responses),
	}
	b.Total = b.Budget + b.Timeline + b.Authority + b.Complexity + b.Engagement
	b.Temperature = TemperatureFor(b.Total)
	return b
}

func lookup(table map[string]int, responses questionnaire.ResponseSet, id string) int {
	answer, ok := responses[id].AsText()
	if !ok {
		return 0
	}
	return table[answer]
}

func (e *Engine) complexity(responses questionnaire.ResponseSet) int {
	points := lookup(projectTypePoints, responses, questionProjectType)
	points += featureBonus(responses[questionFeatures].Len())
	return min(points, maxComplexity)
}

func (e *Engine) engagement(responses questionnaire.ResponseSet) int {
	if len(e.questions) == 0 {
		return 0
	}

	answered := 0
	for id, v := range responses {
		if _, known := e.questions[id]; known && v.Answered() {
			answered++
		}
	}
	points := int(math.Round(float64(answered) / float64(len(e.questions)) * completionPoints))

	long := 0
	for _, id := range e.freeText {
		text, ok := responses[id].AsText()
		if ok && utf8.RuneCountInString(strings.TrimSpace(text)) > longAnswerThreshold {
			long++
		}
	}
	points += freeTextBonus(long)

	return min(points, maxEngagement)
}
