// Package questionnaire holds the intake question definitions and the
// branching logic that decides which question a respondent sees next.
package questionnaire

import (
	"errors"
	"fmt"
	"regexp"
)

// QuestionType controls how a question is rendered and validated.
type QuestionType string

const (
	TypeSingleSelect QuestionType = "single_select"
	TypeMultiSelect  QuestionType = "multi_select"
	TypeFreeText     QuestionType = "free_text"
	TypeYesNo        QuestionType = "yes_no"
	TypeCardSelect   QuestionType = "card_select"
)

func (t QuestionType) valid() bool {
	switch t {
	case TypeSingleSelect, TypeMultiSelect, TypeFreeText, TypeYesNo, TypeCardSelect:
		return true
	}
	return false
}

func (t QuestionType) hasOptions() bool {
	return t == TypeSingleSelect || t == TypeMultiSelect || t == TypeCardSelect
}

type Option struct {
	Value    string
	Label    string
	Metadata map[string]string
}

// Validation constrains free-text answers.
type Validation struct {
	MinLength int
	Pattern   *regexp.Regexp
}

// BranchRule redirects to NextQuestionID when Condition holds for the answer
// to SourceQuestionID.
type BranchRule struct {
	SourceQuestionID string
	Condition        Condition
	NextQuestionID   string
}

type Question struct {
	ID          string
	Type        QuestionType
	Title       string
	Description string
	Required    bool
	// BranchOnly questions are reached through a branching rule and are
	// skipped by the linear fallback.
	BranchOnly bool
	Options    []Option
	Validation *Validation
	Branching  []BranchRule
}

// HasOption reports whether value is one of the question's option values.
func (q Question) HasOption(value string) bool {
	for _, o := range q.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}

// Graph is an immutable, validated question sequence.
type Graph struct {
	questions []Question
	index     map[string]int
}

// NewGraph validates questions and builds a Graph. Branching targets must
// exist and sit later in the order than the question declaring the rule, so
// a walk can never loop.
func NewGraph(questions []Question) (*Graph, error) {
	if len(questions) == 0 {
		return nil, errors.New("questionnaire has no questions")
	}

	g := &Graph{
		questions: make([]Question, len(questions)),
		index:     make(map[string]int, len(questions)),
	}
	copy(g.questions, questions)

	for i, q := range g.questions {
		if q.ID == "" {
			return nil, fmt.Errorf("question %d has no id", i)
		}
		if _, dup := g.index[q.ID]; dup {
			return nil, fmt.Errorf("duplicate question id %q", q.ID)
		}
		if !q.Type.valid() {
			return nil, fmt.Errorf("question %q has unknown type %q", q.ID, q.Type)
		}
		if q.Type.hasOptions() && len(q.Options) == 0 {
			return nil, fmt.Errorf("question %q needs options", q.ID)
		}
		g.index[q.ID] = i
	}

	if g.questions[0].BranchOnly {
		return nil, fmt.Errorf("first question %q cannot be branch-only", g.questions[0].ID)
	}

	for i, q := range g.questions {
		for _, rule := range q.Branching {
			if rule.Condition == nil {
				return nil, fmt.Errorf("question %q has a rule without condition", q.ID)
			}
			if _, ok := g.index[rule.SourceQuestionID]; !ok {
				return nil, fmt.Errorf("question %q branches on unknown question %q", q.ID, rule.SourceQuestionID)
			}
			target, ok := g.index[rule.NextQuestionID]
			if !ok {
				return nil, fmt.Errorf("question %q branches to unknown question %q", q.ID, rule.NextQuestionID)
			}
			if target <= i {
				return nil, fmt.Errorf("question %q branches backwards to %q", q.ID, rule.NextQuestionID)
			}
		}
	}

	return g, nil
}

// Len is the total number of questions, branch-only ones included.
func (g *Graph) Len() int { return len(g.questions) }

// Questions returns the definitions in declaration order.
func (g *Graph) Questions() []Question {
	out := make([]Question, len(g.questions))
	copy(out, g.questions)
	return out
}

// Question looks up a definition by id.
func (g *Graph) Question(id string) (Question, bool) {
	i, ok := g.index[id]
	if !ok {
		return Question{}, false
	}
	return g.questions[i], true
}

// First returns the entry question.
func (g *Graph) First() Question { return g.questions[0] }

// Next returns the question that follows currentID given responses, or nil
// when currentID is the last question or unknown.
//
// Branching rules are tried in declaration order; the first match wins.
// Rules whose source question has no answer are skipped.
func (g *Graph) Next(currentID string, responses ResponseSet) *Question {
	pos, ok := g.index[currentID]
	if !ok {
		return nil
	}

	for _, rule := range g.questions[pos].Branching {
		answer, answered := responses[rule.SourceQuestionID]
		if !answered || !answer.Answered() {
			continue
		}
		if rule.Condition.Matches(answer) {
			q := g.questions[g.index[rule.NextQuestionID]]
			return &q
		}
	}

	for i := pos + 1; i < len(g.questions); i++ {
		if !g.questions[i].BranchOnly {
			q := g.questions[i]
			return &q
		}
	}
	return nil
}

// Flow replays Next from the first question and returns the path responses
// has taken, continuing past unanswered questions along the path they would
// take. No question appears twice.
func (g *Graph) Flow(responses ResponseSet) []Question {
	path := make([]Question, 0, len(g.questions))
	seen := make(map[string]struct{}, len(g.questions))

	current := g.questions[0]
	for {
		if _, dup := seen[current.ID]; dup {
			break
		}
		seen[current.ID] = struct{}{}
		path = append(path, current)

		next := g.Next(current.ID, responses)
		if next == nil {
			break
		}
		current = *next
	}
	return path
}

// ResumeAt returns the first required question on the flow that still lacks
// an answer, or nil when the responses can be completed.
func (g *Graph) ResumeAt(responses ResponseSet) *Question {
	for _, q := range g.Flow(responses) {
		if q.Required && !responses.Answered(q.ID) {
			return &q
		}
	}
	return nil
}

// Prune returns the answers that lie on the flow for responses. Answers
// left behind by an abandoned branch are dropped; responses is not modified.
func (g *Graph) Prune(responses ResponseSet) ResponseSet {
	kept := make(ResponseSet, len(responses))
	for _, q := range g.Flow(responses) {
		if v, ok := responses[q.ID]; ok {
			kept[q.ID] = v
		}
	}
	return kept
}

// OnFlow reports whether id is part of the path for responses.
func (g *Graph) OnFlow(id string, responses ResponseSet) bool {
	for _, q := range g.Flow(responses) {
		if q.ID == id {
			return true
		}
	}
	return false
}
