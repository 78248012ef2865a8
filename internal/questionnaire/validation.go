package questionnaire

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// FieldError describes one invalid or missing answer.
type FieldError struct {
	QuestionID string `json:"questionId"`
	Message    string `json:"message"`
}

func (e FieldError) Error() string {
	return e.QuestionID + ": " + e.Message
}

// ValidationErrors collects every FieldError found in a response set.
type ValidationErrors []FieldError

func (e ValidationErrors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Error()
	}
	return "invalid responses: " + strings.Join(parts, "; ")
}

// ValidateAnswer checks a single answer against its question. An empty
// answer is only an error for required questions.
func ValidateAnswer(q Question, v Value) error {
	fail := func(format string, args ...any) error {
		return FieldError{QuestionID: q.ID, Message: fmt.Sprintf(format, args...)}
	}

	if !v.Answered() {
		if q.Required {
			return fail("an answer is required")
		}
		return nil
	}

	switch q.Type {
	case TypeSingleSelect, TypeCardSelect:
		s, ok := v.AsText()
		if !ok {
			return fail("expected a single option, got %s", v.Kind())
		}
		if !q.HasOption(s) {
			return fail("%q is not an option", s)
		}
	case TypeMultiSelect:
		items, ok := v.AsList()
		if !ok {
			return fail("expected a list of options, got %s", v.Kind())
		}
		seen := make(map[string]struct{}, len(items))
		for _, item := range items {
			if !q.HasOption(item) {
				return fail("%q is not an option", item)
			}
			if _, dup := seen[item]; dup {
				return fail("%q selected twice", item)
			}
			seen[item] = struct{}{}
		}
	case TypeYesNo:
		if _, ok := v.AsBool(); !ok {
			return fail("expected yes or no, got %s", v.Kind())
		}
	case TypeFreeText:
		s, ok := v.AsText()
		if !ok {
			return fail("expected text, got %s", v.Kind())
		}
		if q.Validation != nil {
			trimmed := strings.TrimSpace(s)
			if q.Validation.MinLength > 0 && utf8.RuneCountInString(trimmed) < q.Validation.MinLength {
				return fail("must be at least %d characters", q.Validation.MinLength)
			}
			if q.Validation.Pattern != nil && !q.Validation.Pattern.MatchString(trimmed) {
				return fail("has an invalid format")
			}
		}
	}
	return nil
}

// Validate checks responses for completeness along their flow. Required
// questions on the path must be answered, every answer must fit its
// question, and answers to unknown questions are rejected. Returns nil when
// the set is valid, otherwise a ValidationErrors.
func (g *Graph) Validate(responses ResponseSet) error {
	var errs ValidationErrors

	onPath := make(map[string]struct{})
	for _, q := range g.Flow(responses) {
		onPath[q.ID] = struct{}{}
		if err := ValidateAnswer(q, responses[q.ID]); err != nil {
			errs = append(errs, err.(FieldError))
		}
	}

	// Answers left behind by an abandoned branch are checked for shape only.
	for _, q := range g.questions {
		if _, ok := onPath[q.ID]; ok {
			continue
		}
		v, answered := responses[q.ID]
		if !answered || !v.Answered() {
			continue
		}
		if err := ValidateAnswer(q, v); err != nil {
			errs = append(errs, err.(FieldError))
		}
	}

	unknown := make([]string, 0)
	for id := range responses {
		if _, known := g.index[id]; !known {
			unknown = append(unknown, id)
		}
	}
	sort.Strings(unknown)
	for _, id := range unknown {
		errs = append(errs, FieldError{QuestionID: id, Message: "unknown question"})
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
