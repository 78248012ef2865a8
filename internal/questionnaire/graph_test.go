package questionnaire

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func completeResponses() ResponseSet {
	return ResponseSet{
		"project_type":        Text("web_app"),
		"features":            List("user_accounts", "payments", "cms", "search", "analytics", "admin_panel"),
		"current_website":     Bool(true),
		"current_website_url": Text("https://example.com"),
		"project_goals":       Text("Replace our spreadsheet-driven ordering process with a self-service portal for dealers."),
		"budget":              Text("50k_plus"),
		"timeline":            Text("asap"),
		"decision_maker":      Text("sole_decision"),
		"company_size":        Text("11_50"),
		"target_audience":     Text("Independent bicycle dealers across the Benelux who reorder stock weekly."),
		"additional_info":     Text("We already have an ERP with an API."),
	}
}

func TestDefaultDefinitionLoads(t *testing.T) {
	g := Default()
	if g.Len() != 11 {
		t.Fatalf("expected 11 questions, got %d", g.Len())
	}
	if g.First().ID != "project_type" {
		t.Fatalf("expected project_type first, got %s", g.First().ID)
	}
	q, ok := g.Question("current_website_url")
	if !ok || !q.BranchOnly {
		t.Fatal("current_website_url should be a branch-only question")
	}
}

func TestNextFollowsBranchWhenRuleMatches(t *testing.T) {
	g := Default()

	next := g.Next("current_website", ResponseSet{"current_website": Bool(true)})
	if next == nil || next.ID != "current_website_url" {
		t.Fatalf("expected current_website_url, got %+v", next)
	}

	next = g.Next("current_website", ResponseSet{"current_website": Bool(false)})
	if next == nil || next.ID != "project_goals" {
		t.Fatalf("expected fall through to project_goals, got %+v", next)
	}
}

func TestNextAfterBranchTargetContinuesLinearly(t *testing.T) {
	next := Default().Next("current_website_url", ResponseSet{"current_website": Bool(true)})
	if next == nil || next.ID != "project_goals" {
		t.Fatalf("expected project_goals, got %+v", next)
	}
}

func TestNextAtEndOrUnknownReturnsNil(t *testing.T) {
	g := Default()
	if next := g.Next("additional_info", completeResponses()); next != nil {
		t.Fatalf("expected nil after last question, got %s", next.ID)
	}
	if next := g.Next("does_not_exist", nil); next != nil {
		t.Fatalf("expected nil for unknown id, got %s", next.ID)
	}
}

func TestNextSkipsRuleForUnansweredSource(t *testing.T) {
	next := Default().Next("current_website", ResponseSet{})
	if next == nil || next.ID != "project_goals" {
		t.Fatalf("expected linear fallback, got %+v", next)
	}
}

func TestFirstMatchingRuleWins(t *testing.T) {
	g, err := NewGraph([]Question{
		{ID: "seats", Type: TypeFreeText, Branching: []BranchRule{
			{SourceQuestionID: "seats", Condition: GreaterThan{Threshold: 100}, NextQuestionID: "enterprise"},
			{SourceQuestionID: "seats", Condition: GreaterThan{Threshold: 10}, NextQuestionID: "team"},
		}},
		{ID: "solo", Type: TypeFreeText},
		{ID: "team", Type: TypeFreeText, BranchOnly: true},
		{ID: "enterprise", Type: TypeFreeText, BranchOnly: true},
	})
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	cases := map[string]string{"500": "enterprise", "50": "team", "3": "solo", "many": "solo"}
	for answer, want := range cases {
		next := g.Next("seats", ResponseSet{"seats": Text(answer)})
		if next == nil || next.ID != want {
			t.Errorf("seats=%s: expected %s, got %+v", answer, want, next)
		}
	}
}

func TestConditionMatches(t *testing.T) {
	tests := []struct {
		name   string
		cond   Condition
		answer Value
		want   bool
	}{
		{"equals bool", Equals{Value: Bool(true)}, Bool(true), true},
		{"equals is strict on kind", Equals{Value: Bool(true)}, Text("true"), false},
		{"equals text", Equals{Value: Text("web_app")}, Text("web_app"), true},
		{"equals never matches lists", Equals{Value: Text("cms")}, List("cms"), false},
		{"contains member", Contains{Item: "payments"}, List("cms", "payments"), true},
		{"contains missing", Contains{Item: "chat"}, List("cms"), false},
		{"contains needs list", Contains{Item: "cms"}, Text("cms"), false},
		{"greater than number", GreaterThan{Threshold: 5}, Number(6), true},
		{"greater than is strict", GreaterThan{Threshold: 5}, Number(5), false},
		{"greater than numeric text", GreaterThan{Threshold: 5}, Text(" 7 "), true},
		{"greater than non numeric", GreaterThan{Threshold: 5}, Text("lots"), false},
		{"less than bool", LessThan{Threshold: 5}, Bool(false), false},
		{"less than number", LessThan{Threshold: 5}, Number(-1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cond.Matches(tt.answer); got != tt.want {
				t.Fatalf("Matches(%v) = %v, want %v", tt.answer, got, tt.want)
			}
		})
	}
}

func TestParseRejectsUnknownOperator(t *testing.T) {
	_, err := Parse([]byte(`
questions:
  - id: a
    type: yes_no
    branching:
      - { when: a, operator: starts_with, value: x, next: b }
  - id: b
    type: free_text
`))
	if err == nil || !strings.Contains(err.Error(), "unknown branching operator") {
		t.Fatalf("expected unknown operator error, got %v", err)
	}
}

func TestNewGraphRejectsBackwardBranch(t *testing.T) {
	_, err := NewGraph([]Question{
		{ID: "a", Type: TypeFreeText},
		{ID: "b", Type: TypeYesNo, Branching: []BranchRule{
			{SourceQuestionID: "b", Condition: Equals{Value: Bool(true)}, NextQuestionID: "a"},
		}},
	})
	if err == nil {
		t.Fatal("expected backwards branch to be rejected")
	}
}

func TestFlowMaterializesPath(t *testing.T) {
	g := Default()

	withSite := g.Flow(ResponseSet{"current_website": Bool(true)})
	withoutSite := g.Flow(ResponseSet{"current_website": Bool(false)})

	if len(withSite) != 11 {
		t.Fatalf("expected 11 questions on the path with a website, got %d", len(withSite))
	}
	if len(withoutSite) != 10 {
		t.Fatalf("expected 10 questions on the path without a website, got %d", len(withoutSite))
	}
	for _, q := range withoutSite {
		if q.ID == "current_website_url" {
			t.Fatal("url question should not be on the path without a website")
		}
	}

	seen := map[string]bool{}
	for _, q := range withSite {
		if seen[q.ID] {
			t.Fatalf("question %s visited twice", q.ID)
		}
		seen[q.ID] = true
	}
}

func TestPruneDropsAbandonedBranchAnswers(t *testing.T) {
	g := Default()
	responses := completeResponses()
	responses["current_website"] = Bool(false)

	pruned := g.Prune(responses)

	if pruned.Answered("current_website_url") {
		t.Fatal("url answer should be dropped once current_website is false")
	}
	if len(pruned) != len(responses)-1 {
		t.Fatalf("expected %d answers, got %d", len(responses)-1, len(pruned))
	}
	if !responses.Answered("current_website_url") {
		t.Fatal("input responses must not be modified")
	}
	if len(g.Prune(completeResponses())) != len(completeResponses()) {
		t.Fatal("answers on the flow must be kept")
	}
}

func TestResumeAtReturnsFirstMissingRequiredQuestion(t *testing.T) {
	g := Default()
	responses := ResponseSet{
		"project_type":    Text("ecommerce"),
		"features":        List("payments"),
		"current_website": Bool(true),
	}

	q := g.ResumeAt(responses)
	if q == nil || q.ID != "current_website_url" {
		t.Fatalf("expected resume at current_website_url, got %+v", q)
	}

	full := completeResponses()
	delete(full, "additional_info")
	if q := g.ResumeAt(full); q != nil {
		t.Fatalf("optional question should not block completion, got %s", q.ID)
	}
}

func TestValidate(t *testing.T) {
	g := Default()

	if err := g.Validate(completeResponses()); err != nil {
		t.Fatalf("expected complete responses to validate, got %v", err)
	}

	bad := completeResponses()
	bad["budget"] = Text("a_million")
	bad["current_website_url"] = Text("not a url")
	delete(bad, "timeline")
	bad["favourite_colour"] = Text("blue")

	err := g.Validate(bad)
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}

	got := map[string]bool{}
	for _, fe := range verrs {
		got[fe.QuestionID] = true
	}
	for _, id := range []string{"budget", "current_website_url", "timeline", "favourite_colour"} {
		if !got[id] {
			t.Errorf("expected an error for %s, got %v", id, verrs)
		}
	}
}

func TestValidateAnswerTypes(t *testing.T) {
	g := Default()
	features, _ := g.Question("features")
	goals, _ := g.Question("project_goals")
	site, _ := g.Question("current_website")

	if err := ValidateAnswer(features, List("cms", "cms")); err == nil {
		t.Error("duplicate selections should be rejected")
	}
	if err := ValidateAnswer(features, Text("cms")); err == nil {
		t.Error("multi select needs a list")
	}
	if err := ValidateAnswer(goals, Text("too short")); err == nil {
		t.Error("min length should be enforced")
	}
	if err := ValidateAnswer(site, Text("yes")); err == nil {
		t.Error("yes/no needs a boolean")
	}
}

func TestResponseSetDecodesNaturalJSON(t *testing.T) {
	var r ResponseSet
	raw := `{"project_type":"web_app","features":["cms","search"],"current_website":false,"seats":12}`
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if r["features"].Len() != 2 || !r["features"].Has("search") {
		t.Fatalf("features decoded wrong: %v", r["features"])
	}
	if b, ok := r["current_website"].AsBool(); !ok || b {
		t.Fatalf("current_website decoded wrong: %v", r["current_website"])
	}
	if n, ok := r["seats"].AsNumber(); !ok || n != 12 {
		t.Fatalf("seats decoded wrong: %v", r["seats"])
	}
}
