package scoring

import (
	"strings"
	"testing"

	"lead_portal_backend/internal/questionnaire"
)

func hotResponses() questionnaire.ResponseSet {
	return questionnaire.ResponseSet{
		"project_type":        questionnaire.Text("web_app"),
		"features":            questionnaire.List("user_accounts", "payments", "cms", "search", "analytics", "admin_panel"),
		"current_website":     questionnaire.Bool(true),
		"current_website_url": questionnaire.Text("https://example.com"),
		"project_goals":       questionnaire.Text(strings.Repeat("grow online revenue ", 4)),
		"budget":              questionnaire.Text("50k_plus"),
		"timeline":            questionnaire.Text("asap"),
		"decision_maker":      questionnaire.Text("sole_decision"),
		"company_size":        questionnaire.Text("2_10"),
		"target_audience":     questionnaire.Text(strings.Repeat("dealers and resellers ", 3)),
		"additional_info":     questionnaire.Text("none"),
	}
}

func TestScoreMaximumExample(t *testing.T) {
	b := CalculateLeadScore(hotResponses())

	want := Breakdown{Budget: 35, Timeline: 25, Authority: 15, Complexity: 15, Engagement: 10, Total: 100, Temperature: TemperatureHot}
	if b != want {
		t.Fatalf("got %+v, want %+v", b, want)
	}
}

func TestScoreEmptyResponses(t *testing.T) {
	b := CalculateLeadScore(questionnaire.ResponseSet{})

	if b != (Breakdown{Temperature: TemperatureEarly}) {
		t.Fatalf("expected all zero and early, got %+v", b)
	}
	if CalculateLeadScore(nil) != b {
		t.Fatal("nil responses should score like empty responses")
	}
}

func TestScoreIsPure(t *testing.T) {
	r := hotResponses()
	delete(r, "budget")
	if CalculateLeadScore(r) != CalculateLeadScore(r) {
		t.Fatal("scoring the same responses twice gave different results")
	}
}

func TestScoreUnknownAnswersScoreZero(t *testing.T) {
	b := CalculateLeadScore(questionnaire.ResponseSet{
		"budget":         questionnaire.Text("priceless"),
		"timeline":       questionnaire.Bool(true),
		"decision_maker": questionnaire.List("sole_decision"),
		"project_type":   questionnaire.Number(10),
	})
	if b.Budget != 0 || b.Timeline != 0 || b.Authority != 0 || b.Complexity != 0 {
		t.Fatalf("expected zero lookups, got %+v", b)
	}
}

func TestComplexityFeatureBonusIsCapped(t *testing.T) {
	tests := []struct {
		name     string
		project  string
		features []string
		want     int
	}{
		{"base only", "marketing_site", []string{"cms"}, 6},
		{"four features", "marketing_site", []string{"cms", "search", "chat", "booking"}, 9},
		{"six features", "marketing_site", []string{"cms", "search", "chat", "booking", "payments", "analytics"}, 11},
		{"cap", "web_app", []string{"cms", "search", "chat", "booking", "payments", "analytics"}, 15},
		{"features without project", "", []string{"cms", "search", "chat", "booking"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := questionnaire.ResponseSet{"features": questionnaire.List(tt.features...)}
			if tt.project != "" {
				r["project_type"] = questionnaire.Text(tt.project)
			}
			if got := CalculateLeadScore(r).Complexity; got != tt.want {
				t.Fatalf("complexity = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEngagement(t *testing.T) {
	long := strings.Repeat("x", 51)

	tests := []struct {
		name string
		r    questionnaire.ResponseSet
		want int
	}{
		{"one of eleven answered", questionnaire.ResponseSet{"budget": questionnaire.Text("under_5k")}, 1},
		{"one long answer", questionnaire.ResponseSet{"project_goals": questionnaire.Text(long)}, 2},
		{"exactly fifty chars is not long", questionnaire.ResponseSet{"project_goals": questionnaire.Text(strings.Repeat("x", 50))}, 1},
		{"two long answers", questionnaire.ResponseSet{
			"project_goals":   questionnaire.Text(long),
			"target_audience": questionnaire.Text(long),
		}, 4},
		{"unknown ids do not count", questionnaire.ResponseSet{"shoe_size": questionnaire.Number(44)}, 0},
		{"blank text does not count", questionnaire.ResponseSet{"budget": questionnaire.Text("  ")}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateLeadScore(tt.r).Engagement; got != tt.want {
				t.Fatalf("engagement = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTotalIsSumAndBounded(t *testing.T) {
	budgets := []string{"", "under_5k", "15k_30k", "50k_plus"}
	timelines := []string{"", "flexible", "asap"}
	features := [][]string{nil, {"cms"}, {"cms", "search", "chat", "booking", "payments", "analytics"}}

	for _, budget := range budgets {
		for _, timeline := range timelines {
			for _, f := range features {
				r := hotResponses()
				r["budget"] = questionnaire.Text(budget)
				r["timeline"] = questionnaire.Text(timeline)
				r["features"] = questionnaire.List(f...)

				b := CalculateLeadScore(r)
				sum := b.Budget + b.Timeline + b.Authority + b.Complexity + b.Engagement
				if b.Total != sum || b.Total < 0 || b.Total > 100 {
					t.Fatalf("bad total for %+v: %+v", r, b)
				}
				if b.Temperature != TemperatureFor(b.Total) {
					t.Fatalf("temperature mismatch: %+v", b)
				}
			}
		}
	}
}

func TestTableMaximaMatchCategoryCaps(t *testing.T) {
	maxOf := func(m map[string]int) int {
		best := 0
		for _, v := range m {
			best = max(best, v)
		}
		return best
	}
	if maxOf(budgetPoints) != maxBudget || maxOf(timelinePoints) != maxTimeline || maxOf(authorityPoints) != maxAuthority {
		t.Fatal("lookup tables exceed or fall short of their category caps")
	}
	if maxBudget+maxTimeline+maxAuthority+maxComplexity+maxEngagement != 100 {
		t.Fatal("category caps must sum to 100")
	}
}

func TestTemperatureBoundaries(t *testing.T) {
	tests := map[int]Temperature{
		100: TemperatureHot,
		80:  TemperatureHot,
		79:  TemperatureWarm,
		60:  TemperatureWarm,
		59:  TemperatureQualified,
		40:  TemperatureQualified,
		39:  TemperatureCool,
		20:  TemperatureCool,
		19:  TemperatureEarly,
		0:   TemperatureEarly,
	}
	for total, want := range tests {
		if got := TemperatureFor(total); got != want {
			t.Errorf("TemperatureFor(%d) = %s, want %s", total, got, want)
		}
	}
}
