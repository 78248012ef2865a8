package scoring

// Question ids the engine reads.
const (
	questionBudget        = "budget"
	questionTimeline      = "timeline"
	questionDecisionMaker = "decision_maker"
	questionProjectType   = "project_type"
	questionFeatures      = "features"
)

// Category ceilings. Their sum is the maximum total of 100.
const (
	maxBudget     = 35
	maxTimeline   = 25
	maxAuthority  = 15
	maxComplexity = 15
	maxEngagement = 10
)

var budgetPoints = map[string]int{
	"under_5k": 5,
	"5k_15k":   15,
	"15k_30k":  25,
	"30k_50k":  30,
	"50k_plus": 35,
}

var timelinePoints = map[string]int{
	"asap":        25,
	"1_3_months":  22,
	"3_6_months":  18,
	"6_12_months": 12,
	"flexible":    5,
}

var authorityPoints = map[string]int{
	"sole_decision":   15,
	"shared_decision": 10,
	"influencer":      5,
	"researching":     2,
}

var projectTypePoints = map[string]int{
	"web_app":        10,
	"ecommerce":      10,
	"mobile_app":     10,
	"saas_platform":  10,
	"marketing_site": 6,
	"redesign":       5,
	"other":          3,
}

// featureBonus rewards larger scopes: more than five features adds 5, more
// than three adds 3.
func featureBonus(selected int) int {
	switch {
	case selected > 5:
		return 5
	case selected > 3:
		return 3
	default:
		return 0
	}
}

const (
	completionPoints    = 7
	longAnswerThreshold = 50
)

// freeTextBonus rewards detailed answers: two or more long answers add 3,
// exactly one adds 1.
func freeTextBonus(longAnswers int) int {
	switch {
	case longAnswers >= 2:
		return 3
	case longAnswers == 1:
		return 1
	default:
		return 0
	}
}
