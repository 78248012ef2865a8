package domain

import (
	"time"

	"lead_portal_backend/internal/scoring"
)

// StatsSample is the part of a lead that dashboard counters look at.
type StatsSample struct {
	Status                 Status
	Score                  int
	CreatedAt              time.Time
	QuestionnaireCompleted bool
}

// Stats are the dashboard counters over the whole lead set.
type Stats struct {
	Total                   int            `json:"total"`
	Hot                     int            `json:"hot"`
	Warm                    int            `json:"warm"`
	NewToday                int            `json:"newToday"`
	CompletedQuestionnaires int            `json:"completedQuestionnaires"`
	ByStatus                map[Status]int `json:"byStatus"`
}

// ComputeStats recounts everything from scratch. "Today" starts at midnight
// of now in now's location.
func ComputeStats(samples []StatsSample, now time.Time) Stats {
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	stats := Stats{ByStatus: make(map[Status]int, len(funnel)+1)}
	for _, s := range AllStatuses() {
		stats.ByStatus[s] = 0
	}

	for _, s := range samples {
		stats.Total++
		stats.ByStatus[s.Status]++

		switch scoring.TemperatureFor(s.Score) {
		case scoring.TemperatureHot:
			stats.Hot++
		case scoring.TemperatureWarm:
			stats.Warm++
		}
		if !s.CreatedAt.Before(midnight) {
			stats.NewToday++
		}
		if s.QuestionnaireCompleted {
			stats.CompletedQuestionnaires++
		}
	}
	return stats
}
