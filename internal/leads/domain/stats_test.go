package domain

import (
	"testing"
	"time"
)

func TestComputeStats(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	samples := []StatsSample{
		{Status: StatusNew, Score: 80, CreatedAt: now.Add(-time.Hour), QuestionnaireCompleted: true},
		{Status: StatusNew, Score: 79, CreatedAt: now.Add(-15 * time.Hour)},
		{Status: StatusContacted, Score: 60, CreatedAt: now.Add(-16 * time.Hour), QuestionnaireCompleted: true},
		{Status: StatusArchived, Score: 59, CreatedAt: now.AddDate(0, 0, -3)},
		{Status: StatusConverted, Score: 100, CreatedAt: now.AddDate(0, -1, 0), QuestionnaireCompleted: true},
	}

	got := ComputeStats(samples, now)

	if got.Total != 5 {
		t.Fatalf("expected total 5, got %d", got.Total)
	}
	if got.Hot != 2 {
		t.Fatalf("expected 2 hot leads, got %d", got.Hot)
	}
	if got.Warm != 2 {
		t.Fatalf("expected 2 warm leads, got %d", got.Warm)
	}
	if got.NewToday != 2 {
		t.Fatalf("expected 2 leads created today, got %d", got.NewToday)
	}
	if got.CompletedQuestionnaires != 3 {
		t.Fatalf("expected 3 completed questionnaires, got %d", got.CompletedQuestionnaires)
	}
	if got.ByStatus[StatusNew] != 2 || got.ByStatus[StatusQualified] != 0 || got.ByStatus[StatusArchived] != 1 {
		t.Fatalf("unexpected status counts: %v", got.ByStatus)
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	got := ComputeStats(nil, time.Now())
	if got.Total != 0 || got.Hot != 0 || got.NewToday != 0 {
		t.Fatalf("expected zero stats, got %+v", got)
	}
	if len(got.ByStatus) != len(AllStatuses()) {
		t.Fatalf("expected every status to be present, got %v", got.ByStatus)
	}
}
