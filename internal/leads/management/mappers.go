package management

import (
	"lead_portal_backend/internal/leads/domain"
	"lead_portal_backend/internal/leads/repository"
	"lead_portal_backend/internal/leads/transport"
	"lead_portal_backend/internal/scoring"
)

// ToLeadResponse converts a repository Lead to a transport LeadResponse.
func ToLeadResponse(lead repository.Lead) transport.LeadResponse {
	tags := lead.Tags
	if tags == nil {
		tags = []string{}
	}
	return transport.LeadResponse{
		ID:             lead.ID,
		UserID:         lead.UserID,
		Name:           lead.Name,
		Email:          lead.Email,
		Company:        lead.Company,
		Phone:          lead.Phone,
		Message:        lead.Message,
		ProjectType:    lead.ProjectType,
		Budget:         lead.Budget,
		Timeline:       lead.Timeline,
		Status:         string(lead.Status),
		Score:          lead.Score,
		Temperature:    string(scoring.TemperatureFor(lead.Score)),
		ScoreBreakdown: lead.ScoreBreakdown,
		Source:         lead.Source,
		Engagement: transport.EngagementResponse{
			PagesViewed:    lead.PagesViewed,
			TimeOnSiteSecs: lead.TimeOnSiteSecs,
			LastActivityAt: lead.LastActivityAt,
		},
		Tags:                     tags,
		QuestionnaireCompletedAt: lead.QuestionnaireCompletedAt,
		ContactedAt:              lead.ContactedAt,
		ConvertedAt:              lead.ConvertedAt,
		CreatedAt:                lead.CreatedAt,
		UpdatedAt:                lead.UpdatedAt,
	}
}

func toCSVRow(lead repository.Lead) domain.CSVRow {
	return domain.CSVRow{
		Name:        lead.Name,
		Email:       lead.Email,
		Company:     deref(lead.Company),
		Phone:       deref(lead.Phone),
		Status:      lead.Status,
		Score:       lead.Score,
		Source:      lead.Source,
		Budget:      deref(lead.Budget),
		Timeline:    deref(lead.Timeline),
		ProjectType: deref(lead.ProjectType),
		CreatedAt:   lead.CreatedAt,
		Message:     lead.Message,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
