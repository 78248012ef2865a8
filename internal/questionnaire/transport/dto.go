package transport

import (
	"time"

	"lead_portal_backend/internal/questionnaire"
	"lead_portal_backend/internal/questionnaire/service"
	"lead_portal_backend/internal/scoring"

	"github.com/google/uuid"
)

type OptionResponse struct {
	Value    string            `json:"value"`
	Label    string            `json:"label"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type QuestionResponse struct {
	ID          string           `json:"id"`
	Type        string           `json:"type"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Required    bool             `json:"required"`
	Options     []OptionResponse `json:"options,omitempty"`
	MinLength   int              `json:"minLength,omitempty"`
	Pattern     string           `json:"pattern,omitempty"`
}

type QuestionListResponse struct {
	Items []QuestionResponse `json:"items"`
	Total int                `json:"total"`
}

type AnswerRequest struct {
	QuestionID string              `json:"questionId" validate:"required,max=100"`
	Value      questionnaire.Value `json:"value"`
}

type PreviewRequest struct {
	Responses questionnaire.ResponseSet `json:"responses" validate:"required"`
}

type SessionResponse struct {
	Status            string                    `json:"status"`
	Responses         questionnaire.ResponseSet `json:"responses"`
	CurrentQuestionID *string                   `json:"currentQuestionId,omitempty"`
	Next              *QuestionResponse         `json:"next,omitempty"`
	Flow              []string                  `json:"flow"`
	Answered          int                       `json:"answered"`
	CanComplete       bool                      `json:"canComplete"`
	LeadID            *uuid.UUID                `json:"leadId,omitempty"`
	StartedAt         *time.Time                `json:"startedAt,omitempty"`
	CompletedAt       *time.Time                `json:"completedAt,omitempty"`
}

type CompleteResponse struct {
	Session SessionResponse   `json:"session"`
	Score   scoring.Breakdown `json:"score"`
	LeadID  *uuid.UUID        `json:"leadId,omitempty"`
}

func ToQuestionResponse(q questionnaire.Question) QuestionResponse {
	resp := QuestionResponse{
		ID:          q.ID,
		Type:        string(q.Type),
		Title:       q.Title,
		Description: q.Description,
		Required:    q.Required,
	}
	for _, o := range q.Options {
		resp.Options = append(resp.Options, OptionResponse{Value: o.Value, Label: o.Label, Metadata: o.Metadata})
	}
	if q.Validation != nil {
		resp.MinLength = q.Validation.MinLength
		if q.Validation.Pattern != nil {
			resp.Pattern = q.Validation.Pattern.String()
		}
	}
	return resp
}

func ToQuestionListResponse(questions []questionnaire.Question) QuestionListResponse {
	items := make([]QuestionResponse, len(questions))
	for i, q := range questions {
		items[i] = ToQuestionResponse(q)
	}
	return QuestionListResponse{Items: items, Total: len(items)}
}

func ToSessionResponse(p service.Progress) SessionResponse {
	responses := p.Session.ResponseSet()
	flow := make([]string, len(p.Flow))
	answered := 0
	for i, q := range p.Flow {
		flow[i] = q.ID
		if responses.Answered(q.ID) {
			answered++
		}
	}

	resp := SessionResponse{
		Status:            string(p.Session.Status),
		Responses:         responses,
		CurrentQuestionID: p.Session.CurrentQuestionID,
		Flow:              flow,
		Answered:          answered,
		CanComplete:       p.CanComplete,
		LeadID:            p.Session.LeadID,
		StartedAt:         p.Session.StartedAt,
		CompletedAt:       p.Session.CompletedAt,
	}
	if p.Next != nil {
		next := ToQuestionResponse(*p.Next)
		resp.Next = &next
	}
	return resp
}

func ToCompleteResponse(p service.Progress, r service.CompleteResult) CompleteResponse {
	return CompleteResponse{
		Session: ToSessionResponse(p),
		Score:   r.Breakdown,
		LeadID:  r.LeadID,
	}
}
