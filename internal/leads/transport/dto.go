package transport

import (
	"encoding/json"
	"time"

	"lead_portal_backend/internal/questionnaire"

	"github.com/google/uuid"
)

// Request DTOs

// SubmitLeadRequest is the public contact form. Responses carries the
// questionnaire answers when the visitor filled it in.
type SubmitLeadRequest struct {
	Name        string                    `json:"name" validate:"required,min=1,max=100"`
	Email       string                    `json:"email" validate:"required,email,max=254"`
	Company     *string                   `json:"company" validate:"omitempty,max=200"`
	Phone       *string                   `json:"phone" validate:"omitempty,max=30"`
	Message     string                    `json:"message" validate:"max=5000"`
	ProjectType *string                   `json:"projectType" validate:"omitempty,max=50"`
	Budget      *string                   `json:"budget" validate:"omitempty,max=50"`
	Timeline    *string                   `json:"timeline" validate:"omitempty,max=50"`
	Responses   questionnaire.ResponseSet `json:"responses"`
}

type ListLeadsRequest struct {
	Status   string `form:"status" validate:"omitempty,oneof=new contacted qualified converted archived"`
	Tag      string `form:"tag" validate:"max=50"`
	Search   string `form:"search" validate:"max=100"`
	OrderBy  string `form:"orderBy" validate:"omitempty,oneof=score createdAt"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type ExportLeadsRequest struct {
	Status  string `form:"status" validate:"omitempty,oneof=new contacted qualified converted archived"`
	OrderBy string `form:"orderBy" validate:"omitempty,oneof=score createdAt"`
}

// StreamLeadsRequest shapes the live lead feed. Limit 0 means the largest
// snapshot the feed serves.
type StreamLeadsRequest struct {
	Status  string `form:"status" validate:"omitempty,oneof=new contacted qualified converted archived"`
	OrderBy string `form:"orderBy" validate:"omitempty,oneof=score createdAt"`
	Limit   int    `form:"limit" validate:"omitempty,min=1,max=500"`
}

type UpdateLeadStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=new contacted qualified converted archived"`
}

type AddTagsRequest struct {
	Tags []string `json:"tags" validate:"required,min=1,max=20,dive,required,max=50"`
}

type RecordEngagementRequest struct {
	PagesViewed    int `json:"pagesViewed" validate:"min=0,max=1000"`
	TimeOnSiteSecs int `json:"timeOnSiteSecs" validate:"min=0,max=86400"`
}

type CreateLeadNoteRequest struct {
	Content string `json:"content" validate:"required,min=1,max=2000"`
}

// Response DTOs

type EngagementResponse struct {
	PagesViewed    int        `json:"pagesViewed"`
	TimeOnSiteSecs int        `json:"timeOnSiteSecs"`
	LastActivityAt *time.Time `json:"lastActivityAt,omitempty"`
}

type LeadResponse struct {
	ID                       uuid.UUID          `json:"id"`
	UserID                   *uuid.UUID         `json:"userId,omitempty"`
	Name                     string             `json:"name"`
	Email                    string             `json:"email"`
	Company                  *string            `json:"company,omitempty"`
	Phone                    *string            `json:"phone,omitempty"`
	Message                  string             `json:"message"`
	ProjectType              *string            `json:"projectType,omitempty"`
	Budget                   *string            `json:"budget,omitempty"`
	Timeline                 *string            `json:"timeline,omitempty"`
	Status                   string             `json:"status"`
	Score                    int                `json:"score"`
	Temperature              string             `json:"temperature"`
	ScoreBreakdown           json.RawMessage    `json:"scoreBreakdown,omitempty"`
	Source                   string             `json:"source"`
	Engagement               EngagementResponse `json:"engagement"`
	Tags                     []string           `json:"tags"`
	QuestionnaireCompletedAt *time.Time         `json:"questionnaireCompletedAt,omitempty"`
	ContactedAt              *time.Time         `json:"contactedAt,omitempty"`
	ConvertedAt              *time.Time         `json:"convertedAt,omitempty"`
	CreatedAt                time.Time          `json:"createdAt"`
	UpdatedAt                time.Time          `json:"updatedAt"`
}

type LeadListResponse struct {
	Items      []LeadResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

type UpdateStatusResponse struct {
	Updated bool         `json:"updated"`
	Lead    LeadResponse `json:"lead"`
}

type LeadNoteResponse struct {
	ID         uuid.UUID `json:"id"`
	LeadID     uuid.UUID `json:"leadId"`
	AuthorID   uuid.UUID `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

type LeadNotesResponse struct {
	Items []LeadNoteResponse `json:"items"`
}

// PortalUserSummary is the joined portal account of a lead.
type PortalUserSummary struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	Role         string    `json:"role"`
	JourneyStage string    `json:"journeyStage"`
	Milestones   []string  `json:"milestones"`
}

// QuestionnaireSummary is the joined questionnaire session of a lead's user.
type QuestionnaireSummary struct {
	Status         string          `json:"status"`
	Answered       int             `json:"answered"`
	ScoreBreakdown json.RawMessage `json:"scoreBreakdown,omitempty"`
	StartedAt      *time.Time      `json:"startedAt,omitempty"`
	CompletedAt    *time.Time      `json:"completedAt,omitempty"`
}

// EnhancedLeadResponse is a lead with its best-effort joins. Absent joins
// are omitted, never null.
type EnhancedLeadResponse struct {
	LeadResponse
	User          *PortalUserSummary    `json:"user,omitempty"`
	Questionnaire *QuestionnaireSummary `json:"questionnaire,omitempty"`
}
