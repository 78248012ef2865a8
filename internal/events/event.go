// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"lead_portal_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// ChangeKind describes what happened to a lead.
type ChangeKind string

const (
	ChangeCreated    ChangeKind = "created"
	ChangeStatus     ChangeKind = "status"
	ChangeScore      ChangeKind = "score"
	ChangeTags       ChangeKind = "tags"
	ChangeNote       ChangeKind = "note"
	ChangeEngagement ChangeKind = "engagement"
	ChangeLinked     ChangeKind = "linked"
)

// =============================================================================
// Lead Domain Events
// =============================================================================

// LeadCreated is published after a submission has been persisted.
type LeadCreated struct {
	BaseEvent
	LeadID      uuid.UUID  `json:"leadId"`
	UserID      *uuid.UUID `json:"userId,omitempty"`
	Source      string     `json:"source"`
	Score       int        `json:"score"`
	Temperature string     `json:"temperature"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadChanged is published after every lead mutation. Live views listen to
// it to know which records to reload.
type LeadChanged struct {
	BaseEvent
	LeadID uuid.UUID  `json:"leadId"`
	Kind   ChangeKind `json:"kind"`
}

func (e LeadChanged) EventName() string { return "leads.lead.changed" }

// =============================================================================
// Questionnaire Domain Events
// =============================================================================

// QuestionnaireCompleted is published when a portal user finishes the
// questionnaire.
type QuestionnaireCompleted struct {
	BaseEvent
	UserID      uuid.UUID  `json:"userId"`
	LeadID      *uuid.UUID `json:"leadId,omitempty"`
	Score       int        `json:"score"`
	Temperature string     `json:"temperature"`
}

func (e QuestionnaireCompleted) EventName() string { return "questionnaire.session.completed" }
