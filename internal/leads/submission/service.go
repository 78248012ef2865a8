// Package submission turns visitor submissions into leads. Every submission
// is validated, scored when it carries questionnaire answers, and passed
// through the intake guard before it is stored.
package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lead_portal_backend/internal/events"
	"lead_portal_backend/internal/intake"
	"lead_portal_backend/internal/leads/repository"
	"lead_portal_backend/internal/questionnaire"
	"lead_portal_backend/internal/scoring"
	"lead_portal_backend/platform/apperr"
	"lead_portal_backend/platform/httpkit"
	"lead_portal_backend/platform/logger"
	"lead_portal_backend/platform/phone"
	"lead_portal_backend/platform/sanitize"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	SourceContactForm   = "contact_form"
	SourceQuestionnaire = "questionnaire"
	SourcePortal        = "portal"
)

// Code classifies a failed submission.
type Code string

const (
	CodeValidation  Code = "validation"
	CodeRateLimited Code = "rate_limited"
	CodeDuplicate   Code = "duplicate"
	CodeStore       Code = "store_error"
)

const (
	msgDuplicate  = "We already received your request and will be in touch soon."
	msgStoreError = "Something went wrong while sending your request. Please try again later."
)

// Store is the slice of the leads repository submissions need.
type Store interface {
	Create(ctx context.Context, params repository.CreateLeadParams) (repository.Lead, error)
	GetLatestByUserID(ctx context.Context, userID uuid.UUID) (repository.Lead, error)
	GetLatestByEmail(ctx context.Context, email string) (repository.Lead, error)
	LinkUser(ctx context.Context, id uuid.UUID, userID uuid.UUID) error
	GetUserByID(ctx context.Context, id uuid.UUID) (repository.User, error)
}

// ContactForm is a visitor submission. Responses is optional.
type ContactForm struct {
	Name        string
	Email       string
	Company     *string
	Phone       *string
	Message     string
	ProjectType *string
	Budget      *string
	Timeline    *string
	Source      string
	Responses   questionnaire.ResponseSet
}

// SubmitResult is the outcome shown to the visitor. Failures never surface
// as Go errors so callers can always render Error.
type SubmitResult struct {
	Success           bool                       `json:"success"`
	Error             string                     `json:"error,omitempty"`
	Code              Code                       `json:"code,omitempty"`
	LeadID            *uuid.UUID                 `json:"leadId,omitempty"`
	RetryAfterSeconds int                        `json:"retryAfterSeconds,omitempty"`
	Fields            []questionnaire.FieldError `json:"fields,omitempty"`
	Score             *scoring.Breakdown         `json:"score,omitempty"`
}

type Deps struct {
	Store    Store
	Guard    *intake.Guard
	Graph    *questionnaire.Graph
	Engine   *scoring.Engine
	EventBus events.Bus
	Created  prometheus.Counter
	Log      *logger.Logger
	Now      func() time.Time
}

type Service struct {
	store    Store
	guard    *intake.Guard
	graph    *questionnaire.Graph
	engine   *scoring.Engine
	eventBus events.Bus
	created  prometheus.Counter
	log      *logger.Logger
	now      func() time.Time
}

func New(d Deps) *Service {
	s := &Service{
		store:    d.Store,
		guard:    d.Guard,
		graph:    d.Graph,
		engine:   d.Engine,
		eventBus: d.EventBus,
		created:  d.Created,
		log:      d.Log,
		now:      d.Now,
	}
	if s.graph == nil {
		s.graph = questionnaire.Default()
	}
	if s.engine == nil {
		s.engine = scoring.NewEngine(s.graph)
	}
	if s.log == nil {
		s.log = logger.Discard()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// SubmitContactForm validates, guards and stores a visitor submission.
// Invalid input is reported without touching the guard. The normalized
// email is the guard identifier.
func (s *Service) SubmitContactForm(ctx context.Context, form ContactForm) SubmitResult {
	params, breakdown, invalid := s.prepare(form)
	if invalid != nil {
		return *invalid
	}

	identifier := params.Email
	admission, err := s.guard.Admit(ctx, identifier, params.Email)
	if err != nil {
		s.log.Error("intake guard unavailable", "error", err)
		return storeFailure()
	}
	if !admission.Allowed {
		return rejected(admission)
	}

	lead, err := s.store.Create(ctx, params)
	if err != nil {
		s.log.DatabaseError("create lead", err)
		if _, ferr := s.guard.Failed(ctx, identifier); ferr != nil {
			s.log.Error("intake failure not recorded", "error", ferr)
		}
		return storeFailure()
	}
	if err := s.guard.Succeeded(ctx, identifier); err != nil {
		s.log.Error("intake success not recorded", "error", err)
	}

	s.published(ctx, lead, breakdown)
	return SubmitResult{Success: true, LeadID: &lead.ID, Score: breakdown}
}

func (s *Service) prepare(form ContactForm) (repository.CreateLeadParams, *scoring.Breakdown, *SubmitResult) {
	var fields []questionnaire.FieldError

	name := sanitize.Text(form.Name)
	if name == "" {
		fields = append(fields, questionnaire.FieldError{QuestionID: "name", Message: "name is required"})
	}
	email := sanitize.Email(form.Email)
	if email == "" {
		fields = append(fields, questionnaire.FieldError{QuestionID: "email", Message: "email is required"})
	}

	var phoneNumber *string
	if form.Phone != nil && *form.Phone != "" {
		normalized, ok := phone.Normalize(*form.Phone, phone.DefaultRegion)
		if !ok {
			fields = append(fields, questionnaire.FieldError{QuestionID: "phone", Message: "phone number is not valid"})
		}
		phoneNumber = &normalized
	}

	params := repository.CreateLeadParams{
		Name:        name,
		Email:       email,
		Company:     sanitize.TextPtr(form.Company),
		Phone:       phoneNumber,
		Message:     sanitize.Text(form.Message),
		ProjectType: sanitize.TextPtr(form.ProjectType),
		Budget:      sanitize.TextPtr(form.Budget),
		Timeline:    sanitize.TextPtr(form.Timeline),
		Source:      form.Source,
	}
	if params.Source == "" {
		params.Source = SourceContactForm
	}

	var breakdown *scoring.Breakdown
	if len(form.Responses) > 0 {
		if err := s.graph.Validate(form.Responses); err != nil {
			var fieldErrs questionnaire.ValidationErrors
			if errors.As(err, &fieldErrs) {
				fields = append(fields, fieldErrs...)
			} else {
				fields = append(fields, questionnaire.FieldError{QuestionID: "responses", Message: err.Error()})
			}
		}
		if len(fields) == 0 {
			responses := s.graph.Prune(form.Responses)
			b := s.engine.Score(responses)
			breakdown = &b
			applyScore(&params, responses, b, s.now())
			if form.Source == "" {
				params.Source = SourceQuestionnaire
			}
		}
	}

	if len(fields) > 0 {
		return repository.CreateLeadParams{}, nil, &SubmitResult{
			Error:  "Please check the highlighted fields.",
			Code:   CodeValidation,
			Fields: fields,
		}
	}
	return params, breakdown, nil
}

func applyScore(params *repository.CreateLeadParams, responses questionnaire.ResponseSet, b scoring.Breakdown, at time.Time) {
	raw, err := json.Marshal(b)
	if err == nil {
		params.ScoreBreakdown = raw
	}
	params.Score = b.Total
	params.QuestionnaireCompletedAt = &at

	fill := func(dst **string, questionID string) {
		if *dst != nil {
			return
		}
		if v, ok := responses[questionID].AsText(); ok && v != "" {
			*dst = &v
		}
	}
	fill(&params.ProjectType, "project_type")
	fill(&params.Budget, "budget")
	fill(&params.Timeline, "timeline")
}

func (s *Service) published(ctx context.Context, lead repository.Lead, b *scoring.Breakdown) {
	if s.created != nil {
		s.created.Inc()
	}
	if s.eventBus == nil {
		return
	}
	created := events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		UserID:    lead.UserID,
		Source:    lead.Source,
		Score:     lead.Score,
	}
	if b != nil {
		created.Temperature = string(b.Temperature)
	} else {
		created.Temperature = string(scoring.TemperatureFor(lead.Score))
	}
	s.eventBus.Publish(ctx, created)
	s.eventBus.Publish(ctx, events.LeadChanged{BaseEvent: events.NewBaseEvent(), LeadID: lead.ID, Kind: events.ChangeCreated})
}

// LinkPortalUser returns the lead owned by userID. An unowned lead with the
// user's email is claimed; otherwise a new lead is submitted for the user
// through the intake guard.
func (s *Service) LinkPortalUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	lead, err := s.store.GetLatestByUserID(ctx, userID)
	if err == nil {
		return lead.ID, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return uuid.Nil, apperr.Wrap(apperr.KindInternal, "failed to load lead", err)
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return uuid.Nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return uuid.Nil, apperr.Wrap(apperr.KindInternal, "failed to load user", err)
	}

	lead, err = s.store.GetLatestByEmail(ctx, user.Email)
	switch {
	case err == nil && lead.UserID == nil:
		if err := s.store.LinkUser(ctx, lead.ID, userID); err != nil {
			return uuid.Nil, apperr.Wrap(apperr.KindInternal, "failed to link lead", err)
		}
		s.changed(ctx, lead.ID, events.ChangeLinked)
		return lead.ID, nil
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return uuid.Nil, apperr.Wrap(apperr.KindInternal, "failed to load lead", err)
	}

	name := user.DisplayName
	if name == "" {
		name = user.Email
	}
	result := s.SubmitContactForm(ctx, ContactForm{
		Name:   name,
		Email:  user.Email,
		Source: SourcePortal,
	})
	if !result.Success {
		return uuid.Nil, resultError(result)
	}
	if err := s.store.LinkUser(ctx, *result.LeadID, userID); err != nil {
		return uuid.Nil, apperr.Wrap(apperr.KindInternal, "failed to link lead", err)
	}
	s.changed(ctx, *result.LeadID, events.ChangeLinked)
	return *result.LeadID, nil
}

func (s *Service) changed(ctx context.Context, leadID uuid.UUID, kind events.ChangeKind) {
	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.LeadChanged{BaseEvent: events.NewBaseEvent(), LeadID: leadID, Kind: kind})
	}
}

func rejected(a intake.Admission) SubmitResult {
	if a.Reason == intake.ReasonDuplicate {
		return SubmitResult{Error: msgDuplicate, Code: CodeDuplicate}
	}
	return SubmitResult{
		Error:             RateLimitMessage(a.RetryAfterSeconds),
		Code:              CodeRateLimited,
		RetryAfterSeconds: a.RetryAfterSeconds,
	}
}

func storeFailure() SubmitResult {
	return SubmitResult{Error: msgStoreError, Code: CodeStore}
}

// RateLimitMessage tells the visitor how long to wait, in whole minutes
// rounded up.
func RateLimitMessage(retryAfterSeconds int) string {
	minutes := (retryAfterSeconds + 59) / 60
	if minutes <= 1 {
		return "Too many attempts. Please try again in 1 minute."
	}
	return fmt.Sprintf("Too many attempts. Please try again in %d minutes.", minutes)
}

func resultError(r SubmitResult) error {
	switch r.Code {
	case CodeRateLimited:
		return apperr.TooManyRequests(r.Error).WithDetails(httpkit.RetryAfter{Seconds: r.RetryAfterSeconds})
	case CodeDuplicate:
		return apperr.Conflict(r.Error)
	case CodeValidation:
		return apperr.Validation(r.Error).WithDetails(r.Fields)
	default:
		return apperr.Unavailable(r.Error)
	}
}
