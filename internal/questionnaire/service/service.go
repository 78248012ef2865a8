// Package service runs questionnaire sessions for portal users: it walks
// the question graph, stores answers, and scores completed sessions.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"lead_portal_backend/internal/events"
	"lead_portal_backend/internal/questionnaire"
	"lead_portal_backend/internal/questionnaire/repository"
	"lead_portal_backend/internal/scoring"
	"lead_portal_backend/platform/apperr"
	"lead_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// SessionStore persists sessions.
type SessionStore interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (repository.Session, error)
	Save(ctx context.Context, s repository.Session) (repository.Session, error)
}

// LeadLinker finds or creates the lead that belongs to a portal user.
type LeadLinker interface {
	LinkPortalUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}

// ScoreSyncer copies a completed session's score onto its lead, possibly
// in the background.
type ScoreSyncer interface {
	EnqueueScoreSync(ctx context.Context, leadID, userID uuid.UUID) error
}

type Deps struct {
	Graph     *questionnaire.Graph
	Engine    *scoring.Engine
	Sessions  SessionStore
	Leads     LeadLinker
	ScoreSync ScoreSyncer
	EventBus  events.Bus
	Completed prometheus.Counter
	Log       *logger.Logger
	Now       func() time.Time
}

type Service struct {
	graph     *questionnaire.Graph
	engine    *scoring.Engine
	sessions  SessionStore
	leads     LeadLinker
	scoreSync ScoreSyncer
	eventBus  events.Bus
	completed prometheus.Counter
	log       *logger.Logger
	now       func() time.Time
}

func New(d Deps) *Service {
	s := &Service{
		graph:     d.Graph,
		engine:    d.Engine,
		sessions:  d.Sessions,
		leads:     d.Leads,
		scoreSync: d.ScoreSync,
		eventBus:  d.EventBus,
		completed: d.Completed,
		log:       d.Log,
		now:       d.Now,
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

// Graph returns the questionnaire the service runs.
func (s *Service) Graph() *questionnaire.Graph {
	return s.graph
}

// Progress is a session together with the path its answers imply.
type Progress struct {
	Session repository.Session
	Flow    []questionnaire.Question
	// Next is the question to ask now; nil once every required question on
	// the flow is answered.
	Next        *questionnaire.Question
	CanComplete bool
}

// CompleteResult is returned by Complete.
type CompleteResult struct {
	Session   repository.Session
	Breakdown scoring.Breakdown
	LeadID    *uuid.UUID
}

// Describe builds the progress view of a stored session.
func (s *Service) Describe(session repository.Session) Progress {
	return s.progress(session)
}

func (s *Service) progress(session repository.Session) Progress {
	responses := session.ResponseSet()
	p := Progress{
		Session: session,
		Flow:    s.graph.Flow(responses),
	}
	if session.Status == repository.StatusCompleted {
		return p
	}
	resume := s.graph.ResumeAt(responses)
	p.Next = resume
	if id := session.CurrentQuestionID; id != nil && !responses.Answered(*id) && s.graph.OnFlow(*id, responses) {
		q, _ := s.graph.Question(*id)
		p.Next = &q
	}
	p.CanComplete = resume == nil
	return p
}

func (s *Service) load(ctx context.Context, userID uuid.UUID) (repository.Session, error) {
	session, err := s.sessions.GetByUserID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Session{
			UserID:    userID,
			Status:    repository.StatusNotStarted,
			Responses: []repository.Answer{},
		}, nil
	}
	if err != nil {
		return repository.Session{}, apperr.Wrap(apperr.KindInternal, "failed to load questionnaire session", err)
	}
	return session, nil
}

// Start opens the user's session. Starting an open or completed session
// returns it unchanged.
func (s *Service) Start(ctx context.Context, userID uuid.UUID) (Progress, error) {
	session, err := s.load(ctx, userID)
	if err != nil {
		return Progress{}, err
	}
	if session.Status != repository.StatusNotStarted {
		return s.progress(session), nil
	}

	now := s.now()
	first := s.graph.First().ID
	session.Status = repository.StatusInProgress
	session.StartedAt = &now
	session.CurrentQuestionID = &first

	saved, err := s.sessions.Save(ctx, session)
	if err != nil {
		return Progress{}, apperr.Wrap(apperr.KindInternal, "failed to start questionnaire", err)
	}
	return s.progress(saved), nil
}

// Answer stores one answer and moves the session to the next question.
// Only questions on the current flow may be answered. Answers to branch
// targets that fall off the flow are dropped.
func (s *Service) Answer(ctx context.Context, userID uuid.UUID, questionID string, value questionnaire.Value) (Progress, error) {
	session, err := s.load(ctx, userID)
	if err != nil {
		return Progress{}, err
	}
	if session.Status == repository.StatusCompleted {
		return Progress{}, apperr.Conflict("questionnaire already completed")
	}

	q, ok := s.graph.Question(questionID)
	if !ok {
		return Progress{}, apperr.Validation("unknown question").WithDetails(map[string]string{"questionId": questionID})
	}
	if !s.graph.OnFlow(q.ID, session.ResponseSet()) {
		return Progress{}, apperr.Validation("question is not part of the current flow").
			WithDetails(map[string]string{"questionId": questionID})
	}
	if err := questionnaire.ValidateAnswer(q, value); err != nil {
		return Progress{}, apperr.Validation(err.Error()).WithDetails(questionnaire.ValidationErrors{
			{QuestionID: q.ID, Message: err.Error()},
		})
	}

	session.SetAnswer(q.ID, value)
	responses := s.pruneOffFlow(&session)

	now := s.now()
	if session.Status == repository.StatusNotStarted {
		session.Status = repository.StatusInProgress
		session.StartedAt = &now
	}
	session.CurrentQuestionID = nil
	if next := s.graph.Next(q.ID, responses); next != nil {
		session.CurrentQuestionID = &next.ID
	}

	saved, err := s.sessions.Save(ctx, session)
	if err != nil {
		return Progress{}, apperr.Wrap(apperr.KindInternal, "failed to save answer", err)
	}
	return s.progress(saved), nil
}

func (s *Service) pruneOffFlow(session *repository.Session) questionnaire.ResponseSet {
	responses := s.graph.Prune(session.ResponseSet())
	kept := session.Responses[:0]
	for _, a := range session.Responses {
		if _, ok := responses[a.QuestionID]; ok {
			kept = append(kept, a)
		}
	}
	session.Responses = kept
	return responses
}

// Resume reports where the user left off. Users without a session get a
// not-started view that is not persisted.
func (s *Service) Resume(ctx context.Context, userID uuid.UUID) (Progress, error) {
	session, err := s.load(ctx, userID)
	if err != nil {
		return Progress{}, err
	}
	return s.progress(session), nil
}

// Complete validates and scores the session, then links it to the user's
// lead and schedules the lead score update. Completing again retries a
// failed link without rescoring.
func (s *Service) Complete(ctx context.Context, userID uuid.UUID) (CompleteResult, error) {
	session, err := s.load(ctx, userID)
	if err != nil {
		return CompleteResult{}, err
	}
	if session.Status == repository.StatusNotStarted {
		return CompleteResult{}, apperr.Validation("questionnaire has not been started")
	}

	responses := session.ResponseSet()
	if err := s.graph.Validate(responses); err != nil {
		var fieldErrs questionnaire.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return CompleteResult{}, apperr.Validation("questionnaire is incomplete").WithDetails(fieldErrs)
		}
		return CompleteResult{}, apperr.Validation(err.Error())
	}

	breakdown := s.engine.Score(responses)
	if session.Status == repository.StatusCompleted && session.LeadID != nil {
		return CompleteResult{Session: session, Breakdown: breakdown, LeadID: session.LeadID}, nil
	}

	firstCompletion := session.Status != repository.StatusCompleted
	if firstCompletion {
		raw, err := json.Marshal(breakdown)
		if err != nil {
			return CompleteResult{}, apperr.Wrap(apperr.KindInternal, "failed to encode score", err)
		}
		now := s.now()
		session.Status = repository.StatusCompleted
		session.CompletedAt = &now
		session.ScoreBreakdown = raw
		session.CurrentQuestionID = nil

		session, err = s.sessions.Save(ctx, session)
		if err != nil {
			return CompleteResult{}, apperr.Wrap(apperr.KindInternal, "failed to complete questionnaire", err)
		}
		if s.completed != nil {
			s.completed.Inc()
		}
	}

	linkErr := s.link(ctx, &session)

	if firstCompletion && s.eventBus != nil {
		s.eventBus.Publish(ctx, events.QuestionnaireCompleted{
			BaseEvent:   events.NewBaseEvent(),
			UserID:      userID,
			LeadID:      session.LeadID,
			Score:       breakdown.Total,
			Temperature: string(breakdown.Temperature),
		})
	}

	if linkErr != nil {
		return CompleteResult{}, linkErr
	}
	return CompleteResult{Session: session, Breakdown: breakdown, LeadID: session.LeadID}, nil
}

func (s *Service) link(ctx context.Context, session *repository.Session) error {
	if s.leads == nil {
		return nil
	}
	leadID, err := s.leads.LinkPortalUser(ctx, session.UserID)
	if err != nil {
		return err
	}

	session.LeadID = &leadID
	saved, err := s.sessions.Save(ctx, *session)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to link questionnaire to lead", err)
	}
	*session = saved

	if s.scoreSync != nil {
		if err := s.scoreSync.EnqueueScoreSync(ctx, leadID, session.UserID); err != nil {
			s.log.Error("failed to schedule lead score sync", "leadId", leadID, "userId", session.UserID, "error", err)
		}
	}
	return nil
}

// Preview scores responses without storing anything.
func (s *Service) Preview(responses questionnaire.ResponseSet) scoring.Breakdown {
	return s.engine.Score(responses)
}
