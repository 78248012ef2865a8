// Package management handles operator-side lead operations.
// This is a vertically sliced feature package containing service logic
// for reading, exporting and updating leads after intake.
package management

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"lead_portal_backend/internal/events"
	"lead_portal_backend/internal/leads/domain"
	"lead_portal_backend/internal/leads/repository"
	"lead_portal_backend/internal/leads/transport"
	questionnairerepo "lead_portal_backend/internal/questionnaire/repository"
	"lead_portal_backend/internal/scoring"
	"lead_portal_backend/platform/apperr"
	"lead_portal_backend/platform/logger"

	"github.com/google/uuid"
)

const leadNotFoundMsg = "lead not found"

// Repository defines the data access interface needed by the management service.
// This is a consumer-driven interface - only what management needs.
type Repository interface {
	repository.LeadReader
	repository.LeadWriter
	repository.ScoreWriter
	repository.EngagementWriter
}

// SessionReader loads questionnaire sessions for score syncing.
type SessionReader interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (questionnairerepo.Session, error)
}

// Service handles lead management operations.
type Service struct {
	repo     Repository
	sessions SessionReader
	engine   *scoring.Engine
	eventBus events.Bus
	log      *logger.Logger
	now      func() time.Time
}

// New creates a new lead management service.
func New(repo Repository, sessions SessionReader, engine *scoring.Engine, eventBus events.Bus, log *logger.Logger) *Service {
	if engine == nil {
		engine = scoring.Default()
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Service{repo: repo, sessions: sessions, engine: engine, eventBus: eventBus, log: log, now: time.Now}
}

// GetByID retrieves a lead by ID.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, mapLeadError(err)
	}
	return ToLeadResponse(lead), nil
}

// List retrieves a paginated list of leads.
func (s *Service) List(ctx context.Context, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	params := repository.ListParams{
		OrderByScore: req.OrderBy == "score",
		Search:       req.Search,
		Offset:       (req.Page - 1) * req.PageSize,
		Limit:        req.PageSize,
	}
	if req.Status != "" {
		status, err := domain.ParseStatus(req.Status)
		if err != nil {
			return transport.LeadListResponse{}, apperr.Validation(err.Error())
		}
		params.Status = &status
	}
	if tag := normalizeTag(req.Tag); tag != "" {
		params.Tag = &tag
	}

	leads, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.LeadListResponse{}, apperr.Wrap(apperr.KindInternal, "failed to list leads", err)
	}

	items := make([]transport.LeadResponse, len(leads))
	for i, lead := range leads {
		items[i] = ToLeadResponse(lead)
	}

	totalPages := (total + req.PageSize - 1) / req.PageSize
	return transport.LeadListResponse{
		Items:      items,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: totalPages,
	}, nil
}

// UpdateStatus moves a lead along the funnel. Updated is false when the
// lead already had the requested status.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, raw string) (transport.UpdateStatusResponse, error) {
	next, err := domain.ParseStatus(raw)
	if err != nil {
		return transport.UpdateStatusResponse{}, apperr.Validation(err.Error())
	}

	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.UpdateStatusResponse{}, mapLeadError(err)
	}
	if lead.Status == next {
		return transport.UpdateStatusResponse{Updated: false, Lead: ToLeadResponse(lead)}, nil
	}
	if !domain.CanTransition(lead.Status, next) {
		return transport.UpdateStatusResponse{}, apperr.Conflict(
			fmt.Sprintf("cannot move lead from %s to %s", lead.Status, next))
	}

	updated, err := s.repo.UpdateStatus(ctx, id, lead.Status, next)
	if errors.Is(err, repository.ErrStaleStatus) {
		return transport.UpdateStatusResponse{}, apperr.Conflict("lead status was changed by someone else")
	}
	if err != nil {
		return transport.UpdateStatusResponse{}, mapLeadError(err)
	}

	s.changed(ctx, id, events.ChangeStatus)
	return transport.UpdateStatusResponse{Updated: true, Lead: ToLeadResponse(updated)}, nil
}

// AddTags merges normalized tags into the lead's tag set.
func (s *Service) AddTags(ctx context.Context, id uuid.UUID, tags []string) (transport.LeadResponse, error) {
	normalized := normalizeTags(tags)
	if len(normalized) == 0 {
		return transport.LeadResponse{}, apperr.Validation("at least one tag is required")
	}

	lead, err := s.repo.AddTags(ctx, id, normalized)
	if err != nil {
		return transport.LeadResponse{}, mapLeadError(err)
	}
	s.changed(ctx, id, events.ChangeTags)
	return ToLeadResponse(lead), nil
}

// RemoveTag drops a tag from the lead.
func (s *Service) RemoveTag(ctx context.Context, id uuid.UUID, tag string) (transport.LeadResponse, error) {
	normalized := normalizeTag(tag)
	if normalized == "" {
		return transport.LeadResponse{}, apperr.Validation("tag is required")
	}

	lead, err := s.repo.RemoveTag(ctx, id, normalized)
	if err != nil {
		return transport.LeadResponse{}, mapLeadError(err)
	}
	s.changed(ctx, id, events.ChangeTags)
	return ToLeadResponse(lead), nil
}

// RecordEngagement adds visitor activity to a lead.
func (s *Service) RecordEngagement(ctx context.Context, id uuid.UUID, req transport.RecordEngagementRequest) (transport.LeadResponse, error) {
	lead, err := s.repo.RecordEngagement(ctx, id, repository.EngagementParams{
		PagesViewed:    req.PagesViewed,
		TimeOnSiteSecs: req.TimeOnSiteSecs,
		At:             s.now(),
	})
	if err != nil {
		return transport.LeadResponse{}, mapLeadError(err)
	}
	s.changed(ctx, id, events.ChangeEngagement)
	return ToLeadResponse(lead), nil
}

// Export renders the matching leads as CSV.
func (s *Service) Export(ctx context.Context, req transport.ExportLeadsRequest) (string, error) {
	leads, err := s.repo.ListAll(ctx)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "failed to load leads", err)
	}

	if req.Status != "" {
		status, err := domain.ParseStatus(req.Status)
		if err != nil {
			return "", apperr.Validation(err.Error())
		}
		filtered := leads[:0]
		for _, l := range leads {
			if l.Status == status {
				filtered = append(filtered, l)
			}
		}
		leads = filtered
	}
	if req.OrderBy == "score" {
		sort.SliceStable(leads, func(i, j int) bool { return leads[i].Score > leads[j].Score })
	}

	return ExportLeadsToCSV(leads), nil
}

// ExportLeadsToCSV renders leads in the fixed export layout.
func ExportLeadsToCSV(leads []repository.Lead) string {
	rows := make([]domain.CSVRow, len(leads))
	for i, l := range leads {
		rows[i] = toCSVRow(l)
	}
	return domain.ExportCSV(rows)
}

// Stats recounts the dashboard counters over every lead.
func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	leads, err := s.repo.ListAll(ctx)
	if err != nil {
		return domain.Stats{}, apperr.Wrap(apperr.KindInternal, "failed to load leads", err)
	}
	return domain.ComputeStats(repository.StatsSamples(leads), s.now()), nil
}

// SyncQuestionnaireScore copies the score of the user's completed session
// onto the lead. Sessions that are not completed are left alone.
func (s *Service) SyncQuestionnaireScore(ctx context.Context, leadID, userID uuid.UUID) error {
	session, err := s.sessions.GetByUserID(ctx, userID)
	if errors.Is(err, questionnairerepo.ErrNotFound) {
		s.log.Warn("score sync skipped, no questionnaire session", "leadId", leadID, "userId", userID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load questionnaire session: %w", err)
	}
	if session.Status != questionnairerepo.StatusCompleted || session.CompletedAt == nil {
		s.log.Warn("score sync skipped, questionnaire not completed", "leadId", leadID, "userId", userID)
		return nil
	}

	responses := session.ResponseSet()
	breakdown := s.engine.Score(responses)
	raw, err := marshalBreakdown(breakdown)
	if err != nil {
		return err
	}

	params := repository.UpdateScoreParams{
		Score:          breakdown.Total,
		ScoreBreakdown: raw,
		CompletedAt:    *session.CompletedAt,
	}
	params.ProjectType = textAnswer(responses, "project_type")
	params.Budget = textAnswer(responses, "budget")
	params.Timeline = textAnswer(responses, "timeline")

	if _, err := s.repo.UpdateScore(ctx, leadID, params); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Warn("score sync skipped, lead no longer exists", "leadId", leadID)
			return nil
		}
		return fmt.Errorf("update lead score: %w", err)
	}

	s.changed(ctx, leadID, events.ChangeScore)
	s.log.Info("lead score synced", "leadId", leadID, "score", breakdown.Total, "temperature", breakdown.Temperature)
	return nil
}

func (s *Service) changed(ctx context.Context, leadID uuid.UUID, kind events.ChangeKind) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(ctx, events.LeadChanged{BaseEvent: events.NewBaseEvent(), LeadID: leadID, Kind: kind})
}

func mapLeadError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(leadNotFoundMsg)
	}
	return apperr.Wrap(apperr.KindUnavailable, "lead store unavailable", err)
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		n := normalizeTag(t)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
