// Package leads provides the lead intake and management bounded context.
// This file wires the module and registers its routes.
package leads

import (
	"lead_portal_backend/internal/events"
	apphttp "lead_portal_backend/internal/http"
	"lead_portal_backend/internal/intake"
	"lead_portal_backend/internal/leads/handler"
	"lead_portal_backend/internal/leads/live"
	"lead_portal_backend/internal/leads/management"
	"lead_portal_backend/internal/leads/notes"
	"lead_portal_backend/internal/leads/repository"
	"lead_portal_backend/internal/leads/submission"
	"lead_portal_backend/internal/questionnaire"
	questionnairehandler "lead_portal_backend/internal/questionnaire/handler"
	questionnairerepo "lead_portal_backend/internal/questionnaire/repository"
	questionnaireservice "lead_portal_backend/internal/questionnaire/service"
	"lead_portal_backend/internal/scheduler"
	"lead_portal_backend/internal/scoring"
	"lead_portal_backend/platform/config"
	"lead_portal_backend/platform/logger"
	"lead_portal_backend/platform/metrics"
	"lead_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Deps are the shared dependencies of the leads module. Redis and Queue are
// optional; without them limiter state stays in process and score syncs run
// inline.
type Deps struct {
	Pool     *pgxpool.Pool
	Redis    redis.UniversalClient
	Queue    *scheduler.Client
	EventBus events.Bus
	Val      *validator.Validator
	Config   *config.Config
	Metrics  *metrics.Collector
	Log      *logger.Logger
}

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler       *handler.Handler
	public        *handler.PublicHandler
	questionnaire *questionnairehandler.Handler
	submission    *submission.Service
	management    *management.Service
	aggregator    *live.Aggregator
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(d Deps) *Module {
	repo := repository.New(d.Pool)
	sessions := questionnairerepo.New(d.Pool)
	graph := questionnaire.Default()
	engine := scoring.NewEngine(graph)

	var limiterStore intake.Store = intake.NewMemoryStore()
	if d.Redis != nil {
		limiterStore = intake.NewRedisStore(d.Redis)
	}
	limiter := intake.NewRateLimiter(intake.FromSettings(intake.FormLimit, d.Config.GetFormRateLimit()), limiterStore)
	guard := intake.NewGuard(limiter, repo,
		intake.WithDuplicateWindow(d.Config.GetDuplicateWindow()),
		intake.WithLogger(d.Log),
		intake.WithDecisionCounter(d.Metrics.IntakeDecisions),
	)

	submissionSvc := submission.New(submission.Deps{
		Store:    repo,
		Guard:    guard,
		Graph:    graph,
		Engine:   engine,
		EventBus: d.EventBus,
		Created:  d.Metrics.LeadsCreated,
		Log:      d.Log,
	})
	mgmtSvc := management.New(repo, sessions, engine, d.EventBus, d.Log)
	notesSvc := notes.New(repo, d.EventBus)

	var scoreSync questionnaireservice.ScoreSyncer = scheduler.NewInlineSyncer(mgmtSvc, d.Log)
	if d.Queue != nil {
		scoreSync = d.Queue
	}
	questionnaireSvc := questionnaireservice.New(questionnaireservice.Deps{
		Graph:     graph,
		Engine:    engine,
		Sessions:  sessions,
		Leads:     submissionSvc,
		ScoreSync: scoreSync,
		EventBus:  d.EventBus,
		Completed: d.Metrics.QuestionnairesDone,
		Log:       d.Log,
	})

	var feed live.ChangeFeed = live.NewBusFeed(d.EventBus, d.Config.GetFeedDebounce())
	if d.Config.GetFeedUsePostgresNotify() {
		feed = live.NewPGFeed(d.Pool, d.Config.GetFeedDebounce(), d.Log)
	}
	aggregator := live.New(live.Config{
		Leads:       repo,
		Users:       repo,
		Sessions:    sessions,
		Feed:        feed,
		Concurrency: d.Config.GetEnrichmentConcurrency(),
		Log:         d.Log,
		Metrics:     d.Metrics,
	})

	notesHandler := handler.NewNotesHandler(notesSvc, d.Val)
	streamHandler := handler.NewStreamHandler(aggregator, d.Val, d.Log)

	return &Module{
		handler:       handler.New(mgmtSvc, notesHandler, streamHandler, d.Val),
		public:        handler.NewPublicHandler(submissionSvc, d.Val),
		questionnaire: questionnairehandler.New(questionnaireSvc, d.Val),
		submission:    submissionSvc,
		management:    mgmtSvc,
		aggregator:    aggregator,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// ManagementService returns the lead management service for external use.
func (m *Module) ManagementService() *management.Service {
	return m.management
}

// Aggregator returns the live lead aggregator. The caller runs it.
func (m *Module) Aggregator() *live.Aggregator {
	return m.aggregator
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.public.RegisterRoutes(ctx.Public.Group("/leads"))
	m.questionnaire.RegisterPublicRoutes(ctx.Public)

	m.questionnaire.RegisterRoutes(ctx.Protected.Group("/questionnaire"))

	m.handler.RegisterRoutes(ctx.Admin.Group("/leads"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
