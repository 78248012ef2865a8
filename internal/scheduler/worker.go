package scheduler

import (
	"context"
	"errors"
	"fmt"

	"lead_portal_backend/platform/apperr"
	"lead_portal_backend/platform/config"
	"lead_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	syncer ScoreSyncer
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, syncer ScoreSyncer, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetWorkerConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			Queue: 1,
		},
	})

	w := &Worker{
		server: server,
		mux:    asynq.NewServeMux(),
		syncer: syncer,
		log:    log,
	}
	w.mux.HandleFunc(TaskLeadScoreSync, w.handleLeadScoreSync)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleLeadScoreSync(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadScoreSyncPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return fmt.Errorf("%w: lead id: %v", asynq.SkipRetry, err)
	}
	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		return fmt.Errorf("%w: user id: %v", asynq.SkipRetry, err)
	}

	if err := w.syncer.SyncQuestionnaireScore(ctx, leadID, userID); err != nil {
		w.log.Warn("lead score sync failed", "lead_id", leadID, "error", err)
		if permanent(err) {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		return err
	}
	return nil
}

// permanent reports typed errors that a retry cannot fix.
func permanent(err error) bool {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		return false
	}
	return !appErr.Retryable() && appErr.Kind != apperr.KindInternal
}
