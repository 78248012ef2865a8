package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"lead_portal_backend/platform/config"
	"lead_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	// Queue is the asynq queue every lead task runs on.
	Queue = "leads"

	scoreSyncRetries = 5
	scoreSyncTimeout = 30 * time.Second
)

// ScoreSyncer performs the questionnaire score sync.
type ScoreSyncer interface {
	SyncQuestionnaireScore(ctx context.Context, leadID, userID uuid.UUID) error
}

type Client struct {
	client *asynq.Client
}

func NewClient(cfg config.RedisConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}
	return &Client{client: asynq.NewClient(opt)}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueScoreSync schedules a score sync for leadID. Retries are left to
// the worker.
func (c *Client) EnqueueScoreSync(ctx context.Context, leadID, userID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewLeadScoreSyncTask(LeadScoreSyncPayload{LeadID: leadID.String(), UserID: userID.String()})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(Queue),
		asynq.MaxRetry(scoreSyncRetries),
		asynq.Timeout(scoreSyncTimeout),
	)
	return err
}

// InlineSyncer runs score syncs in the calling goroutine. It stands in for
// the queue when Redis is not configured.
type InlineSyncer struct {
	syncer ScoreSyncer
	log    *logger.Logger
}

func NewInlineSyncer(syncer ScoreSyncer, log *logger.Logger) *InlineSyncer {
	return &InlineSyncer{syncer: syncer, log: log}
}

func (s *InlineSyncer) EnqueueScoreSync(ctx context.Context, leadID, userID uuid.UUID) error {
	if err := s.syncer.SyncQuestionnaireScore(ctx, leadID, userID); err != nil {
		s.log.Warn("inline score sync failed", "lead_id", leadID, "error", err)
		return err
	}
	return nil
}

func redisClientOpt(redisURL string) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		tlsConfig = opt.TLSConfig.Clone()
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
