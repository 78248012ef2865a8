package scheduler

import (
	"context"
	"errors"
	"testing"

	"lead_portal_backend/platform/apperr"
	"lead_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSyncer struct {
	calls [][2]uuid.UUID
	err   error
}

func (s *recordingSyncer) SyncQuestionnaireScore(_ context.Context, leadID, userID uuid.UUID) error {
	s.calls = append(s.calls, [2]uuid.UUID{leadID, userID})
	return s.err
}

func TestHandleLeadScoreSync(t *testing.T) {
	syncer := &recordingSyncer{}
	w := &Worker{syncer: syncer, log: logger.Discard()}
	leadID, userID := uuid.New(), uuid.New()

	task, err := NewLeadScoreSyncTask(LeadScoreSyncPayload{LeadID: leadID.String(), UserID: userID.String()})
	require.NoError(t, err)
	assert.Equal(t, TaskLeadScoreSync, task.Type())

	require.NoError(t, w.handleLeadScoreSync(context.Background(), task))
	assert.Equal(t, [][2]uuid.UUID{{leadID, userID}}, syncer.calls)
}

func TestHandleLeadScoreSyncRetriesStoreErrors(t *testing.T) {
	syncer := &recordingSyncer{err: errors.New("deadlock detected")}
	w := &Worker{syncer: syncer, log: logger.Discard()}

	task, err := NewLeadScoreSyncTask(LeadScoreSyncPayload{LeadID: uuid.NewString(), UserID: uuid.NewString()})
	require.NoError(t, err)

	err = w.handleLeadScoreSync(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleLeadScoreSyncSkipsPermanentErrors(t *testing.T) {
	task, err := NewLeadScoreSyncTask(LeadScoreSyncPayload{LeadID: uuid.NewString(), UserID: uuid.NewString()})
	require.NoError(t, err)

	w := &Worker{syncer: &recordingSyncer{err: apperr.NotFound("lead not found")}, log: logger.Discard()}
	assert.ErrorIs(t, w.handleLeadScoreSync(context.Background(), task), asynq.SkipRetry)

	w = &Worker{syncer: &recordingSyncer{err: apperr.Unavailable("lead store unavailable")}, log: logger.Discard()}
	assert.NotErrorIs(t, w.handleLeadScoreSync(context.Background(), task), asynq.SkipRetry)
}

func TestHandleLeadScoreSyncSkipsMalformedPayload(t *testing.T) {
	w := &Worker{syncer: &recordingSyncer{}, log: logger.Discard()}

	err := w.handleLeadScoreSync(context.Background(), asynq.NewTask(TaskLeadScoreSync, []byte(`{"leadId":"nope"}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestInlineSyncerRunsImmediately(t *testing.T) {
	syncer := &recordingSyncer{}
	leadID, userID := uuid.New(), uuid.New()

	require.NoError(t, NewInlineSyncer(syncer, logger.Discard()).EnqueueScoreSync(context.Background(), leadID, userID))
	assert.Len(t, syncer.calls, 1)
}

func TestRedisClientOpt(t *testing.T) {
	opt, err := redisClientOpt("redis://:secret@cache.internal:6380/2")
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opt.Addr)
	assert.Equal(t, "secret", opt.Password)
	assert.Equal(t, 2, opt.DB)
	assert.Nil(t, opt.TLSConfig)

	_, err = redisClientOpt("://bad")
	assert.Error(t, err)
}
