package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"lead_portal_backend/internal/events"
	"lead_portal_backend/internal/questionnaire"
	"lead_portal_backend/internal/questionnaire/repository"
	"lead_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySessions struct {
	byUser map[uuid.UUID]repository.Session
	saves  int
}

func newMemorySessions() *memorySessions {
	return &memorySessions{byUser: map[uuid.UUID]repository.Session{}}
}

func (m *memorySessions) GetByUserID(_ context.Context, userID uuid.UUID) (repository.Session, error) {
	s, ok := m.byUser[userID]
	if !ok {
		return repository.Session{}, repository.ErrNotFound
	}
	s.Responses = append([]repository.Answer(nil), s.Responses...)
	return s, nil
}

func (m *memorySessions) Save(_ context.Context, s repository.Session) (repository.Session, error) {
	m.saves++
	s.Responses = append([]repository.Answer(nil), s.Responses...)
	m.byUser[s.UserID] = s
	return s, nil
}

type fakeLinker struct {
	leadID uuid.UUID
	err    error
	calls  int
}

func (f *fakeLinker) LinkPortalUser(context.Context, uuid.UUID) (uuid.UUID, error) {
	f.calls++
	return f.leadID, f.err
}

type fakeSync struct {
	leads []uuid.UUID
}

func (f *fakeSync) EnqueueScoreSync(_ context.Context, leadID, _ uuid.UUID) error {
	f.leads = append(f.leads, leadID)
	return nil
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) { b.published = append(b.published, e) }
func (b *recordingBus) PublishSync(_ context.Context, e events.Event) error {
	b.published = append(b.published, e)
	return nil
}
func (b *recordingBus) Subscribe(string, events.Handler) {}

type fixture struct {
	svc      *Service
	sessions *memorySessions
	linker   *fakeLinker
	sync     *fakeSync
	bus      *recordingBus
	userID   uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		sessions: newMemorySessions(),
		linker:   &fakeLinker{leadID: uuid.New()},
		sync:     &fakeSync{},
		bus:      &recordingBus{},
		userID:   uuid.New(),
	}
	f.svc = New(Deps{
		Sessions:  f.sessions,
		Leads:     f.linker,
		ScoreSync: f.sync,
		EventBus:  f.bus,
		Now:       func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) },
	})
	return f
}

func answerAll(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	answers := []struct {
		id    string
		value questionnaire.Value
	}{
		{"project_type", questionnaire.Text("web_app")},
		{"features", questionnaire.List("user_accounts", "payments", "cms", "search", "analytics", "admin_panel")},
		{"current_website", questionnaire.Bool(true)},
		{"current_website_url", questionnaire.Text("https://example.com")},
		{"project_goals", questionnaire.Text("Replace our spreadsheet ordering with a self-service dealer portal.")},
		{"budget", questionnaire.Text("50k_plus")},
		{"timeline", questionnaire.Text("asap")},
		{"decision_maker", questionnaire.Text("sole_decision")},
		{"company_size", questionnaire.Text("11_50")},
		{"target_audience", questionnaire.Text("Independent bicycle dealers across the Benelux who reorder weekly.")},
		{"additional_info", questionnaire.Text("ERP with an API")},
	}
	for _, a := range answers {
		_, err := f.svc.Answer(ctx, f.userID, a.id, a.value)
		require.NoError(t, err, a.id)
	}
}

func TestStartOpensSessionAtFirstQuestion(t *testing.T) {
	f := newFixture()

	p, err := f.svc.Start(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, repository.StatusInProgress, p.Session.Status)
	require.NotNil(t, p.Next)
	assert.Equal(t, "project_type", p.Next.ID)
	assert.False(t, p.CanComplete)

	again, err := f.svc.Start(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, p.Session.StartedAt, again.Session.StartedAt)
	assert.Equal(t, 1, f.sessions.saves)
}

func TestAnswerFollowsBranching(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	p, err := f.svc.Answer(ctx, f.userID, "current_website", questionnaire.Bool(true))
	require.NoError(t, err)
	require.NotNil(t, p.Session.CurrentQuestionID)
	assert.Equal(t, "current_website_url", *p.Session.CurrentQuestionID)
	require.NotNil(t, p.Next)
	assert.Equal(t, "current_website_url", p.Next.ID)
}

func TestAnswerRejectsQuestionOffFlow(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Answer(context.Background(), f.userID, "current_website_url", questionnaire.Text("https://example.com"))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestAnswerRejectsInvalidValue(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Answer(context.Background(), f.userID, "budget", questionnaire.Text("one_million"))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.Answer(context.Background(), f.userID, "no_such_question", questionnaire.Text("x"))
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestAnswerDropsBranchAnswerThatLeavesFlow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Answer(ctx, f.userID, "current_website", questionnaire.Bool(true))
	require.NoError(t, err)
	_, err = f.svc.Answer(ctx, f.userID, "current_website_url", questionnaire.Text("https://example.com"))
	require.NoError(t, err)

	p, err := f.svc.Answer(ctx, f.userID, "current_website", questionnaire.Bool(false))
	require.NoError(t, err)
	assert.False(t, p.Session.ResponseSet().Answered("current_website_url"))
	assert.Equal(t, "project_goals", *p.Session.CurrentQuestionID)
}

func TestResumeWithoutSession(t *testing.T) {
	f := newFixture()

	p, err := f.svc.Resume(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, repository.StatusNotStarted, p.Session.Status)
	require.NotNil(t, p.Next)
	assert.Equal(t, "project_type", p.Next.ID)
	assert.Zero(t, f.sessions.saves)
}

func TestCompleteRejectsIncompleteSession(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Complete(ctx, f.userID)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.Answer(ctx, f.userID, "project_type", questionnaire.Text("web_app"))
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, f.userID)
	require.Error(t, err)
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
	assert.NotEmpty(t, appErr.Details)
	assert.Zero(t, f.linker.calls)
}

func TestCompleteScoresLinksAndSchedulesSync(t *testing.T) {
	f := newFixture()
	answerAll(t, f)

	res, err := f.svc.Complete(context.Background(), f.userID)
	require.NoError(t, err)

	assert.Equal(t, 100, res.Breakdown.Total)
	assert.Equal(t, repository.StatusCompleted, res.Session.Status)
	require.NotNil(t, res.LeadID)
	assert.Equal(t, f.linker.leadID, *res.LeadID)
	assert.Equal(t, []uuid.UUID{f.linker.leadID}, f.sync.leads)
	require.Len(t, f.bus.published, 1)
	done, ok := f.bus.published[0].(events.QuestionnaireCompleted)
	require.True(t, ok)
	assert.Equal(t, 100, done.Score)
	assert.Equal(t, "hot", done.Temperature)
}

func TestCompleteIsIdempotentOnceLinked(t *testing.T) {
	f := newFixture()
	answerAll(t, f)
	ctx := context.Background()

	_, err := f.svc.Complete(ctx, f.userID)
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, f.userID)
	require.NoError(t, err)

	assert.Equal(t, 1, f.linker.calls)
	assert.Len(t, f.bus.published, 1)
}

func TestCompleteRetriesFailedLink(t *testing.T) {
	f := newFixture()
	answerAll(t, f)
	ctx := context.Background()

	f.linker.err = apperr.TooManyRequests("slow down")
	_, err := f.svc.Complete(ctx, f.userID)
	assert.True(t, apperr.Is(err, apperr.KindTooManyRequests))

	stored := f.sessions.byUser[f.userID]
	assert.Equal(t, repository.StatusCompleted, stored.Status)
	assert.Nil(t, stored.LeadID)

	f.linker.err = nil
	res, err := f.svc.Complete(ctx, f.userID)
	require.NoError(t, err)
	require.NotNil(t, res.LeadID)
	assert.Len(t, f.bus.published, 1)
}

func TestAnswerAfterCompletionConflicts(t *testing.T) {
	f := newFixture()
	answerAll(t, f)
	ctx := context.Background()
	_, err := f.svc.Complete(ctx, f.userID)
	require.NoError(t, err)

	_, err = f.svc.Answer(ctx, f.userID, "budget", questionnaire.Text("under_5k"))
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestPreviewHasNoSideEffects(t *testing.T) {
	f := newFixture()

	b := f.svc.Preview(questionnaire.ResponseSet{"budget": questionnaire.Text("15k_30k")})
	assert.Equal(t, 25, b.Budget)
	assert.Zero(t, f.sessions.saves)
}
