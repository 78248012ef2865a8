package submission

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"lead_portal_backend/internal/events"
	"lead_portal_backend/internal/intake"
	"lead_portal_backend/internal/leads/repository"
	"lead_portal_backend/internal/questionnaire"
	"lead_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	leads     []repository.Lead
	users     map[uuid.UUID]repository.User
	createErr error
	creates   int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{users: map[uuid.UUID]repository.User{}}
}

func (m *memoryStore) Create(_ context.Context, p repository.CreateLeadParams) (repository.Lead, error) {
	m.creates++
	if m.createErr != nil {
		return repository.Lead{}, m.createErr
	}
	lead := repository.Lead{
		ID:          uuid.New(),
		UserID:      p.UserID,
		Name:        p.Name,
		Email:       p.Email,
		Phone:       p.Phone,
		Message:     p.Message,
		ProjectType: p.ProjectType,
		Budget:      p.Budget,
		Timeline:    p.Timeline,
		Score:       p.Score,
		Source:      p.Source,
		CreatedAt:   time.Now(),
	}
	m.leads = append(m.leads, lead)
	return lead, nil
}

func (m *memoryStore) HasRecentLeadByEmail(_ context.Context, email string, since time.Time) (bool, error) {
	for _, l := range m.leads {
		if strings.EqualFold(l.Email, email) && !l.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryStore) GetLatestByUserID(_ context.Context, userID uuid.UUID) (repository.Lead, error) {
	for i := len(m.leads) - 1; i >= 0; i-- {
		if m.leads[i].UserID != nil && *m.leads[i].UserID == userID {
			return m.leads[i], nil
		}
	}
	return repository.Lead{}, repository.ErrNotFound
}

func (m *memoryStore) GetLatestByEmail(_ context.Context, email string) (repository.Lead, error) {
	for i := len(m.leads) - 1; i >= 0; i-- {
		if strings.EqualFold(m.leads[i].Email, email) {
			return m.leads[i], nil
		}
	}
	return repository.Lead{}, repository.ErrNotFound
}

func (m *memoryStore) LinkUser(_ context.Context, id uuid.UUID, userID uuid.UUID) error {
	for i := range m.leads {
		if m.leads[i].ID == id {
			m.leads[i].UserID = &userID
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memoryStore) GetUserByID(_ context.Context, id uuid.UUID) (repository.User, error) {
	u, ok := m.users[id]
	if !ok {
		return repository.User{}, repository.ErrUserNotFound
	}
	return u, nil
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

func newService(store *memoryStore, bus *recordingBus) *Service {
	limiter := intake.NewRateLimiter(intake.FormLimit, intake.NewMemoryStore())
	return New(Deps{
		Store:    store,
		Guard:    intake.NewGuard(limiter, store),
		EventBus: bus,
	})
}

func strPtr(s string) *string { return &s }

func TestSubmitContactFormCreatesLead(t *testing.T) {
	store := newMemoryStore()
	bus := &recordingBus{}
	svc := newService(store, bus)

	res := svc.SubmitContactForm(context.Background(), ContactForm{
		Name:    "  Jane <b>Doe</b> ",
		Email:   " Jane@Example.com ",
		Phone:   strPtr("06 12345678"),
		Message: "<script>alert(1)</script>Hello",
	})

	require.True(t, res.Success, res.Error)
	require.NotNil(t, res.LeadID)
	require.Len(t, store.leads, 1)
	lead := store.leads[0]
	assert.Equal(t, "Jane Doe", lead.Name)
	assert.Equal(t, "jane@example.com", lead.Email)
	assert.Equal(t, "+31612345678", *lead.Phone)
	assert.Equal(t, "alert(1)Hello", lead.Message)
	assert.Equal(t, SourceContactForm, lead.Source)

	require.Len(t, bus.published, 2)
	_, ok := bus.published[0].(events.LeadCreated)
	assert.True(t, ok)
	changed, ok := bus.published[1].(events.LeadChanged)
	require.True(t, ok)
	assert.Equal(t, events.ChangeCreated, changed.Kind)
}

func TestSubmitContactFormValidationNeverReachesGuard(t *testing.T) {
	store := newMemoryStore()
	svc := newService(store, &recordingBus{})

	for i := 0; i < 5; i++ {
		res := svc.SubmitContactForm(context.Background(), ContactForm{Name: "", Email: "jane@example.com"})
		assert.False(t, res.Success)
		assert.Equal(t, CodeValidation, res.Code)
	}

	res := svc.SubmitContactForm(context.Background(), ContactForm{Name: "Jane", Email: "jane@example.com"})
	assert.True(t, res.Success, "validation failures must not count against the limiter")
}

func TestSubmitContactFormRejectsInvalidResponses(t *testing.T) {
	store := newMemoryStore()
	svc := newService(store, &recordingBus{})

	res := svc.SubmitContactForm(context.Background(), ContactForm{
		Name:      "Jane",
		Email:     "jane@example.com",
		Responses: questionnaire.ResponseSet{"budget": questionnaire.Text("50k_plus")},
	})

	assert.False(t, res.Success)
	assert.Equal(t, CodeValidation, res.Code)
	assert.NotEmpty(t, res.Fields)
	assert.Zero(t, store.creates)
}

func TestSubmitContactFormScoresQuestionnaire(t *testing.T) {
	store := newMemoryStore()
	svc := newService(store, &recordingBus{})

	res := svc.SubmitContactForm(context.Background(), ContactForm{
		Name:  "Jane",
		Email: "jane@example.com",
		Responses: questionnaire.ResponseSet{
			"project_type":    questionnaire.Text("web_app"),
			"features":        questionnaire.List("user_accounts", "payments"),
			"current_website": questionnaire.Bool(false),
			"project_goals":   questionnaire.Text("Launch a booking portal for our clinics."),
			"budget":          questionnaire.Text("15k_30k"),
			"timeline":        questionnaire.Text("3_6_months"),
			"decision_maker":  questionnaire.Text("shared_decision"),
			"company_size":    questionnaire.Text("11_50"),
			"target_audience": questionnaire.Text("Patients booking appointments"),
		},
	})

	require.True(t, res.Success, res.Error)
	require.NotNil(t, res.Score)
	lead := store.leads[0]
	assert.Equal(t, res.Score.Total, lead.Score)
	assert.Equal(t, SourceQuestionnaire, lead.Source)
	assert.Equal(t, "15k_30k", *lead.Budget)
	assert.Equal(t, "web_app", *lead.ProjectType)
}

func TestSubmitContactFormIgnoresAbandonedBranchAnswers(t *testing.T) {
	responses := questionnaire.ResponseSet{
		"project_type":    questionnaire.Text("web_app"),
		"current_website": questionnaire.Bool(false),
		"project_goals":   questionnaire.Text("Launch a booking portal for our clinics."),
		"budget":          questionnaire.Text("15k_30k"),
		"timeline":        questionnaire.Text("3_6_months"),
		"decision_maker":  questionnaire.Text("shared_decision"),
		"company_size":    questionnaire.Text("11_50"),
		"target_audience": questionnaire.Text("Patients booking appointments"),
	}
	clean := newService(newMemoryStore(), &recordingBus{}).SubmitContactForm(context.Background(), ContactForm{
		Name: "Jane", Email: "jane@example.com", Responses: responses,
	})
	require.True(t, clean.Success, clean.Error)

	stale := responses.Clone()
	stale["current_website_url"] = questionnaire.Text("https://old.example.com")
	withStale := newService(newMemoryStore(), &recordingBus{}).SubmitContactForm(context.Background(), ContactForm{
		Name: "Jane", Email: "jane@example.com", Responses: stale,
	})
	require.True(t, withStale.Success, withStale.Error)

	require.NotNil(t, clean.Score)
	require.NotNil(t, withStale.Score)
	assert.Equal(t, *clean.Score, *withStale.Score)
}

func TestSubmitContactFormDuplicate(t *testing.T) {
	store := newMemoryStore()
	svc := newService(store, &recordingBus{})
	ctx := context.Background()

	first := svc.SubmitContactForm(ctx, ContactForm{Name: "Jane", Email: "jane@example.com"})
	require.True(t, first.Success)

	second := svc.SubmitContactForm(ctx, ContactForm{Name: "Jane", Email: "JANE@example.com"})
	assert.False(t, second.Success)
	assert.Equal(t, CodeDuplicate, second.Code)
	assert.Zero(t, second.RetryAfterSeconds)
	assert.Equal(t, 1, store.creates)
}

func TestSubmitContactFormBlocksAfterRepeatedFailures(t *testing.T) {
	store := newMemoryStore()
	store.createErr = errors.New("connection reset")
	svc := newService(store, &recordingBus{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res := svc.SubmitContactForm(ctx, ContactForm{Name: "Jane", Email: "jane@example.com"})
		assert.Equal(t, CodeStore, res.Code)
	}

	store.createErr = nil
	res := svc.SubmitContactForm(ctx, ContactForm{Name: "Jane", Email: "jane@example.com"})
	assert.False(t, res.Success)
	assert.Equal(t, CodeRateLimited, res.Code)
	assert.Greater(t, res.RetryAfterSeconds, 0)
	assert.LessOrEqual(t, res.RetryAfterSeconds, 1800)
	assert.Contains(t, res.Error, "30 minutes")
	assert.Equal(t, 3, store.creates)
}

func TestRateLimitMessage(t *testing.T) {
	assert.Equal(t, "Too many attempts. Please try again in 1 minute.", RateLimitMessage(1))
	assert.Equal(t, "Too many attempts. Please try again in 1 minute.", RateLimitMessage(60))
	assert.Equal(t, "Too many attempts. Please try again in 2 minutes.", RateLimitMessage(61))
	assert.Equal(t, "Too many attempts. Please try again in 30 minutes.", RateLimitMessage(1800))
}

func TestLinkPortalUserClaimsLeadByEmail(t *testing.T) {
	store := newMemoryStore()
	svc := newService(store, &recordingBus{})
	ctx := context.Background()

	res := svc.SubmitContactForm(ctx, ContactForm{Name: "Jane", Email: "jane@example.com"})
	require.True(t, res.Success)

	userID := uuid.New()
	store.users[userID] = repository.User{ID: userID, Email: "jane@example.com"}

	leadID, err := svc.LinkPortalUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, *res.LeadID, leadID)
	assert.Equal(t, userID, *store.leads[0].UserID)
	assert.Equal(t, 1, store.creates)

	again, err := svc.LinkPortalUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, leadID, again)
}

func TestLinkPortalUserCreatesLead(t *testing.T) {
	store := newMemoryStore()
	svc := newService(store, &recordingBus{})
	userID := uuid.New()
	store.users[userID] = repository.User{ID: userID, Email: "sam@example.com", DisplayName: "Sam"}

	leadID, err := svc.LinkPortalUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, store.leads, 1)
	assert.Equal(t, leadID, store.leads[0].ID)
	assert.Equal(t, SourcePortal, store.leads[0].Source)
	assert.Equal(t, "Sam", store.leads[0].Name)
}

func TestLinkPortalUserUnknownUser(t *testing.T) {
	svc := newService(newMemoryStore(), &recordingBus{})

	_, err := svc.LinkPortalUser(context.Background(), uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
