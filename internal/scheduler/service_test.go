package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/problemradar/problem-radar/internal/alerts"
	"github.com/problemradar/problem-radar/internal/config"
	"github.com/problemradar/problem-radar/internal/discovery"
	"github.com/problemradar/problem-radar/internal/models"
	"github.com/problemradar/problem-radar/internal/problems"
	"github.com/problemradar/problem-radar/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockNotificationService is a mock implementation of the notification service
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) Notify(n *models.Notification) error {
	args := m.Called(n)
	return args.Error(0)
}

func (m *MockNotificationService) SendDigest(digest *models.Digest) error {
	args := m.Called(digest)
	return args.Error(0)
}

type stubDiscoverer struct {
	found int
	err   error
	runs  int
}

func (s *stubDiscoverer) Run(ctx context.Context) (int, error) {
	s.runs++
	return s.found, s.err
}

var now = time.Date(2024, 1, 22, 12, 0, 0, 0, time.UTC)

func testRepository() *problems.MemoryRepository {
	return problems.NewMemoryRepository([]models.Problem{
		{
			ID:             "fresh",
			Title:          "Invoice reminders are a pain",
			SourcePlatform: models.PlatformReddit,
			Category:       models.CategoryFinancial,
			UrgencyScore:   70,
			DateDiscovered: now.Add(-5 * time.Minute),
		},
		{
			ID:             "older",
			Title:          "Invoice templates look dated",
			SourcePlatform: models.PlatformForums,
			Category:       models.CategoryFinancial,
			UrgencyScore:   50,
			DateDiscovered: now.Add(-time.Hour),
		},
	}, models.DashboardMetrics{})
}

func newTestScheduler(t *testing.T, cfg *config.Config, discoverer Discoverer, notifier *MockNotificationService) (*Service, *alerts.Service, string) {
	alertService := alerts.NewService(nil, alerts.DemoAlerts())
	alert, err := alertService.Create(models.AlertDraft{Name: "Invoices", Keywords: "invoice", Frequency: "instant"})
	require.NoError(t, err)

	service := NewService(cfg, discoverer, alertService, alerts.NewMatcher(query.DefaultEngine), testRepository(), notifier)
	service.now = func() time.Time { return now }
	return service, alertService, alert.ID
}

func TestService_RunDigests(t *testing.T) {
	notifier := &MockNotificationService{}
	notifier.On("SendDigest", mock.MatchedBy(func(d *models.Digest) bool {
		return d.Alert.Name == "Invoices" &&
			d.Period == models.FrequencyInstant &&
			len(d.Problems) == 1 && d.Problems[0].ID == "fresh"
	})).Return(nil).Once()

	service, _, _ := newTestScheduler(t, &config.Config{}, &stubDiscoverer{}, notifier)

	require.NoError(t, service.RunDigests(models.FrequencyInstant))

	// the next run only covers problems found since the previous one
	service.now = func() time.Time { return now.Add(15 * time.Minute) }
	require.NoError(t, service.RunDigests(models.FrequencyInstant))

	notifier.AssertExpectations(t)
}

func TestService_RunDigestsDeliversNewlyScoredPost(t *testing.T) {
	notifier := &MockNotificationService{}
	service, _, _ := newTestScheduler(t, &config.Config{}, &stubDiscoverer{}, notifier)
	service.repository = problems.NewMemoryRepository(nil, models.DashboardMetrics{})

	require.NoError(t, service.RunDigests(models.FrequencyInstant))

	// the post is two hours old but discovery only sees it now
	post := models.Post{
		ID:         "reddit_invoice",
		Platform:   models.PlatformReddit,
		SourceName: "r/freelance",
		Title:      "Chasing every invoice by hand is a nightmare",
		Body:       "Is there a tool that sends invoice reminders for me?",
		CreatedAt:  now.Add(-2 * time.Hour),
		Score:      40,
	}
	problem := discovery.ScorePost(post, now.Add(5*time.Minute))
	service.repository = problems.NewMemoryRepository([]models.Problem{problem}, models.DashboardMetrics{})

	notifier.On("SendDigest", mock.MatchedBy(func(d *models.Digest) bool {
		return d.Alert.Name == "Invoices" && len(d.Problems) == 1 && d.Problems[0].ID == "reddit_invoice"
	})).Return(nil).Once()

	service.now = func() time.Time { return now.Add(15 * time.Minute) }
	require.NoError(t, service.RunDigests(models.FrequencyInstant))

	notifier.AssertExpectations(t)
}

func TestService_RunDigestsRetriesFailedDelivery(t *testing.T) {
	notifier := &MockNotificationService{}
	notifier.On("SendDigest", mock.Anything).Return(errors.New("webhook down")).Once()
	notifier.On("SendDigest", mock.MatchedBy(func(d *models.Digest) bool {
		return d.Alert.Name == "Invoices" && len(d.Problems) == 1 && d.Problems[0].ID == "fresh"
	})).Return(nil).Once()

	service, _, _ := newTestScheduler(t, &config.Config{}, &stubDiscoverer{}, notifier)

	require.Error(t, service.RunDigests(models.FrequencyInstant))

	// the failed matches are sent on the next tick
	service.now = func() time.Time { return now.Add(15 * time.Minute) }
	require.NoError(t, service.RunDigests(models.FrequencyInstant))

	// and not again once delivered
	service.now = func() time.Time { return now.Add(30 * time.Minute) }
	require.NoError(t, service.RunDigests(models.FrequencyInstant))

	notifier.AssertExpectations(t)
	notifier.AssertNumberOfCalls(t, "SendDigest", 2)
}

func TestService_RunDigestsDaily(t *testing.T) {
	notifier := &MockNotificationService{}
	service, _, _ := newTestScheduler(t, &config.Config{}, &stubDiscoverer{}, notifier)

	// no active daily alert matches the invoice problems
	require.NoError(t, service.RunDigests(models.FrequencyDaily))
	notifier.AssertNotCalled(t, "SendDigest", mock.Anything)
}

func TestService_RunDigestsFailure(t *testing.T) {
	notifier := &MockNotificationService{}
	notifier.On("SendDigest", mock.Anything).Return(errors.New("webhook down"))

	service, _, _ := newTestScheduler(t, &config.Config{}, &stubDiscoverer{}, notifier)

	err := service.RunDigests(models.FrequencyInstant)
	assert.ErrorContains(t, err, "Invoices")
}

func TestService_RunDiscoveryRefreshesMatches(t *testing.T) {
	discoverer := &stubDiscoverer{found: 2}
	service, alertService, alertID := newTestScheduler(t, &config.Config{}, discoverer, &MockNotificationService{})

	require.NoError(t, service.RunDiscovery(context.Background()))
	assert.Equal(t, 1, discoverer.runs)

	alert, ok := alertService.Get(alertID)
	require.True(t, ok)
	assert.Equal(t, 2, alert.MatchesToday)
}

func TestService_RunDiscoveryFailure(t *testing.T) {
	discoverer := &stubDiscoverer{err: errors.New("all 3 sources failed")}
	service, alertService, alertID := newTestScheduler(t, &config.Config{}, discoverer, &MockNotificationService{})

	err := service.RunDiscovery(context.Background())
	assert.EqualError(t, err, "all 3 sources failed")

	alert, _ := alertService.Get(alertID)
	assert.Zero(t, alert.MatchesToday)
}

func TestService_Start(t *testing.T) {
	tests := []struct {
		name         string
		cfg          *config.Config
		entries      int
		remoteCounts int
		wantErr      bool
	}{
		{
			name:         "Digests only",
			cfg:          &config.Config{DiscoveryEnabled: false},
			entries:      3,
			remoteCounts: 7,
		},
		{
			name:         "Discovery enabled",
			cfg:          &config.Config{DiscoveryEnabled: true, DiscoverySchedule: "0 0 */6 * * *"},
			entries:      4,
			remoteCounts: 0,
		},
		{
			name:    "Invalid discovery schedule",
			cfg:     &config.Config{DiscoveryEnabled: true, DiscoverySchedule: "every six hours"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, alertService, _ := newTestScheduler(t, tt.cfg, &stubDiscoverer{}, &MockNotificationService{})

			err := service.Start()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer service.Stop()

			assert.Len(t, service.cron.Entries(), tt.entries)

			remote, ok := alertService.Get("2")
			require.True(t, ok)
			assert.Equal(t, tt.remoteCounts, remote.MatchesToday)
		})
	}
}

func TestPeriod(t *testing.T) {
	assert.Equal(t, 15*time.Minute, period(models.FrequencyInstant))
	assert.Equal(t, 24*time.Hour, period(models.FrequencyDaily))
	assert.Equal(t, 7*24*time.Hour, period(models.FrequencyWeekly))
}
