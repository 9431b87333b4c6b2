package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/problemradar/problem-radar/internal/analysis"
	"github.com/problemradar/problem-radar/internal/config"
	"github.com/problemradar/problem-radar/internal/models"
	"github.com/problemradar/problem-radar/internal/notifications"
	"github.com/problemradar/problem-radar/internal/problems"
	"github.com/problemradar/problem-radar/internal/sources"
	"github.com/problemradar/problem-radar/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockFileStorage implements StorageInterface in memory
type MockFileStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMockFileStorage() *MockFileStorage {
	return &MockFileStorage{
		data: make(map[string][]byte),
	}
}

func (m *MockFileStorage) Store(filename string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[filename] = data
	return nil
}

func (m *MockFileStorage) Retrieve(filename string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if data, exists := m.data[filename]; exists {
		return data, nil
	}
	return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, filename)
}

func (m *MockFileStorage) List(prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var files []string
	for filename := range m.data {
		if strings.HasPrefix(filename, prefix) {
			files = append(files, filename)
		}
	}
	sort.Strings(files)
	return files, nil
}

func (m *MockFileStorage) Delete(filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, filename)
	return nil
}

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

type stubSource struct {
	name    string
	enabled bool
	posts   []models.Post
	err     error
}

func (s *stubSource) GetName() string { return s.name }
func (s *stubSource) IsEnabled() bool { return s.enabled }
func (s *stubSource) FetchPosts(ctx context.Context, keywords []string, since time.Duration) ([]models.Post, error) {
	return s.posts, s.err
}

var runTime = time.Date(2024, 1, 23, 9, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		DiscoveryWindowHours: 24,
		SnapshotHistory:      10,
		Keywords:             []string{"too expensive"},
		BadgeHighThreshold:   80,
		BadgeMediumThreshold: 60,
	}
}

func newTestService(store storage.StorageInterface, notifier *MockNotificationService, srcs ...sources.Source) (*Service, *problems.Catalog) {
	catalog := problems.NewCatalog(problems.NewFixtureRepository())
	var n notifications.NotificationInterface
	if notifier != nil {
		n = notifier
	}
	service := NewService(testConfig(), store, catalog, analysis.HeuristicAnalyst{}, n)
	service.sources = srcs
	service.now = func() time.Time { return runTime }
	return service, catalog
}

func painPost(id string, platform models.Platform) models.Post {
	return models.Post{
		ID:         id,
		Platform:   platform,
		SourceName: "r/freelance",
		Title:      "Invoicing tools are too expensive",
		Body:       "I pay $40/month just to send invoices, so frustrating",
		URL:        "https://example.com/" + id,
		CreatedAt:  runTime.Add(-2 * time.Hour),
		Score:      120,
		Comments:   40,
		Keywords:   []string{"too expensive"},
	}
}

func TestService_DefaultSources(t *testing.T) {
	cfg := testConfig()
	cfg.ForumFeeds = []config.ForumFeed{{Name: "Indie", URL: "https://indie.example.com/feed"}}

	service := NewService(cfg, NewMockFileStorage(), problems.NewCatalog(problems.NewFixtureRepository()), analysis.HeuristicAnalyst{}, nil)

	var names []string
	for _, source := range service.Sources() {
		names = append(names, source.GetName())
	}
	assert.Equal(t, []string{"reddit", "hackernews", "stackoverflow", "forum:Indie"}, names)
}

func TestService_Run(t *testing.T) {
	store := NewMockFileStorage()
	notifier := &MockNotificationService{}
	notifier.On("Notify", mock.MatchedBy(func(n *models.Notification) bool {
		return n.Title == "New problems discovered" && n.Message == "2 new problems found, 7 problems in total."
	})).Return(nil).Once()

	announcement := painPost("hackernews_9", models.PlatformHackerNews)
	announcement.Title = "Show HN: my side project"
	announcement.Body = "Feedback welcome"

	service, catalog := newTestService(store, notifier,
		&stubSource{name: "reddit", enabled: true, posts: []models.Post{painPost("reddit_1", models.PlatformReddit)}},
		&stubSource{name: "hackernews", enabled: true, posts: []models.Post{painPost("hackernews_1", models.PlatformHackerNews), announcement}},
		&stubSource{name: "stackoverflow", enabled: true, err: errors.New("quota exceeded")},
		&stubSource{name: "disabled", enabled: false, posts: []models.Post{painPost("x", models.PlatformForums)}},
	)

	count, err := service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// the seed problems are still within retention and stay behind the new ones
	all := catalog.GetAll()
	require.Len(t, all, 7)
	for _, p := range all[:2] {
		assert.Contains(t, []string{"reddit_1", "hackernews_1"}, p.ID)
		assert.Equal(t, models.CategoryFinancial, p.Category)
		assert.NotEmpty(t, p.AIAnalysis.UrgencyReasoning)
	}
	_, found := catalog.GetByID("x")
	assert.False(t, found)

	assert.Equal(t, 2, catalog.Metrics().NewProblemsToday)

	names, err := store.List("")
	require.NoError(t, err)
	assert.Equal(t, []string{"snapshots/latest.json", "snapshots/problems-2024-01-23-09-00-00.json"}, names)

	latest, err := problems.LoadSnapshot(store, problems.LatestSnapshot)
	require.NoError(t, err)
	assert.Len(t, latest.Problems, 7)

	var metrics Metrics
	require.NoError(t, json.Unmarshal([]byte(service.GetMetrics()), &metrics))
	assert.Equal(t, 7, metrics.TotalProblems)
	assert.Equal(t, 2, metrics.NewProblems)
	assert.Equal(t, 3, metrics.PostsFetched)
	assert.Equal(t, 1, metrics.ErrorCount)
	assert.Equal(t, 1, metrics.SourceMetrics["reddit"])
	assert.Equal(t, 2, metrics.SourceMetrics["hackernews"])
	assert.Equal(t, "snapshots/problems-2024-01-23-09-00-00.json", metrics.LastSnapshot)

	notifier.AssertExpectations(t)
}

func TestService_RunDropsExpiredProblems(t *testing.T) {
	store := NewMockFileStorage()
	notifier := &MockNotificationService{}
	notifier.On("Notify", mock.Anything).Return(nil)

	service, catalog := newTestService(store, notifier,
		&stubSource{name: "reddit", enabled: true, posts: []models.Post{painPost("reddit_1", models.PlatformReddit)}})
	service.now = func() time.Time { return runTime.AddDate(0, 2, 0) }

	_, err := service.Run(context.Background())
	require.NoError(t, err)

	all := catalog.GetAll()
	require.Len(t, all, 1)
	assert.Equal(t, "reddit_1", all[0].ID)
}

func TestService_RunWithoutProblemsKeepsDataset(t *testing.T) {
	store := NewMockFileStorage()
	service, catalog := newTestService(store, nil,
		&stubSource{name: "reddit", enabled: true, posts: nil})
	before := catalog.Current()

	count, err := service.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Same(t, before, catalog.Current())

	names, _ := store.List("")
	assert.Empty(t, names)
}

func TestService_RunAllSourcesFailed(t *testing.T) {
	service, _ := newTestService(NewMockFileStorage(), nil,
		&stubSource{name: "reddit", enabled: true, err: errors.New("down")},
		&stubSource{name: "hackernews", enabled: true, err: errors.New("down")})

	_, err := service.Run(context.Background())
	assert.EqualError(t, err, "all 2 sources failed")
}

type blockingSource struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingSource) GetName() string { return "blocking" }
func (b *blockingSource) IsEnabled() bool { return true }
func (b *blockingSource) FetchPosts(ctx context.Context, keywords []string, since time.Duration) ([]models.Post, error) {
	close(b.started)
	<-b.release
	return nil, nil
}

func TestService_RunInProgress(t *testing.T) {
	source := &blockingSource{started: make(chan struct{}), release: make(chan struct{})}
	service, _ := newTestService(NewMockFileStorage(), nil, source)

	done := make(chan error, 1)
	go func() {
		_, err := service.Run(context.Background())
		done <- err
	}()

	<-source.started
	_, err := service.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(source.release)
	assert.NoError(t, <-done)
}

type failingStorage struct {
	*MockFileStorage
}

func (f failingStorage) Store(filename string, data []byte) error {
	return errors.New("disk full")
}

func TestService_RunStorageFailure(t *testing.T) {
	service, catalog := newTestService(failingStorage{NewMockFileStorage()}, nil,
		&stubSource{name: "reddit", enabled: true, posts: []models.Post{painPost("reddit_1", models.PlatformReddit)}})
	before := catalog.Current()

	_, err := service.Run(context.Background())
	assert.ErrorContains(t, err, "disk full")
	assert.Same(t, before, catalog.Current())
}

func TestService_RunPrunesSnapshotHistory(t *testing.T) {
	store := NewMockFileStorage()
	for i := 1; i <= 3; i++ {
		require.NoError(t, store.Store(problems.SnapshotName(runTime.Add(-time.Duration(i)*time.Hour)), []byte("{}")))
	}

	service, _ := newTestService(store, nil,
		&stubSource{name: "reddit", enabled: true, posts: []models.Post{painPost("reddit_1", models.PlatformReddit)}})
	service.config.SnapshotHistory = 2

	_, err := service.Run(context.Background())
	require.NoError(t, err)

	names, err := store.List("snapshots/problems-")
	require.NoError(t, err)
	assert.Equal(t, []string{
		problems.SnapshotName(runTime.Add(-time.Hour)),
		problems.SnapshotName(runTime),
	}, names)
}

func TestService_RunStampsDiscoveryTime(t *testing.T) {
	store := NewMockFileStorage()
	service, catalog := newTestService(store, nil,
		&stubSource{name: "reddit", enabled: true, posts: []models.Post{painPost("reddit_1", models.PlatformReddit)}})

	_, err := service.Run(context.Background())
	require.NoError(t, err)

	first, ok := catalog.GetByID("reddit_1")
	require.True(t, ok)
	assert.Equal(t, runTime, first.DateDiscovered)
	require.NotNil(t, first.PostedAt)
	assert.Equal(t, runTime.Add(-2*time.Hour), *first.PostedAt)

	// a later pass that sees the same post keeps the first discovery time
	service.now = func() time.Time { return runTime.Add(6 * time.Hour) }
	_, err = service.Run(context.Background())
	require.NoError(t, err)

	again, ok := catalog.GetByID("reddit_1")
	require.True(t, ok)
	assert.Equal(t, runTime, again.DateDiscovered)
	assert.Equal(t, "reddit_1", catalog.GetAll()[0].ID)
}
