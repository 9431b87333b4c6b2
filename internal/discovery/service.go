// Package discovery turns community posts into the problem dataset: it
// fetches posts from every source, scores them, attaches AI analysis and
// publishes a new snapshot to the catalog.
package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/problemradar/problem-radar/internal/analysis"
	"github.com/problemradar/problem-radar/internal/config"
	"github.com/problemradar/problem-radar/internal/models"
	"github.com/problemradar/problem-radar/internal/notifications"
	"github.com/problemradar/problem-radar/internal/problems"
	"github.com/problemradar/problem-radar/internal/query"
	"github.com/problemradar/problem-radar/internal/sources"
	"github.com/problemradar/problem-radar/internal/storage"
	"github.com/sirupsen/logrus"
)

// ErrRunInProgress is returned when a run is requested while another is active
var ErrRunInProgress = errors.New("discovery run already in progress")

// Problems older than this are dropped from the dataset
const retention = 30 * 24 * time.Hour

// Service handles discovery of problems across community platforms
type Service struct {
	config     *config.Config
	storage    storage.StorageInterface
	catalog    *problems.Catalog
	analyst    analysis.Analyst
	notifier   notifications.NotificationInterface
	classifier query.Classifier
	sources    []sources.Source
	now        func() time.Time

	running atomic.Bool
	metrics *Metrics
	mu      sync.RWMutex
}

// Metrics holds discovery run metrics
type Metrics struct {
	TotalProblems      int            `json:"total_problems"`
	NewProblems        int            `json:"new_problems"`
	PostsFetched       int            `json:"posts_fetched"`
	LastRun            time.Time      `json:"last_run"`
	LastRunDuration    string         `json:"last_run_duration"`
	LastSnapshot       string         `json:"last_snapshot,omitempty"`
	SourceMetrics      map[string]int `json:"source_metrics"`
	CategoryBreakdown  map[string]int `json:"category_breakdown"`
	SentimentBreakdown map[string]int `json:"sentiment_breakdown"`
	ErrorCount         int            `json:"error_count"`
}

// NewService creates a new discovery service
func NewService(cfg *config.Config, store storage.StorageInterface, catalog *problems.Catalog,
	analyst analysis.Analyst, notifier notifications.NotificationInterface) *Service {
	service := &Service{
		config:   cfg,
		storage:  store,
		catalog:  catalog,
		analyst:  analyst,
		notifier: notifier,
		classifier: query.Classifier{Thresholds: cfg.BadgeThresholds()},
		now: time.Now,
		metrics: &Metrics{
			SourceMetrics:      make(map[string]int),
			CategoryBreakdown:  make(map[string]int),
			SentimentBreakdown: make(map[string]int),
		},
	}

	service.initializeSources()

	return service
}

func (s *Service) initializeSources() {
	s.sources = sources.FromConfig(s.config)
}

// Sources returns the configured sources
func (s *Service) Sources() []sources.Source {
	return s.sources
}

type sourceResult struct {
	name  string
	posts []models.Post
}

// Run performs a discovery run and publishes the resulting dataset. It
// returns the number of new problems.
func (s *Service) Run(ctx context.Context) (int, error) {
	if !s.running.CompareAndSwap(false, true) {
		return 0, ErrRunInProgress
	}
	defer s.running.Store(false)

	start := time.Now()
	logrus.Info("Starting discovery run")

	ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	window := time.Duration(s.config.DiscoveryWindowHours) * time.Hour
	posts, sourceCounts, errorCount := s.fetchAll(ctx, window)
	logrus.Infof("Collected %d total posts from all sources", len(posts))

	now := s.now()
	var discovered []models.Problem
	for _, post := range posts {
		if isProblemPost(post) {
			discovered = append(discovered, ScorePost(post, now))
		}
	}
	logrus.Infof("After problem filtering: %d posts", len(discovered))

	if len(discovered) == 0 {
		s.updateMetrics(nil, 0, len(posts), sourceCounts, errorCount, time.Since(start), "")
		if errorCount > 0 && errorCount == len(s.enabledSources()) {
			return 0, fmt.Errorf("all %d sources failed", errorCount)
		}
		logrus.Info("No new problems found, keeping current dataset")
		return 0, nil
	}

	for i := range discovered {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		result, err := s.analyst.Analyze(ctx, discovered[i])
		if err != nil {
			logrus.Errorf("Failed to analyze %q: %v", discovered[i].Title, err)
			continue
		}
		discovered[i].AIAnalysis = result
	}

	dataset := s.merge(discovered, now)
	snapshot := &problems.Snapshot{
		GeneratedAt: now.UTC(),
		Problems:    dataset,
		Metrics:     ComputeDashboard(dataset, now, s.classifier),
	}
	if err := snapshot.Validate(); err != nil {
		return 0, fmt.Errorf("discovered dataset is invalid: %w", err)
	}

	name := problems.SnapshotName(now)
	if err := s.storeSnapshot(name, snapshot); err != nil {
		logrus.Errorf("Failed to store snapshot: %v", err)
		return 0, err
	}

	if _, err := problems.PruneSnapshots(s.storage, s.config.SnapshotHistory); err != nil {
		logrus.Warnf("Failed to prune old snapshots: %v", err)
	}

	s.catalog.Swap(snapshot.Repository())
	s.updateMetrics(dataset, len(discovered), len(posts), sourceCounts, errorCount, time.Since(start), name)

	s.notify(models.NewInfo("New problems discovered",
		fmt.Sprintf("%d new problems found, %d problems in total.", len(discovered), len(dataset))))

	logrus.Infof("Discovery run completed in %v", time.Since(start))
	return len(discovered), nil
}

func (s *Service) enabledSources() []sources.Source {
	var enabled []sources.Source
	for _, source := range s.sources {
		if source.IsEnabled() {
			enabled = append(enabled, source)
		}
	}
	return enabled
}

// fetchAll fetches from every enabled source concurrently
func (s *Service) fetchAll(ctx context.Context, window time.Duration) ([]models.Post, map[string]int, int) {
	enabled := s.enabledSources()

	var wg sync.WaitGroup
	resultsChan := make(chan sourceResult, len(enabled))
	errorsChan := make(chan error, len(enabled))

	logrus.Infof("Searching %d sources for problems in the last %v", len(enabled), window)

	for _, source := range enabled {
		wg.Add(1)
		go func(src sources.Source) {
			defer wg.Done()

			posts, err := src.FetchPosts(ctx, s.config.Keywords, window)
			if err != nil {
				logrus.Errorf("Error fetching from %s: %v", src.GetName(), err)
				errorsChan <- err
				return
			}

			logrus.Infof("Found %d posts from %s", len(posts), src.GetName())
			resultsChan <- sourceResult{name: src.GetName(), posts: posts}
		}(source)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
		close(errorsChan)
	}()

	counts := make(map[string]int)
	seen := make(map[string]bool)
	var posts []models.Post
	for result := range resultsChan {
		counts[result.name] = len(result.posts)
		for _, post := range result.posts {
			if !seen[post.ID] {
				seen[post.ID] = true
				posts = append(posts, post)
			}
		}
	}

	errorCount := 0
	for range errorsChan {
		errorCount++
	}

	return posts, counts, errorCount
}

// merge combines discovered problems with the current dataset, newest first.
// A rediscovered problem replaces the stored one but keeps the time it was
// first discovered.
func (s *Service) merge(discovered []models.Problem, now time.Time) []models.Problem {
	cutoff := now.Add(-retention)
	byID := make(map[string]models.Problem)

	for _, p := range s.catalog.GetAll() {
		if !p.DateDiscovered.Before(cutoff) {
			byID[p.ID] = p
		}
	}
	for _, p := range discovered {
		if existing, ok := byID[p.ID]; ok {
			p.DateDiscovered = existing.DateDiscovered
		}
		byID[p.ID] = p
	}

	merged := make([]models.Problem, 0, len(byID))
	for _, p := range byID {
		merged = append(merged, p)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].DateDiscovered.Equal(merged[j].DateDiscovered) {
			return merged[i].ID < merged[j].ID
		}
		return merged[i].DateDiscovered.After(merged[j].DateDiscovered)
	})
	return merged
}

func (s *Service) storeSnapshot(name string, snapshot *problems.Snapshot) error {
	if err := problems.SaveSnapshot(s.storage, name, snapshot); err != nil {
		return fmt.Errorf("failed to store %s: %w", name, err)
	}
	if err := problems.SaveSnapshot(s.storage, problems.LatestSnapshot, snapshot); err != nil {
		return fmt.Errorf("failed to store %s: %w", problems.LatestSnapshot, err)
	}
	return nil
}

func (s *Service) updateMetrics(dataset []models.Problem, newCount, postCount int, sourceCounts map[string]int,
	errorCount int, duration time.Duration, snapshot string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.PostsFetched = postCount
	s.metrics.LastRun = s.now()
	s.metrics.LastRunDuration = duration.String()
	s.metrics.ErrorCount = errorCount
	s.metrics.SourceMetrics = sourceCounts
	s.metrics.NewProblems = newCount

	if dataset == nil {
		return
	}

	s.metrics.TotalProblems = len(dataset)
	s.metrics.LastSnapshot = snapshot
	s.metrics.CategoryBreakdown = make(map[string]int)
	s.metrics.SentimentBreakdown = make(map[string]int)
	for _, p := range dataset {
		s.metrics.CategoryBreakdown[string(p.Category)]++
		s.metrics.SentimentBreakdown[string(p.Sentiment)]++
	}
}

func (s *Service) notify(n *models.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(n); err != nil {
		logrus.Errorf("Failed to emit notification %q: %v", n.Title, err)
	}
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}
