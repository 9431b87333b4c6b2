package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/problemradar/problem-radar/internal/alerts"
	"github.com/problemradar/problem-radar/internal/config"
	"github.com/problemradar/problem-radar/internal/models"
	"github.com/problemradar/problem-radar/internal/notifications"
	"github.com/problemradar/problem-radar/internal/problems"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Digest schedules, cron expressions with seconds in UTC
const (
	InstantDigestSchedule = "0 */15 * * * *"
	DailyDigestSchedule   = "0 0 9 * * *"
	WeeklyDigestSchedule  = "0 0 9 * * MON"
)

// Discoverer runs a discovery pass
type Discoverer interface {
	Run(ctx context.Context) (int, error)
}

// Service handles scheduling of discovery runs and alert digests
type Service struct {
	config     *config.Config
	discovery  Discoverer
	alerts     *alerts.Service
	matcher    *alerts.Matcher
	repository problems.Repository
	notifier   notifications.NotificationInterface
	cron       *cron.Cron
	now        func() time.Time

	mu         sync.Mutex
	lastDigest map[models.Frequency]time.Time

	// watermarks of alerts whose last digest failed
	undelivered map[string]time.Time
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, discovery Discoverer, alertService *alerts.Service, matcher *alerts.Matcher,
	repository problems.Repository, notifier notifications.NotificationInterface) *Service {
	return &Service{
		config:      cfg,
		discovery:   discovery,
		alerts:      alertService,
		matcher:     matcher,
		repository:  repository,
		notifier:    notifier,
		cron:        cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC)),
		now:         time.Now,
		lastDigest:  make(map[models.Frequency]time.Time),
		undelivered: make(map[string]time.Time),
	}
}

// Start registers the jobs and begins scheduling
func (s *Service) Start() error {
	if s.config.DiscoveryEnabled {
		_, err := s.cron.AddFunc(s.config.DiscoverySchedule, func() {
			logrus.Info("Starting scheduled discovery run")
			if err := s.RunDiscovery(context.Background()); err != nil {
				logrus.Errorf("Scheduled discovery run failed: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid discovery schedule %q: %w", s.config.DiscoverySchedule, err)
		}
	}

	digests := []struct {
		schedule  string
		frequency models.Frequency
	}{
		{InstantDigestSchedule, models.FrequencyInstant},
		{DailyDigestSchedule, models.FrequencyDaily},
		{WeeklyDigestSchedule, models.FrequencyWeekly},
	}
	for _, d := range digests {
		frequency := d.frequency
		if _, err := s.cron.AddFunc(d.schedule, func() {
			if err := s.RunDigests(frequency); err != nil {
				logrus.Errorf("Scheduled %s digests failed: %v", frequency, err)
			}
		}); err != nil {
			return err
		}
	}

	// without discovery the dataset never changes, so the seeded match
	// counts are left as they are
	if s.config.DiscoveryEnabled {
		s.RefreshMatches()
	}

	s.cron.Start()
	if s.config.DiscoveryEnabled {
		logrus.Infof("Scheduler started with discovery schedule %q plus alert digests", s.config.DiscoverySchedule)
	} else {
		logrus.Info("Scheduler started with alert digests only (discovery disabled)")
	}
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		logrus.Info("Scheduler stopped")
	}
}

// RunDiscovery runs discovery and refreshes alert match counts
func (s *Service) RunDiscovery(ctx context.Context) error {
	found, err := s.discovery.Run(ctx)
	if err != nil {
		return err
	}
	logrus.Infof("Discovery found %d new problems", found)
	s.RefreshMatches()
	return nil
}

// RefreshMatches recomputes matches_today for every alert
func (s *Service) RefreshMatches() {
	s.matcher.RefreshMatches(s.alerts, s.repository.GetAll(), s.now())
}

// RunDigests sends the digests of one frequency covering the problems found
// since the previous digest of that frequency. An alert whose digest fails
// keeps its old watermark so the next run retries the same problems.
func (s *Service) RunDigests(frequency models.Frequency) error {
	now := s.now()

	s.mu.Lock()
	last, ok := s.lastDigest[frequency]
	if !ok {
		last = now.Add(-period(frequency))
	}
	undelivered := make(map[string]time.Time, len(s.undelivered))
	for id, mark := range s.undelivered {
		undelivered[id] = mark
	}
	s.mu.Unlock()

	since := func(alert models.Alert) time.Time {
		if mark, ok := undelivered[alert.ID]; ok {
			return mark
		}
		return last
	}

	_, err := s.matcher.SendDigests(s.alerts, s.repository.GetAll(), s.notifier, frequency, since, now)

	failed := make(map[string]bool)
	var delivery *alerts.DeliveryError
	if errors.As(err, &delivery) {
		for _, id := range delivery.AlertIDs {
			failed[id] = true
		}
	} else if err != nil {
		// nothing is known to be delivered
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastDigest[frequency] = now
	for _, alert := range s.alerts.List() {
		if alert.Frequency != frequency {
			continue
		}
		if failed[alert.ID] {
			if _, ok := s.undelivered[alert.ID]; !ok {
				s.undelivered[alert.ID] = since(alert)
			}
		} else {
			delete(s.undelivered, alert.ID)
		}
	}
	return err
}

func period(frequency models.Frequency) time.Duration {
	switch frequency {
	case models.FrequencyInstant:
		return 15 * time.Minute
	case models.FrequencyWeekly:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}
