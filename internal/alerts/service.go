// Package alerts manages the keyword alerts of a dashboard session and matches
// them against the problem dataset.
package alerts

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/problemradar/problem-radar/internal/models"
	"github.com/problemradar/problem-radar/internal/notifications"
	"github.com/sirupsen/logrus"
)

// ErrAlertNotFound is returned when an operation names an unknown alert
var ErrAlertNotFound = errors.New("alert not found")

// ValidationError reports form input rejected before any state change
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Service owns one session's alert set
type Service struct {
	notifier notifications.NotificationInterface
	newID    func() string
	now      func() time.Time

	mu     sync.RWMutex
	alerts []models.Alert // newest first
}

// NewService creates an alert service seeded with alerts
func NewService(notifier notifications.NotificationInterface, seed []models.Alert) *Service {
	s := &Service{
		notifier: notifier,
		newID:    uuid.NewString,
		now:      time.Now,
		alerts:   make([]models.Alert, len(seed)),
	}
	copy(s.alerts, seed)
	return s
}

// List returns the alerts, newest first
func (s *Service) List() []models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Alert, len(s.alerts))
	copy(out, s.alerts)
	return out
}

// Get returns a single alert
func (s *Service) Get(id string) (models.Alert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.alerts[i], true
	}
	return models.Alert{}, false
}

// Create validates draft and inserts a new active alert at the front of the
// set. On validation failure nothing is inserted and an error notification
// is emitted.
func (s *Service) Create(draft models.AlertDraft) (models.Alert, error) {
	alert, err := s.build(draft)
	if err != nil {
		s.notify(models.NewError("Error", validationMessage(err)))
		return models.Alert{}, err
	}

	s.mu.Lock()
	s.alerts = append([]models.Alert{alert}, s.alerts...)
	s.mu.Unlock()

	logrus.Infof("Created alert %s (%q) watching %v", alert.ID, alert.Name, alert.Keywords)
	s.notify(models.NewInfo("Alert created", "Your new alert is now active and monitoring for problems."))
	return alert, nil
}

func (s *Service) build(draft models.AlertDraft) (models.Alert, error) {
	name := strings.TrimSpace(draft.Name)
	keywords := ParseKeywords(draft.Keywords)
	if name == "" {
		return models.Alert{}, &ValidationError{Field: "name", Message: "alert name is required"}
	}
	if len(keywords) == 0 {
		return models.Alert{}, &ValidationError{Field: "keywords", Message: "at least one keyword is required"}
	}

	alert := models.Alert{
		ID:        s.newID(),
		Name:      name,
		Keywords:  keywords,
		Frequency: models.FrequencyDaily,
		IsActive:  true,
		CreatedAt: s.now().UTC(),
	}

	if raw := strings.TrimSpace(draft.Category); raw != "" {
		category, err := models.ParseCategory(raw)
		if err != nil {
			return models.Alert{}, &ValidationError{Field: "category", Message: err.Error()}
		}
		alert.Category = &category
	}
	if raw := strings.TrimSpace(draft.Platform); raw != "" {
		platform, err := models.ParsePlatform(raw)
		if err != nil {
			return models.Alert{}, &ValidationError{Field: "platform", Message: err.Error()}
		}
		alert.Platform = &platform
	}
	if raw := strings.TrimSpace(draft.Frequency); raw != "" {
		frequency, err := models.ParseFrequency(raw)
		if err != nil {
			return models.Alert{}, &ValidationError{Field: "frequency", Message: err.Error()}
		}
		alert.Frequency = frequency
	}

	return alert, nil
}

// Toggle flips whether an alert is active
func (s *Service) Toggle(id string) (models.Alert, error) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return models.Alert{}, fmt.Errorf("%w: %s", ErrAlertNotFound, id)
	}
	s.alerts[i].IsActive = !s.alerts[i].IsActive
	alert := s.alerts[i]
	s.mu.Unlock()

	if alert.IsActive {
		s.notify(models.NewInfo("Alert enabled", "This alert is now monitoring for problems."))
	} else {
		s.notify(models.NewInfo("Alert disabled", "This alert will stop monitoring."))
	}
	return alert, nil
}

// Delete permanently removes an alert
func (s *Service) Delete(id string) error {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlertNotFound, id)
	}
	s.alerts = append(s.alerts[:i:i], s.alerts[i+1:]...)
	s.mu.Unlock()

	logrus.Infof("Deleted alert %s", id)
	s.notify(models.NewInfo("Alert deleted", "The alert has been permanently removed."))
	return nil
}

// setMatches replaces matches_today for every alert found in counts
func (s *Service) setMatches(counts map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.alerts {
		if count, ok := counts[s.alerts[i].ID]; ok {
			s.alerts[i].MatchesToday = count
		}
	}
}

// indexOf must be called with the lock held
func (s *Service) indexOf(id string) int {
	for i := range s.alerts {
		if s.alerts[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Service) notify(n *models.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(n); err != nil {
		logrus.Errorf("Failed to emit notification %q: %v", n.Title, err)
	}
}

// ParseKeywords splits comma separated keyword text, trimming each element and
// dropping empty ones
func ParseKeywords(text string) []string {
	var keywords []string
	for _, keyword := range strings.Split(text, ",") {
		if keyword = strings.TrimSpace(keyword); keyword != "" {
			keywords = append(keywords, keyword)
		}
	}
	return keywords
}

func validationMessage(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) && (verr.Field == "name" || verr.Field == "keywords") {
		return "Please fill in the alert name and keywords"
	}
	return err.Error()
}
