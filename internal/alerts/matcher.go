package alerts

import (
	"fmt"
	"strings"
	"time"

	"github.com/problemradar/problem-radar/internal/models"
	"github.com/problemradar/problem-radar/internal/notifications"
	"github.com/problemradar/problem-radar/internal/query"
	"github.com/sirupsen/logrus"
)

// Matcher evaluates alerts against problems using the query engine. A problem
// matches when any alert keyword passes the text filter and the alert's
// optional category and platform agree.
type Matcher struct {
	engine query.Engine
}

// NewMatcher creates a matcher with the given engine
func NewMatcher(engine query.Engine) *Matcher {
	return &Matcher{engine: engine}
}

// Match returns the problems matching alert, newest first
func (m *Matcher) Match(alert models.Alert, problems []models.Problem) []models.Problem {
	spec := query.FilterSpec{}
	if alert.Category != nil {
		spec.Category = *alert.Category
	}
	if alert.Platform != nil {
		spec.Platform = *alert.Platform
	}

	matched := make(map[string]bool)
	for _, keyword := range alert.Keywords {
		spec.Text = keyword
		for _, p := range m.engine.Run(problems, spec, query.SortNewest) {
			matched[p.ID] = true
		}
	}

	union := make([]models.Problem, 0, len(matched))
	for _, p := range problems {
		if matched[p.ID] {
			union = append(union, p)
		}
	}
	return m.engine.Run(union, query.FilterSpec{}, query.SortNewest)
}

// RefreshMatches recomputes matches_today for every alert: the number of
// matching problems discovered on the same UTC day as now.
func (m *Matcher) RefreshMatches(service *Service, problems []models.Problem, now time.Time) {
	today := now.UTC().Format("2006-01-02")
	counts := make(map[string]int)

	for _, alert := range service.List() {
		count := 0
		for _, p := range m.Match(alert, problems) {
			if p.DateDiscovered.UTC().Format("2006-01-02") == today {
				count++
			}
		}
		counts[alert.ID] = count
	}

	service.setMatches(counts)
}

// Watermark returns the time after which a problem is new to an alert
type Watermark func(alert models.Alert) time.Time

// Since is a Watermark with the same time for every alert
func Since(t time.Time) Watermark {
	return func(models.Alert) time.Time { return t }
}

// DeliveryError lists the alerts whose digests could not be delivered
type DeliveryError struct {
	AlertIDs []string
	Names    []string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to send digests for alerts: %s", strings.Join(e.Names, ", "))
}

// Digests builds one digest per active alert of the given frequency with the
// matching problems discovered after the alert's watermark. Alerts without
// new matches are skipped.
func (m *Matcher) Digests(service *Service, problems []models.Problem, frequency models.Frequency, since Watermark, now time.Time) []models.Digest {
	var digests []models.Digest

	for _, alert := range service.List() {
		if !alert.IsActive || alert.Frequency != frequency {
			continue
		}

		mark := since(alert)
		var fresh []models.Problem
		for _, p := range m.Match(alert, problems) {
			if p.DateDiscovered.After(mark) {
				fresh = append(fresh, p)
			}
		}
		if len(fresh) == 0 {
			continue
		}

		digests = append(digests, models.Digest{
			Alert:       alert,
			Problems:    fresh,
			GeneratedAt: now,
			Period:      frequency,
		})
	}

	return digests
}

// SendDigests builds and delivers the digests of one frequency, returning how
// many were sent. Failed deliveries are reported as a *DeliveryError.
func (m *Matcher) SendDigests(service *Service, problems []models.Problem, notifier notifications.NotificationInterface, frequency models.Frequency, since Watermark, now time.Time) (int, error) {
	digests := m.Digests(service, problems, frequency, since, now)

	var failed DeliveryError
	sent := 0
	for i := range digests {
		if err := notifier.SendDigest(&digests[i]); err != nil {
			logrus.Errorf("Failed to send %s digest for alert %q: %v", frequency, digests[i].Alert.Name, err)
			failed.AlertIDs = append(failed.AlertIDs, digests[i].Alert.ID)
			failed.Names = append(failed.Names, digests[i].Alert.Name)
			continue
		}
		sent++
	}

	logrus.Infof("Sent %d of %d %s digests", sent, len(digests), frequency)
	if len(failed.AlertIDs) > 0 {
		return sent, &failed
	}
	return sent, nil
}
