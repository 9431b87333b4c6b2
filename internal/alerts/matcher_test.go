package alerts

import (
	"errors"
	"testing"
	"time"

	"github.com/problemradar/problem-radar/internal/models"
	"github.com/problemradar/problem-radar/internal/problems"
	"github.com/problemradar/problem-radar/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func ids(list []models.Problem) []string {
	out := make([]string, 0, len(list))
	for _, p := range list {
		out = append(out, p.ID)
	}
	return out
}

func TestMatcher_Match(t *testing.T) {
	matcher := NewMatcher(query.DefaultEngine)
	fixtures := problems.Fixtures()
	marketing := models.CategoryMarketing
	hackerNews := models.PlatformHackerNews

	tests := []struct {
		name     string
		alert    models.Alert
		expected []string
	}{
		{
			name:     "Any keyword matches, newest first",
			alert:    models.Alert{Keywords: []string{"email", "crm"}},
			expected: []string{"1", "3", "5"},
		},
		{
			name:     "Category narrows matches",
			alert:    models.Alert{Keywords: []string{"email"}, Category: &marketing},
			expected: []string{"3"},
		},
		{
			name:     "Platform narrows matches",
			alert:    models.Alert{Keywords: []string{"email"}, Platform: &hackerNews},
			expected: []string{},
		},
		{
			name:     "No keyword matches",
			alert:    models.Alert{Keywords: []string{"blockchain"}},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ids(matcher.Match(tt.alert, fixtures)))
		})
	}
}

func TestMatcher_RefreshMatches(t *testing.T) {
	notifier := &MockNotificationService{}
	notifier.On("Notify", mock.Anything).Return(nil)
	service := newTestService(notifier)
	_, err := service.Create(models.AlertDraft{Name: "Email", Keywords: "email"})
	require.NoError(t, err)

	matcher := NewMatcher(query.DefaultEngine)
	matcher.RefreshMatches(service, problems.Fixtures(), time.Date(2024, 1, 20, 18, 0, 0, 0, time.UTC))

	for _, alert := range service.List() {
		switch alert.ID {
		case "generated-1":
			assert.Equal(t, 1, alert.MatchesToday, "problem 3 was discovered on 2024-01-20")
		default:
			assert.Zero(t, alert.MatchesToday, alert.Name)
		}
	}
}

func TestMatcher_Digests(t *testing.T) {
	notifier := &MockNotificationService{}
	notifier.On("Notify", mock.Anything).Return(nil)
	service := newTestService(notifier)
	_, err := service.Create(models.AlertDraft{Name: "Support", Keywords: "support, email", Frequency: "daily"})
	require.NoError(t, err)
	_, err = service.Create(models.AlertDraft{Name: "Weekly CRM", Keywords: "crm", Frequency: "weekly"})
	require.NoError(t, err)

	matcher := NewMatcher(query.DefaultEngine)
	now := time.Date(2024, 1, 22, 9, 0, 0, 0, time.UTC)
	since := time.Date(2024, 1, 19, 0, 0, 0, 0, time.UTC)

	digests := matcher.Digests(service, problems.Fixtures(), models.FrequencyDaily, Since(since), now)
	require.Len(t, digests, 1)
	assert.Equal(t, "Support", digests[0].Alert.Name)
	assert.Equal(t, []string{"3"}, ids(digests[0].Problems))
	assert.Equal(t, models.FrequencyDaily, digests[0].Period)
	assert.Equal(t, now, digests[0].GeneratedAt)

	_, err = service.Toggle(digests[0].Alert.ID)
	require.NoError(t, err)
	assert.Empty(t, matcher.Digests(service, problems.Fixtures(), models.FrequencyDaily, Since(since), now))
}

func TestMatcher_SendDigests(t *testing.T) {
	notifier := &MockNotificationService{}
	notifier.On("Notify", mock.Anything).Return(nil)
	notifier.On("SendDigest", mock.MatchedBy(func(d *models.Digest) bool { return d.Alert.Name == "Good" })).Return(nil).Once()
	notifier.On("SendDigest", mock.MatchedBy(func(d *models.Digest) bool { return d.Alert.Name == "Bad" })).Return(errors.New("smtp down")).Once()

	service := NewService(notifier, nil)
	_, err := service.Create(models.AlertDraft{Name: "Good", Keywords: "crm"})
	require.NoError(t, err)
	_, err = service.Create(models.AlertDraft{Name: "Bad", Keywords: "email"})
	require.NoError(t, err)

	matcher := NewMatcher(query.DefaultEngine)
	sent, err := matcher.SendDigests(service, problems.Fixtures(), notifier, models.FrequencyDaily, Since(time.Time{}), time.Now())

	assert.Equal(t, 1, sent)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bad")

	var delivery *DeliveryError
	require.ErrorAs(t, err, &delivery)
	assert.Equal(t, []string{"Bad"}, delivery.Names)
	require.Len(t, delivery.AlertIDs, 1)
	notifier.AssertExpectations(t)
}
