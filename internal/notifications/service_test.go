package notifications

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/problemradar/problem-radar/internal/config"
	"github.com/problemradar/problem-radar/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDigest(n int) *models.Digest {
	digest := &models.Digest{
		Alert: models.Alert{
			ID:        "a1",
			Name:      "Email Marketing Issues",
			Keywords:  []string{"email marketing", "newsletter"},
			Frequency: models.FrequencyDaily,
			IsActive:  true,
		},
		GeneratedAt: time.Date(2024, 1, 22, 9, 0, 0, 0, time.UTC),
		Period:      models.FrequencyDaily,
	}
	for i := 0; i < n; i++ {
		digest.Problems = append(digest.Problems, models.Problem{
			ID:             string(rune('a' + i)),
			Title:          "Email marketing platforms are too expensive",
			Description:    "Client email costs are killing our margins.",
			SourceName:     "r/marketing",
			Category:       models.CategoryMarketing,
			UrgencyScore:   90,
			SourceURL:      "https://reddit.com/r/marketing/example3",
			DateDiscovered: time.Date(2024, 1, 20, 9, 45, 0, 0, time.UTC),
		})
	}
	return digest
}

func TestService_NotifyRecordsFeed(t *testing.T) {
	service := NewService(&config.Config{})

	require.NoError(t, service.Notify(models.NewInfo("Alert created", "Your new alert is now active")))
	require.NoError(t, service.Notify(models.NewError("Error", "Please fill in the alert name and keywords")))

	recent := service.Recent(10)
	require.Len(t, recent, 2)
	assert.Equal(t, "Error", recent[0].Title)
	assert.Equal(t, models.SeverityError, recent[0].Severity)
	assert.Equal(t, "Alert created", recent[1].Title)

	assert.Error(t, service.Notify(nil))
}

func TestFeed_DropsOldest(t *testing.T) {
	feed := NewFeed(2)
	feed.Push(models.Notification{Title: "one"})
	feed.Push(models.Notification{Title: "two"})
	feed.Push(models.Notification{Title: "three"})

	recent := feed.Recent(0)
	require.Len(t, recent, 2)
	assert.Equal(t, "three", recent[0].Title)
	assert.Equal(t, "two", recent[1].Title)
	assert.Len(t, feed.Recent(1), 1)
}

func TestService_SendDigestToTeams(t *testing.T) {
	var received TeamsMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	service := NewService(&config.Config{TeamsWebhookURL: server.URL})

	err := service.SendDigest(sampleDigest(7))
	require.NoError(t, err)

	assert.Equal(t, "MessageCard", received.Type)
	assert.Equal(t, "Problem Radar - Email Marketing Issues", received.Title)
	assert.Equal(t, "7 new problems match your daily alert", received.Text)
	require.Len(t, received.Sections, 2)
	assert.Equal(t, "Matching Problems", received.Sections[1].ActivityTitle)
}

func TestService_SendDigestReportsChannelErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	service := NewService(&config.Config{TeamsWebhookURL: server.URL})

	err := service.SendDigest(sampleDigest(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Teams")
}

func TestService_SendDigestSkipsEmpty(t *testing.T) {
	service := NewService(&config.Config{TeamsWebhookURL: "http://127.0.0.1:1"})
	assert.NoError(t, service.SendDigest(sampleDigest(0)))
}

func TestBuildEmailBodies(t *testing.T) {
	digest := sampleDigest(12)

	html, err := buildEmailHTML(digest)
	require.NoError(t, err)
	assert.Contains(t, html, "Email Marketing Issues")
	assert.Contains(t, html, "email marketing, newsletter")

	text := buildEmailText(digest)
	assert.Contains(t, text, "1. Email marketing platforms are too expensive")
	assert.Contains(t, text, "... and 2 more")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
}
