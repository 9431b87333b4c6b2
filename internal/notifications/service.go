package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/problemradar/problem-radar/internal/config"
	"github.com/problemradar/problem-radar/internal/models"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

const feedSize = 100

// Service emits user notifications and delivers alert digests via Teams and email
type Service struct {
	config *config.Config
	client *resty.Client
	feed   *Feed
	dialer *gomail.Dialer
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message
type TeamsMessage struct {
	Type     string         `json:"@type"`
	Context  string         `json:"@context"`
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	Sections []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle    string      `json:"activityTitle,omitempty"`
	ActivitySubtitle string      `json:"activitySubtitle,omitempty"`
	ActivityText     string      `json:"activityText,omitempty"`
	Facts            []TeamsFact `json:"facts,omitempty"`
	Markdown         bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	s := &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
		feed:   NewFeed(feedSize),
	}
	if cfg.SMTPHost != "" {
		s.dialer = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	}
	return s
}

// Notify records a user-facing notification in the feed
func (s *Service) Notify(n *models.Notification) error {
	if n == nil {
		return fmt.Errorf("notification is nil")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	entry := logrus.WithFields(logrus.Fields{
		"title":    n.Title,
		"severity": n.Severity,
	})
	if n.Severity == models.SeverityError {
		entry.Warn(n.Message)
	} else {
		entry.Info(n.Message)
	}

	s.feed.Push(*n)
	return nil
}

// Recent returns up to limit notifications, newest first
func (s *Service) Recent(limit int) []models.Notification {
	return s.feed.Recent(limit)
}

// SendDigest sends alert matches via configured notification channels
func (s *Service) SendDigest(digest *models.Digest) error {
	if len(digest.Problems) == 0 {
		logrus.Debugf("Skipping empty digest for alert %s", digest.Alert.Name)
		return nil
	}

	var errors []string

	if s.config.TeamsWebhookURL != "" {
		if err := s.sendToTeams(digest); err != nil {
			logrus.Errorf("Failed to send Teams digest: %v", err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Infof("Sent digest for alert %q to Teams", digest.Alert.Name)
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(digest); err != nil {
			logrus.Errorf("Failed to send email digest: %v", err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Infof("Sent digest for alert %q via email", digest.Alert.Name)
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (s *Service) sendToTeams(digest *models.Digest) error {
	message := s.buildTeamsMessage(digest)

	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func (s *Service) buildTeamsMessage(digest *models.Digest) *TeamsMessage {
	message := &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   fmt.Sprintf("Problem Radar - %s", digest.Alert.Name),
		Text:    fmt.Sprintf("%d new problems match your %s alert", len(digest.Problems), digest.Period),
	}

	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Alert",
		Facts: []TeamsFact{
			{Name: "Keywords", Value: strings.Join(digest.Alert.Keywords, ", ")},
			{Name: "Matches", Value: fmt.Sprintf("%d", len(digest.Problems))},
			{Name: "Generated", Value: digest.GeneratedAt.Format("2006-01-02 15:04:05 UTC")},
		},
		Markdown: true,
	})

	limit := 5
	if len(digest.Problems) < limit {
		limit = len(digest.Problems)
	}

	var lines []string
	for _, problem := range digest.Problems[:limit] {
		lines = append(lines, fmt.Sprintf("**[%s](%s)** - %s, urgency %d%% (%s)",
			problem.Title, problem.SourceURL, problem.SourceName, problem.UrgencyScore,
			problem.DateDiscovered.Format("Jan 2")))
	}

	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Matching Problems",
		ActivityText:  strings.Join(lines, "\n\n"),
		Markdown:      true,
	})

	return message
}

func (s *Service) sendEmail(digest *models.Digest) error {
	if s.dialer == nil {
		return fmt.Errorf("SMTP is not configured")
	}

	subject := fmt.Sprintf("Problem Radar - %s (%d new problems)", digest.Alert.Name, len(digest.Problems))

	htmlBody, err := buildEmailHTML(digest)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", buildEmailText(digest))
	m.AddAlternative("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

var emailTemplate = template.Must(template.New("digest").Funcs(template.FuncMap{
	"truncate": truncate,
	"join":     strings.Join,
}).Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Problem Radar Digest</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #4f46e5; color: white; padding: 20px; border-radius: 5px; }
        .problem { border-left: 4px solid #4f46e5; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        .problem-title { font-weight: bold; margin-bottom: 5px; }
        .problem-meta { color: #666; font-size: 0.9em; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.Alert.Name}}</h1>
        <p>{{.Period}} digest generated on {{.GeneratedAt.Format "January 2, 2006 at 3:04 PM UTC"}}</p>
        <p>Keywords: {{join .Alert.Keywords ", "}}</p>
    </div>

    {{range $index, $problem := .Problems}}
        {{if lt $index 10}}
        <div class="problem">
            <div class="problem-title">
                <a href="{{$problem.SourceURL}}" target="_blank">{{$problem.Title}}</a>
            </div>
            <div class="problem-meta">
                {{$problem.SourceName}} | {{$problem.Category}} | Urgency {{$problem.UrgencyScore}}% | Potential {{$problem.BusinessPotential}}%
            </div>
            <p>{{truncate $problem.Description 200}}</p>
        </div>
        {{end}}
    {{end}}

    <hr>
    <p><small>You receive this digest because the alert is active. Manage alerts from your dashboard.</small></p>
</body>
</html>
`))

func buildEmailHTML(digest *models.Digest) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, digest); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildEmailText(digest *models.Digest) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("Problem Radar - %s\n", digest.Alert.Name))
	text.WriteString(fmt.Sprintf("Generated: %s\n", digest.GeneratedAt.Format("2006-01-02 15:04:05 UTC")))
	text.WriteString(fmt.Sprintf("Keywords: %s\n\n", strings.Join(digest.Alert.Keywords, ", ")))

	limit := 10
	if len(digest.Problems) < limit {
		limit = len(digest.Problems)
	}

	for i, problem := range digest.Problems[:limit] {
		text.WriteString(fmt.Sprintf("%d. %s\n", i+1, problem.Title))
		text.WriteString(fmt.Sprintf("   Source: %s | Category: %s | Urgency: %d%%\n",
			problem.SourceName, problem.Category, problem.UrgencyScore))
		text.WriteString(fmt.Sprintf("   URL: %s\n", problem.SourceURL))
		text.WriteString(fmt.Sprintf("   %s\n\n", truncate(problem.Description, 200)))
	}

	if len(digest.Problems) > limit {
		text.WriteString(fmt.Sprintf("... and %d more\n", len(digest.Problems)-limit))
	}

	return text.String()
}

func truncate(s string, length int) string {
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}
	return string(runes[:length]) + "..."
}
