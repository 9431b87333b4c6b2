package models

import "time"

// Problem represents a business pain point discovered on a community platform
type Problem struct {
	ID                string            `json:"id"`
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	SourcePlatform    Platform          `json:"source_platform"`
	SourceName        string            `json:"source_name"` // e.g. "r/Entrepreneur", "HackerNews"
	Category          Category          `json:"category"`
	UrgencyScore      int               `json:"urgency_score"` // 0-100
	Sentiment         Sentiment         `json:"sentiment"`
	BusinessPotential int               `json:"business_potential"` // 0-100
	Keywords          []string          `json:"keywords"`
	Upvotes           int               `json:"upvotes"`
	Engagement        EngagementMetrics `json:"engagement_metrics"`
	DateDiscovered    time.Time         `json:"date_discovered"`
	PostedAt          *time.Time        `json:"posted_at,omitempty"` // creation time of the source post
	SourceURL         string            `json:"source_url"`
	AIAnalysis        AIAnalysis        `json:"ai_analysis"`
}

// EngagementMetrics holds the community reaction counters of a problem
type EngagementMetrics struct {
	Comments int `json:"comments"`
	Shares   int `json:"shares"`
	Views    int `json:"views"`
}

// AIAnalysis is display-only commentary attached to a problem
type AIAnalysis struct {
	UrgencyReasoning   string   `json:"urgency_reasoning"`
	MarketOpportunity  string   `json:"market_opportunity"`
	TargetAudience     string   `json:"target_audience"`
	PotentialSolutions []string `json:"potential_solutions"`
}

// CategoryCount pairs a category name with a number of problems
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// DateCount pairs a calendar date (YYYY-MM-DD) with a number of problems
type DateCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// DashboardMetrics is the precomputed aggregate shown on the dashboard
type DashboardMetrics struct {
	NewProblemsToday     int             `json:"new_problems_today"`
	HighUrgencyIssues    int             `json:"high_urgency_issues"`
	TrendingCategories   []CategoryCount `json:"trending_categories"`
	ProblemTrends        []DateCount     `json:"problem_trends"` // chronological
	CategoryDistribution []CategoryCount `json:"category_distribution"`
}

// Post is a raw item fetched from a source before it is scored into a Problem
type Post struct {
	ID         string    `json:"id"`
	Platform   Platform  `json:"platform"`
	SourceName string    `json:"source_name"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Author     string    `json:"author"`
	URL        string    `json:"url"`
	CreatedAt  time.Time `json:"created_at"`
	Score      int       `json:"score"` // upvotes, points, etc.
	Comments   int       `json:"comments"`
	Views      int       `json:"views"`
	Keywords   []string  `json:"keywords"` // watch keywords that matched
}

// Severity of a user-facing notification
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityError Severity = "error"
)

// Notification is an ephemeral user-facing event (a toast)
type Notification struct {
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
}

// NewInfo creates an informational notification
func NewInfo(title, message string) *Notification {
	return &Notification{Title: title, Message: message, Severity: SeverityInfo, CreatedAt: time.Now()}
}

// NewError creates an error notification
func NewError(title, message string) *Notification {
	return &Notification{Title: title, Message: message, Severity: SeverityError, CreatedAt: time.Now()}
}

// Digest is a batch of problems matching an alert, sent to the digest channels
type Digest struct {
	Alert       Alert     `json:"alert"`
	Problems    []Problem `json:"problems"`
	GeneratedAt time.Time `json:"generated_at"`
	Period      Frequency `json:"period"`
}
