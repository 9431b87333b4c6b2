package discovery

import (
	"strings"
	"time"

	"github.com/problemradar/problem-radar/internal/models"
)

var painIndicators = []string{
	"struggling", "frustrated", "frustrating", "too expensive", "overpriced",
	"can't find", "cannot find", "looking for", "need a", "need something",
	"wish there was", "is there a", "alternative to", "hate", "annoying",
	"pain", "waste of time", "overwhelmed", "drowning", "too complex",
	"clunky", "doesn't work", "killing", "nightmare", "fed up",
}

var positiveWords = []string{
	"good", "great", "excellent", "love", "awesome", "fantastic",
	"helpful", "works well", "solved", "success", "happy",
}

var negativeWords = []string{
	"bad", "terrible", "awful", "hate", "broken", "fail", "problem",
	"issue", "frustrat", "expensive", "overpriced", "struggl", "annoying",
	"clunky", "overwhelm", "drowning", "waste",
}

var paymentIndicators = []string{
	"pay", "$", "per month", "/month", "subscription", "pricing",
	"expensive", "budget", "would buy", "worth it", "per user",
}

var marketIndicators = []string{
	"small business", "startup", "agency", "agencies", "team",
	"freelancer", "clients", "customers", "our company", "everyone",
}

var categoryTerms = map[models.Category][]string{
	models.CategoryBusiness: {
		"crm", "customer support", "small business", "sales", "operations",
		"hiring", "clients", "inventory",
	},
	models.CategoryTechnical: {
		"api", "database", "deploy", "hosting", "server", "integration",
		"bug", "developer", "code",
	},
	models.CategoryMarketing: {
		"marketing", "email marketing", "seo", "social media",
		"advertising", "newsletter", "leads", "campaign",
	},
	models.CategoryProductivity: {
		"project management", "time tracking", "tasks", "deadlines",
		"calendar", "scheduling", "notes", "workflow",
	},
	models.CategoryFinancial: {
		"invoice", "invoicing", "accounting", "bookkeeping", "taxes",
		"payroll", "expenses", "budgeting",
	},
}

const (
	maxKeywords    = 8
	maxDescription = 1000
)

func content(post models.Post) string {
	return strings.ToLower(post.Title + " " + post.Body)
}

func countIndicators(text string, indicators []string) int {
	count := 0
	for _, indicator := range indicators {
		if strings.Contains(text, indicator) {
			count++
		}
	}
	return count
}

func isQuestion(post models.Post) bool {
	title := strings.ToLower(strings.TrimSpace(post.Title))
	if strings.Contains(title, "?") {
		return true
	}
	for _, prefix := range []string{"how ", "why ", "what ", "is there ", "are there ", "anyone ", "does anyone "} {
		if strings.HasPrefix(title, prefix) {
			return true
		}
	}
	return false
}

// isProblemPost keeps posts that describe a pain point: an explicit pain
// indicator, or a question asked in a negative tone
func isProblemPost(post models.Post) bool {
	text := content(post)
	if countIndicators(text, painIndicators) > 0 {
		return true
	}
	return isQuestion(post) && analyzeSentiment(text) == models.SentimentNegative
}

func analyzeSentiment(text string) models.Sentiment {
	text = strings.ToLower(text)
	positiveCount := countIndicators(text, positiveWords)
	negativeCount := countIndicators(text, negativeWords)

	if positiveCount > negativeCount {
		return models.SentimentPositive
	} else if negativeCount > positiveCount {
		return models.SentimentNegative
	}
	return models.SentimentNeutral
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// urgencyScore weighs pain indicators, tone and how much the post is discussed
func urgencyScore(post models.Post, sentiment models.Sentiment) int {
	score := 40 + 8*minInt(countIndicators(content(post), painIndicators), 5)
	if sentiment == models.SentimentNegative {
		score += 10
	}
	score += minInt(post.Comments/5, 20)
	score += minInt(post.Score/50, 10)
	return clamp(score)
}

// businessPotential weighs willingness to pay, market size and reach
func businessPotential(post models.Post) int {
	text := content(post)
	score := 40
	score += 10 * minInt(countIndicators(text, paymentIndicators), 3)
	score += 5 * minInt(countIndicators(text, marketIndicators), 3)
	score += minInt((post.Score+post.Comments)/40, 15)
	return clamp(score)
}

// categorize picks the category with the most term hits; ties go to the
// earlier category and posts without hits are Business
func categorize(post models.Post) models.Category {
	text := content(post)
	best, bestCount := models.CategoryBusiness, 0
	for _, category := range models.Categories {
		if count := countIndicators(text, categoryTerms[category]); count > bestCount {
			best, bestCount = category, count
		}
	}
	return best
}

// extractKeywords lists the matched watch keywords followed by the category
// terms found in the post
func extractKeywords(post models.Post, category models.Category) []string {
	seen := make(map[string]bool)
	keywords := []string{}
	add := func(keyword string) {
		key := strings.ToLower(strings.TrimSpace(keyword))
		if key == "" || seen[key] || len(keywords) >= maxKeywords {
			return
		}
		seen[key] = true
		keywords = append(keywords, keyword)
	}

	for _, keyword := range post.Keywords {
		add(keyword)
	}
	text := content(post)
	for _, term := range categoryTerms[category] {
		if strings.Contains(text, term) {
			add(term)
		}
	}
	return keywords
}

// ScorePost turns a fetched post into a problem without AI analysis.
// discoveredAt stamps DateDiscovered; the post's own creation time is kept
// in PostedAt.
func ScorePost(post models.Post, discoveredAt time.Time) models.Problem {
	sentiment := analyzeSentiment(content(post))
	category := categorize(post)

	description := strings.TrimSpace(post.Body)
	if description == "" {
		description = post.Title
	}
	if runes := []rune(description); len(runes) > maxDescription {
		description = string(runes[:maxDescription]) + "..."
	}

	upvotes := post.Score
	if upvotes < 0 {
		upvotes = 0
	}

	return models.Problem{
		ID:                post.ID,
		Title:             post.Title,
		Description:       description,
		SourcePlatform:    post.Platform,
		SourceName:        post.SourceName,
		Category:          category,
		UrgencyScore:      urgencyScore(post, sentiment),
		Sentiment:         sentiment,
		BusinessPotential: businessPotential(post),
		Keywords:          extractKeywords(post, category),
		Upvotes:           upvotes,
		Engagement: models.EngagementMetrics{
			Comments: post.Comments,
			Views:    post.Views,
		},
		DateDiscovered: discoveredAt.UTC(),
		PostedAt:       postedAt(post),
		SourceURL:      post.URL,
	}
}

func postedAt(post models.Post) *time.Time {
	if post.CreatedAt.IsZero() {
		return nil
	}
	created := post.CreatedAt.UTC()
	return &created
}
