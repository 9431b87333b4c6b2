package problems

import (
	"time"

	"github.com/problemradar/problem-radar/internal/models"
)

func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// Fixtures returns the seed dataset served when no snapshot is available
func Fixtures() []models.Problem {
	return []models.Problem{
		{
			ID:                "1",
			Title:             "Struggling to find affordable CRM for small business",
			Description:       "I run a small consulting business with 5 employees and we're drowning in spreadsheets. Every CRM I've looked at is either too expensive ($50+ per user/month) or way too complex for our needs. We just need basic contact management, deal tracking, and simple automation. Anyone found something that works for small teams without breaking the bank?",
			SourcePlatform:    models.PlatformReddit,
			SourceName:        "r/smallbusiness",
			Category:          models.CategoryBusiness,
			UrgencyScore:      85,
			Sentiment:         models.SentimentNegative,
			BusinessPotential: 90,
			Keywords:          []string{"CRM", "small business", "affordable", "contact management", "deal tracking"},
			Upvotes:           342,
			Engagement:        models.EngagementMetrics{Comments: 89, Shares: 23, Views: 2150},
			DateDiscovered:    mustTime("2024-01-22T10:30:00Z"),
			SourceURL:         "https://reddit.com/r/smallbusiness/example1",
			AIAnalysis: models.AIAnalysis{
				UrgencyReasoning:   "High urgency due to operational pain and direct impact on business efficiency. Multiple users expressing similar frustrations.",
				MarketOpportunity:  "Significant gap in affordable, simple CRM solutions for small businesses. Potential market size of 30M+ small businesses globally.",
				TargetAudience:     "Small business owners (2-10 employees), consultants, service providers",
				PotentialSolutions: []string{"Simplified CRM with tiered pricing", "Industry-specific CRM solutions", "Free tier with premium features"},
			},
		},
		{
			ID:                "2",
			Title:             "Project management tools are too complex for our team",
			Description:       "We've tried Asana, Monday, Notion, and ClickUp but they're all overkill for our 8-person startup. We spend more time configuring these tools than actually using them. We need something dead simple - just tasks, deadlines, and who's working on what. Why is everything so bloated nowadays?",
			SourcePlatform:    models.PlatformReddit,
			SourceName:        "r/Entrepreneur",
			Category:          models.CategoryProductivity,
			UrgencyScore:      70,
			Sentiment:         models.SentimentNegative,
			BusinessPotential: 85,
			Keywords:          []string{"project management", "simple", "startup", "tasks", "deadlines"},
			Upvotes:           278,
			Engagement:        models.EngagementMetrics{Comments: 156, Shares: 45, Views: 3420},
			DateDiscovered:    mustTime("2024-01-21T14:15:00Z"),
			SourceURL:         "https://reddit.com/r/entrepreneur/example2",
			AIAnalysis: models.AIAnalysis{
				UrgencyReasoning:   "Medium-high urgency as team productivity is being hindered by tool complexity.",
				MarketOpportunity:  "Clear demand for simplified project management tools. Current solutions are over-engineered for small teams.",
				TargetAudience:     "Small startups, creative agencies, remote teams under 15 people",
				PotentialSolutions: []string{"Minimalist task management app", "One-click setup project tools", "Template-based project management"},
			},
		},
		{
			ID:                "3",
			Title:             "Email marketing platforms are too expensive for agencies",
			Description:       "Running a digital marketing agency and client email costs are killing our margins. Mailchimp wants $300+/month for our client volume, ConvertKit is similar. We need white-label email marketing that we can resell to clients without the crazy per-contact pricing. Building in-house seems like the only option.",
			SourcePlatform:    models.PlatformReddit,
			SourceName:        "r/marketing",
			Category:          models.CategoryMarketing,
			UrgencyScore:      90,
			Sentiment:         models.SentimentNegative,
			BusinessPotential: 95,
			Keywords:          []string{"email marketing", "white-label", "agency", "expensive", "margins"},
			Upvotes:           456,
			Engagement:        models.EngagementMetrics{Comments: 234, Shares: 67, Views: 5680},
			DateDiscovered:    mustTime("2024-01-20T09:45:00Z"),
			SourceURL:         "https://reddit.com/r/marketing/example3",
			AIAnalysis: models.AIAnalysis{
				UrgencyReasoning:   "Very high urgency - directly impacting agency profitability and client relationships.",
				MarketOpportunity:  "Huge opportunity in white-label email marketing for agencies. Current pricing models don't work for resellers.",
				TargetAudience:     "Digital marketing agencies, consultants, white-label service providers",
				PotentialSolutions: []string{"White-label email platform with flat pricing", "Agency-specific email tools", "Multi-tenant email infrastructure"},
			},
		},
		{
			ID:                "4",
			Title:             "Need better time tracking for freelancers",
			Description:       "Toggl is decent but lacks good invoicing integration. Harvest is expensive for what it offers. FreshBooks time tracking is clunky. I need something that accurately tracks time, integrates with invoicing, and doesn't cost $30/month for a single freelancer. The current options feel designed for teams, not solo workers.",
			SourcePlatform:    models.PlatformHackerNews,
			SourceName:        "HackerNews",
			Category:          models.CategoryProductivity,
			UrgencyScore:      65,
			Sentiment:         models.SentimentNegative,
			BusinessPotential: 75,
			Keywords:          []string{"time tracking", "freelancer", "invoicing", "solo worker", "integration"},
			Upvotes:           189,
			Engagement:        models.EngagementMetrics{Comments: 67, Shares: 12, Views: 1890},
			DateDiscovered:    mustTime("2024-01-19T16:20:00Z"),
			SourceURL:         "https://news.ycombinator.com/example4",
			AIAnalysis: models.AIAnalysis{
				UrgencyReasoning:   "Medium urgency - affects freelancer productivity and billing accuracy.",
				MarketOpportunity:  "Growing freelancer market needs specialized tools. Current solutions are team-focused.",
				TargetAudience:     "Solo freelancers, consultants, independent contractors",
				PotentialSolutions: []string{"Freelancer-specific time tracking", "All-in-one freelancer suite", "Micro-business productivity tools"},
			},
		},
		{
			ID:                "5",
			Title:             "Customer support tools missing AI automation",
			Description:       "Our support team is overwhelmed with repetitive questions. Zendesk has basic automation but no real AI. Intercom's AI is overpriced. We need something that can handle 70% of common questions automatically and only escalate complex issues to humans. Current tools feel like they're stuck in 2015.",
			SourcePlatform:    models.PlatformReddit,
			SourceName:        "r/CustomerSuccess",
			Category:          models.CategoryBusiness,
			UrgencyScore:      80,
			Sentiment:         models.SentimentNegative,
			BusinessPotential: 88,
			Keywords:          []string{"customer support", "AI automation", "repetitive questions", "escalation", "email support"},
			Upvotes:           312,
			Engagement:        models.EngagementMetrics{Comments: 98, Shares: 34, Views: 2780},
			DateDiscovered:    mustTime("2024-01-18T11:10:00Z"),
			SourceURL:         "https://reddit.com/r/customersuccess/example5",
			AIAnalysis: models.AIAnalysis{
				UrgencyReasoning:   "High urgency due to team burnout and customer satisfaction impact.",
				MarketOpportunity:  "AI-powered customer support is a rapidly growing market with clear demand.",
				TargetAudience:     "SMBs with growing support volumes, e-commerce companies, SaaS startups",
				PotentialSolutions: []string{"AI-first support platform", "Smart ticket routing", "Automated response generation"},
			},
		},
	}
}

// FixtureMetrics returns the dashboard aggregate that accompanies Fixtures
func FixtureMetrics() models.DashboardMetrics {
	categories := []models.CategoryCount{
		{Category: "Business", Count: 45},
		{Category: "Marketing", Count: 32},
		{Category: "Productivity", Count: 28},
		{Category: "Technical", Count: 19},
		{Category: "Financial", Count: 12},
	}
	distribution := make([]models.CategoryCount, len(categories))
	copy(distribution, categories)

	return models.DashboardMetrics{
		NewProblemsToday:   23,
		HighUrgencyIssues:  8,
		TrendingCategories: categories,
		ProblemTrends: []models.DateCount{
			{Date: "2024-01-15", Count: 12},
			{Date: "2024-01-16", Count: 18},
			{Date: "2024-01-17", Count: 15},
			{Date: "2024-01-18", Count: 22},
			{Date: "2024-01-19", Count: 19},
			{Date: "2024-01-20", Count: 28},
			{Date: "2024-01-21", Count: 25},
			{Date: "2024-01-22", Count: 23},
		},
		CategoryDistribution: distribution,
	}
}

// FixtureUser returns the mocked session user
func FixtureUser() models.User {
	return models.User{
		ID:                 "1",
		Email:              "user@example.com",
		Name:               "Alex Johnson",
		SubscriptionTier:   "Pro",
		SubscriptionStatus: "active",
		UsageLimits:        models.UsageLimits{SearchesPerDay: 100, AlertsCount: 10},
		CreatedAt:          mustTime("2024-01-01T00:00:00Z"),
	}
}

// NewFixtureRepository builds a repository over the seed dataset
func NewFixtureRepository() *MemoryRepository {
	return NewMemoryRepository(Fixtures(), FixtureMetrics())
}
