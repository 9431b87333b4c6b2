package alerts

import (
	"time"

	"github.com/problemradar/problem-radar/internal/models"
)

// DemoAlerts returns the alerts a new session starts with
func DemoAlerts() []models.Alert {
	business := models.CategoryBusiness
	productivity := models.CategoryProductivity
	marketing := models.CategoryMarketing
	reddit := models.PlatformReddit
	hackerNews := models.PlatformHackerNews

	return []models.Alert{
		{
			ID:           "1",
			Name:         "SaaS Pricing Problems",
			Keywords:     []string{"SaaS pricing", "subscription cost", "pricing model"},
			Category:     &business,
			Platform:     &reddit,
			Frequency:    models.FrequencyDaily,
			IsActive:     true,
			CreatedAt:    time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
			MatchesToday: 3,
		},
		{
			ID:           "2",
			Name:         "Remote Work Tools",
			Keywords:     []string{"remote work", "team collaboration", "productivity tools"},
			Category:     &productivity,
			Frequency:    models.FrequencyInstant,
			IsActive:     true,
			CreatedAt:    time.Date(2024, 1, 10, 14, 30, 0, 0, time.UTC),
			MatchesToday: 7,
		},
		{
			ID:           "3",
			Name:         "Email Marketing Issues",
			Keywords:     []string{"email marketing", "newsletter", "email automation"},
			Category:     &marketing,
			Platform:     &hackerNews,
			Frequency:    models.FrequencyWeekly,
			IsActive:     false,
			CreatedAt:    time.Date(2024, 1, 5, 9, 15, 0, 0, time.UTC),
			MatchesToday: 0,
		},
	}
}
