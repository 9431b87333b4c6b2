package discovery

import (
	"sort"
	"time"

	"github.com/problemradar/problem-radar/internal/models"
	"github.com/problemradar/problem-radar/internal/query"
)

const trendDays = 8

// ComputeDashboard aggregates problems into dashboard metrics as of now.
// Days are calendar days in UTC.
func ComputeDashboard(problems []models.Problem, now time.Time, classifier query.Classifier) models.DashboardMetrics {
	today := now.UTC().Format("2006-01-02")

	counts := make(map[models.Category]int)
	perDay := make(map[string]int)
	metrics := models.DashboardMetrics{}

	for _, p := range problems {
		day := p.DateDiscovered.UTC().Format("2006-01-02")
		if day == today {
			metrics.NewProblemsToday++
		}
		if classifier.UrgencyBadge(p.UrgencyScore) == query.BandHigh {
			metrics.HighUrgencyIssues++
		}
		counts[p.Category]++
		perDay[day]++
	}

	metrics.CategoryDistribution = make([]models.CategoryCount, 0, len(models.Categories))
	for _, category := range models.Categories {
		if counts[category] > 0 {
			metrics.CategoryDistribution = append(metrics.CategoryDistribution,
				models.CategoryCount{Category: string(category), Count: counts[category]})
		}
	}

	metrics.TrendingCategories = make([]models.CategoryCount, len(metrics.CategoryDistribution))
	copy(metrics.TrendingCategories, metrics.CategoryDistribution)
	sort.SliceStable(metrics.TrendingCategories, func(i, j int) bool {
		return metrics.TrendingCategories[i].Count > metrics.TrendingCategories[j].Count
	})

	start := now.UTC().AddDate(0, 0, -(trendDays - 1))
	metrics.ProblemTrends = make([]models.DateCount, 0, trendDays)
	for i := 0; i < trendDays; i++ {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		metrics.ProblemTrends = append(metrics.ProblemTrends, models.DateCount{Date: day, Count: perDay[day]})
	}

	return metrics
}
