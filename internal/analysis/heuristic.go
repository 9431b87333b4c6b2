package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/problemradar/problem-radar/internal/models"
	"github.com/problemradar/problem-radar/internal/query"
)

// HeuristicAnalyst derives commentary from the scores alone. A zero
// Classifier uses the default urgency thresholds.
type HeuristicAnalyst struct {
	Classifier query.Classifier
}

var audiences = map[models.Category]string{
	models.CategoryBusiness:     "Small business owners, consultants, service providers",
	models.CategoryTechnical:    "Developers, engineering teams, IT administrators",
	models.CategoryMarketing:    "Marketing teams, agencies, growth-focused founders",
	models.CategoryProductivity: "Small teams, freelancers, remote workers",
	models.CategoryFinancial:    "Finance teams, bookkeepers, self-employed professionals",
}

func (h HeuristicAnalyst) Analyze(ctx context.Context, problem models.Problem) (models.AIAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return models.AIAnalysis{}, err
	}

	subject := strings.ToLower(string(problem.Category))
	if len(problem.Keywords) > 0 {
		subject = problem.Keywords[0]
	}

	return models.AIAnalysis{
		UrgencyReasoning:   urgencyReasoning(problem, h.badge(problem.UrgencyScore)),
		MarketOpportunity:  marketOpportunity(problem, subject),
		TargetAudience:     targetAudience(problem.Category),
		PotentialSolutions: potentialSolutions(subject),
	}, nil
}

func (h HeuristicAnalyst) badge(score int) query.UrgencyBand {
	if h.Classifier == (query.Classifier{}) {
		return query.UrgencyBadge(score)
	}
	return h.Classifier.UrgencyBadge(score)
}

func urgencyReasoning(problem models.Problem, band query.UrgencyBand) string {
	comments := problem.Engagement.Comments
	switch band {
	case query.BandHigh:
		return fmt.Sprintf("High urgency: users describe active pain and the discussion drew %d comments.", comments)
	case query.BandMedium:
		return fmt.Sprintf("Medium urgency: a recurring frustration with %d comments of discussion.", comments)
	default:
		return "Low urgency: an occasional annoyance rather than a blocker."
	}
}

func marketOpportunity(problem models.Problem, subject string) string {
	switch {
	case problem.BusinessPotential >= 80:
		return fmt.Sprintf("Strong opportunity: people are already paying for %s tools and asking for a better option.", subject)
	case problem.BusinessPotential >= 60:
		return fmt.Sprintf("Moderate opportunity: clear demand around %s, willingness to pay is less certain.", subject)
	default:
		return fmt.Sprintf("Limited opportunity: interest in %s is real but monetization signals are weak.", subject)
	}
}

func targetAudience(category models.Category) string {
	if audience, ok := audiences[category]; ok {
		return audience
	}
	return audiences[models.CategoryBusiness]
}

func potentialSolutions(subject string) []string {
	return []string{
		fmt.Sprintf("Simplified %s tool with flat pricing", subject),
		fmt.Sprintf("%s service for small teams", capitalize(subject)),
		fmt.Sprintf("Integrations that remove manual %s work", subject),
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
