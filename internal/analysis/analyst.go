// Package analysis writes the display-only AI commentary attached to a
// discovered problem.
package analysis

import (
	"context"

	"github.com/problemradar/problem-radar/internal/config"
	"github.com/problemradar/problem-radar/internal/models"
	"github.com/problemradar/problem-radar/internal/query"
	"github.com/sirupsen/logrus"
)

// Analyst produces the commentary for a scored problem
type Analyst interface {
	Analyze(ctx context.Context, problem models.Problem) (models.AIAnalysis, error)
}

// New returns the Claude analyst backed by the heuristic one when an API key
// is configured, otherwise the heuristic analyst alone
func New(cfg *config.Config) Analyst {
	heuristic := HeuristicAnalyst{Classifier: query.Classifier{Thresholds: cfg.BadgeThresholds()}}
	if cfg.AnthropicAPIKey == "" {
		logrus.Info("No Anthropic API key configured, using heuristic analysis")
		return heuristic
	}
	return &FallbackAnalyst{
		Primary:  NewClaudeAnalyst(cfg.AnthropicAPIKey, cfg.AnthropicModel),
		Fallback: heuristic,
	}
}

// FallbackAnalyst uses Fallback whenever Primary fails
type FallbackAnalyst struct {
	Primary  Analyst
	Fallback Analyst
}

func (f *FallbackAnalyst) Analyze(ctx context.Context, problem models.Problem) (models.AIAnalysis, error) {
	analysis, err := f.Primary.Analyze(ctx, problem)
	if err == nil {
		return analysis, nil
	}
	logrus.Warnf("AI analysis failed for %q, using heuristic analysis: %v", problem.Title, err)
	return f.Fallback.Analyze(ctx, problem)
}
