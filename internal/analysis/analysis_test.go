package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/problemradar/problem-radar/internal/config"
	"github.com/problemradar/problem-radar/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func sampleProblem() models.Problem {
	return models.Problem{
		ID:                "p1",
		Title:             "Invoicing tools are too expensive",
		Description:       "I pay $40/month just to send invoices",
		SourcePlatform:    models.PlatformReddit,
		SourceName:        "r/freelance",
		Category:          models.CategoryFinancial,
		UrgencyScore:      82,
		BusinessPotential: 85,
		Keywords:          []string{"invoicing", "pricing"},
		Engagement:        models.EngagementMetrics{Comments: 31},
	}
}

func TestHeuristicAnalyst(t *testing.T) {
	analysis, err := HeuristicAnalyst{}.Analyze(context.Background(), sampleProblem())
	require.NoError(t, err)

	assert.Equal(t, "High urgency: users describe active pain and the discussion drew 31 comments.", analysis.UrgencyReasoning)
	assert.Contains(t, analysis.MarketOpportunity, "Strong opportunity")
	assert.Contains(t, analysis.MarketOpportunity, "invoicing")
	assert.Equal(t, audiences[models.CategoryFinancial], analysis.TargetAudience)
	assert.Equal(t, []string{
		"Simplified invoicing tool with flat pricing",
		"Invoicing service for small teams",
		"Integrations that remove manual invoicing work",
	}, analysis.PotentialSolutions)
}

func TestHeuristicAnalyst_Bands(t *testing.T) {
	tests := []struct {
		urgency     int
		potential   int
		reasoning   string
		opportunity string
	}{
		{urgency: 65, potential: 70, reasoning: "Medium urgency", opportunity: "Moderate opportunity"},
		{urgency: 20, potential: 30, reasoning: "Low urgency", opportunity: "Limited opportunity"},
	}

	for _, tt := range tests {
		t.Run(tt.reasoning, func(t *testing.T) {
			p := sampleProblem()
			p.UrgencyScore = tt.urgency
			p.BusinessPotential = tt.potential
			p.Keywords = nil

			analysis, err := HeuristicAnalyst{}.Analyze(context.Background(), p)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(analysis.UrgencyReasoning, tt.reasoning))
			assert.True(t, strings.HasPrefix(analysis.MarketOpportunity, tt.opportunity))
			// without keywords the category names the subject
			assert.Contains(t, analysis.PotentialSolutions[0], "financial")
		})
	}
}

func TestHeuristicAnalyst_ConfiguredThresholds(t *testing.T) {
	p := sampleProblem()
	p.UrgencyScore = 85

	strict := New(&config.Config{BadgeHighThreshold: 90, BadgeMediumThreshold: 70})
	analysis, err := strict.Analyze(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(analysis.UrgencyReasoning, "Medium urgency"), analysis.UrgencyReasoning)

	analysis, err = HeuristicAnalyst{}.Analyze(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(analysis.UrgencyReasoning, "High urgency"), analysis.UrgencyReasoning)
}

func TestParseAnalysis(t *testing.T) {
	fenced := "```json\n{\"urgency_reasoning\":\"Urgent\",\"market_opportunity\":\"Big\",\"target_audience\":\"Freelancers\",\"potential_solutions\":[\"A\",\"B\"]}\n```"

	analysis, err := parseAnalysis(fenced)
	require.NoError(t, err)
	assert.Equal(t, "Urgent", analysis.UrgencyReasoning)
	assert.Equal(t, []string{"A", "B"}, analysis.PotentialSolutions)

	_, err = parseAnalysis("I cannot help with that")
	assert.Error(t, err)

	_, err = parseAnalysis("{}")
	assert.Error(t, err)

	_, err = parseAnalysis("{not json}")
	assert.Error(t, err)
}

type stubAnalyst struct {
	analysis models.AIAnalysis
	err      error
	calls    int
}

func (s *stubAnalyst) Analyze(ctx context.Context, problem models.Problem) (models.AIAnalysis, error) {
	s.calls++
	return s.analysis, s.err
}

func TestFallbackAnalyst(t *testing.T) {
	primary := &stubAnalyst{analysis: models.AIAnalysis{UrgencyReasoning: "from primary"}}
	fallback := &stubAnalyst{analysis: models.AIAnalysis{UrgencyReasoning: "from fallback"}}
	analyst := &FallbackAnalyst{Primary: primary, Fallback: fallback}

	analysis, err := analyst.Analyze(context.Background(), sampleProblem())
	require.NoError(t, err)
	assert.Equal(t, "from primary", analysis.UrgencyReasoning)
	assert.Zero(t, fallback.calls)

	primary.err = errors.New("overloaded")
	analysis, err = analyst.Analyze(context.Background(), sampleProblem())
	require.NoError(t, err)
	assert.Equal(t, "from fallback", analysis.UrgencyReasoning)
	assert.Equal(t, 1, fallback.calls)
}

func TestNew(t *testing.T) {
	assert.IsType(t, HeuristicAnalyst{}, New(&config.Config{}))
	assert.IsType(t, &FallbackAnalyst{}, New(&config.Config{AnthropicAPIKey: "key", AnthropicModel: "claude-3-5-haiku-latest"}))
}

func TestClaudeAnalyst_Analyze(t *testing.T) {
	var requestBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/messages"))
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		body, _ := io.ReadAll(r.Body)
		requestBody = string(body)

		analysis := `{\"urgency_reasoning\":\"Freelancers lose money every month\",\"market_opportunity\":\"Large\",\"target_audience\":\"Freelancers\",\"potential_solutions\":[\"Flat-fee invoicing\"]}`
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-5-haiku-latest","content":[{"type":"text","text":"%s"}],"stop_reason":"end_turn","usage":{"input_tokens":120,"output_tokens":60}}`, analysis)
	}))
	defer server.Close()

	analyst := NewClaudeAnalyst("test-key", "claude-3-5-haiku-latest",
		option.WithBaseURL(server.URL), option.WithMaxRetries(0))
	analyst.limiter = rate.NewLimiter(rate.Inf, 1)

	analysis, err := analyst.Analyze(context.Background(), sampleProblem())
	require.NoError(t, err)
	assert.Equal(t, "Freelancers lose money every month", analysis.UrgencyReasoning)
	assert.Equal(t, []string{"Flat-fee invoicing"}, analysis.PotentialSolutions)

	assert.Contains(t, requestBody, "Invoicing tools are too expensive")
	assert.Contains(t, requestBody, "claude-3-5-haiku-latest")
}

func TestClaudeAnalyst_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"type":"error","error":{"type":"invalid_request_error","message":"bad model"}}`)
	}))
	defer server.Close()

	analyst := NewClaudeAnalyst("test-key", "unknown-model",
		option.WithBaseURL(server.URL), option.WithMaxRetries(0))
	analyst.limiter = rate.NewLimiter(rate.Inf, 1)

	_, err := analyst.Analyze(context.Background(), sampleProblem())
	assert.ErrorContains(t, err, "claude API error")
}
