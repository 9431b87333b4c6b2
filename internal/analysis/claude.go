package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/problemradar/problem-radar/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const systemPrompt = `You are a market research analyst. You read complaints posted on online communities and assess whether they describe a business opportunity.

IMPORTANT: Respond ONLY with valid JSON. No markdown, no explanation, just the JSON object.`

const userPromptTemplate = `Analyze this problem discovered on %s (%s).

Title: %s
Description: %s
Category: %s
Urgency score: %d/100
Business potential: %d/100
Keywords: %s

Return a JSON object with these fields:
{"urgency_reasoning": "...", "market_opportunity": "...", "target_audience": "...", "potential_solutions": ["...", "...", "..."]}`

// ClaudeAnalyst asks Claude for the commentary
type ClaudeAnalyst struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	limiter   *rate.Limiter
}

// NewClaudeAnalyst creates an analyst limited to 10 requests per minute
func NewClaudeAnalyst(apiKey, model string, opts ...option.RequestOption) *ClaudeAnalyst {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &ClaudeAnalyst{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: 1024,
		limiter:   rate.NewLimiter(rate.Limit(10.0/60), 2),
	}
}

func (c *ClaudeAnalyst) Analyze(ctx context.Context, problem models.Problem) (models.AIAnalysis, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return models.AIAnalysis{}, fmt.Errorf("rate limit error: %w", err)
	}

	userPrompt := fmt.Sprintf(userPromptTemplate,
		problem.SourcePlatform,
		problem.SourceName,
		problem.Title,
		problem.Description,
		problem.Category,
		problem.UrgencyScore,
		problem.BusinessPotential,
		strings.Join(problem.Keywords, ", "),
	)

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: systemPrompt,
			},
		},
		Messages: []anthropic.MessageParam{
			{
				Role: anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{
					anthropic.NewTextBlock(userPrompt),
				},
			},
		},
	})
	if err != nil {
		return models.AIAnalysis{}, fmt.Errorf("claude API error: %w", err)
	}

	var response strings.Builder
	for _, block := range message.Content {
		response.WriteString(block.AsText().Text)
	}

	logrus.Debugf("Claude analysis used %d input and %d output tokens",
		message.Usage.InputTokens, message.Usage.OutputTokens)

	return parseAnalysis(response.String())
}

// parseAnalysis extracts the JSON object from a model response, tolerating
// markdown fences around it
func parseAnalysis(response string) (models.AIAnalysis, error) {
	response = strings.TrimSpace(response)
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end < start {
		return models.AIAnalysis{}, fmt.Errorf("no JSON object in analysis response")
	}

	var analysis models.AIAnalysis
	if err := json.Unmarshal([]byte(response[start:end+1]), &analysis); err != nil {
		return models.AIAnalysis{}, fmt.Errorf("failed to parse analysis response: %w", err)
	}
	if analysis.UrgencyReasoning == "" && analysis.MarketOpportunity == "" {
		return models.AIAnalysis{}, fmt.Errorf("analysis response is empty")
	}
	return analysis, nil
}
