package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/problemradar/problem-radar/internal/models"
	"github.com/sirupsen/logrus"
)

// StackOverflowSource searches Stack Exchange questions. Its posts are
// reported under the Forums platform.
type StackOverflowSource struct {
	client  *resty.Client
	baseURL string
	site    string
}

type stackOverflowResponse struct {
	Items []stackOverflowQuestion `json:"items"`
}

type stackOverflowQuestion struct {
	QuestionID int      `json:"question_id"`
	Title      string   `json:"title"`
	Body       string   `json:"body"`
	Tags       []string `json:"tags"`
	Owner      struct {
		DisplayName string `json:"display_name"`
	} `json:"owner"`
	CreationDate int64  `json:"creation_date"`
	Score        int    `json:"score"`
	ViewCount    int    `json:"view_count"`
	AnswerCount  int    `json:"answer_count"`
	Link         string `json:"link"`
	IsAnswered   bool   `json:"is_answered"`
}

// NewStackOverflowSource creates a new Stack Overflow source
func NewStackOverflowSource() *StackOverflowSource {
	return &StackOverflowSource{
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("User-Agent", userAgent),
		baseURL: "https://api.stackexchange.com/2.3",
		site:    "stackoverflow",
	}
}

func (s *StackOverflowSource) GetName() string {
	return "stackoverflow"
}

func (s *StackOverflowSource) IsEnabled() bool {
	return true // Stack Overflow API doesn't require authentication for basic searches
}

func (s *StackOverflowSource) FetchPosts(ctx context.Context, keywords []string, since time.Duration) ([]models.Post, error) {
	var allPosts []models.Post

	for _, keyword := range keywords {
		posts, err := s.searchKeyword(ctx, keyword, since)
		if err != nil {
			logrus.Errorf("Failed to search Stack Overflow for keyword '%s': %v", keyword, err)
			continue
		}
		allPosts = append(allPosts, posts...)
	}

	return deduplicatePosts(allPosts), nil
}

func (s *StackOverflowSource) searchKeyword(ctx context.Context, keyword string, since time.Duration) ([]models.Post, error) {
	fromDate := time.Now().Add(-since).Unix()

	searchURL := fmt.Sprintf("%s/search/advanced?order=desc&sort=creation&q=%s&site=%s&fromdate=%d&pagesize=100&filter=withbody",
		s.baseURL, url.QueryEscape(keyword), s.site, fromDate)

	resp, err := s.client.R().
		SetContext(ctx).
		Get(searchURL)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("stack overflow API returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var searchResp stackOverflowResponse
	if err := json.Unmarshal(resp.Body(), &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse Stack Overflow response: %w", err)
	}

	var posts []models.Post
	for _, question := range searchResp.Items {
		body := stripHTMLTags(question.Body)
		if len(matchKeywords(question.Title+" "+body, []string{keyword})) == 0 {
			continue
		}

		posts = append(posts, models.Post{
			ID:         fmt.Sprintf("stackoverflow_%d", question.QuestionID),
			Platform:   models.PlatformForums,
			SourceName: "Stack Overflow",
			Title:      stripHTMLTags(question.Title),
			Body:       body,
			Author:     question.Owner.DisplayName,
			URL:        question.Link,
			CreatedAt:  time.Unix(question.CreationDate, 0).UTC(),
			Score:      question.Score,
			Comments:   question.AnswerCount,
			Views:      question.ViewCount,
			Keywords:   []string{keyword},
		})
	}

	return posts, nil
}
