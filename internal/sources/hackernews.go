package sources

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/problemradar/problem-radar/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Story lists walked for problem posts. Ask HN comes first because that is
// where people describe what they are stuck on.
var hackerNewsFeeds = []string{"askstories", "newstories"}

// HackerNewsSource reads recent stories from the Hacker News Firebase API
type HackerNewsSource struct {
	client   *resty.Client
	limiter  *rate.Limiter
	baseURL  string
	maxItems int
}

type hackerNewsItem struct {
	ID          int    `json:"id"`
	Type        string `json:"type"`
	By          string `json:"by"`
	Time        int64  `json:"time"`
	Text        string `json:"text"`
	Title       string `json:"title"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	Dead        bool   `json:"dead"`
	Deleted     bool   `json:"deleted"`
}

func (i *hackerNewsItem) usable() bool {
	return i.Time != 0 && !i.Dead && !i.Deleted && i.Title != ""
}

// NewHackerNewsSource creates a Hacker News source. Item lookups are limited
// to 10 requests per second.
func NewHackerNewsSource() *HackerNewsSource {
	return &HackerNewsSource{
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("User-Agent", userAgent),
		limiter:  rate.NewLimiter(rate.Limit(10), 10),
		baseURL:  "https://hacker-news.firebaseio.com/v0",
		maxItems: 500,
	}
}

func (h *HackerNewsSource) GetName() string {
	return "hackernews"
}

func (h *HackerNewsSource) IsEnabled() bool {
	return true // Hacker News API doesn't require authentication
}

func (h *HackerNewsSource) FetchPosts(ctx context.Context, keywords []string, since time.Duration) ([]models.Post, error) {
	itemIDs, err := h.storyIDs(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-since)
	var posts []models.Post

	for _, itemID := range itemIDs {
		if err := h.limiter.Wait(ctx); err != nil {
			return posts, err
		}

		item, err := h.getItem(ctx, itemID)
		if err != nil {
			logrus.Debugf("Failed to get HN item %d: %v", itemID, err)
			continue
		}
		if !item.usable() {
			continue
		}

		createdAt := time.Unix(item.Time, 0).UTC()
		if createdAt.Before(cutoff) {
			continue
		}

		text := stripHTMLTags(item.Text)
		matched := matchKeywords(item.Title+" "+text, keywords)
		if len(matched) == 0 {
			continue
		}

		posts = append(posts, models.Post{
			ID:         fmt.Sprintf("hackernews_%d", item.ID),
			Platform:   models.PlatformHackerNews,
			SourceName: "HackerNews",
			Title:      item.Title,
			Body:       text,
			Author:     item.By,
			URL:        fmt.Sprintf("https://news.ycombinator.com/item?id=%d", item.ID),
			CreatedAt:  createdAt,
			Score:      item.Score,
			Comments:   item.Descendants,
			Keywords:   matched,
		})
	}

	return deduplicatePosts(posts), nil
}

// storyIDs merges the story lists, dropping repeats and capping at maxItems.
// A list that fails to load is skipped unless every list fails.
func (h *HackerNewsSource) storyIDs(ctx context.Context) ([]int, error) {
	seen := make(map[int]bool)
	var ids []int
	var lastErr error
	loaded := 0

	for _, feed := range hackerNewsFeeds {
		var feedIDs []int
		resp, err := h.client.R().
			SetContext(ctx).
			ForceContentType("application/json").
			SetResult(&feedIDs).
			Get(fmt.Sprintf("%s/%s.json", h.baseURL, feed))
		if err == nil && resp.StatusCode() != http.StatusOK {
			err = fmt.Errorf("hacker news API returned status %d for %s", resp.StatusCode(), feed)
		}
		if err != nil {
			logrus.Warnf("Failed to load HN %s: %v", feed, err)
			lastErr = err
			continue
		}
		loaded++

		for _, id := range feedIDs {
			if len(ids) >= h.maxItems {
				break
			}
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	if loaded == 0 {
		return nil, fmt.Errorf("failed to get story lists: %w", lastErr)
	}
	return ids, nil
}

func (h *HackerNewsSource) getItem(ctx context.Context, itemID int) (*hackerNewsItem, error) {
	var item hackerNewsItem
	resp, err := h.client.R().
		SetContext(ctx).
		ForceContentType("application/json").
		SetResult(&item).
		Get(fmt.Sprintf("%s/item/%d.json", h.baseURL, itemID))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("hacker news API returned status %d for item %d", resp.StatusCode(), itemID)
	}
	return &item, nil
}
