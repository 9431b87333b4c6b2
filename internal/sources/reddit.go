package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/problemradar/problem-radar/internal/models"
	"github.com/sirupsen/logrus"
)

// DefaultSubreddits are searched when none are configured
var DefaultSubreddits = []string{
	"smallbusiness",
	"Entrepreneur",
	"startups",
	"SaaS",
	"marketing",
	"freelance",
	"CustomerSuccess",
}

// RedditSource implements Reddit API source
type RedditSource struct {
	clientID     string
	clientSecret string
	subreddits   []string
	client       *resty.Client
	authURL      string
	apiURL       string

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

type redditAuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type redditSearchResponse struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	Created     float64 `json:"created_utc"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
}

// NewRedditSource creates a new Reddit source searching subreddits
func NewRedditSource(clientID, clientSecret string, subreddits []string) *RedditSource {
	if len(subreddits) == 0 {
		subreddits = DefaultSubreddits
	}
	return &RedditSource{
		clientID:     clientID,
		clientSecret: clientSecret,
		subreddits:   subreddits,
		client:       resty.New().SetTimeout(30 * time.Second),
		authURL:      "https://www.reddit.com/api/v1/access_token",
		apiURL:       "https://oauth.reddit.com",
	}
}

func (r *RedditSource) GetName() string {
	return "reddit"
}

func (r *RedditSource) IsEnabled() bool {
	return r.clientID != "" && r.clientSecret != ""
}

func (r *RedditSource) FetchPosts(ctx context.Context, keywords []string, since time.Duration) ([]models.Post, error) {
	if !r.IsEnabled() {
		logrus.Debug("Reddit source disabled - missing credentials")
		return nil, nil
	}

	token, err := r.token(ctx)
	if err != nil {
		return nil, fmt.Errorf("reddit authentication failed: %w", err)
	}

	var allPosts []models.Post
	for _, subreddit := range r.subreddits {
		for _, keyword := range keywords {
			if ctx.Err() != nil {
				return deduplicatePosts(allPosts), ctx.Err()
			}

			posts, err := r.searchSubreddit(ctx, token, subreddit, keyword, since)
			if err != nil {
				logrus.Errorf("Failed to search r/%s for keyword '%s': %v", subreddit, keyword, err)
				continue
			}
			allPosts = append(allPosts, posts...)
		}
	}

	return deduplicatePosts(allPosts), nil
}

// token returns a cached access token, requesting a new one when it expired
func (r *RedditSource) token(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.accessToken != "" && time.Now().Before(r.expiresAt) {
		return r.accessToken, nil
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", userAgent).
		SetBasicAuth(r.clientID, r.clientSecret).
		SetFormData(map[string]string{
			"grant_type": "client_credentials",
		}).
		Post(r.authURL)
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode())
	}

	var authResp redditAuthResponse
	if err := json.Unmarshal(resp.Body(), &authResp); err != nil {
		return "", err
	}
	if authResp.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned no access token")
	}

	r.accessToken = authResp.AccessToken
	// refresh a minute early
	r.expiresAt = time.Now().Add(time.Duration(authResp.ExpiresIn)*time.Second - time.Minute)
	return r.accessToken, nil
}

func (r *RedditSource) searchSubreddit(ctx context.Context, token, subreddit, keyword string, since time.Duration) ([]models.Post, error) {
	searchURL := fmt.Sprintf("%s/r/%s/search.json?q=%s&restrict_sr=1&sort=new&limit=100",
		r.apiURL, subreddit, url.QueryEscape(keyword))

	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+token).
		SetHeader("User-Agent", userAgent).
		Get(searchURL)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("reddit API returned status %d", resp.StatusCode())
	}

	var searchResp redditSearchResponse
	if err := json.Unmarshal(resp.Body(), &searchResp); err != nil {
		return nil, err
	}

	var posts []models.Post
	cutoff := time.Now().Add(-since)

	for _, child := range searchResp.Data.Children {
		post := child.Data
		createdAt := time.Unix(int64(post.Created), 0).UTC()

		if createdAt.Before(cutoff) {
			continue
		}

		// Reddit search also matches on comments; require the keyword in the post itself
		if !strings.Contains(strings.ToLower(post.Title+" "+post.Selftext), strings.ToLower(keyword)) {
			continue
		}

		posts = append(posts, models.Post{
			ID:         fmt.Sprintf("reddit_%s", post.ID),
			Platform:   models.PlatformReddit,
			SourceName: fmt.Sprintf("r/%s", post.Subreddit),
			Title:      post.Title,
			Body:       post.Selftext,
			Author:     post.Author,
			URL:        fmt.Sprintf("https://reddit.com%s", post.Permalink),
			CreatedAt:  createdAt,
			Score:      post.Score,
			Comments:   post.NumComments,
			Keywords:   []string{keyword},
		})
	}

	return posts, nil
}
