package sources

import (
	"context"
	"time"

	"github.com/problemradar/problem-radar/internal/config"
	"github.com/problemradar/problem-radar/internal/models"
)

const userAgent = "ProblemRadar/1.0"

// Source interface defines the contract for all community sources
type Source interface {
	GetName() string
	FetchPosts(ctx context.Context, keywords []string, since time.Duration) ([]models.Post, error)
	IsEnabled() bool
}

// FromConfig builds every source the configuration describes, enabled or not
func FromConfig(cfg *config.Config) []Source {
	all := []Source{
		NewRedditSource(cfg.RedditClientID, cfg.RedditClientSecret, cfg.Subreddits),
		NewHackerNewsSource(),
		NewStackOverflowSource(),
	}
	for _, forum := range NewForumSources(cfg.ForumFeeds) {
		all = append(all, forum)
	}
	return all
}
