package sources

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/problemradar/problem-radar/internal/config"
	"github.com/problemradar/problem-radar/internal/models"
	"github.com/sirupsen/logrus"
)

// ForumSource reads the RSS or Atom feed of a community forum
type ForumSource struct {
	name   string
	url    string
	parser *gofeed.Parser
}

// NewForumSource creates a source for a single feed
func NewForumSource(feed config.ForumFeed) *ForumSource {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	return &ForumSource{
		name:   feed.Name,
		url:    feed.URL,
		parser: parser,
	}
}

// NewForumSources creates one source per configured feed
func NewForumSources(feeds []config.ForumFeed) []*ForumSource {
	sources := make([]*ForumSource, 0, len(feeds))
	for _, feed := range feeds {
		sources = append(sources, NewForumSource(feed))
	}
	return sources
}

func (f *ForumSource) GetName() string {
	return "forum:" + f.name
}

func (f *ForumSource) IsEnabled() bool {
	return f.url != ""
}

func (f *ForumSource) FetchPosts(ctx context.Context, keywords []string, since time.Duration) ([]models.Post, error) {
	feed, err := f.parser.ParseURLWithContext(f.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", f.name, err)
	}

	cutoff := time.Now().Add(-since)
	var posts []models.Post

	for _, item := range feed.Items {
		publishedAt := itemTime(item)
		if publishedAt.IsZero() || publishedAt.Before(cutoff) {
			continue
		}

		body := stripHTMLTags(item.Description)
		if body == "" {
			body = stripHTMLTags(item.Content)
		}

		matched := matchKeywords(item.Title+" "+body, keywords)
		if len(matched) == 0 {
			continue
		}

		author := ""
		if item.Author != nil {
			author = item.Author.Name
		}

		posts = append(posts, models.Post{
			ID:         f.itemID(item),
			Platform:   models.PlatformForums,
			SourceName: f.name,
			Title:      stripHTMLTags(item.Title),
			Body:       body,
			Author:     author,
			URL:        item.Link,
			CreatedAt:  publishedAt.UTC(),
			Keywords:   matched,
		})
	}

	logrus.Debugf("Fetched %d matching posts from feed %s", len(posts), f.name)
	return deduplicatePosts(posts), nil
}

func itemTime(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return time.Time{}
}

// itemID derives a stable id from the feed name and the item's guid or link
func (f *ForumSource) itemID(item *gofeed.Item) string {
	key := item.GUID
	if key == "" {
		key = item.Link
	}
	sum := sha1.Sum([]byte(f.name + "|" + key))
	return "forum_" + hex.EncodeToString(sum[:8])
}
