package notifications

import (
	"sync"

	"github.com/problemradar/problem-radar/internal/models"
)

// Feed is a bounded, newest-last buffer of emitted notifications
type Feed struct {
	mu      sync.Mutex
	items   []models.Notification
	maxSize int
}

// NewFeed creates a feed holding at most maxSize notifications
func NewFeed(maxSize int) *Feed {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Feed{maxSize: maxSize}
}

// Push appends n, dropping the oldest entry when full
func (f *Feed) Push(n models.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items = append(f.items, n)
	if over := len(f.items) - f.maxSize; over > 0 {
		f.items = append([]models.Notification(nil), f.items[over:]...)
	}
}

// Recent returns up to limit notifications, newest first
func (f *Feed) Recent(limit int) []models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	if limit <= 0 || limit > len(f.items) {
		limit = len(f.items)
	}
	out := make([]models.Notification, 0, limit)
	for i := len(f.items) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.items[i])
	}
	return out
}
