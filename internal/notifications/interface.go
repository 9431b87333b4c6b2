package notifications

import "github.com/problemradar/problem-radar/internal/models"

// NotificationInterface defines the contract for notification services
type NotificationInterface interface {
	// Notify emits an ephemeral user-facing event
	Notify(n *models.Notification) error
	// SendDigest delivers alert matches to the configured channels
	SendDigest(digest *models.Digest) error
}
