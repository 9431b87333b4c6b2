package models

import "time"

// Alert is a user-defined keyword watch over newly discovered problems.
// Alerts belong to a single session and are never shared with the problem
// repository.
type Alert struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Keywords     []string  `json:"keywords"`
	Category     *Category `json:"category,omitempty"`
	Platform     *Platform `json:"platform,omitempty"`
	Frequency    Frequency `json:"frequency"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	MatchesToday int       `json:"matches_today"`
}

// AlertDraft is the unvalidated content of the create-alert form
type AlertDraft struct {
	Name      string `json:"name"`
	Keywords  string `json:"keywords"` // comma separated
	Category  string `json:"category,omitempty"`
	Platform  string `json:"platform,omitempty"`
	Frequency string `json:"frequency,omitempty"`
}
