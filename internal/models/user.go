package models

import "time"

// User is the account owning a dashboard session
type User struct {
	ID                 string      `json:"id"`
	Email              string      `json:"email"`
	Name               string      `json:"name"`
	SubscriptionTier   string      `json:"subscription_tier"`   // "Free", "Pro", "Enterprise"
	SubscriptionStatus string      `json:"subscription_status"` // "active", "inactive", "trial"
	UsageLimits        UsageLimits `json:"usage_limits"`
	CreatedAt          time.Time   `json:"created_at"`
}

// UsageLimits caps what a subscription tier may do per day
type UsageLimits struct {
	SearchesPerDay int `json:"searches_per_day"`
	AlertsCount    int `json:"alerts_count"`
}
