package models

import (
	"fmt"
	"strings"
)

// Platform is the community a problem was discovered on
type Platform string

const (
	PlatformReddit     Platform = "Reddit"
	PlatformHackerNews Platform = "HackerNews"
	PlatformForums     Platform = "Forums"
)

// Platforms lists every platform in display order
var Platforms = []Platform{PlatformReddit, PlatformHackerNews, PlatformForums}

// Valid reports whether p is a known platform
func (p Platform) Valid() bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

// ParsePlatform converts a raw string to a Platform, ignoring case
func ParsePlatform(s string) (Platform, error) {
	for _, known := range Platforms {
		if strings.EqualFold(s, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

// Category is the business area a problem belongs to
type Category string

const (
	CategoryBusiness     Category = "Business"
	CategoryTechnical    Category = "Technical"
	CategoryMarketing    Category = "Marketing"
	CategoryProductivity Category = "Productivity"
	CategoryFinancial    Category = "Financial"
)

// Categories lists every category in display order
var Categories = []Category{
	CategoryBusiness,
	CategoryTechnical,
	CategoryMarketing,
	CategoryProductivity,
	CategoryFinancial,
}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory converts a raw string to a Category, ignoring case
func ParseCategory(s string) (Category, error) {
	for _, known := range Categories {
		if strings.EqualFold(s, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Sentiment of the discussion a problem was extracted from
type Sentiment string

const (
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentPositive Sentiment = "positive"
)

// Valid reports whether s is a known sentiment
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentNegative, SentimentNeutral, SentimentPositive:
		return true
	}
	return false
}

// ParseSentiment converts a raw string to a Sentiment
func ParseSentiment(s string) (Sentiment, error) {
	st := Sentiment(strings.ToLower(s))
	if !st.Valid() {
		return "", fmt.Errorf("unknown sentiment %q", s)
	}
	return st, nil
}

// Frequency controls how often an alert delivers its matches
type Frequency string

const (
	FrequencyInstant Frequency = "instant"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
)

// Valid reports whether f is a known frequency
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyInstant, FrequencyDaily, FrequencyWeekly:
		return true
	}
	return false
}

// ParseFrequency converts a raw string to a Frequency
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(s))
	if !f.Valid() {
		return "", fmt.Errorf("unknown frequency %q", s)
	}
	return f, nil
}
