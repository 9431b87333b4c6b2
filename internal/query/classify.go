package query

import (
	"fmt"
	"strings"

	"github.com/problemradar/problem-radar/internal/models"
)

// UrgencyBand is a coarse bucketing of an urgency score. The zero value means
// "any band" when used as a filter selector.
type UrgencyBand string

const (
	BandAny    UrgencyBand = ""
	BandHigh   UrgencyBand = "high"
	BandMedium UrgencyBand = "medium"
	BandLow    UrgencyBand = "low"
)

// ParseUrgencyBand accepts "", "all", "any", "high", "medium" and "low" in any case
func ParseUrgencyBand(s string) (UrgencyBand, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all", "any":
		return BandAny, nil
	case "high":
		return BandHigh, nil
	case "medium":
		return BandMedium, nil
	case "low":
		return BandLow, nil
	}
	return "", fmt.Errorf("unknown urgency band %q", s)
}

// Thresholds are the lower bounds of the HIGH and MEDIUM bands. Scores below
// Medium are LOW, so the three bands are disjoint and cover [0,100].
type Thresholds struct {
	High   int
	Medium int
}

// DefaultThresholds are used both for the urgency filter and for badges.
var DefaultThresholds = Thresholds{High: 80, Medium: 60}

// Validate checks 0 < Medium < High <= 100
func (t Thresholds) Validate() error {
	if t.Medium <= 0 || t.Medium >= t.High || t.High > 100 {
		return fmt.Errorf("invalid urgency thresholds: medium=%d high=%d", t.Medium, t.High)
	}
	return nil
}

// Band buckets score into HIGH, MEDIUM or LOW
func (t Thresholds) Band(score int) UrgencyBand {
	switch {
	case score >= t.High:
		return BandHigh
	case score >= t.Medium:
		return BandMedium
	default:
		return BandLow
	}
}

// Tone selects the display tone for a sentiment
type Tone string

const (
	TonePositive Tone = "positive"
	ToneNegative Tone = "negative"
	ToneNeutral  Tone = "neutral"
)

// Classifier derives display badges from a problem. Its thresholds are held
// independently from the filter thresholds of Engine.
type Classifier struct {
	Thresholds Thresholds
}

// DefaultClassifier uses DefaultThresholds
var DefaultClassifier = Classifier{Thresholds: DefaultThresholds}

// UrgencyBadge returns the badge band for score
func (c Classifier) UrgencyBadge(score int) UrgencyBand {
	return c.Thresholds.Band(score)
}

// UrgencyBadge returns the badge band for score using the default thresholds
func UrgencyBadge(score int) UrgencyBand {
	return DefaultClassifier.UrgencyBadge(score)
}

// SentimentTone maps a sentiment to its display tone; unknown values are neutral
func SentimentTone(s models.Sentiment) Tone {
	switch s {
	case models.SentimentPositive:
		return TonePositive
	case models.SentimentNegative:
		return ToneNegative
	default:
		return ToneNeutral
	}
}

// MaxShownKeywords is how many keywords a problem card shows before collapsing
const MaxShownKeywords = 4

// SplitKeywords returns the first max keywords and the number collapsed
// behind the "+N more" indicator.
func SplitKeywords(keywords []string, max int) ([]string, int) {
	if max < 0 {
		max = 0
	}
	if len(keywords) <= max {
		return keywords, 0
	}
	return keywords[:max], len(keywords) - max
}
