// Package query computes the visible problem list from a set of filters and a
// sort key. Functions here depend only on their arguments and do no I/O.
package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/problemradar/problem-radar/internal/models"
)

// SortKey selects the field results are ordered by, descending
type SortKey string

const (
	SortNewest     SortKey = "newest"
	SortUrgency    SortKey = "urgency"
	SortEngagement SortKey = "engagement"
	SortPotential  SortKey = "potential"
)

// ParseSortKey accepts the sort key names in any case; empty means newest
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return SortNewest, nil
	case SortNewest, SortUrgency, SortEngagement, SortPotential:
		return k, nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// FilterSpec is the set of active search criteria. Zero-valued selectors
// match everything.
type FilterSpec struct {
	Text     string
	Category models.Category // "" = any
	Platform models.Platform // "" = any
	Urgency  UrgencyBand     // "" = any
}

// ParseCategoryFilter maps "", "all" and "any" to the any selector
func ParseCategoryFilter(s string) (models.Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all", "any":
		return "", nil
	}
	return models.ParseCategory(strings.TrimSpace(s))
}

// ParsePlatformFilter maps "", "all" and "any" to the any selector
func ParsePlatformFilter(s string) (models.Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all", "any":
		return "", nil
	}
	return models.ParsePlatform(strings.TrimSpace(s))
}

// Engine filters and sorts problems. Thresholds drive the urgency filter.
type Engine struct {
	Thresholds Thresholds
}

// DefaultEngine uses DefaultThresholds
var DefaultEngine = Engine{Thresholds: DefaultThresholds}

// Run filters and sorts problems with the default engine
func Run(problems []models.Problem, spec FilterSpec, key SortKey) []models.Problem {
	return DefaultEngine.Run(problems, spec, key)
}

// Run returns the problems passing spec, stably sorted by key in descending
// order. Equal keys keep their input order. The input slice is not modified.
// An empty result is returned as a non-nil empty slice.
func (e Engine) Run(problems []models.Problem, spec FilterSpec, key SortKey) []models.Problem {
	text := strings.ToLower(strings.TrimSpace(spec.Text))

	results := make([]models.Problem, 0, len(problems))
	for _, problem := range problems {
		if e.Matches(problem, spec.Category, spec.Platform, spec.Urgency, text) {
			results = append(results, problem)
		}
	}

	less := lessFor(key)
	sort.SliceStable(results, func(i, j int) bool {
		return less(results[i], results[j])
	})

	return results
}

// Matches reports whether a problem passes every predicate. text must already
// be lowercased and trimmed.
func (e Engine) Matches(p models.Problem, category models.Category, platform models.Platform, band UrgencyBand, text string) bool {
	if category != "" && p.Category != category {
		return false
	}
	if platform != "" && p.SourcePlatform != platform {
		return false
	}
	if band != BandAny && e.Thresholds.Band(p.UrgencyScore) != band {
		return false
	}
	return matchesText(p, text)
}

func matchesText(p models.Problem, text string) bool {
	if text == "" {
		return true
	}
	if strings.Contains(strings.ToLower(p.Title), text) {
		return true
	}
	if strings.Contains(strings.ToLower(p.Description), text) {
		return true
	}
	for _, keyword := range p.Keywords {
		if strings.Contains(strings.ToLower(keyword), text) {
			return true
		}
	}
	return false
}

// lessFor returns a "sorts before" function that is a strict descending order
func lessFor(key SortKey) func(a, b models.Problem) bool {
	switch key {
	case SortUrgency:
		return func(a, b models.Problem) bool { return a.UrgencyScore > b.UrgencyScore }
	case SortEngagement:
		return func(a, b models.Problem) bool { return a.Upvotes > b.Upvotes }
	case SortPotential:
		return func(a, b models.Problem) bool { return a.BusinessPotential > b.BusinessPotential }
	default:
		return func(a, b models.Problem) bool { return a.DateDiscovered.After(b.DateDiscovered) }
	}
}
