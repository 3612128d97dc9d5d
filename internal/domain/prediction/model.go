package prediction

import (
	"strings"
	"time"
)

const (
	CategoryOverUnder      = "over-under"
	CategoryBothTeamsScore = "both-teams-score"
	CategoryMatchResult    = "match-result"
	CategoryHandicap       = "handicap"
)

const (
	StatusActive    = "active"
	StatusUpcoming  = "upcoming"
	StatusCompleted = "completed"
)

// Prediction is a single scraped tip, kept pre-normalization: HomeTeam and
// AwayTeam are exactly what the source printed. MatchKey is the derived
// correlation key, not a provider id.
type Prediction struct {
	MatchKey   string    `json:"matchId"`
	HomeTeam   string    `json:"homeTeam"`
	AwayTeam   string    `json:"awayTeam"`
	Outcome    string    `json:"prediction"`
	Confidence int       `json:"confidence"`
	League     string    `json:"league"`
	Odds       float64   `json:"odds"`
	Date       time.Time `json:"date"`
	Status     string    `json:"status"`
	Categories []string  `json:"categories"`
	Endpoint   string    `json:"sourceEndpoint,omitempty"`
}

// Categorize tags a tip from its free text plus the endpoint it came from.
// The endpoint path segment is always the first tag, matching how the
// upstream pages group their listings.
func Categorize(outcome, endpoint string) []string {
	categories := make([]string, 0, 3)
	if tag := endpointTag(endpoint); tag != "" {
		categories = append(categories, tag)
	}

	lower := strings.ToLower(outcome)
	if strings.Contains(lower, "over") || strings.Contains(lower, "under") {
		categories = append(categories, CategoryOverUnder)
	}
	if strings.Contains(lower, "both teams") || strings.Contains(lower, "btts") {
		categories = append(categories, CategoryBothTeamsScore)
	}
	if strings.Contains(lower, "win") || strings.Contains(lower, "1x2") {
		categories = append(categories, CategoryMatchResult)
	}
	if strings.Contains(lower, "handicap") || strings.Contains(lower, "spread") {
		categories = append(categories, CategoryHandicap)
	}

	return categories
}

// HasCategory reports whether the prediction carries the tag, either as an
// explicit category or as a substring of the tip text.
func (p Prediction) HasCategory(category string) bool {
	for _, c := range p.Categories {
		if c == category {
			return true
		}
	}
	return strings.Contains(strings.ToLower(p.Outcome), strings.ToLower(category))
}

func endpointTag(endpoint string) string {
	tag := strings.TrimPrefix(endpoint, "/predictions/")
	tag = strings.Trim(tag, "/")
	tag = strings.ReplaceAll(tag, "/", "")
	return tag
}
