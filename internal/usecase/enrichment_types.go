package usecase

import (
	"github.com/matchpulse/aggregator/internal/domain/match"
)

// MatchStats holds per-team in-game statistics for one match.
type MatchStats struct {
	MatchID        string `json:"matchId"`
	HomeShots      int    `json:"homeShots"`
	AwayShots      int    `json:"awayShots"`
	HomePossession int    `json:"homePossession"`
	AwayPossession int    `json:"awayPossession"`
	HomeCorners    int    `json:"homeCorners"`
	AwayCorners    int    `json:"awayCorners"`
	HomeFouls      int    `json:"homeFouls"`
	AwayFouls      int    `json:"awayFouls"`
}

// MatchEvent is a single timeline entry: a goal, card, substitution.
type MatchEvent struct {
	MatchID string `json:"matchId"`
	Minute  int    `json:"minute"`
	Type    string `json:"type"`
	Team    string `json:"team"`
	Player  string `json:"player,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// NewsItem is a headline tied to a match or one of its teams.
type NewsItem struct {
	MatchID     string `json:"matchId"`
	Title       string `json:"title"`
	Summary     string `json:"summary,omitempty"`
	URL         string `json:"url,omitempty"`
	PublishedAt string `json:"publishedAt,omitempty"`
}

// SocialData summarises fan sentiment around a match.
type SocialData struct {
	MatchID       string  `json:"matchId"`
	Mentions      int     `json:"mentions"`
	Sentiment     float64 `json:"sentiment"`
	TrendingScore int     `json:"trendingScore"`
}

// EnhancedMatch is a live match decorated with whatever enrichment classes
// resolved within budget. Absent classes stay at their zero value.
type EnhancedMatch struct {
	match.Match

	Statistics *MatchStats  `json:"statistics,omitempty"`
	Events     []MatchEvent `json:"events,omitempty"`
	News       []NewsItem   `json:"news,omitempty"`
	Social     *SocialData  `json:"social,omitempty"`
	Consensus  *int         `json:"consensus,omitempty"`
}
