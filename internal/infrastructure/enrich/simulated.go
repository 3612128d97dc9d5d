// Package enrich provides enrichment backends for live matches. The only
// implementation today synthesizes plausible data locally; a provider-backed
// one can replace it without touching callers.
package enrich

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/matchpulse/aggregator/internal/usecase"
)

// Simulated synthesizes enrichment blocks deterministically from the match
// ID, so repeated calls for the same match agree with each other.
type Simulated struct{}

func NewSimulated() *Simulated {
	return &Simulated{}
}

func seeded(matchID string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(matchID))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

func (s *Simulated) Stats(ctx context.Context, matchID string) (usecase.MatchStats, error) {
	if err := ctx.Err(); err != nil {
		return usecase.MatchStats{}, err
	}
	r := seeded(matchID)
	homePossession := 35 + r.Intn(31)
	return usecase.MatchStats{
		MatchID:        matchID,
		HomeShots:      r.Intn(20),
		AwayShots:      r.Intn(20),
		HomePossession: homePossession,
		AwayPossession: 100 - homePossession,
		HomeCorners:    r.Intn(12),
		AwayCorners:    r.Intn(12),
		HomeFouls:      r.Intn(18),
		AwayFouls:      r.Intn(18),
	}, nil
}

func (s *Simulated) Events(ctx context.Context, matchID string) ([]usecase.MatchEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := seeded(matchID)
	kinds := []string{"goal", "yellow_card", "substitution", "injury"}
	teams := []string{"home", "away"}

	count := 1 + r.Intn(4)
	events := make([]usecase.MatchEvent, 0, count)
	for i := 0; i < count; i++ {
		events = append(events, usecase.MatchEvent{
			MatchID: matchID,
			Minute:  1 + r.Intn(90),
			Type:    kinds[r.Intn(len(kinds))],
			Team:    teams[r.Intn(len(teams))],
		})
	}
	return events, nil
}

func (s *Simulated) News(ctx context.Context, matchID string) ([]usecase.NewsItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := seeded(matchID)
	headlines := []string{
		"Key player returns from injury ahead of kickoff",
		"Manager confirms unchanged starting lineup",
		"Weather conditions could affect play tonight",
		"Rivalry renewed as sides meet again",
	}
	count := 1 + r.Intn(3)
	items := make([]usecase.NewsItem, 0, count)
	for i := 0; i < count; i++ {
		items = append(items, usecase.NewsItem{
			MatchID: matchID,
			Title:   headlines[r.Intn(len(headlines))],
			URL:     fmt.Sprintf("https://news.example.com/matches/%s/%d", matchID, i),
		})
	}
	return items, nil
}

func (s *Simulated) Social(ctx context.Context, matchID string) (usecase.SocialData, error) {
	if err := ctx.Err(); err != nil {
		return usecase.SocialData{}, err
	}
	r := seeded(matchID)
	return usecase.SocialData{
		MatchID:       matchID,
		Mentions:      500 + r.Intn(9500),
		Sentiment:     -1 + 2*r.Float64(),
		TrendingScore: r.Intn(100),
	}, nil
}
