package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matchpulse/aggregator/internal/domain/match"
	"github.com/matchpulse/aggregator/internal/domain/prediction"
	"github.com/matchpulse/aggregator/internal/platform/logging"
)

type stubEnricher struct {
	statsErr  error
	socialErr error
	newsCalls atomic.Int32
}

func (e *stubEnricher) Stats(_ context.Context, matchID string) (MatchStats, error) {
	if e.statsErr != nil {
		return MatchStats{}, e.statsErr
	}
	return MatchStats{MatchID: matchID, HomeShots: 7, AwayShots: 4}, nil
}

func (e *stubEnricher) Events(_ context.Context, matchID string) ([]MatchEvent, error) {
	return []MatchEvent{{MatchID: matchID, Minute: 12, Type: "goal", Team: "home"}}, nil
}

func (e *stubEnricher) News(_ context.Context, matchID string) ([]NewsItem, error) {
	e.newsCalls.Add(1)
	return []NewsItem{{MatchID: matchID, Title: "headline"}}, nil
}

func (e *stubEnricher) Social(_ context.Context, matchID string) (SocialData, error) {
	if e.socialErr != nil {
		return SocialData{}, e.socialErr
	}
	return SocialData{MatchID: matchID, Mentions: 1200, Sentiment: 0.4}, nil
}

func newEnrichmentFixture(t *testing.T, enricher MatchEnricher, matches []match.Match, preds []prediction.Prediction) *EnrichmentService {
	t.Helper()

	agg := newTestAggregator(t, AggregatorConfig{
		Chains: []SourceChain{{
			Sport:   match.SportSoccer,
			Sources: []MatchSource{&stubMatchSource{name: "live", matches: matches}},
		}},
		PredictionSources: []PredictionSource{&stubPredictionSource{name: "tips", preds: preds}},
	})

	return NewEnrichmentService(EnrichmentConfig{
		Aggregator: agg,
		Enricher:   enricher,
		ClassTTL:   time.Minute,
		Logger:     logging.NewNop(),
	})
}

func TestGetEnhancedMatches_AttachesAllBlocks(t *testing.T) {
	t.Parallel()

	matches := []match.Match{{ID: "m1", Sport: match.SportSoccer, HomeTeam: "Liverpool", AwayTeam: "Everton"}}
	preds := []prediction.Prediction{
		{MatchKey: "liverpool_vs_everton", HomeTeam: "Liverpool", AwayTeam: "Everton", Outcome: "Home Win", Confidence: 85},
	}

	svc := newEnrichmentFixture(t, &stubEnricher{}, matches, preds)

	got := svc.GetEnhancedMatches(context.Background())
	if len(got) != 1 {
		t.Fatalf("expected one enhanced match, got %d", len(got))
	}

	m := got[0]
	if m.Prediction != "Home Win" {
		t.Fatalf("expected correlated prediction, got %q", m.Prediction)
	}
	if m.Consensus == nil || *m.Consensus != 100 {
		t.Fatalf("expected consensus 100, got %v", m.Consensus)
	}
	if m.Statistics == nil || m.Statistics.HomeShots != 7 {
		t.Fatalf("expected statistics block, got %+v", m.Statistics)
	}
	if len(m.Events) != 1 || m.Events[0].Type != "goal" {
		t.Fatalf("expected events block, got %+v", m.Events)
	}
	if len(m.News) != 1 {
		t.Fatalf("expected news block, got %+v", m.News)
	}
	if m.Social == nil || m.Social.Mentions != 1200 {
		t.Fatalf("expected social block, got %+v", m.Social)
	}
}

func TestGetEnhancedMatches_FailingClassesDegrade(t *testing.T) {
	t.Parallel()

	matches := []match.Match{{ID: "m2", Sport: match.SportSoccer, HomeTeam: "A", AwayTeam: "B"}}
	enricher := &stubEnricher{
		statsErr:  errors.New("stats upstream down"),
		socialErr: errors.New("social upstream down"),
	}

	svc := newEnrichmentFixture(t, enricher, matches, nil)

	got := svc.GetEnhancedMatches(context.Background())
	if len(got) != 1 {
		t.Fatalf("expected one enhanced match, got %d", len(got))
	}

	m := got[0]
	if m.Statistics != nil || m.Social != nil {
		t.Fatalf("expected failed classes to stay absent, got stats=%+v social=%+v", m.Statistics, m.Social)
	}
	if len(m.Events) != 1 || len(m.News) != 1 {
		t.Fatalf("expected surviving classes to be present")
	}
	if m.Prediction != "No prediction available" {
		t.Fatalf("expected default prediction text, got %q", m.Prediction)
	}
	if m.Consensus != nil {
		t.Fatalf("expected no consensus without predictions")
	}
}

func TestGetEnhancedMatches_NilEnricherSkipsEnrichment(t *testing.T) {
	t.Parallel()

	matches := []match.Match{{ID: "m3", Sport: match.SportSoccer, HomeTeam: "A", AwayTeam: "B"}}

	svc := newEnrichmentFixture(t, nil, matches, nil)

	got := svc.GetEnhancedMatches(context.Background())
	if len(got) != 1 {
		t.Fatalf("expected one match, got %d", len(got))
	}
	if got[0].Statistics != nil || got[0].Events != nil || got[0].News != nil || got[0].Social != nil {
		t.Fatalf("expected no enrichment blocks without an enricher")
	}
}

func TestGetEnhancedMatches_CachesPerClass(t *testing.T) {
	t.Parallel()

	matches := []match.Match{{ID: "m4", Sport: match.SportSoccer, HomeTeam: "A", AwayTeam: "B"}}
	enricher := &stubEnricher{}

	svc := newEnrichmentFixture(t, enricher, matches, nil)

	svc.GetEnhancedMatches(context.Background())
	svc.GetEnhancedMatches(context.Background())

	if got := enricher.newsCalls.Load(); got != 1 {
		t.Fatalf("news fetched %d times, want 1 within the class TTL", got)
	}
}
