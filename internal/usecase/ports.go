package usecase

import (
	"context"

	"github.com/matchpulse/aggregator/internal/domain/match"
	"github.com/matchpulse/aggregator/internal/domain/odds"
	"github.com/matchpulse/aggregator/internal/domain/prediction"
)

// MatchSource is one provider of live matches for a single sport. Errors
// follow the taxonomy in errors.go and never panic across this boundary.
type MatchSource interface {
	Name() string
	FetchMatches(ctx context.Context, sport string) ([]match.Match, error)
}

// OddsSource is a keyed bookmaker-odds provider.
type OddsSource interface {
	Name() string
	FetchOdds(ctx context.Context, sport string) ([]odds.Quote, error)
}

// PredictionSource is a scraped tips provider.
type PredictionSource interface {
	Name() string
	FetchPredictions(ctx context.Context) ([]prediction.Prediction, error)
}

// HealthProbe is implemented by every source so the facade can report one
// entry per configured provider even while it is failing.
type HealthProbe interface {
	Name() string
	Probe(ctx context.Context) error
}

// NewProbe adapts a closure into a named HealthProbe, so one client can
// expose a separate probe per sport it serves.
func NewProbe(name string, fn func(context.Context) error) HealthProbe {
	return probeFunc{name: name, fn: fn}
}

type probeFunc struct {
	name string
	fn   func(context.Context) error
}

func (p probeFunc) Name() string { return p.name }

func (p probeFunc) Probe(ctx context.Context) error { return p.fn(ctx) }

// MatchEnricher supplies the per-match enrichment blocks. Implementations
// may be backed by an upstream or synthesize placeholder data.
type MatchEnricher interface {
	Stats(ctx context.Context, matchID string) (MatchStats, error)
	Events(ctx context.Context, matchID string) ([]MatchEvent, error)
	News(ctx context.Context, matchID string) ([]NewsItem, error)
	Social(ctx context.Context, matchID string) (SocialData, error)
}
