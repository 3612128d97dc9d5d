package usecase

import (
	"context"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/matchpulse/aggregator/internal/domain/confidence"
	"github.com/matchpulse/aggregator/internal/domain/match"
	"github.com/matchpulse/aggregator/internal/domain/resolve"
	"github.com/matchpulse/aggregator/internal/platform/cache"
	"github.com/matchpulse/aggregator/internal/platform/logging"
)

type EnrichmentConfig struct {
	Aggregator *AggregatorService
	Enricher   MatchEnricher

	ClassTTL     time.Duration
	ClassTimeout time.Duration
	Logger       *logging.Logger
}

// EnrichmentService decorates live matches with statistics, events, news
// and social signals. Each class is cached independently and fetched under
// its own short budget, so one slow class costs its block, not the match.
type EnrichmentService struct {
	agg      *AggregatorService
	enricher MatchEnricher

	statsCache  *cache.Store
	eventsCache *cache.Store
	newsCache   *cache.Store
	socialCache *cache.Store

	classTimeout time.Duration
	logger       *logging.Logger
}

func NewEnrichmentService(cfg EnrichmentConfig) *EnrichmentService {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	ttl := cfg.ClassTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	timeout := cfg.ClassTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &EnrichmentService{
		agg:          cfg.Aggregator,
		enricher:     cfg.Enricher,
		statsCache:   cache.NewStore(ttl),
		eventsCache:  cache.NewStore(ttl),
		newsCache:    cache.NewStore(ttl),
		socialCache:  cache.NewStore(ttl),
		classTimeout: timeout,
		logger:       logger,
	}
}

// GetEnhancedMatches fetches every live match, attaches correlated
// predictions and consensus, then enriches all matches concurrently.
// Enrichment failures degrade to absent blocks, never to a failed call.
func (s *EnrichmentService) GetEnhancedMatches(ctx context.Context) []EnhancedMatch {
	ctx, span := startUsecaseSpan(ctx, "usecase.EnrichmentService.GetEnhancedMatches")
	defer span.End()

	matches := s.agg.GetAllLiveMatches(ctx)
	predictions := s.agg.GetPredictions(ctx, PredictionFilter{})
	matches = resolve.Attach(matches, predictions)

	byKey := make(map[string][]int)
	for _, p := range predictions {
		byKey[p.MatchKey] = append(byKey[p.MatchKey], p.Confidence)
	}

	out := make([]EnhancedMatch, len(matches))
	var wg conc.WaitGroup
	for i, m := range matches {
		i, m := i, m
		wg.Go(func() {
			out[i] = s.enrich(ctx, m, byKey)
		})
	}
	wg.Wait()
	return out
}

func (s *EnrichmentService) enrich(ctx context.Context, m match.Match, byKey map[string][]int) EnhancedMatch {
	enhanced := EnhancedMatch{Match: m}

	if confidences, ok := byKey[resolve.MatchKey(m.HomeTeam, m.AwayTeam)]; ok {
		consensus := confidence.Consensus(confidences)
		enhanced.Consensus = &consensus
	}
	if s.enricher == nil {
		return enhanced
	}

	var wg conc.WaitGroup
	wg.Go(func() {
		if stats, ok := loadClass(ctx, s, s.statsCache, m.ID, "stats", s.enricher.Stats); ok {
			enhanced.Statistics = &stats
		}
	})
	wg.Go(func() {
		if events, ok := loadClass(ctx, s, s.eventsCache, m.ID, "events", s.enricher.Events); ok {
			enhanced.Events = events
		}
	})
	wg.Go(func() {
		if news, ok := loadClass(ctx, s, s.newsCache, m.ID, "news", s.enricher.News); ok {
			enhanced.News = news
		}
	})
	wg.Go(func() {
		if social, ok := loadClass(ctx, s, s.socialCache, m.ID, "social", s.enricher.Social); ok {
			enhanced.Social = &social
		}
	})
	wg.Wait()

	return enhanced
}

// loadClass resolves one enrichment class through its cache under the class
// budget. Concurrent requests for the same match coalesce into one upstream
// call via the store's loader de-duplication.
func loadClass[T any](
	ctx context.Context,
	s *EnrichmentService,
	store *cache.Store,
	matchID, class string,
	fetch func(context.Context, string) (T, error),
) (T, bool) {
	var zero T
	value, err := store.GetOrLoad(ctx, matchID, func(ctx context.Context) (any, error) {
		classCtx, cancel := context.WithTimeout(ctx, s.classTimeout)
		defer cancel()
		return fetch(classCtx, matchID)
	})
	if err != nil {
		s.logger.DebugContext(ctx, "enrichment class unavailable",
			"match_id", matchID, "class", class, "error", classify(ctx, err))
		return zero, false
	}
	typed, ok := value.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
