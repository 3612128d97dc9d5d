package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/matchpulse/aggregator/internal/domain/confidence"
	"github.com/matchpulse/aggregator/internal/domain/health"
	"github.com/matchpulse/aggregator/internal/domain/match"
	"github.com/matchpulse/aggregator/internal/domain/odds"
	"github.com/matchpulse/aggregator/internal/domain/prediction"
	"github.com/matchpulse/aggregator/internal/domain/resolve"
	"github.com/matchpulse/aggregator/internal/platform/cache"
	"github.com/matchpulse/aggregator/internal/platform/logging"
)

// SourceChain is an ordered fallback chain for one sport: the primary
// adapter first, then the adapters tried after a failure or timeout.
type SourceChain struct {
	Sport   string
	Sources []MatchSource
}

// PredictionFilter narrows GetPredictions output. Zero value means no
// filtering.
type PredictionFilter struct {
	Category      string `validate:"omitempty,max=64"`
	League        string `validate:"omitempty,max=128"`
	MinConfidence int    `validate:"gte=0,lte=100"`
}

type AggregatorConfig struct {
	Chains            []SourceChain
	Odds              OddsSource
	PredictionSources []PredictionSource
	Probes            []HealthProbe

	MatchTTL      time.Duration
	OddsTTL       time.Duration
	PredictionTTL time.Duration
	CallTimeout   time.Duration
	ProbeTimeout  time.Duration
	FetchWorkers  int

	Bounds confidence.Bounds
	Logger *logging.Logger
}

// AggregatorService is the only entry point external collaborators consume.
// Read-heavy operations never return errors; they degrade to empty results
// and a logged warning.
type AggregatorService struct {
	chains map[string][]MatchSource
	sports []string
	odds   OddsSource
	preds  []PredictionSource
	probes []HealthProbe

	matchCache *cache.Store
	oddsCache  *cache.Store
	predCache  *cache.Store

	pool         *ants.Pool
	callTimeout  time.Duration
	probeTimeout time.Duration
	bounds       confidence.Bounds
	logger       *logging.Logger
}

func NewAggregatorService(cfg AggregatorConfig) (*AggregatorService, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	if len(cfg.Chains) == 0 {
		return nil, fmt.Errorf("at least one source chain is required")
	}

	workers := cfg.FetchWorkers
	if workers < 1 {
		workers = len(cfg.Chains)
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create fetch pool: %w", err)
	}

	matchTTL := cfg.MatchTTL
	if matchTTL <= 0 {
		matchTTL = 30 * time.Second
	}
	oddsTTL := cfg.OddsTTL
	if oddsTTL <= 0 {
		oddsTTL = 30 * time.Second
	}
	predTTL := cfg.PredictionTTL
	if predTTL <= 0 {
		predTTL = 30 * time.Second
	}
	callTimeout := cfg.CallTimeout
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	probeTimeout := cfg.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = 5 * time.Second
	}
	bounds := cfg.Bounds
	if bounds == (confidence.Bounds{}) {
		bounds = confidence.DefaultBounds()
	}

	chains := make(map[string][]MatchSource, len(cfg.Chains))
	sports := make([]string, 0, len(cfg.Chains))
	for _, chain := range cfg.Chains {
		if chain.Sport == "" || len(chain.Sources) == 0 {
			return nil, fmt.Errorf("chain for sport %q has no sources", chain.Sport)
		}
		if _, dup := chains[chain.Sport]; dup {
			return nil, fmt.Errorf("duplicate chain for sport %q", chain.Sport)
		}
		chains[chain.Sport] = chain.Sources
		sports = append(sports, chain.Sport)
	}

	return &AggregatorService{
		chains:       chains,
		sports:       sports,
		odds:         cfg.Odds,
		preds:        cfg.PredictionSources,
		probes:       cfg.Probes,
		matchCache:   cache.NewStore(matchTTL),
		oddsCache:    cache.NewStore(oddsTTL),
		predCache:    cache.NewStore(predTTL),
		pool:         pool,
		callTimeout:  callTimeout,
		probeTimeout: probeTimeout,
		bounds:       bounds,
		logger:       logger,
	}, nil
}

// Close releases the fetch pool.
func (s *AggregatorService) Close() {
	s.pool.Release()
}

// Sports returns the configured fetch units in registration order.
func (s *AggregatorService) Sports() []string {
	out := make([]string, len(s.sports))
	copy(out, s.sports)
	return out
}

// GetLiveMatches runs the sport's fallback chain and returns its matches.
// Total failure yields an empty slice, never an error: callers cannot tell
// "no games today" from "all sources down" without GetSourceHealth, which
// is the documented trade-off.
func (s *AggregatorService) GetLiveMatches(ctx context.Context, sport string) []match.Match {
	ctx, span := startUsecaseSpan(ctx, "usecase.AggregatorService.GetLiveMatches")
	defer span.End()

	sources, ok := s.chains[sport]
	if !ok {
		s.logger.WarnContext(ctx, "no source chain configured", "sport", sport)
		return []match.Match{}
	}

	value, err := s.matchCache.GetOrLoad(ctx, "matches:"+sport, func(ctx context.Context) (any, error) {
		// Detached from the caller: an abandoned request still finishes the
		// fetch and fills the cache for whoever asks next. Without this a
		// canceled caller would cache an empty result for the full TTL.
		return s.runChain(context.WithoutCancel(ctx), sport, sources), nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "match cache load failed", "sport", sport, "error", err)
		return []match.Match{}
	}
	matches, _ := value.([]match.Match)
	return matches
}

// GetAllLiveMatches fetches every configured sport concurrently. Units are
// independent: a failing or slow sport never delays or cancels a sibling.
func (s *AggregatorService) GetAllLiveMatches(ctx context.Context) []match.Match {
	ctx, span := startUsecaseSpan(ctx, "usecase.AggregatorService.GetAllLiveMatches")
	defer span.End()

	var (
		mu  sync.Mutex
		out []match.Match
		wg  sync.WaitGroup
	)

	for _, sport := range s.sports {
		sport := sport
		wg.Add(1)
		if err := s.pool.Submit(func() {
			defer wg.Done()
			matches := s.GetLiveMatches(ctx, sport)
			mu.Lock()
			out = append(out, matches...)
			mu.Unlock()
		}); err != nil {
			wg.Done()
			s.logger.WarnContext(ctx, "submit fetch unit failed", "sport", sport, "error", err)
		}
	}
	wg.Wait()

	if out == nil {
		out = []match.Match{}
	}
	return out
}

// GetOdds is the one read surfacing configuration errors, so callers can
// tell "not supported" from "temporarily empty".
func (s *AggregatorService) GetOdds(ctx context.Context, sport string) ([]odds.Quote, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AggregatorService.GetOdds")
	defer span.End()

	if s.odds == nil {
		return nil, fmt.Errorf("%w: no odds provider configured", ErrConfig)
	}

	value, err := s.oddsCache.GetOrLoad(ctx, "odds:"+sport, func(ctx context.Context) (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.callTimeout)
		defer cancel()
		quotes, err := s.odds.FetchOdds(callCtx, sport)
		if err != nil {
			return nil, classify(callCtx, err)
		}
		return quotes, nil
	})
	if err != nil {
		if errors.Is(err, ErrConfig) {
			return nil, err
		}
		s.logger.WarnContext(ctx, "odds fetch failed", "sport", sport, "error", err)
		return []odds.Quote{}, nil
	}

	quotes, _ := value.([]odds.Quote)
	return quotes, nil
}

// GetPredictions performs the full scrape-and-resolve pipeline: every
// prediction source in order, then cross-source dedup, then filters. It
// never errors.
func (s *AggregatorService) GetPredictions(ctx context.Context, filter PredictionFilter) []prediction.Prediction {
	ctx, span := startUsecaseSpan(ctx, "usecase.AggregatorService.GetPredictions")
	defer span.End()

	value, err := s.predCache.GetOrLoad(ctx, "predictions:all", func(ctx context.Context) (any, error) {
		// Detached for the same reason as the match loader.
		return s.scrapeAll(context.WithoutCancel(ctx)), nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "prediction cache load failed", "error", err)
		return []prediction.Prediction{}
	}

	all, _ := value.([]prediction.Prediction)
	return filterPredictions(all, filter)
}

// GetConsensus groups deduplicated predictions by matchKey and reports the
// share of strongly-confident sources per match.
func (s *AggregatorService) GetConsensus(ctx context.Context) map[string]int {
	ctx, span := startUsecaseSpan(ctx, "usecase.AggregatorService.GetConsensus")
	defer span.End()

	byMatch := make(map[string][]int)
	for _, p := range s.GetPredictions(ctx, PredictionFilter{}) {
		byMatch[p.MatchKey] = append(byMatch[p.MatchKey], p.Confidence)
	}

	out := make(map[string]int, len(byMatch))
	for key, confidences := range byMatch {
		out[key] = confidence.Consensus(confidences)
	}
	return out
}

// GetSourceHealth probes every configured source once. Every source always
// appears in the output, failing ones included; results are recomputed per
// call and never cached.
func (s *AggregatorService) GetSourceHealth(ctx context.Context) []health.SourceHealth {
	ctx, span := startUsecaseSpan(ctx, "usecase.AggregatorService.GetSourceHealth")
	defer span.End()

	out := make([]health.SourceHealth, 0, len(s.probes))
	for _, probe := range s.probes {
		probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
		err := probe.Probe(probeCtx)
		cancel()

		entry := health.SourceHealth{Name: probe.Name(), Status: health.StatusHealthy}
		if err != nil {
			err = classify(probeCtx, err)
			entry.LastError = err.Error()
			if errors.Is(err, ErrTimeout) {
				entry.Status = health.StatusSyncing
			} else {
				entry.Status = health.StatusUnhealthy
			}
		}
		out = append(out, entry)
	}
	return out
}

// runChain walks the sport's fallback chain. A timeout is handled exactly
// like any other failure: it advances the chain. Exhaustion maps to an
// empty result.
func (s *AggregatorService) runChain(ctx context.Context, sport string, sources []MatchSource) []match.Match {
	var lastErr error
	for _, source := range sources {
		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		matches, err := source.FetchMatches(callCtx, sport)
		cancel()

		if err == nil {
			s.logger.DebugContext(ctx, "fetch unit succeeded",
				"sport", sport, "source", source.Name(), "matches", len(matches))
			if matches == nil {
				matches = []match.Match{}
			}
			return matches
		}

		lastErr = classify(callCtx, err)
		level := s.logger.DebugContext
		if !errors.Is(lastErr, ErrConfig) {
			level = s.logger.WarnContext
		}
		level(ctx, "source failed, advancing fallback chain",
			"sport", sport, "source", source.Name(), "error", lastErr)
	}

	s.logger.WarnContext(ctx, "fallback chain exhausted", "sport", sport, "error", lastErr)
	return []match.Match{}
}

func (s *AggregatorService) scrapeAll(ctx context.Context) []prediction.Prediction {
	all := make([]prediction.Prediction, 0, 64)
	for _, source := range s.preds {
		records, err := source.FetchPredictions(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "prediction source failed",
				"source", source.Name(), "error", classify(ctx, err))
			continue
		}
		all = append(all, records...)
	}
	return resolve.Dedup(all)
}

func filterPredictions(all []prediction.Prediction, filter PredictionFilter) []prediction.Prediction {
	out := make([]prediction.Prediction, 0, len(all))
	for _, p := range all {
		if filter.Category != "" && !p.HasCategory(filter.Category) {
			continue
		}
		if filter.League != "" && !strings.EqualFold(p.League, filter.League) {
			continue
		}
		if p.Confidence < filter.MinConfidence {
			continue
		}
		out = append(out, p)
	}

	if filter.MinConfidence > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Confidence > out[j].Confidence
		})
	}
	return out
}

// classify folds context expiry into the taxonomy so the orchestrator and
// health reporting see a single timeout error shape.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConfig) || errors.Is(err, ErrUpstreamHTTP) ||
		errors.Is(err, ErrParse) || errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrDependencyUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || (ctx != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
