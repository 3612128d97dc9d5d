package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/matchpulse/aggregator/external/espn"
	"github.com/matchpulse/aggregator/external/flashscore"
	"github.com/matchpulse/aggregator/external/footballdata"
	"github.com/matchpulse/aggregator/external/oddsapi"
	"github.com/matchpulse/aggregator/external/rapidapi"
	"github.com/matchpulse/aggregator/external/statarea"
	"github.com/matchpulse/aggregator/internal/config"
	"github.com/matchpulse/aggregator/internal/domain/confidence"
	"github.com/matchpulse/aggregator/internal/domain/match"
	"github.com/matchpulse/aggregator/internal/infrastructure/enrich"
	"github.com/matchpulse/aggregator/internal/interfaces/httpapi"
	"github.com/matchpulse/aggregator/internal/platform/logging"
	"github.com/matchpulse/aggregator/internal/platform/resilience"
	"github.com/matchpulse/aggregator/internal/usecase"
)

// App bundles the HTTP server with the services that need an explicit stop.
type App struct {
	Server     *http.Server
	aggregator *usecase.AggregatorService
}

func (a *App) Close() {
	if a.aggregator != nil {
		a.aggregator.Close()
	}
}

func New(cfg config.Config, logger *logging.Logger, accessLogger *slog.Logger) (*App, error) {
	rapid := rapidapi.NewClient(rapidapi.ClientConfig{
		APIKey:         cfg.RapidAPIKey,
		Timeout:        cfg.RapidAPITimeout,
		MaxRetries:     cfg.RapidAPIMaxRetries,
		Logger:         logger,
		CircuitBreaker: breakerConfig(cfg.RapidAPICircuit),
	})

	fd := footballdata.NewClient(footballdata.ClientConfig{
		Token:          cfg.FootballDataToken,
		Competition:    cfg.FootballDataCompetition,
		Timeout:        cfg.FootballDataTimeout,
		MaxRetries:     cfg.FootballDataMaxRetries,
		Logger:         logger,
		CircuitBreaker: breakerConfig(cfg.FootballDataCircuit),
	})

	free := espn.NewClient(espn.ClientConfig{
		BaseURL:        cfg.ESPNBaseURL,
		Timeout:        cfg.ESPNTimeout,
		MaxRetries:     cfg.ESPNMaxRetries,
		Logger:         logger,
		CircuitBreaker: breakerConfig(cfg.ESPNCircuit),
	})

	odds := oddsapi.NewClient(oddsapi.ClientConfig{
		APIKey:         cfg.OddsAPIKey,
		Regions:        cfg.OddsAPIRegions,
		Markets:        cfg.OddsAPIMarkets,
		Timeout:        cfg.OddsAPITimeout,
		MaxRetries:     cfg.OddsAPIMaxRetries,
		Logger:         logger,
		CircuitBreaker: breakerConfig(cfg.OddsAPICircuit),
	})

	scraper := statarea.NewClient(statarea.ClientConfig{
		BaseURL:        cfg.StatareaBaseURL,
		Timeout:        cfg.StatareaTimeout,
		Pacer:          resilience.NewPacer(cfg.StatareaPaceUnit, cfg.StatareaPaceWindow),
		Bounds:         bounds(cfg),
		Logger:         logger,
		CircuitBreaker: breakerConfig(cfg.StatareaCircuit),
	})

	soccerChain := []usecase.MatchSource{fd, free}
	probes := []usecase.HealthProbe{
		usecase.NewProbe("rapidapi-nfl", sportProbe(rapid, match.SportNFL)),
		usecase.NewProbe("rapidapi-nba", sportProbe(rapid, match.SportNBA)),
		usecase.NewProbe("rapidapi-mlb", sportProbe(rapid, match.SportMLB)),
		usecase.NewProbe("football-data", sportProbe(fd, match.SportSoccer)),
		usecase.NewProbe("espn-nfl", sportProbe(free, match.SportNFL)),
		usecase.NewProbe("espn-nba", sportProbe(free, match.SportNBA)),
		usecase.NewProbe("espn-mlb", sportProbe(free, match.SportMLB)),
		usecase.NewProbe("statarea", sportProbe(scraper, "")),
		usecase.NewProbe("odds-api", sportProbe(odds, "")),
	}

	if cfg.FlashscoreEnabled {
		feed := flashscore.NewClient(flashscore.ClientConfig{
			BaseURL:        cfg.FlashscoreBaseURL,
			Timeout:        cfg.FlashscoreTimeout,
			Logger:         logger,
			CircuitBreaker: breakerConfig(cfg.FlashscoreCircuit),
		})
		soccerChain = append(soccerChain, feed)
		probes = append(probes, usecase.NewProbe("flashscore", sportProbe(feed, "")))
	}

	aggregator, err := usecase.NewAggregatorService(usecase.AggregatorConfig{
		Chains: []usecase.SourceChain{
			{Sport: match.SportNFL, Sources: []usecase.MatchSource{rapid, free}},
			{Sport: match.SportNBA, Sources: []usecase.MatchSource{rapid, free}},
			{Sport: match.SportMLB, Sources: []usecase.MatchSource{rapid, free}},
			{Sport: match.SportSoccer, Sources: soccerChain},
		},
		Odds:              odds,
		PredictionSources: []usecase.PredictionSource{scraper},
		Probes:            probes,
		MatchTTL:          cfg.MatchCacheTTL,
		OddsTTL:           cfg.OddsCacheTTL,
		PredictionTTL:     cfg.PredictionCacheTTL,
		CallTimeout:       cfg.SourceCallTimeout,
		ProbeTimeout:      cfg.ProbeTimeout,
		FetchWorkers:      cfg.FetchWorkers,
		Bounds:            bounds(cfg),
		Logger:            logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build aggregator: %w", err)
	}

	enrichment := usecase.NewEnrichmentService(usecase.EnrichmentConfig{
		Aggregator:   aggregator,
		Enricher:     enrich.NewSimulated(),
		ClassTTL:     cfg.EnrichmentCacheTTL,
		ClassTimeout: cfg.EnrichmentTimeout,
		Logger:       logger,
	})

	handler := httpapi.NewHandler(aggregator, enrichment, accessLogger)
	router := httpapi.NewRouter(handler, accessLogger, cfg.CORSAllowedOrigins)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		aggregator.Close()
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return &App{Server: server, aggregator: aggregator}, nil
}

type sportProber interface {
	Probe(ctx context.Context, sport string) error
}

func sportProbe(p sportProber, sport string) func(context.Context) error {
	return func(ctx context.Context) error {
		return p.Probe(ctx, sport)
	}
}

func breakerConfig(s config.CircuitSettings) resilience.CircuitBreakerConfig {
	return resilience.CircuitBreakerConfig{
		Enabled:          s.Enabled,
		FailureThreshold: s.FailureCount,
		OpenTimeout:      s.OpenTimeout,
		HalfOpenMaxReq:   s.HalfOpenMaxReq,
	}
}

func bounds(cfg config.Config) confidence.Bounds {
	return confidence.Bounds{
		Default:    cfg.ConfidenceDefault,
		ImpliedMin: cfg.ConfidenceImpliedMin,
		ImpliedMax: cfg.ConfidenceImpliedMax,
	}
}
