// Package oddsapi fetches bookmaker odds from the-odds-api.com.
package oddsapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/matchpulse/aggregator/internal/domain/match"
	"github.com/matchpulse/aggregator/internal/domain/odds"
	"github.com/matchpulse/aggregator/internal/platform/logging"
	"github.com/matchpulse/aggregator/internal/platform/resilience"
	"github.com/matchpulse/aggregator/internal/usecase"
)

const defaultBaseURL = "https://api.the-odds-api.com"

// sportKeys maps the engine's sport names onto provider sport keys. Soccer
// is deliberately absent: the provider splits it per league and the engine
// does not carry league-level fetch units for odds.
var sportKeys = map[string]string{
	match.SportNFL: "americanfootball_nfl",
	match.SportNBA: "basketball_nba",
	match.SportMLB: "baseball_mlb",
}

var apiKeyParamRegex = regexp.MustCompile(`apiKey=[^&\s"']+`)

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	APIKey         string
	Regions        string
	Markets        string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	regions        string
	markets        string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	regions := strings.TrimSpace(cfg.Regions)
	if regions == "" {
		regions = "us"
	}
	markets := strings.TrimSpace(cfg.Markets)
	if markets == "" {
		markets = "h2h,spreads,totals"
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		regions:        regions,
		markets:        markets,
		maxRetries:     cfg.MaxRetries,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

func (c *Client) Name() string {
	return "odds-api"
}

// FetchOdds returns one Quote per game per bookmaker. Missing h2h prices
// come through as 0, the provider's own no-data sentinel, so the engine
// never confuses "no price" with a real quote.
func (c *Client) FetchOdds(ctx context.Context, sport string) ([]odds.Quote, error) {
	sportKey, ok := sportKeys[sport]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported sport for odds: %s", usecase.ErrConfig, sport)
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: odds api key is required for betting odds", usecase.ErrConfig)
	}

	values := url.Values{}
	values.Set("apiKey", c.apiKey)
	values.Set("regions", c.regions)
	values.Set("markets", c.markets)
	values.Set("oddsFormat", "decimal")

	var games []gameOdds
	if err := c.doJSON(ctx, "/v4/sports/"+sportKey+"/odds?"+values.Encode(), &games); err != nil {
		return nil, err
	}

	quotes := make([]odds.Quote, 0, len(games))
	for _, game := range games {
		for _, bookmaker := range game.Bookmakers {
			quotes = append(quotes, mapQuote(game, bookmaker))
		}
	}
	return quotes, nil
}

func (c *Client) Probe(ctx context.Context, _ string) error {
	if c.apiKey == "" {
		return fmt.Errorf("%w: odds api key is not configured", usecase.ErrConfig)
	}
	var probe []struct{}
	return c.doJSON(ctx, "/v4/sports?apiKey="+url.QueryEscape(c.apiKey), &probe)
}

func (c *Client) doJSON(ctx context.Context, pathAndQuery string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "odds-api circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: odds provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	fullURL := c.baseURL + pathAndQuery
	out, err, _ := c.flight.Do(fullURL, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("%w: unexpected response payload type %T", usecase.ErrParse, out)
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: decode odds payload: %v", usecase.ErrParse, err)
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("send request: %s", redactKey(err.Error()))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("read response body: %w", readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
				lastErr = fmt.Errorf("%w: odds-api status=%d", usecase.ErrUpstreamHTTP, resp.StatusCode)
			default:
				return nil, fmt.Errorf("%w: odds-api status=%d", usecase.ErrUpstreamHTTP, resp.StatusCode)
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * 500 * time.Millisecond
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	c.logger.WarnContext(ctx, "odds-api request failed", "url", redactKey(fullURL), "error", lastErr)
	return nil, lastErr
}

func redactKey(value string) string {
	return apiKeyParamRegex.ReplaceAllString(value, "apiKey=REDACTED")
}

type gameOdds struct {
	ID         string          `json:"id"`
	HomeTeam   string          `json:"home_team"`
	AwayTeam   string          `json:"away_team"`
	Bookmakers []bookmakerItem `json:"bookmakers"`
}

type bookmakerItem struct {
	Title   string       `json:"title"`
	Markets []marketItem `json:"markets"`
}

type marketItem struct {
	Key      string        `json:"key"`
	Outcomes []outcomeItem `json:"outcomes"`
}

type outcomeItem struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Point float64 `json:"point"`
}

func mapQuote(game gameOdds, bookmaker bookmakerItem) odds.Quote {
	quote := odds.Quote{
		MatchID:   game.ID,
		Bookmaker: bookmaker.Title,
	}

	for _, market := range bookmaker.Markets {
		switch market.Key {
		case "h2h":
			for _, outcome := range market.Outcomes {
				switch {
				case strings.EqualFold(outcome.Name, game.HomeTeam):
					quote.HomeOdds = outcome.Price
				case strings.EqualFold(outcome.Name, game.AwayTeam):
					quote.AwayOdds = outcome.Price
				case strings.EqualFold(outcome.Name, "Draw"):
					price := outcome.Price
					quote.DrawOdds = &price
				}
			}
		case "totals":
			quote.OverUnder = extractOverUnder(market.Outcomes)
		}
	}
	return quote
}

// extractOverUnder only reports the totals line when both sides are priced;
// a one-sided line carries no usable market.
func extractOverUnder(outcomes []outcomeItem) *odds.OverUnder {
	var over, under *outcomeItem
	for i := range outcomes {
		switch {
		case strings.EqualFold(outcomes[i].Name, "Over"):
			over = &outcomes[i]
		case strings.EqualFold(outcomes[i].Name, "Under"):
			under = &outcomes[i]
		}
	}
	if over == nil || under == nil {
		return nil
	}

	total := over.Point
	if total == 0 {
		total = under.Point
	}
	return &odds.OverUnder{
		Total:     total,
		OverOdds:  over.Price,
		UnderOdds: under.Price,
	}
}
