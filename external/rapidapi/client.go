// Package rapidapi fetches NFL, NBA and MLB games from the RapidAPI sports
// hosts. One client covers all three: the hosts share auth headers and a
// games envelope, only the host name and query differ per sport.
package rapidapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/matchpulse/aggregator/internal/domain/match"
	"github.com/matchpulse/aggregator/internal/platform/logging"
	"github.com/matchpulse/aggregator/internal/platform/resilience"
	"github.com/matchpulse/aggregator/internal/usecase"
)

type sportRoute struct {
	host  string
	query string
}

var routes = map[string]sportRoute{
	match.SportNFL: {host: "api-american-football.p.rapidapi.com", query: "league=1&season=2025"},
	match.SportNBA: {host: "api-basketball.p.rapidapi.com", query: "league=12&season=2024-2025"},
	match.SportMLB: {host: "api-baseball.p.rapidapi.com", query: "league=1&season=2025"},
}

type ClientConfig struct {
	HTTPClient *http.Client
	// BaseURL, when set, replaces the per-sport https host. Used by tests
	// and proxies; production leaves it empty.
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
	now            func() time.Time
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

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)
	return &Client{
		httpClient:     httpClient,
		baseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:         strings.TrimSpace(cfg.APIKey),
		maxRetries:     cfg.MaxRetries,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
		now:            time.Now,
	}
}

func (c *Client) Name() string {
	return "rapidapi"
}

// FetchMatches pulls today's games for one sport. A missing key or an
// unrouted sport fails before any network call so the fallback chain can
// advance immediately.
func (c *Client) FetchMatches(ctx context.Context, sport string) ([]match.Match, error) {
	route, ok := routes[sport]
	if !ok {
		return nil, fmt.Errorf("%w: rapidapi has no host for sport %q", usecase.ErrConfig, sport)
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: rapidapi key is required for %s data", usecase.ErrConfig, sport)
	}

	var envelope gamesEnvelope
	if err := c.doJSON(ctx, route, "/games?"+route.query, &envelope); err != nil {
		return nil, err
	}

	matches := make([]match.Match, 0, len(envelope.Response))
	for _, item := range envelope.Response {
		mapped, err := item.toMatch(sport, c.now())
		if err != nil {
			c.logger.WarnContext(ctx, "skip malformed rapidapi game",
				"sport", sport, "error", fmt.Errorf("%w: %v", usecase.ErrParse, err))
			continue
		}
		mapped.Source = c.Name()
		matches = append(matches, mapped)
	}
	return matches, nil
}

// Probe reports reachability for one sport's host without decoding the
// full payload.
func (c *Client) Probe(ctx context.Context, sport string) error {
	route, ok := routes[sport]
	if !ok {
		return fmt.Errorf("%w: rapidapi has no host for sport %q", usecase.ErrConfig, sport)
	}
	if c.apiKey == "" {
		return fmt.Errorf("%w: rapidapi key is not configured", usecase.ErrConfig)
	}
	var probe struct{}
	return c.doJSON(ctx, route, "/status", &probe)
}

func (c *Client) doJSON(ctx context.Context, route sportRoute, pathAndQuery string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "rapidapi circuit breaker rejected request",
				"host", route.host, "state", c.breaker.State())
			return fmt.Errorf("%w: rapidapi host %s is temporarily unavailable", usecase.ErrDependencyUnavailable, route.host)
		}
	}

	fullURL := "https://" + route.host + pathAndQuery
	if c.baseURL != "" {
		fullURL = c.baseURL + pathAndQuery
	}

	out, err, _ := c.flight.Do(fullURL, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL, route.host)
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
		return fmt.Errorf("%w: decode rapidapi payload: %v", usecase.ErrParse, err)
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL, host string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("X-RapidAPI-Key", c.apiKey)
		req.Header.Set("X-RapidAPI-Host", host)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("send request: %w", err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("read response body: %w", readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case retryableStatus(resp.StatusCode):
				lastErr = fmt.Errorf("%w: rapidapi status=%d", usecase.ErrUpstreamHTTP, resp.StatusCode)
			default:
				return nil, fmt.Errorf("%w: rapidapi status=%d", usecase.ErrUpstreamHTTP, resp.StatusCode)
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

	c.logger.WarnContext(ctx, "rapidapi request failed", "host", host, "error", lastErr)
	return nil, lastErr
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

type gamesEnvelope struct {
	Response []gameItem `json:"response"`
}

// gameItem covers both envelope shapes the hosts use: the american-football
// host nests game metadata under "game", basketball and baseball keep it at
// the top level.
type gameItem struct {
	ID     int64      `json:"id"`
	Date   string     `json:"date"`
	Status statusItem `json:"status"`
	Game   *innerGame `json:"game"`
	Teams  teamsItem  `json:"teams"`
	Scores scoresItem `json:"scores"`
}

type innerGame struct {
	ID     int64      `json:"id"`
	Date   dateItem   `json:"date"`
	Status statusItem `json:"status"`
}

type dateItem struct {
	Start string `json:"start"`
	Date  string `json:"date"`
}

type statusItem struct {
	Short string `json:"short"`
	Long  string `json:"long"`
}

type teamsItem struct {
	Home sideTeam `json:"home"`
	Away sideTeam `json:"away"`
}

type sideTeam struct {
	Name string `json:"name"`
}

type scoresItem struct {
	Home sideScore `json:"home"`
	Away sideScore `json:"away"`
}

type sideScore struct {
	Total *int `json:"total"`
}

func (g gameItem) toMatch(sport string, fetchedAt time.Time) (match.Match, error) {
	id := g.ID
	rawStatus := g.Status.Short
	rawDate := g.Date
	if g.Game != nil {
		id = g.Game.ID
		rawStatus = g.Game.Status.Short
		if g.Game.Date.Start != "" {
			rawDate = g.Game.Date.Start
		} else {
			rawDate = g.Game.Date.Date
		}
	}
	if id <= 0 {
		return match.Match{}, fmt.Errorf("game id missing")
	}
	if g.Teams.Home.Name == "" || g.Teams.Away.Name == "" {
		return match.Match{}, fmt.Errorf("team names missing for game %d", id)
	}

	return match.Match{
		ID:        strconv.FormatInt(id, 10),
		Sport:     sport,
		HomeTeam:  g.Teams.Home.Name,
		AwayTeam:  g.Teams.Away.Name,
		KickoffAt: parseGameTime(rawDate),
		Status:    match.NormalizeStatus(rawStatus),
		RawStatus: rawStatus,
		HomeScore: g.Scores.Home.Total,
		AwayScore: g.Scores.Away.Total,
		FetchedAt: fetchedAt,
	}, nil
}

func parseGameTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z07:00", "2006-01-02 15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}
