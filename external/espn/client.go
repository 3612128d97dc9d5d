// Package espn fetches scoreboards from ESPN's free site API. It needs no
// credentials, which makes it the fallback of last resort in every chain.
package espn

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

const defaultBaseURL = "https://site.api.espn.com/apis/site/v2/sports"

var scoreboardPaths = map[string]string{
	match.SportNFL:    "/football/nfl/scoreboard",
	match.SportNBA:    "/basketball/nba/scoreboard",
	match.SportMLB:    "/baseball/mlb/scoreboard",
	match.SportSoccer: "/soccer/eng.1/scoreboard",
}

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Client struct {
	httpClient     *http.Client
	baseURL        string
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

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		maxRetries:     cfg.MaxRetries,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
		now:            time.Now,
	}
}

func (c *Client) Name() string {
	return "espn"
}

func (c *Client) FetchMatches(ctx context.Context, sport string) ([]match.Match, error) {
	path, ok := scoreboardPaths[sport]
	if !ok {
		return nil, fmt.Errorf("%w: espn has no scoreboard for sport %q", usecase.ErrConfig, sport)
	}

	var envelope scoreboardEnvelope
	if err := c.doJSON(ctx, path, &envelope); err != nil {
		return nil, err
	}

	matches := make([]match.Match, 0, len(envelope.Events))
	for _, event := range envelope.Events {
		mapped, err := event.toMatch(sport, c.now())
		if err != nil {
			c.logger.WarnContext(ctx, "skip malformed espn event",
				"sport", sport, "error", fmt.Errorf("%w: %v", usecase.ErrParse, err))
			continue
		}
		mapped.Source = c.Name()
		matches = append(matches, mapped)
	}
	return matches, nil
}

func (c *Client) Probe(ctx context.Context, sport string) error {
	path, ok := scoreboardPaths[sport]
	if !ok {
		return fmt.Errorf("%w: espn has no scoreboard for sport %q", usecase.ErrConfig, sport)
	}
	var probe struct{}
	return c.doJSON(ctx, path, &probe)
}

func (c *Client) doJSON(ctx context.Context, path string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "espn circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: espn is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	fullURL := c.baseURL + path
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
		return fmt.Errorf("%w: decode espn payload: %v", usecase.ErrParse, err)
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
			lastErr = fmt.Errorf("send request: %w", err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("read response body: %w", readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
				lastErr = fmt.Errorf("%w: espn status=%d", usecase.ErrUpstreamHTTP, resp.StatusCode)
			default:
				return nil, fmt.Errorf("%w: espn status=%d", usecase.ErrUpstreamHTTP, resp.StatusCode)
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

	c.logger.WarnContext(ctx, "espn request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

type scoreboardEnvelope struct {
	Events []eventItem `json:"events"`
}

type eventItem struct {
	ID           string            `json:"id"`
	Date         string            `json:"date"`
	Status       eventStatus       `json:"status"`
	Competitions []competitionItem `json:"competitions"`
}

type eventStatus struct {
	Type struct {
		State       string `json:"state"`
		Description string `json:"description"`
	} `json:"type"`
}

type competitionItem struct {
	Competitors []competitorItem `json:"competitors"`
}

type competitorItem struct {
	HomeAway string `json:"homeAway"`
	Score    string `json:"score"`
	Team     struct {
		DisplayName string `json:"displayName"`
	} `json:"team"`
}

func (e eventItem) toMatch(sport string, fetchedAt time.Time) (match.Match, error) {
	if e.ID == "" {
		return match.Match{}, fmt.Errorf("event id missing")
	}
	if len(e.Competitions) == 0 {
		return match.Match{}, fmt.Errorf("event %s has no competitions", e.ID)
	}

	var home, away competitorItem
	for _, competitor := range e.Competitions[0].Competitors {
		switch competitor.HomeAway {
		case "home":
			home = competitor
		case "away":
			away = competitor
		}
	}
	if home.Team.DisplayName == "" || away.Team.DisplayName == "" {
		return match.Match{}, fmt.Errorf("event %s is missing a competitor", e.ID)
	}

	rawStatus := e.Status.Type.Description
	status := match.NormalizeStatus(e.Status.Type.State)
	if status == match.StatusUnknown {
		status = match.NormalizeStatus(rawStatus)
	}

	kickoff := time.Time{}
	if parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Date)); err == nil {
		kickoff = parsed.UTC()
	}

	return match.Match{
		ID:        e.ID,
		Sport:     sport,
		HomeTeam:  home.Team.DisplayName,
		AwayTeam:  away.Team.DisplayName,
		KickoffAt: kickoff,
		Status:    status,
		RawStatus: rawStatus,
		HomeScore: parseScore(home.Score),
		AwayScore: parseScore(away.Score),
		FetchedAt: fetchedAt,
	}, nil
}

// parseScore keeps ESPN's string scores as absent rather than zero when
// they are empty or malformed, so pre-game events carry no score at all.
func parseScore(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return match.IntPtr(value)
}
