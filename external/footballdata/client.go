// Package footballdata fetches soccer fixtures from football-data.org.
package footballdata

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

const (
	defaultBaseURL     = "https://api.football-data.org"
	defaultCompetition = "PL"
)

type ClientConfig struct {
	HTTPClient *http.Client
	BaseURL    string
	Token      string
	// Competition is the football-data.org competition code, Premier
	// League when empty.
	Competition    string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Client struct {
	httpClient     *http.Client
	baseURL        string
	token          string
	competition    string
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
	competition := strings.TrimSpace(cfg.Competition)
	if competition == "" {
		competition = defaultCompetition
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		token:          strings.TrimSpace(cfg.Token),
		competition:    competition,
		maxRetries:     cfg.MaxRetries,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
		now:            time.Now,
	}
}

func (c *Client) Name() string {
	return "football-data"
}

func (c *Client) FetchMatches(ctx context.Context, sport string) ([]match.Match, error) {
	if sport != match.SportSoccer {
		return nil, fmt.Errorf("%w: football-data only serves soccer, got %q", usecase.ErrConfig, sport)
	}
	if c.token == "" {
		return nil, fmt.Errorf("%w: football-data.org token is required for soccer data", usecase.ErrConfig)
	}

	var envelope matchesEnvelope
	if err := c.doJSON(ctx, "/v4/competitions/"+c.competition+"/matches", &envelope); err != nil {
		return nil, err
	}

	matches := make([]match.Match, 0, len(envelope.Matches))
	for _, item := range envelope.Matches {
		if item.ID <= 0 || item.HomeTeam.Name == "" || item.AwayTeam.Name == "" {
			c.logger.WarnContext(ctx, "skip malformed football-data match",
				"error", fmt.Errorf("%w: match %d is missing id or team names", usecase.ErrParse, item.ID))
			continue
		}

		kickoff := time.Time{}
		if parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(item.UTCDate)); err == nil {
			kickoff = parsed.UTC()
		}

		matches = append(matches, match.Match{
			ID:        strconv.FormatInt(item.ID, 10),
			Sport:     match.SportSoccer,
			HomeTeam:  item.HomeTeam.Name,
			AwayTeam:  item.AwayTeam.Name,
			KickoffAt: kickoff,
			Status:    match.NormalizeStatus(item.Status),
			RawStatus: item.Status,
			HomeScore: item.Score.FullTime.Home,
			AwayScore: item.Score.FullTime.Away,
			Source:    c.Name(),
			FetchedAt: c.now(),
		})
	}
	return matches, nil
}

func (c *Client) Probe(ctx context.Context, _ string) error {
	if c.token == "" {
		return fmt.Errorf("%w: football-data.org token is not configured", usecase.ErrConfig)
	}
	var probe struct{}
	return c.doJSON(ctx, "/v4/competitions/"+c.competition, &probe)
}

func (c *Client) doJSON(ctx context.Context, path string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "football-data circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: football-data is temporarily unavailable", usecase.ErrDependencyUnavailable)
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
		return fmt.Errorf("%w: decode football-data payload: %v", usecase.ErrParse, err)
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
		req.Header.Set("X-Auth-Token", c.token)
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
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
				lastErr = fmt.Errorf("%w: football-data status=%d", usecase.ErrUpstreamHTTP, resp.StatusCode)
			default:
				return nil, fmt.Errorf("%w: football-data status=%d", usecase.ErrUpstreamHTTP, resp.StatusCode)
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

	c.logger.WarnContext(ctx, "football-data request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

type matchesEnvelope struct {
	Matches []matchItem `json:"matches"`
}

type matchItem struct {
	ID       int64  `json:"id"`
	UTCDate  string `json:"utcDate"`
	Status   string `json:"status"`
	HomeTeam struct {
		Name string `json:"name"`
	} `json:"homeTeam"`
	AwayTeam struct {
		Name string `json:"name"`
	} `json:"awayTeam"`
	Score struct {
		FullTime struct {
			Home *int `json:"home"`
			Away *int `json:"away"`
		} `json:"fullTime"`
	} `json:"score"`
}
