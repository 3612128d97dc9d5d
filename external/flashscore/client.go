// Package flashscore pulls live soccer scores from flashscore's feed
// endpoint. The feed is not JSON: rows are newline-separated records with
// tilde-delimited fields, so parsing is line-oriented and best-effort.
package flashscore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/matchpulse/aggregator/internal/domain/match"
	"github.com/matchpulse/aggregator/internal/platform/logging"
	"github.com/matchpulse/aggregator/internal/platform/resilience"
	"github.com/matchpulse/aggregator/internal/usecase"
)

const (
	defaultBaseURL = "https://www.flashscore.com"
	feedPath       = "/x/feed/proxy-dienst"
	feedCommand    = `commands=[{"type":"live-score","params":{"sport":"football"}}]`
	maxFeedBytes   = 4 << 20
)

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Timeout        time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Client struct {
	httpClient     *http.Client
	baseURL        string
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
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
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
		now:            time.Now,
	}
}

func (c *Client) Name() string {
	return "flashscore"
}

func (c *Client) FetchMatches(ctx context.Context, sport string) ([]match.Match, error) {
	if sport != match.SportSoccer {
		return nil, fmt.Errorf("%w: flashscore feed only serves soccer, got %q", usecase.ErrConfig, sport)
	}

	raw, err := c.fetchFeed(ctx)
	if err != nil {
		return nil, err
	}
	return c.parseFeed(raw), nil
}

func (c *Client) Probe(ctx context.Context, _ string) error {
	_, err := c.fetchFeed(ctx)
	return err
}

func (c *Client) fetchFeed(ctx context.Context) (string, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "flashscore circuit breaker rejected request", "state", c.breaker.State())
			return "", fmt.Errorf("%w: flashscore is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	raw, err := c.postFeed(ctx)
	if c.circuitEnabled {
		if err != nil {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
	}
	return raw, err
}

func (c *Client) postFeed(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+feedPath, strings.NewReader(feedCommand))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Referer", defaultBaseURL+"/")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: flashscore status=%d", usecase.ErrUpstreamHTTP, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return "", fmt.Errorf("read feed body: %w", err)
	}
	return string(raw), nil
}

// parseFeed extracts score rows from the feed. Only lines carrying both
// delimiters are candidate rows; anything that does not yield at least an
// id and two team names is skipped silently, since most feed lines are
// control records rather than matches.
func (c *Client) parseFeed(raw string) []match.Match {
	fetchedAt := c.now()
	matches := make([]match.Match, 0, 16)

	for _, line := range strings.Split(raw, "\n") {
		if !strings.Contains(line, "~") || !strings.Contains(line, "|") {
			continue
		}
		parts := strings.Split(line, "~")
		if len(parts) < 5 {
			continue
		}

		id := strings.TrimSpace(parts[0])
		home := strings.TrimSpace(parts[2])
		away := strings.TrimSpace(parts[3])
		if id == "" || home == "" || away == "" {
			continue
		}

		m := match.Match{
			ID:        id,
			Sport:     match.SportSoccer,
			HomeTeam:  home,
			AwayTeam:  away,
			KickoffAt: fetchedAt,
			Status:    match.StatusLive,
			RawStatus: "Live",
			HomeScore: parseFeedScore(parts, 4),
			AwayScore: parseFeedScore(parts, 5),
			Source:    c.Name(),
			FetchedAt: fetchedAt,
		}
		matches = append(matches, m)
	}
	return matches
}

func parseFeedScore(parts []string, index int) *int {
	if index >= len(parts) {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(parts[index]))
	if err != nil {
		return nil
	}
	return match.IntPtr(value)
}
