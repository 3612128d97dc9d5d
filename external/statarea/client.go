// Package statarea scrapes football tips from statarea.com. The site has no
// API: every listing page is fetched with browser-like headers, paced to
// avoid tripping its rate limiting, and parsed out of whichever of its HTML
// layouts the page happens to use.
package statarea

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/valyala/bytebufferpool"

	"github.com/matchpulse/aggregator/internal/domain/confidence"
	"github.com/matchpulse/aggregator/internal/domain/prediction"
	"github.com/matchpulse/aggregator/internal/platform/logging"
	"github.com/matchpulse/aggregator/internal/platform/resilience"
	"github.com/matchpulse/aggregator/internal/usecase"
)

const (
	defaultBaseURL   = "https://www.statarea.com"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	maxDocumentBytes = 4 << 20
	previewBytes     = 256
)

// defaultEndpoints are the listing pages walked on every scrape, in order.
// Each covers a different tip category; overlap between them is expected
// and handled downstream.
var defaultEndpoints = []string{
	"/predictions/today",
	"/predictions/tomorrow",
	"/soccer-predictions",
	"/football-predictions",
	"/predictions/1x2",
	"/predictions/over-under",
	"/predictions/both-teams-to-score",
}

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Endpoints      []string
	Timeout        time.Duration
	Pacer          *resilience.Pacer
	Bounds         confidence.Bounds
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Client struct {
	httpClient     *http.Client
	baseURL        string
	endpoints      []string
	pacer          *resilience.Pacer
	bounds         confidence.Bounds
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
	endpoints := cfg.Endpoints
	if len(endpoints) == 0 {
		endpoints = defaultEndpoints
	}
	pacer := cfg.Pacer
	if pacer == nil {
		pacer = resilience.NewPacer(1, time.Second)
	}
	bounds := cfg.Bounds
	if bounds == (confidence.Bounds{}) {
		bounds = confidence.DefaultBounds()
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		endpoints:      endpoints,
		pacer:          pacer,
		bounds:         bounds,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

func (c *Client) Name() string {
	return "statarea"
}

// FetchPredictions walks every endpoint sequentially under the pacer. A
// failing endpoint is logged and skipped; only context expiry aborts the
// walk early.
func (c *Client) FetchPredictions(ctx context.Context) ([]prediction.Prediction, error) {
	all := make([]prediction.Prediction, 0, 64)
	for _, endpoint := range c.endpoints {
		if err := c.pacer.Wait(ctx); err != nil {
			return all, err
		}

		records, err := c.fetchEndpoint(ctx, endpoint)
		if err != nil {
			if ctx.Err() != nil {
				return all, ctx.Err()
			}
			c.logger.WarnContext(ctx, "statarea endpoint failed", "endpoint", endpoint, "error", err)
			continue
		}
		all = append(all, records...)
	}
	return all, nil
}

func (c *Client) Probe(ctx context.Context, _ string) error {
	if err := c.pacer.Wait(ctx); err != nil {
		return err
	}
	_, err := c.fetchEndpoint(ctx, c.endpoints[0])
	return err
}

func (c *Client) fetchEndpoint(ctx context.Context, endpoint string) ([]prediction.Prediction, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "statarea circuit breaker rejected request", "state", c.breaker.State())
			return nil, fmt.Errorf("%w: statarea is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	doc, preview, err := c.fetchDocument(ctx, c.baseURL+endpoint)
	if c.circuitEnabled {
		if err != nil {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
	}
	if err != nil {
		return nil, err
	}

	records := parseDocument(doc, endpoint, c.bounds, time.Now().UTC())
	c.logger.DebugContext(ctx, "statarea endpoint parsed",
		"endpoint", endpoint, "predictions", len(records), "preview", preview)
	return records, nil
}

// fetchDocument reads the page through a pooled buffer so scrape bursts do
// not churn large allocations, and returns a short head-of-document preview
// for debug logging.
func (c *Client) fetchDocument(ctx context.Context, fullURL string) (*goquery.Document, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("%w: statarea status=%d", usecase.ErrUpstreamHTTP, resp.StatusCode)
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if _, err := io.Copy(buf, io.LimitReader(resp.Body, maxDocumentBytes)); err != nil {
		return nil, "", fmt.Errorf("read response body: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(buf.B))
	if err != nil {
		return nil, "", fmt.Errorf("%w: parse statarea html: %v", usecase.ErrParse, err)
	}

	preview := buf.B
	if len(preview) > previewBytes {
		preview = preview[:previewBytes]
	}
	return doc, string(preview), nil
}
