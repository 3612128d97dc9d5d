package flashscore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/matchpulse/aggregator/internal/domain/match"
	"github.com/matchpulse/aggregator/internal/platform/logging"
	"github.com/matchpulse/aggregator/internal/platform/resilience"
	"github.com/matchpulse/aggregator/internal/usecase"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(ClientConfig{
		HTTPClient: server.Client(),
		BaseURL:    server.URL,
		Logger:     logging.NewNop(),
	})
}

func TestFetchMatches_ParsesFeedRows(t *testing.T) {
	t.Parallel()

	feed := "SA÷1½ZA÷England\n" + // control record, no pipe
		"g_1_abc~AA|1~Arsenal~Chelsea~2~1\n" +
		"g_1_def~AA|1~Everton~Fulham~-~-\n" +
		"short~AA|1~only\n" + // too few fields
		"g_1_ghi~AA|1~~Spurs~0~0\n" // empty home team

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != feedPath {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("unexpected content type %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != feedCommand {
			t.Errorf("unexpected feed command %q", body)
		}
		_, _ = w.Write([]byte(feed))
	}))

	got, err := client.FetchMatches(context.Background(), match.SportSoccer)
	if err != nil {
		t.Fatalf("fetch matches: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected two matches, got %d: %+v", len(got), got)
	}

	first := got[0]
	if first.ID != "g_1_abc" || first.HomeTeam != "Arsenal" || first.AwayTeam != "Chelsea" {
		t.Fatalf("unexpected first row: %+v", first)
	}
	if first.Status != match.StatusLive || first.RawStatus != "Live" {
		t.Fatalf("feed rows should report live status, got %+v", first)
	}
	if first.HomeScore == nil || *first.HomeScore != 2 || first.AwayScore == nil || *first.AwayScore != 1 {
		t.Fatalf("unexpected first row scores: %+v", first)
	}
	if first.Source != "flashscore" || first.Sport != match.SportSoccer {
		t.Fatalf("unexpected row attribution: %+v", first)
	}

	// Non-numeric score fields stay unset rather than defaulting to zero.
	second := got[1]
	if second.HomeScore != nil || second.AwayScore != nil {
		t.Fatalf("expected nil scores for pre-kickoff row, got %+v", second)
	}
}

func TestFetchMatches_RejectsOtherSports(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("g_1_abc~AA|1~Arsenal~Chelsea~2~1"))
	}))

	_, err := client.FetchMatches(context.Background(), match.SportNFL)
	if !errors.Is(err, usecase.ErrConfig) {
		t.Fatalf("expected config error for non-soccer sport, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("sport check should fail before any request, saw %d", hits.Load())
	}
}

func TestFetchMatches_UpstreamErrorSurfaces(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := client.FetchMatches(context.Background(), match.SportSoccer)
	if !errors.Is(err, usecase.ErrUpstreamHTTP) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestFetchMatches_CircuitBreakerRejectsWhenOpen(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	client := NewClient(ClientConfig{
		HTTPClient: server.Client(),
		BaseURL:    server.URL,
		Logger:     logging.NewNop(),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 1,
		},
	})

	if _, err := client.FetchMatches(context.Background(), match.SportSoccer); !errors.Is(err, usecase.ErrUpstreamHTTP) {
		t.Fatalf("expected upstream error on first call, got %v", err)
	}
	if _, err := client.FetchMatches(context.Background(), match.SportSoccer); !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected open circuit to reject second call, got %v", err)
	}
}

func TestProbe(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("g_1_abc~AA|1~Arsenal~Chelsea~2~1"))
	}))

	if err := client.Probe(context.Background(), match.SportSoccer); err != nil {
		t.Fatalf("probe: %v", err)
	}
}
