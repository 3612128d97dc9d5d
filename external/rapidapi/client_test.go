package rapidapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

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
		BaseURL: server.URL,
		APIKey:  "test-key",
		Logger:  logging.NewNop(),
	})
}

func TestFetchMatches_NestedGameEnvelope(t *testing.T) {
	t.Parallel()

	payload := `{"response":[{
		"game":{"id":101,"date":{"start":"2026-03-01T18:00:00Z"},"status":{"short":"Q2"}},
		"teams":{"home":{"name":"Kansas City Chiefs"},"away":{"name":"Buffalo Bills"}},
		"scores":{"home":{"total":14},"away":{"total":10}}
	}]}`

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-RapidAPI-Key"); got != "test-key" {
			t.Errorf("missing api key header, got %q", got)
		}
		if got := r.Header.Get("X-RapidAPI-Host"); got != "api-american-football.p.rapidapi.com" {
			t.Errorf("unexpected host header %q", got)
		}
		_, _ = w.Write([]byte(payload))
	}))

	got, err := client.FetchMatches(context.Background(), match.SportNFL)
	if err != nil {
		t.Fatalf("fetch matches: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one match, got %d", len(got))
	}

	m := got[0]
	if m.ID != "101" || m.HomeTeam != "Kansas City Chiefs" || m.AwayTeam != "Buffalo Bills" {
		t.Fatalf("unexpected match: %+v", m)
	}
	if m.Status != match.StatusLive || m.RawStatus != "Q2" {
		t.Fatalf("expected live status from Q2, got %+v", m)
	}
	if m.HomeScore == nil || *m.HomeScore != 14 || m.AwayScore == nil || *m.AwayScore != 10 {
		t.Fatalf("unexpected scores: %+v", m)
	}
	if m.Source != "rapidapi" {
		t.Fatalf("unexpected source: %q", m.Source)
	}
}

func TestFetchMatches_FlatEnvelope(t *testing.T) {
	t.Parallel()

	payload := `{"response":[{
		"id":202,"date":"2026-03-01T19:30:00Z","status":{"short":"NS"},
		"teams":{"home":{"name":"Boston Celtics"},"away":{"name":"Miami Heat"}},
		"scores":{"home":{"total":null},"away":{"total":null}}
	}]}`

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(payload))
	}))

	got, err := client.FetchMatches(context.Background(), match.SportNBA)
	if err != nil {
		t.Fatalf("fetch matches: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one match, got %d", len(got))
	}
	if got[0].Status != match.StatusScheduled {
		t.Fatalf("expected scheduled status, got %+v", got[0])
	}
	if got[0].HomeScore != nil || got[0].AwayScore != nil {
		t.Fatalf("expected nil scores before tip-off, got %+v", got[0])
	}
}

func TestFetchMatches_SkipsMalformedGames(t *testing.T) {
	t.Parallel()

	payload := `{"response":[
		{"id":0,"teams":{"home":{"name":"A"},"away":{"name":"B"}}},
		{"id":303,"status":{"short":"FT"},"teams":{"home":{"name":"New York Yankees"},"away":{"name":"Boston Red Sox"}}}
	]}`

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(payload))
	}))

	got, err := client.FetchMatches(context.Background(), match.SportMLB)
	if err != nil {
		t.Fatalf("fetch matches: %v", err)
	}
	if len(got) != 1 || got[0].ID != "303" {
		t.Fatalf("expected only the well-formed game, got %+v", got)
	}
}

func TestFetchMatches_MissingKeyFailsBeforeNetwork(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		hits.Add(1)
	}))
	t.Cleanup(server.Close)

	client := NewClient(ClientConfig{BaseURL: server.URL, Logger: logging.NewNop()})

	_, err := client.FetchMatches(context.Background(), match.SportNFL)
	if !errors.Is(err, usecase.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("expected no network call without an api key")
	}
}

func TestFetchMatches_UnroutedSport(t *testing.T) {
	t.Parallel()

	client := NewClient(ClientConfig{APIKey: "k", Logger: logging.NewNop()})
	if _, err := client.FetchMatches(context.Background(), match.SportSoccer); !errors.Is(err, usecase.ErrConfig) {
		t.Fatalf("expected ErrConfig for unrouted sport, got %v", err)
	}
}

func TestFetchMatches_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"response":[]}`))
	}))
	t.Cleanup(server.Close)

	client := NewClient(ClientConfig{
		BaseURL:    server.URL,
		APIKey:     "k",
		MaxRetries: 2,
		Logger:     logging.NewNop(),
	})

	if _, err := client.FetchMatches(context.Background(), match.SportNFL); err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", hits.Load())
	}
}

func TestFetchMatches_ClientErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(server.Close)

	client := NewClient(ClientConfig{
		BaseURL:    server.URL,
		APIKey:     "k",
		MaxRetries: 3,
		Logger:     logging.NewNop(),
	})

	_, err := client.FetchMatches(context.Background(), match.SportNFL)
	if !errors.Is(err, usecase.ErrUpstreamHTTP) {
		t.Fatalf("expected ErrUpstreamHTTP, got %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected a single attempt on 403, got %d", hits.Load())
	}
}

func TestFetchMatches_CircuitBreakerRejects(t *testing.T) {
	t.Parallel()

	client := NewClient(ClientConfig{
		BaseURL: "http://127.0.0.1:1",
		APIKey:  "k",
		Logger:  logging.NewNop(),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 1,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	})

	if _, err := client.FetchMatches(context.Background(), match.SportNFL); err == nil {
		t.Fatalf("expected first call to fail")
	}
	_, err := client.FetchMatches(context.Background(), match.SportNFL)
	if !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected breaker rejection, got %v", err)
	}
}
