package oddsapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/matchpulse/aggregator/internal/domain/match"
	"github.com/matchpulse/aggregator/internal/platform/logging"
	"github.com/matchpulse/aggregator/internal/usecase"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(ClientConfig{BaseURL: server.URL, APIKey: "secret-key", Logger: logging.NewNop()})
}

func TestFetchOdds_OneQuotePerBookmaker(t *testing.T) {
	t.Parallel()

	payload := `[{
		"id":"game-1",
		"home_team":"Kansas City Chiefs",
		"away_team":"Buffalo Bills",
		"bookmakers":[
			{"title":"DraftKings","markets":[
				{"key":"h2h","outcomes":[
					{"name":"Kansas City Chiefs","price":1.85},
					{"name":"Buffalo Bills","price":2.05}
				]},
				{"key":"totals","outcomes":[
					{"name":"Over","price":1.9,"point":47.5},
					{"name":"Under","price":1.9,"point":47.5}
				]}
			]},
			{"title":"FanDuel","markets":[
				{"key":"h2h","outcomes":[
					{"name":"Kansas City Chiefs","price":1.87},
					{"name":"Buffalo Bills","price":2.02}
				]}
			]}
		]
	}]`

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v4/sports/americanfootball_nfl/odds") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("apiKey") != "secret-key" || q.Get("oddsFormat") != "decimal" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		if q.Get("regions") != "us" || q.Get("markets") != "h2h,spreads,totals" {
			t.Errorf("expected default regions and markets, got %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(payload))
	}))

	got, err := client.FetchOdds(context.Background(), match.SportNFL)
	if err != nil {
		t.Fatalf("fetch odds: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected one quote per bookmaker, got %d", len(got))
	}

	dk := got[0]
	if dk.Bookmaker != "DraftKings" || dk.HomeOdds != 1.85 || dk.AwayOdds != 2.05 {
		t.Fatalf("unexpected quote: %+v", dk)
	}
	if dk.OverUnder == nil || dk.OverUnder.Total != 47.5 || dk.OverUnder.OverOdds != 1.9 {
		t.Fatalf("unexpected totals market: %+v", dk.OverUnder)
	}
	if got[1].OverUnder != nil {
		t.Fatalf("expected no totals for the bookmaker without the market")
	}
}

func TestFetchOdds_DrawOutcomeAndZeroSentinel(t *testing.T) {
	t.Parallel()

	payload := `[{
		"id":"game-2",
		"home_team":"Home",
		"away_team":"Away",
		"bookmakers":[{"title":"Bet365","markets":[
			{"key":"h2h","outcomes":[
				{"name":"Home","price":2.1},
				{"name":"Draw","price":3.4}
			]}
		]}]
	}]`

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(payload))
	}))

	got, err := client.FetchOdds(context.Background(), match.SportNBA)
	if err != nil {
		t.Fatalf("fetch odds: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one quote, got %d", len(got))
	}

	q := got[0]
	if q.DrawOdds == nil || *q.DrawOdds != 3.4 {
		t.Fatalf("expected draw odds, got %+v", q)
	}
	if q.AwayOdds != 0 {
		t.Fatalf("expected missing away price to stay the 0 sentinel, got %v", q.AwayOdds)
	}
}

func TestFetchOdds_OneSidedTotalsDropped(t *testing.T) {
	t.Parallel()

	payload := `[{
		"id":"game-3",
		"home_team":"H","away_team":"A",
		"bookmakers":[{"title":"BK","markets":[
			{"key":"totals","outcomes":[{"name":"Over","price":1.8,"point":8.5}]}
		]}]
	}]`

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(payload))
	}))

	got, err := client.FetchOdds(context.Background(), match.SportMLB)
	if err != nil {
		t.Fatalf("fetch odds: %v", err)
	}
	if got[0].OverUnder != nil {
		t.Fatalf("expected one-sided totals to be dropped, got %+v", got[0].OverUnder)
	}
}

func TestFetchOdds_UnsupportedSport(t *testing.T) {
	t.Parallel()

	client := NewClient(ClientConfig{APIKey: "k", Logger: logging.NewNop()})
	if _, err := client.FetchOdds(context.Background(), match.SportSoccer); !errors.Is(err, usecase.ErrConfig) {
		t.Fatalf("expected ErrConfig for soccer odds, got %v", err)
	}
}

func TestFetchOdds_MissingKey(t *testing.T) {
	t.Parallel()

	client := NewClient(ClientConfig{Logger: logging.NewNop()})
	if _, err := client.FetchOdds(context.Background(), match.SportNFL); !errors.Is(err, usecase.ErrConfig) {
		t.Fatalf("expected ErrConfig without key, got %v", err)
	}
}

func TestRedactKey(t *testing.T) {
	t.Parallel()

	in := "https://api.the-odds-api.com/v4/sports?apiKey=super-secret&regions=us"
	got := redactKey(in)
	if strings.Contains(got, "super-secret") {
		t.Fatalf("expected key to be redacted, got %q", got)
	}
	if !strings.Contains(got, "apiKey=REDACTED") {
		t.Fatalf("expected redaction marker, got %q", got)
	}
}
