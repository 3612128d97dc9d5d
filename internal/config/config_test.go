package config

import (
	"strings"
	"testing"
	"time"

	"github.com/matchpulse/aggregator/internal/platform/logging"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("UPTRACE_ENABLED", "")
	t.Setenv("PYROSCOPE_ENABLED", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.AppEnv != EnvDev {
		t.Errorf("expected dev environment, got %q", cfg.AppEnv)
	}
	if cfg.HTTPAddr != ":8080" || cfg.ReadTimeout != 10*time.Second {
		t.Errorf("unexpected server defaults: %+v", cfg)
	}
	if cfg.MatchCacheTTL != 30*time.Second || cfg.SourceCallTimeout != 10*time.Second {
		t.Errorf("unexpected cache defaults: %+v", cfg)
	}
	if cfg.FetchWorkers != 4 {
		t.Errorf("expected 4 fetch workers, got %d", cfg.FetchWorkers)
	}
	if cfg.ConfidenceDefault != 75 || cfg.ConfidenceImpliedMin != 30 || cfg.ConfidenceImpliedMax != 95 {
		t.Errorf("unexpected confidence defaults: %+v", cfg)
	}
	if cfg.OddsAPIRegions != "us" || cfg.OddsAPIMarkets != "h2h,spreads,totals" {
		t.Errorf("unexpected odds-api defaults: %+v", cfg)
	}
	if cfg.FootballDataCompetition != "PL" {
		t.Errorf("expected PL competition default, got %q", cfg.FootballDataCompetition)
	}
	if !cfg.FlashscoreEnabled {
		t.Error("flashscore should be enabled by default")
	}
	if cfg.StatareaPaceUnit != 1 || cfg.StatareaPaceWindow != time.Second {
		t.Errorf("unexpected statarea pacing defaults: %+v", cfg)
	}

	want := CircuitSettings{Enabled: true, FailureCount: 5, OpenTimeout: 15 * time.Second, HalfOpenMaxReq: 2}
	if cfg.RapidAPICircuit != want {
		t.Errorf("unexpected circuit defaults: %+v", cfg.RapidAPICircuit)
	}

	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Errorf("unexpected CORS default: %v", cfg.CORSAllowedOrigins)
	}
	if cfg.PyroscopeAppName != cfg.ServiceName {
		t.Errorf("pyroscope app name should fall back to service name, got %q", cfg.PyroscopeAppName)
	}
}

func TestLoad_InvalidAppEnv(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "invalid APP_ENV") {
		t.Fatalf("expected invalid APP_ENV error, got %v", err)
	}
}

func TestLoad_UptraceDSNRequiredWhenEnabled(t *testing.T) {
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "UPTRACE_DSN") {
		t.Fatalf("expected UPTRACE_DSN error, got %v", err)
	}
}

func TestLoad_PyroscopeAddressRequiredWhenEnabled(t *testing.T) {
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "PYROSCOPE_SERVER_ADDRESS") {
		t.Fatalf("expected PYROSCOPE_SERVER_ADDRESS error, got %v", err)
	}
}

func TestLoad_CircuitOverrides(t *testing.T) {
	t.Setenv("STATAREA_CIRCUIT_ENABLED", "false")
	t.Setenv("STATAREA_CIRCUIT_FAILURE_COUNT", "3")
	t.Setenv("STATAREA_CIRCUIT_OPEN_TIMEOUT", "30s")
	t.Setenv("STATAREA_CIRCUIT_HALF_OPEN_MAX_REQ", "1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := CircuitSettings{Enabled: false, FailureCount: 3, OpenTimeout: 30 * time.Second, HalfOpenMaxReq: 1}
	if cfg.StatareaCircuit != want {
		t.Errorf("unexpected statarea circuit: %+v", cfg.StatareaCircuit)
	}
	// Overrides are namespaced, so other upstreams keep their defaults.
	if cfg.ESPNCircuit.FailureCount != 5 {
		t.Errorf("espn circuit should be untouched: %+v", cfg.ESPNCircuit)
	}
}

func TestLoad_CircuitFailureCountMustBePositive(t *testing.T) {
	t.Setenv("RAPIDAPI_CIRCUIT_FAILURE_COUNT", "0")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "RAPIDAPI_CIRCUIT_FAILURE_COUNT") {
		t.Fatalf("expected failure count error, got %v", err)
	}
}

func TestLoad_ConfidenceBoundsValidation(t *testing.T) {
	t.Setenv("CONFIDENCE_IMPLIED_MIN", "80")
	t.Setenv("CONFIDENCE_IMPLIED_MAX", "40")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "CONFIDENCE_IMPLIED_MIN") {
		t.Fatalf("expected inverted bounds error, got %v", err)
	}
}

func TestLoad_ConfidenceOutOfRange(t *testing.T) {
	t.Setenv("CONFIDENCE_DEFAULT", "120")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "[0, 100]") {
		t.Fatalf("expected out-of-range error, got %v", err)
	}
}

func TestLoad_DurationValidation(t *testing.T) {
	t.Setenv("MATCH_CACHE_TTL", "-5s")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "MATCH_CACHE_TTL") {
		t.Fatalf("expected non-positive duration error, got %v", err)
	}
}

func TestLoad_MalformedDuration(t *testing.T) {
	t.Setenv("SOURCE_CALL_TIMEOUT", "banana")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "SOURCE_CALL_TIMEOUT") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestLoad_CORSOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example.com" {
		t.Errorf("unexpected origins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoad_CORSOriginsCannotBeBlank(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " , ")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "CORS_ALLOWED_ORIGINS") {
		t.Fatalf("expected empty origins error, got %v", err)
	}
}

func TestLoad_LogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "WARN")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != logging.LevelWarn {
		t.Errorf("expected warn level, got %v", cfg.LogLevel)
	}
}
