package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/matchpulse/aggregator/internal/platform/logging"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

// CircuitSettings holds one upstream's circuit-breaker tunables.
type CircuitSettings struct {
	Enabled        bool
	FailureCount   int
	OpenTimeout    time.Duration
	HalfOpenMaxReq int
}

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv             string
	ServiceName        string
	ServiceVersion     string
	HTTPAddr           string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	CORSAllowedOrigins []string
	LogLevel           logging.Level

	PprofEnabled bool
	PprofAddr    string

	UptraceEnabled     bool
	UptraceDSN         string
	UptraceLogsEnabled bool

	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration

	MatchCacheTTL      time.Duration
	OddsCacheTTL       time.Duration
	PredictionCacheTTL time.Duration
	EnrichmentCacheTTL time.Duration
	EnrichmentTimeout  time.Duration
	SourceCallTimeout  time.Duration
	ProbeTimeout       time.Duration
	FetchWorkers       int

	ConfidenceDefault    int
	ConfidenceImpliedMin int
	ConfidenceImpliedMax int

	RapidAPIKey        string
	RapidAPITimeout    time.Duration
	RapidAPIMaxRetries int
	RapidAPICircuit    CircuitSettings

	FootballDataToken       string
	FootballDataCompetition string
	FootballDataTimeout     time.Duration
	FootballDataMaxRetries  int
	FootballDataCircuit     CircuitSettings

	ESPNBaseURL    string
	ESPNTimeout    time.Duration
	ESPNMaxRetries int
	ESPNCircuit    CircuitSettings

	OddsAPIKey        string
	OddsAPIRegions    string
	OddsAPIMarkets    string
	OddsAPITimeout    time.Duration
	OddsAPIMaxRetries int
	OddsAPICircuit    CircuitSettings

	StatareaBaseURL    string
	StatareaTimeout    time.Duration
	StatareaPaceUnit   int
	StatareaPaceWindow time.Duration
	StatareaCircuit    CircuitSettings
	FlashscoreEnabled  bool
	FlashscoreBaseURL  string
	FlashscoreTimeout  time.Duration
	FlashscoreCircuit  CircuitSettings
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	readTimeout, err := getEnvAsDuration("APP_READ_TIMEOUT", "10s")
	if err != nil {
		return Config{}, err
	}
	writeTimeout, err := getEnvAsDuration("APP_WRITE_TIMEOUT", "15s")
	if err != nil {
		return Config{}, err
	}

	pprofEnabled, err := getEnvAsBool("PPROF_ENABLED", "false")
	if err != nil {
		return Config{}, err
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	uptraceEnabled, err := getEnvAsBool("UPTRACE_ENABLED", "false")
	if err != nil {
		return Config{}, err
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}
	uptraceLogsEnabled, err := getEnvAsBool("UPTRACE_LOGS_ENABLED", "true")
	if err != nil {
		return Config{}, err
	}
	pyroscopeEnabled, err := getEnvAsBool("PYROSCOPE_ENABLED", "false")
	if err != nil {
		return Config{}, err
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := getEnvAsDuration("PYROSCOPE_UPLOAD_RATE", "15s")
	if err != nil {
		return Config{}, err
	}

	matchCacheTTL, err := getEnvAsDuration("MATCH_CACHE_TTL", "30s")
	if err != nil {
		return Config{}, err
	}
	oddsCacheTTL, err := getEnvAsDuration("ODDS_CACHE_TTL", "30s")
	if err != nil {
		return Config{}, err
	}
	predictionCacheTTL, err := getEnvAsDuration("PREDICTION_CACHE_TTL", "30s")
	if err != nil {
		return Config{}, err
	}
	enrichmentCacheTTL, err := getEnvAsDuration("ENRICHMENT_CACHE_TTL", "30s")
	if err != nil {
		return Config{}, err
	}
	enrichmentTimeout, err := getEnvAsDuration("ENRICHMENT_TIMEOUT", "5s")
	if err != nil {
		return Config{}, err
	}
	sourceCallTimeout, err := getEnvAsDuration("SOURCE_CALL_TIMEOUT", "10s")
	if err != nil {
		return Config{}, err
	}
	probeTimeout, err := getEnvAsDuration("PROBE_TIMEOUT", "5s")
	if err != nil {
		return Config{}, err
	}
	fetchWorkers, err := getEnvAsInt("FETCH_WORKERS", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse FETCH_WORKERS: %w", err)
	}
	if fetchWorkers < 1 {
		return Config{}, fmt.Errorf("FETCH_WORKERS must be >= 1")
	}

	confidenceDefault, err := getEnvAsInt("CONFIDENCE_DEFAULT", 75)
	if err != nil {
		return Config{}, fmt.Errorf("parse CONFIDENCE_DEFAULT: %w", err)
	}
	confidenceImpliedMin, err := getEnvAsInt("CONFIDENCE_IMPLIED_MIN", 30)
	if err != nil {
		return Config{}, fmt.Errorf("parse CONFIDENCE_IMPLIED_MIN: %w", err)
	}
	confidenceImpliedMax, err := getEnvAsInt("CONFIDENCE_IMPLIED_MAX", 95)
	if err != nil {
		return Config{}, fmt.Errorf("parse CONFIDENCE_IMPLIED_MAX: %w", err)
	}
	if confidenceImpliedMin > confidenceImpliedMax {
		return Config{}, fmt.Errorf("CONFIDENCE_IMPLIED_MIN must be <= CONFIDENCE_IMPLIED_MAX")
	}
	for name, value := range map[string]int{
		"CONFIDENCE_DEFAULT":     confidenceDefault,
		"CONFIDENCE_IMPLIED_MIN": confidenceImpliedMin,
		"CONFIDENCE_IMPLIED_MAX": confidenceImpliedMax,
	} {
		if value < 0 || value > 100 {
			return Config{}, fmt.Errorf("%s must be in [0, 100]", name)
		}
	}

	rapidAPITimeout, err := getEnvAsDuration("RAPIDAPI_TIMEOUT", "10s")
	if err != nil {
		return Config{}, err
	}
	rapidAPIMaxRetries, err := getEnvAsInt("RAPIDAPI_MAX_RETRIES", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse RAPIDAPI_MAX_RETRIES: %w", err)
	}
	rapidAPICircuit, err := parseCircuit("RAPIDAPI")
	if err != nil {
		return Config{}, err
	}

	footballDataTimeout, err := getEnvAsDuration("FOOTBALL_DATA_TIMEOUT", "10s")
	if err != nil {
		return Config{}, err
	}
	footballDataMaxRetries, err := getEnvAsInt("FOOTBALL_DATA_MAX_RETRIES", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse FOOTBALL_DATA_MAX_RETRIES: %w", err)
	}
	footballDataCircuit, err := parseCircuit("FOOTBALL_DATA")
	if err != nil {
		return Config{}, err
	}

	espnTimeout, err := getEnvAsDuration("ESPN_TIMEOUT", "10s")
	if err != nil {
		return Config{}, err
	}
	espnMaxRetries, err := getEnvAsInt("ESPN_MAX_RETRIES", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse ESPN_MAX_RETRIES: %w", err)
	}
	espnCircuit, err := parseCircuit("ESPN")
	if err != nil {
		return Config{}, err
	}

	oddsAPITimeout, err := getEnvAsDuration("ODDS_API_TIMEOUT", "10s")
	if err != nil {
		return Config{}, err
	}
	oddsAPIMaxRetries, err := getEnvAsInt("ODDS_API_MAX_RETRIES", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse ODDS_API_MAX_RETRIES: %w", err)
	}
	oddsAPICircuit, err := parseCircuit("ODDS_API")
	if err != nil {
		return Config{}, err
	}

	statareaTimeout, err := getEnvAsDuration("STATAREA_TIMEOUT", "10s")
	if err != nil {
		return Config{}, err
	}
	statareaPaceUnit, err := getEnvAsInt("STATAREA_PACE_REQUESTS", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse STATAREA_PACE_REQUESTS: %w", err)
	}
	if statareaPaceUnit < 1 {
		return Config{}, fmt.Errorf("STATAREA_PACE_REQUESTS must be >= 1")
	}
	statareaPaceWindow, err := getEnvAsDuration("STATAREA_PACE_WINDOW", "1s")
	if err != nil {
		return Config{}, err
	}
	statareaCircuit, err := parseCircuit("STATAREA")
	if err != nil {
		return Config{}, err
	}

	flashscoreEnabled, err := getEnvAsBool("FLASHSCORE_ENABLED", "true")
	if err != nil {
		return Config{}, err
	}
	flashscoreTimeout, err := getEnvAsDuration("FLASHSCORE_TIMEOUT", "10s")
	if err != nil {
		return Config{}, err
	}
	flashscoreCircuit, err := parseCircuit("FLASHSCORE")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:             appEnv,
		ServiceName:        getEnv("APP_SERVICE_NAME", "matchpulse-aggregator"),
		ServiceVersion:     getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:           getEnv("APP_HTTP_ADDR", ":8080"),
		ReadTimeout:        readTimeout,
		WriteTimeout:       writeTimeout,
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		LogLevel:           parseLogLevel(getEnv("LOG_LEVEL", "info")),

		PprofEnabled: pprofEnabled,
		PprofAddr:    pprofAddr,

		UptraceEnabled:     uptraceEnabled,
		UptraceDSN:         uptraceDSN,
		UptraceLogsEnabled: uptraceLogsEnabled,

		PyroscopeEnabled:           pyroscopeEnabled,
		PyroscopeServerAddress:     pyroscopeServerAddress,
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:        pyroscopeUploadRate,

		MatchCacheTTL:      matchCacheTTL,
		OddsCacheTTL:       oddsCacheTTL,
		PredictionCacheTTL: predictionCacheTTL,
		EnrichmentCacheTTL: enrichmentCacheTTL,
		EnrichmentTimeout:  enrichmentTimeout,
		SourceCallTimeout:  sourceCallTimeout,
		ProbeTimeout:       probeTimeout,
		FetchWorkers:       fetchWorkers,

		ConfidenceDefault:    confidenceDefault,
		ConfidenceImpliedMin: confidenceImpliedMin,
		ConfidenceImpliedMax: confidenceImpliedMax,

		RapidAPIKey:        strings.TrimSpace(getEnv("RAPIDAPI_KEY", "")),
		RapidAPITimeout:    rapidAPITimeout,
		RapidAPIMaxRetries: rapidAPIMaxRetries,
		RapidAPICircuit:    rapidAPICircuit,

		FootballDataToken:       strings.TrimSpace(getEnv("FOOTBALL_DATA_API_KEY", "")),
		FootballDataCompetition: strings.TrimSpace(getEnv("FOOTBALL_DATA_COMPETITION", "PL")),
		FootballDataTimeout:     footballDataTimeout,
		FootballDataMaxRetries:  footballDataMaxRetries,
		FootballDataCircuit:     footballDataCircuit,

		ESPNBaseURL:    strings.TrimSpace(getEnv("ESPN_BASE_URL", "")),
		ESPNTimeout:    espnTimeout,
		ESPNMaxRetries: espnMaxRetries,
		ESPNCircuit:    espnCircuit,

		OddsAPIKey:        strings.TrimSpace(getEnv("ODDS_API_KEY", "")),
		OddsAPIRegions:    strings.TrimSpace(getEnv("ODDS_API_REGIONS", "us")),
		OddsAPIMarkets:    strings.TrimSpace(getEnv("ODDS_API_MARKETS", "h2h,spreads,totals")),
		OddsAPITimeout:    oddsAPITimeout,
		OddsAPIMaxRetries: oddsAPIMaxRetries,
		OddsAPICircuit:    oddsAPICircuit,

		StatareaBaseURL:    strings.TrimSpace(getEnv("STATAREA_BASE_URL", "")),
		StatareaTimeout:    statareaTimeout,
		StatareaPaceUnit:   statareaPaceUnit,
		StatareaPaceWindow: statareaPaceWindow,
		StatareaCircuit:    statareaCircuit,

		FlashscoreEnabled: flashscoreEnabled,
		FlashscoreBaseURL: strings.TrimSpace(getEnv("FLASHSCORE_BASE_URL", "")),
		FlashscoreTimeout: flashscoreTimeout,
		FlashscoreCircuit: flashscoreCircuit,
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}

	return cfg, nil
}

// parseCircuit reads one upstream's circuit-breaker block. The prefix is
// the upstream's env namespace, e.g. STATAREA_CIRCUIT_FAILURE_COUNT.
func parseCircuit(prefix string) (CircuitSettings, error) {
	enabled, err := getEnvAsBool(prefix+"_CIRCUIT_ENABLED", "true")
	if err != nil {
		return CircuitSettings{}, err
	}
	failureCount, err := getEnvAsInt(prefix+"_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return CircuitSettings{}, fmt.Errorf("parse %s_CIRCUIT_FAILURE_COUNT: %w", prefix, err)
	}
	if failureCount < 1 {
		return CircuitSettings{}, fmt.Errorf("%s_CIRCUIT_FAILURE_COUNT must be >= 1", prefix)
	}
	openTimeout, err := getEnvAsDuration(prefix+"_CIRCUIT_OPEN_TIMEOUT", "15s")
	if err != nil {
		return CircuitSettings{}, err
	}
	halfOpenMaxReq, err := getEnvAsInt(prefix+"_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return CircuitSettings{}, fmt.Errorf("parse %s_CIRCUIT_HALF_OPEN_MAX_REQ: %w", prefix, err)
	}
	if halfOpenMaxReq < 1 {
		return CircuitSettings{}, fmt.Errorf("%s_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1", prefix)
	}
	return CircuitSettings{
		Enabled:        enabled,
		FailureCount:   failureCount,
		OpenTimeout:    openTimeout,
		HalfOpenMaxReq: halfOpenMaxReq,
	}, nil
}

func parseAppEnv(v string) (string, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case EnvDev, EnvStage, EnvProd:
		return v, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func getEnvAsBool(key, fallback string) (bool, error) {
	parsed, err := strconv.ParseBool(getEnv(key, fallback))
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, nil
}

func getEnvAsDuration(key, fallback string) (time.Duration, error) {
	parsed, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be > 0", key)
	}
	return parsed, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
