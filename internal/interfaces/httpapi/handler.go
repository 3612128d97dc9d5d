package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"

	"github.com/matchpulse/aggregator/internal/domain/match"
	"github.com/matchpulse/aggregator/internal/usecase"
)

type Handler struct {
	aggregator *usecase.AggregatorService
	enrichment *usecase.EnrichmentService
	logger     *slog.Logger
	validator  *validator.Validate
}

func NewHandler(
	aggregator *usecase.AggregatorService,
	enrichment *usecase.EnrichmentService,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		aggregator: aggregator,
		enrichment: enrichment,
		logger:     logger,
		validator:  validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListLiveMatches serves all sports by default; ?sport=NBA narrows to one
// fetch unit. An unknown sport is a client error, not an empty result, so
// typos do not read as quiet outages.
func (h *Handler) ListLiveMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListLiveMatches")
	defer span.End()

	sport := strings.TrimSpace(r.URL.Query().Get("sport"))
	if sport == "" {
		writeSuccess(ctx, w, http.StatusOK, h.aggregator.GetAllLiveMatches(ctx))
		return
	}

	normalized, ok := normalizeSport(sport)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: unknown sport %q", usecase.ErrInvalidInput, sport))
		return
	}
	writeSuccess(ctx, w, http.StatusOK, h.aggregator.GetLiveMatches(ctx, normalized))
}

func (h *Handler) ListEnhancedMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListEnhancedMatches")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, h.enrichment.GetEnhancedMatches(ctx))
}

func (h *Handler) GetOddsBySport(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetOddsBySport")
	defer span.End()

	sport := r.PathValue("sport")
	normalized, ok := normalizeSport(sport)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: unknown sport %q", usecase.ErrInvalidInput, sport))
		return
	}

	quotes, err := h.aggregator.GetOdds(ctx, normalized)
	if err != nil {
		h.logger.WarnContext(ctx, "get odds failed", "sport", normalized, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, quotes)
}

func (h *Handler) ListPredictions(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListPredictions")
	defer span.End()

	filter, err := parsePredictionFilter(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validator.Struct(filter); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err))
		return
	}

	writeSuccess(ctx, w, http.StatusOK, h.aggregator.GetPredictions(ctx, filter))
}

// SearchPredictions is the body-based variant of ListPredictions for
// clients that keep complex filters out of query strings.
func (h *Handler) SearchPredictions(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SearchPredictions")
	defer span.End()

	var req predictionSearchRequest
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: decode request body: %v", usecase.ErrInvalidInput, err))
		return
	}

	filter := usecase.PredictionFilter{
		Category:      strings.TrimSpace(req.Category),
		League:        strings.TrimSpace(req.League),
		MinConfidence: req.MinConfidence,
	}
	if err := h.validator.Struct(filter); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err))
		return
	}

	writeSuccess(ctx, w, http.StatusOK, h.aggregator.GetPredictions(ctx, filter))
}

func (h *Handler) GetPredictionConsensus(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPredictionConsensus")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, h.aggregator.GetConsensus(ctx))
}

func (h *Handler) ListSourceHealth(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListSourceHealth")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, h.aggregator.GetSourceHealth(ctx))
}

type predictionSearchRequest struct {
	Category      string `json:"category"`
	League        string `json:"league"`
	MinConfidence int    `json:"minConfidence"`
}

func parsePredictionFilter(r *http.Request) (usecase.PredictionFilter, error) {
	filter := usecase.PredictionFilter{
		Category: strings.TrimSpace(r.URL.Query().Get("category")),
		League:   strings.TrimSpace(r.URL.Query().Get("league")),
	}

	raw := strings.TrimSpace(r.URL.Query().Get("minConfidence"))
	if raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			return usecase.PredictionFilter{}, fmt.Errorf("%w: minConfidence must be an integer", usecase.ErrInvalidInput)
		}
		filter.MinConfidence = value
	}
	return filter, nil
}

// normalizeSport accepts the sport names case-insensitively and returns
// the canonical form.
func normalizeSport(raw string) (string, bool) {
	for _, sport := range match.Sports() {
		if strings.EqualFold(strings.TrimSpace(raw), sport) {
			return sport, true
		}
	}
	return "", false
}
