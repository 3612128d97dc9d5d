package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerDomainRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/matches/live", handler.ListLiveMatches)
	mux.HandleFunc("GET /v1/matches/enhanced", handler.ListEnhancedMatches)
	mux.HandleFunc("GET /v1/odds/{sport}", handler.GetOddsBySport)
	mux.HandleFunc("GET /v1/predictions", handler.ListPredictions)
	mux.HandleFunc("POST /v1/predictions/search", handler.SearchPredictions)
	mux.HandleFunc("GET /v1/predictions/consensus", handler.GetPredictionConsensus)
	mux.HandleFunc("GET /v1/sources/health", handler.ListSourceHealth)
}
