package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerServingRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/precomputed", handler.ListPrecomputed)
	mux.HandleFunc("GET /v1/precomputed/series", handler.ListPrecomputedSeries)
	mux.HandleFunc("GET /v1/tournaments", handler.ListTournaments)
	mux.HandleFunc("GET /v1/tournaments/by-slug", handler.GetTournamentBySlug)
}

func registerSearchRoutes(mux *http.ServeMux, handler *Handler, limiter *ClientRateLimiter) {
	// On-demand compute against the upstream provider: stricter bucket.
	mux.Handle("GET /v1/search", RateLimit(limiter, http.HandlerFunc(handler.SearchState)))
	mux.Handle("GET /v1/search/by-slug", RateLimit(limiter, http.HandlerFunc(handler.SearchBySlugs)))
}
