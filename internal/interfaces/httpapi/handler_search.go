package httpapi

import (
	"fmt"
	"net/http"

	"github.com/smashcc/analytics/internal/usecase"
)

func (h *Handler) metricsParams(r *http.Request, windowMonths int) (usecase.MetricsParams, error) {
	assumeMain, err := queryBool(r, "assume_target_main")
	if err != nil {
		return usecase.MetricsParams{}, err
	}
	return usecase.MetricsParams{
		TargetCharacter:     r.URL.Query().Get("target_character"),
		LargeEventThreshold: h.defaults.LargeEventThreshold,
		WindowMonths:        windowMonths,
		AssumeTargetMain:    assumeMain,
	}, nil
}

// SearchState aggregates a whole region on demand, syncing whatever the
// store is missing first. It is the expensive path; the router puts it
// behind the stricter rate bucket.
func (h *Handler) SearchState(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SearchState")
	defer span.End()
	ctx, cancel := h.searchContext(ctx)
	defer cancel()

	scope, window, err := h.parseScope(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if scope.State == "" {
		writeError(ctx, w, fmt.Errorf("%w: state is required", usecase.ErrInvalidInput))
		return
	}
	filters, err := h.parseFilters(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	params, err := h.metricsParams(r, window.MonthsBack)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	aggregates, err := h.searchService.SearchState(ctx, scope.State, scope.VideogameID, window, params, filters)
	if err != nil {
		h.logger.WarnContext(ctx, "state search failed", "state", scope.State, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, aggregates)
}

func (h *Handler) SearchBySlugs(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SearchBySlugs")
	defer span.End()
	ctx, cancel := h.searchContext(ctx)
	defer cancel()

	slugs := queryList(r, "slug")
	if len(slugs) == 0 {
		writeError(ctx, w, fmt.Errorf("%w: at least one slug is required", usecase.ErrInvalidInput))
		return
	}
	videogameID, err := queryInt(r, "videogame_id", h.defaults.VideogameID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	monthsBack, err := queryInt(r, "months_back", h.defaults.MonthsBack)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	filters, err := h.parseFilters(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	params, err := h.metricsParams(r, monthsBack)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	aggregates, invalid, err := h.searchService.SearchSlugs(ctx, slugs, videogameID, params, filters)
	if err != nil {
		h.logger.WarnContext(ctx, "slug search failed", "slugs", slugs, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]any{
		"players":        aggregates,
		"invalid_inputs": invalid,
	})
}
