package httpapi

import (
	"net/http"

	"github.com/smashcc/analytics/internal/usecase"
)

func (h *Handler) ListPrecomputed(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListPrecomputed")
	defer span.End()

	scope, _, err := h.parseScope(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	filters, err := h.parseFilters(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	rows, err := h.queryService.ListPrecomputed(ctx, usecase.PrecomputedQuery{
		Scope:   scope,
		Filters: filters,
		Limit:   limit,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "list precomputed failed", "state", scope.State, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, rowsToDTOs(rows))
}

// ListPrecomputedSeries serves one series scope when terms are given, or the
// series keys that have precomputed rows for the base scope when they are not.
func (h *Handler) ListPrecomputedSeries(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListPrecomputedSeries")
	defer span.End()

	scope, window, err := h.parseScope(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	terms := queryList(r, "series")
	if len(terms) == 0 {
		keys, err := h.queryService.ListSeriesKeys(ctx, scope)
		if err != nil {
			h.logger.WarnContext(ctx, "list series keys failed", "state", scope.State, "error", err)
			writeError(ctx, w, err)
			return
		}
		writeSuccess(ctx, w, http.StatusOK, map[string][]string{"series_keys": keys})
		return
	}

	resolved, err := h.queryService.ResolveSeriesScope(ctx, scope, terms, window)
	if err != nil {
		h.logger.WarnContext(ctx, "resolve series failed", "state", scope.State, "terms", terms, "error", err)
		writeError(ctx, w, err)
		return
	}

	filters, err := h.parseFilters(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	rows, err := h.queryService.ListPrecomputed(ctx, usecase.PrecomputedQuery{
		Scope:   resolved,
		Filters: filters,
		Limit:   limit,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "list precomputed series failed", "series_key", resolved.SeriesKey, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, rowsToDTOs(rows))
}
