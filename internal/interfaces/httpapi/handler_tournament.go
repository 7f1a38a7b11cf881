package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/smashcc/analytics/internal/usecase"
)

func (h *Handler) ListTournaments(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListTournaments")
	defer span.End()

	state := r.URL.Query().Get("state")
	window, err := h.parseWindow(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	tournaments, err := h.searchService.ListTournaments(ctx, state, window, queryList(r, "term"))
	if err != nil {
		h.logger.WarnContext(ctx, "list tournaments failed", "state", state, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]tournamentDTO, 0, len(tournaments))
	for _, t := range tournaments {
		items = append(items, tournamentToDTO(t))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetTournamentBySlug(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetTournamentBySlug")
	defer span.End()

	slug := strings.TrimSpace(r.URL.Query().Get("slug"))
	if slug == "" {
		writeError(ctx, w, fmt.Errorf("%w: slug is required", usecase.ErrInvalidInput))
		return
	}
	videogameID, err := queryInt(r, "videogame_id", h.defaults.VideogameID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	found, events, err := h.searchService.FindTournamentBySlug(ctx, slug, videogameID)
	if err != nil {
		h.logger.WarnContext(ctx, "find tournament by slug failed", "slug", slug, "error", err)
		writeError(ctx, w, err)
		return
	}

	eventItems := make([]eventDTO, 0, len(events))
	for _, e := range events {
		eventItems = append(eventItems, eventToDTO(e))
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]any{
		"tournament": tournamentToDTO(*found),
		"events":     eventItems,
	})
}
