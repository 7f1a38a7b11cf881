package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/smashcc/analytics/internal/domain/metrics"
	"github.com/smashcc/analytics/internal/domain/tournament"
	"github.com/smashcc/analytics/internal/usecase"
)

type tournamentDTO struct {
	ID           int64      `json:"id"`
	Slug         string     `json:"slug"`
	Name         string     `json:"name"`
	City         string     `json:"city,omitempty"`
	State        string     `json:"state,omitempty"`
	CountryCode  string     `json:"country_code,omitempty"`
	StartAt      time.Time  `json:"start_at"`
	EndAt        *time.Time `json:"end_at,omitempty"`
	NumAttendees *int       `json:"num_attendees,omitempty"`
}

type eventDTO struct {
	ID          int64      `json:"id"`
	Slug        string     `json:"slug"`
	Name        string     `json:"name"`
	StartAt     *time.Time `json:"start_at,omitempty"`
	NumEntrants *int       `json:"num_entrants,omitempty"`
	VideogameID int        `json:"videogame_id"`
}

type servingRowDTO struct {
	metrics.PlayerAggregate
	SeriesKey  string    `json:"series_key,omitempty"`
	ComputedAt time.Time `json:"computed_at"`
}

func tournamentToDTO(t tournament.Tournament) tournamentDTO {
	return tournamentDTO{
		ID:           t.ID,
		Slug:         t.Slug,
		Name:         t.Name,
		City:         t.City,
		State:        t.State,
		CountryCode:  t.CountryCode,
		StartAt:      t.StartAt,
		EndAt:        t.EndAt,
		NumAttendees: t.NumAttendees,
	}
}

func eventToDTO(e tournament.Event) eventDTO {
	return eventDTO{
		ID:          e.ID,
		Slug:        e.Slug,
		Name:        e.Name,
		StartAt:     e.StartAt,
		NumEntrants: e.NumEntrants,
		VideogameID: e.VideogameID,
	}
}

func rowsToDTOs(rows []metrics.Row) []servingRowDTO {
	items := make([]servingRowDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, servingRowDTO{
			PlayerAggregate: row.Aggregate,
			SeriesKey:       row.Scope.SeriesKey,
			ComputedAt:      row.ComputedAt,
		})
	}
	return items
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", usecase.ErrInvalidInput, name)
	}
	return value, nil
}

func queryIntPtr(r *http.Request, name string) (*int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", usecase.ErrInvalidInput, name)
	}
	return &value, nil
}

func queryFloatPtr(r *http.Request, name string) (*float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", usecase.ErrInvalidInput, name)
	}
	return &value, nil
}

func queryBool(r *http.Request, name string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", usecase.ErrInvalidInput, name)
	}
	return value, nil
}

func queryTimePtr(r *http.Request, name string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	value, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an RFC 3339 timestamp", usecase.ErrInvalidInput, name)
	}
	return &value, nil
}

// queryList merges repeated parameters and comma-separated values into one
// trimmed list.
func queryList(r *http.Request, name string) []string {
	var values []string
	for _, raw := range r.URL.Query()[name] {
		for _, part := range strings.Split(raw, ",") {
			candidate := strings.TrimSpace(part)
			if candidate == "" {
				continue
			}
			values = append(values, candidate)
		}
	}
	return values
}

func (h *Handler) parseWindow(r *http.Request) (tournament.Window, error) {
	monthsBack, err := queryInt(r, "months_back", h.defaults.MonthsBack)
	if err != nil {
		return tournament.Window{}, err
	}
	offset, err := queryInt(r, "window_offset", 0)
	if err != nil {
		return tournament.Window{}, err
	}
	size, err := queryInt(r, "window_size", 0)
	if err != nil {
		return tournament.Window{}, err
	}
	startAt, err := queryTimePtr(r, "start_at")
	if err != nil {
		return tournament.Window{}, err
	}
	endAt, err := queryTimePtr(r, "end_at")
	if err != nil {
		return tournament.Window{}, err
	}

	if monthsBack < 1 {
		return tournament.Window{}, fmt.Errorf("%w: months_back must be at least 1", usecase.ErrInvalidInput)
	}
	if offset < 0 || size < 0 {
		return tournament.Window{}, fmt.Errorf("%w: window_offset and window_size must not be negative", usecase.ErrInvalidInput)
	}

	return tournament.Window{
		MonthsBack: monthsBack,
		Offset:     offset,
		Size:       size,
		StartAt:    startAt,
		EndAt:      endAt,
	}, nil
}

func (h *Handler) parseFilters(r *http.Request) (metrics.Filters, error) {
	minEvents, err := queryInt(r, "min_events", 0)
	if err != nil {
		return metrics.Filters{}, err
	}
	minSets, err := queryInt(r, "min_sets", 0)
	if err != nil {
		return metrics.Filters{}, err
	}
	minEntrants, err := queryIntPtr(r, "min_entrants")
	if err != nil {
		return metrics.Filters{}, err
	}
	maxEntrants, err := queryIntPtr(r, "max_entrants")
	if err != nil {
		return metrics.Filters{}, err
	}
	minMaxEntrants, err := queryIntPtr(r, "min_max_entrants")
	if err != nil {
		return metrics.Filters{}, err
	}
	minLargeShare, err := queryFloatPtr(r, "min_large_event_share")
	if err != nil {
		return metrics.Filters{}, err
	}
	activeSince, err := queryTimePtr(r, "active_since")
	if err != nil {
		return metrics.Filters{}, err
	}
	requireTargetMain, err := queryBool(r, "require_target_main")
	if err != nil {
		return metrics.Filters{}, err
	}

	return metrics.Filters{
		HomeStates:        queryList(r, "home_states"),
		MinEvents:         minEvents,
		MinSets:           minSets,
		MinEntrants:       minEntrants,
		MaxEntrants:       maxEntrants,
		MinMaxEntrants:    minMaxEntrants,
		MinLargeShare:     minLargeShare,
		ActiveSince:       activeSince,
		RequireTargetMain: requireTargetMain,
	}, nil
}

type scopeParams struct {
	State       string `validate:"omitempty,len=2,alpha"`
	VideogameID int    `validate:"gt=0"`
	MonthsBack  int    `validate:"gte=1,lte=60"`
}

func (h *Handler) validateScope(scope metrics.Scope) error {
	params := scopeParams{
		State:       scope.State,
		VideogameID: scope.VideogameID,
		MonthsBack:  scope.MonthsBack,
	}
	if err := h.validator.Struct(params); err != nil {
		return fmt.Errorf("%w: %s", usecase.ErrInvalidInput, err.Error())
	}
	return nil
}

func (h *Handler) parseScope(r *http.Request) (metrics.Scope, tournament.Window, error) {
	window, err := h.parseWindow(r)
	if err != nil {
		return metrics.Scope{}, tournament.Window{}, err
	}
	videogameID, err := queryInt(r, "videogame_id", h.defaults.VideogameID)
	if err != nil {
		return metrics.Scope{}, tournament.Window{}, err
	}

	scope := metrics.Scope{
		State:           tournament.NormalizeState(r.URL.Query().Get("state")),
		VideogameID:     videogameID,
		MonthsBack:      window.MonthsBack,
		WindowOffset:    window.Offset,
		WindowSize:      window.Size,
		TargetCharacter: strings.ToLower(strings.TrimSpace(r.URL.Query().Get("target_character"))),
	}
	if err := h.validateScope(scope); err != nil {
		return metrics.Scope{}, tournament.Window{}, err
	}
	return scope, window, nil
}
