package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/smashcc/analytics/internal/domain/metrics"
	"github.com/smashcc/analytics/internal/infrastructure/repository/memory"
	"github.com/smashcc/analytics/internal/usecase"
)

func newPrecomputedHandler(t *testing.T, rows map[metrics.Scope][]metrics.Row) *Handler {
	t.Helper()

	repo := memory.NewMetricsRepository()
	for scope, scoped := range rows {
		if err := repo.Replace(context.Background(), scope, scoped); err != nil {
			t.Fatalf("seed metrics repo: %v", err)
		}
	}

	queryService := usecase.NewQueryService(repo, usecase.NewMetricsService(nil), nil, nil, nil)
	return NewHandler(queryService, nil, HandlerDefaults{
		VideogameID:         1386,
		MonthsBack:          6,
		LargeEventThreshold: 32,
	}, nil)
}

func seedScope() metrics.Scope {
	return metrics.Scope{State: "GA", VideogameID: 1386, MonthsBack: 6}
}

func seedRows(scope metrics.Scope) []metrics.Row {
	computedAt := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	rate := 0.75
	return []metrics.Row{
		{
			Scope: scope,
			Aggregate: metrics.PlayerAggregate{
				PlayerID:   101,
				GamerTag:   "alpha",
				EventCount: 8,
				SetCount:   30,
				WinRate:    &rate,
			},
			ComputedAt: computedAt,
		},
		{
			Scope: scope,
			Aggregate: metrics.PlayerAggregate{
				PlayerID:   202,
				GamerTag:   "beta",
				EventCount: 2,
				SetCount:   6,
			},
			ComputedAt: computedAt,
		},
	}
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}
	return body
}

func TestHandlerListPrecomputed_ServesSeededScope(t *testing.T) {
	scope := seedScope()
	handler := newPrecomputedHandler(t, map[metrics.Scope][]metrics.Row{scope: seedRows(scope)})

	req := httptest.NewRequest(http.MethodGet, "/v1/precomputed?state=ga", nil)
	rec := httptest.NewRecorder()
	handler.ListPrecomputed(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeEnvelope(t, rec)
	data, ok := body["data"].([]any)
	if !ok {
		t.Fatalf("expected data array, got %T", body["data"])
	}
	if len(data) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(data))
	}
	first, _ := data[0].(map[string]any)
	if got, _ := first["gamer_tag"].(string); got != "alpha" {
		t.Fatalf("expected first row alpha, got %v", first["gamer_tag"])
	}
	if _, ok := first["computed_at"]; !ok {
		t.Fatalf("expected computed_at on serving rows")
	}
}

func TestHandlerListPrecomputed_AppliesFiltersAndLimit(t *testing.T) {
	scope := seedScope()
	handler := newPrecomputedHandler(t, map[metrics.Scope][]metrics.Row{scope: seedRows(scope)})

	req := httptest.NewRequest(http.MethodGet, "/v1/precomputed?state=GA&min_events=5&limit=10", nil)
	rec := httptest.NewRecorder()
	handler.ListPrecomputed(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeEnvelope(t, rec)
	data, _ := body["data"].([]any)
	if len(data) != 1 {
		t.Fatalf("expected 1 row after min_events filter, got %d", len(data))
	}
}

func TestHandlerListPrecomputed_RejectsBadQuery(t *testing.T) {
	handler := newPrecomputedHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/precomputed?state=GA&months_back=soon", nil)
	rec := httptest.NewRecorder()
	handler.ListPrecomputed(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	body := decodeEnvelope(t, rec)
	errorObj, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error object in response")
	}
	if got, _ := errorObj["status"].(string); got != "INVALID_ARGUMENT" {
		t.Fatalf("expected INVALID_ARGUMENT, got %v", errorObj["status"])
	}
}

func TestHandlerListPrecomputed_RejectsNonAlphaState(t *testing.T) {
	handler := newPrecomputedHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/precomputed?state=G4", nil)
	rec := httptest.NewRecorder()
	handler.ListPrecomputed(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestHandlerListPrecomputedSeries_ListsKeysWithoutTerms(t *testing.T) {
	scope := seedScope()
	seriesScope := scope
	seriesScope.SeriesKey = "smash-at-the-gym"
	handler := newPrecomputedHandler(t, map[metrics.Scope][]metrics.Row{
		seriesScope: seedRows(seriesScope),
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/precomputed/series?state=GA", nil)
	rec := httptest.NewRecorder()
	handler.ListPrecomputedSeries(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeEnvelope(t, rec)
	data, _ := body["data"].(map[string]any)
	keys, _ := data["series_keys"].([]any)
	if len(keys) != 1 {
		t.Fatalf("expected 1 series key, got %v", data["series_keys"])
	}
	if got, _ := keys[0].(string); got != "smash-at-the-gym" {
		t.Fatalf("expected series key smash-at-the-gym, got %v", keys[0])
	}
}
