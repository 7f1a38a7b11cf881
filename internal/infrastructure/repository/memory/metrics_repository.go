package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/smashcc/analytics/internal/domain/metrics"
)

// MetricsRepository is an in-memory metrics.Repository. Replace swaps the
// whole row set for a scope, matching the serving-cache contract.
type MetricsRepository struct {
	mu     sync.RWMutex
	scopes map[string][]metrics.Row
}

func NewMetricsRepository() *MetricsRepository {
	return &MetricsRepository{scopes: make(map[string][]metrics.Row)}
}

func scopeKey(scope metrics.Scope) string {
	return fmt.Sprintf("%s|%d|%d|%d|%d|%s|%s",
		scope.State, scope.VideogameID, scope.MonthsBack, scope.WindowOffset,
		scope.WindowSize, scope.TargetCharacter, scope.SeriesKey)
}

func (r *MetricsRepository) Replace(_ context.Context, scope metrics.Scope, rows []metrics.Row) error {
	stored := make([]metrics.Row, len(rows))
	copy(stored, rows)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.scopes[scopeKey(scope)] = stored
	return nil
}

func (r *MetricsRepository) List(_ context.Context, scope metrics.Scope, limit int) ([]metrics.Row, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.scopes[scopeKey(scope)]
	out := make([]metrics.Row, len(stored))
	copy(out, stored)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MetricsRepository) ListSeriesKeys(_ context.Context, scope metrics.Scope) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	base := scope
	base.SeriesKey = ""
	seen := make(map[string]struct{})
	for _, rows := range r.scopes {
		if len(rows) == 0 {
			continue
		}
		rowScope := rows[0].Scope
		if rowScope.SeriesKey == "" {
			continue
		}
		probe := rowScope
		probe.SeriesKey = ""
		if scopeKey(probe) != scopeKey(base) {
			continue
		}
		seen[rowScope.SeriesKey] = struct{}{}
	}

	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}
