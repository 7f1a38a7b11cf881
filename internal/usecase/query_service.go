package usecase

import (
	"context"
	"fmt"

	"github.com/smashcc/analytics/internal/domain/metrics"
	"github.com/smashcc/analytics/internal/domain/tournament"
	"github.com/smashcc/analytics/internal/platform/cache"
	"github.com/smashcc/analytics/internal/platform/logging"
)

// QueryService is the serving read path. It only reads rows the precompute
// job left behind; a scope nobody has precomputed comes back empty, it is
// never computed on demand here.
type QueryService struct {
	metricsRepo metrics.Repository
	metricsSvc  *MetricsService
	seriesSvc   *SeriesService
	store       *cache.Store
	logger      *logging.Logger
}

func NewQueryService(
	metricsRepo metrics.Repository,
	metricsSvc *MetricsService,
	seriesSvc *SeriesService,
	store *cache.Store,
	logger *logging.Logger,
) *QueryService {
	if logger == nil {
		logger = logging.Default()
	}
	return &QueryService{
		metricsRepo: metricsRepo,
		metricsSvc:  metricsSvc,
		seriesSvc:   seriesSvc,
		store:       store,
		logger:      logger,
	}
}

// PrecomputedQuery selects a serving scope plus post-aggregation filters.
type PrecomputedQuery struct {
	Scope   metrics.Scope
	Filters metrics.Filters
	Limit   int
}

func scopeCacheKey(scope metrics.Scope) string {
	return fmt.Sprintf("precomputed:%s:%d:%d:%d:%d:%s:%s",
		scope.State, scope.VideogameID, scope.MonthsBack, scope.WindowOffset,
		scope.WindowSize, scope.TargetCharacter, scope.SeriesKey)
}

// ListPrecomputed returns the cached rows for one scope with filters applied.
// An unknown scope yields an empty slice, not an error.
func (s *QueryService) ListPrecomputed(ctx context.Context, query PrecomputedQuery) ([]metrics.Row, error) {
	ctx, span := startUsecaseSpan(ctx, "QueryService.ListPrecomputed")
	defer span.End()

	query.Scope.State = tournament.NormalizeState(query.Scope.State)
	if query.Scope.State == "" {
		return nil, fmt.Errorf("%w: state is required", ErrInvalidInput)
	}

	rows, err := s.loadScope(ctx, query.Scope)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []metrics.Row{}, nil
	}

	aggs := make([]metrics.PlayerAggregate, 0, len(rows))
	byPlayer := make(map[int64]metrics.Row, len(rows))
	for _, row := range rows {
		aggs = append(aggs, row.Aggregate)
		byPlayer[row.Aggregate.PlayerID] = row
	}

	filtered := s.metricsSvc.ApplyFilters(aggs, query.Filters)
	SortForServing(filtered)

	out := make([]metrics.Row, 0, len(filtered))
	for _, agg := range filtered {
		out = append(out, byPlayer[agg.PlayerID])
		if query.Limit > 0 && len(out) >= query.Limit {
			break
		}
	}
	return out, nil
}

// ResolveSeriesScope turns search terms into a concrete series scope against
// the keys that actually exist in the serving cache.
func (s *QueryService) ResolveSeriesScope(ctx context.Context, scope metrics.Scope, terms []string, window tournament.Window) (metrics.Scope, error) {
	cand, err := s.seriesSvc.Resolve(ctx, scope.State, scope.VideogameID, window, terms)
	if err != nil {
		return metrics.Scope{}, err
	}
	scope.SeriesKey = cand.Key
	return scope, nil
}

// ListSeriesKeys lists the series keys precomputed for a state scope.
func (s *QueryService) ListSeriesKeys(ctx context.Context, scope metrics.Scope) ([]string, error) {
	scope.State = tournament.NormalizeState(scope.State)
	if scope.State == "" {
		return nil, fmt.Errorf("%w: state is required", ErrInvalidInput)
	}
	keys, err := s.metricsRepo.ListSeriesKeys(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list series keys: %w", err)
	}
	return keys, nil
}

func (s *QueryService) loadScope(ctx context.Context, scope metrics.Scope) ([]metrics.Row, error) {
	if s.store == nil {
		rows, err := s.metricsRepo.List(ctx, scope, 0)
		if err != nil {
			return nil, fmt.Errorf("list precomputed rows: %w", err)
		}
		return rows, nil
	}

	value, err := s.store.GetOrLoad(ctx, scopeCacheKey(scope), func(ctx context.Context) (any, error) {
		rows, loadErr := s.metricsRepo.List(ctx, scope, 0)
		if loadErr != nil {
			return nil, fmt.Errorf("list precomputed rows: %w", loadErr)
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	rows, ok := value.([]metrics.Row)
	if !ok {
		return nil, fmt.Errorf("unexpected cache payload type %T", value)
	}
	return rows, nil
}
