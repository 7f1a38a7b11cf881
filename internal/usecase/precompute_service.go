package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/smashcc/analytics/internal/domain/bracket"
	"github.com/smashcc/analytics/internal/domain/metrics"
	"github.com/smashcc/analytics/internal/domain/results"
	"github.com/smashcc/analytics/internal/domain/series"
	"github.com/smashcc/analytics/internal/domain/tournament"
	"github.com/smashcc/analytics/internal/platform/logging"
)

// PrecomputeInput describes one precompute run.
type PrecomputeInput struct {
	States          []string
	AllStates       bool
	VideogameID     int
	TargetCharacter string
	MonthsBack      int
	WindowOffset    int
	WindowSize      int
	LargeEventMin   int

	// AssumeTargetMain credits full records to the target character for
	// players with no selection data at all.
	AssumeTargetMain bool

	AutoSeries          bool
	SeriesTopN          int
	SeriesMinAttendees  int
	SeriesMinEventCount int

	MaxWorkers int
}

// PrecomputeResult summarizes a run across all requested states.
type PrecomputeResult struct {
	StateCount   int                    `json:"state_count"`
	SuccessCount int                    `json:"success_count"`
	FailedCount  int                    `json:"failed_count"`
	WorkerCount  int                    `json:"worker_count"`
	Tasks        []PrecomputeTaskResult `json:"tasks"`
}

// PrecomputeTaskResult is the outcome for one state.
type PrecomputeTaskResult struct {
	State       string `json:"state"`
	Status      string `json:"status"`
	PlayerRows  int    `json:"player_rows"`
	SeriesCount int    `json:"series_count"`
	DurationMs  int64  `json:"duration_ms"`
	Message     string `json:"message,omitempty"`
}

const (
	precomputeStatusSuccess = "success"
	precomputeStatusFailed  = "failed"
)

// PrecomputeService runs the full pipeline for whole scopes and swaps the
// results into the serving cache.
type PrecomputeService struct {
	sync        *SyncService
	assembler   *AssemblerService
	metricsSvc  *MetricsService
	seriesSvc   *SeriesService
	tournaments tournament.Repository
	events      tournament.EventRepository
	bundles     bracket.Repository
	metricsRepo metrics.Repository
	logger      *logging.Logger
	now         func() time.Time
}

func NewPrecomputeService(
	syncSvc *SyncService,
	assembler *AssemblerService,
	metricsSvc *MetricsService,
	seriesSvc *SeriesService,
	tournaments tournament.Repository,
	events tournament.EventRepository,
	bundles bracket.Repository,
	metricsRepo metrics.Repository,
	logger *logging.Logger,
) *PrecomputeService {
	if logger == nil {
		logger = logging.Default()
	}
	return &PrecomputeService{
		sync:        syncSvc,
		assembler:   assembler,
		metricsSvc:  metricsSvc,
		seriesSvc:   seriesSvc,
		tournaments: tournaments,
		events:      events,
		bundles:     bundles,
		metricsRepo: metricsRepo,
		logger:      logger,
		now:         time.Now,
	}
}

// Run precomputes every requested state on a bounded worker pool.
func (s *PrecomputeService) Run(ctx context.Context, input PrecomputeInput) (PrecomputeResult, error) {
	states := make([]string, 0, len(input.States))
	for _, state := range input.States {
		if normalized := tournament.NormalizeState(state); normalized != "" {
			states = append(states, normalized)
		}
	}
	if input.AllStates {
		known, err := s.tournaments.ListStatesWithData(ctx)
		if err != nil {
			return PrecomputeResult{}, fmt.Errorf("list states with data: %w", err)
		}
		states = known
	}
	if len(states) == 0 {
		return PrecomputeResult{}, fmt.Errorf("%w: at least one state is required", ErrInvalidInput)
	}

	workerCount := input.MaxWorkers
	if workerCount <= 0 {
		workerCount = 2
	}
	if workerCount > len(states) {
		workerCount = len(states)
	}

	workerPool, err := ants.NewPool(workerCount)
	if err != nil {
		return PrecomputeResult{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer workerPool.Release()

	var successCount, failedCount atomic.Int64
	taskResults := make(chan PrecomputeTaskResult, len(states))

	var workers sync.WaitGroup
	for _, state := range states {
		state := state
		workers.Add(1)
		if err := workerPool.Submit(func() {
			defer workers.Done()

			start := time.Now()
			row := PrecomputeTaskResult{State: state, Status: precomputeStatusSuccess}
			playerRows, seriesCount, taskErr := s.PrecomputeState(ctx, state, input)
			row.PlayerRows = playerRows
			row.SeriesCount = seriesCount
			row.DurationMs = time.Since(start).Milliseconds()
			if taskErr != nil {
				row.Status = precomputeStatusFailed
				row.Message = taskErr.Error()
				failedCount.Add(1)
			} else {
				successCount.Add(1)
			}
			taskResults <- row
		}); err != nil {
			workers.Done()
			failedCount.Add(1)
			taskResults <- PrecomputeTaskResult{
				State:   state,
				Status:  precomputeStatusFailed,
				Message: fmt.Sprintf("submit task: %v", err),
			}
		}
	}

	workers.Wait()
	close(taskResults)

	result := PrecomputeResult{
		StateCount:   len(states),
		SuccessCount: int(successCount.Load()),
		FailedCount:  int(failedCount.Load()),
		WorkerCount:  workerCount,
	}
	for row := range taskResults {
		result.Tasks = append(result.Tasks, row)
	}
	return result, nil
}

// PrecomputeState syncs one state, aggregates its players, and replaces the
// serving rows for the state scope plus any auto-selected series scopes.
func (s *PrecomputeService) PrecomputeState(ctx context.Context, state string, input PrecomputeInput) (int, int, error) {
	ctx, span := startUsecaseSpan(ctx, "PrecomputeService.PrecomputeState")
	defer span.End()

	window := tournament.Window{
		MonthsBack: input.MonthsBack,
		Offset:     input.WindowOffset,
		Size:       input.WindowSize,
	}
	if _, err := s.sync.SyncWindow(ctx, state, input.VideogameID, window); err != nil {
		return 0, 0, err
	}

	records, err := s.buildRecords(ctx, state, input.VideogameID, window)
	if err != nil {
		return 0, 0, err
	}

	params := MetricsParams{
		TargetCharacter:     input.TargetCharacter,
		LargeEventThreshold: input.LargeEventMin,
		WindowMonths:        window.MonthsBack,
		AssumeTargetMain:    input.AssumeTargetMain,
	}
	scope := metrics.Scope{
		State:           state,
		VideogameID:     input.VideogameID,
		MonthsBack:      input.MonthsBack,
		WindowOffset:    input.WindowOffset,
		WindowSize:      input.WindowSize,
		TargetCharacter: input.TargetCharacter,
	}

	playerRows, err := s.replaceScope(ctx, scope, records, params)
	if err != nil {
		return 0, 0, err
	}

	if !input.AutoSeries {
		return playerRows, 0, nil
	}

	selected, err := s.seriesSvc.AutoSelect(ctx, state, input.VideogameID, window, input.SeriesTopN, input.SeriesMinAttendees, input.SeriesMinEventCount)
	if err != nil {
		return playerRows, 0, err
	}
	for _, cand := range selected {
		seriesScope := scope
		seriesScope.SeriesKey = cand.Key
		if _, err := s.replaceScope(ctx, seriesScope, filterBySeries(records, cand), params); err != nil {
			return playerRows, 0, err
		}
	}
	return playerRows, len(selected), nil
}

func (s *PrecomputeService) replaceScope(ctx context.Context, scope metrics.Scope, records []results.PlayerEventResult, params MetricsParams) (int, error) {
	aggs := s.metricsSvc.Aggregate(records, params)
	SortForServing(aggs)

	computedAt := s.now()
	rows := make([]metrics.Row, 0, len(aggs))
	for _, agg := range aggs {
		rows = append(rows, metrics.Row{Scope: scope, Aggregate: agg, ComputedAt: computedAt})
	}
	if err := s.metricsRepo.Replace(ctx, scope, rows); err != nil {
		return 0, fmt.Errorf("replace metrics scope state=%s series=%s: %w", scope.State, scope.SeriesKey, err)
	}
	return len(rows), nil
}

func (s *PrecomputeService) buildRecords(ctx context.Context, state string, videogameID int, window tournament.Window) ([]results.PlayerEventResult, error) {
	return assembleWindowRecords(ctx, s.tournaments, s.events, s.bundles, s.assembler, state, videogameID, window, s.now())
}

func filterBySeries(records []results.PlayerEventResult, cand series.Candidate) []results.PlayerEventResult {
	member := make(map[int64]struct{}, len(cand.TournamentIDs))
	for _, id := range cand.TournamentIDs {
		member[id] = struct{}{}
	}
	var out []results.PlayerEventResult
	for _, record := range records {
		if _, ok := member[record.TournamentID]; ok {
			out = append(out, record)
		}
	}
	return out
}
