package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/smashcc/analytics/internal/domain/bracket"
	"github.com/smashcc/analytics/internal/domain/metrics"
	"github.com/smashcc/analytics/internal/domain/tournament"
	"github.com/smashcc/analytics/internal/platform/logging"
)

// SearchService is the on-demand compute path. Unlike the serving read path
// it ingests and aggregates inline, within the caller's deadline, and never
// touches the precomputed rows.
type SearchService struct {
	sync        *SyncService
	assembler   *AssemblerService
	metricsSvc  *MetricsService
	tournaments tournament.Repository
	events      tournament.EventRepository
	bundles     bracket.Repository
	logger      *logging.Logger
	now         func() time.Time
}

func NewSearchService(
	syncSvc *SyncService,
	assembler *AssemblerService,
	metricsSvc *MetricsService,
	tournaments tournament.Repository,
	events tournament.EventRepository,
	bundles bracket.Repository,
	logger *logging.Logger,
) *SearchService {
	if logger == nil {
		logger = logging.Default()
	}
	return &SearchService{
		sync:        syncSvc,
		assembler:   assembler,
		metricsSvc:  metricsSvc,
		tournaments: tournaments,
		events:      events,
		bundles:     bundles,
		logger:      logger,
		now:         time.Now,
	}
}

// SearchState ingests a region window and aggregates it in one pass.
func (s *SearchService) SearchState(ctx context.Context, state string, videogameID int, window tournament.Window, params MetricsParams, filters metrics.Filters) ([]metrics.PlayerAggregate, error) {
	ctx, span := startUsecaseSpan(ctx, "SearchService.SearchState")
	defer span.End()

	if _, err := s.sync.SyncWindow(ctx, state, videogameID, window); err != nil {
		return nil, err
	}
	records, err := assembleWindowRecords(ctx, s.tournaments, s.events, s.bundles, s.assembler, tournament.NormalizeState(state), videogameID, window, s.now())
	if err != nil {
		return nil, err
	}

	aggs := s.metricsSvc.ApplyFilters(s.metricsSvc.Aggregate(records, params), filters)
	SortForServing(aggs)
	return aggs, nil
}

// SearchSlugs ingests an explicit tournament list and aggregates across it.
// Inputs that do not contain a recognizable tournament slug are reported in
// the second return value rather than failing the whole request.
func (s *SearchService) SearchSlugs(ctx context.Context, inputs []string, videogameID int, params MetricsParams, filters metrics.Filters) ([]metrics.PlayerAggregate, []string, error) {
	ctx, span := startUsecaseSpan(ctx, "SearchService.SearchSlugs")
	defer span.End()

	var invalid []string
	byTournament := make(map[int64]tournament.Tournament)
	var ids []int64
	for _, input := range inputs {
		slug, ok := ExtractTournamentSlug(input)
		if !ok {
			invalid = append(invalid, input)
			continue
		}
		trn, _, err := s.sync.SyncTournamentBySlug(ctx, slug, videogameID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				invalid = append(invalid, input)
				continue
			}
			return nil, invalid, err
		}
		if _, seen := byTournament[trn.ID]; seen {
			continue
		}
		byTournament[trn.ID] = *trn
		ids = append(ids, trn.ID)
	}
	if len(ids) == 0 {
		if len(invalid) > 0 {
			return nil, invalid, fmt.Errorf("%w: no valid tournament slugs supplied", ErrInvalidInput)
		}
		return nil, invalid, fmt.Errorf("%w: at least one tournament slug is required", ErrInvalidInput)
	}

	records, err := assembleTournamentRecords(ctx, s.events, s.bundles, s.assembler, byTournament, ids, videogameID)
	if err != nil {
		return nil, invalid, err
	}

	aggs := s.metricsSvc.ApplyFilters(s.metricsSvc.Aggregate(records, params), filters)
	SortForServing(aggs)
	return aggs, invalid, nil
}

// ListTournaments surfaces stored tournaments matching substring terms, for
// interactive discovery ahead of a slug search.
func (s *SearchService) ListTournaments(ctx context.Context, state string, window tournament.Window, terms []string) ([]tournament.Tournament, error) {
	state = tournament.NormalizeState(state)
	if state == "" {
		return nil, fmt.Errorf("%w: state is required", ErrInvalidInput)
	}
	start, end := window.Bounds(s.now())
	rows, err := s.tournaments.ListWindow(ctx, state, start, end)
	if err != nil {
		return nil, fmt.Errorf("list tournaments: %w", err)
	}

	cleaned := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" {
			cleaned = append(cleaned, term)
		}
	}
	if len(cleaned) == 0 {
		return rows, nil
	}

	var out []tournament.Tournament
	for _, trn := range rows {
		name := strings.ToLower(trn.Name)
		slug := strings.ToLower(trn.Slug)
		for _, term := range cleaned {
			if strings.Contains(name, term) || strings.Contains(slug, term) {
				out = append(out, trn)
				break
			}
		}
	}
	return out, nil
}

// FindTournamentBySlug looks up one stored tournament, falling back to the
// provider when it has never been ingested.
func (s *SearchService) FindTournamentBySlug(ctx context.Context, input string, videogameID int) (*tournament.Tournament, []tournament.Event, error) {
	slug, ok := ExtractTournamentSlug(input)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q does not contain a tournament slug", ErrInvalidInput, input)
	}

	trn, err := s.tournaments.FindBySlug(ctx, slug)
	if err != nil {
		return nil, nil, fmt.Errorf("find tournament: %w", err)
	}
	if trn != nil {
		events, listErr := s.events.ListByTournament(ctx, trn.ID)
		if listErr != nil {
			return nil, nil, fmt.Errorf("list stored events: %w", listErr)
		}
		return trn, events, nil
	}
	return s.sync.SyncTournamentBySlug(ctx, slug, videogameID)
}

// ExtractTournamentSlug pulls the canonical "tournament/<name>" slug out of
// free-form input: a bare slug, a tournament name slug, or a full start.gg
// URL with extra path segments, query, or fragment.
func ExtractTournamentSlug(input string) (string, bool) {
	value := strings.TrimSpace(input)
	if value == "" {
		return "", false
	}
	if idx := strings.IndexAny(value, "?#"); idx >= 0 {
		value = value[:idx]
	}
	if strings.Contains(value, "://") {
		parsed, err := url.Parse(value)
		if err != nil {
			return "", false
		}
		value = parsed.Path
	}
	value = strings.Trim(value, "/")
	if value == "" {
		return "", false
	}

	segments := strings.Split(value, "/")
	for i, segment := range segments {
		if segment == "tournament" && i+1 < len(segments) && segments[i+1] != "" {
			return "tournament/" + segments[i+1], true
		}
	}
	// A bare one-segment value is treated as the tournament name itself,
	// unless it is the literal path prefix with no name after it.
	if len(segments) == 1 && segments[0] != "tournament" {
		return "tournament/" + segments[0], true
	}
	return "", false
}
