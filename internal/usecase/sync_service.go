package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/smashcc/analytics/internal/domain/bracket"
	"github.com/smashcc/analytics/internal/domain/tournament"
	"github.com/smashcc/analytics/internal/platform/logging"
)

// TournamentProvider is the upstream tournament data source.
type TournamentProvider interface {
	ListTournamentsByState(ctx context.Context, state string, window tournament.Window, now time.Time) ([]tournament.Tournament, error)
	FetchTournamentBySlug(ctx context.Context, slug string) (*tournament.Tournament, error)
	ListEvents(ctx context.Context, tournamentID int64, slug string, videogameID int) ([]tournament.Event, error)
	FetchBundle(ctx context.Context, eventID int64) (bracket.Bundle, error)
}

// SyncReport summarizes one ingestion run.
type SyncReport struct {
	SlicesTotal   int
	SlicesSkipped int
	Tournaments   int
	Events        int
	Bundles       int
}

type SyncServiceConfig struct {
	StaleAfter    time.Duration
	BundleWorkers int
}

// SyncService ingests provider data into the normalized store. Freshness is
// tracked per month slice, so re-running a window or widening it only
// touches the months that are actually stale.
type SyncService struct {
	provider    TournamentProvider
	tournaments tournament.Repository
	events      tournament.EventRepository
	bundles     bracket.Repository
	marks       tournament.SyncMarkRepository
	logger      *logging.Logger

	staleAfter    time.Duration
	bundleWorkers int
	now           func() time.Time
}

func NewSyncService(
	provider TournamentProvider,
	tournaments tournament.Repository,
	events tournament.EventRepository,
	bundles bracket.Repository,
	marks tournament.SyncMarkRepository,
	logger *logging.Logger,
	cfg SyncServiceConfig,
) *SyncService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 7 * 24 * time.Hour
	}
	if cfg.BundleWorkers <= 0 {
		cfg.BundleWorkers = 4
	}
	return &SyncService{
		provider:      provider,
		tournaments:   tournaments,
		events:        events,
		bundles:       bundles,
		marks:         marks,
		logger:        logger,
		staleAfter:    cfg.StaleAfter,
		bundleWorkers: cfg.BundleWorkers,
		now:           time.Now,
	}
}

// SyncWindow brings one (state, game, window) combination up to date. A
// failing slice aborts the run without marking that slice, so the next run
// resumes exactly where this one stopped; slices committed before the
// failure stay fresh.
func (s *SyncService) SyncWindow(ctx context.Context, state string, videogameID int, window tournament.Window) (SyncReport, error) {
	ctx, span := startUsecaseSpan(ctx, "SyncService.SyncWindow")
	defer span.End()

	state = tournament.NormalizeState(state)
	if state == "" {
		return SyncReport{}, fmt.Errorf("%w: state is required", ErrInvalidInput)
	}
	if videogameID <= 0 {
		return SyncReport{}, fmt.Errorf("%w: videogame id is required", ErrInvalidInput)
	}

	now := s.now()
	slices := window.MonthSlices(now)
	report := SyncReport{SlicesTotal: len(slices)}

	for _, slice := range slices {
		mark, err := s.marks.Find(ctx, state, videogameID, slice.Start)
		if err != nil {
			return report, fmt.Errorf("read sync mark: %w", err)
		}
		if mark != nil && mark.Fresh(now, s.staleAfter) {
			report.SlicesSkipped++
			continue
		}

		if err := s.syncSlice(ctx, state, videogameID, slice, &report); err != nil {
			return report, err
		}

		err = s.marks.Mark(ctx, tournament.SyncMark{
			State:       state,
			VideogameID: videogameID,
			SliceStart:  slice.Start,
			SyncedAt:    now,
		})
		if err != nil {
			return report, fmt.Errorf("write sync mark: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "sync window complete",
		"state", state,
		"videogame_id", videogameID,
		"slices", report.SlicesTotal,
		"slices_skipped", report.SlicesSkipped,
		"tournaments", report.Tournaments,
		"events", report.Events,
		"bundles", report.Bundles,
	)
	return report, nil
}

func (s *SyncService) syncSlice(ctx context.Context, state string, videogameID int, slice tournament.Slice, report *SyncReport) error {
	sliceWindow := tournament.Window{StartAt: &slice.Start, EndAt: &slice.End}
	rows, err := s.provider.ListTournamentsByState(ctx, state, sliceWindow, s.now())
	if err != nil {
		return fmt.Errorf("list tournaments state=%s: %w", state, err)
	}
	if len(rows) == 0 {
		return nil
	}
	if err := s.tournaments.UpsertMany(ctx, rows); err != nil {
		return fmt.Errorf("upsert tournaments: %w", err)
	}
	report.Tournaments += len(rows)

	for _, trn := range rows {
		added, err := s.syncTournamentEvents(ctx, trn, videogameID)
		if err != nil {
			return err
		}
		report.Events += added.Events
		report.Bundles += added.Bundles
	}
	return nil
}

type eventSyncCounts struct {
	Events  int
	Bundles int
}

func (s *SyncService) syncTournamentEvents(ctx context.Context, trn tournament.Tournament, videogameID int) (eventSyncCounts, error) {
	var counts eventSyncCounts

	events, err := s.provider.ListEvents(ctx, trn.ID, trn.Slug, videogameID)
	if err != nil {
		return counts, fmt.Errorf("list events tournament=%s: %w", trn.Slug, err)
	}
	if len(events) == 0 {
		return counts, nil
	}
	if err := s.events.UpsertMany(ctx, events); err != nil {
		return counts, fmt.Errorf("upsert events: %w", err)
	}
	counts.Events = len(events)

	workers := pool.New().WithContext(ctx).WithMaxGoroutines(s.bundleWorkers).WithCancelOnError()
	for _, event := range events {
		eventID := event.ID
		workers.Go(func(ctx context.Context) error {
			bundle, err := s.provider.FetchBundle(ctx, eventID)
			if err != nil {
				return fmt.Errorf("fetch bundle event_id=%d: %w", eventID, err)
			}
			if err := s.bundles.Save(ctx, bundle); err != nil {
				return fmt.Errorf("save bundle event_id=%d: %w", eventID, err)
			}
			return nil
		})
	}
	if err := workers.Wait(); err != nil {
		return counts, err
	}
	counts.Bundles = len(events)
	return counts, nil
}

// SyncTournamentBySlug ingests one tournament on demand, returning its
// normalized row and the singles events that were hydrated.
func (s *SyncService) SyncTournamentBySlug(ctx context.Context, slug string, videogameID int) (*tournament.Tournament, []tournament.Event, error) {
	ctx, span := startUsecaseSpan(ctx, "SyncService.SyncTournamentBySlug")
	defer span.End()

	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, nil, fmt.Errorf("%w: slug is required", ErrInvalidInput)
	}

	trn, err := s.provider.FetchTournamentBySlug(ctx, slug)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch tournament slug=%s: %w", slug, err)
	}
	if trn == nil {
		return nil, nil, fmt.Errorf("%w: tournament %s", ErrNotFound, slug)
	}
	if err := s.tournaments.UpsertMany(ctx, []tournament.Tournament{*trn}); err != nil {
		return nil, nil, fmt.Errorf("upsert tournament: %w", err)
	}

	if _, err := s.syncTournamentEvents(ctx, *trn, videogameID); err != nil {
		return nil, nil, err
	}
	events, err := s.events.ListByTournament(ctx, trn.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list stored events: %w", err)
	}
	return trn, events, nil
}
