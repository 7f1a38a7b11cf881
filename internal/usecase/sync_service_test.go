package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smashcc/analytics/internal/domain/bracket"
	"github.com/smashcc/analytics/internal/domain/tournament"
	"github.com/smashcc/analytics/internal/infrastructure/repository/memory"
)

type fakeProvider struct {
	mu          sync.Mutex
	listCalls   int
	bundleCalls int

	failList    error
	tournaments []tournament.Tournament
	events      map[int64][]tournament.Event
	bundles     map[int64]bracket.Bundle
	bySlug      map[string]*tournament.Tournament
}

func (p *fakeProvider) ListTournamentsByState(_ context.Context, _ string, window tournament.Window, now time.Time) ([]tournament.Tournament, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listCalls++
	if p.failList != nil {
		return nil, p.failList
	}
	start, end := window.Bounds(now)
	var out []tournament.Tournament
	for _, trn := range p.tournaments {
		if !trn.StartAt.Before(start) && !trn.StartAt.After(end) {
			out = append(out, trn)
		}
	}
	return out, nil
}

func (p *fakeProvider) FetchTournamentBySlug(_ context.Context, slug string) (*tournament.Tournament, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bySlug[slug], nil
}

func (p *fakeProvider) ListEvents(_ context.Context, tournamentID int64, _ string, _ int) ([]tournament.Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[tournamentID], nil
}

func (p *fakeProvider) FetchBundle(_ context.Context, eventID int64) (bracket.Bundle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bundleCalls++
	if bundle, ok := p.bundles[eventID]; ok {
		return bundle, nil
	}
	return bracket.Bundle{EventID: eventID}, nil
}

type syncFixture struct {
	provider *fakeProvider
	svc      *SyncService
	marks    *memory.SyncMarkRepository
	events   *memory.EventRepository
	bundles  *memory.BundleRepository
	store    *memory.TournamentRepository
	now      time.Time
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()

	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	provider := &fakeProvider{
		tournaments: []tournament.Tournament{
			{ID: 1, Slug: "tournament/old-weekly-1", Name: "Old Weekly 1", State: "GA", StartAt: now.Add(-45 * 24 * time.Hour)},
			{ID: 2, Slug: "tournament/new-weekly-2", Name: "New Weekly 2", State: "GA", StartAt: now.Add(-10 * 24 * time.Hour)},
		},
		events: map[int64][]tournament.Event{
			1: {{ID: 11, TournamentID: 1, Slug: "melee-singles", VideogameID: 1, Singles: true}},
			2: {{ID: 21, TournamentID: 2, Slug: "melee-singles", VideogameID: 1, Singles: true}},
		},
	}

	f := &syncFixture{
		provider: provider,
		marks:    memory.NewSyncMarkRepository(),
		events:   memory.NewEventRepository(),
		bundles:  memory.NewBundleRepository(),
		store:    memory.NewTournamentRepository(),
		now:      now,
	}
	f.svc = NewSyncService(provider, f.store, f.events, f.bundles, f.marks, nil, SyncServiceConfig{BundleWorkers: 2})
	f.svc.now = func() time.Time { return f.now }
	return f
}

func TestSyncWindow_IngestsAndStoresEverything(t *testing.T) {
	f := newSyncFixture(t)

	report, err := f.svc.SyncWindow(context.Background(), "ga", 1, tournament.Window{MonthsBack: 2})
	if err != nil {
		t.Fatalf("sync window: %v", err)
	}
	if report.SlicesTotal != 2 || report.SlicesSkipped != 0 {
		t.Fatalf("unexpected slice counts: %+v", report)
	}
	if report.Tournaments != 2 || report.Events != 2 || report.Bundles != 2 {
		t.Fatalf("unexpected ingest counts: %+v", report)
	}

	stored, err := f.bundles.Load(context.Background(), 11)
	if err != nil || stored == nil {
		t.Fatalf("bundle 11 not persisted: %v %v", stored, err)
	}
}

func TestSyncWindow_FreshSlicesAreSkipped(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()
	window := tournament.Window{MonthsBack: 2}

	if _, err := f.svc.SyncWindow(ctx, "GA", 1, window); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	firstCalls := f.provider.listCalls

	report, err := f.svc.SyncWindow(ctx, "GA", 1, window)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if report.SlicesSkipped != report.SlicesTotal {
		t.Fatalf("fresh slices must be skipped: %+v", report)
	}
	if f.provider.listCalls != firstCalls {
		t.Fatalf("fresh run must not hit the provider: before=%d after=%d", firstCalls, f.provider.listCalls)
	}
}

func TestSyncWindow_FreshnessSurvivesClockDrift(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()
	window := tournament.Window{MonthsBack: 2}

	if _, err := f.svc.SyncWindow(ctx, "GA", 1, window); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	firstCalls := f.provider.listCalls

	// An hour later the window bounds have moved, but the slice starts sit
	// on a fixed grid, so every mark written by the first run still matches.
	f.now = f.now.Add(time.Hour)
	report, err := f.svc.SyncWindow(ctx, "GA", 1, window)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if report.SlicesSkipped != report.SlicesTotal {
		t.Fatalf("fresh slices must stay fresh under a moving clock: %+v", report)
	}
	if f.provider.listCalls != firstCalls {
		t.Fatalf("later fresh run must not hit the provider: before=%d after=%d", firstCalls, f.provider.listCalls)
	}
}

func TestSyncWindow_FailedSliceResumesNextRun(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()
	window := tournament.Window{MonthsBack: 2}

	// First run fails outright; nothing gets marked.
	f.provider.failList = errors.New("provider down")
	if _, err := f.svc.SyncWindow(ctx, "GA", 1, window); err == nil {
		t.Fatalf("expected sync failure")
	}

	// Recovery run syncs every slice from scratch.
	f.provider.failList = nil
	report, err := f.svc.SyncWindow(ctx, "GA", 1, window)
	if err != nil {
		t.Fatalf("recovery sync: %v", err)
	}
	if report.SlicesSkipped != 0 {
		t.Fatalf("failed slices must not count as fresh: %+v", report)
	}
	if report.Tournaments != 2 {
		t.Fatalf("recovery run must ingest everything: %+v", report)
	}

	// A third run now skips everything.
	report, err = f.svc.SyncWindow(ctx, "GA", 1, window)
	if err != nil {
		t.Fatalf("third sync: %v", err)
	}
	if report.SlicesSkipped != report.SlicesTotal {
		t.Fatalf("committed slices must stay fresh: %+v", report)
	}
}

func TestSyncWindow_ValidatesInput(t *testing.T) {
	f := newSyncFixture(t)

	if _, err := f.svc.SyncWindow(context.Background(), "  ", 1, tournament.Window{MonthsBack: 1}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank state must be rejected, got %v", err)
	}
	if _, err := f.svc.SyncWindow(context.Background(), "GA", 0, tournament.Window{MonthsBack: 1}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing videogame must be rejected, got %v", err)
	}
}

func TestSyncTournamentBySlug(t *testing.T) {
	f := newSyncFixture(t)
	f.provider.bySlug = map[string]*tournament.Tournament{
		"tournament/new-weekly-2": &f.provider.tournaments[1],
	}

	trn, events, err := f.svc.SyncTournamentBySlug(context.Background(), "tournament/new-weekly-2", 1)
	if err != nil {
		t.Fatalf("sync by slug: %v", err)
	}
	if trn.ID != 2 {
		t.Fatalf("unexpected tournament: %+v", trn)
	}
	if len(events) != 1 || events[0].ID != 21 {
		t.Fatalf("unexpected events: %+v", events)
	}

	if _, _, err := f.svc.SyncTournamentBySlug(context.Background(), "tournament/unknown", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown slug must be not-found, got %v", err)
	}
}
