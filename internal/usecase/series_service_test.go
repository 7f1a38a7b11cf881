package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smashcc/analytics/internal/domain/tournament"
	"github.com/smashcc/analytics/internal/infrastructure/repository/memory"
)

type seriesFixture struct {
	tournaments *memory.TournamentRepository
	events      *memory.EventRepository
	svc         *SeriesService
}

func newSeriesFixture(t *testing.T) *seriesFixture {
	t.Helper()

	f := &seriesFixture{
		tournaments: memory.NewTournamentRepository(),
		events:      memory.NewEventRepository(),
	}
	f.svc = NewSeriesService(f.tournaments, f.events, nil)

	now := time.Now()
	attend := func(n int) *int { return &n }
	items := []tournament.Tournament{
		{ID: 1, Slug: "tournament/smash-at-the-gym-weekly-10", Name: "Smash at the Gym Weekly 10", State: "GA", StartAt: now.Add(-20 * 24 * time.Hour), NumAttendees: attend(60)},
		{ID: 2, Slug: "tournament/smash-at-the-gym-weekly-11", Name: "Smash at the Gym Weekly 11", State: "GA", StartAt: now.Add(-13 * 24 * time.Hour), NumAttendees: attend(65)},
		{ID: 3, Slug: "tournament/smash-at-the-gym-weekly-12", Name: "Smash at the Gym Weekly 12", State: "GA", StartAt: now.Add(-6 * 24 * time.Hour), NumAttendees: attend(70)},
		{ID: 4, Slug: "tournament/peach-state-clash-4", Name: "Peach State Clash 4", State: "GA", StartAt: now.Add(-30 * 24 * time.Hour), NumAttendees: attend(300)},
		{ID: 5, Slug: "tournament/one-off-bash", Name: "One Off Bash", State: "GA", StartAt: now.Add(-10 * 24 * time.Hour), NumAttendees: attend(16)},
		// Holds only a doubles bracket and another game's singles, so it
		// never joins a series for videogame 1.
		{ID: 6, Slug: "tournament/card-night-3", Name: "Card Night 3", State: "GA", StartAt: now.Add(-8 * 24 * time.Hour), NumAttendees: attend(500)},
	}
	if err := f.tournaments.UpsertMany(context.Background(), items); err != nil {
		t.Fatalf("seed tournaments: %v", err)
	}

	entrants := func(n int) *int { return &n }
	events := []tournament.Event{
		{ID: 11, TournamentID: 1, Slug: "melee-singles", VideogameID: 1, Singles: true, NumEntrants: entrants(40)},
		{ID: 21, TournamentID: 2, Slug: "melee-singles", VideogameID: 1, Singles: true, NumEntrants: entrants(45)},
		{ID: 31, TournamentID: 3, Slug: "melee-singles", VideogameID: 1, Singles: true, NumEntrants: entrants(50)},
		// Attendance counts everyone at the venue; only the singles entrants
		// feed the series totals.
		{ID: 32, TournamentID: 3, Slug: "melee-doubles", VideogameID: 1, Singles: false, NumEntrants: entrants(200)},
		{ID: 41, TournamentID: 4, Slug: "melee-singles", VideogameID: 1, Singles: true, NumEntrants: entrants(200)},
		{ID: 51, TournamentID: 5, Slug: "melee-singles", VideogameID: 1, Singles: true, NumEntrants: entrants(16)},
		{ID: 61, TournamentID: 6, Slug: "melee-doubles", VideogameID: 1, Singles: false, NumEntrants: entrants(250)},
		{ID: 62, TournamentID: 6, Slug: "other-singles", VideogameID: 2, Singles: true, NumEntrants: entrants(250)},
	}
	if err := f.events.UpsertMany(context.Background(), events); err != nil {
		t.Fatalf("seed events: %v", err)
	}
	return f
}

func TestSeriesDiscover_GroupsEditionsAndRanks(t *testing.T) {
	f := newSeriesFixture(t)

	cands, err := f.svc.Discover(context.Background(), "ga", 1, tournament.Window{MonthsBack: 6})
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(cands) != 3 {
		t.Fatalf("unexpected candidate count: got=%d want=3", len(cands))
	}

	// Peach State Clash draws 200 singles entrants against the weekly's 135.
	if cands[0].Key != "peach-state-clash" {
		t.Fatalf("unexpected top series: %s", cands[0].Key)
	}
	weekly := cands[1]
	if weekly.Key != "smash-at-the-gym" {
		t.Fatalf("unexpected second series: %s", weekly.Key)
	}
	if weekly.EventCount != 3 || weekly.TotalAttendees != 135 || weekly.MaxAttendees != 50 {
		t.Fatalf("unexpected weekly rollup: %+v", weekly)
	}
	if len(weekly.TournamentIDs) != 3 {
		t.Fatalf("unexpected weekly tournament ids: %v", weekly.TournamentIDs)
	}
	if weekly.SampleName != "Smash at the Gym" {
		t.Fatalf("unexpected sample name: %q", weekly.SampleName)
	}
}

func TestSeriesDiscover_CountsOnlyTargetSinglesEvents(t *testing.T) {
	f := newSeriesFixture(t)

	cands, err := f.svc.Discover(context.Background(), "GA", 1, tournament.Window{MonthsBack: 6})
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	for _, cand := range cands {
		if cand.Key == "card-night" {
			t.Fatalf("tournament without a target singles event must not form a series")
		}
	}

	// The weekly's doubles bracket holds 200 entrants; none of them leak
	// into the singles totals, and the tournament attendance never does.
	for _, cand := range cands {
		if cand.Key == "smash-at-the-gym" && (cand.TotalAttendees != 135 || cand.MaxAttendees != 50) {
			t.Fatalf("series totals must come from singles entrants: %+v", cand)
		}
	}
}

func TestSeriesResolve_SingleMatch(t *testing.T) {
	f := newSeriesFixture(t)

	cand, err := f.svc.Resolve(context.Background(), "GA", 1, tournament.Window{MonthsBack: 6}, []string{"gym"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cand.Key != "smash-at-the-gym" {
		t.Fatalf("unexpected resolved series: %s", cand.Key)
	}
}

func TestSeriesResolve_AmbiguousSurfacesCandidates(t *testing.T) {
	f := newSeriesFixture(t)

	_, err := f.svc.Resolve(context.Background(), "GA", 1, tournament.Window{MonthsBack: 6}, []string{"smash", "clash"})
	if !errors.Is(err, ErrAmbiguousSeries) {
		t.Fatalf("expected ambiguous-series error, got %v", err)
	}
	var ambiguous *AmbiguousSeriesError
	if !errors.As(err, &ambiguous) {
		t.Fatalf("expected *AmbiguousSeriesError, got %T", err)
	}
	if len(ambiguous.Candidates) != 2 {
		t.Fatalf("unexpected candidate count: %d", len(ambiguous.Candidates))
	}
}

func TestSeriesResolve_NoMatch(t *testing.T) {
	f := newSeriesFixture(t)

	_, err := f.svc.Resolve(context.Background(), "GA", 1, tournament.Window{MonthsBack: 6}, []string{"does-not-exist"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestSeriesResolve_RequiresTerms(t *testing.T) {
	svc := NewSeriesService(memory.NewTournamentRepository(), memory.NewEventRepository(), nil)

	_, err := svc.Resolve(context.Background(), "GA", 1, tournament.Window{MonthsBack: 6}, []string{"  ", ""})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestSeriesAutoSelect_KeepsThresholdClearers(t *testing.T) {
	f := newSeriesFixture(t)

	cands, err := f.svc.AutoSelect(context.Background(), "GA", 1, tournament.Window{MonthsBack: 6}, 1, 0, 0)
	if err != nil {
		t.Fatalf("auto select: %v", err)
	}
	// Top one plus the weekly, which recurs enough to clear the bar. The
	// one-off misses every threshold.
	if len(cands) != 2 {
		t.Fatalf("unexpected selection size: got=%d want=2", len(cands))
	}
	for _, cand := range cands {
		if cand.Key == "one-off-bash" {
			t.Fatalf("one-off series must not be selected")
		}
	}
}
