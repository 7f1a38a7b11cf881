package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/smashcc/analytics/internal/domain/bracket"
	"github.com/smashcc/analytics/internal/domain/results"
	"github.com/smashcc/analytics/internal/domain/tournament"
)

// assembleWindowRecords loads everything stored for one (state, game, window)
// and flattens it into player records.
func assembleWindowRecords(
	ctx context.Context,
	tournaments tournament.Repository,
	events tournament.EventRepository,
	bundles bracket.Repository,
	assembler *AssemblerService,
	state string,
	videogameID int,
	window tournament.Window,
	now time.Time,
) ([]results.PlayerEventResult, error) {
	start, end := window.Bounds(now)
	rows, err := tournaments.ListWindow(ctx, state, start, end)
	if err != nil {
		return nil, fmt.Errorf("list tournaments: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	byTournament := make(map[int64]tournament.Tournament, len(rows))
	ids := make([]int64, 0, len(rows))
	for _, trn := range rows {
		byTournament[trn.ID] = trn
		ids = append(ids, trn.ID)
	}
	return assembleTournamentRecords(ctx, events, bundles, assembler, byTournament, ids, videogameID)
}

// assembleTournamentRecords flattens the stored events and bundles of a
// concrete tournament set.
func assembleTournamentRecords(
	ctx context.Context,
	events tournament.EventRepository,
	bundles bracket.Repository,
	assembler *AssemblerService,
	byTournament map[int64]tournament.Tournament,
	tournamentIDs []int64,
	videogameID int,
) ([]results.PlayerEventResult, error) {
	eventRows, err := events.ListByTournaments(ctx, tournamentIDs, videogameID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	eventIDs := make([]int64, 0, len(eventRows))
	eventsByID := make(map[int64]tournament.Event, len(eventRows))
	for _, event := range eventRows {
		eventIDs = append(eventIDs, event.ID)
		eventsByID[event.ID] = event
	}

	bundleRows, err := bundles.LoadMany(ctx, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("load bundles: %w", err)
	}

	var records []results.PlayerEventResult
	for _, bundle := range bundleRows {
		event, ok := eventsByID[bundle.EventID]
		if !ok {
			continue
		}
		trn, ok := byTournament[event.TournamentID]
		if !ok {
			continue
		}
		records = append(records, assembler.Build(trn, event, bundle)...)
	}
	return records, nil
}
