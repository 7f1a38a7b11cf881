package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/smashcc/analytics/internal/domain/tournament"
)

// EventRepository is an in-memory tournament.EventRepository.
type EventRepository struct {
	mu    sync.RWMutex
	items map[int64]tournament.Event
}

func NewEventRepository() *EventRepository {
	return &EventRepository{items: make(map[int64]tournament.Event)}
}

func (r *EventRepository) UpsertMany(_ context.Context, items []tournament.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		r.items[item.ID] = item
	}
	return nil
}

func (r *EventRepository) ListByTournament(_ context.Context, tournamentID int64) ([]tournament.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []tournament.Event
	for _, item := range r.items {
		if item.TournamentID == tournamentID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *EventRepository) ListByTournaments(_ context.Context, tournamentIDs []int64, videogameID int) ([]tournament.Event, error) {
	member := make(map[int64]struct{}, len(tournamentIDs))
	for _, id := range tournamentIDs {
		member[id] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []tournament.Event
	for _, item := range r.items {
		if _, ok := member[item.TournamentID]; !ok {
			continue
		}
		if videogameID > 0 && item.VideogameID != videogameID {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TournamentID != out[j].TournamentID {
			return out[i].TournamentID < out[j].TournamentID
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
