package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/smashcc/analytics/internal/domain/tournament"
)

// TournamentRepository is an in-memory tournament.Repository for tests and
// local runs.
type TournamentRepository struct {
	mu    sync.RWMutex
	items map[int64]tournament.Tournament
	now   func() time.Time
}

func NewTournamentRepository() *TournamentRepository {
	return &TournamentRepository{
		items: make(map[int64]tournament.Tournament),
		now:   time.Now,
	}
}

func (r *TournamentRepository) UpsertMany(_ context.Context, items []tournament.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		item.State = tournament.NormalizeState(item.State)
		item.LastSyncedAt = r.now()
		r.items[item.ID] = item
	}
	return nil
}

func (r *TournamentRepository) ListWindow(_ context.Context, state string, start, end time.Time) ([]tournament.Tournament, error) {
	state = tournament.NormalizeState(state)

	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []tournament.Tournament
	for _, item := range r.items {
		if item.State != state {
			continue
		}
		if item.StartAt.Before(start) || item.StartAt.After(end) {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartAt.Equal(out[j].StartAt) {
			return out[i].StartAt.After(out[j].StartAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *TournamentRepository) FindBySlug(_ context.Context, slug string) (*tournament.Tournament, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, item := range r.items {
		if item.Slug == slug {
			out := item
			return &out, nil
		}
	}
	return nil, nil
}

func (r *TournamentRepository) ListStatesWithData(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, item := range r.items {
		if item.State != "" {
			seen[item.State] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for state := range seen {
		out = append(out, state)
	}
	sort.Strings(out)
	return out, nil
}

// Len reports the stored tournament count.
func (r *TournamentRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
