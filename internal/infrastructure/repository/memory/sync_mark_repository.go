package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/smashcc/analytics/internal/domain/tournament"
)

// SyncMarkRepository is an in-memory tournament.SyncMarkRepository.
type SyncMarkRepository struct {
	mu    sync.RWMutex
	items map[string]tournament.SyncMark
}

func NewSyncMarkRepository() *SyncMarkRepository {
	return &SyncMarkRepository{items: make(map[string]tournament.SyncMark)}
}

func markKey(state string, videogameID int, sliceStart time.Time) string {
	return fmt.Sprintf("%s:%d:%d", tournament.NormalizeState(state), videogameID, sliceStart.Unix())
}

func (r *SyncMarkRepository) Find(_ context.Context, state string, videogameID int, sliceStart time.Time) (*tournament.SyncMark, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mark, ok := r.items[markKey(state, videogameID, sliceStart)]
	if !ok {
		return nil, nil
	}
	out := mark
	return &out, nil
}

func (r *SyncMarkRepository) Mark(_ context.Context, mark tournament.SyncMark) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[markKey(mark.State, mark.VideogameID, mark.SliceStart)] = mark
	return nil
}
