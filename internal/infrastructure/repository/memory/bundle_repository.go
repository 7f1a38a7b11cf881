package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/smashcc/analytics/internal/domain/bracket"
)

// BundleRepository is an in-memory bracket.Repository.
type BundleRepository struct {
	mu    sync.RWMutex
	items map[int64]bracket.Bundle
}

func NewBundleRepository() *BundleRepository {
	return &BundleRepository{items: make(map[int64]bracket.Bundle)}
}

func (r *BundleRepository) Save(_ context.Context, bundle bracket.Bundle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[bundle.EventID] = bundle
	return nil
}

func (r *BundleRepository) Load(_ context.Context, eventID int64) (*bracket.Bundle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bundle, ok := r.items[eventID]
	if !ok {
		return nil, nil
	}
	out := bundle
	return &out, nil
}

func (r *BundleRepository) LoadMany(_ context.Context, eventIDs []int64) ([]bracket.Bundle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []bracket.Bundle
	for _, id := range eventIDs {
		if bundle, ok := r.items[id]; ok {
			out = append(out, bundle)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventID < out[j].EventID })
	return out, nil
}
