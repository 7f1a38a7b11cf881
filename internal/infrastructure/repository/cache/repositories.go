package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/smashcc/analytics/internal/domain/tournament"
	basecache "github.com/smashcc/analytics/internal/platform/cache"
)

// TournamentRepository caches reads in front of the Postgres store. Writes go
// straight through and drop the affected keys, so the sync path never serves
// a window that is missing tournaments it just ingested.
type TournamentRepository struct {
	next  tournament.Repository
	cache *basecache.Store
}

func NewTournamentRepository(next tournament.Repository, cache *basecache.Store) *TournamentRepository {
	return &TournamentRepository{next: next, cache: cache}
}

func (r *TournamentRepository) UpsertMany(ctx context.Context, items []tournament.Tournament) error {
	if err := r.next.UpsertMany(ctx, items); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, "tournament:window:")
	r.cache.Delete(ctx, "tournament:states")
	for _, item := range items {
		r.cache.Delete(ctx, "tournament:slug:"+item.Slug)
	}
	return nil
}

func (r *TournamentRepository) ListWindow(ctx context.Context, state string, start, end time.Time) ([]tournament.Tournament, error) {
	key := "tournament:window:" + tournament.NormalizeState(state) +
		":" + strconv.FormatInt(start.Unix(), 10) +
		":" + strconv.FormatInt(end.Unix(), 10)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.ListWindow(ctx, state, start, end)
		if err != nil {
			return nil, err
		}
		return append([]tournament.Tournament(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]tournament.Tournament)
	return append([]tournament.Tournament(nil), items...), nil
}

func (r *TournamentRepository) FindBySlug(ctx context.Context, slug string) (*tournament.Tournament, error) {
	key := "tournament:slug:" + slug
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, err := r.next.FindBySlug(ctx, slug)
		if err != nil {
			return nil, err
		}
		return cachedTournamentBySlug{value: item}, nil
	})
	if err != nil {
		return nil, err
	}

	cached, _ := v.(cachedTournamentBySlug)
	if cached.value == nil {
		return nil, nil
	}
	out := *cached.value
	return &out, nil
}

func (r *TournamentRepository) ListStatesWithData(ctx context.Context) ([]string, error) {
	v, err := r.cache.GetOrLoad(ctx, "tournament:states", func(ctx context.Context) (any, error) {
		states, err := r.next.ListStatesWithData(ctx)
		if err != nil {
			return nil, err
		}
		return append([]string(nil), states...), nil
	})
	if err != nil {
		return nil, err
	}

	states, _ := v.([]string)
	return append([]string(nil), states...), nil
}

type cachedTournamentBySlug struct {
	value *tournament.Tournament
}
