package tournament

import (
	"context"
	"time"
)

// Repository exposes normalized tournament read/write operations.
type Repository interface {
	UpsertMany(ctx context.Context, items []Tournament) error
	ListWindow(ctx context.Context, state string, start, end time.Time) ([]Tournament, error)
	FindBySlug(ctx context.Context, slug string) (*Tournament, error)
	ListStatesWithData(ctx context.Context) ([]string, error)
}

// EventRepository exposes normalized event read/write operations.
type EventRepository interface {
	UpsertMany(ctx context.Context, items []Event) error
	ListByTournament(ctx context.Context, tournamentID int64) ([]Event, error)
	ListByTournaments(ctx context.Context, tournamentIDs []int64, videogameID int) ([]Event, error)
}

// SyncMarkRepository tracks per-slice ingestion freshness.
type SyncMarkRepository interface {
	Find(ctx context.Context, state string, videogameID int, sliceStart time.Time) (*SyncMark, error)
	Mark(ctx context.Context, mark SyncMark) error
}
