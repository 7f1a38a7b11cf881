package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/smashcc/analytics/internal/domain/tournament"
	qb "github.com/smashcc/analytics/internal/platform/querybuilder"
)

type syncMarkTableModel struct {
	State       string    `db:"state"`
	VideogameID int       `db:"videogame_id"`
	SliceStart  time.Time `db:"slice_start"`
	SyncedAt    time.Time `db:"synced_at"`
}

// SyncMarkRepository records which month slices have been ingested.
type SyncMarkRepository struct {
	db *sqlx.DB
}

func NewSyncMarkRepository(db *sqlx.DB) *SyncMarkRepository {
	return &SyncMarkRepository{db: db}
}

func (r *SyncMarkRepository) Find(ctx context.Context, state string, videogameID int, sliceStart time.Time) (*tournament.SyncMark, error) {
	query, args, err := qb.Select("*").From("sync_marks").
		Where(
			qb.Eq("state", tournament.NormalizeState(state)),
			qb.Eq("videogame_id", videogameID),
			qb.Eq("slice_start", sliceStart),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select sync mark query: %w", err)
	}

	var row syncMarkTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("select sync mark: %w", err)
	}
	return &tournament.SyncMark{
		State:       row.State,
		VideogameID: row.VideogameID,
		SliceStart:  row.SliceStart,
		SyncedAt:    row.SyncedAt,
	}, nil
}

func (r *SyncMarkRepository) Mark(ctx context.Context, mark tournament.SyncMark) error {
	query, args, err := qb.InsertModel("sync_marks", syncMarkTableModel{
		State:       tournament.NormalizeState(mark.State),
		VideogameID: mark.VideogameID,
		SliceStart:  mark.SliceStart,
		SyncedAt:    mark.SyncedAt,
	}, `ON CONFLICT (state, videogame_id, slice_start)
DO UPDATE SET synced_at = EXCLUDED.synced_at`)
	if err != nil {
		return fmt.Errorf("build upsert sync mark query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert sync mark state=%s: %w", mark.State, err)
	}
	return nil
}
