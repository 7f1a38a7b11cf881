package postgres

import (
	"context"
	"fmt"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"

	"github.com/smashcc/analytics/internal/domain/bracket"
	qb "github.com/smashcc/analytics/internal/platform/querybuilder"
)

type bundleTableModel struct {
	EventID   int64     `db:"event_id"`
	Payload   string    `db:"payload"`
	FetchedAt time.Time `db:"fetched_at"`
}

type bundleInsertModel struct {
	EventID int64  `db:"event_id"`
	Payload string `db:"payload"`
}

// BundleRepository stores raw event bundles as JSON, one row per event.
type BundleRepository struct {
	db *sqlx.DB
}

func NewBundleRepository(db *sqlx.DB) *BundleRepository {
	return &BundleRepository{db: db}
}

func (r *BundleRepository) Save(ctx context.Context, bundle bracket.Bundle) error {
	if bundle.EventID <= 0 {
		return fmt.Errorf("bundle event id must be greater than zero")
	}

	payload, err := sonic.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("encode bundle event_id=%d: %w", bundle.EventID, err)
	}

	query, args, err := qb.InsertModel("event_bundles", bundleInsertModel{
		EventID: bundle.EventID,
		Payload: string(payload),
	}, `ON CONFLICT (event_id)
DO UPDATE SET
    payload = EXCLUDED.payload,
    fetched_at = NOW()`)
	if err != nil {
		return fmt.Errorf("build upsert bundle query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert bundle event_id=%d: %w", bundle.EventID, err)
	}
	return nil
}

func (r *BundleRepository) Load(ctx context.Context, eventID int64) (*bracket.Bundle, error) {
	query, args, err := qb.Select("*").From("event_bundles").
		Where(qb.Eq("event_id", eventID)).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select bundle query: %w", err)
	}

	var row bundleTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("select bundle event_id=%d: %w", eventID, err)
	}

	var bundle bracket.Bundle
	if err := sonic.Unmarshal([]byte(row.Payload), &bundle); err != nil {
		return nil, fmt.Errorf("decode bundle event_id=%d: %w", eventID, err)
	}
	return &bundle, nil
}

func (r *BundleRepository) LoadMany(ctx context.Context, eventIDs []int64) ([]bracket.Bundle, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}

	ids := make([]any, 0, len(eventIDs))
	for _, id := range eventIDs {
		ids = append(ids, id)
	}

	query, args, err := qb.Select("*").From("event_bundles").
		Where(qb.In("event_id", ids)).
		OrderBy("event_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select bundles query: %w", err)
	}

	var rows []bundleTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select bundles: %w", err)
	}

	out := make([]bracket.Bundle, 0, len(rows))
	for _, row := range rows {
		var bundle bracket.Bundle
		if err := sonic.Unmarshal([]byte(row.Payload), &bundle); err != nil {
			return nil, fmt.Errorf("decode bundle event_id=%d: %w", row.EventID, err)
		}
		out = append(out, bundle)
	}
	return out, nil
}
