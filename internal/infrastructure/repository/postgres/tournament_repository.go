package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/smashcc/analytics/internal/domain/tournament"
	qb "github.com/smashcc/analytics/internal/platform/querybuilder"
)

type TournamentRepository struct {
	db *sqlx.DB
}

func NewTournamentRepository(db *sqlx.DB) *TournamentRepository {
	return &TournamentRepository{db: db}
}

func (r *TournamentRepository) UpsertMany(ctx context.Context, items []tournament.Tournament) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert tournaments: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range items {
		insertModel := tournamentInsertModel{
			ID:           item.ID,
			Slug:         item.Slug,
			Name:         item.Name,
			City:         nullableString(item.City),
			State:        tournament.NormalizeState(item.State),
			CountryCode:  nullableString(item.CountryCode),
			StartAt:      item.StartAt,
			EndAt:        item.EndAt,
			NumAttendees: item.NumAttendees,
		}

		query, args, err := qb.InsertModel("tournaments", insertModel, `ON CONFLICT (id)
DO UPDATE SET
    slug = EXCLUDED.slug,
    name = EXCLUDED.name,
    city = EXCLUDED.city,
    state = EXCLUDED.state,
    country_code = EXCLUDED.country_code,
    start_at = EXCLUDED.start_at,
    end_at = EXCLUDED.end_at,
    num_attendees = EXCLUDED.num_attendees,
    last_synced_at = NOW()`)
		if err != nil {
			return fmt.Errorf("build upsert tournament query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert tournament id=%d: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert tournaments tx: %w", err)
	}
	return nil
}

func (r *TournamentRepository) ListWindow(ctx context.Context, state string, start, end time.Time) ([]tournament.Tournament, error) {
	query, args, err := qb.Select("*").From("tournaments").
		Where(
			qb.Eq("state", tournament.NormalizeState(state)),
			qb.Expr("start_at >= ?", start),
			qb.Expr("start_at <= ?", end),
		).
		OrderBy("start_at DESC", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select tournaments window query: %w", err)
	}

	var rows []tournamentTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select tournaments window: %w", err)
	}

	out := make([]tournament.Tournament, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *TournamentRepository) FindBySlug(ctx context.Context, slug string) (*tournament.Tournament, error) {
	query, args, err := qb.Select("*").From("tournaments").
		Where(qb.Eq("slug", slug)).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select tournament by slug query: %w", err)
	}

	var row tournamentTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("select tournament by slug: %w", err)
	}
	out := row.toDomain()
	return &out, nil
}

func (r *TournamentRepository) ListStatesWithData(ctx context.Context) ([]string, error) {
	query, args, err := qb.Select("DISTINCT state").From("tournaments").
		Where(qb.Expr("state <> ''")).
		OrderBy("state").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select states query: %w", err)
	}

	var states []string
	if err := r.db.SelectContext(ctx, &states, query, args...); err != nil {
		return nil, fmt.Errorf("select states with data: %w", err)
	}
	return states, nil
}
