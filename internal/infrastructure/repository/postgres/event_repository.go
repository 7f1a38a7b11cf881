package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/smashcc/analytics/internal/domain/tournament"
	qb "github.com/smashcc/analytics/internal/platform/querybuilder"
)

type eventTableModel struct {
	ID           int64          `db:"id"`
	TournamentID int64          `db:"tournament_id"`
	Slug         string         `db:"slug"`
	Name         string         `db:"name"`
	StartAt      *time.Time     `db:"start_at"`
	NumEntrants  sql.NullInt64  `db:"num_entrants"`
	VideogameID  int            `db:"videogame_id"`
	Singles      bool           `db:"singles"`
	Payload      sql.NullString `db:"payload"`
}

func (m eventTableModel) toDomain() tournament.Event {
	out := tournament.Event{
		ID:           m.ID,
		TournamentID: m.TournamentID,
		Slug:         m.Slug,
		Name:         m.Name,
		StartAt:      m.StartAt,
		VideogameID:  m.VideogameID,
		Singles:      m.Singles,
		PayloadJSON:  m.Payload.String,
	}
	if m.NumEntrants.Valid {
		entrants := int(m.NumEntrants.Int64)
		out.NumEntrants = &entrants
	}
	return out
}

type eventInsertModel struct {
	ID           int64      `db:"id"`
	TournamentID int64      `db:"tournament_id"`
	Slug         string     `db:"slug"`
	Name         string     `db:"name"`
	StartAt      *time.Time `db:"start_at"`
	NumEntrants  *int       `db:"num_entrants"`
	VideogameID  int        `db:"videogame_id"`
	Singles      bool       `db:"singles"`
	Payload      *string    `db:"payload"`
}

type EventRepository struct {
	db *sqlx.DB
}

func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) UpsertMany(ctx context.Context, items []tournament.Event) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert events: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range items {
		insertModel := eventInsertModel{
			ID:           item.ID,
			TournamentID: item.TournamentID,
			Slug:         item.Slug,
			Name:         item.Name,
			StartAt:      item.StartAt,
			NumEntrants:  item.NumEntrants,
			VideogameID:  item.VideogameID,
			Singles:      item.Singles,
			Payload:      nullableString(item.PayloadJSON),
		}

		query, args, err := qb.InsertModel("events", insertModel, `ON CONFLICT (id)
DO UPDATE SET
    tournament_id = EXCLUDED.tournament_id,
    slug = EXCLUDED.slug,
    name = EXCLUDED.name,
    start_at = EXCLUDED.start_at,
    num_entrants = EXCLUDED.num_entrants,
    videogame_id = EXCLUDED.videogame_id,
    singles = EXCLUDED.singles,
    payload = EXCLUDED.payload`)
		if err != nil {
			return fmt.Errorf("build upsert event query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert event id=%d: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert events tx: %w", err)
	}
	return nil
}

func (r *EventRepository) ListByTournament(ctx context.Context, tournamentID int64) ([]tournament.Event, error) {
	query, args, err := qb.Select("*").From("events").
		Where(qb.Eq("tournament_id", tournamentID)).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select events by tournament query: %w", err)
	}
	return r.selectEvents(ctx, query, args)
}

func (r *EventRepository) ListByTournaments(ctx context.Context, tournamentIDs []int64, videogameID int) ([]tournament.Event, error) {
	if len(tournamentIDs) == 0 {
		return nil, nil
	}

	ids := make([]any, 0, len(tournamentIDs))
	for _, id := range tournamentIDs {
		ids = append(ids, id)
	}

	conditions := []qb.Condition{qb.In("tournament_id", ids)}
	if videogameID > 0 {
		conditions = append(conditions, qb.Eq("videogame_id", videogameID))
	}

	query, args, err := qb.Select("*").From("events").
		Where(conditions...).
		OrderBy("tournament_id", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select events by tournaments query: %w", err)
	}
	return r.selectEvents(ctx, query, args)
}

func (r *EventRepository) selectEvents(ctx context.Context, query string, args []any) ([]tournament.Event, error) {
	var rows []eventTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	out := make([]tournament.Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
