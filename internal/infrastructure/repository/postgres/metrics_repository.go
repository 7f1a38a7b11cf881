package postgres

import (
	"context"
	"fmt"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"

	"github.com/smashcc/analytics/internal/domain/metrics"
	qb "github.com/smashcc/analytics/internal/platform/querybuilder"
)

type metricsTableModel struct {
	State           string     `db:"state"`
	VideogameID     int        `db:"videogame_id"`
	MonthsBack      int        `db:"months_back"`
	WindowOffset    int        `db:"window_offset"`
	WindowSize      int        `db:"window_size"`
	TargetCharacter string     `db:"target_character"`
	SeriesKey       string     `db:"series_key"`
	PlayerID        int64      `db:"player_id"`
	GamerTag        string     `db:"gamer_tag"`
	WeightedWinRate *float64   `db:"weighted_win_rate"`
	OppStrength     *float64   `db:"opponent_strength"`
	Payload         string     `db:"payload"`
	ComputedAt      time.Time  `db:"computed_at"`
}

// MetricsRepository is the Postgres serving cache. Replace deletes the
// scope's rows and inserts the new set inside one transaction, so readers
// always see either the previous run or the new one, never a mix.
type MetricsRepository struct {
	db *sqlx.DB
}

func NewMetricsRepository(db *sqlx.DB) *MetricsRepository {
	return &MetricsRepository{db: db}
}

func scopeConditions(scope metrics.Scope) []qb.Condition {
	return []qb.Condition{
		qb.Eq("state", scope.State),
		qb.Eq("videogame_id", scope.VideogameID),
		qb.Eq("months_back", scope.MonthsBack),
		qb.Eq("window_offset", scope.WindowOffset),
		qb.Eq("window_size", scope.WindowSize),
		qb.Eq("target_character", scope.TargetCharacter),
		qb.Eq("series_key", scope.SeriesKey),
	}
}

func (r *MetricsRepository) Replace(ctx context.Context, scope metrics.Scope, rows []metrics.Row) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx replace metrics: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	deleteQuery := `DELETE FROM player_metrics
WHERE state = $1 AND videogame_id = $2 AND months_back = $3
  AND window_offset = $4 AND window_size = $5
  AND target_character = $6 AND series_key = $7`
	_, err = tx.ExecContext(ctx, deleteQuery,
		scope.State, scope.VideogameID, scope.MonthsBack,
		scope.WindowOffset, scope.WindowSize,
		scope.TargetCharacter, scope.SeriesKey)
	if err != nil {
		return fmt.Errorf("delete metrics scope: %w", err)
	}

	for _, row := range rows {
		payload, err := sonic.Marshal(row.Aggregate)
		if err != nil {
			return fmt.Errorf("encode aggregate player_id=%d: %w", row.Aggregate.PlayerID, err)
		}

		query, args, err := qb.InsertModel("player_metrics", metricsTableModel{
			State:           scope.State,
			VideogameID:     scope.VideogameID,
			MonthsBack:      scope.MonthsBack,
			WindowOffset:    scope.WindowOffset,
			WindowSize:      scope.WindowSize,
			TargetCharacter: scope.TargetCharacter,
			SeriesKey:       scope.SeriesKey,
			PlayerID:        row.Aggregate.PlayerID,
			GamerTag:        row.Aggregate.GamerTag,
			WeightedWinRate: row.Aggregate.WeightedWin,
			OppStrength:     row.Aggregate.OppStrength,
			Payload:         string(payload),
			ComputedAt:      row.ComputedAt,
		}, "")
		if err != nil {
			return fmt.Errorf("build insert metrics query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert metrics player_id=%d: %w", row.Aggregate.PlayerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace metrics tx: %w", err)
	}
	return nil
}

func (r *MetricsRepository) List(ctx context.Context, scope metrics.Scope, limit int) ([]metrics.Row, error) {
	builder := qb.Select("*").From("player_metrics").
		Where(scopeConditions(scope)...).
		OrderBy("weighted_win_rate DESC NULLS LAST", "opponent_strength DESC NULLS LAST", "player_id")
	if limit > 0 {
		builder = builder.Limit(limit)
	}
	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select metrics query: %w", err)
	}

	var rows []metricsTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select metrics: %w", err)
	}

	out := make([]metrics.Row, 0, len(rows))
	for _, row := range rows {
		var aggregate metrics.PlayerAggregate
		if err := sonic.Unmarshal([]byte(row.Payload), &aggregate); err != nil {
			return nil, fmt.Errorf("decode aggregate player_id=%d: %w", row.PlayerID, err)
		}
		out = append(out, metrics.Row{
			Scope: metrics.Scope{
				State:           row.State,
				VideogameID:     row.VideogameID,
				MonthsBack:      row.MonthsBack,
				WindowOffset:    row.WindowOffset,
				WindowSize:      row.WindowSize,
				TargetCharacter: row.TargetCharacter,
				SeriesKey:       row.SeriesKey,
			},
			Aggregate:  aggregate,
			ComputedAt: row.ComputedAt,
		})
	}
	return out, nil
}

func (r *MetricsRepository) ListSeriesKeys(ctx context.Context, scope metrics.Scope) ([]string, error) {
	query, args, err := qb.Select("DISTINCT series_key").From("player_metrics").
		Where(
			qb.Eq("state", scope.State),
			qb.Eq("videogame_id", scope.VideogameID),
			qb.Eq("months_back", scope.MonthsBack),
			qb.Eq("window_offset", scope.WindowOffset),
			qb.Eq("window_size", scope.WindowSize),
			qb.Eq("target_character", scope.TargetCharacter),
			qb.Expr("series_key <> ''"),
		).
		OrderBy("series_key").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select series keys query: %w", err)
	}

	var keys []string
	if err := r.db.SelectContext(ctx, &keys, query, args...); err != nil {
		return nil, fmt.Errorf("select series keys: %w", err)
	}
	return keys, nil
}
