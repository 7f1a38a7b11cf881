package postgres

import (
	"database/sql"
	"time"

	"github.com/smashcc/analytics/internal/domain/tournament"
)

type tournamentTableModel struct {
	ID           int64          `db:"id"`
	Slug         string         `db:"slug"`
	Name         string         `db:"name"`
	City         sql.NullString `db:"city"`
	State        string         `db:"state"`
	CountryCode  sql.NullString `db:"country_code"`
	StartAt      time.Time      `db:"start_at"`
	EndAt        *time.Time     `db:"end_at"`
	NumAttendees sql.NullInt64  `db:"num_attendees"`
	LastSyncedAt time.Time      `db:"last_synced_at"`
}

func (m tournamentTableModel) toDomain() tournament.Tournament {
	out := tournament.Tournament{
		ID:           m.ID,
		Slug:         m.Slug,
		Name:         m.Name,
		City:         m.City.String,
		State:        m.State,
		CountryCode:  m.CountryCode.String,
		StartAt:      m.StartAt,
		EndAt:        m.EndAt,
		LastSyncedAt: m.LastSyncedAt,
	}
	if m.NumAttendees.Valid {
		attendees := int(m.NumAttendees.Int64)
		out.NumAttendees = &attendees
	}
	return out
}

type tournamentInsertModel struct {
	ID           int64      `db:"id"`
	Slug         string     `db:"slug"`
	Name         string     `db:"name"`
	City         *string    `db:"city"`
	State        string     `db:"state"`
	CountryCode  *string    `db:"country_code"`
	StartAt      time.Time  `db:"start_at"`
	EndAt        *time.Time `db:"end_at"`
	NumAttendees *int       `db:"num_attendees"`
}

func nullableString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
