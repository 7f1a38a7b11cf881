package tournament

import (
	"strings"
	"time"
)

// monthSpan approximates one month of tournament activity. Window math and
// freshness bookkeeping both use it, so cached slices line up with fetches.
const monthSpan = 30 * 24 * time.Hour

// Tournament is one normalized tournament row.
type Tournament struct {
	ID           int64
	Slug         string
	Name         string
	City         string
	State        string
	CountryCode  string
	StartAt      time.Time
	EndAt        *time.Time
	NumAttendees *int
	LastSyncedAt time.Time
}

// Event is one bracket within a tournament.
type Event struct {
	ID           int64
	TournamentID int64
	Slug         string
	Name         string
	StartAt      *time.Time
	NumEntrants  *int
	VideogameID  int
	Singles      bool
	PayloadJSON  string
}

// Window selects a contiguous span of recent months. Offset shifts the whole
// span into the past; Size narrows it to fewer months than MonthsBack.
type Window struct {
	MonthsBack int
	Offset     int
	Size       int
	StartAt    *time.Time
	EndAt      *time.Time
}

func (w Window) span() int {
	size := w.Size
	if size <= 0 {
		size = w.MonthsBack
	}
	if size < 1 {
		size = 1
	}
	return size
}

// Bounds resolves the window to a concrete [start, end] interval. Explicit
// timestamps win over month arithmetic.
func (w Window) Bounds(now time.Time) (time.Time, time.Time) {
	end := now.Add(-time.Duration(w.Offset) * monthSpan)
	if w.EndAt != nil {
		end = *w.EndAt
	}
	start := end.Add(-time.Duration(w.span()) * monthSpan)
	if w.StartAt != nil {
		start = *w.StartAt
	}
	return start, end
}

// MonthSlices splits the window into month-sized sub-intervals, oldest first.
// Slice starts sit on a fixed grid, multiples of monthSpan since the zero
// time, so the same calendar span yields the same slice starts no matter
// when the run happens and a freshness mark written today still matches
// tomorrow's lookup. Freshness is tracked per slice so a widened window only
// refetches the months it actually added.
func (w Window) MonthSlices(now time.Time) []Slice {
	start, end := w.Bounds(now)
	var slices []Slice
	for cur := start.Truncate(monthSpan); cur.Before(end); cur = cur.Add(monthSpan) {
		sliceEnd := cur.Add(monthSpan)
		if sliceEnd.After(end) {
			sliceEnd = end
		}
		slices = append(slices, Slice{Start: cur, End: sliceEnd})
	}
	return slices
}

// Slice is one month-sized portion of a window.
type Slice struct {
	Start time.Time
	End   time.Time
}

// SyncMark records when a (region, game, month) slice was last ingested.
type SyncMark struct {
	State       string
	VideogameID int
	SliceStart  time.Time
	SyncedAt    time.Time
}

// Fresh reports whether the mark is younger than maxAge.
func (m SyncMark) Fresh(now time.Time, maxAge time.Duration) bool {
	return now.Sub(m.SyncedAt) < maxAge
}

// NormalizeState uppercases and trims a region code for comparisons.
func NormalizeState(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}
