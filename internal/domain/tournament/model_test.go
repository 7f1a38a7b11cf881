package tournament

import (
	"testing"
	"time"
)

func TestWindowBounds_OffsetAndSize(t *testing.T) {
	now := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	// months_back=3 with offset=2 and size=1 picks the single month ending
	// two months ago.
	w := Window{MonthsBack: 3, Offset: 2, Size: 1}
	start, end := w.Bounds(now)
	if !end.Equal(now.Add(-60 * day)) {
		t.Fatalf("unexpected end: %v", end)
	}
	if !start.Equal(now.Add(-90 * day)) {
		t.Fatalf("unexpected start: %v", start)
	}

	// Without size, the span is the full months_back.
	w = Window{MonthsBack: 6}
	start, end = w.Bounds(now)
	if !end.Equal(now) || !start.Equal(now.Add(-180*day)) {
		t.Fatalf("unexpected default bounds: start=%v end=%v", start, end)
	}
}

func TestWindowBounds_ExplicitTimestampsWin(t *testing.T) {
	now := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	explicitStart := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	explicitEnd := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	w := Window{MonthsBack: 6, Offset: 3, StartAt: &explicitStart, EndAt: &explicitEnd}
	start, end := w.Bounds(now)
	if !start.Equal(explicitStart) || !end.Equal(explicitEnd) {
		t.Fatalf("explicit bounds must override month math: start=%v end=%v", start, end)
	}
}

func TestWindowMonthSlices(t *testing.T) {
	now := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	slices := Window{MonthsBack: 3}.MonthSlices(now)
	if len(slices) < 3 {
		t.Fatalf("three months need at least three slices, got %d", len(slices))
	}
	for i := 1; i < len(slices); i++ {
		if !slices[i].Start.Equal(slices[i-1].End) {
			t.Fatalf("slices must be contiguous: %v then %v", slices[i-1], slices[i])
		}
	}
	if !slices[len(slices)-1].End.Equal(now) {
		t.Fatalf("last slice must end at the window end: %v", slices[len(slices)-1].End)
	}

	start, _ := Window{MonthsBack: 3}.Bounds(now)
	first := slices[0]
	if first.Start.After(start) || !first.End.After(start) {
		t.Fatalf("first slice must cover the window start %v: %+v", start, first)
	}
}

func TestWindowMonthSlices_StartsAreClockStable(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	window := Window{MonthsBack: 2}

	slices := window.MonthSlices(now)
	for _, slice := range slices {
		if !slice.Start.Truncate(monthSpan).Equal(slice.Start) {
			t.Fatalf("slice start must sit on the grid: %v", slice.Start)
		}
	}

	// The same window an hour later yields the same slice starts, so a sync
	// mark written on the first run still matches the second.
	later := window.MonthSlices(now.Add(time.Hour))
	if len(later) != len(slices) {
		t.Fatalf("slice count moved with the clock: %d then %d", len(slices), len(later))
	}
	for i := range slices {
		if !later[i].Start.Equal(slices[i].Start) {
			t.Fatalf("slice %d start drifted: %v then %v", i, slices[i].Start, later[i].Start)
		}
	}
}

func TestSyncMarkFresh(t *testing.T) {
	now := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	mark := SyncMark{SyncedAt: now.Add(-6 * 24 * time.Hour)}
	if !mark.Fresh(now, 7*24*time.Hour) {
		t.Fatalf("six-day-old mark must be fresh at a seven-day horizon")
	}
	mark.SyncedAt = now.Add(-8 * 24 * time.Hour)
	if mark.Fresh(now, 7*24*time.Hour) {
		t.Fatalf("eight-day-old mark must be stale")
	}
}

func TestNormalizeState(t *testing.T) {
	if got := NormalizeState("  ga "); got != "GA" {
		t.Fatalf("unexpected normalization: %q", got)
	}
}
