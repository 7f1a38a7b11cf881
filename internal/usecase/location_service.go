package usecase

import (
	"github.com/smashcc/analytics/internal/domain/metrics"
	"github.com/smashcc/analytics/internal/domain/results"
)

// Home inference thresholds: a player needs at least minLocatedEvents events
// in regions we know, and the modal region must cover at least modalShareMin
// of them (inclusive) before we claim a home.
const (
	minLocatedEvents = 3
	modalShareMin    = 0.60
)

// LocationService derives a player's home region from either their
// self-reported profile or the geography of the events they enter.
type LocationService struct{}

func NewLocationService() *LocationService {
	return &LocationService{}
}

// InferHome resolves one player's home location from their event history.
// State and country are inferred independently. Within each dimension a
// self-reported value always wins, verbatim, with full confidence; the
// player's travel pattern is never allowed to override what they declared.
// A player who self-reports only a country can still have their state
// inferred from where they play, and vice versa.
func (s *LocationService) InferHome(history []results.PlayerEventResult) metrics.HomeLocation {
	var out metrics.HomeLocation
	out.State, out.StateConfidence, out.StateInferred = inferDimension(history,
		func(r results.PlayerEventResult) string { return r.State },
		func(r results.PlayerEventResult) string { return r.TournamentSt },
	)
	out.Country, out.CountryConfidence, out.CountryInferred = inferDimension(history,
		func(r results.PlayerEventResult) string { return r.Country },
		func(r results.PlayerEventResult) string { return r.TournamentCountry },
	)
	return out
}

func inferDimension(
	history []results.PlayerEventResult,
	selfReported func(results.PlayerEventResult) string,
	eventRegion func(results.PlayerEventResult) string,
) (*string, *float64, bool) {
	for _, item := range history {
		if !item.HasSelfLoc {
			continue
		}
		if value := selfReported(item); value != "" {
			return &value, ptrFloat(1.0), false
		}
	}
	if value, share, ok := modalShare(history, eventRegion); ok {
		return &value, &share, true
	}
	return nil, nil, false
}

func modalShare(history []results.PlayerEventResult, key func(results.PlayerEventResult) string) (string, float64, bool) {
	counts := make(map[string]int)
	located := 0
	for _, item := range history {
		value := key(item)
		if value == "" {
			continue
		}
		counts[value]++
		located++
	}
	if located < minLocatedEvents {
		return "", 0, false
	}

	best := ""
	bestCount := 0
	for value, count := range counts {
		if count > bestCount || (count == bestCount && value < best) {
			best = value
			bestCount = count
		}
	}

	share := float64(bestCount) / float64(located)
	if share < modalShareMin {
		return "", 0, false
	}
	return best, share, true
}

func ptrFloat(v float64) *float64 {
	return &v
}
