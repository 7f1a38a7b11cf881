package usecase

import (
	"math"
	"sort"
	"strings"

	"github.com/smashcc/analytics/internal/domain/metrics"
	"github.com/smashcc/analytics/internal/domain/results"
)

// DefaultLargeEventThreshold marks the entrant count where an event starts
// counting as a major for the large-event share.
const DefaultLargeEventThreshold = 32

// activitySetWeight is how much one set contributes to the activity score
// relative to one event entered.
const activitySetWeight = 0.25

// MetricsParams tunes one aggregation pass. AssumeTargetMain credits a
// player's full record to the target character when none of their sets carry
// selection data; it stays off unless the caller asks for it.
type MetricsParams struct {
	TargetCharacter     string
	LargeEventThreshold int
	WindowMonths        int
	AssumeTargetMain    bool
}

// MetricsService turns per-player event histories into aggregates.
type MetricsService struct {
	locations *LocationService
}

func NewMetricsService(locations *LocationService) *MetricsService {
	if locations == nil {
		locations = NewLocationService()
	}
	return &MetricsService{locations: locations}
}

// Aggregate groups records by player and computes every metric over each
// player's full history. Win rates use decided sets, wins plus losses, as
// the denominator; DQed and unreported sets count toward SetCount but never
// drag a rate down. Rates with an empty denominator stay nil; nothing here
// ever divides by zero or emits NaN.
func (s *MetricsService) Aggregate(records []results.PlayerEventResult, params MetricsParams) []metrics.PlayerAggregate {
	if params.LargeEventThreshold <= 0 {
		params.LargeEventThreshold = DefaultLargeEventThreshold
	}

	byPlayer := make(map[int64][]results.PlayerEventResult)
	for _, record := range records {
		byPlayer[record.PlayerID] = append(byPlayer[record.PlayerID], record)
	}

	out := make([]metrics.PlayerAggregate, 0, len(byPlayer))
	for playerID, history := range byPlayer {
		out = append(out, s.aggregateOne(playerID, history, params))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out
}

func (s *MetricsService) aggregateOne(playerID int64, history []results.PlayerEventResult, params MetricsParams) metrics.PlayerAggregate {
	agg := metrics.PlayerAggregate{
		PlayerID: playerID,
		Home:     s.locations.InferHome(history),
	}

	var (
		wins, decided, setCount int
		weightTotal, weightWon  float64
		weighable               int
		invRankSum              float64
		ranked                  int
		upsets, seededSets      int
		seedDeltaSum            float64
		seedDeltaEvents         int
		entrantsSum             int
		entrantsKnown           int
		largeEvents             int
	)

	target := normalizeCharacter(params.TargetCharacter)
	var (
		charSets, targetSets      int
		targetDecided, targetWins int
		otherDecided, otherWins   int
	)

	for _, event := range history {
		if agg.GamerTag == "" {
			agg.GamerTag = event.GamerTag
		}
		agg.EventCount++
		if agg.LatestEventAt == nil || event.StartAt.After(*agg.LatestEventAt) {
			at := event.StartAt
			agg.LatestEventAt = &at
		}

		if event.NumEntrants != nil && *event.NumEntrants > 0 {
			entrantsSum += *event.NumEntrants
			entrantsKnown++
			if *event.NumEntrants > agg.MaxEntrants {
				agg.MaxEntrants = *event.NumEntrants
			}
			if *event.NumEntrants >= params.LargeEventThreshold {
				largeEvents++
			}
		}
		if event.SeedNum != nil && event.Placement != nil {
			seedDeltaSum += float64(*event.SeedNum - *event.Placement)
			seedDeltaEvents++
		}

		sizeFactor := 1.0
		if event.NumEntrants != nil && *event.NumEntrants >= 2 {
			sizeFactor = math.Log2(float64(*event.NumEntrants))
		}

		for _, set := range event.Sets {
			setCount++
			won := set.Won != nil && *set.Won
			if set.Won != nil {
				decided++
				if won {
					wins++
				}
			}

			if rank, ok := opponentRank(set); ok {
				invRankSum += 1 / float64(rank)
				ranked++
				if set.Won != nil {
					weight := (1 / float64(rank)) * sizeFactor
					weightTotal += weight
					if won {
						weightWon += weight
					}
					weighable++
				}
			}

			if set.Won != nil && event.SeedNum != nil && set.OpponentSeed != nil {
				seededSets++
				if won && *set.OpponentSeed < *event.SeedNum {
					upsets++
				}
			}

			if len(set.Characters) > 0 {
				charSets++
				usedTarget := usesCharacter(set.Characters, target)
				if usedTarget {
					targetSets++
				}
				if set.Won != nil {
					if usedTarget {
						targetDecided++
						if won {
							targetWins++
						}
					} else {
						otherDecided++
						if won {
							otherWins++
						}
					}
				}
			}
		}
	}

	agg.SetCount = setCount
	agg.DecidedSets = decided
	agg.Wins = wins
	agg.WinRate = ratio(wins, decided)
	if weighable > 0 && weightTotal > 0 {
		v := weightWon / weightTotal
		agg.WeightedWin = &v
	}
	if ranked > 0 {
		v := invRankSum / float64(ranked)
		agg.OppStrength = &v
	}
	agg.UpsetRate = ratio(upsets, seededSets)
	if seedDeltaEvents > 0 {
		v := seedDeltaSum / float64(seedDeltaEvents)
		agg.AvgSeedDelta = &v
	}
	// Activity grows with both events entered and sets played, so two
	// players with the same event count still rank by how much they
	// actually competed.
	activity := float64(agg.EventCount) + activitySetWeight*float64(setCount)
	if params.WindowMonths > 0 {
		agg.ActivityScore = activity / float64(params.WindowMonths)
	} else {
		agg.ActivityScore = activity
	}
	if entrantsKnown > 0 {
		v := float64(entrantsSum) / float64(entrantsKnown)
		agg.AvgEntrants = &v
		agg.LargeShare = ratio(largeEvents, entrantsKnown)
	}

	if target != "" {
		if charSets > 0 {
			agg.TargetCharUsage = ratio(targetSets, charSets)
			agg.TargetCharWinRate = ratio(targetWins, targetDecided)
			agg.OtherCharWinRate = ratio(otherWins, otherDecided)
		} else if params.AssumeTargetMain && setCount > 0 {
			// No selection data anywhere; the caller opted in to crediting
			// the full record to the target character rather than dropping
			// the player.
			agg.AssumedTargetMain = true
			agg.TargetCharWinRate = agg.WinRate
		}
	}

	return agg
}

// opponentRank prefers the opponent's seed, falling back to their final
// placement when seeding is missing.
func opponentRank(set results.SetRecord) (int, bool) {
	if set.OpponentSeed != nil && *set.OpponentSeed > 0 {
		return *set.OpponentSeed, true
	}
	if set.OpponentPlacement != nil && *set.OpponentPlacement > 0 {
		return *set.OpponentPlacement, true
	}
	return 0, false
}

func usesCharacter(characters []string, target string) bool {
	for _, name := range characters {
		if normalizeCharacter(name) == target {
			return true
		}
	}
	return false
}

func normalizeCharacter(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func ratio(num, den int) *float64 {
	if den == 0 {
		return nil
	}
	v := float64(num) / float64(den)
	return &v
}

// ApplyFilters narrows an aggregate list after the fact. Every threshold is
// compared against values computed over the unfiltered window, so filtering
// never changes the numbers themselves, only which rows survive.
func (s *MetricsService) ApplyFilters(aggs []metrics.PlayerAggregate, filters metrics.Filters) []metrics.PlayerAggregate {
	states := make(map[string]struct{}, len(filters.HomeStates))
	for _, state := range filters.HomeStates {
		state = strings.ToUpper(strings.TrimSpace(state))
		if state != "" {
			states[state] = struct{}{}
		}
	}

	out := make([]metrics.PlayerAggregate, 0, len(aggs))
	for _, agg := range aggs {
		if len(states) > 0 {
			if agg.Home.State == nil {
				continue
			}
			if _, ok := states[strings.ToUpper(*agg.Home.State)]; !ok {
				continue
			}
		}
		if filters.MinEvents > 0 && agg.EventCount < filters.MinEvents {
			continue
		}
		if filters.MinSets > 0 && agg.SetCount < filters.MinSets {
			continue
		}
		if filters.MinEntrants != nil && (agg.AvgEntrants == nil || *agg.AvgEntrants < float64(*filters.MinEntrants)) {
			continue
		}
		if filters.MaxEntrants != nil && (agg.AvgEntrants == nil || *agg.AvgEntrants > float64(*filters.MaxEntrants)) {
			continue
		}
		if filters.MinMaxEntrants != nil && agg.MaxEntrants < *filters.MinMaxEntrants {
			continue
		}
		if filters.MinLargeShare != nil && (agg.LargeShare == nil || *agg.LargeShare < *filters.MinLargeShare) {
			continue
		}
		if filters.ActiveSince != nil && (agg.LatestEventAt == nil || agg.LatestEventAt.Before(*filters.ActiveSince)) {
			continue
		}
		if filters.RequireTargetMain && agg.TargetCharUsage == nil && !agg.AssumedTargetMain {
			continue
		}
		out = append(out, agg)
	}
	return out
}

// SortForServing orders rows the way the serving cache stores them: best
// weighted win rate first, rows without one last, opponent strength breaking
// ties.
func SortForServing(aggs []metrics.PlayerAggregate) {
	sort.SliceStable(aggs, func(i, j int) bool {
		a, b := aggs[i], aggs[j]
		switch {
		case a.WeightedWin == nil && b.WeightedWin == nil:
		case a.WeightedWin == nil:
			return false
		case b.WeightedWin == nil:
			return true
		case *a.WeightedWin != *b.WeightedWin:
			return *a.WeightedWin > *b.WeightedWin
		}
		ao, bo := 0.0, 0.0
		if a.OppStrength != nil {
			ao = *a.OppStrength
		}
		if b.OppStrength != nil {
			bo = *b.OppStrength
		}
		if ao != bo {
			return ao > bo
		}
		return a.PlayerID < b.PlayerID
	})
}
