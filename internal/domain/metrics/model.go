package metrics

import "time"

// HomeLocation is the outcome of location inference for one player. State
// and country are resolved independently: each carries its own confidence
// and its own inferred flag, so a self-reported country never mutes the
// state heuristic or the other way around.
type HomeLocation struct {
	State             *string  `json:"home_state"`
	StateConfidence   *float64 `json:"home_state_confidence"`
	StateInferred     bool     `json:"home_state_inferred"`
	Country           *string  `json:"home_country"`
	CountryConfidence *float64 `json:"home_country_confidence"`
	CountryInferred   bool     `json:"home_country_inferred"`
}

// PlayerAggregate holds the per-player metrics for one scope. Rate fields are
// pointers: a nil rate means the denominator was zero, and it must serialize
// as JSON null rather than NaN.
type PlayerAggregate struct {
	PlayerID int64  `json:"player_id"`
	GamerTag string `json:"gamer_tag"`

	Home HomeLocation `json:"home"`

	EventCount    int      `json:"event_count"`
	SetCount      int      `json:"set_count"`
	DecidedSets   int      `json:"decided_sets"`
	Wins          int      `json:"wins"`
	WinRate       *float64 `json:"win_rate"`
	WeightedWin   *float64 `json:"weighted_win_rate"`
	OppStrength   *float64 `json:"opponent_strength"`
	UpsetRate     *float64 `json:"upset_rate"`
	AvgSeedDelta  *float64 `json:"avg_seed_delta"`
	ActivityScore float64  `json:"activity_score"`
	AvgEntrants   *float64 `json:"avg_entrants"`
	MaxEntrants   int      `json:"max_entrants"`
	LargeShare    *float64 `json:"large_event_share"`

	TargetCharUsage   *float64 `json:"target_character_usage"`
	TargetCharWinRate *float64 `json:"target_character_win_rate"`
	OtherCharWinRate  *float64 `json:"other_character_win_rate"`
	AssumedTargetMain bool     `json:"assumed_target_main"`

	LatestEventAt *time.Time `json:"latest_event_at"`
}

// Scope identifies one precomputed metric set: who it covers and which
// window, game, and character it was computed for. SeriesKey is empty for
// region-wide scopes.
type Scope struct {
	State           string
	VideogameID     int
	MonthsBack      int
	WindowOffset    int
	WindowSize      int
	TargetCharacter string
	SeriesKey       string
}

// Filters narrow a precomputed result set after aggregation. Thresholds apply
// to metric values computed over the full unfiltered window.
type Filters struct {
	HomeStates        []string
	MinEvents         int
	MinSets           int
	MinEntrants       *int
	MaxEntrants       *int
	MinMaxEntrants    *int
	MinLargeShare     *float64
	ActiveSince       *time.Time
	RequireTargetMain bool
}

// Row is one serving-cache row: an aggregate pinned to its scope plus the
// compute timestamp.
type Row struct {
	Scope      Scope
	Aggregate  PlayerAggregate
	ComputedAt time.Time
}
