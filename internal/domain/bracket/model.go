package bracket

import "context"

// Raw bracket shapes as the provider returns them. Kept close to the wire so
// cached payloads round-trip without loss; the assembler flattens them into
// per-player records.

// Location is a participant's self-reported home.
type Location struct {
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
}

// Player identifies a provider player account.
type Player struct {
	ID       int64  `json:"id"`
	GamerTag string `json:"gamerTag"`
}

// Participant ties a player to an entrant, with optional location.
type Participant struct {
	Player   *Player   `json:"player"`
	Location *Location `json:"location"`
}

// Entrant is one bracket entry. Singles entrants carry exactly one
// participant; anything else is a team and is skipped during assembly.
type Entrant struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	InitialSeed  *int          `json:"initialSeedNum"`
	Participants []Participant `json:"participants"`
}

// Seed is one row of a phase seeding.
type Seed struct {
	SeedNum int     `json:"seedNum"`
	Entrant Entrant `json:"entrant"`
}

// Standing is one row of final event standings.
type Standing struct {
	Placement int     `json:"placement"`
	Entrant   Entrant `json:"entrant"`
}

// Selection is one character pick within a game.
type Selection struct {
	Entrant   *Entrant   `json:"entrant"`
	Character *Character `json:"character"`
}

// Character is a selectable fighter.
type Character struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Game is one game of a set, carrying character selections.
type Game struct {
	WinnerID   *int64      `json:"winnerId"`
	Selections []Selection `json:"selections"`
}

// Slot is one side of a set.
type Slot struct {
	Entrant *Entrant `json:"entrant"`
}

// SetNode is one completed or in-progress set.
type SetNode struct {
	ID            int64  `json:"id"`
	WinnerID      *int64 `json:"winnerId"`
	Round         *int   `json:"round"`
	FullRoundText string `json:"fullRoundText"`
	CompletedAt   *int64 `json:"completedAt"`
	Slots         []Slot `json:"slots"`
	Games         []Game `json:"games"`
}

// Bundle is everything fetched for one event: seeds across all phases,
// final standings, and the set list.
type Bundle struct {
	EventID   int64      `json:"eventId"`
	Seeds     []Seed     `json:"seeds"`
	Standings []Standing `json:"standings"`
	Sets      []SetNode  `json:"sets"`
}

// SinglePlayer returns the entrant's sole player when it represents exactly
// one participant, nil otherwise.
func (e *Entrant) SinglePlayer() *Player {
	if e == nil || len(e.Participants) != 1 {
		return nil
	}
	return e.Participants[0].Player
}

// SelfReportedLocation returns the participant-level location when present.
func (e *Entrant) SelfReportedLocation() *Location {
	if e == nil || len(e.Participants) != 1 {
		return nil
	}
	return e.Participants[0].Location
}

// Repository persists raw event bundles.
type Repository interface {
	Save(ctx context.Context, bundle Bundle) error
	Load(ctx context.Context, eventID int64) (*Bundle, error)
	LoadMany(ctx context.Context, eventIDs []int64) ([]Bundle, error)
}
