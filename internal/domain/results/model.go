package results

import "time"

// SetRecord is one set from one player's perspective.
type SetRecord struct {
	SetID             int64
	Won               *bool
	OpponentEntrantID int64
	OpponentPlayerID  *int64
	OpponentTag       string
	OpponentSeed      *int
	OpponentPlacement *int
	RoundText         string
	CompletedAt       *time.Time
	Characters        []string
	OpponentChars     []string
}

// PlayerEventResult is the canonical unit of analysis: one player's complete
// outcome at one event, denormalized with its tournament context.
type PlayerEventResult struct {
	PlayerID   int64
	GamerTag   string
	EntrantID  int64
	SeedNum    *int
	Placement  *int
	City       string
	State      string
	Country    string
	HasSelfLoc bool

	EventID     int64
	EventName   string
	EventSlug   string
	NumEntrants *int
	VideogameID int

	TournamentID      int64
	TournamentSlug    string
	TournamentName    string
	TournamentCity    string
	TournamentSt      string
	TournamentCountry string
	StartAt           time.Time

	Sets []SetRecord
}

// Wins counts sets with a decided win.
func (r *PlayerEventResult) Wins() int {
	n := 0
	for _, s := range r.Sets {
		if s.Won != nil && *s.Won {
			n++
		}
	}
	return n
}

// DecidedSets counts sets with a known outcome.
func (r *PlayerEventResult) DecidedSets() int {
	n := 0
	for _, s := range r.Sets {
		if s.Won != nil {
			n++
		}
	}
	return n
}
