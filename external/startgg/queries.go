package startgg

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smashcc/analytics/internal/domain/bracket"
	"github.com/smashcc/analytics/internal/domain/tournament"
)

const (
	tournamentsPerPage = 50
	seedsPerPage       = 50
	standingsPerPage   = 50
	setsPerPage        = 15
)

const queryTournamentsByState = `
query TournamentsByState($perPage: Int!, $page: Int!, $state: String!) {
  tournaments(query: {
    perPage: $perPage
    page: $page
    sortBy: "startAt desc"
    filter: { addrState: $state, past: true }
  }) {
    pageInfo { totalPages }
    nodes {
      id
      name
      slug
      city
      addrState
      countryCode
      startAt
      endAt
      numAttendees
    }
  }
}`

const queryTournamentBySlug = `
query TournamentBySlug($slug: String!) {
  tournament(slug: $slug) {
    id
    name
    slug
    city
    addrState
    countryCode
    startAt
    endAt
    numAttendees
  }
}`

const queryTournamentEvents = `
query TournamentEvents($slug: String!) {
  tournament(slug: $slug) {
    id
    events {
      id
      name
      slug
      startAt
      numEntrants
      videogame { id }
      teamRosterSize { minPlayers maxPlayers }
    }
  }
}`

const queryEventPhases = `
query EventPhases($eventId: ID!) {
  event(id: $eventId) {
    phases { id }
  }
}`

const queryPhaseSeeds = `
query PhaseSeeds($phaseId: ID!, $page: Int!, $perPage: Int!) {
  phase(id: $phaseId) {
    seeds(query: { page: $page, perPage: $perPage }) {
      pageInfo { totalPages }
      nodes {
        seedNum
        entrant {
          id
          name
          initialSeedNum
          participants {
            player { id gamerTag }
            user { location { city state country } }
          }
        }
      }
    }
  }
}`

const queryEventStandings = `
query EventStandings($eventId: ID!, $page: Int!, $perPage: Int!) {
  event(id: $eventId) {
    standings(query: { page: $page, perPage: $perPage }) {
      pageInfo { totalPages }
      nodes {
        placement
        entrant {
          id
          name
          initialSeedNum
          participants {
            player { id gamerTag }
            user { location { city state country } }
          }
        }
      }
    }
  }
}`

const queryEventSets = `
query EventSets($eventId: ID!, $page: Int!, $perPage: Int!) {
  event(id: $eventId) {
    sets(page: $page, perPage: $perPage, sortType: RECENT) {
      pageInfo { totalPages }
      nodes {
        id
        winnerId
        round
        fullRoundText
        completedAt
        slots {
          entrant {
            id
            name
            initialSeedNum
            participants {
              player { id gamerTag }
              user { location { city state country } }
            }
          }
        }
        games {
          winnerId
          selections {
            entrant { id }
            character { id name }
          }
        }
      }
    }
  }
}`

// Wire shapes. The provider nests self-reported location under the
// participant's user account; the domain flattens it onto the participant.

type pageInfo struct {
	TotalPages int `json:"totalPages"`
}

type wireLocation struct {
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
}

type wireUser struct {
	Location *wireLocation `json:"location"`
}

type wirePlayer struct {
	ID       int64  `json:"id"`
	GamerTag string `json:"gamerTag"`
}

type wireParticipant struct {
	Player *wirePlayer `json:"player"`
	User   *wireUser   `json:"user"`
}

type wireEntrant struct {
	ID           int64             `json:"id"`
	Name         string            `json:"name"`
	InitialSeed  *int              `json:"initialSeedNum"`
	Participants []wireParticipant `json:"participants"`
}

type wireTournament struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	City         string `json:"city"`
	AddrState    string `json:"addrState"`
	CountryCode  string `json:"countryCode"`
	StartAt      *int64 `json:"startAt"`
	EndAt        *int64 `json:"endAt"`
	NumAttendees *int   `json:"numAttendees"`
}

type wireRosterSize struct {
	MinPlayers *int `json:"minPlayers"`
	MaxPlayers *int `json:"maxPlayers"`
}

type wireEvent struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	StartAt     *int64 `json:"startAt"`
	NumEntrants *int   `json:"numEntrants"`
	Videogame   *struct {
		ID int `json:"id"`
	} `json:"videogame"`
	TeamRosterSize *wireRosterSize `json:"teamRosterSize"`
}

func mapTournament(item wireTournament) tournament.Tournament {
	out := tournament.Tournament{
		ID:           item.ID,
		Slug:         strings.TrimSpace(item.Slug),
		Name:         strings.TrimSpace(item.Name),
		City:         strings.TrimSpace(item.City),
		State:        tournament.NormalizeState(item.AddrState),
		CountryCode:  strings.TrimSpace(item.CountryCode),
		NumAttendees: item.NumAttendees,
	}
	if item.StartAt != nil {
		out.StartAt = time.Unix(*item.StartAt, 0).UTC()
	}
	if item.EndAt != nil {
		end := time.Unix(*item.EndAt, 0).UTC()
		out.EndAt = &end
	}
	return out
}

func mapEvent(tournamentID int64, item wireEvent) tournament.Event {
	out := tournament.Event{
		ID:           item.ID,
		TournamentID: tournamentID,
		Slug:         strings.TrimSpace(item.Slug),
		Name:         strings.TrimSpace(item.Name),
		NumEntrants:  item.NumEntrants,
		Singles:      isSinglesEvent(item),
	}
	if item.StartAt != nil {
		start := time.Unix(*item.StartAt, 0).UTC()
		out.StartAt = &start
	}
	if item.Videogame != nil {
		out.VideogameID = item.Videogame.ID
	}
	return out
}

// isSinglesEvent keeps only 1v1 brackets. Team events either report a roster
// size above one or omit roster metadata with team-style entrants.
func isSinglesEvent(item wireEvent) bool {
	if item.TeamRosterSize == nil {
		return true
	}
	min := 1
	max := 1
	if item.TeamRosterSize.MinPlayers != nil {
		min = *item.TeamRosterSize.MinPlayers
	}
	if item.TeamRosterSize.MaxPlayers != nil {
		max = *item.TeamRosterSize.MaxPlayers
	}
	return min == 1 && max == 1
}

func mapEntrant(item wireEntrant) bracket.Entrant {
	out := bracket.Entrant{
		ID:          item.ID,
		Name:        strings.TrimSpace(item.Name),
		InitialSeed: item.InitialSeed,
	}
	for _, part := range item.Participants {
		mapped := bracket.Participant{}
		if part.Player != nil {
			mapped.Player = &bracket.Player{ID: part.Player.ID, GamerTag: strings.TrimSpace(part.Player.GamerTag)}
		}
		if part.User != nil && part.User.Location != nil {
			mapped.Location = &bracket.Location{
				City:    strings.TrimSpace(part.User.Location.City),
				State:   tournament.NormalizeState(part.User.Location.State),
				Country: strings.TrimSpace(part.User.Location.Country),
			}
		}
		out.Participants = append(out.Participants, mapped)
	}
	return out
}

// ListTournamentsByState pages through recent tournaments for one region and
// keeps those inside the window. Results come back newest first, so paging
// stops as soon as a page ends before the window start.
func (c *Client) ListTournamentsByState(ctx context.Context, state string, window tournament.Window, now time.Time) ([]tournament.Tournament, error) {
	state = tournament.NormalizeState(state)
	if state == "" {
		return nil, fmt.Errorf("state must not be empty")
	}
	windowStart, windowEnd := window.Bounds(now)

	var out []tournament.Tournament
	totalPages := 1
	for page := 1; page <= totalPages; page++ {
		var resp struct {
			Tournaments struct {
				PageInfo pageInfo         `json:"pageInfo"`
				Nodes    []wireTournament `json:"nodes"`
			} `json:"tournaments"`
		}
		err := c.Execute(ctx, queryTournamentsByState, map[string]any{
			"perPage": tournamentsPerPage,
			"page":    page,
			"state":   state,
		}, &resp)
		if err != nil {
			return nil, fmt.Errorf("list tournaments state=%s page=%d: %w", state, page, err)
		}
		if resp.Tournaments.PageInfo.TotalPages > totalPages {
			totalPages = resp.Tournaments.PageInfo.TotalPages
		}

		pastWindow := false
		for _, node := range resp.Tournaments.Nodes {
			mapped := mapTournament(node)
			if mapped.ID <= 0 || mapped.StartAt.IsZero() {
				continue
			}
			if mapped.StartAt.Before(windowStart) {
				pastWindow = true
				continue
			}
			if mapped.StartAt.After(windowEnd) {
				continue
			}
			out = append(out, mapped)
		}
		if pastWindow {
			break
		}
	}
	return out, nil
}

// FetchTournamentBySlug resolves one tournament by its canonical slug.
func (c *Client) FetchTournamentBySlug(ctx context.Context, slug string) (*tournament.Tournament, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, fmt.Errorf("slug must not be empty")
	}

	var resp struct {
		Tournament *wireTournament `json:"tournament"`
	}
	if err := c.Execute(ctx, queryTournamentBySlug, map[string]any{"slug": slug}, &resp); err != nil {
		return nil, fmt.Errorf("fetch tournament slug=%s: %w", slug, err)
	}
	if resp.Tournament == nil || resp.Tournament.ID <= 0 {
		return nil, nil
	}
	mapped := mapTournament(*resp.Tournament)
	return &mapped, nil
}

// ListEvents fetches a tournament's singles events for one game.
func (c *Client) ListEvents(ctx context.Context, tournamentID int64, slug string, videogameID int) ([]tournament.Event, error) {
	var resp struct {
		Tournament *struct {
			ID     int64       `json:"id"`
			Events []wireEvent `json:"events"`
		} `json:"tournament"`
	}
	if err := c.Execute(ctx, queryTournamentEvents, map[string]any{"slug": slug}, &resp); err != nil {
		return nil, fmt.Errorf("list events slug=%s: %w", slug, err)
	}
	if resp.Tournament == nil {
		return nil, nil
	}

	var out []tournament.Event
	for _, item := range resp.Tournament.Events {
		mapped := mapEvent(tournamentID, item)
		if mapped.ID <= 0 || !mapped.Singles {
			continue
		}
		if videogameID > 0 && mapped.VideogameID != videogameID {
			continue
		}
		out = append(out, mapped)
	}
	return out, nil
}

// FetchBundle pulls everything needed to analyze one event: seeds across all
// phases, final standings, and the full set list.
func (c *Client) FetchBundle(ctx context.Context, eventID int64) (bracket.Bundle, error) {
	bundle := bracket.Bundle{EventID: eventID}

	seeds, err := c.fetchSeeds(ctx, eventID)
	if err != nil {
		return bundle, err
	}
	bundle.Seeds = seeds

	standings, err := c.fetchStandings(ctx, eventID)
	if err != nil {
		return bundle, err
	}
	bundle.Standings = standings

	sets, err := c.fetchSets(ctx, eventID)
	if err != nil {
		return bundle, err
	}
	bundle.Sets = sets
	return bundle, nil
}

func (c *Client) fetchSeeds(ctx context.Context, eventID int64) ([]bracket.Seed, error) {
	var phasesResp struct {
		Event *struct {
			Phases []struct {
				ID int64 `json:"id"`
			} `json:"phases"`
		} `json:"event"`
	}
	if err := c.Execute(ctx, queryEventPhases, map[string]any{"eventId": eventID}, &phasesResp); err != nil {
		return nil, fmt.Errorf("fetch phases event_id=%d: %w", eventID, err)
	}
	if phasesResp.Event == nil {
		return nil, nil
	}

	var out []bracket.Seed
	seen := make(map[int64]struct{})
	for _, phase := range phasesResp.Event.Phases {
		totalPages := 1
		for page := 1; page <= totalPages; page++ {
			var resp struct {
				Phase *struct {
					Seeds struct {
						PageInfo pageInfo `json:"pageInfo"`
						Nodes    []struct {
							SeedNum int         `json:"seedNum"`
							Entrant wireEntrant `json:"entrant"`
						} `json:"nodes"`
					} `json:"seeds"`
				} `json:"phase"`
			}
			err := c.Execute(ctx, queryPhaseSeeds, map[string]any{
				"phaseId": phase.ID,
				"page":    page,
				"perPage": seedsPerPage,
			}, &resp)
			if err != nil {
				return nil, fmt.Errorf("fetch seeds event_id=%d phase_id=%d page=%d: %w", eventID, phase.ID, page, err)
			}
			if resp.Phase == nil {
				break
			}
			if resp.Phase.Seeds.PageInfo.TotalPages > totalPages {
				totalPages = resp.Phase.Seeds.PageInfo.TotalPages
			}
			for _, node := range resp.Phase.Seeds.Nodes {
				if node.Entrant.ID <= 0 {
					continue
				}
				// First phase wins when an entrant is seeded in several phases.
				if _, dup := seen[node.Entrant.ID]; dup {
					continue
				}
				seen[node.Entrant.ID] = struct{}{}
				out = append(out, bracket.Seed{SeedNum: node.SeedNum, Entrant: mapEntrant(node.Entrant)})
			}
		}
	}
	return out, nil
}

func (c *Client) fetchStandings(ctx context.Context, eventID int64) ([]bracket.Standing, error) {
	var out []bracket.Standing
	totalPages := 1
	for page := 1; page <= totalPages; page++ {
		var resp struct {
			Event *struct {
				Standings struct {
					PageInfo pageInfo `json:"pageInfo"`
					Nodes    []struct {
						Placement int         `json:"placement"`
						Entrant   wireEntrant `json:"entrant"`
					} `json:"nodes"`
				} `json:"standings"`
			} `json:"event"`
		}
		err := c.Execute(ctx, queryEventStandings, map[string]any{
			"eventId": eventID,
			"page":    page,
			"perPage": standingsPerPage,
		}, &resp)
		if err != nil {
			return nil, fmt.Errorf("fetch standings event_id=%d page=%d: %w", eventID, page, err)
		}
		if resp.Event == nil {
			break
		}
		if resp.Event.Standings.PageInfo.TotalPages > totalPages {
			totalPages = resp.Event.Standings.PageInfo.TotalPages
		}
		for _, node := range resp.Event.Standings.Nodes {
			if node.Entrant.ID <= 0 || node.Placement <= 0 {
				continue
			}
			out = append(out, bracket.Standing{Placement: node.Placement, Entrant: mapEntrant(node.Entrant)})
		}
	}
	return out, nil
}

func (c *Client) fetchSets(ctx context.Context, eventID int64) ([]bracket.SetNode, error) {
	var out []bracket.SetNode
	totalPages := 1
	for page := 1; page <= totalPages; page++ {
		var resp struct {
			Event *struct {
				Sets struct {
					PageInfo pageInfo `json:"pageInfo"`
					Nodes    []struct {
						ID            int64  `json:"id"`
						WinnerID      *int64 `json:"winnerId"`
						Round         *int   `json:"round"`
						FullRoundText string `json:"fullRoundText"`
						CompletedAt   *int64 `json:"completedAt"`
						Slots         []struct {
							Entrant *wireEntrant `json:"entrant"`
						} `json:"slots"`
						Games []struct {
							WinnerID   *int64 `json:"winnerId"`
							Selections []struct {
								Entrant *struct {
									ID int64 `json:"id"`
								} `json:"entrant"`
								Character *struct {
									ID   int64  `json:"id"`
									Name string `json:"name"`
								} `json:"character"`
							} `json:"selections"`
						} `json:"games"`
					} `json:"nodes"`
				} `json:"sets"`
			} `json:"event"`
		}
		err := c.Execute(ctx, queryEventSets, map[string]any{
			"eventId": eventID,
			"page":    page,
			"perPage": setsPerPage,
		}, &resp)
		if err != nil {
			return nil, fmt.Errorf("fetch sets event_id=%d page=%d: %w", eventID, page, err)
		}
		if resp.Event == nil {
			break
		}
		if resp.Event.Sets.PageInfo.TotalPages > totalPages {
			totalPages = resp.Event.Sets.PageInfo.TotalPages
		}
		for _, node := range resp.Event.Sets.Nodes {
			if node.ID <= 0 {
				continue
			}
			set := bracket.SetNode{
				ID:            node.ID,
				WinnerID:      node.WinnerID,
				Round:         node.Round,
				FullRoundText: strings.TrimSpace(node.FullRoundText),
				CompletedAt:   node.CompletedAt,
			}
			for _, slot := range node.Slots {
				mapped := bracket.Slot{}
				if slot.Entrant != nil {
					entrant := mapEntrant(*slot.Entrant)
					mapped.Entrant = &entrant
				}
				set.Slots = append(set.Slots, mapped)
			}
			for _, game := range node.Games {
				mappedGame := bracket.Game{WinnerID: game.WinnerID}
				for _, sel := range game.Selections {
					mappedSel := bracket.Selection{}
					if sel.Entrant != nil {
						mappedSel.Entrant = &bracket.Entrant{ID: sel.Entrant.ID}
					}
					if sel.Character != nil {
						mappedSel.Character = &bracket.Character{ID: sel.Character.ID, Name: strings.TrimSpace(sel.Character.Name)}
					}
					mappedGame.Selections = append(mappedGame.Selections, mappedSel)
				}
				set.Games = append(set.Games, mappedGame)
			}
			out = append(out, set)
		}
	}
	return out, nil
}
