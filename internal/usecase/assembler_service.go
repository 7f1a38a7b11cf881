package usecase

import (
	"sort"
	"time"

	"github.com/smashcc/analytics/internal/domain/bracket"
	"github.com/smashcc/analytics/internal/domain/results"
	"github.com/smashcc/analytics/internal/domain/tournament"
	"github.com/smashcc/analytics/internal/platform/logging"
)

// AssemblerService flattens raw event bundles into per-player records.
type AssemblerService struct {
	logger *logging.Logger
}

func NewAssemblerService(logger *logging.Logger) *AssemblerService {
	if logger == nil {
		logger = logging.Default()
	}
	return &AssemblerService{logger: logger}
}

type entrantInfo struct {
	entrant   bracket.Entrant
	player    bracket.Player
	location  *bracket.Location
	seedNum   *int
	placement *int
}

// Build joins one event's seeds, standings, and sets into player records.
// Team entrants are skipped entirely. A malformed set side costs only that
// set record, never the player's seed or placement row. Players appear when
// they have at least one seed, standing, or decided set.
func (s *AssemblerService) Build(trn tournament.Tournament, event tournament.Event, bundle bracket.Bundle) []results.PlayerEventResult {
	byEntrant := make(map[int64]*entrantInfo)

	register := func(e bracket.Entrant) *entrantInfo {
		player := e.SinglePlayer()
		if player == nil || player.ID <= 0 {
			return nil
		}
		info, ok := byEntrant[e.ID]
		if !ok {
			info = &entrantInfo{entrant: e, player: *player, location: e.SelfReportedLocation()}
			byEntrant[e.ID] = info
		}
		if info.location == nil {
			info.location = e.SelfReportedLocation()
		}
		return info
	}

	for _, seed := range bundle.Seeds {
		info := register(seed.Entrant)
		if info == nil {
			continue
		}
		if info.seedNum == nil && seed.SeedNum > 0 {
			num := seed.SeedNum
			info.seedNum = &num
		}
	}
	for _, standing := range bundle.Standings {
		info := register(standing.Entrant)
		if info == nil {
			continue
		}
		if info.placement == nil && standing.Placement > 0 {
			place := standing.Placement
			info.placement = &place
		}
	}

	setsByEntrant := make(map[int64][]results.SetRecord)
	for _, set := range bundle.Sets {
		s.appendSetRecords(setsByEntrant, byEntrant, set)
	}

	out := make([]results.PlayerEventResult, 0, len(byEntrant))
	for entrantID, info := range byEntrant {
		sets := setsByEntrant[entrantID]
		if info.seedNum == nil && info.placement == nil && len(sets) == 0 {
			continue
		}
		sort.Slice(sets, func(i, j int) bool { return sets[i].SetID < sets[j].SetID })

		record := results.PlayerEventResult{
			PlayerID:  info.player.ID,
			GamerTag:  info.player.GamerTag,
			EntrantID: entrantID,
			SeedNum:   info.seedNum,
			Placement: info.placement,

			EventID:     event.ID,
			EventName:   event.Name,
			EventSlug:   event.Slug,
			NumEntrants: event.NumEntrants,
			VideogameID: event.VideogameID,

			TournamentID:      trn.ID,
			TournamentSlug:    trn.Slug,
			TournamentName:    trn.Name,
			TournamentCity:    trn.City,
			TournamentSt:      trn.State,
			TournamentCountry: trn.CountryCode,
			StartAt:           trn.StartAt,

			Sets: sets,
		}
		if info.location != nil {
			record.City = info.location.City
			record.State = tournament.NormalizeState(info.location.State)
			record.Country = info.location.Country
			record.HasSelfLoc = record.State != "" || record.Country != ""
		}
		out = append(out, record)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].PlayerID != out[j].PlayerID {
			return out[i].PlayerID < out[j].PlayerID
		}
		return out[i].EntrantID < out[j].EntrantID
	})
	return out
}

func (s *AssemblerService) appendSetRecords(dst map[int64][]results.SetRecord, byEntrant map[int64]*entrantInfo, set bracket.SetNode) {
	if len(set.Slots) != 2 {
		return
	}

	charsByEntrant := make(map[int64]map[string]struct{})
	for _, game := range set.Games {
		for _, sel := range game.Selections {
			if sel.Entrant == nil || sel.Character == nil || sel.Character.Name == "" {
				continue
			}
			if charsByEntrant[sel.Entrant.ID] == nil {
				charsByEntrant[sel.Entrant.ID] = make(map[string]struct{})
			}
			charsByEntrant[sel.Entrant.ID][sel.Character.Name] = struct{}{}
		}
	}

	for side := 0; side < 2; side++ {
		mine := set.Slots[side].Entrant
		theirs := set.Slots[1-side].Entrant
		if mine == nil {
			continue
		}
		if _, known := byEntrant[mine.ID]; !known {
			continue
		}
		if theirs == nil || theirs.ID <= 0 {
			// Opponent side is malformed; drop this set record only.
			continue
		}

		record := results.SetRecord{
			SetID:             set.ID,
			OpponentEntrantID: theirs.ID,
			OpponentTag:       theirs.Name,
			RoundText:         set.FullRoundText,
			Characters:        sortedChars(charsByEntrant[mine.ID]),
			OpponentChars:     sortedChars(charsByEntrant[theirs.ID]),
		}
		if oppPlayer := theirs.SinglePlayer(); oppPlayer != nil {
			id := oppPlayer.ID
			record.OpponentPlayerID = &id
			if oppPlayer.GamerTag != "" {
				record.OpponentTag = oppPlayer.GamerTag
			}
		}
		if oppInfo, ok := byEntrant[theirs.ID]; ok {
			record.OpponentSeed = oppInfo.seedNum
			record.OpponentPlacement = oppInfo.placement
		}
		if set.WinnerID != nil {
			won := *set.WinnerID == mine.ID
			record.Won = &won
		}
		if set.CompletedAt != nil {
			at := time.Unix(*set.CompletedAt, 0).UTC()
			record.CompletedAt = &at
		}
		dst[mine.ID] = append(dst[mine.ID], record)
	}
}

func sortedChars(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
