package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/smashcc/analytics/internal/domain/series"
	"github.com/smashcc/analytics/internal/domain/tournament"
	"github.com/smashcc/analytics/internal/platform/logging"
)

// AmbiguousSeriesError reports a resolve call that matched more than one
// series, carrying the candidates so callers can present the options.
type AmbiguousSeriesError struct {
	Terms      []string
	Candidates []series.Candidate
}

func (e *AmbiguousSeriesError) Error() string {
	keys := make([]string, 0, len(e.Candidates))
	for _, c := range e.Candidates {
		keys = append(keys, c.Key)
	}
	return fmt.Sprintf("series terms %v matched %d series: %s", e.Terms, len(e.Candidates), strings.Join(keys, ", "))
}

func (e *AmbiguousSeriesError) Unwrap() error {
	return ErrAmbiguousSeries
}

// SeriesService groups tournaments into recurring series and resolves
// user-supplied search terms against them.
type SeriesService struct {
	tournaments tournament.Repository
	events      tournament.EventRepository
	logger      *logging.Logger
	now         func() time.Time
}

func NewSeriesService(tournaments tournament.Repository, events tournament.EventRepository, logger *logging.Logger) *SeriesService {
	if logger == nil {
		logger = logging.Default()
	}
	return &SeriesService{
		tournaments: tournaments,
		events:      events,
		logger:      logger,
		now:         time.Now,
	}
}

// Discover groups a region's tournaments by their edition-stripped slug and
// ranks the resulting series by drawing power. Only the target game's
// singles events count: their entrants drive the totals, and a tournament
// with no such event stored does not join a series at all.
func (s *SeriesService) Discover(ctx context.Context, state string, videogameID int, window tournament.Window) ([]series.Candidate, error) {
	ctx, span := startUsecaseSpan(ctx, "SeriesService.Discover")
	defer span.End()

	state = tournament.NormalizeState(state)
	if state == "" {
		return nil, fmt.Errorf("%w: state is required", ErrInvalidInput)
	}
	if videogameID <= 0 {
		return nil, fmt.Errorf("%w: videogame id is required", ErrInvalidInput)
	}

	start, end := window.Bounds(s.now())
	rows, err := s.tournaments.ListWindow(ctx, state, start, end)
	if err != nil {
		return nil, fmt.Errorf("list tournaments for series discovery: %w", err)
	}

	byKey := make(map[string]*series.Candidate)
	for _, trn := range rows {
		key := series.NormalizeSlug(trn.Slug)
		if key == "" {
			continue
		}
		stored, err := s.events.ListByTournament(ctx, trn.ID)
		if err != nil {
			return nil, fmt.Errorf("list events tournament_id=%d: %w", trn.ID, err)
		}
		var matched []tournament.Event
		for _, event := range stored {
			if event.Singles && event.VideogameID == videogameID {
				matched = append(matched, event)
			}
		}
		if len(matched) == 0 {
			continue
		}

		cand, ok := byKey[key]
		if !ok {
			cand = &series.Candidate{
				Key:        key,
				SampleName: series.NormalizeName(trn.Name),
				SampleSlug: trn.Slug,
			}
			byKey[key] = cand
		}
		cand.TournamentIDs = append(cand.TournamentIDs, trn.ID)
		cand.EventCount += len(matched)
		for _, event := range matched {
			if event.NumEntrants == nil {
				continue
			}
			cand.TotalAttendees += *event.NumEntrants
			if *event.NumEntrants > cand.MaxAttendees {
				cand.MaxAttendees = *event.NumEntrants
			}
		}
	}

	out := make([]series.Candidate, 0, len(byKey))
	for _, cand := range byKey {
		sort.Slice(cand.TournamentIDs, func(i, j int) bool { return cand.TournamentIDs[i] < cand.TournamentIDs[j] })
		out = append(out, *cand)
	}
	series.Rank(out)
	return out, nil
}

// Resolve matches search terms against discovered series. Every supplied
// term participates: a candidate matches when any term is a case-insensitive
// substring of its key, sample slug, or sample name. Exactly one match is
// required; several matches surface the candidates instead of silently
// picking one.
func (s *SeriesService) Resolve(ctx context.Context, state string, videogameID int, window tournament.Window, terms []string) (series.Candidate, error) {
	cleaned := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" {
			cleaned = append(cleaned, term)
		}
	}
	if len(cleaned) == 0 {
		return series.Candidate{}, fmt.Errorf("%w: at least one series term is required", ErrInvalidInput)
	}

	cands, err := s.Discover(ctx, state, videogameID, window)
	if err != nil {
		return series.Candidate{}, err
	}

	var matches []series.Candidate
	for _, cand := range cands {
		if candidateMatches(cand, cleaned) {
			matches = append(matches, cand)
		}
	}

	switch len(matches) {
	case 0:
		return series.Candidate{}, fmt.Errorf("%w: no series matched terms %v", ErrNotFound, cleaned)
	case 1:
		return matches[0], nil
	default:
		return series.Candidate{}, &AmbiguousSeriesError{Terms: cleaned, Candidates: matches}
	}
}

// AutoSelect returns the series worth precomputing for a region: the top
// ranked ones plus anything clearing the attendance or recurrence bars.
func (s *SeriesService) AutoSelect(ctx context.Context, state string, videogameID int, window tournament.Window, topN, minMaxAttendees, minEventCount int) ([]series.Candidate, error) {
	cands, err := s.Discover(ctx, state, videogameID, window)
	if err != nil {
		return nil, err
	}
	if minMaxAttendees <= 0 {
		minMaxAttendees = series.DefaultMinMaxAttendees
	}
	if minEventCount <= 0 {
		minEventCount = series.DefaultMinEventCount
	}
	return series.Select(cands, topN, minMaxAttendees, minEventCount), nil
}

func candidateMatches(cand series.Candidate, terms []string) bool {
	key := strings.ToLower(cand.Key)
	slug := strings.ToLower(cand.SampleSlug)
	name := strings.ToLower(cand.SampleName)
	for _, term := range terms {
		if strings.Contains(key, term) || strings.Contains(slug, term) || strings.Contains(name, term) {
			return true
		}
	}
	return false
}
