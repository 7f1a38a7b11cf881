package series

import (
	"regexp"
	"sort"
	"strings"
)

// Defaults for auto-discovery selection.
const (
	DefaultTopN            = 5
	DefaultMinMaxAttendees = 32
	DefaultMinEventCount   = 3
)

// Candidate is one recurring-series grouping discovered from tournament
// names and slugs in a window.
type Candidate struct {
	Key            string
	SampleName     string
	SampleSlug     string
	TournamentIDs  []int64
	EventCount     int
	TotalAttendees int
	MaxAttendees   int
}

// Recurring editions carry a trailing counter ("weekly-87", "Vol. 12");
// stripping it collapses editions of the same series onto one key.
var (
	slugEditionRe = regexp.MustCompile(`-?(week|wk|weekly|monthly|month|vol|volume)?-?\d+$`)
	nameEditionRe = regexp.MustCompile(`(?i)[\s\-#:]*(week|wk|weekly|monthly|month|vol|volume)?\.?\s*\d+$`)
)

// NormalizeSlug reduces a tournament slug to its series key.
func NormalizeSlug(slug string) string {
	s := strings.ToLower(strings.TrimSpace(slug))
	s = strings.TrimPrefix(s, "tournament/")
	s = slugEditionRe.ReplaceAllString(s, "")
	return strings.Trim(s, "-")
}

// NormalizeName reduces a tournament name to its series display key.
func NormalizeName(name string) string {
	s := strings.TrimSpace(name)
	s = nameEditionRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Rank orders candidates by drawing power: total attendees, then event
// count, then peak attendance, with the key as the tiebreaker.
func Rank(cands []Candidate) {
	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.TotalAttendees != b.TotalAttendees {
			return a.TotalAttendees > b.TotalAttendees
		}
		if a.EventCount != b.EventCount {
			return a.EventCount > b.EventCount
		}
		if a.MaxAttendees != b.MaxAttendees {
			return a.MaxAttendees > b.MaxAttendees
		}
		return a.Key > b.Key
	})
}

// Select keeps the top n candidates plus any that clear the attendance or
// recurrence thresholds on their own. Input must already be ranked.
func Select(cands []Candidate, topN, minMaxAttendees, minEventCount int) []Candidate {
	if topN <= 0 {
		topN = DefaultTopN
	}
	var out []Candidate
	for i, c := range cands {
		if i < topN || c.MaxAttendees >= minMaxAttendees || c.EventCount >= minEventCount {
			out = append(out, c)
		}
	}
	return out
}
