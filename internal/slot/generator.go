package slot

import (
	"sort"
	"time"
)

// TemplateEntry describes one weekly recurring availability window.
// StartMinute and EndMinute count minutes since midnight on the entry's
// weekday; Duration is the fixed length of each bookable slot.
type TemplateEntry struct {
	DayOfWeek   time.Weekday
	StartMinute int
	EndMinute   int
	Duration    time.Duration
}

// Candidate represents one bookable slot derived from a template entry.
// Candidates are transient; they are produced fresh per request and never
// persisted.
type Candidate struct {
	Start    time.Time
	End      time.Time
	Duration time.Duration
}

// Generator expands weekly template entries into candidate slots for a
// concrete date.
type Generator struct {
	location *time.Location
}

// NewGenerator constructs a Generator that anchors template times in the
// provided location. If loc is nil, UTC is used.
func NewGenerator(loc *time.Location) *Generator {
	if loc == nil {
		loc = time.UTC
	}
	return &Generator{location: loc}
}

// Generate produces the ordered candidate slots for date from the supplied
// template entries.
//
// Semantics:
//   - Only entries whose weekday matches date's weekday contribute.
//   - Each entry emits contiguous slots of its duration starting at the
//     window start; emission stops as soon as the next slot's end would pass
//     the window end, so trailing partial time is dropped.
//   - Runs from multiple entries are merged by a stable sort on start time.
//     Overlapping entries therefore produce duplicate candidates; the
//     template is admin curated and entries do not overlap in practice.
//
// Generate is a total function: it returns an empty slice, never an error,
// when no entry matches or a window is shorter than one duration unit.
func (g *Generator) Generate(date time.Time, entries []TemplateEntry) []Candidate {
	loc := g.location
	if loc == nil {
		loc = time.UTC
	}

	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	weekday := day.Weekday()

	candidates := make([]Candidate, 0, len(entries)*8)
	for _, entry := range entries {
		if entry.DayOfWeek != weekday {
			continue
		}
		if entry.Duration <= 0 || entry.EndMinute <= entry.StartMinute {
			continue
		}

		windowEnd := day.Add(time.Duration(entry.EndMinute) * time.Minute)
		current := day.Add(time.Duration(entry.StartMinute) * time.Minute)
		for !current.Add(entry.Duration).After(windowEnd) {
			candidates = append(candidates, Candidate{
				Start:    current,
				End:      current.Add(entry.Duration),
				Duration: entry.Duration,
			})
			current = current.Add(entry.Duration)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Start.Before(candidates[j].Start)
	})

	return candidates
}
