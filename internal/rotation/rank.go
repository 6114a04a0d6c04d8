// Package rotation ranks team members by assignment load so callers can show
// who is next in the rotation. Ranking is advisory: assignment itself is a
// self-service pull, never pushed from here.
package rotation

import "sort"

// Member carries the fields ranking needs from a team member.
type Member struct {
	ID           string
	Name         string
	MeetingCount int
}

// Rank orders members by ascending meeting count, ties broken by ID so the
// result is deterministic for identical loads. The input slice is not
// modified.
func Rank(members []Member) []Member {
	ranked := make([]Member, len(members))
	copy(ranked, members)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].MeetingCount == ranked[j].MeetingCount {
			return ranked[i].ID < ranked[j].ID
		}
		return ranked[i].MeetingCount < ranked[j].MeetingCount
	})

	return ranked
}

// Next returns the member first in rotation, if any.
func Next(members []Member) (Member, bool) {
	if len(members) == 0 {
		return Member{}, false
	}
	return Rank(members)[0], true
}
