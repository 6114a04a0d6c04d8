package application

import (
	"time"

	"github.com/example/meeting-scheduler/internal/persistence"
)

// Principal represents the authenticated team member invoking an operation.
type Principal struct {
	MemberID string
	Email    string
}

// MeetingInput captures caller provided booking fields.
type MeetingInput struct {
	CustomerName  string
	CustomerEmail string
	Title         string
	Description   string
	Start         time.Time
	End           time.Time
}

// MemberInput captures caller provided team member fields.
type MemberInput struct {
	Name  string
	Email string
}

// AssignmentResult reports the outcome of a successful meeting claim.
// CalendarWarning is set when the claim succeeded but external calendar
// event creation did not; the assignment itself is never rolled back for a
// downstream integration failure.
type AssignmentResult struct {
	Meeting         persistence.Meeting
	ExternalEventID string
	CalendarWarning bool
}

// AuthResult reports a completed OAuth callback: the issued session token
// and the team member it belongs to.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	Member    persistence.TeamMember
}
