package persistence

import (
	"context"
	"time"
)

// TeamMemberRepository exposes team member storage operations.
type TeamMemberRepository interface {
	CreateTeamMember(ctx context.Context, member TeamMember) error
	GetTeamMember(ctx context.Context, id string) (TeamMember, error)
	GetTeamMemberByEmail(ctx context.Context, email string) (TeamMember, error)
	// ListActiveTeamMembers returns active members ordered by ascending
	// meeting count, ties broken by ID.
	ListActiveTeamMembers(ctx context.Context) ([]TeamMember, error)
	// ListCalendarMembers returns active members that have calendar sync
	// enabled and a stored credential.
	ListCalendarMembers(ctx context.Context) ([]TeamMember, error)
	UpdateCalendarCredential(ctx context.Context, id string, accessToken, refreshToken, calendarID string) error
}

// MeetingRepository exposes meeting storage operations.
type MeetingRepository interface {
	CreateMeeting(ctx context.Context, meeting Meeting) error
	GetMeeting(ctx context.Context, id string) (Meeting, error)
	// ListPendingMeetings returns pending meetings ordered by start time.
	ListPendingMeetings(ctx context.Context) ([]Meeting, error)
	// ClaimMeeting atomically transitions a pending meeting to assigned and
	// increments the claiming member's meeting count in the same transaction.
	// Returns ErrNotFound when the meeting or member does not exist and
	// ErrAlreadyClaimed when the meeting is no longer pending.
	ClaimMeeting(ctx context.Context, meetingID, memberID string) error
	SetExternalEventID(ctx context.Context, meetingID, eventID string) error
}

// SlotTemplateRepository exposes weekly slot template storage operations.
type SlotTemplateRepository interface {
	CreateSlotTemplateEntry(ctx context.Context, entry SlotTemplateEntry) error
	// ListActiveSlotTemplateEntries returns the full active template set.
	ListActiveSlotTemplateEntries(ctx context.Context) ([]SlotTemplateEntry, error)
}

// SessionRepository stores authenticated team session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, token string) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error)
}
