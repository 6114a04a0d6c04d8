package persistence

import "time"

// TeamMember represents a member of the team that meetings are assigned to.
type TeamMember struct {
	ID                  string
	Name                string
	Email               string
	Active              bool
	MeetingCount        int
	AccessToken         *string
	RefreshToken        *string
	CalendarID          *string
	CalendarSyncEnabled bool
	CreatedAt           time.Time
}

// MeetingStatus enumerates the lifecycle states of a meeting record.
type MeetingStatus string

const (
	// MeetingStatusPending marks a booked meeting awaiting a team member claim.
	MeetingStatusPending MeetingStatus = "pending"
	// MeetingStatusAssigned marks a meeting claimed by exactly one team member.
	MeetingStatusAssigned MeetingStatus = "assigned"
	// MeetingStatusCompleted marks a meeting that already took place.
	MeetingStatusCompleted MeetingStatus = "completed"
)

// Meeting represents a customer booking stored in persistence.
type Meeting struct {
	ID              string
	CustomerName    string
	CustomerEmail   string
	Title           string
	Description     string
	Start           time.Time
	End             time.Time
	Status          MeetingStatus
	AssignedTo      *string
	ExternalEventID *string
	CreatedAt       time.Time
}

// SlotTemplateEntry represents one weekly recurring availability window.
// StartMinute and EndMinute count minutes since midnight on the entry's weekday.
type SlotTemplateEntry struct {
	ID              string
	DayOfWeek       time.Weekday
	StartMinute     int
	EndMinute       int
	DurationMinutes int
	Active          bool
}

// Session represents an authenticated team session persisted for a member.
type Session struct {
	ID        string
	MemberID  string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}
