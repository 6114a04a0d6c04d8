package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/meeting-scheduler/internal/calendar"
	"github.com/example/meeting-scheduler/internal/persistence"
)

// MeetingClaimStore captures the persistence interactions for assignment.
type MeetingClaimStore interface {
	GetMeeting(ctx context.Context, id string) (persistence.Meeting, error)
	ClaimMeeting(ctx context.Context, meetingID, memberID string) error
	SetExternalEventID(ctx context.Context, meetingID, eventID string) error
}

// MemberLookup resolves team members for assignment.
type MemberLookup interface {
	GetTeamMember(ctx context.Context, id string) (persistence.TeamMember, error)
}

// AssignmentService performs first-come meeting claims and best-effort
// external calendar event creation.
type AssignmentService struct {
	meetings     MeetingClaimStore
	members      MemberLookup
	provider     calendar.Provider
	eventTimeout time.Duration
	logger       *slog.Logger
}

// NewAssignmentService wires dependencies for meeting assignment.
func NewAssignmentService(meetings MeetingClaimStore, members MemberLookup, provider calendar.Provider, eventTimeout time.Duration, logger *slog.Logger) *AssignmentService {
	if eventTimeout <= 0 {
		eventTimeout = 10 * time.Second
	}
	return &AssignmentService{
		meetings:     meetings,
		members:      members,
		provider:     provider,
		eventTimeout: eventTimeout,
		logger:       defaultLogger(logger),
	}
}

// Assign awards the pending meeting to the requesting team member.
//
// The pending-to-assigned transition and the member's load counter increment
// happen in one atomic claim against the datastore, so two concurrent
// assigns for the same meeting resolve to exactly one winner; the loser gets
// ErrAlreadyAssigned. A missing or inactive member, or a missing meeting,
// yields ErrNotFound with no mutation.
//
// After the claim commits, an external calendar event is created with the
// assignee's stored credential. That step is best effort: a missing
// credential or provider failure sets CalendarWarning on the result and
// never undoes the assignment.
func (s *AssignmentService) Assign(ctx context.Context, meetingID, memberID string) (AssignmentResult, error) {
	if s == nil || s.meetings == nil || s.members == nil {
		return AssignmentResult{}, fmt.Errorf("assignment dependencies not configured")
	}

	logger := serviceLogger(ctx, s.logger, "AssignmentService", "Assign",
		"meeting_id", meetingID,
		"member_id", memberID,
	)

	meeting, err := s.meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		return AssignmentResult{}, mapRepoError(err)
	}

	member, err := s.members.GetTeamMember(ctx, memberID)
	if err != nil {
		return AssignmentResult{}, mapRepoError(err)
	}
	if !member.Active {
		return AssignmentResult{}, ErrNotFound
	}

	if err := s.meetings.ClaimMeeting(ctx, meetingID, memberID); err != nil {
		mapped := mapRepoError(err)
		if errors.Is(mapped, ErrAlreadyAssigned) {
			logger.InfoContext(ctx, "claim lost to concurrent assignment")
		} else {
			logger.ErrorContext(ctx, "claim failed", "error", err, "error_kind", ErrorKind(mapped))
		}
		return AssignmentResult{}, mapped
	}

	meeting.Status = persistence.MeetingStatusAssigned
	meeting.AssignedTo = &member.ID
	logger.InfoContext(ctx, "meeting assigned")

	result := AssignmentResult{Meeting: meeting}
	s.createCalendarEvent(ctx, logger, &result, meeting, member)
	return result, nil
}

// createCalendarEvent attempts the downstream event creation and records
// the outcome on result. Failures are reported as a warning flag only.
func (s *AssignmentService) createCalendarEvent(ctx context.Context, logger *slog.Logger, result *AssignmentResult, meeting persistence.Meeting, member persistence.TeamMember) {
	if s.provider == nil || member.AccessToken == nil || *member.AccessToken == "" {
		result.CalendarWarning = true
		logger.InfoContext(ctx, "no calendar credential, skipping event creation")
		return
	}

	cred := calendar.Credential{AccessToken: *member.AccessToken}
	if member.RefreshToken != nil {
		cred.RefreshToken = *member.RefreshToken
	}
	if member.CalendarID != nil {
		cred.CalendarID = *member.CalendarID
	}

	eventCtx, cancel := context.WithTimeout(ctx, s.eventTimeout)
	defer cancel()

	eventID, err := s.provider.CreateEvent(eventCtx, cred, calendar.EventDetails{
		Title:         meeting.Title,
		Description:   meeting.Description,
		Start:         meeting.Start,
		End:           meeting.End,
		CustomerEmail: meeting.CustomerEmail,
		MemberEmail:   member.Email,
		MeetingID:     meeting.ID,
	})
	if err != nil {
		result.CalendarWarning = true
		logger.WarnContext(ctx, "calendar event creation failed", "error", err)
		return
	}

	if err := s.meetings.SetExternalEventID(ctx, meeting.ID, eventID); err != nil {
		result.CalendarWarning = true
		logger.WarnContext(ctx, "recording external event id failed", "event_id", eventID, "error", err)
		return
	}

	result.ExternalEventID = eventID
	result.Meeting.ExternalEventID = &eventID
	logger.InfoContext(ctx, "calendar event created", "event_id", eventID)
}

func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrAlreadyClaimed) {
		return ErrAlreadyAssigned
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	return err
}
