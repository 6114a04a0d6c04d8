package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/example/meeting-scheduler/internal/availability"
	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/slot"
)

// SlotTemplateSource exposes the active weekly template set.
type SlotTemplateSource interface {
	ListActiveSlotTemplateEntries(ctx context.Context) ([]persistence.SlotTemplateEntry, error)
}

// MeetingWriter captures the persistence interactions needed for booking.
type MeetingWriter interface {
	CreateMeeting(ctx context.Context, meeting persistence.Meeting) error
	ListPendingMeetings(ctx context.Context) ([]persistence.Meeting, error)
}

// CalendarMemberSource lists members whose calendars participate in
// availability checks.
type CalendarMemberSource interface {
	ListCalendarMembers(ctx context.Context) ([]persistence.TeamMember, error)
}

// SlotFilter narrows candidate slots by member calendar availability.
type SlotFilter interface {
	Filter(ctx context.Context, now time.Time, candidates []slot.Candidate, members []availability.Member) ([]slot.Candidate, error)
}

// BookingService derives bookable slots and records customer bookings.
type BookingService struct {
	templates   SlotTemplateSource
	meetings    MeetingWriter
	members     CalendarMemberSource
	generator   *slot.Generator
	filter      SlotFilter
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewBookingService wires dependencies for slot listing and booking.
func NewBookingService(templates SlotTemplateSource, meetings MeetingWriter, members CalendarMemberSource, generator *slot.Generator, filter SlotFilter, idGenerator func() string, now func() time.Time, logger *slog.Logger) *BookingService {
	if generator == nil {
		generator = slot.NewGenerator(nil)
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		templates:   templates,
		meetings:    meetings,
		members:     members,
		generator:   generator,
		filter:      filter,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// ListSlots returns the bookable slots for date, in ascending start order.
//
// Candidates come from the weekly template; already-elapsed slots are always
// removed. When calendar-synced members exist their free/busy status narrows
// the result, but a filter failure degrades to the time-filtered list:
// booking never blocks entirely on an external outage.
func (s *BookingService) ListSlots(ctx context.Context, date time.Time) ([]slot.Candidate, error) {
	if s == nil || s.templates == nil {
		return nil, fmt.Errorf("slot template source not configured")
	}

	logger := serviceLogger(ctx, s.logger, "BookingService", "ListSlots", "date", date.Format("2006-01-02"))

	entries, err := s.templates.ListActiveSlotTemplateEntries(ctx)
	if err != nil {
		return nil, err
	}

	candidates := s.generator.Generate(date, toTemplateEntries(entries))
	now := s.now()

	members, err := s.calendarMembers(ctx)
	if err != nil {
		logger.WarnContext(ctx, "listing calendar members failed, skipping availability check", "error", err)
		return dropElapsed(candidates, now), nil
	}

	if s.filter == nil {
		return dropElapsed(candidates, now), nil
	}

	filtered, err := s.filter.Filter(ctx, now, candidates, members)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		logger.WarnContext(ctx, "availability filtering failed, falling back to template slots", "error", err)
		return dropElapsed(candidates, now), nil
	}

	return filtered, nil
}

// CreateMeeting validates the booking request and records a pending meeting.
func (s *BookingService) CreateMeeting(ctx context.Context, input MeetingInput) (persistence.Meeting, error) {
	if s == nil || s.meetings == nil {
		return persistence.Meeting{}, fmt.Errorf("meeting repository not configured")
	}

	logger := serviceLogger(ctx, s.logger, "BookingService", "CreateMeeting")

	vErr := &ValidationError{}
	validateMeetingInput(input, vErr)
	if vErr.HasErrors() {
		return persistence.Meeting{}, vErr
	}

	meeting := persistence.Meeting{
		ID:            s.idGenerator(),
		CustomerName:  strings.TrimSpace(input.CustomerName),
		CustomerEmail: strings.TrimSpace(input.CustomerEmail),
		Title:         strings.TrimSpace(input.Title),
		Description:   input.Description,
		Start:         input.Start,
		End:           input.End,
		Status:        persistence.MeetingStatusPending,
		CreatedAt:     s.now(),
	}

	if err := s.meetings.CreateMeeting(ctx, meeting); err != nil {
		logger.ErrorContext(ctx, "booking failed", "error", err)
		return persistence.Meeting{}, err
	}

	logger.InfoContext(ctx, "meeting booked", "meeting_id", meeting.ID, "start", meeting.Start)
	return meeting, nil
}

// ListPendingMeetings returns unclaimed meetings ordered by start time.
func (s *BookingService) ListPendingMeetings(ctx context.Context) ([]persistence.Meeting, error) {
	if s == nil || s.meetings == nil {
		return nil, fmt.Errorf("meeting repository not configured")
	}
	return s.meetings.ListPendingMeetings(ctx)
}

func (s *BookingService) calendarMembers(ctx context.Context) ([]availability.Member, error) {
	if s.members == nil {
		return nil, nil
	}
	stored, err := s.members.ListCalendarMembers(ctx)
	if err != nil {
		return nil, err
	}

	members := make([]availability.Member, 0, len(stored))
	for _, m := range stored {
		if m.AccessToken == nil || *m.AccessToken == "" {
			continue
		}
		member := availability.Member{ID: m.ID, Email: m.Email}
		member.Credential.AccessToken = *m.AccessToken
		if m.RefreshToken != nil {
			member.Credential.RefreshToken = *m.RefreshToken
		}
		if m.CalendarID != nil {
			member.Credential.CalendarID = *m.CalendarID
		}
		members = append(members, member)
	}
	return members, nil
}

func toTemplateEntries(entries []persistence.SlotTemplateEntry) []slot.TemplateEntry {
	out := make([]slot.TemplateEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, slot.TemplateEntry{
			DayOfWeek:   e.DayOfWeek,
			StartMinute: e.StartMinute,
			EndMinute:   e.EndMinute,
			Duration:    time.Duration(e.DurationMinutes) * time.Minute,
		})
	}
	return out
}

func dropElapsed(candidates []slot.Candidate, now time.Time) []slot.Candidate {
	out := make([]slot.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Start.After(now) {
			out = append(out, c)
		}
	}
	return out
}

func validateMeetingInput(input MeetingInput, vErr *ValidationError) {
	if strings.TrimSpace(input.CustomerName) == "" {
		vErr.add("customer_name", "customer name is required")
	}

	email := strings.TrimSpace(input.CustomerEmail)
	if email == "" {
		vErr.add("customer_email", "customer email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		vErr.add("customer_email", "must be a valid email address")
	}

	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}

	if input.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if input.End.IsZero() {
		vErr.add("end", "end is required")
	}
	if !input.Start.IsZero() && !input.End.IsZero() && !input.Start.Before(input.End) {
		vErr.add("time", "start must be before end")
	}
}
