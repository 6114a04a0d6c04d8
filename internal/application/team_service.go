package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/rotation"
)

// TeamDirectory captures the persistence interactions for team management.
type TeamDirectory interface {
	CreateTeamMember(ctx context.Context, member persistence.TeamMember) error
	ListActiveTeamMembers(ctx context.Context) ([]persistence.TeamMember, error)
	GetTeamMember(ctx context.Context, id string) (persistence.TeamMember, error)
	UpdateCalendarCredential(ctx context.Context, id string, accessToken, refreshToken, calendarID string) error
}

// TeamService manages team membership and rotation ordering.
type TeamService struct {
	members     TeamDirectory
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewTeamService wires dependencies for team operations.
func NewTeamService(members TeamDirectory, idGenerator func() string, now func() time.Time, logger *slog.Logger) *TeamService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &TeamService{
		members:     members,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// AddMember validates and stores a new active team member. A taken email
// fails with ErrAlreadyExists.
func (s *TeamService) AddMember(ctx context.Context, input MemberInput) (persistence.TeamMember, error) {
	if s == nil || s.members == nil {
		return persistence.TeamMember{}, fmt.Errorf("team directory not configured")
	}

	logger := serviceLogger(ctx, s.logger, "TeamService", "AddMember")

	vErr := &ValidationError{}
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		vErr.add("email", "must be a valid email address")
	}
	if vErr.HasErrors() {
		return persistence.TeamMember{}, vErr
	}

	member := persistence.TeamMember{
		ID:        s.idGenerator(),
		Name:      strings.TrimSpace(input.Name),
		Email:     email,
		Active:    true,
		CreatedAt: s.now(),
	}

	if err := s.members.CreateTeamMember(ctx, member); err != nil {
		mapped := mapRepoError(err)
		logger.ErrorContext(ctx, "adding team member failed", "error", err, "error_kind", ErrorKind(mapped))
		return persistence.TeamMember{}, mapped
	}

	logger.InfoContext(ctx, "team member added", "member_id", member.ID)
	return member, nil
}

// ListMembers returns active members in rotation order: ascending meeting
// count, ties broken by ID for a deterministic "next in rotation" view.
func (s *TeamService) ListMembers(ctx context.Context) ([]persistence.TeamMember, error) {
	if s == nil || s.members == nil {
		return nil, fmt.Errorf("team directory not configured")
	}

	members, err := s.members.ListActiveTeamMembers(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]persistence.TeamMember, len(members))
	ranked := make([]rotation.Member, 0, len(members))
	for _, m := range members {
		byID[m.ID] = m
		ranked = append(ranked, rotation.Member{ID: m.ID, Name: m.Name, MeetingCount: m.MeetingCount})
	}

	ordered := make([]persistence.TeamMember, 0, len(members))
	for _, r := range rotation.Rank(ranked) {
		ordered = append(ordered, byID[r.ID])
	}
	return ordered, nil
}

// NextInRotation returns the active member with the lowest load, if any.
func (s *TeamService) NextInRotation(ctx context.Context) (persistence.TeamMember, bool, error) {
	ordered, err := s.ListMembers(ctx)
	if err != nil {
		return persistence.TeamMember{}, false, err
	}
	if len(ordered) == 0 {
		return persistence.TeamMember{}, false, nil
	}
	return ordered[0], true, nil
}

// ConnectCalendar stores a calendar credential for the member and enables
// calendar sync.
func (s *TeamService) ConnectCalendar(ctx context.Context, memberID, accessToken, refreshToken, calendarID string) error {
	if s == nil || s.members == nil {
		return fmt.Errorf("team directory not configured")
	}

	logger := serviceLogger(ctx, s.logger, "TeamService", "ConnectCalendar", "member_id", memberID)

	if strings.TrimSpace(accessToken) == "" {
		vErr := &ValidationError{}
		vErr.add("access_token", "access token is required")
		return vErr
	}
	if calendarID == "" {
		calendarID = "primary"
	}

	if err := s.members.UpdateCalendarCredential(ctx, memberID, accessToken, refreshToken, calendarID); err != nil {
		mapped := mapRepoError(err)
		logger.ErrorContext(ctx, "connecting calendar failed", "error", err, "error_kind", ErrorKind(mapped))
		return mapped
	}

	logger.InfoContext(ctx, "calendar connected")
	return nil
}
