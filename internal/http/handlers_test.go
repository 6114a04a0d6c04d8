package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/meeting-scheduler/internal/application"
	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/slot"
)

type slotServiceStub struct {
	candidates []slot.Candidate
	err        error
	gotDate    time.Time
}

func (s *slotServiceStub) ListSlots(ctx context.Context, date time.Time) ([]slot.Candidate, error) {
	s.gotDate = date
	if s.err != nil {
		return nil, s.err
	}
	return s.candidates, nil
}

type bookingServiceStub struct {
	meeting  persistence.Meeting
	pending  []persistence.Meeting
	err      error
	gotInput application.MeetingInput
}

func (s *bookingServiceStub) CreateMeeting(ctx context.Context, input application.MeetingInput) (persistence.Meeting, error) {
	s.gotInput = input
	if s.err != nil {
		return persistence.Meeting{}, s.err
	}
	return s.meeting, nil
}

func (s *bookingServiceStub) ListPendingMeetings(ctx context.Context) ([]persistence.Meeting, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.pending, nil
}

type assignmentServiceStub struct {
	result      application.AssignmentResult
	err         error
	gotMeeting  string
	gotMemberID string
}

func (s *assignmentServiceStub) Assign(ctx context.Context, meetingID, memberID string) (application.AssignmentResult, error) {
	s.gotMeeting = meetingID
	s.gotMemberID = memberID
	if s.err != nil {
		return application.AssignmentResult{}, s.err
	}
	return s.result, nil
}

type teamServiceStub struct {
	member  persistence.TeamMember
	members []persistence.TeamMember
	err     error
}

func (s *teamServiceStub) AddMember(ctx context.Context, input application.MemberInput) (persistence.TeamMember, error) {
	if s.err != nil {
		return persistence.TeamMember{}, s.err
	}
	return s.member, nil
}

func (s *teamServiceStub) ListMembers(ctx context.Context) ([]persistence.TeamMember, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.members, nil
}

func (s *teamServiceStub) ConnectCalendar(ctx context.Context, memberID, accessToken, refreshToken, calendarID string) error {
	return s.err
}

type authServiceStub struct {
	result  application.AuthResult
	err     error
	gotCode string
}

func (s *authServiceStub) HandleCallback(ctx context.Context, code string) (application.AuthResult, error) {
	s.gotCode = code
	if s.err != nil {
		return application.AuthResult{}, s.err
	}
	return s.result, nil
}

type validatorStub struct {
	principal application.Principal
	err       error
}

func (s *validatorStub) VerifySession(ctx context.Context, token string) (application.Principal, error) {
	if s.err != nil {
		return application.Principal{}, s.err
	}
	return s.principal, nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(target); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

func TestSlotHandler_List(t *testing.T) {
	start := time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)
	service := &slotServiceStub{candidates: []slot.Candidate{
		{Start: start, End: start.Add(30 * time.Minute), Duration: 30 * time.Minute},
		{Start: start.Add(30 * time.Minute), End: start.Add(time.Hour), Duration: 30 * time.Minute},
	}}
	handler := NewSlotHandler(service, time.UTC, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/slots?date=2024-03-05", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp listSlotsResponse
	decodeBody(t, rec, &resp)
	if len(resp.Slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(resp.Slots))
	}
	if resp.Slots[0].Start != "2024-03-05T09:00:00Z" || resp.Slots[0].DurationMinutes != 30 {
		t.Fatalf("unexpected first slot: %+v", resp.Slots[0])
	}

	wantDate := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	if !service.gotDate.Equal(wantDate) {
		t.Fatalf("expected service date %v, got %v", wantDate, service.gotDate)
	}
}

func TestSlotHandler_List_BadDate(t *testing.T) {
	handler := NewSlotHandler(&slotServiceStub{}, time.UTC, nil)

	for _, target := range []string{"/api/slots", "/api/slots?date=05-03-2024"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		handler.List(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rec.Code)
		}
	}
}

func TestMeetingHandler_Create(t *testing.T) {
	start := time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)
	booking := &bookingServiceStub{meeting: persistence.Meeting{
		ID:            "meeting-1",
		CustomerName:  "Carol Customer",
		CustomerEmail: "carol@example.com",
		Title:         "Intro call",
		Start:         start,
		End:           start.Add(30 * time.Minute),
		Status:        persistence.MeetingStatusPending,
		CreatedAt:     start,
	}}
	handler := NewMeetingHandler(booking, &assignmentServiceStub{}, nil)

	body := `{
		"customer_name": "Carol Customer",
		"customer_email": "carol@example.com",
		"title": "Intro call",
		"start": "2024-03-05T09:00:00Z",
		"end": "2024-03-05T09:30:00Z"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/meetings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp meetingResponse
	decodeBody(t, rec, &resp)
	if resp.Meeting.ID != "meeting-1" || resp.Meeting.Status != "pending" {
		t.Fatalf("unexpected meeting: %+v", resp.Meeting)
	}
	if !booking.gotInput.Start.Equal(start) {
		t.Fatalf("unexpected parsed start: %v", booking.gotInput.Start)
	}
}

func TestMeetingHandler_Create_BadJSON(t *testing.T) {
	handler := NewMeetingHandler(&bookingServiceStub{}, &assignmentServiceStub{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/meetings", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMeetingHandler_Create_ValidationError(t *testing.T) {
	vErr := &application.ValidationError{FieldErrors: map[string]string{"title": "title is required"}}
	handler := NewMeetingHandler(&bookingServiceStub{err: vErr}, &assignmentServiceStub{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/meetings", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}

	var resp errorResponse
	decodeBody(t, rec, &resp)
	if resp.Errors["title"] != "title is required" {
		t.Fatalf("unexpected error payload: %+v", resp)
	}
}

func newRouterForTest(t *testing.T, meetings *MeetingHandler, validator SessionValidator) http.Handler {
	t.Helper()
	return NewRouter(RouterConfig{
		Meetings:          meetings,
		SessionMiddleware: RequireSession(validator, nil),
	})
}

func TestMeetingHandler_Assign(t *testing.T) {
	start := time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)
	memberID := "member-1"
	assignments := &assignmentServiceStub{result: application.AssignmentResult{
		Meeting: persistence.Meeting{
			ID:         "meeting-1",
			Status:     persistence.MeetingStatusAssigned,
			AssignedTo: &memberID,
			Start:      start,
			End:        start.Add(30 * time.Minute),
			CreatedAt:  start,
		},
		ExternalEventID: "evt-1",
		CalendarWarning: false,
	}}
	handler := NewMeetingHandler(&bookingServiceStub{}, assignments, nil)
	validator := &validatorStub{principal: application.Principal{MemberID: "member-1", Email: "alice@example.com"}}
	router := newRouterForTest(t, handler, validator)

	req := httptest.NewRequest(http.MethodPost, "/api/meetings/meeting-1/assign", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if assignments.gotMeeting != "meeting-1" || assignments.gotMemberID != "member-1" {
		t.Fatalf("unexpected assign arguments: %s %s", assignments.gotMeeting, assignments.gotMemberID)
	}

	var resp assignmentResponse
	decodeBody(t, rec, &resp)
	if resp.Meeting.AssignedTo != "member-1" || resp.ExternalEventID != "evt-1" || resp.CalendarWarning {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestMeetingHandler_Assign_Conflict(t *testing.T) {
	assignments := &assignmentServiceStub{err: application.ErrAlreadyAssigned}
	handler := NewMeetingHandler(&bookingServiceStub{}, assignments, nil)
	validator := &validatorStub{principal: application.Principal{MemberID: "member-2"}}
	router := newRouterForTest(t, handler, validator)

	req := httptest.NewRequest(http.MethodPost, "/api/meetings/meeting-1/assign", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	var resp errorResponse
	decodeBody(t, rec, &resp)
	if resp.ErrorCode != "ALREADY_ASSIGNED" {
		t.Fatalf("unexpected error code: %q", resp.ErrorCode)
	}
}

func TestMeetingHandler_Assign_RequiresSession(t *testing.T) {
	handler := NewMeetingHandler(&bookingServiceStub{}, &assignmentServiceStub{}, nil)
	router := newRouterForTest(t, handler, &validatorStub{})

	req := httptest.NewRequest(http.MethodPost, "/api/meetings/meeting-1/assign", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestTeamHandler_List(t *testing.T) {
	now := time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)
	access := "access"
	service := &teamServiceStub{members: []persistence.TeamMember{
		{ID: "member-1", Name: "Alice", Email: "alice@example.com", Active: true, MeetingCount: 1, AccessToken: &access, CalendarSyncEnabled: true, CreatedAt: now},
		{ID: "member-2", Name: "Bob", Email: "bob@example.com", Active: true, MeetingCount: 3, CreatedAt: now},
	}}
	handler := NewTeamHandler(service, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/team-members", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp listMembersResponse
	decodeBody(t, rec, &resp)
	if len(resp.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(resp.Members))
	}
	if !resp.Members[0].CalendarConnected || resp.Members[1].CalendarConnected {
		t.Fatalf("unexpected calendar flags: %+v", resp.Members)
	}
}

func TestTeamHandler_Create_Duplicate(t *testing.T) {
	handler := NewTeamHandler(&teamServiceStub{err: application.ErrAlreadyExists}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/team-members", strings.NewReader(`{"name":"Alice","email":"alice@example.com"}`))
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestAuthHandler_Begin(t *testing.T) {
	consent := consentStub{url: "https://accounts.example.com/consent?state=abc"}
	handler := NewAuthHandler(&authServiceStub{}, consent, func() string { return "abc" }, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/google", nil)
	rec := httptest.NewRecorder()
	handler.Begin(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != consent.url {
		t.Fatalf("unexpected redirect target: %q", got)
	}
}

type consentStub struct {
	url string
}

func (s consentStub) AuthURL(state string) string {
	return s.url
}

func TestAuthHandler_Callback(t *testing.T) {
	now := time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)
	service := &authServiceStub{result: application.AuthResult{
		Token:     "session-token",
		ExpiresAt: now.Add(7 * 24 * time.Hour),
		Member:    persistence.TeamMember{ID: "member-1", Name: "Alice", Email: "alice@example.com", Active: true, CreatedAt: now},
	}}
	handler := NewAuthHandler(service, consentStub{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=auth-code", nil)
	rec := httptest.NewRecorder()
	handler.Callback(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if service.gotCode != "auth-code" {
		t.Fatalf("unexpected code: %q", service.gotCode)
	}

	var resp authResponse
	decodeBody(t, rec, &resp)
	if resp.Token != "session-token" || resp.Member.ID != "member-1" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	cookies := rec.Result().Cookies()
	var found bool
	for _, cookie := range cookies {
		if cookie.Name == "session_token" && cookie.Value == "session-token" && cookie.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected session cookie, got %+v", cookies)
	}
}

func TestAuthHandler_Callback_Unauthorized(t *testing.T) {
	handler := NewAuthHandler(&authServiceStub{err: application.ErrUnauthorized}, consentStub{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=auth-code", nil)
	rec := httptest.NewRecorder()
	handler.Callback(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestAuthHandler_Callback_ProviderError(t *testing.T) {
	handler := NewAuthHandler(&authServiceStub{}, consentStub{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?error=access_denied", nil)
	rec := httptest.NewRecorder()
	handler.Callback(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

type pingerStub struct {
	err error
}

func (s pingerStub) Ping(ctx context.Context) error {
	return s.err
}

func TestRouter_Healthz(t *testing.T) {
	router := NewRouter(RouterConfig{Health: pingerStub{}})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	router = NewRouter(RouterConfig{Health: pingerStub{err: context.DeadlineExceeded}})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestRouter_PublicBookingRoutes(t *testing.T) {
	slots := NewSlotHandler(&slotServiceStub{}, time.UTC, nil)
	meetings := NewMeetingHandler(&bookingServiceStub{meeting: persistence.Meeting{ID: "meeting-1", Status: persistence.MeetingStatusPending}}, &assignmentServiceStub{}, nil)
	router := NewRouter(RouterConfig{
		Slots:             slots,
		Meetings:          meetings,
		SessionMiddleware: RequireSession(&validatorStub{err: application.ErrUnauthorized}, nil),
	})

	// Booking endpoints stay reachable without a session.
	req := httptest.NewRequest(http.MethodGet, "/api/slots?date=2024-03-05", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("slots: expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/meetings", strings.NewReader(`{"customer_name":"Carol"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("meetings: expected 201, got %d", rec.Code)
	}

	// The pending listing is guarded.
	req = httptest.NewRequest(http.MethodGet, "/api/meetings/pending", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("pending: expected 401, got %d", rec.Code)
	}
}
