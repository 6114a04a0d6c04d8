package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/meeting-scheduler/internal/application"
	"github.com/example/meeting-scheduler/internal/persistence"
)

type bookingService interface {
	CreateMeeting(ctx context.Context, input application.MeetingInput) (persistence.Meeting, error)
	ListPendingMeetings(ctx context.Context) ([]persistence.Meeting, error)
}

type assignmentService interface {
	Assign(ctx context.Context, meetingID, memberID string) (application.AssignmentResult, error)
}

// MeetingHandler serves customer bookings and team member claims.
type MeetingHandler struct {
	bookings    bookingService
	assignments assignmentService
	responder   responder
	logger      *slog.Logger
}

// NewMeetingHandler builds a meeting handler.
func NewMeetingHandler(bookings bookingService, assignments assignmentService, logger *slog.Logger) *MeetingHandler {
	base := defaultLogger(logger)
	return &MeetingHandler{bookings: bookings, assignments: assignments, responder: newResponder(base), logger: base}
}

func (h *MeetingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "MeetingHandler", operation, attrs...)
}

// Create books a meeting into a slot on behalf of a customer.
func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.bookings == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req meetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode meeting request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "customer_email", req.CustomerEmail)

	meeting, err := h.bookings.CreateMeeting(r.Context(), req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "meeting creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("meeting_id", meeting.ID).InfoContext(r.Context(), "meeting booked")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, meetingResponse{Meeting: toMeetingDTO(meeting)})
}

// ListPending responds with the meetings still waiting for a claim.
func (h *MeetingHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.bookings == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "ListPending", "principal_id", principal.MemberID)

	meetings, err := h.bookings.ListPendingMeetings(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "pending meeting list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(meetings)).InfoContext(r.Context(), "pending meetings listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listMeetingsResponse{Meetings: toMeetingDTOs(meetings)})
}

// Assign claims a pending meeting for the authenticated team member.
func (h *MeetingHandler) Assign(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.assignments == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	meetingID := strings.TrimSpace(mux.Vars(r)["id"])
	if meetingID == "" {
		h.log(r.Context(), "Assign", "error_kind", "bad_request").ErrorContext(r.Context(), "missing meeting id for assign")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMeetingID)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok || principal.MemberID == "" {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	logger := h.log(r.Context(), "Assign", "principal_id", principal.MemberID, "meeting_id", meetingID)

	result, err := h.assignments.Assign(r.Context(), meetingID, principal.MemberID)
	if err != nil {
		logger.ErrorContext(r.Context(), "meeting claim failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "meeting claimed", "calendar_warning", result.CalendarWarning)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, assignmentResponse{
		Meeting:         toMeetingDTO(result.Meeting),
		ExternalEventID: result.ExternalEventID,
		CalendarWarning: result.CalendarWarning,
	})
}

type meetingRequest struct {
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Start         string `json:"start"`
	End           string `json:"end"`
}

func (r meetingRequest) toInput() application.MeetingInput {
	input := application.MeetingInput{
		CustomerName:  strings.TrimSpace(r.CustomerName),
		CustomerEmail: strings.TrimSpace(r.CustomerEmail),
		Title:         strings.TrimSpace(r.Title),
		Description:   strings.TrimSpace(r.Description),
	}
	if t, err := time.Parse(time.RFC3339, r.Start); err == nil {
		input.Start = t
	}
	if t, err := time.Parse(time.RFC3339, r.End); err == nil {
		input.End = t
	}
	return input
}

type meetingResponse struct {
	Meeting meetingDTO `json:"meeting"`
}

type listMeetingsResponse struct {
	Meetings []meetingDTO `json:"meetings"`
}

type assignmentResponse struct {
	Meeting         meetingDTO `json:"meeting"`
	ExternalEventID string     `json:"external_event_id,omitempty"`
	CalendarWarning bool       `json:"calendar_warning"`
}

type meetingDTO struct {
	ID            string `json:"id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	Start         string `json:"start"`
	End           string `json:"end"`
	Status        string `json:"status"`
	AssignedTo    string `json:"assigned_to,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func toMeetingDTO(meeting persistence.Meeting) meetingDTO {
	dto := meetingDTO{
		ID:            meeting.ID,
		CustomerName:  meeting.CustomerName,
		CustomerEmail: meeting.CustomerEmail,
		Title:         meeting.Title,
		Description:   meeting.Description,
		Start:         meeting.Start.UTC().Format(time.RFC3339),
		End:           meeting.End.UTC().Format(time.RFC3339),
		Status:        string(meeting.Status),
		CreatedAt:     meeting.CreatedAt.UTC().Format(time.RFC3339),
	}
	if meeting.AssignedTo != nil {
		dto.AssignedTo = *meeting.AssignedTo
	}
	return dto
}

func toMeetingDTOs(meetings []persistence.Meeting) []meetingDTO {
	if len(meetings) == 0 {
		return []meetingDTO{}
	}
	out := make([]meetingDTO, 0, len(meetings))
	for _, meeting := range meetings {
		out = append(out, toMeetingDTO(meeting))
	}
	return out
}
