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

type teamService interface {
	AddMember(ctx context.Context, input application.MemberInput) (persistence.TeamMember, error)
	ListMembers(ctx context.Context) ([]persistence.TeamMember, error)
	ConnectCalendar(ctx context.Context, memberID, accessToken, refreshToken, calendarID string) error
}

// TeamHandler serves team membership and calendar connection endpoints.
type TeamHandler struct {
	service   teamService
	responder responder
	logger    *slog.Logger
}

// NewTeamHandler builds a team handler.
func NewTeamHandler(service teamService, logger *slog.Logger) *TeamHandler {
	base := defaultLogger(logger)
	return &TeamHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *TeamHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "TeamHandler", operation, attrs...)
}

// Create registers a new team member.
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.MemberID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode member request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.MemberID)

	member, err := h.service.AddMember(r.Context(), application.MemberInput{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "member creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("member_id", member.ID).InfoContext(r.Context(), "team member created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, memberResponse{Member: toMemberDTO(member)})
}

// List responds with active team members in rotation order.
func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "List", "principal_id", principal.MemberID)

	members, err := h.service.ListMembers(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "member list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(members)).InfoContext(r.Context(), "team members listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listMembersResponse{Members: toMemberDTOs(members)})
}

// ConnectCalendar stores calendar tokens for a member.
func (h *TeamHandler) ConnectCalendar(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	memberID := strings.TrimSpace(mux.Vars(r)["id"])
	if memberID == "" {
		h.log(r.Context(), "ConnectCalendar", "error_kind", "bad_request").ErrorContext(r.Context(), "missing member id for calendar connect")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMemberID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req calendarConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "ConnectCalendar", "principal_id", principal.MemberID, "member_id", memberID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode calendar request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "ConnectCalendar", "principal_id", principal.MemberID, "member_id", memberID)

	if err := h.service.ConnectCalendar(r.Context(), memberID, req.AccessToken, req.RefreshToken, req.CalendarID); err != nil {
		logger.ErrorContext(r.Context(), "calendar connect failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "calendar connected")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type memberRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type calendarConnectRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	CalendarID   string `json:"calendar_id"`
}

type memberResponse struct {
	Member memberDTO `json:"member"`
}

type listMembersResponse struct {
	Members []memberDTO `json:"members"`
}

type memberDTO struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	Active            bool   `json:"active"`
	MeetingCount      int    `json:"meeting_count"`
	CalendarConnected bool   `json:"calendar_connected"`
	CreatedAt         string `json:"created_at"`
}

func toMemberDTO(member persistence.TeamMember) memberDTO {
	return memberDTO{
		ID:                member.ID,
		Name:              member.Name,
		Email:             member.Email,
		Active:            member.Active,
		MeetingCount:      member.MeetingCount,
		CalendarConnected: member.CalendarSyncEnabled && member.AccessToken != nil,
		CreatedAt:         member.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toMemberDTOs(members []persistence.TeamMember) []memberDTO {
	if len(members) == 0 {
		return []memberDTO{}
	}
	out := make([]memberDTO, 0, len(members))
	for _, member := range members {
		out = append(out, toMemberDTO(member))
	}
	return out
}
