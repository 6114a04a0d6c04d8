package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/meeting-scheduler/internal/slot"
)

type slotService interface {
	ListSlots(ctx context.Context, date time.Time) ([]slot.Candidate, error)
}

// SlotHandler serves the bookable slots over a given date.
type SlotHandler struct {
	service   slotService
	location  *time.Location
	responder responder
	logger    *slog.Logger
}

// NewSlotHandler builds a slot handler. Dates in requests are interpreted in
// the provided location.
func NewSlotHandler(service slotService, location *time.Location, logger *slog.Logger) *SlotHandler {
	if location == nil {
		location = time.UTC
	}
	base := defaultLogger(logger)
	return &SlotHandler{service: service, location: location, responder: newResponder(base), logger: base}
}

func (h *SlotHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SlotHandler", operation, attrs...)
}

// List responds with the open slots for the requested date.
func (h *SlotHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	rawDate := strings.TrimSpace(r.URL.Query().Get("date"))
	if rawDate == "" {
		h.log(r.Context(), "List", "error_kind", "bad_request").ErrorContext(r.Context(), "missing date query parameter")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	date, err := time.ParseInLocation("2006-01-02", rawDate, h.location)
	if err != nil {
		h.log(r.Context(), "List", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to parse date", "date", rawDate, "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	logger := h.log(r.Context(), "List", "date", rawDate)

	candidates, err := h.service.ListSlots(r.Context(), date)
	if err != nil {
		logger.ErrorContext(r.Context(), "slot listing failed", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(candidates)).InfoContext(r.Context(), "slots listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSlotsResponse{Date: rawDate, Slots: toSlotDTOs(candidates)})
}

type listSlotsResponse struct {
	Date  string    `json:"date"`
	Slots []slotDTO `json:"slots"`
}

type slotDTO struct {
	Start           string `json:"start"`
	End             string `json:"end"`
	DurationMinutes int    `json:"duration_minutes"`
}

func toSlotDTOs(candidates []slot.Candidate) []slotDTO {
	if len(candidates) == 0 {
		return []slotDTO{}
	}
	out := make([]slotDTO, 0, len(candidates))
	for _, candidate := range candidates {
		out = append(out, slotDTO{
			Start:           candidate.Start.Format(time.RFC3339),
			End:             candidate.End.Format(time.RFC3339),
			DurationMinutes: int(candidate.Duration.Minutes()),
		})
	}
	return out
}
