package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/meeting-scheduler/internal/application"
)

type authService interface {
	HandleCallback(ctx context.Context, code string) (application.AuthResult, error)
}

type consentURLBuilder interface {
	AuthURL(state string) string
}

// AuthHandler serves the OAuth sign-in flow for team members.
type AuthHandler struct {
	service     authService
	consent     consentURLBuilder
	stateSource func() string
	responder   responder
	logger      *slog.Logger
}

// NewAuthHandler builds an auth handler. stateSource produces the opaque
// state carried through the OAuth redirect.
func NewAuthHandler(service authService, consent consentURLBuilder, stateSource func() string, logger *slog.Logger) *AuthHandler {
	if stateSource == nil {
		stateSource = func() string { return "" }
	}
	base := defaultLogger(logger)
	return &AuthHandler{service: service, consent: consent, stateSource: stateSource, responder: newResponder(base), logger: base}
}

func (h *AuthHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AuthHandler", operation, attrs...)
}

// Begin redirects the browser to the provider consent page.
func (h *AuthHandler) Begin(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.consent == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	url := h.consent.AuthURL(h.stateSource())
	h.log(r.Context(), "Begin").InfoContext(r.Context(), "redirecting to provider consent")
	http.Redirect(w, r, url, http.StatusFound)
}

// Callback completes the OAuth flow and issues a session token.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if providerErr := strings.TrimSpace(r.URL.Query().Get("error")); providerErr != "" {
		h.log(r.Context(), "Callback", "provider_error", providerErr).WarnContext(r.Context(), "provider denied authorization")
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errors.New("authorization was denied by the provider"))
		return
	}

	code := strings.TrimSpace(r.URL.Query().Get("code"))
	logger := h.log(r.Context(), "Callback")

	result, err := h.service.HandleCallback(r.Context(), code)
	if err != nil {
		logger.ErrorContext(r.Context(), "oauth callback failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session_token",
		Value:    result.Token,
		Path:     "/",
		Expires:  result.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	logger.With("member_id", result.Member.ID).InfoContext(r.Context(), "team member signed in")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, authResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt.UTC().Format(time.RFC3339),
		Member:    toMemberDTO(result.Member),
	})
}

type authResponse struct {
	Token     string    `json:"token"`
	ExpiresAt string    `json:"expires_at"`
	Member    memberDTO `json:"member"`
}
