package http

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig wires handlers and middleware into the API router. Nil
// handlers leave their routes unregistered.
type RouterConfig struct {
	Slots    *SlotHandler
	Meetings *MeetingHandler
	Team     *TeamHandler
	Auth     *AuthHandler
	Health   Pinger

	// Middleware wraps every route, outermost first.
	Middleware []mux.MiddlewareFunc

	// SessionMiddleware guards the team-facing routes. Booking routes and
	// the auth flow stay public.
	SessionMiddleware func(http.Handler) http.Handler
}

// NewRouter builds the HTTP routing table.
func NewRouter(cfg RouterConfig) http.Handler {
	router := mux.NewRouter()
	router.Use(cfg.Middleware...)

	api := router.PathPrefix("/api").Subrouter()

	protected := api.NewRoute().Subrouter()
	if cfg.SessionMiddleware != nil {
		protected.Use(mux.MiddlewareFunc(cfg.SessionMiddleware))
	}

	if cfg.Slots != nil {
		api.HandleFunc("/slots", cfg.Slots.List).Methods(http.MethodGet)
	}

	if cfg.Meetings != nil {
		api.HandleFunc("/meetings", cfg.Meetings.Create).Methods(http.MethodPost)
		protected.HandleFunc("/meetings/pending", cfg.Meetings.ListPending).Methods(http.MethodGet)
		protected.HandleFunc("/meetings/{id}/assign", cfg.Meetings.Assign).Methods(http.MethodPost)
	}

	if cfg.Team != nil {
		protected.HandleFunc("/team-members", cfg.Team.List).Methods(http.MethodGet)
		protected.HandleFunc("/team-members", cfg.Team.Create).Methods(http.MethodPost)
		protected.HandleFunc("/team-members/{id}/calendar", cfg.Team.ConnectCalendar).Methods(http.MethodPost)
	}

	if cfg.Auth != nil {
		router.HandleFunc("/auth/google", cfg.Auth.Begin).Methods(http.MethodGet)
		router.HandleFunc("/auth/google/callback", cfg.Auth.Callback).Methods(http.MethodGet)
	}

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Health != nil {
			if err := cfg.Health.Ping(r.Context()); err != nil {
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	return router
}
