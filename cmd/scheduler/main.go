package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"

	"github.com/example/meeting-scheduler/internal/application"
	"github.com/example/meeting-scheduler/internal/availability"
	"github.com/example/meeting-scheduler/internal/calendar"
	"github.com/example/meeting-scheduler/internal/config"
	httptransport "github.com/example/meeting-scheduler/internal/http"
	"github.com/example/meeting-scheduler/internal/persistence/sqlite"
	"github.com/example/meeting-scheduler/internal/slot"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(sqlite.DefaultConfig(cfg.SQLiteDSN))
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close database", "error", cerr)
		}
	}()

	if err := pool.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now
	location := cfg.Location()

	memberRepo := sqlite.NewTeamMemberRepository(pool)
	meetingRepo := sqlite.NewMeetingRepository(pool)
	templateRepo := sqlite.NewSlotTemplateRepository(pool)
	sessionRepo := sqlite.NewSessionRepository(pool)

	provider := calendar.NewGoogleProvider(calendar.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURI:  cfg.GoogleRedirectURI,
		Timeout:      cfg.ProviderTimeout,
	})

	filter := availability.NewFilter(provider,
		availability.WithConcurrency(cfg.AvailabilityConcurrency),
		availability.WithQueryTimeout(cfg.ProviderTimeout),
		availability.WithLogger(logger),
	)
	generator := slot.NewGenerator(location)

	bookingService := application.NewBookingService(templateRepo, meetingRepo, memberRepo, generator, filter, idGenerator, now, logger)
	assignmentService := application.NewAssignmentService(meetingRepo, memberRepo, provider, 0, logger)
	teamService := application.NewTeamService(memberRepo, idGenerator, now, logger)
	authService := application.NewAuthService(provider, memberRepo, sessionRepo, []byte(cfg.JWTSecret), cfg.SessionTTL, cfg.AllowedDomain, idGenerator, now, logger)

	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.SessionSweepSchedule, func() {
		if err := authService.SweepExpiredSessions(context.Background()); err != nil {
			logger.Error("session sweep failed", "error", err)
		}
	}); err != nil {
		logger.Error("failed to schedule session sweep", "error", err, "schedule", cfg.SessionSweepSchedule)
		os.Exit(1)
	}
	sweeper.Start()
	defer sweeper.Stop()

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Slots:             httptransport.NewSlotHandler(bookingService, location, logger),
		Meetings:          httptransport.NewMeetingHandler(bookingService, assignmentService, logger),
		Team:              httptransport.NewTeamHandler(teamService, logger),
		Auth:              httptransport.NewAuthHandler(authService, provider, uuid.NewString, logger),
		Health:            pool,
		Middleware:        []mux.MiddlewareFunc{httptransport.RequestLogger(logger)},
		SessionMiddleware: httptransport.RequireSession(authService, logger),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("booking API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}
