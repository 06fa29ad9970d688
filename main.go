package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ms-invitations/internal/accounts/account_api"
	"ms-invitations/internal/auth"
	"ms-invitations/internal/checkin/checkin_api"
	checkin "ms-invitations/internal/checkin/service"
	"ms-invitations/internal/config"
	"ms-invitations/internal/database"
	"ms-invitations/internal/database/migrations"
	event_db "ms-invitations/internal/events/db"
	"ms-invitations/internal/events/event_api"
	events "ms-invitations/internal/events/service"
	invitation_db "ms-invitations/internal/invitations/db"
	"ms-invitations/internal/invitations/invitation_api"
	invitations "ms-invitations/internal/invitations/service"
	badge "ms-invitations/internal/invitations/template"
	"ms-invitations/internal/kafka"
	"ms-invitations/internal/logger"
	"ms-invitations/internal/models"
	"ms-invitations/internal/qr"
)

func newDispatcher(cfg config.KafkaConfig, log *logger.Logger) (invitations.Dispatcher, func()) {
	if !cfg.Enabled {
		log.Warn("KAFKA", "Kafka disabled, notifications will be dropped")
		return kafka.NopDispatcher{Logger: log}, func() {}
	}

	if err := kafka.EnsureTopicsExist(cfg.Brokers, []string{cfg.Topics.Invitation, cfg.Topics.Reminder}, log); err != nil {
		log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	}
	producer := kafka.NewProducer(cfg, log)
	log.Info("KAFKA", "Kafka producer initialized successfully")
	return producer, func() {
		if err := producer.Close(); err != nil {
			log.Error("KAFKA", fmt.Sprintf("Failed to close producer: %v", err))
		}
	}
}

func main() {
	cfg := config.Load()

	log := logger.NewLogger(logger.Options{
		Service:  "invitations-api",
		Dir:      cfg.Log.Dir,
		MinLevel: logger.ParseLevel(cfg.Log.Level),
	})
	defer log.Close()

	log.Info("APP", "Starting Invitation Service initialization")
	ctx := context.Background()

	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	if cfg.Database.Driver != "sqlite" && cfg.Database.AutoMigrate {
		// The runner is not closed: closing it would close bunDB's pool.
		if err := migrations.NewRunner(bunDB, cfg.Database.MigrationsDir, log).MigrateUp(); err != nil {
			log.Fatal("MIGRATE", err.Error())
		}
	}

	verifier, err := auth.NewVerifier(ctx, cfg.Auth)
	if err != nil {
		log.Fatal("AUTH", err.Error())
	}

	dispatcher, closeDispatcher := newDispatcher(cfg.Kafka, log)
	defer closeDispatcher()

	eventStore := &event_db.DB{Bun: bunDB}
	invitationStore := &invitation_db.DB{Bun: bunDB}
	directory := &auth.Directory{Bun: bunDB}

	invitationService := invitations.NewInvitationService(
		invitationStore,
		eventStore,
		directory,
		qr.NewQRGenerator(cfg.Invitations.QRSize),
		dispatcher,
		log,
	)
	invitationService.BaseURL = cfg.Server.PublicBaseURL
	invitationService.Policy = models.ParseRSVPPolicy(cfg.Invitations.RSVPPolicy)
	invitationService.Badges = badge.NewBadgePDFGenerator(cfg.Badge.FontPath)
	log.Info("CONFIG", fmt.Sprintf("RSVP policy: %s", invitationService.Policy))

	eventService := events.NewEventService(eventStore, invitationStore, log)
	checkInService := checkin.NewCheckInService(invitationStore, eventStore, log)

	log.Info("HTTP", "Setting up router and middleware")
	router := newRouter(handlers{
		Accounts:    account_api.NewHandler(directory, log),
		Events:      event_api.NewHandler(eventService, log),
		Invitations: invitation_api.NewHandler(invitationService, log),
		CheckIn:     checkin_api.NewHandler(checkInService, log),
	}, verifier, log)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Invitation Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Invitation Service shutdown complete")
	}
}
