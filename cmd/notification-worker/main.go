package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ms-invitations/internal/config"
	"ms-invitations/internal/database"
	event_db "ms-invitations/internal/events/db"
	invitation_db "ms-invitations/internal/invitations/db"
	"ms-invitations/internal/kafka"
	"ms-invitations/internal/logger"
	"ms-invitations/internal/notify"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger(logger.Options{
		Service:  "notification-worker",
		Dir:      cfg.Log.Dir,
		MinLevel: logger.ParseLevel(cfg.Log.Level),
	})
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	mailer, err := notify.NewMailer(cfg.Mail, log)
	if err != nil {
		log.Fatal("MAIL", err.Error())
	}

	processor := &notify.Processor{
		Invitations: &invitation_db.DB{Bun: bunDB},
		Events:      &event_db.DB{Bun: bunDB},
		Mailer:      mailer,
		Logger:      log,
		BaseURL:     cfg.Server.PublicBaseURL,
		Location:    cfg.Reminders.Location(),
	}

	if !cfg.Kafka.Enabled {
		log.Fatal("KAFKA", "KAFKA_ENABLED is false, nothing to consume")
	}
	if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, []string{cfg.Kafka.Topics.Invitation, cfg.Kafka.Topics.Reminder}, log); err != nil {
		log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	}

	consumer := kafka.NewConsumer(cfg.Kafka, log)
	defer func() {
		if err := consumer.Close(); err != nil {
			log.Error("KAFKA", fmt.Sprintf("Failed to close consumer: %v", err))
		}
	}()

	log.Info("APP", fmt.Sprintf("📬 Notification worker consuming %s and %s", cfg.Kafka.Topics.Invitation, cfg.Kafka.Topics.Reminder))
	if err := consumer.Run(ctx, processor.Handle); err != nil {
		log.Error("KAFKA", fmt.Sprintf("Consumer stopped: %v", err))
		return
	}
	log.Info("APP", "✅ Notification worker shutdown complete")
}
