package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"ms-invitations/internal/database"
	event_db "ms-invitations/internal/events/db"
	invitation_db "ms-invitations/internal/invitations/db"
	"ms-invitations/internal/kafka"
	"ms-invitations/internal/reminders"
	rediswrap "ms-invitations/internal/reminders/redis"
)

var (
	reminderAt string
	noLock     bool
)

func init() {
	remindersRunCmd.Flags().StringVar(&reminderAt, "at", "", "pretend the current time is this RFC3339 instant")
	remindersRunCmd.Flags().BoolVar(&noLock, "no-lock", false, "skip the Redis once-per-day lock")
	remindersCmd.AddCommand(remindersRunCmd)
}

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Reminder email jobs",
}

var remindersRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Enqueue reminders for every event starting tomorrow",
	Long: `Enqueue one reminder per accepted invitation for every event that
starts on the next calendar day in REMINDER_TIMEZONE. Run it once a day from
cron; a Redis lock makes repeated runs for the same day a no-op.

Examples:
  # Normal daily run
  eventctl reminders run

  # Re-run for a specific day without the lock
  eventctl reminders run --at 2026-03-10T08:00:00Z --no-lock`,
	Args: cobra.NoArgs,
	RunE: runReminders,
}

func runReminders(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	now := time.Now()
	if reminderAt != "" {
		t, err := time.Parse(time.RFC3339, reminderAt)
		if err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
		now = t
	}

	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer bunDB.Close()

	if !cfg.Kafka.Enabled {
		return errors.New("KAFKA_ENABLED is false, reminders have nowhere to go")
	}
	producer := kafka.NewProducer(cfg.Kafka, log)
	defer producer.Close()

	scheduler := &reminders.Scheduler{
		Events:      &event_db.DB{Bun: bunDB},
		Invitations: &invitation_db.DB{Bun: bunDB},
		Dispatcher:  producer,
		Location:    cfg.Reminders.Location(),
		Logger:      log,
	}

	if !noLock {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		scheduler.Lock = rediswrap.NewRunLock(client, cfg.Reminders.LockTTL, log)
	}

	count, err := scheduler.RunDailyReminders(ctx, now)
	if errors.Is(err, reminders.ErrAlreadyRan) {
		fmt.Fprintln(cmd.OutOrStdout(), err.Error())
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "reminders enqueued for %d event(s)\n", count)
	return nil
}
