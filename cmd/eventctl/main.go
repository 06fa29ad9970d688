// Package main implements eventctl, the operator CLI for the invitation
// service: schema migrations, the daily reminder run, tokens and topics.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ms-invitations/internal/config"
	"ms-invitations/internal/logger"
)

var (
	version = "dev"

	cfg *config.Config
	log *logger.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "eventctl",
	Short: "Operator commands for the invitation service",
	Long: `eventctl runs one-off operations against the invitation service's
database, Redis and Kafka. It reads the same environment (and .env file)
as the API server.`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		log = logger.NewLogger(logger.Options{
			Service:  "eventctl",
			MinLevel: logger.ParseLevel(cfg.Log.Level),
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(remindersCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(topicsCmd)
}
