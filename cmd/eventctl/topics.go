package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ms-invitations/internal/kafka"
)

func init() {
	topicsCmd.AddCommand(topicsEnsureCmd, topicsListCmd)
}

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Kafka notification topics",
}

var topicsEnsureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Create the invitation and reminder topics if missing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return kafka.EnsureTopicsExist(cfg.Kafka.Brokers, []string{cfg.Kafka.Topics.Invitation, cfg.Kafka.Topics.Reminder}, log)
	},
}

var topicsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the topics on the cluster",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		topics, err := kafka.ListTopics(cmd.Context(), cfg.Kafka.Brokers)
		if err != nil {
			return err
		}
		for _, t := range topics {
			fmt.Fprintln(cmd.OutOrStdout(), t)
		}
		return nil
	},
}
