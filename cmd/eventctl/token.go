package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ms-invitations/internal/auth"
)

var tokenTTL time.Duration

func init() {
	tokenIssueCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	tokenCmd.AddCommand(tokenIssueCmd)
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Development bearer tokens",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue <user-id>",
	Short: "Sign an HS256 bearer token with JWT_SECRET",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Auth.JWTSecret == "" {
			return errors.New("JWT_SECRET is not set")
		}
		token, err := auth.IssueToken(cfg.Auth.JWTSecret, args[0], tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}
