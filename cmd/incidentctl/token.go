package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/scrubbe-dev/incident-service/internal/auth"
)

var (
	tokenUserID     string
	tokenBusinessID string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for a business member",
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenUserID == "" || tokenBusinessID == "" {
			return errors.New("--user and --business are required")
		}
		tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
		token, expires, err := tokens.GenerateToken(tokenUserID, tokenBusinessID)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, token)
		fmt.Fprintf(out, "expires %s\n", expires.UTC().Format(time.RFC3339))
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUserID, "user", "", "user id (token subject)")
	tokenCmd.Flags().StringVar(&tokenBusinessID, "business", "", "business id")
}
