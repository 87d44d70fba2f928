package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jonesrussell/north-cloud/draft-review/internal/session"
	"github.com/spf13/cobra"
)

const defaultTokenTTL = 8 * time.Hour

func newTokenCommand() *cobra.Command {
	var secret, subject string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development token signed with the service secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := session.MintToken(secret, subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&secret, "secret", os.Getenv("AUTH_JWT_SECRET"), "HS256 signing secret")
	f.StringVar(&subject, "subject", envOr("USER", "reviewer"), "reviewer identity")
	f.DurationVar(&ttl, "ttl", defaultTokenTTL, "token lifetime")
	return cmd
}
