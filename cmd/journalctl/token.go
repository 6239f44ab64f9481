package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ctenarsky-denik/journal/internal/pkg/jwt"
)

func (c *cli) tokenCmd() *cobra.Command {
	var (
		email string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token USER_ID",
		Short: "Sign a bearer token with the configured jwt_secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			tokens, err := jwt.NewManager(cfg.JWTSecret)
			if err != nil {
				return err
			}
			token, err := tokens.Sign(args[0], email, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.out, token)
			return err
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
