package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/utils"
)

func newTokenCmd() *cobra.Command {
	var subject string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API access token signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			jwtCfg, err := config.LoadJWTConfig()
			if err != nil {
				return fmt.Errorf("loading jwt config: %w", err)
			}
			if !cmd.Flags().Changed("ttl") {
				ttl = time.Duration(jwtCfg.Expiration) * time.Hour
			}

			token, expiration, err := utils.GenerateToken(jwtCfg.Secret, subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiration.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Name of the caller the token is issued to")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime, defaults to JWT_EXPIRATION hours")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
