package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	echoapi "github.com/Capstone-Portal-Project/capstone-portal-project-sub000/apps/api/echo"
)

func (cli *commandLine) newTokenCmd() *cobra.Command {
	var (
		userID int64
		admin  bool
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token --user ID [--admin] [--ttl DURATION]",
		Short: "Issue an API token, for development",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID <= 0 || ttl <= 0 {
				_ = cmd.Usage()
				return errHelp
			}
			var roles []string
			if admin {
				roles = append(roles, echoapi.RoleAdmin)
			}
			token, err := echoapi.GenerateToken(echoapi.NewClaims(userID, ttl, cli.conf, roles...), cli.conf)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user ID")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant the admin role")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
