package main

import (
	"context"
	"database/sql"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/core"
	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/core/preference"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf    *core.Config
	db      *sql.DB
	prefSvc preference.Service
	out     io.Writer
}

func (cli *commandLine) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Capstone Portal administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Usage()
			return errHelp
		},
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)

	root.AddCommand(cli.newMigrateCmd())
	root.AddCommand(cli.newRanksCmd())
	root.AddCommand(cli.newTokenCmd())
	return root
}

// run executes the command line args, program name included.
func (cli *commandLine) run(ctx context.Context, args []string) error {
	root := cli.newRootCmd()
	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
