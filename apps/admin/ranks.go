package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/core/preference"
)

func (cli *commandLine) newRanksCmd() *cobra.Command {
	ranks := &cobra.Command{
		Use:   "ranks",
		Short: "Inspect and repair saved project ranks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Usage()
			return errHelp
		},
	}
	ranks.AddCommand(
		cli.newRanksListCmd(),
		cli.newRanksCheckCmd(),
		cli.newRanksRepairCmd(),
		cli.newRanksRemoveCmd(),
	)
	return ranks
}

func (cli *commandLine) newRanksListCmd() *cobra.Command {
	var userID int64
	cmd := &cobra.Command{
		Use:   "list --user ID",
		Short: "List a user's saved projects by rank",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID <= 0 {
				_ = cmd.Usage()
				return errHelp
			}
			saved, err := cli.prefSvc.List(cmd.Context(), userID)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tSAVE ID\tPROJECT ID\tDESCRIPTION")
			for _, sp := range saved {
				desc := ""
				if sp.PreferenceDescription != nil {
					desc = *sp.PreferenceDescription
				}
				fmt.Fprintf(w, "%d\t%d\t%d\t%s\n", sp.RankIndex, sp.SaveID, sp.ProjectID, desc)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user ID")
	return cmd
}

func (cli *commandLine) newRanksCheckCmd() *cobra.Command {
	var userID int64
	cmd := &cobra.Command{
		Use:   "check [--user ID]",
		Short: "Report users whose ranks are not contiguous",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var reports []preference.RankReport
			if userID > 0 {
				rep, err := cli.prefSvc.Check(cmd.Context(), userID)
				if err != nil {
					return err
				}
				if !rep.IsContiguous() {
					reports = append(reports, rep)
				}
			} else {
				var err error
				if reports, err = cli.prefSvc.CheckAll(cmd.Context()); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if len(reports) == 0 {
				fmt.Fprintln(out, "all ranks are contiguous")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "USER ID\tCOUNT\tGAPS\tDUPLICATES\tOUT OF RANGE")
			for _, rep := range reports {
				fmt.Fprintf(w, "%d\t%d\t%v\t%v\t%v\n", rep.UserID, rep.Count, rep.Gaps, rep.Duplicates, rep.OutOfRange)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			return errors.Wrapf(preference.ErrRanksNotContiguous, "%d user(s)", len(reports))
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "only check this user ID")
	return cmd
}

func (cli *commandLine) newRanksRepairCmd() *cobra.Command {
	var (
		userID int64
		all    bool
	)
	cmd := &cobra.Command{
		Use:   "repair --user ID | --all",
		Short: "Renumber saved project ranks to 1..N, keeping their order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var userIDs []int64
			switch {
			case userID > 0 && !all:
				userIDs = []int64{userID}
			case all && userID == 0:
				reports, err := cli.prefSvc.CheckAll(cmd.Context())
				if err != nil {
					return err
				}
				for _, rep := range reports {
					userIDs = append(userIDs, rep.UserID)
				}
			default:
				_ = cmd.Usage()
				return errHelp
			}

			out := cmd.OutOrStdout()
			for _, id := range userIDs {
				changed, err := cli.prefSvc.Repair(cmd.Context(), id)
				if err != nil {
					return errors.Wrapf(err, "repairing user %d", id)
				}
				fmt.Fprintf(out, "user %d: %d rank(s) changed\n", id, changed)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user ID")
	cmd.Flags().BoolVar(&all, "all", false, "repair every user whose ranks are not contiguous")
	return cmd
}

func (cli *commandLine) newRanksRemoveCmd() *cobra.Command {
	var saveID int64
	cmd := &cobra.Command{
		Use:   "remove --save ID",
		Short: "Remove any user's saved project and close the rank gap",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if saveID <= 0 {
				_ = cmd.Usage()
				return errHelp
			}
			if err := cli.prefSvc.Remove(cmd.Context(), saveID, 0); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved project %d removed\n", saveID)
			return nil
		},
	}
	cmd.Flags().Int64Var(&saveID, "save", 0, "save ID")
	return cmd
}
