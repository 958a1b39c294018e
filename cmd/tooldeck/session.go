package main

import (
	"errors"
	"time"

	"github.com/aretw0/tooldeck/internal/cli"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage saved visits",
	Long:  `List, inspect, and remove the tool visits kept in the configured store (memory or redis).`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all saved visits",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()
		return cli.ListVisits(cmd.Context(), app.Visits, cmd.OutOrStdout(), time.Now())
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <visit-key>",
	Short: "Print the state of a visit as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()
		return cli.InspectVisit(cmd.Context(), app.Visits, args[0], cmd.OutOrStdout())
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <visit-key>...",
	Short: "Remove one or more visits",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if !all && len(args) == 0 {
			return errors.New("give at least one visit key, or --all")
		}
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()
		return cli.RemoveVisits(cmd.Context(), app.Visits, args, all, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd, sessionInspectCmd, sessionRmCmd)
	sessionRmCmd.Flags().Bool("all", false, "Remove every saved visit")
}
