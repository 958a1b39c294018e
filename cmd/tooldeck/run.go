package main

import (
	"errors"

	"github.com/aretw0/tooldeck/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <tool-id>",
	Short: "Fill a tool's form in the terminal",
	Long: `Runs one tool interactively: choose options, submit, read the results and
edit the form again. With --session the visit is saved and resumed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.RunOptions{
			ToolID: args[0],
			In:     cmd.InOrStdin(),
			Out:    cmd.OutOrStdout(),
		}
		opts.Headless, _ = cmd.Flags().GetBool("headless")
		opts.JSON, _ = cmd.Flags().GetBool("json")
		opts.SessionID, _ = cmd.Flags().GetString("session")
		opts.Fresh, _ = cmd.Flags().GetBool("fresh")

		if opts.Fresh && opts.SessionID == "" {
			return errors.New("--fresh needs --session")
		}

		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()
		return cli.RunTool(cmd.Context(), app, opts)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("headless", false, "Plain prompts, no banner or confirmation")
	runCmd.Flags().Bool("json", false, "NDJSON messages on stdout, one JSON form object per line on stdin")
	runCmd.Flags().StringP("session", "s", "", "Save the visit under this id and resume it next time")
	runCmd.Flags().Bool("fresh", false, "Discard the saved visit before starting")
}
