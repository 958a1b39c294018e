package main

import (
	"fmt"
	"os"

	"github.com/aretw0/tooldeck/internal/cli"
	"github.com/aretw0/tooldeck/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tooldeck",
	Short: "Tooldeck serves form-driven logistics tools",
	Long: `Tooldeck renders every logistics tool from one catalog: it fetches the
selectable options, validates the form, posts it to the computation backend
and presents the results. Tools run in the browser, in the terminal or as
MCP tools for agents.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a TOML config file (default ./"+config.DefaultFile+" when present)")
	rootCmd.PersistentFlags().String("api-base", "", "Base URL of the computation backend")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging and the audit log")
	rootCmd.PersistentFlags().String("catalog", "", "Path to a tools YAML file replacing the built-in catalog")
}

// loadConfig reads the config and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if v, _ := cmd.Flags().GetString("api-base"); v != "" {
		cfg.APIBase = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	return cfg, cfg.Validate()
}

// newApp builds the application for a command. Callers close it.
func newApp(cmd *cobra.Command, mutate ...func(*config.Config)) (*cli.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	for _, m := range mutate {
		m(cfg)
	}

	debug, _ := cmd.Flags().GetBool("debug")
	logger := cli.NewLogger(os.Stderr, cfg, debug)

	opts := []cli.AppOption{cli.WithAuditLog(debug)}
	if path, _ := cmd.Flags().GetString("catalog"); path != "" {
		opts = append(opts, cli.WithCatalogFile(path))
	}
	return cli.NewApp(cfg, logger, opts...)
}
