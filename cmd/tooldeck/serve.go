package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/tooldeck/internal/cli"
	"github.com/aretw0/tooldeck/internal/config"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves the tool pages, the JSON API, the SSE event stream and the metrics
endpoint. With --mcp-addr the MCP SSE transport runs next to it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		mcpAddr, _ := cmd.Flags().GetString("mcp-addr")

		app, err := newApp(cmd, func(c *config.Config) {
			if addr != "" {
				c.Server.ListenAddr = addr
			}
			if mcpAddr != "" {
				c.MCP.SSEAddr = mcpAddr
			}
		})
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return cli.Serve(ctx, app, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Address to listen on (overrides server.listen_addr)")
	serveCmd.Flags().String("mcp-addr", "", "Also serve MCP over SSE on this address")
}
