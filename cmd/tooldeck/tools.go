package main

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/tooldeck/internal/cli"
	httpadapter "github.com/aretw0/tooldeck/pkg/adapters/http"
	"github.com/aretw0/tooldeck/pkg/catalog"
	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools in the catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog(cmd)
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")
		if md, _ := cmd.Flags().GetBool("markdown"); md {
			_, err := fmt.Fprint(cmd.OutOrStdout(), cli.CatalogMarkdown(cat))
			return err
		}
		return cli.PrintCatalog(cmd.OutOrStdout(), cat, asJSON)
	},
}

var openapiCmd = &cobra.Command{
	Use:   "openapi",
	Short: "Print the OpenAPI document of the JSON API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog(cmd)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(httpadapter.BuildOpenAPI(cat, cli.Version()), "", "  ")
		if err != nil {
			return fmt.Errorf("error marshaling openapi document: %w", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	},
}

// loadCatalog reads --catalog without building the rest of the app.
func loadCatalog(cmd *cobra.Command) (*catalog.Catalog, error) {
	if path, _ := cmd.Flags().GetString("catalog"); path != "" {
		return catalog.LoadFile(path)
	}
	return catalog.Default()
}

func init() {
	rootCmd.AddCommand(toolsCmd, openapiCmd)
	toolsCmd.Flags().Bool("json", false, "Print the tool definitions as JSON")
	toolsCmd.Flags().Bool("markdown", false, "Print the catalog as Markdown grouped by category")
}
