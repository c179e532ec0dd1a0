package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/salesiq/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing the sales question, forecast and order search tools to AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(context.Background())
		if err != nil {
			return err
		}
		defer a.close()

		// Set version from the cmd package variable.
		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "salesiq MCP server started on stdio (store=%s, documents=%d)\n", a.cfg.Store, a.index.Count())

		srv := mcpserver.NewServer(a.engine, a.index)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
