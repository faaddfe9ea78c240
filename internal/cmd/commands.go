package cmd

import (
	"github.com/spf13/cobra"
)

var mcpPort int

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean the export into the CSV without analyzing it",
	RunE: func(cmd *cobra.Command, args []string) error {
		rtCfg, err := runtimeConfig()
		if err != nil {
			return err
		}
		return Clean(rtCfg)
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Compute key stats and charts from an existing cleaned CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		rtCfg, err := runtimeConfig()
		if err != nil {
			return err
		}
		return Analyze(rtCfg, cmd.OutOrStdout())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the cached activities over the Model Context Protocol",
	Long: `serve exposes the SQLite cache written by "run" or "clean" to MCP clients.

With --port 0 the server speaks MCP over stdio; otherwise it listens for HTTP/SSE.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rtCfg, err := runtimeConfig()
		if err != nil {
			return err
		}
		rtCfg.MCPPort = mcpPort
		return Serve(rtCfg)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "MCP server port (0 for stdio mode)")
}
