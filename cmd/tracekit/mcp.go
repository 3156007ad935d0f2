package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	tkmcp "github.com/sanonone/tracekit/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the document tools over MCP on stdin/stdout",
	Long: `Run tracekit as a Model Context Protocol server speaking JSON-RPC on
stdin and stdout. Logs go to stderr so they never corrupt the protocol stream.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng, logger, err := openEngine(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("MCP server starting on stdio", "data_dir", cfg.DataDir)
	return tkmcp.NewMCPServer(eng, version).Run(ctx, &mcp.StdioTransport{})
}
