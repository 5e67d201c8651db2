package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/meetsight/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can ingest
transcripts and ask questions about meetings.

Tools:
  ingest_transcript {transcript}
  ask_meeting       {meeting_id, question}

Resources:
  meetsight://health
  meetsight://prompts/{name}

By default the server speaks JSON-RPC over stdio. Use --port to serve the
streamable HTTP transport instead.

Examples:
  # Stdio mode (desktop assistants)
  meetsight mcp serve

  # HTTP mode (MCP Inspector, remote access)
  meetsight mcp serve --port 8081`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	b, err := openBackend(cmd.Context())
	if err != nil {
		return err
	}
	defer closeBackend(b)

	ports := &mcp.Ports{
		Meetings: b.meetings,
		Health:   b.health,
		Prompts:  b.prompts,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		cmd.PrintErrf("MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
