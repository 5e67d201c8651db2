package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/meetsight/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/meetsight/internal/logger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the meeting insights HTTP API.

Endpoints:
  POST /transcribe   multipart "file" upload (transcript or audio)
  POST /ask          {"meetingId": "...", "userQuery": "..."}
  GET  /health       collaborator reachability
  GET  /metrics      Prometheus metrics

The listen address defaults to server.addr in the config (":8000").`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8000)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger.SetTimestamps(true)

	b, err := openBackend(cmd.Context())
	if err != nil {
		return err
	}
	defer closeBackend(b)

	cfg := httpapi.ConfigFromSettings(b.settings.Server)
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}

	if b.health != nil {
		report := b.health.CheckHealth(cmd.Context())
		for _, c := range report.Components {
			if !c.OK {
				logger.Warn("%s is unavailable: %s", c.Name, c.Error)
			}
		}
	}

	server := httpapi.New(cfg, b.meetings, b.health, httpapi.WithNormaliser(b.formats))
	cmd.Printf("Meeting Insights API listening on %s\n", cfg.Addr)
	return server.Run(cmd.Context())
}
