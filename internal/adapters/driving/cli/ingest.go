package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/meetsight/internal/core/domain"
)

var ingestJSON bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <transcript-file | audio-file>",
	Short: "Ingest a meeting and print its summary",
	Long: `Ingest a meeting transcript (.txt, .md, .docx, .vtt, .srt) or recording and print the
extracted action items, decisions and participant interactions.

Any other file is sent to the transcription server as audio. The printed
meeting id is what 'meetsight ask' and 'meetsight chat' expect.

Examples:
  meetsight ingest standup.txt
  meetsight ingest planning.m4a --json`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "print the summary as JSON")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory; use 'meetsight watch' for directories", path)
	}

	b, err := openBackend(cmd.Context())
	if err != nil {
		return err
	}
	defer closeBackend(b)

	var summary *domain.Summary
	if domain.MediaTypeOf(path) == domain.MediaTranscript {
		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			return fmt.Errorf("read %s: %w", path, readErr)
		}
		text := string(raw)
		if b.formats != nil {
			if text, err = b.formats.Normalise(cmd.Context(), path, raw); err != nil {
				return pipelineError(err)
			}
		}
		summary, err = b.meetings.IngestTranscript(cmd.Context(), text)
	} else {
		f, openErr := os.Open(path)
		if openErr != nil {
			return fmt.Errorf("open %s: %w", path, openErr)
		}
		defer f.Close() //nolint:errcheck
		summary, err = b.meetings.IngestAudio(cmd.Context(), filepath.Base(path), f)
	}
	if err != nil {
		return pipelineError(err)
	}

	if wantJSON(cmd, ingestJSON) {
		return printJSON(cmd.OutOrStdout(), summary)
	}
	printSummary(cmd.OutOrStdout(), summary)
	return nil
}
