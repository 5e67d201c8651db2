package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/meetsight/internal/adapters/driven/llm/ollama"
	"github.com/custodia-labs/meetsight/internal/core/domain"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask <meeting-id> <question>",
	Short: "Ask a question about an ingested meeting",
	Long: `Answer a question from the most relevant passages of one meeting's
transcript. Each question is answered on its own.

Examples:
  meetsight ask 3f6c... "Who owns the migration?"
  meetsight ask 3f6c... what was decided about pricing --json`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

// AskOutput is the JSON shape printed by ask --json.
type AskOutput struct {
	MeetingID string          `json:"meetingId"`
	Question  string          `json:"question"`
	Answer    *domain.Insight `json:"answer"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	meetingID := domain.MeetingID(strings.TrimSpace(args[0]))
	question := strings.Join(args[1:], " ")

	b, err := openBackend(cmd.Context())
	if err != nil {
		return err
	}
	defer closeBackend(b)

	insight, err := b.meetings.Ask(cmd.Context(), meetingID, question)
	if err != nil {
		if ollama.IsModelMissing(err) && b.settings != nil {
			return fmt.Errorf("%w; try 'ollama pull %s'", pipelineError(err), b.settings.LLM.Model)
		}
		return pipelineError(err)
	}

	if wantJSON(cmd, askJSON) {
		return printJSON(cmd.OutOrStdout(), AskOutput{
			MeetingID: meetingID.String(),
			Question:  question,
			Answer:    insight,
		})
	}
	printAnswer(cmd.OutOrStdout(), insight)
	return nil
}
