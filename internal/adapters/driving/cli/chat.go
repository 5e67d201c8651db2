package cli

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/meetsight/internal/adapters/driving/tui"
	"github.com/custodia-labs/meetsight/internal/core/domain"
)

var chatCmd = &cobra.Command{
	Use:   "chat <meeting-id>",
	Short: "Ask questions about a meeting interactively",
	Long: `Open a terminal chat for one meeting.

Every question is answered independently from the meeting transcript;
earlier questions and answers are shown but not remembered.

Controls:
  Enter      - Ask
  PgUp/PgDn  - Scroll
  Ctrl+L     - Clear
  Esc        - Quit`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

// runChatUI starts the TUI. Replaced in tests.
var runChatUI = tui.Run

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	// Bubbletea owns the terminal; print a trace instead of a garbled screen.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in chat: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	meetingID := domain.MeetingID(strings.TrimSpace(args[0]))
	if err := meetingID.Validate(); err != nil {
		return err
	}

	b, err := openBackend(cmd.Context())
	if err != nil {
		return err
	}
	defer closeBackend(b)

	return runChatUI(cmd.Context(), &tui.Ports{Meetings: b.meetings}, meetingID)
}
