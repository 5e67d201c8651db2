package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/meetsight/internal/core/domain"
)

// stdoutIsTerminal reports whether os.Stdout is a terminal. Replaced in tests.
var stdoutIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// wantJSON reports whether cmd should print JSON: when asked to, or when
// its output is the process stdout and that is piped rather than a terminal.
func wantJSON(cmd *cobra.Command, flag bool) bool {
	if flag {
		return true
	}
	return cmd.OutOrStdout() == os.Stdout && !stdoutIsTerminal()
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printSummary renders a summary as readable text.
func printSummary(w io.Writer, summary *domain.Summary) {
	fmt.Fprintf(w, "Meeting: %s\n", summary.MeetingID)
	for _, kind := range domain.SummaryKinds {
		fmt.Fprintf(w, "\n%s\n", kind.Description())
		outcome, ok := summary.Insights[kind]
		switch {
		case !ok:
			fmt.Fprintln(w, "  (not extracted)")
		case outcome.Failed():
			fmt.Fprintf(w, "  unavailable: %s\n", outcome.Error)
		default:
			printRecords(w, kind, outcome.Insight)
		}
	}
}

// printAnswer renders an answer and any records it carries.
func printAnswer(w io.Writer, insight *domain.Insight) {
	if insight.Text != "" {
		fmt.Fprintln(w, insight.Text)
	}
	for _, kind := range domain.SummaryKinds {
		if recordCount(kind, insight) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", kind.Description())
		printRecords(w, kind, insight)
	}
}

func recordCount(kind domain.InsightKind, insight *domain.Insight) int {
	switch kind {
	case domain.KindActionItems:
		return len(insight.ActionItems)
	case domain.KindDecisions:
		return len(insight.Decisions)
	case domain.KindParticipantInteractions:
		return len(insight.ParticipantInteractions)
	default:
		return 0
	}
}

func printRecords(w io.Writer, kind domain.InsightKind, insight *domain.Insight) {
	if recordCount(kind, insight) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	switch kind {
	case domain.KindActionItems:
		for _, a := range insight.ActionItems {
			fmt.Fprintf(w, "  - %s%s\n", a.Description, annotate("owner", a.Owner, "due", a.Due))
		}
	case domain.KindDecisions:
		for _, d := range insight.Decisions {
			fmt.Fprintf(w, "  - %s%s\n", d.Description, annotate("by", d.MadeBy))
		}
	case domain.KindParticipantInteractions:
		for _, p := range insight.ParticipantInteractions {
			fmt.Fprintf(w, "  - %s: %s%s\n", p.Participant, p.Description, annotate("with", p.With))
		}
	}
}

// annotate formats non-empty label/value pairs as " [label: value, ...]".
func annotate(pairs ...string) string {
	var parts []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] != "" {
			parts = append(parts, pairs[i]+": "+pairs[i+1])
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return " [" + strings.Join(parts, ", ") + "]"
}
