package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/meetsight/internal/core/domain"
	"github.com/custodia-labs/meetsight/internal/core/ports/driven"
)

// defaultInsightPrompt is the built-in extraction template. It can be
// overridden by editing prompts/insight.txt in the config directory.
const defaultInsightPrompt = `You are an AI assistant for meeting analysis. You read meeting transcripts and extract precise, factual information. Use only the transcript context below. Never invent participants, dates or tasks.

## Transcript context
{{.Context}}

## Instruction
{{.Instruction}}

## Output contract
Respond with a single JSON object and nothing else. Do not use markdown, code fences or commentary.
{{.Contract}}
`

// DefaultPrompts returns the built-in prompt templates keyed by name.
func DefaultPrompts() map[string]string {
	return map[string]string{
		driven.PromptInsight: defaultInsightPrompt,
	}
}

// outputContract describes the exact JSON shape expected for kind.
// The text is derived from the record schema so prompt and validator agree.
func outputContract(kind domain.InsightKind) string {
	var b strings.Builder
	switch kind {
	case domain.KindAnswer:
		b.WriteString(`The object must have an "answer" key holding a concise plain-text answer to the instruction.`)
		b.WriteString(" If the answer involves action items, decisions or participant interactions, also include the matching keys:\n")
		for _, k := range domain.SummaryKinds {
			fmt.Fprintf(&b, "- %s\n", recordShape(k))
		}
		b.WriteString("Omit keys that do not apply.")
	default:
		fmt.Fprintf(&b, "The object must have exactly one key, %s. Use an empty array when there is nothing to report.", recordShape(kind))
	}
	return b.String()
}

func recordShape(kind domain.InsightKind) string {
	required, optional := kind.RecordFields()
	fields := make([]string, 0, len(required)+len(optional))
	for _, f := range required {
		fields = append(fields, fmt.Sprintf("%q (string, required)", f))
	}
	for _, f := range optional {
		fields = append(fields, fmt.Sprintf("%q (string, optional)", f))
	}
	return fmt.Sprintf("%q: an array of objects with fields %s", kind.String(), strings.Join(fields, ", "))
}
