package domain

import (
	"encoding/json"
	"fmt"
)

// InsightKind names the shape an extraction must produce.
type InsightKind string

// Recognised insight kinds. The first three are the structured summary
// produced at ingestion; KindAnswer is used for free-form questions.
const (
	KindActionItems             InsightKind = "action_items"
	KindDecisions               InsightKind = "decisions"
	KindParticipantInteractions InsightKind = "participant_interactions"
	KindAnswer                  InsightKind = "answer"
)

// SummaryKinds is the fixed instruction set run at ingestion, in output order.
var SummaryKinds = []InsightKind{
	KindActionItems,
	KindDecisions,
	KindParticipantInteractions,
}

// IsValid returns true if the kind is recognised.
func (k InsightKind) IsValid() bool {
	switch k {
	case KindActionItems, KindDecisions, KindParticipantInteractions, KindAnswer:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (k InsightKind) String() string {
	return string(k)
}

// Description returns a human-readable label.
func (k InsightKind) Description() string {
	switch k {
	case KindActionItems:
		return "Action items"
	case KindDecisions:
		return "Decisions"
	case KindParticipantInteractions:
		return "Participant interactions"
	case KindAnswer:
		return "Answer"
	default:
		return unknownDescription
	}
}

// Instruction returns the fixed natural-language instruction for a
// summary kind. KindAnswer has none; the user's question is used instead.
func (k InsightKind) Instruction() string {
	switch k {
	case KindActionItems:
		return `List all action items from this meeting transcript. Return them as a JSON array under the "action_items" key.`
	case KindDecisions:
		return `List all decisions made in this meeting transcript. Return them as a JSON array under the "decisions" key.`
	case KindParticipantInteractions:
		return `Describe participant interactions in this meeting transcript. Return them as a JSON array under the "participant_interactions" key.`
	default:
		return ""
	}
}

// RecordFields lists the fields of one record of this kind.
// Required fields must be present and non-empty.
func (k InsightKind) RecordFields() (required, optional []string) {
	switch k {
	case KindActionItems:
		return []string{"description"}, []string{"owner", "due"}
	case KindDecisions:
		return []string{"description"}, []string{"made_by"}
	case KindParticipantInteractions:
		return []string{"participant", "description"}, []string{"with"}
	default:
		return nil, nil
	}
}

// ActionItem is a task someone committed to.
type ActionItem struct {
	Description string `json:"description"`
	Owner       string `json:"owner,omitempty"`
	Due         string `json:"due,omitempty"`
}

// Decision is something the meeting agreed on.
type Decision struct {
	Description string `json:"description"`
	MadeBy      string `json:"made_by,omitempty"`
}

// ParticipantInteraction describes how a participant engaged.
type ParticipantInteraction struct {
	Participant string `json:"participant"`
	Description string `json:"description"`
	With        string `json:"with,omitempty"`
}

// Insight is parsed generative output: a free-form answer, structured
// records, or both (answers may carry records when the question asks for them).
type Insight struct {
	Kind                    InsightKind              `json:"-"`
	Text                    string                   `json:"text,omitempty"`
	ActionItems             []ActionItem             `json:"action_items,omitempty"`
	Decisions               []Decision               `json:"decisions,omitempty"`
	ParticipantInteractions []ParticipantInteraction `json:"participant_interactions,omitempty"`
}

// Records returns the record list for a summary kind, never nil.
func (i *Insight) Records(kind InsightKind) any {
	switch kind {
	case KindActionItems:
		if i.ActionItems == nil {
			return []ActionItem{}
		}
		return i.ActionItems
	case KindDecisions:
		if i.Decisions == nil {
			return []Decision{}
		}
		return i.Decisions
	case KindParticipantInteractions:
		if i.ParticipantInteractions == nil {
			return []ParticipantInteraction{}
		}
		return i.ParticipantInteractions
	default:
		return []any{}
	}
}

// InsightRequest is a (context, instruction) pair submitted for extraction.
type InsightRequest struct {
	Kind        InsightKind
	Context     string
	Instruction string
}

// Validate checks the request is complete.
func (r InsightRequest) Validate() error {
	if !r.Kind.IsValid() {
		return fmt.Errorf("%w: unknown insight kind %q", ErrInvalidInput, r.Kind)
	}
	if r.Context == "" {
		return fmt.Errorf("%w: context is required", ErrInvalidInput)
	}
	if r.Instruction == "" {
		return fmt.Errorf("%w: instruction is required", ErrInvalidInput)
	}
	return nil
}

// ParseFailure records generative output that did not satisfy the contract.
type ParseFailure struct {
	Raw    string
	Reason string
}

// Extraction is the tagged result of an extraction: exactly one of
// Insight or Failure is set.
type Extraction struct {
	Kind    InsightKind
	Insight *Insight
	Failure *ParseFailure
}

// Ok builds a successful extraction.
func Ok(insight *Insight) Extraction {
	return Extraction{Kind: insight.Kind, Insight: insight}
}

// Failed builds a parse-failure extraction.
func Failed(kind InsightKind, raw, reason string) Extraction {
	return Extraction{Kind: kind, Failure: &ParseFailure{Raw: raw, Reason: reason}}
}

// OK reports whether the extraction produced an insight.
func (e Extraction) OK() bool {
	return e.Insight != nil && e.Failure == nil
}

// Err returns an *InsightParseError for a failed extraction, nil otherwise.
func (e Extraction) Err() error {
	if e.OK() {
		return nil
	}
	if e.Failure == nil {
		return &InsightParseError{Kind: e.Kind, Reason: "empty extraction"}
	}
	return &InsightParseError{Kind: e.Kind, Reason: e.Failure.Reason, Raw: e.Failure.Raw}
}

// InsightOutcome is one summary entry: the records, or why they are missing.
type InsightOutcome struct {
	Kind    InsightKind
	Insight *Insight
	Error   string
}

// MarshalJSON renders the record array on success and {"error": ...} on failure.
func (o InsightOutcome) MarshalJSON() ([]byte, error) {
	if o.Insight == nil {
		msg := o.Error
		if msg == "" {
			msg = "insight unavailable"
		}
		return json.Marshal(map[string]string{"error": msg})
	}
	return json.Marshal(o.Insight.Records(o.Kind))
}

// Failed reports whether this entry is missing its records.
func (o InsightOutcome) Failed() bool {
	return o.Insight == nil
}

// Summary is the aggregated result of ingest-and-summarize.
type Summary struct {
	MeetingID     MeetingID                      `json:"meetingId"`
	Transcription string                         `json:"transcription"`
	Insights      map[InsightKind]InsightOutcome `json:"insights"`
}
