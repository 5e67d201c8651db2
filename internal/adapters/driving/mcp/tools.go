package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/meetsight/internal/core/domain"
	"github.com/custodia-labs/meetsight/internal/core/services"
	"github.com/custodia-labs/meetsight/internal/logger"
)

// IngestInput is the input schema for the ingest_transcript tool.
type IngestInput struct {
	Transcript string `json:"transcript" jsonschema:"the full meeting transcript text"`
}

// IngestOutput is the output schema for the ingest_transcript tool.
type IngestOutput struct {
	MeetingID               string                          `json:"meeting_id"`
	ActionItems             []domain.ActionItem             `json:"action_items"`
	Decisions               []domain.Decision               `json:"decisions"`
	ParticipantInteractions []domain.ParticipantInteraction `json:"participant_interactions"`
	// Errors holds a message per insight kind that could not be extracted.
	Errors map[string]string `json:"errors,omitempty"`
}

// AskInput is the input schema for the ask_meeting tool.
type AskInput struct {
	MeetingID string `json:"meeting_id" jsonschema:"the meeting id returned by ingest_transcript"`
	Question  string `json:"question" jsonschema:"the question to answer from the meeting transcript"`
}

// AskOutput is the output schema for the ask_meeting tool.
type AskOutput struct {
	Answer                  string                          `json:"answer"`
	ActionItems             []domain.ActionItem             `json:"action_items,omitempty"`
	Decisions               []domain.Decision               `json:"decisions,omitempty"`
	ParticipantInteractions []domain.ParticipantInteraction `json:"participant_interactions,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_transcript",
		Description: "Index a meeting transcript and extract action items, decisions and participant interactions",
	}, s.handleIngest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask_meeting",
		Description: "Answer a question about a previously ingested meeting",
	}, s.handleAsk)
}

// handleIngest handles the ingest_transcript tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	summary, err := s.ports.Meetings.IngestTranscript(ctx, input.Transcript)
	if err != nil {
		return nil, IngestOutput{}, toolError("ingest_transcript", err)
	}

	output := IngestOutput{
		MeetingID:               summary.MeetingID.String(),
		ActionItems:             []domain.ActionItem{},
		Decisions:               []domain.Decision{},
		ParticipantInteractions: []domain.ParticipantInteraction{},
	}

	for kind, outcome := range summary.Insights {
		if outcome.Failed() {
			if output.Errors == nil {
				output.Errors = make(map[string]string)
			}
			output.Errors[kind.String()] = outcome.Error
			continue
		}
		switch kind {
		case domain.KindActionItems:
			output.ActionItems = append(output.ActionItems, outcome.Insight.ActionItems...)
		case domain.KindDecisions:
			output.Decisions = append(output.Decisions, outcome.Insight.Decisions...)
		case domain.KindParticipantInteractions:
			output.ParticipantInteractions = append(output.ParticipantInteractions, outcome.Insight.ParticipantInteractions...)
		}
	}

	return nil, output, nil
}

// handleAsk handles the ask_meeting tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	insight, err := s.ports.Meetings.Ask(ctx, domain.MeetingID(input.MeetingID), input.Question)
	if err != nil {
		return nil, AskOutput{}, toolError("ask_meeting", err)
	}

	return nil, AskOutput{
		Answer:                  insight.Text,
		ActionItems:             insight.ActionItems,
		Decisions:               insight.Decisions,
		ParticipantInteractions: insight.ParticipantInteractions,
	}, nil
}

// toolError logs the raw error and returns one safe to hand to the client.
func toolError(tool string, err error) error {
	logger.Error("MCP tool %s failed: %v", tool, err)
	return errors.New(services.PublicMessage(err))
}
