package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/meetsight/internal/core/domain"
)

func TestAskCmd_JoinsQuestion(t *testing.T) {
	meetings := &mockMeetingService{insight: &domain.Insight{
		Kind: domain.KindAnswer,
		Text: "Dana owns the migration.",
		ActionItems: []domain.ActionItem{
			{Description: "Plan the migration", Owner: "Dana"},
		},
	}}
	withBackend(t, meetings)

	out, _, err := execute(t, context.Background(), "ask", "m-1", "who", "owns", "the", "migration?")

	require.NoError(t, err)
	assert.Equal(t, domain.MeetingID("m-1"), meetings.gotMeetingID)
	assert.Equal(t, "who owns the migration?", meetings.gotQuestion)
	assert.Contains(t, out, "Dana owns the migration.")
	assert.Contains(t, out, "  - Plan the migration [owner: Dana]")
	assert.NotContains(t, out, "Decisions")
}

func TestAskCmd_JSON(t *testing.T) {
	withBackend(t, &mockMeetingService{insight: &domain.Insight{Kind: domain.KindAnswer, Text: "Yes."}})

	out, _, err := execute(t, context.Background(), "ask", "m-1", "approved?", "--json")

	require.NoError(t, err)
	var decoded struct {
		MeetingID string          `json:"meetingId"`
		Question  string          `json:"question"`
		Answer    json.RawMessage `json:"answer"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "m-1", decoded.MeetingID)
	assert.Equal(t, "approved?", decoded.Question)
	assert.Contains(t, string(decoded.Answer), "Yes.")
}

func TestAskCmd_NotFound(t *testing.T) {
	withBackend(t, &mockMeetingService{err: fmt.Errorf("%w: no context for meeting m-9", domain.ErrNotFound)})

	_, _, err := execute(t, context.Background(), "ask", "m-9", "anything?")

	require.Error(t, err)
	assert.Equal(t, "no relevant context found for this meeting", err.Error())
}

func TestAskCmd_RawOutputNotShown(t *testing.T) {
	raw := "Sure! Here is the answer you asked for"
	withBackend(t, &mockMeetingService{err: &domain.InsightParseError{
		Kind:   domain.KindAnswer,
		Reason: "invalid JSON",
		Raw:    raw,
	}})

	_, _, err := execute(t, context.Background(), "ask", "m-1", "what?")

	require.Error(t, err)
	assert.NotContains(t, err.Error(), raw)
}

func TestAskCmd_RequiresQuestion(t *testing.T) {
	_, _, err := execute(t, context.Background(), "ask", "m-1")
	assert.Error(t, err)
}
