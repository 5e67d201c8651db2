package list

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/meetsight/internal/core/domain"
)

func TestConversation_Empty(t *testing.T) {
	c := NewConversation(nil)
	assert.Empty(t, c.Turns())
	assert.Contains(t, c.View(), "No questions yet")
}

func TestConversation_AskAndAnswer(t *testing.T) {
	c := NewConversation(nil)
	c.SetDimensions(120, 20)

	c.Ask("what was decided?")
	require.Len(t, c.Turns(), 1)
	assert.True(t, c.Turns()[0].Pending)
	assert.Contains(t, c.View(), "thinking")

	c.Answer("what was decided?", &domain.Insight{
		Text:      "Launch on Monday.",
		Decisions: []domain.Decision{{Description: "launch Monday", MadeBy: "Dana"}},
	}, "")

	turn := c.Turns()[0]
	assert.False(t, turn.Pending)
	view := c.View()
	assert.Contains(t, view, "Launch on Monday.")
	assert.Contains(t, view, "Decisions")
	assert.Contains(t, view, "launch Monday (by: Dana)")
}

func TestConversation_AnswerMatchesLatestPending(t *testing.T) {
	c := NewConversation(nil)
	c.Ask("same")
	c.Answer("same", &domain.Insight{Text: "one"}, "")
	c.Ask("same")
	c.Answer("same", nil, "failed")

	turns := c.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, "one", turns[0].Insight.Text)
	assert.Equal(t, "failed", turns[1].Err)
}

func TestConversation_Clear(t *testing.T) {
	c := NewConversation(nil)
	c.Ask("q")
	c.Clear()
	assert.Empty(t, c.Turns())
}

func TestConversation_Scroll(t *testing.T) {
	c := NewConversation(nil)
	c.SetDimensions(80, 3)
	for range 10 {
		c.Ask("question")
		c.Answer("question", &domain.Insight{Text: "answer"}, "")
	}
	assert.True(t, c.AtBottom())

	c.ScrollUp()
	assert.False(t, c.AtBottom())

	c.ScrollDown()
	c.ScrollDown()
	assert.True(t, c.AtBottom())
}

func TestWithDetails(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		pairs []string
		want  string
	}{
		{name: "no details", text: "task", want: "task"},
		{name: "empty values skipped", text: "task", pairs: []string{"owner", "", "due", ""}, want: "task"},
		{name: "one detail", text: "task", pairs: []string{"owner", "Ann"}, want: "task (owner: Ann)"},
		{name: "two details", text: "task", pairs: []string{"owner", "Ann", "due", "Fri"}, want: "task (owner: Ann, due: Fri)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, withDetails(tt.text, tt.pairs...))
		})
	}
}

func TestRenderInsight_AllRecordKinds(t *testing.T) {
	c := NewConversation(nil)
	lines := c.renderInsight(&domain.Insight{
		ActionItems:             []domain.ActionItem{{Description: "write doc", Owner: "Li", Due: "Tue"}},
		ParticipantInteractions: []domain.ParticipantInteraction{{Participant: "Li", Description: "asked", With: "Sam"}},
	})
	joined := ""
	for _, l := range lines {
		joined += l + "\n"
	}
	assert.Contains(t, joined, "write doc (owner: Li, due: Tue)")
	assert.Contains(t, joined, "Li: asked (with: Sam)")

	empty := c.renderInsight(&domain.Insight{})
	require.Len(t, empty, 1)
	assert.Contains(t, empty[0], "empty answer")
}
