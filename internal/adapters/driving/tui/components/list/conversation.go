// Package list provides the scrolling conversation component for the TUI.
package list

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/meetsight/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/meetsight/internal/core/domain"
)

// scrollStep is the number of lines moved per scroll key press.
const scrollStep = 5

// Turn is one question and its answer. Turns are display history only;
// every question is answered independently.
type Turn struct {
	Question string
	Insight  *domain.Insight
	Err      string
	Pending  bool
}

// Conversation renders the turns in a scrollable viewport.
type Conversation struct {
	turns    []Turn
	styles   *styles.Styles
	viewport viewport.Model
}

// NewConversation creates an empty conversation.
func NewConversation(s *styles.Styles) *Conversation {
	if s == nil {
		s = styles.DefaultStyles()
	}
	c := &Conversation{
		styles:   s,
		viewport: viewport.New(80, 10),
	}
	c.refresh()
	return c
}

// Init initialises the conversation.
func (c *Conversation) Init() tea.Cmd {
	return nil
}

// Update forwards messages such as mouse wheel events to the viewport.
func (c *Conversation) Update(msg tea.Msg) (*Conversation, tea.Cmd) {
	var cmd tea.Cmd
	c.viewport, cmd = c.viewport.Update(msg)
	return c, cmd
}

// View renders the visible part of the conversation.
func (c *Conversation) View() string {
	return c.viewport.View()
}

// Ask appends a pending turn for question.
func (c *Conversation) Ask(question string) {
	c.turns = append(c.turns, Turn{Question: question, Pending: true})
	c.refresh()
}

// Answer resolves the most recent pending turn for question.
// errMsg is shown instead of an answer when non-empty.
func (c *Conversation) Answer(question string, insight *domain.Insight, errMsg string) {
	for i := len(c.turns) - 1; i >= 0; i-- {
		if c.turns[i].Pending && c.turns[i].Question == question {
			c.turns[i].Pending = false
			c.turns[i].Insight = insight
			c.turns[i].Err = errMsg
			break
		}
	}
	c.refresh()
}

// Turns returns the displayed turns.
func (c *Conversation) Turns() []Turn {
	return c.turns
}

// Clear removes every turn.
func (c *Conversation) Clear() {
	c.turns = nil
	c.refresh()
}

// ScrollUp moves towards older turns.
func (c *Conversation) ScrollUp() {
	c.viewport.LineUp(scrollStep)
}

// ScrollDown moves towards newer turns.
func (c *Conversation) ScrollDown() {
	c.viewport.LineDown(scrollStep)
}

// AtBottom reports whether the newest turn is visible.
func (c *Conversation) AtBottom() bool {
	return c.viewport.AtBottom()
}

// SetDimensions resizes the viewport.
func (c *Conversation) SetDimensions(width, height int) {
	c.viewport.Width = max(width, 20)
	c.viewport.Height = max(height, 3)
	c.refresh()
}

// refresh re-renders the content and follows the newest turn.
func (c *Conversation) refresh() {
	c.viewport.SetContent(c.render())
	c.viewport.GotoBottom()
}

func (c *Conversation) render() string {
	if len(c.turns) == 0 {
		return c.styles.Muted.Render("No questions yet. Each question is answered from the meeting transcript on its own.")
	}

	lines := make([]string, 0, len(c.turns)*4)
	for _, t := range c.turns {
		lines = append(lines, c.styles.Question.Render("> "+t.Question))
		switch {
		case t.Pending:
			lines = append(lines, c.styles.Muted.Render("  thinking..."))
		case t.Err != "":
			lines = append(lines, c.styles.Error.Render("  "+t.Err))
		case t.Insight != nil:
			lines = append(lines, c.renderInsight(t.Insight)...)
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (c *Conversation) renderInsight(insight *domain.Insight) []string {
	var lines []string
	if insight.Text != "" {
		lines = append(lines, c.styles.Answer.Render(insight.Text))
	}

	if len(insight.ActionItems) > 0 {
		lines = append(lines, c.styles.Section.Render(domain.KindActionItems.Description()))
		for _, a := range insight.ActionItems {
			lines = append(lines, c.styles.Record.Render("• "+withDetails(a.Description, "owner", a.Owner, "due", a.Due)))
		}
	}
	if len(insight.Decisions) > 0 {
		lines = append(lines, c.styles.Section.Render(domain.KindDecisions.Description()))
		for _, d := range insight.Decisions {
			lines = append(lines, c.styles.Record.Render("• "+withDetails(d.Description, "by", d.MadeBy)))
		}
	}
	if len(insight.ParticipantInteractions) > 0 {
		lines = append(lines, c.styles.Section.Render(domain.KindParticipantInteractions.Description()))
		for _, p := range insight.ParticipantInteractions {
			lines = append(lines, c.styles.Record.Render(
				"• "+withDetails(p.Participant+": "+p.Description, "with", p.With)))
		}
	}

	if len(lines) == 0 {
		lines = append(lines, c.styles.Muted.Render("  (empty answer)"))
	}
	return lines
}

// withDetails appends the non-empty label/value pairs in parentheses.
func withDetails(text string, pairs ...string) string {
	var details []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] != "" {
			details = append(details, fmt.Sprintf("%s: %s", pairs[i], pairs[i+1]))
		}
	}
	if len(details) == 0 {
		return text
	}
	return text + " (" + strings.Join(details, ", ") + ")"
}
