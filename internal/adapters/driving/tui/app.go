package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/meetsight/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/meetsight/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/meetsight/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/meetsight/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/meetsight/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/meetsight/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/meetsight/internal/core/domain"
	"github.com/custodia-labs/meetsight/internal/core/services"
)

// chromeHeight is the number of lines used by the title, input and status bar.
const chromeHeight = 6

// App is the chat application following the Elm architecture.
// Every question is sent to MeetingService.Ask on its own; earlier turns
// are shown but never fed back to the model.
type App struct {
	ports     *Ports
	ctx       context.Context
	meetingID domain.MeetingID

	styles       *styles.Styles
	keymap       *keymap.KeyMap
	input        *input.QuestionInput
	conversation *list.Conversation
	statusBar    *status.Bar
	spinner      spinner.Model

	// busy is set while a question is in flight.
	busy bool

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a chat app for one meeting.
func NewApp(ports *Ports, meetingID domain.MeetingID) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}
	if strings.TrimSpace(meetingID.String()) == "" {
		return nil, ErrMissingMeetingID
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Muted

	return &App{
		ports:        ports,
		ctx:          context.Background(),
		meetingID:    meetingID,
		styles:       s,
		keymap:       km,
		input:        input.NewQuestionInput(s),
		conversation: list.NewConversation(s),
		statusBar:    status.NewBar(s, km, meetingID.String()),
		spinner:      sp,
	}, nil
}

// WithContext sets the context used for questions.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("meetsight - "+a.meetingID.String()),
		a.input.Init(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.QuestionSubmitted:
		return a, a.submit(msg.Question)

	case messages.AnswerReceived:
		a.busy = false
		if msg.Err != nil {
			text := services.PublicMessage(msg.Err)
			a.conversation.Answer(msg.Question, nil, text)
			a.statusBar.SetState(status.StateError)
			a.statusBar.SetMessage(text)
			return a, nil
		}
		a.conversation.Answer(msg.Question, msg.Insight, "")
		a.statusBar.SetState(status.StateReady)
		a.statusBar.SetMessage("")
		a.statusBar.IncrementAnswered()
		return a, nil

	case messages.ErrorOccurred:
		a.statusBar.SetState(status.StateError)
		a.statusBar.SetMessage(services.PublicMessage(msg.Err))
		return a, nil

	case spinner.TickMsg:
		if !a.busy {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.conversation, cmd = a.conversation.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch {
	case keymap.Matches(key, a.keymap.Quit):
		return a, tea.Quit
	case keymap.Matches(key, a.keymap.Ask):
		question := strings.TrimSpace(a.input.Value())
		if question == "" || a.busy {
			return a, nil
		}
		a.input.Reset()
		return a, a.submit(question)
	case keymap.Matches(key, a.keymap.ScrollUp):
		a.conversation.ScrollUp()
		return a, nil
	case keymap.Matches(key, a.keymap.ScrollDown):
		a.conversation.ScrollDown()
		return a, nil
	case keymap.Matches(key, a.keymap.Clear):
		if !a.busy {
			a.conversation.Clear()
			a.statusBar.Clear()
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// submit records the pending turn and returns the command that asks it.
func (a *App) submit(question string) tea.Cmd {
	if a.busy || strings.TrimSpace(question) == "" {
		return nil
	}
	a.busy = true
	a.conversation.Ask(question)
	a.statusBar.SetState(status.StateThinking)
	return tea.Batch(a.askCmd(question), a.spinner.Tick)
}

func (a *App) askCmd(question string) tea.Cmd {
	ctx := a.ctx
	meetings := a.ports.Meetings
	meetingID := a.meetingID
	return func() tea.Msg {
		insight, err := meetings.Ask(ctx, meetingID, question)
		return messages.AnswerReceived{Question: question, Insight: insight, Err: err}
	}
}

// View implements tea.Model.
func (a *App) View() string {
	title := a.styles.Title.Render("meetsight chat")
	prompt := a.input.View()
	if a.busy {
		prompt = a.spinner.View() + " " + a.styles.Muted.Render("waiting for the model...")
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		a.conversation.View(),
		prompt,
		a.statusBar.View(),
	)
}

// SetDimensions resizes every component.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.input.SetWidth(width)
	a.statusBar.SetWidth(width)
	a.conversation.SetDimensions(width, height-chromeHeight)
}

// Busy reports whether a question is in flight.
func (a *App) Busy() bool {
	return a.busy
}

// Turns returns the displayed conversation.
func (a *App) Turns() []list.Turn {
	return a.conversation.Turns()
}

// Ready reports whether the terminal size is known.
func (a *App) Ready() bool {
	return a.ready
}

// MeetingID returns the meeting being discussed.
func (a *App) MeetingID() domain.MeetingID {
	return a.meetingID
}

// Run starts the chat program and blocks until the user quits.
func Run(ctx context.Context, ports *Ports, meetingID domain.MeetingID, opts ...tea.ProgramOption) error {
	app, err := NewApp(ports, meetingID)
	if err != nil {
		return err
	}
	app.WithContext(ctx)

	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	if _, err := tea.NewProgram(app, opts...).Run(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	return nil
}
