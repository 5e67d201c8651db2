package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/custodia-labs/meetsight/internal/adapters/driven/ai"
	"github.com/custodia-labs/meetsight/internal/core/domain"
	"github.com/custodia-labs/meetsight/internal/normalisers"
)

// mockMeetingService implements driving.MeetingService for testing.
type mockMeetingService struct {
	summary *domain.Summary
	insight *domain.Insight
	err     error

	gotTranscript string
	gotFilename   string
	gotAudio      string
	gotMeetingID  domain.MeetingID
	gotQuestion   string

	// ingested, when set, receives a value after each transcript ingest.
	ingested chan struct{}
}

func (m *mockMeetingService) IngestTranscript(_ context.Context, transcript string) (*domain.Summary, error) {
	m.gotTranscript = transcript
	if m.ingested != nil {
		defer func() { m.ingested <- struct{}{} }()
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.summary, nil
}

func (m *mockMeetingService) IngestAudio(_ context.Context, filename string, audio io.Reader) (*domain.Summary, error) {
	m.gotFilename = filename
	data, err := io.ReadAll(audio)
	if err != nil {
		return nil, err
	}
	m.gotAudio = string(data)
	if m.err != nil {
		return nil, m.err
	}
	return m.summary, nil
}

func (m *mockMeetingService) Ask(_ context.Context, meetingID domain.MeetingID, question string) (*domain.Insight, error) {
	m.gotMeetingID = meetingID
	m.gotQuestion = question
	if m.err != nil {
		return nil, m.err
	}
	return m.insight, nil
}

// mockSettingsService implements driving.SettingsService for testing.
type mockSettingsService struct {
	settings *domain.AppSettings
	saved    *domain.AppSettings
	getErr   error
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	s := *m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	s := *settings
	m.saved = &s
	return nil
}

type mockHealth struct {
	report ai.HealthReport
}

func (m *mockHealth) CheckHealth(context.Context) ai.HealthReport {
	return m.report
}

func testSummary() *domain.Summary {
	return &domain.Summary{
		MeetingID: "m-1",
		Insights: map[domain.InsightKind]domain.InsightOutcome{
			domain.KindActionItems: {
				Kind: domain.KindActionItems,
				Insight: &domain.Insight{
					Kind:        domain.KindActionItems,
					ActionItems: []domain.ActionItem{{Description: "Send the deck", Owner: "Dana", Due: "Friday"}},
				},
			},
			domain.KindDecisions: {
				Kind:    domain.KindDecisions,
				Insight: &domain.Insight{Kind: domain.KindDecisions},
			},
			domain.KindParticipantInteractions: {
				Kind:  domain.KindParticipantInteractions,
				Error: "the model's answer did not match the expected format",
			},
		},
	}
}

// withBackend installs meetings behind the openBackend hook and returns
// a pointer to the close counter.
func withBackend(t *testing.T, meetings *mockMeetingService) *int {
	t.Helper()
	closed := 0
	settings := domain.DefaultAppSettings()
	original := openBackend
	openBackend = func(context.Context) (*backend, error) {
		return &backend{
			settings: &settings,
			meetings: meetings,
			health: &mockHealth{report: ai.HealthReport{Components: []ai.ComponentStatus{
				{Name: "llm", OK: true, Required: true},
			}}},
			formats: normalisers.Default(),
			close: func() error {
				closed++
				return nil
			},
		}, nil
	}
	t.Cleanup(func() { openBackend = original })
	return &closed
}

func withFailingBackend(t *testing.T) {
	t.Helper()
	original := openBackend
	openBackend = func(context.Context) (*backend, error) {
		return nil, errors.New("ollama unreachable")
	}
	t.Cleanup(func() { openBackend = original })
}

func withSettings(t *testing.T, svc *mockSettingsService) {
	t.Helper()
	original := settingsService
	settingsService = svc
	t.Cleanup(func() { settingsService = original })
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, ctx context.Context, args ...string) (string, string, error) {
	t.Helper()
	return executeWithInput(t, ctx, "", args...)
}

func executeWithInput(t *testing.T, ctx context.Context, input string, args ...string) (string, string, error) {
	t.Helper()

	ingestJSON, askJSON, settingsJSON = false, false, false
	serveAddr = ""
	watchExisting, watchSettle = false, 0
	verbose = false

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetIn(bytes.NewBufferString(input))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
	})

	err := rootCmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}
