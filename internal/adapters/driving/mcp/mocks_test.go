package mcp

import (
	"context"
	"errors"
	"io"

	"github.com/custodia-labs/meetsight/internal/adapters/driven/ai"
	"github.com/custodia-labs/meetsight/internal/core/domain"
)

// mockMeetingService is a mock implementation of driving.MeetingService.
type mockMeetingService struct {
	summary *domain.Summary
	insight *domain.Insight
	err     error

	gotTranscript string
	gotMeetingID  domain.MeetingID
	gotQuestion   string
}

func (m *mockMeetingService) IngestTranscript(_ context.Context, transcript string) (*domain.Summary, error) {
	m.gotTranscript = transcript
	return m.summary, m.err
}

func (m *mockMeetingService) IngestAudio(_ context.Context, _ string, _ io.Reader) (*domain.Summary, error) {
	return m.summary, m.err
}

func (m *mockMeetingService) Ask(_ context.Context, meetingID domain.MeetingID, question string) (*domain.Insight, error) {
	m.gotMeetingID = meetingID
	m.gotQuestion = question
	return m.insight, m.err
}

// mockHealth is a fixed HealthChecker.
type mockHealth struct {
	report ai.HealthReport
}

func (m *mockHealth) CheckHealth(_ context.Context) ai.HealthReport {
	return m.report
}

// mockPromptStore serves prompts from a map.
type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", errors.New("no such prompt")
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {}
