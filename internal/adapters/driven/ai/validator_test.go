package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/meetsight/internal/core/domain"
	"github.com/custodia-labs/meetsight/internal/core/ports/driven"
)

type downLLM struct{}

func (downLLM) Generate(context.Context, string, driven.GenerateOptions) (string, error) {
	return "", errors.New("unused")
}
func (downLLM) ModelName() string { return "down" }
func (downLLM) Ping(context.Context) error {
	return fmt.Errorf("%w: %w: connection refused", domain.ErrGeneration, domain.ErrUnavailable)
}
func (downLLM) Close() error { return nil }

type downTranscriber struct{}

func (downTranscriber) Transcribe(context.Context, string) (string, error) { return "", nil }
func (downTranscriber) Ping(context.Context) error                         { return errors.New("no whisper") }

func statusByName(report HealthReport) map[string]ComponentStatus {
	out := make(map[string]ComponentStatus, len(report.Components))
	for _, c := range report.Components {
		out[c.Name] = c
	}
	return out
}

func TestRuntime_CheckHealth_AllUp(t *testing.T) {
	server := newFakeOllama(t)
	rt, err := NewRuntime(context.Background(), testSettings(server.URL), WithPromptDir(t.TempDir()))
	require.NoError(t, err)

	report := rt.CheckHealth(context.Background())

	assert.True(t, report.Healthy())
	assert.Equal(t, "ok", report.Status())
	require.Len(t, report.Components, 4)
	assert.Equal(t, ComponentStore, report.Components[0].Name)
	for _, c := range report.Components {
		assert.True(t, c.OK, c.Name)
		assert.Empty(t, c.Error, c.Name)
	}
}

func TestRuntime_CheckHealth_RequiredComponentDown(t *testing.T) {
	server := newFakeOllama(t)
	rt, err := NewRuntime(context.Background(), testSettings(server.URL),
		WithPromptDir(t.TempDir()), WithLLM(downLLM{}))
	require.NoError(t, err)

	report := rt.CheckHealth(context.Background())

	assert.False(t, report.Healthy())
	assert.Equal(t, "degraded", report.Status())
	llm := statusByName(report)[ComponentLLM]
	assert.False(t, llm.OK)
	assert.Contains(t, llm.Error, "connection refused")
}

func TestRuntime_CheckHealth_OptionalComponentDown(t *testing.T) {
	server := newFakeOllama(t)
	rt, err := NewRuntime(context.Background(), testSettings(server.URL),
		WithPromptDir(t.TempDir()), WithTranscriber(downTranscriber{}))
	require.NoError(t, err)

	report := rt.CheckHealth(context.Background())

	assert.True(t, report.Healthy())
	transcriber := statusByName(report)[ComponentTranscriber]
	assert.False(t, transcriber.OK)
	assert.False(t, transcriber.Required)
}

func TestRuntime_CheckHealth_MissingComponent(t *testing.T) {
	rt := &Runtime{}

	report := rt.CheckHealth(context.Background())

	assert.False(t, report.Healthy())
	require.Len(t, report.Components, 3)
	for _, c := range report.Components {
		assert.Equal(t, "not configured", c.Error)
	}
}

func TestRuntime_CloseEmpty(t *testing.T) {
	assert.NoError(t, (&Runtime{}).Close())
}
