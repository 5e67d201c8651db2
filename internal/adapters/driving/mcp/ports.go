package mcp

import (
	"context"

	"github.com/custodia-labs/meetsight/internal/adapters/driven/ai"
	"github.com/custodia-labs/meetsight/internal/core/ports/driven"
	"github.com/custodia-labs/meetsight/internal/core/ports/driving"
)

// HealthChecker reports collaborator health.
type HealthChecker interface {
	CheckHealth(ctx context.Context) ai.HealthReport
}

// Ports aggregates the dependencies of the MCP server.
type Ports struct {
	// Meetings runs ingestion and question answering.
	Meetings driving.MeetingService

	// Health backs the health resource. Optional.
	Health HealthChecker

	// Prompts backs the prompt resources. Optional.
	Prompts driven.PromptStore
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Meetings == nil {
		return ErrMissingMeetingService
	}
	return nil
}
