package tui

import (
	"github.com/custodia-labs/meetsight/internal/core/ports/driving"
)

// Ports aggregates the driving ports required by the TUI.
type Ports struct {
	// Meetings answers questions about a meeting.
	Meetings driving.MeetingService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Meetings == nil {
		return ErrMissingMeetingService
	}
	return nil
}
