// Package tui provides the interactive chat interface for asking questions
// about an ingested meeting. It is a driving adapter over MeetingService.
package tui

import "errors"

// ErrMissingMeetingService is returned when the meeting service is not provided.
var ErrMissingMeetingService = errors.New("tui: meeting service is required")

// ErrMissingMeetingID is returned when no meeting id is given.
var ErrMissingMeetingID = errors.New("tui: meeting id is required")
