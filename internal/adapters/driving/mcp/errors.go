// Package mcp provides an MCP (Model Context Protocol) server adapter for meetsight.
// It lets AI assistants ingest meeting transcripts and ask questions about them.
package mcp

import "errors"

// ErrMissingMeetingService is returned when the meeting service is not provided.
var ErrMissingMeetingService = errors.New("mcp: meeting service is required")
