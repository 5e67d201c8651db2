package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/meetsight/internal/core/domain"
)

// AskRequest is the /ask body. The snake_case names are accepted for
// clients of the earlier API.
type AskRequest struct {
	MeetingID       string `json:"meetingId"`
	UserQuery       string `json:"userQuery"`
	LegacyMeetingID string `json:"meeting_id"`
	LegacyQuery     string `json:"user_query"`
}

func (r AskRequest) meetingID() domain.MeetingID {
	if r.MeetingID != "" {
		return domain.MeetingID(strings.TrimSpace(r.MeetingID))
	}
	return domain.MeetingID(strings.TrimSpace(r.LegacyMeetingID))
}

func (r AskRequest) query() string {
	if r.UserQuery != "" {
		return r.UserQuery
	}
	return r.LegacyQuery
}

// AskResponse wraps the answer insight.
type AskResponse struct {
	Answer *domain.Insight `json:"answer"`
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Meeting Insights API is running"})
}

func (s *Server) healthCheck(c *gin.Context) {
	if s.health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	report := s.health.CheckHealth(c.Request.Context())
	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status":     report.Status(),
		"components": report.Components,
	})
}

func (s *Server) transcribe(c *gin.Context) {
	if c.Request.ContentLength > s.cfg.MaxUploadBytes {
		abort(c, http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
			fmt.Sprintf("upload exceeds %d bytes", s.cfg.MaxUploadBytes))
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abort(c, http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", s.cfg.MaxUploadBytes))
			return
		}
		abort(c, http.StatusBadRequest, CodeInvalidInput, `multipart field "file" is required`)
		return
	}

	file, err := header.Open()
	if err != nil {
		writeError(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer file.Close()

	ctx, cancel := s.pipelineContext(c)
	defer cancel()

	var summary *domain.Summary
	if domain.MediaTypeOf(header.Filename) == domain.MediaTranscript {
		raw, readErr := io.ReadAll(file)
		if readErr != nil {
			writeError(c, fmt.Errorf("read upload: %w", readErr))
			return
		}
		text, normErr := s.transcriptText(ctx, header.Filename, raw)
		if normErr != nil {
			writeError(c, normErr)
			return
		}
		summary, err = s.meetings.IngestTranscript(ctx, text)
	} else {
		summary, err = s.meetings.IngestAudio(ctx, header.Filename, file)
	}
	if err != nil {
		writeError(c, err)
		return
	}

	s.metrics.ObserveSummary(summary)
	c.JSON(http.StatusOK, summary)
}

func (s *Server) ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, CodeInvalidInput, "request body must be JSON with meetingId and userQuery")
		return
	}

	ctx, cancel := s.pipelineContext(c)
	defer cancel()

	answer, err := s.meetings.Ask(ctx, req.meetingID(), req.query())
	s.metrics.ObserveQuestion(err)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, AskResponse{Answer: answer})
}

func (s *Server) pipelineContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if s.cfg.RequestTimeout > 0 {
		return context.WithTimeout(c.Request.Context(), s.cfg.RequestTimeout)
	}
	return context.WithCancel(c.Request.Context())
}

// transcriptText converts an uploaded transcript file to plain text.
func (s *Server) transcriptText(ctx context.Context, filename string, raw []byte) (string, error) {
	if s.formats == nil {
		return string(raw), nil
	}
	return s.formats.Normalise(ctx, filename, raw)
}
