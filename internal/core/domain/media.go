package domain

import (
	"path/filepath"
	"strings"
)

// MediaType classifies an input file by its extension.
type MediaType int

const (
	// MediaUnknown is neither a transcript nor a known audio format.
	MediaUnknown MediaType = iota
	// MediaTranscript is a text transcript: plain text, Markdown, Word or captions.
	MediaTranscript
	// MediaAudio is sent to the transcriber.
	MediaAudio
)

var mediaExtensions = map[string]MediaType{
	".txt":      MediaTranscript,
	".md":       MediaTranscript,
	".markdown": MediaTranscript,
	".docx":     MediaTranscript,
	".vtt":      MediaTranscript,
	".srt":      MediaTranscript,
	".wav":      MediaAudio,
	".mp3":      MediaAudio,
	".m4a":      MediaAudio,
	".mp4":      MediaAudio,
	".mpeg":     MediaAudio,
	".mpga":     MediaAudio,
	".ogg":      MediaAudio,
	".oga":      MediaAudio,
	".flac":     MediaAudio,
	".webm":     MediaAudio,
}

// MediaTypeOf returns the media type for filename, case-insensitively.
func MediaTypeOf(filename string) MediaType {
	return mediaExtensions[strings.ToLower(filepath.Ext(filename))]
}

// String returns the media type name.
func (m MediaType) String() string {
	switch m {
	case MediaTranscript:
		return "transcript"
	case MediaAudio:
		return "audio"
	default:
		return "unknown"
	}
}
