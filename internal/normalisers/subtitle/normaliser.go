// Package subtitle normalises caption exports (WebVTT and SRT) into
// speaker-labelled transcript lines. Cue numbers, timings and styling
// are dropped; consecutive cues from one speaker are merged.
package subtitle

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/custodia-labs/meetsight/internal/core/ports/driven"
	"github.com/custodia-labs/meetsight/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

var (
	voiceTag   = regexp.MustCompile(`<v(?:\.[^\s>]*)?\s+([^>]+)>`)
	markupTag  = regexp.MustCompile(`</?[^>]+>`)
	blockSplit = regexp.MustCompile(`\n\s*\n`)
)

// Normaliser handles WebVTT and SRT caption files.
type Normaliser struct {
	text *plaintext.Normaliser
}

// New creates a new caption normaliser.
func New() *Normaliser {
	return &Normaliser{text: plaintext.New()}
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".vtt", ".srt"}
}

type cue struct {
	speaker string
	text    string
}

// Normalise returns one line per speaker turn.
func (n *Normaliser) Normalise(ctx context.Context, raw []byte) (string, error) {
	text, err := n.text.Normalise(ctx, raw)
	if err != nil {
		return "", err
	}

	var turns []cue
	for _, block := range blockSplit.Split(text, -1) {
		c, ok := parseCue(block)
		if !ok {
			continue
		}
		if last := len(turns) - 1; last >= 0 && turns[last].speaker == c.speaker {
			if turns[last].text == c.text {
				continue
			}
			if c.speaker != "" {
				turns[last].text += " " + c.text
				continue
			}
		}
		turns = append(turns, c)
	}

	lines := make([]string, len(turns))
	for i, t := range turns {
		if t.speaker != "" {
			lines[i] = t.speaker + ": " + t.text
		} else {
			lines[i] = t.text
		}
	}
	return strings.Join(lines, "\n"), nil
}

// parseCue extracts the text of one cue block. Blocks without a timing
// line (the WEBVTT header, NOTE and STYLE blocks) are skipped.
func parseCue(block string) (cue, bool) {
	lines := strings.Split(strings.TrimSpace(block), "\n")
	timing := -1
	for i, line := range lines {
		if strings.Contains(line, "-->") {
			timing = i
			break
		}
	}
	if timing < 0 || timing == len(lines)-1 {
		return cue{}, false
	}

	var c cue
	body := strings.Join(lines[timing+1:], " ")
	if m := voiceTag.FindStringSubmatch(body); m != nil {
		c.speaker = strings.TrimSpace(m[1])
	}
	body = markupTag.ReplaceAllString(body, "")
	body = strings.Join(strings.Fields(html.UnescapeString(body)), " ")
	if body == "" {
		return cue{}, false
	}

	if c.speaker == "" {
		c.speaker, body = splitSpeaker(body)
	}
	c.text = body
	return c, true
}

// splitSpeaker separates a leading "Name: " label, as written by tools
// that put the speaker in the caption text.
func splitSpeaker(text string) (string, string) {
	name, rest, ok := strings.Cut(text, ": ")
	if !ok || name == "" || len(name) > 40 || strings.ContainsAny(name, ".!?") {
		return "", text
	}
	return name, strings.TrimSpace(rest)
}
