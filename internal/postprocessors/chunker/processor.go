// Package chunker segments meeting transcripts into indexable chunks.
package chunker

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/meetsight/internal/core/domain"
)

// DefaultMaxChars is the default upper bound of a sentence window.
const DefaultMaxChars = 800

// DefaultOverlap is the default number of sentences shared by adjacent windows.
const DefaultOverlap = 1

var sentencePattern = regexp.MustCompile(`[^.!?]+(?:[.!?]+|$)`)

// Processor splits transcripts according to a chunking policy.
type Processor struct {
	policy   domain.ChunkingPolicy
	maxChars int
	overlap  int
}

// Option configures the processor.
type Option func(*Processor)

// WithPolicy selects whole-transcript or sentence-window chunking.
func WithPolicy(policy domain.ChunkingPolicy) Option {
	return func(p *Processor) {
		if policy.IsValid() {
			p.policy = policy
		}
	}
}

// WithMaxChars bounds the size of a sentence window.
// A single sentence longer than the bound becomes its own chunk.
func WithMaxChars(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxChars = n
		}
	}
}

// WithOverlap sets the number of sentences repeated between windows.
func WithOverlap(n int) Option {
	return func(p *Processor) {
		if n >= 0 {
			p.overlap = n
		}
	}
}

// New creates a processor. Sentence windows are the default policy.
func New(opts ...Option) *Processor {
	p := &Processor{
		policy:   domain.ChunkingSentence,
		maxChars: DefaultMaxChars,
		overlap:  DefaultOverlap,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker:" + p.policy.String()
}

// Policy returns the active chunking policy.
func (p *Processor) Policy() domain.ChunkingPolicy {
	return p.policy
}

// Split segments text into chunks tagged with meetingID.
// Whitespace-only text produces no chunks.
func (p *Processor) Split(meetingID domain.MeetingID, text string) []domain.Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if p.policy == domain.ChunkingWhole {
		return []domain.Chunk{newChunk(meetingID, string(meetingID), text, 0)}
	}

	windows := p.windows(sentences(text))
	chunks := make([]domain.Chunk, 0, len(windows))
	for i, w := range windows {
		chunks = append(chunks, newChunk(meetingID, domain.ChunkID(meetingID, i), w, i))
	}
	return chunks
}

func (p *Processor) windows(sents []string) []string {
	var out []string
	i := 0
	for i < len(sents) {
		end := i
		size := 0
		for end < len(sents) {
			add := len(sents[end])
			if end > i {
				add++ // joining space
			}
			if end > i && size+add > p.maxChars {
				break
			}
			size += add
			end++
		}
		out = append(out, strings.Join(sents[i:end], " "))
		if end == len(sents) {
			break
		}

		next := end - p.overlap
		if next <= i {
			next = end
		}
		// Drop overlap that would leave no room for the next new sentence.
		for next < end && joinedLen(sents[next:end])+1+len(sents[end]) > p.maxChars {
			next++
		}
		i = next
	}
	return out
}

func joinedLen(sents []string) int {
	n := len(sents) - 1
	for _, s := range sents {
		n += len(s)
	}
	return n
}

func sentences(text string) []string {
	raw := sentencePattern.FindAllString(text, -1)
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.Join(strings.Fields(s), " ")
		if s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		out = append(out, text)
	}
	return out
}

func newChunk(meetingID domain.MeetingID, id, text string, position int) domain.Chunk {
	return domain.Chunk{
		ID:        id,
		MeetingID: meetingID,
		Text:      text,
		Position:  position,
		Metadata:  map[string]string{domain.MetaMeetingID: string(meetingID)},
	}
}
