package ingest

import (
	"regexp"
	"strings"
)

const (
	// DefaultTargetTokens is the approximate token budget per chunk.
	DefaultTargetTokens = 650
	// DefaultOverlapTokens is the token overlap carried from the end of a
	// chunk into the start of the next.
	DefaultOverlapTokens = 80

	// charsPerToken is the cheap estimator ratio (~4 chars ≈ 1 token).
	charsPerToken = 4
)

// Piece is one emitted chunk: content plus its estimated token count and
// zero-based index in emission order.
type Piece struct {
	Index      int
	Content    string
	TokenCount int
}

// Chunker splits normalized text into overlapping token-bounded segments.
// Sentences accumulate greedily until the character budget overflows; the
// flushed chunk's trailing overlap seeds the next buffer, so retrieval at
// a chunk boundary keeps its surrounding context.
type Chunker struct {
	targetTokens  int
	overlapTokens int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithTargetTokens sets the approximate tokens per chunk.
func WithTargetTokens(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.targetTokens = n
		}
	}
}

// WithOverlapTokens sets the token overlap between consecutive chunks.
func WithOverlapTokens(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.overlapTokens = n
		}
	}
}

// NewChunker creates a chunker with the given options.
func NewChunker(opts ...Option) *Chunker {
	c := &Chunker{
		targetTokens:  DefaultTargetTokens,
		overlapTokens: DefaultOverlapTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	// Overlap must leave forward progress on every flush.
	if c.overlapTokens >= c.targetTokens {
		c.overlapTokens = c.targetTokens / 4
	}
	return c
}

var sentenceEnd = regexp.MustCompile(`[.!?]+\s+`)

// splitSentences cuts text after sentence-terminal punctuation followed by
// whitespace. The trailing whitespace stays attached to its sentence, so
// concatenating all sentences reproduces the input exactly.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		out = append(out, text[start:loc[1]])
		start = loc[1]
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

// Split chunks text into ordered pieces with contiguous indexes.
func (c *Chunker) Split(text string) []Piece {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	budget := c.targetTokens * charsPerToken
	overlap := c.overlapTokens * charsPerToken

	var pieces []Piece
	emit := func(content string) {
		if strings.TrimSpace(content) == "" {
			return
		}
		pieces = append(pieces, Piece{
			Index:      len(pieces),
			Content:    content,
			TokenCount: approxTokens(content),
		})
	}

	var buf strings.Builder
	bufRunes := 0

	for _, sent := range splitSentences(text) {
		sentRunes := runeLen(sent)

		if bufRunes > 0 && bufRunes+sentRunes > budget {
			flushed := buf.String()
			emit(flushed)
			seed := tailRunes(flushed, overlap)
			buf.Reset()
			buf.WriteString(seed)
			bufRunes = runeLen(seed)
		}

		buf.WriteString(sent)
		bufRunes += sentRunes

		// A single sentence longer than the budget is hard-cut at the
		// character budget; the remainder after the overlap seeds the
		// next chunk.
		for bufRunes > budget {
			s := buf.String()
			head, rest := cutRunes(s, budget)
			emit(head)
			seed := tailRunes(head, overlap)
			buf.Reset()
			buf.WriteString(seed)
			buf.WriteString(rest)
			bufRunes = runeLen(seed) + runeLen(rest)
		}
	}

	if bufRunes > 0 {
		emit(buf.String())
	}

	return pieces
}

// approxTokens is a cheap token estimator (~4 chars ≈ 1 token).
func approxTokens(s string) int {
	n := runeLen(s)
	if n <= 0 {
		return 0
	}
	return (n + charsPerToken - 1) / charsPerToken
}

func runeLen(s string) int {
	return len([]rune(s))
}

// cutRunes splits s after n runes.
func cutRunes(s string, n int) (head, rest string) {
	r := []rune(s)
	if n >= len(r) {
		return s, ""
	}
	return string(r[:n]), string(r[n:])
}

// tailRunes returns the trailing n runes of s.
func tailRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if n >= len(r) {
		return s
	}
	return string(r[len(r)-n:])
}
