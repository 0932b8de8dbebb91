package ingest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildText(sentences int) string {
	var b strings.Builder
	for i := 0; i < sentences; i++ {
		fmt.Fprintf(&b, "This is sentence number %d of the sample document. ", i)
	}
	return strings.TrimRight(b.String(), " ")
}

func TestChunkerDefaults(t *testing.T) {
	c := NewChunker()
	assert.Equal(t, DefaultTargetTokens, c.targetTokens)
	assert.Equal(t, DefaultOverlapTokens, c.overlapTokens)
}

func TestChunkerOverlapClampedBelowTarget(t *testing.T) {
	c := NewChunker(WithTargetTokens(100), WithOverlapTokens(150))
	assert.Less(t, c.overlapTokens, c.targetTokens)
}

func TestSplitEmptyInput(t *testing.T) {
	c := NewChunker()
	assert.Empty(t, c.Split(""))
	assert.Empty(t, c.Split("   \n\t  "))
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	c := NewChunker()
	pieces := c.Split("One short sentence.")
	require.Len(t, pieces, 1)
	assert.Equal(t, 0, pieces[0].Index)
	assert.Equal(t, "One short sentence.", pieces[0].Content)
	assert.Positive(t, pieces[0].TokenCount)
}

func TestSplitIndexesAreContiguous(t *testing.T) {
	c := NewChunker(WithTargetTokens(50), WithOverlapTokens(10))
	pieces := c.Split(buildText(60))
	require.Greater(t, len(pieces), 2)
	for i, p := range pieces {
		assert.Equal(t, i, p.Index)
		assert.NotEmpty(t, p.Content)
	}
}

func TestSplitOverlapIsTailOfPreviousChunk(t *testing.T) {
	c := NewChunker(WithTargetTokens(50), WithOverlapTokens(10))
	overlapChars := 10 * charsPerToken

	pieces := c.Split(buildText(60))
	require.Greater(t, len(pieces), 2)

	for i := 1; i < len(pieces); i++ {
		prev := []rune(pieces[i-1].Content)
		n := overlapChars
		if n > len(prev) {
			n = len(prev)
		}
		seed := string(prev[len(prev)-n:])
		assert.True(t, strings.HasPrefix(pieces[i].Content, seed),
			"chunk %d must start with the trailing %d chars of chunk %d", i, n, i-1)
	}
}

func TestSplitReconstructsOriginalText(t *testing.T) {
	c := NewChunker(WithTargetTokens(50), WithOverlapTokens(10))
	overlapChars := 10 * charsPerToken

	text := buildText(60)
	pieces := c.Split(text)
	require.Greater(t, len(pieces), 2)

	var b strings.Builder
	for i, p := range pieces {
		content := []rune(p.Content)
		if i == 0 {
			b.WriteString(p.Content)
			continue
		}
		prev := []rune(pieces[i-1].Content)
		seedLen := overlapChars
		if seedLen > len(prev) {
			seedLen = len(prev)
		}
		b.WriteString(string(content[seedLen:]))
	}
	assert.Equal(t, text, b.String())
}

func TestSplitHardCutsOversizedSentence(t *testing.T) {
	c := NewChunker(WithTargetTokens(25), WithOverlapTokens(5))
	budgetChars := 25 * charsPerToken

	// One sentence, no terminal punctuation until the very end, far over budget.
	oversized := strings.Repeat("x", budgetChars*3) + "."
	pieces := c.Split(oversized)
	require.Greater(t, len(pieces), 1)

	for _, p := range pieces {
		assert.LessOrEqual(t, len([]rune(p.Content)), budgetChars)
	}
	// Hard-cut chunks are cut exactly at the character budget.
	assert.Len(t, []rune(pieces[0].Content), budgetChars)
}

func TestSplitNoSentenceDropped(t *testing.T) {
	c := NewChunker(WithTargetTokens(40), WithOverlapTokens(8))
	text := buildText(50)
	pieces := c.Split(text)

	var all strings.Builder
	for _, p := range pieces {
		all.WriteString(p.Content)
	}
	joined := all.String()
	for i := 0; i < 50; i++ {
		marker := fmt.Sprintf("sentence number %d of", i)
		assert.Contains(t, joined, marker)
	}
}

func TestSplitLongDocumentProducesManyChunks(t *testing.T) {
	c := NewChunker() // 650/80 defaults
	// A long plain-text document has to spread across several chunks,
	// each carrying a sane token estimate.
	text := buildText(400)
	pieces := c.Split(text)
	require.GreaterOrEqual(t, len(pieces), 4)
	for _, p := range pieces {
		assert.LessOrEqual(t, p.TokenCount, DefaultTargetTokens+DefaultOverlapTokens)
	}
}

func TestApproxTokens(t *testing.T) {
	assert.Equal(t, 0, approxTokens(""))
	assert.Equal(t, 1, approxTokens("abc"))
	assert.Equal(t, 1, approxTokens("abcd"))
	assert.Equal(t, 2, approxTokens("abcde"))
}
