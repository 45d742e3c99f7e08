// Package chunker splits source text into retrievable units.
//
// Two splitting policies operate on a plain text buffer: fixed-size slicing
// and overlapping slicing. Both cut on raw character positions with no
// look-ahead for word or sentence boundaries, so mid-word splits are an
// accepted trade-off of these strategies. A third parser handles
// "Question/Answer" formatted documents (see qa.go).
package chunker

import (
	"fmt"
	"strings"
)

// Strategy identifies which splitting policy produced a chunk.
type Strategy string

const (
	StrategyFixed   Strategy = "fixed"
	StrategyOverlap Strategy = "overlap"
	StrategyQA      Strategy = "qa"
)

// Chunk represents one retrievable span of source text.
type Chunk struct {
	ID          int
	Text        string
	StartOffset int
	EndOffset   int
	Strategy    Strategy

	// OverlapSize is set for overlap-strategy chunks.
	OverlapSize int

	// QA fields, set only for Strategy == StrategyQA.
	Question       string
	Answer         string
	QuestionNumber string
}

// TextChunker slices a text buffer into fixed-size or overlapping chunks.
// Offsets are in runes so multi-byte text is cut on character boundaries.
type TextChunker struct {
	chunkSize   int
	overlapSize int
}

// NewTextChunker creates a chunker for the given chunk size (in characters)
// and overlap fraction. overlapPercent must be in [0,1): a value of 1 or
// more would make the overlap step non-positive and the slicing loop would
// never advance.
func NewTextChunker(chunkSize int, overlapPercent float64) (*TextChunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlapPercent < 0 || overlapPercent >= 1 {
		return nil, fmt.Errorf("overlap percent must be within [0,1), got %g", overlapPercent)
	}
	return &TextChunker{
		chunkSize:   chunkSize,
		overlapSize: int(float64(chunkSize) * overlapPercent),
	}, nil
}

// ChunkSize returns the configured chunk size in characters.
func (c *TextChunker) ChunkSize() int { return c.chunkSize }

// OverlapSize returns the overlap in characters used by ChunkWithOverlap.
func (c *TextChunker) OverlapSize() int { return c.overlapSize }

// ChunkBySize splits text into consecutive chunks of exactly chunkSize
// characters (the final chunk may be shorter). Whitespace-only slices are
// suppressed; the concatenation of the returned texts reproduces the input
// except for any suppressed all-whitespace windows.
func (c *TextChunker) ChunkBySize(text string) []Chunk {
	return c.slice(text, c.chunkSize, StrategyFixed, 0)
}

// ChunkWithOverlap splits text like ChunkBySize but advances the start
// position by chunkSize-overlapSize, so consecutive chunks share an
// overlapSize-character region. Each chunk records its overlap for
// downstream consumers.
func (c *TextChunker) ChunkWithOverlap(text string) []Chunk {
	return c.slice(text, c.chunkSize-c.overlapSize, StrategyOverlap, c.overlapSize)
}

func (c *TextChunker) slice(text string, step int, strategy Strategy, overlap int) []Chunk {
	runes := []rune(text)

	var chunks []Chunk
	id := 1
	for start := 0; start < len(runes); start += step {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunkText := string(runes[start:end])

		// Don't emit empty chunks
		if strings.TrimSpace(chunkText) != "" {
			chunks = append(chunks, Chunk{
				ID:          id,
				Text:        chunkText,
				StartOffset: start,
				EndOffset:   end,
				Strategy:    strategy,
				OverlapSize: overlap,
			})
			id++
		}
	}

	return chunks
}
