package chunker

import (
	"regexp"
	"strings"

	"ai-docchat-be/pkg/apperrors"
	"ai-docchat-be/pkg/store"
)

const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200

	// charsPerToken is the fixed estimation ratio used when no tokenizer
	// is available.
	charsPerToken = 4
)

var (
	editMarkerRe     = regexp.MustCompile(`\[edit\]`)
	citationNeededRe = regexp.MustCompile(`\[citation needed\]`)
	citationRefRe    = regexp.MustCompile(`\[\d+\]`)
	blankLineRunRe   = regexp.MustCompile(`\n\s*\n`)
	spaceRunRe       = regexp.MustCompile(` +`)
)

// Chunker splits normalized document text into overlapping passages.
// Boundaries prefer paragraph breaks, then line breaks, then spaces, and
// consecutive passages share exactly Overlap runes.
type Chunker struct {
	ChunkSize int // max runes per passage
	Overlap   int // runes shared between consecutive passages
}

func New(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 5 // keep the default 1000:200 ratio
	}
	return &Chunker{ChunkSize: chunkSize, Overlap: overlap}
}

// Normalize cleans wiki markup leftovers and canonicalizes whitespace while
// preserving paragraph structure. The result is what gets chunked, so the
// passages reconstruct it exactly.
func Normalize(text string) string {
	text = editMarkerRe.ReplaceAllString(text, "")
	text = citationNeededRe.ReplaceAllString(text, "")
	text = citationRefRe.ReplaceAllString(text, "")
	text = blankLineRunRe.ReplaceAllString(text, "\n\n")
	text = spaceRunRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// EstimateTokens approximates the token count of a text.
func EstimateTokens(text string) int {
	return len([]rune(text)) / charsPerToken
}

// TextStats summarizes a document before chunking.
type TextStats struct {
	CharacterCount  int `json:"character_count"`
	WordCount       int `json:"word_count"`
	EstimatedTokens int `json:"estimated_tokens"`
}

func Stats(text string) TextStats {
	return TextStats{
		CharacterCount:  len([]rune(text)),
		WordCount:       len(strings.Fields(text)),
		EstimatedTokens: EstimateTokens(text),
	}
}

// Chunk normalizes text and splits it into passages. Every passage is at
// most ChunkSize runes, consecutive passages share exactly Overlap runes,
// and concatenating the first passage with the post-overlap tails of the
// rest reconstructs the normalized text.
func (c *Chunker) Chunk(sourceRef, title, text string) ([]store.Passage, error) {
	normalized := Normalize(text)
	if normalized == "" {
		return nil, apperrors.New(apperrors.KindEmptyDocument, "document contains no usable text")
	}

	runes := []rune(normalized)
	total := len(runes)

	var contents []string
	start := 0
	for {
		windowEnd := start + c.ChunkSize
		if windowEnd >= total {
			contents = append(contents, string(runes[start:total]))
			break
		}
		end := c.boundary(runes, start, windowEnd)
		contents = append(contents, string(runes[start:end]))
		start = end - c.Overlap
	}

	passages := make([]store.Passage, len(contents))
	for i, content := range contents {
		passages[i] = store.Passage{
			Content:          content,
			SourceRef:        sourceRef,
			Title:            title,
			SequenceIndex:    i,
			SiblingCount:     len(contents),
			ApproxTokenCount: EstimateTokens(content),
		}
	}
	return passages, nil
}

// boundary picks the cut position inside (start, windowEnd]. A natural break
// is usable only when it leaves the passage strictly longer than the overlap,
// otherwise the next passage could not advance.
func (c *Chunker) boundary(runes []rune, start, windowEnd int) int {
	minEnd := start + c.Overlap + 1

	// Paragraph break: cut just after the blank line.
	for i := windowEnd - 2; i >= start; i-- {
		if runes[i] == '\n' && runes[i+1] == '\n' {
			if end := i + 2; end >= minEnd {
				return end
			}
			break
		}
	}

	// Line break.
	for i := windowEnd - 1; i >= start; i-- {
		if runes[i] == '\n' {
			if end := i + 1; end >= minEnd {
				return end
			}
			break
		}
	}

	// Word boundary.
	for i := windowEnd - 1; i >= start; i-- {
		if runes[i] == ' ' {
			if end := i + 1; end >= minEnd {
				return end
			}
			break
		}
	}

	// No usable break, hard cut at the window edge.
	return windowEnd
}
