package chunker

import (
	"strings"
	"testing"

	"ai-docchat-be/pkg/apperrors"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "strips edit markers",
			in:   "History[edit] of the region",
			want: "History of the region",
		},
		{
			name: "strips citation needed",
			in:   "It is the largest[citation needed] species.",
			want: "It is the largest species.",
		},
		{
			name: "strips numeric citations",
			in:   "Found in Europe[1] and Asia.[23]",
			want: "Found in Europe and Asia.",
		},
		{
			name: "collapses space runs",
			in:   "too   many    spaces",
			want: "too many spaces",
		},
		{
			name: "collapses blank line runs",
			in:   "first paragraph\n\n\n\nsecond paragraph",
			want: "first paragraph\n\nsecond paragraph",
		},
		{
			name: "keeps single paragraph break",
			in:   "first\n\nsecond",
			want: "first\n\nsecond",
		},
		{
			name: "trims outer whitespace",
			in:   "  \n padded \n ",
			want: "padded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChunkEmptyDocument(t *testing.T) {
	c := New(DefaultChunkSize, DefaultOverlap)
	for _, in := range []string{"", "   \n\n  ", "[edit][1][2]"} {
		_, err := c.Chunk("http://example.org", "Empty", in)
		if apperrors.KindOf(err) != apperrors.KindEmptyDocument {
			t.Errorf("Chunk(%q) kind = %v, want KindEmptyDocument", in, apperrors.KindOf(err))
		}
	}
}

func TestChunkShortDocumentSinglePassage(t *testing.T) {
	c := New(100, 20)
	passages, err := c.Chunk("http://example.org", "Short", "a short document")
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(passages) != 1 {
		t.Fatalf("len(passages) = %d, want 1", len(passages))
	}
	p := passages[0]
	if p.Content != "a short document" {
		t.Errorf("Content = %q", p.Content)
	}
	if p.SequenceIndex != 0 || p.SiblingCount != 1 {
		t.Errorf("SequenceIndex/SiblingCount = %d/%d, want 0/1", p.SequenceIndex, p.SiblingCount)
	}
}

func buildParagraphs(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("Paragraph number ")
		sb.WriteString(strings.Repeat("word ", 15))
		sb.WriteString("ends here.")
	}
	return sb.String()
}

func TestChunkProperties(t *testing.T) {
	tests := []struct {
		name      string
		chunkSize int
		overlap   int
		text      string
	}{
		{name: "paragraph text", chunkSize: 120, overlap: 30, text: buildParagraphs(12)},
		{name: "no separators at all", chunkSize: 50, overlap: 10, text: strings.Repeat("x", 400)},
		{name: "spaces only", chunkSize: 64, overlap: 16, text: strings.Repeat("alpha beta gamma ", 40)},
		{name: "defaults", chunkSize: DefaultChunkSize, overlap: DefaultOverlap, text: buildParagraphs(60)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.chunkSize, tt.overlap)
			normalized := Normalize(tt.text)
			passages, err := c.Chunk("http://example.org/wiki/T", "T", tt.text)
			if err != nil {
				t.Fatalf("Chunk() error = %v", err)
			}
			if len(passages) == 0 {
				t.Fatal("Chunk() returned no passages")
			}

			for i, p := range passages {
				if got := len([]rune(p.Content)); got > tt.chunkSize {
					t.Errorf("passage %d length = %d, want <= %d", i, got, tt.chunkSize)
				}
				if p.SequenceIndex != i {
					t.Errorf("passage %d SequenceIndex = %d", i, p.SequenceIndex)
				}
				if p.SiblingCount != len(passages) {
					t.Errorf("passage %d SiblingCount = %d, want %d", i, p.SiblingCount, len(passages))
				}
			}

			// Consecutive passages share exactly the configured overlap.
			for i := 1; i < len(passages); i++ {
				prev := []rune(passages[i-1].Content)
				curr := []rune(passages[i].Content)
				if len(prev) <= tt.overlap {
					t.Fatalf("passage %d too short (%d runes) to carry overlap %d", i-1, len(prev), tt.overlap)
				}
				tail := string(prev[len(prev)-tt.overlap:])
				head := string(curr[:tt.overlap])
				if tail != head {
					t.Errorf("passage %d/%d overlap mismatch:\ntail %q\nhead %q", i-1, i, tail, head)
				}
			}

			// Reconstruction of the normalized source.
			var sb strings.Builder
			sb.WriteString(passages[0].Content)
			for i := 1; i < len(passages); i++ {
				curr := []rune(passages[i].Content)
				sb.WriteString(string(curr[tt.overlap:]))
			}
			if sb.String() != normalized {
				t.Errorf("reconstruction does not match normalized source (got %d runes, want %d)",
					len([]rune(sb.String())), len([]rune(normalized)))
			}
		})
	}
}

func TestChunkPrefersParagraphBreaks(t *testing.T) {
	// Two paragraphs that both fit inside one window; the cut should land
	// right after the blank line, not mid-sentence.
	text := strings.Repeat("a", 40) + "\n\n" + strings.Repeat("b", 100)
	c := New(80, 10)
	passages, err := c.Chunk("ref", "T", text)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(passages) < 2 {
		t.Fatalf("len(passages) = %d, want >= 2", len(passages))
	}
	if !strings.HasSuffix(passages[0].Content, "\n\n") {
		t.Errorf("first passage should end at the paragraph break, got %q", passages[0].Content)
	}
}

func TestChunkFallsBackToWordBoundary(t *testing.T) {
	text := strings.Repeat("token ", 50) // no newlines anywhere
	c := New(64, 16)
	passages, err := c.Chunk("ref", "T", text)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	for i, p := range passages[:len(passages)-1] {
		if !strings.HasSuffix(p.Content, " ") {
			t.Errorf("passage %d should end on a word boundary, got %q", i, p.Content)
		}
	}
}

func TestNewClampsBadConfig(t *testing.T) {
	c := New(0, -5)
	if c.ChunkSize != DefaultChunkSize || c.Overlap != 0 {
		t.Errorf("New(0, -5) = {%d %d}", c.ChunkSize, c.Overlap)
	}
	c = New(100, 100)
	if c.Overlap >= c.ChunkSize {
		t.Errorf("New(100, 100) kept overlap >= chunk size: %d", c.Overlap)
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(strings.Repeat("a", 400)); got != 100 {
		t.Errorf("EstimateTokens() = %d, want 100", got)
	}
}

func TestStats(t *testing.T) {
	s := Stats("one two three four")
	if s.WordCount != 4 {
		t.Errorf("WordCount = %d, want 4", s.WordCount)
	}
	if s.CharacterCount != 18 {
		t.Errorf("CharacterCount = %d, want 18", s.CharacterCount)
	}
	if s.EstimatedTokens != 4 {
		t.Errorf("EstimatedTokens = %d, want 4", s.EstimatedTokens)
	}
}
