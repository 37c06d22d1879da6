package index

import (
	"sort"

	"ai-docchat-be/pkg/apperrors"
	"ai-docchat-be/pkg/store"
)

// Match pairs a passage position with its cosine similarity to a query.
type Match struct {
	Index int
	Score float32
}

// DocumentIndex holds the passages of one document together with their
// unit-normalized embedding vectors. It is read-only after construction and
// owned by exactly one session, so lookups need no locking.
type DocumentIndex struct {
	passages []store.Passage
	vectors  [][]float32
	dim      int
}

// New validates that passages and vectors line up and share one dimension.
func New(passages []store.Passage, vectors [][]float32) (*DocumentIndex, error) {
	if len(passages) == 0 {
		return nil, apperrors.New(apperrors.KindEmptyInput, "no passages to index")
	}
	if len(passages) != len(vectors) {
		return nil, apperrors.Newf(apperrors.KindInternal,
			"passage/vector count mismatch: %d vs %d", len(passages), len(vectors))
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, apperrors.New(apperrors.KindInternal, "embedding vectors are empty")
	}
	for i, vec := range vectors {
		if len(vec) != dim {
			return nil, apperrors.Newf(apperrors.KindInternal,
				"vector %d has dimension %d, want %d", i, len(vec), dim)
		}
	}
	return &DocumentIndex{passages: passages, vectors: vectors, dim: dim}, nil
}

func (ix *DocumentIndex) Len() int {
	return len(ix.passages)
}

func (ix *DocumentIndex) Dim() int {
	return ix.dim
}

func (ix *DocumentIndex) Passage(i int) store.Passage {
	return ix.passages[i]
}

// Vector returns the stored vector for position i. Callers must not mutate it.
func (ix *DocumentIndex) Vector(i int) []float32 {
	return ix.vectors[i]
}

// TopK returns the k most similar passages to the query vector, scored by
// dot product (cosine similarity on normalized vectors), highest first.
// Ties resolve to the lower passage index. k larger than the index returns
// every passage.
func (ix *DocumentIndex) TopK(query []float32, k int) ([]Match, error) {
	if ix.Len() == 0 {
		return nil, apperrors.New(apperrors.KindEmptyInput, "index holds no passages")
	}
	if len(query) != ix.dim {
		return nil, apperrors.Newf(apperrors.KindInvalidInput,
			"query vector has dimension %d, want %d", len(query), ix.dim)
	}
	if k <= 0 {
		return nil, nil
	}
	if k > ix.Len() {
		k = ix.Len()
	}

	matches := make([]Match, ix.Len())
	for i, vec := range ix.vectors {
		matches[i] = Match{Index: i, Score: Dot(query, vec)}
	}
	sort.Slice(matches, func(a, b int) bool {
		if matches[a].Score != matches[b].Score {
			return matches[a].Score > matches[b].Score
		}
		return matches[a].Index < matches[b].Index
	})

	return matches[:k], nil
}

// Dot computes the dot product of two equal-length vectors.
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
