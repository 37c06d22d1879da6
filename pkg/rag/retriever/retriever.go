package retriever

import (
	"context"
	"strings"

	"ai-docchat-be/pkg/apperrors"
	"ai-docchat-be/pkg/embedding"
	"ai-docchat-be/pkg/rag/index"
	"ai-docchat-be/pkg/retry"
	"ai-docchat-be/pkg/store"
)

// Mode selects the ranking strategy for a retrieval request.
type Mode int

const (
	// ModeSimilarity returns the passages closest to the query.
	ModeSimilarity Mode = iota
	// ModeDiverse applies maximal-marginal-relevance so near-duplicate
	// passages do not crowd out coverage. Default for conversation.
	ModeDiverse
)

const (
	DefaultK      = 6
	DefaultFetchK = 12
	DefaultLambda = 0.7
)

// Retriever embeds a query and ranks passages from a document index.
type Retriever struct {
	embedder embedding.EmbeddingProvider
	retrier  retry.Policy
	FetchK   int     // candidate pool size for ModeDiverse
	Lambda   float64 // relevance/diversity trade-off, 1 = pure relevance
}

func New(embedder embedding.EmbeddingProvider, retrier retry.Policy, fetchK int, lambda float64) *Retriever {
	if fetchK <= 0 {
		fetchK = DefaultFetchK
	}
	if lambda <= 0 || lambda > 1 {
		lambda = DefaultLambda
	}
	return &Retriever{
		embedder: embedder,
		retrier:  retrier,
		FetchK:   fetchK,
		Lambda:   lambda,
	}
}

// Retrieve returns up to k passages for the query, ranked by the given mode.
// Results are deterministic for a fixed index and query; score ties resolve
// to the lower passage index.
func (r *Retriever) Retrieve(ctx context.Context, ix *index.DocumentIndex, query string, k int, mode Mode) ([]store.Passage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.New(apperrors.KindEmptyInput, "query is empty")
	}
	if k <= 0 {
		k = DefaultK
	}

	var queryVec []float32
	err := r.retrier.Do(ctx, func(ctx context.Context) error {
		vectors, err := r.embedder.Embed(ctx, []string{query})
		if err != nil {
			return err
		}
		if len(vectors) != 1 {
			return apperrors.Newf(apperrors.KindInternal, "expected 1 query vector, got %d", len(vectors))
		}
		queryVec = vectors[0]
		return nil
	})
	if err != nil {
		return nil, err
	}

	var matches []index.Match
	switch mode {
	case ModeDiverse:
		fetchK := r.FetchK
		if fetchK < k {
			fetchK = k
		}
		candidates, err := ix.TopK(queryVec, fetchK)
		if err != nil {
			return nil, err
		}
		matches = r.mmrSelect(ix, candidates, k)
	default:
		matches, err = ix.TopK(queryVec, k)
		if err != nil {
			return nil, err
		}
	}

	passages := make([]store.Passage, len(matches))
	for i, m := range matches {
		passages[i] = ix.Passage(m.Index)
	}
	return passages, nil
}

// mmrSelect greedily picks k candidates maximizing
// lambda*relevance - (1-lambda)*maxSimilarityToSelected. Candidates arrive
// relevance-sorted, so the first pick is the most relevant passage and score
// ties keep the earlier (more relevant, lower index) candidate.
func (r *Retriever) mmrSelect(ix *index.DocumentIndex, candidates []index.Match, k int) []index.Match {
	if len(candidates) == 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	selected := make([]index.Match, 0, k)
	remaining := make([]index.Match, len(candidates))
	copy(remaining, candidates)

	for len(selected) < k && len(remaining) > 0 {
		bestPos := 0
		bestScore := mmrScore(ix, remaining[0], selected, r.Lambda)
		for pos := 1; pos < len(remaining); pos++ {
			if score := mmrScore(ix, remaining[pos], selected, r.Lambda); score > bestScore {
				bestScore = score
				bestPos = pos
			}
		}
		selected = append(selected, remaining[bestPos])
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}
	return selected
}

func mmrScore(ix *index.DocumentIndex, candidate index.Match, selected []index.Match, lambda float64) float64 {
	if len(selected) == 0 {
		return float64(candidate.Score)
	}
	maxSim := float64(-1)
	for _, s := range selected {
		sim := float64(index.Dot(ix.Vector(candidate.Index), ix.Vector(s.Index)))
		if sim > maxSim {
			maxSim = sim
		}
	}
	return lambda*float64(candidate.Score) - (1-lambda)*maxSim
}
