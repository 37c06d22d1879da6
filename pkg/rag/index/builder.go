package index

import (
	"context"
	"log"

	"ai-docchat-be/pkg/apperrors"
	"ai-docchat-be/pkg/embedding"
	"ai-docchat-be/pkg/retry"
	"ai-docchat-be/pkg/store"
)

// Builder embeds passages and assembles the per-document index. Embedding
// runs under the shared retry policy so transient provider failures are
// absorbed before they surface to the caller.
type Builder struct {
	embedder embedding.EmbeddingProvider
	retrier  retry.Policy
	logger   *log.Logger
}

func NewBuilder(embedder embedding.EmbeddingProvider, retrier retry.Policy, logger *log.Logger) *Builder {
	return &Builder{
		embedder: embedder,
		retrier:  retrier,
		logger:   logger,
	}
}

func (b *Builder) Build(ctx context.Context, passages []store.Passage) (*DocumentIndex, error) {
	if len(passages) == 0 {
		return nil, apperrors.New(apperrors.KindEmptyInput, "no passages to index")
	}

	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Content
	}

	var vectors [][]float32
	err := b.retrier.Do(ctx, func(ctx context.Context) error {
		embedded, err := b.embedder.Embed(ctx, texts)
		if err != nil {
			return err
		}
		vectors = embedded
		return nil
	})
	if err != nil {
		b.logger.Printf("[INDEX] embedding %d passages failed: %v", len(passages), err)
		return nil, err
	}

	ix, err := New(passages, vectors)
	if err != nil {
		return nil, err
	}

	b.logger.Printf("[INDEX] built index: %d passages, dim %d", ix.Len(), ix.Dim())
	return ix, nil
}
