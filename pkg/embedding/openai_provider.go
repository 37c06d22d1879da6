package embedding

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"ai-docchat-be/pkg/apperrors"
)

// OpenAIProvider implements EmbeddingProvider on the official SDK.
type OpenAIProvider struct {
	client *openai.Client
	Model  string
}

var _ EmbeddingProvider = &OpenAIProvider{}

// NewOpenAIProvider builds an embedding provider. SDK-internal retries are
// disabled; the caller's retry policy owns backoff.
func NewOpenAIProvider(apiKey, model string, requestTimeout time.Duration) *OpenAIProvider {
	if model == "" {
		model = string(openai.EmbeddingModelTextEmbeddingAda002)
	}
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(requestTimeout),
	)
	return &OpenAIProvider{
		client: &client,
		Model:  model,
	}
}

func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	res, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(p.Model),
	})
	if err != nil {
		return nil, classifyEmbeddingError(err)
	}
	if len(res.Data) != len(texts) {
		return nil, apperrors.Newf(apperrors.KindInternal,
			"embedding service returned %d vectors for %d inputs", len(res.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range res.Data {
		values := make([]float32, len(item.Embedding))
		for i, v := range item.Embedding {
			values[i] = float32(v)
		}
		idx := int(item.Index)
		if idx < 0 || idx >= len(vectors) {
			return nil, apperrors.Newf(apperrors.KindInternal, "embedding service returned out-of-range index %d", idx)
		}
		vectors[idx] = NormalizeVector(values)
	}
	return vectors, nil
}

// classifyEmbeddingError maps transport and API failures onto the shared
// taxonomy, shared by both embedding backends.
func classifyEmbeddingError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(err, apperrors.KindServiceTimeout, "embedding request timed out")
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.Wrap(err, apperrors.KindServiceTimeout, "embedding request timed out")
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline"):
		return apperrors.Wrap(err, apperrors.KindServiceTimeout, "embedding request timed out")
	case strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "dial") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "server_error"):
		return apperrors.Wrap(err, apperrors.KindServiceUnavailable, "embedding service temporarily unavailable")
	default:
		return apperrors.Wrap(err, apperrors.KindInternal, "embedding request failed")
	}
}
