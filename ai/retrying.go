package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/convergence/retry"
)

// ErrEmbeddingCount indicates a batch response whose length does not match the request.
var ErrEmbeddingCount = errors.New("embedder returned wrong number of vectors")

// ErrEmptyEmbedding indicates the embedder returned a zero-length vector.
var ErrEmptyEmbedding = errors.New("embedder returned empty vector")

// RetryingEmbedder applies a retry policy to every call of the wrapped Embedder.
// Once the policy is exhausted the last error is returned unchanged and callers
// treat it as "no result".
type RetryingEmbedder struct {
	inner  Embedder
	policy retry.Policy
	logger *slog.Logger
}

var _ Embedder = (*RetryingEmbedder)(nil)

// NewRetryingEmbedder wraps inner with policy.
func NewRetryingEmbedder(inner Embedder, policy retry.Policy, logger *slog.Logger) (*RetryingEmbedder, error) {
	if inner == nil {
		return nil, errors.New("retrying embedder: inner embedder is required")
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("retrying embedder: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryingEmbedder{
		inner:  inner,
		policy: policy,
		logger: logger.With("component", "retrying-embedder"),
	}, nil
}

// EmbedText implements Embedder.
func (r *RetryingEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vec, err := retry.Value(ctx, r.policy, func(ctx context.Context) ([]float32, error) {
		v, err := r.inner.EmbedText(ctx, text)
		if err != nil {
			return nil, err
		}
		if len(v) == 0 {
			return nil, ErrEmptyEmbedding
		}
		return v, nil
	})
	if err != nil {
		r.logger.Warn("embedding failed after retries", "attempts", r.policy.MaxAttempts, "err", err)
		return nil, err
	}
	return vec, nil
}

// EmbedTexts implements Embedder.
func (r *RetryingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	vecs, err := retry.Value(ctx, r.policy, func(ctx context.Context) ([][]float32, error) {
		v, err := r.inner.EmbedTexts(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(v) != len(texts) {
			// a short batch is a provider bug, retrying won't fix it
			return nil, retry.Permanent(fmt.Errorf("%w: want %d, got %d", ErrEmbeddingCount, len(texts), len(v)))
		}
		return v, nil
	})
	if err != nil {
		r.logger.Warn("batch embedding failed after retries", "count", len(texts), "attempts", r.policy.MaxAttempts, "err", err)
		return nil, err
	}
	return vecs, nil
}
