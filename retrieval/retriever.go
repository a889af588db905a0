// Package retrieval defines the document search collaborator used to find
// candidate research papers for a matched category.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/convergence/core"
	"github.com/poiesic/convergence/retry"
)

// Defaults for document search.
const (
	DefaultMaxResults    = 10
	DefaultRecencyWindow = 365 * 24 * time.Hour
)

// ErrRetrieverRequired indicates a nil retriever.
var ErrRetrieverRequired = errors.New("retriever is required")

// Query asks for documents in one category that match any keyword.
type Query struct {
	CategoryCode string
	Keywords     []string
	MaxResults   int
	// RecencyWindow limits results to documents published within it.
	// Zero disables the limit.
	RecencyWindow time.Duration
}

// Retriever searches an external corpus.
// Implementations must be thread-safe for concurrent use.
type Retriever interface {
	// Search returns matching documents, most relevant first. An empty
	// result is not an error.
	Search(ctx context.Context, q Query) ([]core.CandidateDocument, error)
}

// RetrieverFunc adapts a function to Retriever.
type RetrieverFunc func(ctx context.Context, q Query) ([]core.CandidateDocument, error)

// Search calls f.
func (f RetrieverFunc) Search(ctx context.Context, q Query) ([]core.CandidateDocument, error) {
	return f(ctx, q)
}

// RetryingRetriever applies a retry policy to every search of the wrapped
// Retriever. After the policy is exhausted the error is logged and returned;
// callers treat it as an empty result.
type RetryingRetriever struct {
	inner  Retriever
	policy retry.Policy
	logger *slog.Logger
}

var _ Retriever = (*RetryingRetriever)(nil)

// NewRetryingRetriever wraps inner with policy.
func NewRetryingRetriever(inner Retriever, policy retry.Policy, logger *slog.Logger) (*RetryingRetriever, error) {
	if inner == nil {
		return nil, ErrRetrieverRequired
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("retrying retriever: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryingRetriever{
		inner:  inner,
		policy: policy,
		logger: logger.With("component", "retrying-retriever"),
	}, nil
}

// Search implements Retriever.
func (r *RetryingRetriever) Search(ctx context.Context, q Query) ([]core.CandidateDocument, error) {
	docs, err := retry.Value(ctx, r.policy, func(ctx context.Context) ([]core.CandidateDocument, error) {
		return r.inner.Search(ctx, q)
	})
	if err != nil {
		r.logger.Error("document search failed", "category", q.CategoryCode, "keywords", q.Keywords, "err", err)
		return nil, err
	}
	return docs, nil
}
