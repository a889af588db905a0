package mock

import (
	"context"
	"sync/atomic"

	"github.com/poiesic/convergence/ai"
)

// MockKeywordExtractor is a test double for ai.KeywordExtractor.
type MockKeywordExtractor struct {
	// ExtractKeywordsFunc is called by ExtractKeywords if set.
	// If nil, falls back to ai.HeuristicKeywords.
	ExtractKeywordsFunc func(ctx context.Context, title, summary string, max int) ([]string, error)

	callCount atomic.Int32
}

// NewMockKeywordExtractor creates a mock extractor with heuristic behavior.
func NewMockKeywordExtractor() *MockKeywordExtractor {
	return &MockKeywordExtractor{}
}

// ExtractKeywords returns keywords from the injected function or the heuristic.
func (m *MockKeywordExtractor) ExtractKeywords(ctx context.Context, title, summary string, max int) ([]string, error) {
	m.callCount.Add(1)
	if m.ExtractKeywordsFunc != nil {
		return m.ExtractKeywordsFunc(ctx, title, summary, max)
	}
	return ai.HeuristicKeywords(title+" "+summary, max), nil
}

// CallCount returns the number of times ExtractKeywords was called.
func (m *MockKeywordExtractor) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and injected behavior.
func (m *MockKeywordExtractor) Reset() {
	m.callCount.Store(0)
	m.ExtractKeywordsFunc = nil
}
