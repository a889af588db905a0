package mock

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"sync/atomic"

	vec "github.com/poiesic/convergence/vector"
)

// ErrInjected is returned by mocks configured to fail.
var ErrInjected = errors.New("mock: injected failure")

// DefaultDimensions is the width of vectors produced by the default behavior.
const DefaultDimensions = 64

// MockEmbedder is a test double for ai.Embedder.
// It allows custom behavior injection via function fields.
// Safe for concurrent use.
type MockEmbedder struct {
	// EmbedTextFunc is called by EmbedText if set.
	// If nil, uses default deterministic behavior.
	EmbedTextFunc func(ctx context.Context, text string) ([]float32, error)

	// EmbedTextsFunc is called by EmbedTexts if set.
	// If nil, uses default deterministic behavior.
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	// FailTimes makes the first N calls fail with ErrInjected.
	FailTimes int32

	// FailTexts makes any call containing one of these texts fail.
	FailTexts map[string]bool

	mu        sync.RWMutex
	vectors   map[string][]float32
	callCount atomic.Int32
	textCount atomic.Int32
}

// NewMockEmbedder creates a mock embedder with default deterministic behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{vectors: make(map[string][]float32)}
}

// SetVector pins the embedding returned for text.
func (m *MockEmbedder) SetVector(text string, vec []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.vectors == nil {
		m.vectors = make(map[string][]float32)
	}
	m.vectors[text] = vec
}

// EmbedText returns the pinned vector for text, or a hash-derived one.
func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	n := m.callCount.Add(1)
	m.textCount.Add(1)

	if m.EmbedTextFunc != nil {
		return m.EmbedTextFunc(ctx, text)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n <= m.FailTimes || m.FailTexts[text] {
		return nil, ErrInjected
	}
	return m.vectorFor(text), nil
}

// EmbedTexts embeds each text in order.
func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	n := m.callCount.Add(1)
	m.textCount.Add(int32(len(texts)))

	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n <= m.FailTimes {
		return nil, ErrInjected
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if m.FailTexts[text] {
			return nil, ErrInjected
		}
		embeddings[i] = m.vectorFor(text)
	}
	return embeddings, nil
}

// CallCount returns the number of times any method was called.
func (m *MockEmbedder) CallCount() int {
	return int(m.callCount.Load())
}

// TextCount returns the number of texts embedded across all calls.
func (m *MockEmbedder) TextCount() int {
	return int(m.textCount.Load())
}

// Reset clears the counters and injected behavior. Pinned vectors are kept.
func (m *MockEmbedder) Reset() {
	m.callCount.Store(0)
	m.textCount.Store(0)
	m.FailTimes = 0
	m.FailTexts = nil
	m.EmbedTextFunc = nil
	m.EmbedTextsFunc = nil
}

func (m *MockEmbedder) vectorFor(text string) []float32 {
	m.mu.RLock()
	vec, ok := m.vectors[text]
	m.mu.RUnlock()
	if ok {
		out := make([]float32, len(vec))
		copy(out, vec)
		return out
	}
	return DeterministicVector(text, DefaultDimensions)
}

// DeterministicVector creates a unit vector from a hash of text.
// The same text always produces the same vector.
func DeterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := 0; i < dim; i++ {
		seed = seed*1664525 + 1013904223 // LCG constants
		vector[i] = float32(seed%1000)/500.0 - 1.0
	}

	return vec.Normalize(vector)
}
