package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity.
// Implementations must be thread-safe for concurrent use and deterministic
// for identical (text, model) pairs.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// KeywordExtractor turns an item's text into search terms for the
// document search collaborator.
// Implementations must be thread-safe for concurrent use.
type KeywordExtractor interface {
	// ExtractKeywords returns at most max lowercase search terms, most
	// useful first. Returns an empty slice if nothing usable is found.
	ExtractKeywords(ctx context.Context, title, summary string, max int) ([]string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// KeywordExtractor returns the keyword extraction service.
	// The returned KeywordExtractor is safe for concurrent use.
	KeywordExtractor() KeywordExtractor

	// ModelID identifies the embedding model; it keys the taxonomy cache.
	ModelID() string

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
