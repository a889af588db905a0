// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.KeywordExtractor,
// and ai.AIProvider for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	embedder := mock.NewMockEmbedder()
//	embedder.SetVector("Market Microstructure: order books", []float32{1, 0, 0})
//	embedder.FailTimes = 2 // first two calls return ErrInjected
//
//	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, errors.New("down")
//	}
//
//	count := embedder.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: pinned vectors, otherwise unit vectors derived from a text hash
//   - MockKeywordExtractor: ai.HeuristicKeywords over title and summary
//   - MockProvider: aggregates the two and reports MockModelID
package mock
