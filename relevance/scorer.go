// Package relevance scores retrieved documents against an item embedding.
package relevance

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/convergence/ai"
	"github.com/poiesic/convergence/core"
	"github.com/poiesic/convergence/vector"
)

// DefaultMinRelevance is the floor below which documents are discarded.
const DefaultMinRelevance = 0.4

var (
	// ErrEmbedderRequired indicates a nil embedder.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrInvalidConfig indicates an out-of-range threshold.
	ErrInvalidConfig = errors.New("invalid relevance config")
)

// Config holds the relevance threshold.
type Config struct {
	MinRelevance float64
}

// DefaultConfig returns the default threshold.
func DefaultConfig() *Config {
	return &Config{MinRelevance: DefaultMinRelevance}
}

// Validate checks the threshold.
func (c *Config) Validate() error {
	if !(c.MinRelevance >= 0 && c.MinRelevance <= 1) {
		return fmt.Errorf("%w: min_relevance must be in [0,1], got %v", ErrInvalidConfig, c.MinRelevance)
	}
	return nil
}

// Candidate is a retrieved document tagged with the category it was
// retrieved under.
type Candidate struct {
	Document     core.CandidateDocument
	CategoryCode string
}

// Scorer embeds candidate documents and ranks them by similarity to an item.
type Scorer struct {
	embedder ai.Embedder
	config   *Config
	logger   *slog.Logger
}

// Option configures a Scorer.
type Option func(*Scorer) error

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scorer) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// NewScorer creates a scorer. A nil cfg uses DefaultConfig.
func NewScorer(embedder ai.Embedder, cfg *Config, opts ...Option) (*Scorer, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Scorer{
		embedder: embedder,
		config:   cfg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "relevance")
	return s, nil
}

// Config returns the scorer's threshold.
func (s *Scorer) Config() Config {
	return *s.config
}

// Score returns the documents that clear the relevance floor, best first.
// Failures are per document: a document that cannot be embedded is skipped.
// A nil itemEmbedding yields no scores.
func (s *Scorer) Score(ctx context.Context, itemEmbedding []float32, candidates []Candidate) []core.DocumentScore {
	if len(itemEmbedding) == 0 || len(candidates) == 0 {
		return nil
	}

	docs := s.distinct(candidates)
	if len(docs) == 0 {
		return nil
	}

	vecs := s.embed(ctx, docs)

	scores := make([]core.DocumentScore, 0, len(docs))
	for i := range docs {
		if vecs[i] == nil {
			continue
		}
		doc := &docs[i].Document
		doc.Embedding = vecs[i]
		rel := vector.Similarity(itemEmbedding, doc.Embedding)
		if rel < s.config.MinRelevance {
			s.logger.Debug("document below relevance floor", "id", doc.ID, "relevance", rel)
			continue
		}
		score, err := core.NewDocumentScore(doc, rel, docs[i].CategoryCode)
		if err != nil {
			s.logger.Warn("dropping invalid document score", "id", doc.ID, "error", err)
			continue
		}
		scores = append(scores, score)
	}

	slices.SortFunc(scores, compareScores)
	return scores
}

// distinct copies candidates, keeping the first occurrence of each id and
// dropping documents with nothing to embed.
func (s *Scorer) distinct(candidates []Candidate) []Candidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Document.ID == "" {
			s.logger.Warn("skipping document without id", "title", c.Document.Title)
			continue
		}
		if _, dup := seen[c.Document.ID]; dup {
			continue
		}
		seen[c.Document.ID] = struct{}{}
		if strings.TrimSpace(c.Document.Title) == "" && strings.TrimSpace(c.Document.Abstract) == "" {
			s.logger.Warn("skipping document without title or abstract", "id", c.Document.ID)
			continue
		}
		c.Document.Embedding = nil
		out = append(out, c)
	}
	return out
}

// embed tries one batched call, then falls back to one call per document.
// A nil entry marks a document that could not be embedded.
func (s *Scorer) embed(ctx context.Context, docs []Candidate) [][]float32 {
	texts := make([]string, len(docs))
	for i := range docs {
		texts[i] = docs[i].Document.Text()
	}

	vecs, err := s.embedder.EmbedTexts(ctx, texts)
	if err == nil && len(vecs) == len(texts) {
		for i, v := range vecs {
			if len(v) == 0 {
				vecs[i] = nil
				s.logger.Warn("skipping document with empty embedding", "id", docs[i].Document.ID)
			}
		}
		return vecs
	}
	if err == nil {
		err = fmt.Errorf("%w: got %d for %d documents", ai.ErrEmbeddingCount, len(vecs), len(texts))
	}
	if ctx.Err() != nil {
		return make([][]float32, len(docs))
	}
	s.logger.Warn("batch document embedding failed, embedding one at a time", "count", len(texts), "err", err)

	vecs = make([][]float32, len(texts))
	for i, text := range texts {
		if ctx.Err() != nil {
			break
		}
		v, err := s.embedder.EmbedText(ctx, text)
		if err != nil || len(v) == 0 {
			s.logger.Warn("skipping document that failed to embed", "id", docs[i].Document.ID, "err", err)
			continue
		}
		vecs[i] = v
	}
	return vecs
}

// compareScores orders by relevance desc, newer publication first, then id.
func compareScores(a, b core.DocumentScore) int {
	if c := cmp.Compare(b.Relevance, a.Relevance); c != 0 {
		return c
	}
	if c := b.Document.PublishedAt.Compare(a.Document.PublishedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.DocumentID, b.DocumentID)
}
