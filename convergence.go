// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package convergence wires the taxonomy store, matcher, retriever and
// scorers into an Engine that picks the best item of a batch.
package convergence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/convergence/ai"
	"github.com/poiesic/convergence/ai/local"
	"github.com/poiesic/convergence/ai/openai"
	"github.com/poiesic/convergence/config"
	"github.com/poiesic/convergence/core"
	"github.com/poiesic/convergence/match"
	"github.com/poiesic/convergence/relevance"
	"github.com/poiesic/convergence/retrieval"
	"github.com/poiesic/convergence/retrieval/arxiv"
	"github.com/poiesic/convergence/scoring"
	"github.com/poiesic/convergence/selection"
	"github.com/poiesic/convergence/storage"
	"github.com/poiesic/convergence/storage/badger"
	"github.com/poiesic/convergence/taxonomy"
)

// Engine owns the storage, the AI provider and the scoring components for
// one configuration. It is safe for concurrent Select calls.
type Engine struct {
	config    *config.Config
	backend   *badger.Backend
	snapshots storage.SnapshotRepository
	audits    storage.AuditRepository
	provider  ai.AIProvider
	store     *taxonomy.Store
	matcher   *match.Matcher
	relevance *relevance.Scorer
	scorer    *scoring.Scorer
	retriever retrieval.Retriever
	base      *slog.Logger
	logger    *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	provider   ai.AIProvider
	retriever  retrieval.Retriever
	categories []core.Category
	version    string
	clock      taxonomy.Clock
	logger     *slog.Logger
}

// WithProvider supplies the AI provider instead of building one from the
// config. The engine takes ownership and closes it.
func WithProvider(p ai.AIProvider) EngineOption {
	return func(o *engineOptions) {
		o.provider = p
	}
}

// WithRetriever replaces the arXiv client. The retry policy is still applied.
func WithRetriever(r retrieval.Retriever) EngineOption {
	return func(o *engineOptions) {
		o.retriever = r
	}
}

// WithTaxonomy replaces the default arXiv taxonomy.
func WithTaxonomy(version string, categories []core.Category) EngineOption {
	return func(o *engineOptions) {
		o.version = version
		o.categories = categories
	}
}

// WithClock sets the clock used for snapshot staleness.
func WithClock(c taxonomy.Clock) EngineOption {
	return func(o *engineOptions) {
		o.clock = c
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// NewEngine validates cfg, opens storage and builds every component. A nil
// cfg means config.Default. Anything opened before a failure is closed.
func NewEngine(cfg *config.Config, opts ...EngineOption) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	options := &engineOptions{
		categories: taxonomy.Default(),
		version:    taxonomy.DefaultVersion,
		clock:      taxonomy.SystemClock{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger

	e := &Engine{config: cfg, base: logger, logger: logger.With("component", "engine")}
	ok := false
	defer func() {
		if !ok {
			e.Close()
		}
	}()

	var err error
	e.backend, err = badger.OpenBackend(cfg.Storage.Path, cfg.Storage.InMemory)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	if e.snapshots, err = badger.NewSnapshotRepository(e.backend); err != nil {
		return nil, err
	}
	if e.audits, err = badger.NewAuditRepository(e.backend); err != nil {
		return nil, err
	}

	e.provider = options.provider
	if e.provider == nil {
		if e.provider, err = newProvider(cfg.AIConfig()); err != nil {
			return nil, fmt.Errorf("creating AI provider: %w", err)
		}
	}

	policy := cfg.RetryPolicy()
	embedder, err := ai.NewRetryingEmbedder(e.provider.Embedder(), policy, logger)
	if err != nil {
		return nil, err
	}

	e.store, err = taxonomy.NewStore(options.categories, embedder, e.snapshots, cfg.TaxonomyConfig(),
		taxonomy.WithModelID(e.provider.ModelID()),
		taxonomy.WithVersion(options.version),
		taxonomy.WithClock(options.clock),
		taxonomy.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	if e.matcher, err = match.NewMatcher(embedder, cfg.MatchConfig(), match.WithLogger(logger)); err != nil {
		return nil, err
	}
	if e.relevance, err = relevance.NewScorer(embedder, cfg.RelevanceConfig(), relevance.WithLogger(logger)); err != nil {
		return nil, err
	}
	if e.scorer, err = scoring.NewScorer(cfg.Weights()); err != nil {
		return nil, err
	}

	inner := options.retriever
	if inner == nil {
		inner, err = arxiv.NewClient(
			arxiv.WithBaseURL(cfg.Retrieval.BaseURL),
			arxiv.WithTimeout(cfg.Retrieval.Timeout),
			arxiv.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
	}
	if e.retriever, err = retrieval.NewRetryingRetriever(inner, policy, logger); err != nil {
		return nil, err
	}

	ok = true
	return e, nil
}

func newProvider(cfg *ai.Config) (ai.AIProvider, error) {
	if cfg.Provider == ai.ProviderLocal {
		return local.NewProvider(cfg)
	}
	return openai.NewProvider(cfg)
}

// Close releases the provider, the repositories and the storage backend.
// It is safe on a partially constructed Engine.
func (e *Engine) Close() error {
	var errs []error
	if e.provider != nil {
		if err := e.provider.Close(); err != nil {
			e.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if e.audits != nil {
		if err := e.audits.Close(); err != nil {
			e.logger.Error("error closing audit repository", "err", err)
			errs = append(errs, err)
		}
	}
	if e.snapshots != nil {
		if err := e.snapshots.Close(); err != nil {
			e.logger.Error("error closing snapshot repository", "err", err)
			errs = append(errs, err)
		}
	}
	if e.backend != nil {
		if err := e.backend.Close(); err != nil {
			e.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() *config.Config {
	return e.config
}

// Taxonomy returns the category store.
func (e *Engine) Taxonomy() *taxonomy.Store {
	return e.store
}

// AuditRepository returns the audit log, whether or not auditing is enabled.
func (e *Engine) AuditRepository() storage.AuditRepository {
	return e.audits
}

// NewSelector builds a batch selector over the engine's components. The
// caller must Release it. opts are applied after the engine's defaults.
func (e *Engine) NewSelector(opts ...selection.Option) (*selection.Selector, error) {
	base := []selection.Option{
		selection.WithKeywordExtractor(e.provider.KeywordExtractor()),
		selection.WithLogger(e.base),
	}
	if e.config.Audit.Enabled {
		base = append(base, selection.WithAuditRepository(e.audits))
	}
	return selection.NewSelector(e.store, e.matcher, e.retriever, e.relevance, e.scorer,
		e.config.SelectionConfig(), append(base, opts...)...)
}

// Select evaluates one batch with a short-lived selector.
func (e *Engine) Select(ctx context.Context, items []*core.CandidateItem, opts ...selection.Option) (*selection.Outcome, error) {
	sel, err := e.NewSelector(opts...)
	if err != nil {
		return nil, err
	}
	defer sel.Release()
	return sel.Select(ctx, items)
}

// Refresh recomputes and persists the taxonomy embeddings.
func (e *Engine) Refresh(ctx context.Context) (*core.Snapshot, error) {
	return e.store.Refresh(ctx)
}

// Audits returns up to limit audit records, newest first.
func (e *Engine) Audits(ctx context.Context, limit int) ([]*core.AuditRecord, error) {
	return e.audits.ListAudits(ctx, limit)
}
