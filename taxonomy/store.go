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

package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/poiesic/convergence/ai"
	"github.com/poiesic/convergence/core"
	"github.com/poiesic/convergence/storage"
)

// Store owns the taxonomy and its category embeddings.
//
// Readers get an immutable *core.Snapshot without locking. A single writer
// rebuilds the snapshot under mu and swaps it in atomically, so a batch that
// already holds a snapshot never sees a partial update.
type Store struct {
	categories []core.Category
	embedder   ai.Embedder
	repo       storage.SnapshotRepository
	config     *Config
	clock      Clock
	modelID    string
	version    string
	key        string
	logger     *slog.Logger

	mu      sync.Mutex
	current atomic.Pointer[core.Snapshot]
	loaded  bool
	corrupt atomic.Bool
}

// Option configures a Store.
type Option func(*Store) error

// WithClock replaces the wall clock used for staleness checks.
func WithClock(clock Clock) Option {
	return func(s *Store) error {
		if clock == nil {
			return errors.New("clock is nil")
		}
		s.clock = clock
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// WithModelID records the embedding model identity. It is part of the cache
// key, so switching models never reuses old vectors.
func WithModelID(modelID string) Option {
	return func(s *Store) error {
		s.modelID = modelID
		return nil
	}
}

// WithVersion overrides the taxonomy version recorded in the cache key.
func WithVersion(version string) Option {
	return func(s *Store) error {
		s.version = version
		return nil
	}
}

// NewStore creates a store for categories. repo may be nil, in which case
// embeddings live in memory only. A nil cfg uses DefaultConfig.
func NewStore(categories []core.Category, embedder ai.Embedder, repo storage.SnapshotRepository, cfg *Config, opts ...Option) (*Store, error) {
	if len(categories) == 0 {
		return nil, ErrEmptyTaxonomy
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	owned := make([]core.Category, 0, len(categories))
	seen := make(map[string]struct{}, len(categories))
	for i := range categories {
		c := categories[i]
		if err := core.ValidateCategory(&c); err != nil {
			return nil, err
		}
		if _, dup := seen[c.Code]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCategory, c.Code)
		}
		seen[c.Code] = struct{}{}
		c.Embedding = nil
		owned = append(owned, c)
	}

	s := &Store{
		categories: owned,
		embedder:   embedder,
		repo:       repo,
		config:     cfg,
		clock:      SystemClock{},
		version:    DefaultVersion,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "taxonomy")
	s.key = CacheKey(s.version, s.modelID, s.categories)
	return s, nil
}

// CacheKey fingerprints everything the category embeddings depend on.
// Category order does not affect the key.
func CacheKey(version, modelID string, categories []core.Category) string {
	tuples := make([]string, len(categories))
	for i, c := range categories {
		tuples[i] = c.Code + "|" + c.Name + "|" + c.Description
	}
	slices.Sort(tuples)
	return core.Fingerprint(version, modelID, strings.Join(tuples, "\n"))
}

// Key returns the cache key of this store.
func (s *Store) Key() string {
	return s.key
}

// Categories returns a copy of the configured categories without embeddings.
func (s *Store) Categories() []core.Category {
	return slices.Clone(s.categories)
}

// Snapshot returns the current snapshot, loading or recomputing it when
// missing or stale. A failed recompute yields a degraded snapshot rather
// than an error. A corrupt persisted snapshot yields ErrCorruptCache.
func (s *Store) Snapshot(ctx context.Context) (*core.Snapshot, error) {
	if s.corrupt.Load() {
		return nil, ErrCorruptCache
	}
	if snap := s.current.Load(); snap != nil && s.fresh(snap) {
		return snap, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.corrupt.Load() {
		return nil, ErrCorruptCache
	}
	if snap := s.current.Load(); snap != nil && s.fresh(snap) {
		return snap, nil
	}

	if !s.loaded && s.repo != nil {
		snap, err := s.load(ctx)
		if err != nil {
			return nil, err
		}
		s.loaded = true
		if snap != nil && s.fresh(snap) {
			s.logger.Info("loaded taxonomy snapshot", "key", s.key, "refreshed_at", snap.RefreshedAt)
			s.current.Store(snap)
			return snap, nil
		}
	}

	snap, err := s.rebuild(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("category embeddings unavailable, serving degraded taxonomy", "err", err)
		snap = s.degraded()
		s.current.Store(snap)
		return snap, nil
	}

	if err := s.persist(ctx, snap); err != nil {
		s.logger.Warn("failed to persist taxonomy snapshot", "key", s.key, "err", err)
	}
	s.current.Store(snap)
	return snap, nil
}

// Refresh recomputes every category embedding and persists the result,
// regardless of the cached snapshot's age. It is the only way out of
// ErrCorruptCache. On failure the previous state is kept.
func (s *Store) Refresh(ctx context.Context) (*core.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.rebuild(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	if err := s.persist(ctx, snap); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	s.current.Store(snap)
	s.loaded = true
	if s.corrupt.Swap(false) {
		s.logger.Info("taxonomy cache repaired", "key", s.key)
	}
	s.logger.Info("taxonomy refreshed", "key", s.key, "categories", len(snap.Categories))
	return snap, nil
}

// fresh reports whether snap can be served. Degraded snapshots never are.
func (s *Store) fresh(snap *core.Snapshot) bool {
	if snap.Degraded {
		return false
	}
	return s.clock.Now().Sub(snap.RefreshedAt) <= s.config.TTL
}

// load reads and verifies the persisted snapshot. Returns nil, nil when
// nothing is stored. Marks the store corrupt when verification fails.
func (s *Store) load(ctx context.Context) (*core.Snapshot, error) {
	snap, err := s.repo.LoadSnapshot(ctx, s.key)
	if err != nil {
		if errors.Is(err, storage.ErrCorruptSnapshot) {
			return nil, s.markCorrupt(err)
		}
		return nil, fmt.Errorf("loading taxonomy snapshot: %w", err)
	}
	if snap == nil {
		s.logger.Debug("no persisted taxonomy snapshot", "key", s.key)
		return nil, nil
	}
	if err := s.verify(snap); err != nil {
		return nil, s.markCorrupt(err)
	}
	return snap, nil
}

func (s *Store) markCorrupt(cause error) error {
	s.corrupt.Store(true)
	s.logger.Error("taxonomy cache is corrupt, refresh required", "key", s.key, "err", cause)
	return fmt.Errorf("%w: %w", ErrCorruptCache, cause)
}

// verify checks a persisted snapshot against the configured taxonomy.
func (s *Store) verify(snap *core.Snapshot) error {
	if snap.Degraded {
		return errors.New("persisted snapshot is degraded")
	}
	if snap.ModelID != s.modelID || snap.TaxonomyVersion != s.version {
		return fmt.Errorf("snapshot identity %s/%s does not match %s/%s", snap.ModelID, snap.TaxonomyVersion, s.modelID, s.version)
	}
	if len(snap.Categories) != len(s.categories) {
		return fmt.Errorf("snapshot has %d categories, want %d", len(snap.Categories), len(s.categories))
	}
	dims := 0
	for i, c := range snap.Categories {
		want := s.categories[i]
		if c.Code != want.Code || c.Name != want.Name || c.Description != want.Description {
			return fmt.Errorf("category %d is %s, want %s", i, c.Code, want.Code)
		}
		if len(c.Embedding) == 0 {
			return fmt.Errorf("category %s has no embedding", c.Code)
		}
		if dims == 0 {
			dims = len(c.Embedding)
		}
		if len(c.Embedding) != dims {
			return fmt.Errorf("category %s has %d dimensions, want %d", c.Code, len(c.Embedding), dims)
		}
	}
	return nil
}

// rebuild embeds every category with one batched call.
func (s *Store) rebuild(ctx context.Context) (*core.Snapshot, error) {
	texts := make([]string, len(s.categories))
	for i := range s.categories {
		texts[i] = s.categories[i].EmbeddingText()
	}

	s.logger.Debug("embedding taxonomy categories", "count", len(texts))
	vecs, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: got %d for %d categories", ai.ErrEmbeddingCount, len(vecs), len(texts))
	}

	categories := make([]core.Category, len(s.categories))
	dims := len(vecs[0])
	for i, c := range s.categories {
		if len(vecs[i]) == 0 || len(vecs[i]) != dims {
			return nil, fmt.Errorf("category %s: embedding has %d dimensions, want %d", c.Code, len(vecs[i]), dims)
		}
		c.Embedding = vecs[i]
		categories[i] = c
	}

	return &core.Snapshot{
		Key:             s.key,
		ModelID:         s.modelID,
		TaxonomyVersion: s.version,
		Categories:      categories,
		RefreshedAt:     s.clock.Now(),
	}, nil
}

func (s *Store) degraded() *core.Snapshot {
	return &core.Snapshot{
		Key:             s.key,
		ModelID:         s.modelID,
		TaxonomyVersion: s.version,
		Categories:      slices.Clone(s.categories),
		RefreshedAt:     s.clock.Now(),
		Degraded:        true,
	}
}

func (s *Store) persist(ctx context.Context, snap *core.Snapshot) error {
	if s.repo == nil {
		return nil
	}
	return s.repo.SaveSnapshot(ctx, snap)
}
