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

// Package match ranks taxonomy categories against an item's text.
package match

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/poiesic/convergence/ai"
	"github.com/poiesic/convergence/core"
	"github.com/poiesic/convergence/vector"
)

var (
	// ErrEmbedderRequired indicates a nil embedder.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrSnapshotRequired indicates Analyze was called without a snapshot.
	ErrSnapshotRequired = errors.New("taxonomy snapshot is required")
)

// Analysis is the matcher output for one item.
type Analysis struct {
	// ItemEmbedding is reused for document relevance. Nil when the item
	// could not be embedded.
	ItemEmbedding []float32
	Matches       []core.CategoryMatch
	// Degraded is set when matches come from hints alone.
	Degraded bool
}

// Matcher embeds an item once and ranks categories by boosted similarity.
type Matcher struct {
	embedder ai.Embedder
	config   *Config
	logger   *slog.Logger
}

// Option configures a Matcher.
type Option func(*Matcher) error

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) error {
		if logger != nil {
			m.logger = logger
		}
		return nil
	}
}

// NewMatcher creates a matcher. A nil cfg uses DefaultConfig.
func NewMatcher(embedder ai.Embedder, cfg *Config, opts ...Option) (*Matcher, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Matcher{
		embedder: embedder,
		config:   cfg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	m.logger = m.logger.With("component", "matcher")
	return m, nil
}

// Config returns the matcher's thresholds.
func (m *Matcher) Config() Config {
	return *m.config
}

// Analyze embeds text and ranks the snapshot's categories. When the snapshot
// is degraded or the item cannot be embedded, matches fall back to the hints.
// The only errors returned are a missing snapshot and context cancellation.
func (m *Matcher) Analyze(ctx context.Context, snapshot *core.Snapshot, text string, hints []string) (*Analysis, error) {
	if snapshot == nil {
		return nil, ErrSnapshotRequired
	}

	known := m.knownHints(snapshot, hints)

	embedding, err := m.embedder.EmbedText(ctx, text)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		m.logger.Warn("item embedding failed, matching on hints only", "err", err)
		return &Analysis{
			Matches:  HintMatches(snapshot, known, m.config.HintBoost),
			Degraded: true,
		}, nil
	}

	if snapshot.Degraded {
		return &Analysis{
			ItemEmbedding: embedding,
			Matches:       HintMatches(snapshot, known, m.config.HintBoost),
			Degraded:      true,
		}, nil
	}

	return &Analysis{
		ItemEmbedding: embedding,
		Matches:       Rank(snapshot, embedding, known, m.config),
	}, nil
}

// knownHints drops hint codes that are not in the taxonomy.
func (m *Matcher) knownHints(snapshot *core.Snapshot, hints []string) []string {
	known := make([]string, 0, len(hints))
	for _, h := range hints {
		if _, ok := snapshot.Lookup(h); !ok {
			m.logger.Debug("ignoring unknown hint category", "code", h)
			continue
		}
		if !slices.Contains(known, h) {
			known = append(known, h)
		}
	}
	return known
}

// Rank scores every embedded category against embedding and returns the
// top matches. It is a pure function of its inputs.
func Rank(snapshot *core.Snapshot, embedding []float32, hints []string, cfg *Config) []core.CategoryMatch {
	ranked := make([]core.CategoryMatch, 0, len(snapshot.Categories))
	for i := range snapshot.Categories {
		c := &snapshot.Categories[i]
		if len(c.Embedding) == 0 {
			continue
		}
		raw := vector.Similarity(embedding, c.Embedding)
		boosted := raw
		hinted := slices.Contains(hints, c.Code)
		if hinted {
			boosted = min(raw+cfg.HintBoost, 1.0)
		}
		m, err := core.NewCategoryMatch(c.Code, c.Name, raw, boosted, hinted)
		if err != nil {
			slog.Warn("dropping invalid category match", "category", c.Code, "error", err)
			continue
		}
		ranked = append(ranked, m)
	}

	slices.SortFunc(ranked, compareMatches)

	kept := make([]core.CategoryMatch, 0, len(ranked))
	for _, r := range ranked {
		if r.BoostedSimilarity >= cfg.MinSimilarity {
			kept = append(kept, r)
		}
	}
	// Never starve retrieval: fall back to the best regardless of the floor.
	if len(kept) == 0 {
		kept = ranked
	}
	if len(kept) > cfg.TopN {
		kept = kept[:cfg.TopN]
	}
	return slices.Clip(kept)
}

// compareMatches orders by boosted desc, raw desc, then code asc.
func compareMatches(a, b core.CategoryMatch) int {
	if c := cmp.Compare(b.BoostedSimilarity, a.BoostedSimilarity); c != 0 {
		return c
	}
	if c := cmp.Compare(b.RawSimilarity, a.RawSimilarity); c != 0 {
		return c
	}
	return cmp.Compare(a.CategoryCode, b.CategoryCode)
}

// HintMatches is the degraded-mode result: the hinted categories in hint
// order, each scored at the boost value.
func HintMatches(snapshot *core.Snapshot, hints []string, boost float64) []core.CategoryMatch {
	matches := make([]core.CategoryMatch, 0, len(hints))
	for _, h := range hints {
		c, ok := snapshot.Lookup(h)
		if !ok {
			continue
		}
		m, err := core.NewCategoryMatch(c.Code, c.Name, 0, boost, true)
		if err != nil {
			slog.Warn("dropping invalid hint match", "category", c.Code, "error", err)
			continue
		}
		matches = append(matches, m)
	}
	return matches
}
