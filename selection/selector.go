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


// Package selection evaluates a batch of candidate items concurrently and
// picks the one whose topic converges best with current research.
package selection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/convergence/ai"
	"github.com/poiesic/convergence/core"
	"github.com/poiesic/convergence/match"
	"github.com/poiesic/convergence/relevance"
	"github.com/poiesic/convergence/retrieval"
	"github.com/poiesic/convergence/scoring"
	"github.com/poiesic/convergence/storage"
)

// SnapshotSource supplies the taxonomy snapshot for a run.
// *taxonomy.Store satisfies it.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*core.Snapshot, error)
}

// Outcome is the result of one Select call.
type Outcome struct {
	RunID string
	// Best is the highest combined score; the earliest item wins ties.
	Best *core.ConvergenceResult
	// Results holds one entry per input item, in input order.
	Results []*core.ConvergenceResult
	// Degraded is set when the taxonomy snapshot had no embeddings.
	Degraded bool
}

// Selector runs the per-item pipeline on a bounded worker pool.
type Selector struct {
	snapshots SnapshotSource
	matcher   *match.Matcher
	extractor ai.KeywordExtractor
	retriever retrieval.Retriever
	relevance *relevance.Scorer
	scorer    *scoring.Scorer
	config    *Config
	audit     storage.AuditRepository
	monitor   Monitor
	pool      *ants.Pool
	logger    *slog.Logger
	now       func() time.Time
	newRunID  func() string
}

// Option configures a Selector.
type Option func(*Selector) error

// WithKeywordExtractor sets the keyword extractor.
// Defaults to the heuristic extractor.
func WithKeywordExtractor(extractor ai.KeywordExtractor) Option {
	return func(s *Selector) error {
		if extractor != nil {
			s.extractor = extractor
		}
		return nil
	}
}

// WithAuditRepository records every run. Without one nothing is recorded.
func WithAuditRepository(repo storage.AuditRepository) Option {
	return func(s *Selector) error {
		s.audit = repo
		return nil
	}
}

// WithMonitor sets the monitor for observing runs.
func WithMonitor(monitor Monitor) Option {
	return func(s *Selector) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		s.monitor = monitor
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Selector) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "selector")
		return nil
	}
}

// WithPoolSize replaces the worker pool, overriding Config.Concurrency.
func WithPoolSize(size int) Option {
	return func(s *Selector) error {
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if s.pool != nil {
			s.pool.Release()
		}
		s.pool = pool
		return nil
	}
}

// WithClock sets the time source used for audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Selector) error {
		if now != nil {
			s.now = now
		}
		return nil
	}
}

// WithRunIDGenerator replaces the random run id generator.
func WithRunIDGenerator(gen func() string) Option {
	return func(s *Selector) error {
		if gen != nil {
			s.newRunID = gen
		}
		return nil
	}
}

// NewSelector wires the pipeline stages together. Release must be called
// when the selector is no longer needed.
func NewSelector(snapshots SnapshotSource, matcher *match.Matcher, retriever retrieval.Retriever,
	rel *relevance.Scorer, scorer *scoring.Scorer, cfg *Config, opts ...Option) (*Selector, error) {
	switch {
	case snapshots == nil:
		return nil, ErrSnapshotSourceRequired
	case matcher == nil:
		return nil, ErrMatcherRequired
	case retriever == nil:
		return nil, ErrRetrieverRequired
	case rel == nil:
		return nil, ErrRelevanceScorerRequired
	case scorer == nil:
		return nil, ErrScorerRequired
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if mt, st := matcher.Config().TopN, scorer.Weights().TopN; mt != st {
		return nil, fmt.Errorf("%w: matcher %d, scorer %d", ErrTopNMismatch, mt, st)
	}

	pool, err := ants.NewPool(cfg.Concurrency)
	if err != nil {
		return nil, err
	}
	configCopy := *cfg
	s := &Selector{
		snapshots: snapshots,
		matcher:   matcher,
		extractor: ai.HeuristicExtractor{},
		retriever: retriever,
		relevance: rel,
		scorer:    scorer,
		config:    &configCopy,
		monitor:   &noopMonitor{},
		pool:      pool,
		logger:    slog.Default().With("component", "selector"),
		now:       time.Now,
		newRunID:  uuid.NewString,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			s.pool.Release()
			return nil, err
		}
	}
	return s, nil
}

// Release stops the worker pool.
func (s *Selector) Release() {
	s.pool.Release()
}

// Select evaluates every item and returns the best one. Each item has its
// own deadline; an item that misses it is reported as cancelled and the
// rest of the batch is unaffected. The taxonomy snapshot is fetched once
// and shared by all items.
func (s *Selector) Select(ctx context.Context, items []*core.CandidateItem) (*Outcome, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	for i, item := range items {
		if err := core.ValidateCandidateItem(item); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}

	runID := s.newRunID()
	startedAt := s.now()
	logger := s.logger.With("run", runID)
	s.monitor.Start(runID, len(items))
	var outcome *Outcome
	defer func() { s.monitor.Finish(outcome) }()

	snapshot, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading taxonomy: %w", err)
	}
	if snapshot.Degraded {
		logger.Warn("taxonomy is degraded, matching on hints only")
	}

	results := make([]*core.ConvergenceResult, len(items))
	var wg sync.WaitGroup
	var submitErr error
	for i, item := range items {
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			results[i] = s.evaluate(ctx, snapshot, i, item)
		})
		if err != nil {
			wg.Done()
			submitErr = fmt.Errorf("submitting item %d: %w", i, err)
			break
		}
	}
	wg.Wait()
	if submitErr != nil {
		return nil, submitErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outcome = &Outcome{
		RunID:    runID,
		Best:     best(results),
		Results:  results,
		Degraded: snapshot.Degraded,
	}
	logger.Info("batch evaluated",
		"items", len(items),
		"best_index", outcome.Best.ItemIndex,
		"combined", outcome.Best.CombinedScore,
		"has_document", outcome.Best.HasDocument())

	s.record(ctx, logger, outcome, snapshot, startedAt)
	return outcome, nil
}

// best returns the strict maximum by combined score, so the earliest item
// wins ties.
func best(results []*core.ConvergenceResult) *core.ConvergenceResult {
	var top *core.ConvergenceResult
	for _, r := range results {
		if top == nil || r.CombinedScore > top.CombinedScore {
			top = r
		}
	}
	return top
}

// progress is what an item has produced so far. A cancelled item is scored
// from it. Once abandoned, the item's goroutine no longer reports to the
// monitor.
type progress struct {
	mu           sync.Mutex
	bestCategory float64
	degraded     bool
	abandoned    bool
}

func (p *progress) matched(matches []core.CategoryMatch, degraded bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.abandoned {
		return
	}
	for _, m := range matches {
		p.bestCategory = max(p.bestCategory, m.BoostedSimilarity)
	}
	p.degraded = degraded
}

// notify runs hook unless the item has been abandoned. The lock is held
// for the call so abandon waits for a hook already in flight.
func (p *progress) notify(hook func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.abandoned {
		hook()
	}
}

func (p *progress) abandon() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.abandoned = true
}

func (p *progress) read() (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bestCategory, p.degraded
}

type pipelineResult struct {
	result *core.ConvergenceResult
	err    error
}

// evaluate runs the pipeline for one item under its deadline. The worker
// returns as soon as the deadline passes even if a collaborator ignores
// cancellation; the abandoned goroutine exits once that call returns.
func (s *Selector) evaluate(ctx context.Context, snapshot *core.Snapshot, index int, item *core.CandidateItem) *core.ConvergenceResult {
	itemCtx, cancel := context.WithTimeout(ctx, s.config.ItemTimeout)
	defer cancel()

	prog := &progress{degraded: snapshot.Degraded}
	done := make(chan pipelineResult, 1)
	go func() {
		r, err := s.run(itemCtx, snapshot, index, item, prog)
		done <- pipelineResult{result: r, err: err}
	}()

	var err error
	select {
	case pr := <-done:
		if pr.err == nil {
			s.monitor.ItemScored(pr.result)
			return pr.result
		}
		err = pr.err
	case <-itemCtx.Done():
		err = itemCtx.Err()
	}

	prog.abandon()
	s.logger.Warn("item evaluation cancelled", "index", index, "title", item.Title, "error", err)
	s.monitor.ItemCancelled(index, err)
	return s.cancelled(index, item, prog)
}

func (s *Selector) cancelled(index int, item *core.CandidateItem, prog *progress) *core.ConvergenceResult {
	bestCategory, degraded := prog.read()
	convergence := s.scorer.Convergence(bestCategory, 0, 0)
	return &core.ConvergenceResult{
		Item:                   item,
		ItemIndex:              index,
		TopCategoryMatches:     []core.CategoryMatch{},
		ScoredDocuments:        []core.DocumentScore{},
		BestCategorySimilarity: bestCategory,
		ConvergenceScore:       convergence,
		CombinedScore:          s.scorer.Combined(item.ImpactScore, convergence),
		Degraded:               degraded,
		Cancelled:              true,
	}
}

// run is the item pipeline: match, extract keywords, retrieve per matched
// category, score relevance, then combine. It only fails when ctx is done.
func (s *Selector) run(ctx context.Context, snapshot *core.Snapshot, index int, item *core.CandidateItem, prog *progress) (*core.ConvergenceResult, error) {
	analysis, err := s.matcher.Analyze(ctx, snapshot, item.Text(), item.HintCategories)
	if err != nil {
		return nil, err
	}
	degraded := snapshot.Degraded || analysis.Degraded
	prog.matched(analysis.Matches, degraded)
	prog.notify(func() { s.monitor.AfterMatch(index, analysis.Matches, degraded) })

	var candidates []relevance.Candidate
	if len(analysis.Matches) > 0 {
		keywords := s.keywords(ctx, index, item)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		prog.notify(func() { s.monitor.AfterKeywords(index, keywords) })

		for _, m := range analysis.Matches {
			docs, err := s.retriever.Search(ctx, retrieval.Query{
				CategoryCode:  m.CategoryCode,
				Keywords:      keywords,
				MaxResults:    s.config.MaxResults,
				RecencyWindow: s.config.RecencyWindow,
			})
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if err != nil {
				s.logger.Warn("document search failed, continuing without it",
					"index", index, "category", m.CategoryCode, "error", err)
				docs = nil
			}
			prog.notify(func() { s.monitor.AfterRetrieval(index, m.CategoryCode, len(docs)) })
			for _, d := range docs {
				candidates = append(candidates, relevance.Candidate{Document: d, CategoryCode: m.CategoryCode})
			}
		}
	}

	scores := s.relevance.Score(ctx, analysis.ItemEmbedding, candidates)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prog.notify(func() { s.monitor.AfterRelevance(index, scores) })

	b := s.scorer.Score(analysis.Matches, scores, item.ImpactScore)
	return &core.ConvergenceResult{
		Item:                   item,
		ItemIndex:              index,
		TopCategoryMatches:     analysis.Matches,
		ScoredDocuments:        scores,
		BestCategorySimilarity: b.BestCategorySimilarity,
		BestDocumentRelevance:  b.BestDocumentRelevance,
		CategoryDiversity:      b.CategoryDiversity,
		ConvergenceScore:       b.ConvergenceScore,
		CombinedScore:          b.CombinedScore,
		BestDocument:           b.BestDocument,
		Degraded:               degraded,
	}, nil
}

// keywords falls back to the heuristic when the extractor fails.
func (s *Selector) keywords(ctx context.Context, index int, item *core.CandidateItem) []string {
	keywords, err := s.extractor.ExtractKeywords(ctx, item.Title, item.Summary, s.config.MaxKeywords)
	if err == nil && len(keywords) > 0 {
		return keywords
	}
	if err != nil && ctx.Err() == nil {
		s.logger.Warn("keyword extraction failed, using heuristic", "index", index, "error", err)
	}
	return ai.HeuristicKeywords(item.Title+" "+item.Summary, s.config.MaxKeywords)
}

// record writes the audit trail. Failures never affect the outcome.
func (s *Selector) record(ctx context.Context, logger *slog.Logger, outcome *Outcome, snapshot *core.Snapshot, startedAt time.Time) {
	if s.audit == nil {
		return
	}
	w := s.scorer.Weights()
	mc := s.matcher.Config()
	rc := s.relevance.Config()
	rec := &core.AuditRecord{
		RunID:       outcome.RunID,
		StartedAt:   startedAt.UTC(),
		FinishedAt:  s.now().UTC(),
		SnapshotKey: snapshot.Key,
		Degraded:    outcome.Degraded,
		Weights: core.AuditWeights{
			Category:    w.Category,
			Relevance:   w.Relevance,
			Diversity:   w.Diversity,
			Impact:      w.Impact,
			ImpactScale: w.ImpactScale,
		},
		Thresholds: core.AuditLimits{
			TopN:          mc.TopN,
			HintBoost:     mc.HintBoost,
			MinSimilarity: mc.MinSimilarity,
			MinRelevance:  rc.MinRelevance,
		},
		Items:          make([]core.AuditItem, 0, len(outcome.Results)),
		SelectedIndex:  outcome.Best.ItemIndex,
		SelectedItemID: outcome.Best.Item.ID,
	}
	for _, r := range outcome.Results {
		rec.Items = append(rec.Items, core.NewAuditItem(r))
	}
	if err := s.audit.AppendAudit(ctx, rec); err != nil {
		logger.Warn("failed to write audit record", "error", err)
	}
}
