package selection

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/convergence/ai/mock"
	"github.com/poiesic/convergence/core"
	"github.com/poiesic/convergence/match"
	"github.com/poiesic/convergence/relevance"
	"github.com/poiesic/convergence/retrieval"
	"github.com/poiesic/convergence/scoring"
	"github.com/poiesic/convergence/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	snapshot *core.Snapshot
	err      error
	calls    atomic.Int32
}

func (s *staticSource) Snapshot(_ context.Context) (*core.Snapshot, error) {
	s.calls.Add(1)
	return s.snapshot, s.err
}

func twoCategorySnapshot() *core.Snapshot {
	return &core.Snapshot{
		Key: "snap-1",
		Categories: []core.Category{
			{Code: "cs.AI", Name: "AI", Embedding: []float32{1, 0}},
			{Code: "q-fin.TR", Name: "Trading", Embedding: []float32{0, 1}},
		},
	}
}

type fixture struct {
	source   *staticSource
	embedder *mock.MockEmbedder
	matcher  *match.Matcher
	rel      *relevance.Scorer
	scorer   *scoring.Scorer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	emb := mock.NewMockEmbedder()
	emb.SetVector("alpha", []float32{1, 0})
	emb.SetVector("beta", []float32{0, 1})
	emb.SetVector("paper one\nabout agents", []float32{4, 3})
	emb.SetVector("paper two\nabout markets", []float32{3, 4})

	m, err := match.NewMatcher(emb, nil)
	require.NoError(t, err)
	rel, err := relevance.NewScorer(emb, nil)
	require.NoError(t, err)
	sc, err := scoring.NewScorer(scoring.DefaultWeights())
	require.NoError(t, err)
	return &fixture{
		source:   &staticSource{snapshot: twoCategorySnapshot()},
		embedder: emb,
		matcher:  m,
		rel:      rel,
		scorer:   sc,
	}
}

func (f *fixture) selector(t *testing.T, r retrieval.Retriever, cfg *Config, opts ...Option) *Selector {
	t.Helper()
	s, err := NewSelector(f.source, f.matcher, r, f.rel, f.scorer, cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(s.Release)
	return s
}

func item(t *testing.T, id, title string, impact float64, hints ...string) *core.CandidateItem {
	t.Helper()
	it, err := core.NewCandidateItem(id, title, "", hints, impact)
	require.NoError(t, err)
	return it
}

// agentsOnly returns one paper for cs.AI and nothing elsewhere.
var agentsOnly = retrieval.RetrieverFunc(func(_ context.Context, q retrieval.Query) ([]core.CandidateDocument, error) {
	if q.CategoryCode != "cs.AI" {
		return nil, nil
	}
	return []core.CandidateDocument{{ID: "p1", Title: "paper one", Abstract: "about agents"}}, nil
})

func TestNewSelector_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := NewSelector(nil, f.matcher, agentsOnly, f.rel, f.scorer, nil)
	assert.ErrorIs(t, err, ErrSnapshotSourceRequired)
	_, err = NewSelector(f.source, nil, agentsOnly, f.rel, f.scorer, nil)
	assert.ErrorIs(t, err, ErrMatcherRequired)
	_, err = NewSelector(f.source, f.matcher, nil, f.rel, f.scorer, nil)
	assert.ErrorIs(t, err, ErrRetrieverRequired)
	_, err = NewSelector(f.source, f.matcher, agentsOnly, nil, f.scorer, nil)
	assert.ErrorIs(t, err, ErrRelevanceScorerRequired)
	_, err = NewSelector(f.source, f.matcher, agentsOnly, f.rel, nil, nil)
	assert.ErrorIs(t, err, ErrScorerRequired)

	_, err = NewSelector(f.source, f.matcher, agentsOnly, f.rel, f.scorer, &Config{Concurrency: 0, ItemTimeout: time.Second, MaxKeywords: 5, MaxResults: 10})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	w := scoring.DefaultWeights()
	w.TopN = 5
	sc, err := scoring.NewScorer(w)
	require.NoError(t, err)
	_, err = NewSelector(f.source, f.matcher, agentsOnly, f.rel, sc, nil)
	assert.ErrorIs(t, err, ErrTopNMismatch)
}

func TestSelect_EmptyAndInvalidBatch(t *testing.T) {
	f := newFixture(t)
	s := f.selector(t, agentsOnly, nil)

	_, err := s.Select(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoItems)

	bad := &core.CandidateItem{Title: "alpha", ImpactScore: 0}
	_, err = s.Select(context.Background(), []*core.CandidateItem{item(t, "a", "alpha", 5), bad})
	assert.ErrorIs(t, err, core.ErrInvalidItem)
	assert.Equal(t, int32(0), f.source.calls.Load())
}

func TestSelect_PicksHighestCombined(t *testing.T) {
	f := newFixture(t)
	s := f.selector(t, agentsOnly, nil)

	items := []*core.CandidateItem{
		item(t, "b", "beta", 5),
		item(t, "a", "alpha", 5),
	}
	out, err := s.Select(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, out.Results, 2)
	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, int32(1), f.source.calls.Load())

	beta := out.Results[0]
	assert.Equal(t, 0, beta.ItemIndex)
	assert.False(t, beta.HasDocument())
	assert.InDelta(t, 0.4, beta.ConvergenceScore, 1e-6)
	assert.InDelta(t, 0.44, beta.CombinedScore, 1e-6)

	alpha := out.Results[1]
	assert.Equal(t, 1, alpha.ItemIndex)
	require.True(t, alpha.HasDocument())
	assert.Equal(t, "p1", alpha.BestDocument.DocumentID)
	assert.InDelta(t, 0.8, alpha.BestDocumentRelevance, 1e-6)
	assert.InDelta(t, 1.0/3.0, alpha.CategoryDiversity, 1e-6)
	assert.InDelta(t, 0.4+0.32+0.2/3.0, alpha.ConvergenceScore, 1e-6)

	assert.Same(t, alpha, out.Best)
	assert.False(t, out.Degraded)
}

func TestSelect_TieGoesToEarliest(t *testing.T) {
	f := newFixture(t)
	s := f.selector(t, retrieval.RetrieverFunc(func(context.Context, retrieval.Query) ([]core.CandidateDocument, error) {
		return nil, nil
	}), nil)

	out, err := s.Select(context.Background(), []*core.CandidateItem{
		item(t, "x", "alpha", 5),
		item(t, "y", "alpha", 5),
		item(t, "z", "alpha", 5),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Best.ItemIndex)
	assert.Equal(t, "x", out.Best.Item.ID)
}

func TestSelect_RetrieverErrorIsEmpty(t *testing.T) {
	f := newFixture(t)
	failing := retrieval.RetrieverFunc(func(context.Context, retrieval.Query) ([]core.CandidateDocument, error) {
		return nil, errors.New("search unavailable")
	})
	s := f.selector(t, failing, nil)

	out, err := s.Select(context.Background(), []*core.CandidateItem{item(t, "a", "alpha", 5)})
	require.NoError(t, err)
	r := out.Best
	assert.False(t, r.Cancelled)
	assert.False(t, r.HasDocument())
	assert.Empty(t, r.ScoredDocuments)
	assert.InDelta(t, 1.0, r.BestCategorySimilarity, 1e-6)
}

func TestSelect_ItemTimeoutDoesNotBlockBatch(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	// The q-fin.TR search ignores its context and hangs.
	stuck := retrieval.RetrieverFunc(func(ctx context.Context, q retrieval.Query) ([]core.CandidateDocument, error) {
		if q.CategoryCode == "q-fin.TR" {
			<-release
			return nil, nil
		}
		return agentsOnly(ctx, q)
	})
	cfg := DefaultConfig()
	cfg.ItemTimeout = 100 * time.Millisecond
	s := f.selector(t, stuck, cfg)

	start := time.Now()
	out, err := s.Select(context.Background(), []*core.CandidateItem{
		item(t, "b", "beta", 9),
		item(t, "a", "alpha", 5),
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	slow := out.Results[0]
	assert.True(t, slow.Cancelled)
	assert.Empty(t, slow.TopCategoryMatches)
	assert.Empty(t, slow.ScoredDocuments)
	assert.False(t, slow.HasDocument())
	assert.InDelta(t, 1.0, slow.BestCategorySimilarity, 1e-6)
	assert.InDelta(t, 0.4, slow.ConvergenceScore, 1e-6)
	assert.InDelta(t, 0.4*0.9+0.6*0.4, slow.CombinedScore, 1e-6)

	fast := out.Results[1]
	assert.False(t, fast.Cancelled)
	assert.True(t, fast.HasDocument())
}

func TestSelect_ParentCancellation(t *testing.T) {
	f := newFixture(t)
	blocking := retrieval.RetrieverFunc(func(ctx context.Context, _ retrieval.Query) ([]core.CandidateDocument, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	s := f.selector(t, blocking, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := s.Select(ctx, []*core.CandidateItem{item(t, "a", "alpha", 5)})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSelect_SnapshotError(t *testing.T) {
	f := newFixture(t)
	f.source.err = errors.New("boom")
	s := f.selector(t, agentsOnly, nil)

	_, err := s.Select(context.Background(), []*core.CandidateItem{item(t, "a", "alpha", 5)})
	assert.ErrorContains(t, err, "boom")
}

func TestSelect_DegradedSnapshotUsesHints(t *testing.T) {
	f := newFixture(t)
	f.source.snapshot = &core.Snapshot{
		Key:      "degraded",
		Degraded: true,
		Categories: []core.Category{
			{Code: "cs.AI", Name: "AI"},
			{Code: "q-fin.TR", Name: "Trading"},
		},
	}
	var searched []string
	var mu sync.Mutex
	r := retrieval.RetrieverFunc(func(_ context.Context, q retrieval.Query) ([]core.CandidateDocument, error) {
		mu.Lock()
		searched = append(searched, q.CategoryCode)
		mu.Unlock()
		return nil, nil
	})
	s := f.selector(t, r, nil)

	out, err := s.Select(context.Background(), []*core.CandidateItem{item(t, "a", "alpha", 5, "q-fin.TR", "bogus")})
	require.NoError(t, err)
	assert.True(t, out.Degraded)
	assert.True(t, out.Best.Degraded)
	require.Len(t, out.Best.TopCategoryMatches, 1)
	assert.Equal(t, "q-fin.TR", out.Best.TopCategoryMatches[0].CategoryCode)
	assert.Equal(t, []string{"q-fin.TR"}, searched)
}

func TestSelect_BoundedConcurrency(t *testing.T) {
	f := newFixture(t)
	var inFlight, peak atomic.Int32
	r := retrieval.RetrieverFunc(func(context.Context, retrieval.Query) ([]core.CandidateDocument, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return nil, nil
	})
	cfg := DefaultConfig()
	cfg.Concurrency = 2
	s := f.selector(t, r, cfg)

	items := make([]*core.CandidateItem, 6)
	for i := range items {
		items[i] = item(t, "", "alpha", 5)
	}
	out, err := s.Select(context.Background(), items)
	require.NoError(t, err)
	assert.Len(t, out.Results, 6)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestSelect_KeywordsReachRetriever(t *testing.T) {
	f := newFixture(t)
	var got []string
	r := retrieval.RetrieverFunc(func(_ context.Context, q retrieval.Query) ([]core.CandidateDocument, error) {
		got = q.Keywords
		assert.Equal(t, DefaultConfig().MaxResults, q.MaxResults)
		return nil, nil
	})
	ext := &mock.MockKeywordExtractor{
		ExtractKeywordsFunc: func(context.Context, string, string, int) ([]string, error) {
			return []string{"large language models"}, nil
		},
	}
	s := f.selector(t, r, nil, WithKeywordExtractor(ext))

	_, err := s.Select(context.Background(), []*core.CandidateItem{item(t, "a", "alpha", 5)})
	require.NoError(t, err)
	assert.Equal(t, []string{"large language models"}, got)
}

func TestSelect_WritesAudit(t *testing.T) {
	f := newFixture(t)
	_, audits, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := f.selector(t, agentsOnly, nil,
		WithAuditRepository(audits),
		WithRunIDGenerator(func() string { return "run-1" }),
		WithClock(func() time.Time { return fixed }),
	)

	_, err = s.Select(context.Background(), []*core.CandidateItem{
		item(t, "b", "beta", 5),
		item(t, "a", "alpha", 5),
	})
	require.NoError(t, err)

	recs, err := audits.ListAudits(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, "run-1", rec.RunID)
	assert.Equal(t, "snap-1", rec.SnapshotKey)
	assert.Equal(t, 1, rec.SelectedIndex)
	assert.Equal(t, "a", rec.SelectedItemID)
	assert.True(t, rec.StartedAt.Equal(fixed))
	assert.Equal(t, 0.4, rec.Weights.Category)
	assert.Equal(t, 0.15, rec.Thresholds.HintBoost)
	assert.Equal(t, 0.4, rec.Thresholds.MinRelevance)
	require.Len(t, rec.Items, 2)
	assert.Equal(t, "p1", rec.Items[1].BestDocumentID)
}

type failingAudit struct{}

func (failingAudit) AppendAudit(context.Context, *core.AuditRecord) error {
	return errors.New("disk full")
}

func (failingAudit) ListAudits(context.Context, int) ([]*core.AuditRecord, error) { return nil, nil }

func (failingAudit) Close() error { return nil }

func TestSelect_AuditFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	s := f.selector(t, agentsOnly, nil, WithAuditRepository(failingAudit{}))

	out, err := s.Select(context.Background(), []*core.CandidateItem{item(t, "a", "alpha", 5)})
	require.NoError(t, err)
	assert.True(t, out.Best.HasDocument())
}

type recordingMonitor struct {
	mu        sync.Mutex
	started   int
	scored    int
	cancelled int
	retrieved map[string]int
	finished  *Outcome
	finishes  int
	// late counts per-item hooks seen after that item was cancelled.
	late          int
	cancelledIdxs map[int]bool
}

func (m *recordingMonitor) seen(index int) {
	if m.cancelledIdxs[index] {
		m.late++
	}
}

func (m *recordingMonitor) lateHooks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.late
}

func (m *recordingMonitor) Start(_ string, items int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = items
}
func (m *recordingMonitor) AfterMatch(index int, _ []core.CategoryMatch, _ bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen(index)
}
func (m *recordingMonitor) AfterKeywords(index int, _ []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen(index)
}
func (m *recordingMonitor) AfterRetrieval(index int, code string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen(index)
	m.retrieved[code] += n
}
func (m *recordingMonitor) AfterRelevance(index int, _ []core.DocumentScore) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen(index)
}
func (m *recordingMonitor) ItemCancelled(index int, _ error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled++
	m.cancelledIdxs[index] = true
}
func (m *recordingMonitor) ItemScored(*core.ConvergenceResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scored++
}
func (m *recordingMonitor) Finish(o *Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = o
	m.finishes++
}

func newRecordingMonitor() *recordingMonitor {
	return &recordingMonitor{retrieved: map[string]int{}, cancelledIdxs: map[int]bool{}}
}

func TestSelect_Monitor(t *testing.T) {
	f := newFixture(t)
	mon := newRecordingMonitor()
	s := f.selector(t, agentsOnly, nil, WithMonitor(mon))

	out, err := s.Select(context.Background(), []*core.CandidateItem{
		item(t, "b", "beta", 5),
		item(t, "a", "alpha", 5),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, mon.started)
	assert.Equal(t, 2, mon.scored)
	assert.Equal(t, 0, mon.cancelled)
	assert.Equal(t, 1, mon.retrieved["cs.AI"])
	assert.Equal(t, 0, mon.retrieved["q-fin.TR"])
	assert.Same(t, out, mon.finished)
	assert.Equal(t, 1, mon.finishes)
}

func TestSelect_MonitorFinishedOnSnapshotError(t *testing.T) {
	f := newFixture(t)
	f.source.err = errors.New("boom")
	mon := newRecordingMonitor()
	s := f.selector(t, agentsOnly, nil, WithMonitor(mon))

	_, err := s.Select(context.Background(), []*core.CandidateItem{item(t, "a", "alpha", 5)})
	require.Error(t, err)
	assert.Equal(t, 1, mon.started)
	assert.Equal(t, 1, mon.finishes)
	assert.Nil(t, mon.finished)
}

func TestSelect_NoHooksAfterItemCancelled(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	returned := make(chan struct{})
	// Ignores its context and reports documents only once released.
	stuck := retrieval.RetrieverFunc(func(_ context.Context, q retrieval.Query) ([]core.CandidateDocument, error) {
		defer func() { returned <- struct{}{} }()
		<-release
		return agentsOnly(context.Background(), q)
	})
	mon := newRecordingMonitor()
	cfg := DefaultConfig()
	cfg.ItemTimeout = 30 * time.Millisecond
	s := f.selector(t, stuck, cfg, WithMonitor(mon))

	out, err := s.Select(context.Background(), []*core.CandidateItem{item(t, "a", "alpha", 5)})
	require.NoError(t, err)
	assert.True(t, out.Best.Cancelled)
	assert.Equal(t, 1, mon.cancelled)

	close(release)
	<-returned
	assert.Never(t, func() bool { return mon.lateHooks() > 0 }, 100*time.Millisecond, 5*time.Millisecond)
	assert.Same(t, out, mon.finished)
}

// workedExample builds a two-item batch whose combined scores are 0.66 and
// 0.50. The first item hits cs.CR at raw 0.5 with a hint and one paper at
// relevance 0.6; the second only reaches q-fin.TR at 5/12 with no papers.
func workedExample(t *testing.T) (*fixture, []*core.CandidateItem, retrieval.RetrieverFunc) {
	t.Helper()
	emb := mock.NewMockEmbedder()
	emb.SetVector("spoofing charges filed", []float32{1, 0, 0})
	emb.SetVector("central bank holds rates", []float32{0, -10.908712, 5})
	emb.SetVector("spoofing detection\norder book anomalies", []float32{3, 4, 0})

	m, err := match.NewMatcher(emb, nil)
	require.NoError(t, err)
	rel, err := relevance.NewScorer(emb, nil)
	require.NoError(t, err)
	sc, err := scoring.NewScorer(scoring.DefaultWeights())
	require.NoError(t, err)
	f := &fixture{
		source: &staticSource{snapshot: &core.Snapshot{
			Key: "snap-worked",
			Categories: []core.Category{
				{Code: "cs.CR", Name: "Cryptography and Security", Embedding: []float32{1, 1.7320508, 0}},
				{Code: "q-fin.TR", Name: "Trading", Embedding: []float32{0, 0, 1}},
			},
		}},
		embedder: emb,
		matcher:  m,
		rel:      rel,
		scorer:   sc,
	}
	items := []*core.CandidateItem{
		item(t, "spoof", "spoofing charges filed", 8, "cs.CR"),
		item(t, "rates", "central bank holds rates", 10),
	}
	r := retrieval.RetrieverFunc(func(_ context.Context, q retrieval.Query) ([]core.CandidateDocument, error) {
		if q.CategoryCode != "cs.CR" {
			return nil, nil
		}
		return []core.CandidateDocument{{ID: "2501.00001", Title: "spoofing detection", Abstract: "order book anomalies"}}, nil
	})
	return f, items, r
}

func TestSelect_ParallelMatchesSequential(t *testing.T) {
	f, items, r := workedExample(t)

	sequential := DefaultConfig()
	sequential.Concurrency = 1
	seqOut, err := f.selector(t, r, sequential).Select(context.Background(), items)
	require.NoError(t, err)

	// Hold back the first item so the second finishes first.
	slowFirst := retrieval.RetrieverFunc(func(ctx context.Context, q retrieval.Query) ([]core.CandidateDocument, error) {
		if q.CategoryCode == "cs.CR" {
			time.Sleep(50 * time.Millisecond)
		}
		return r(ctx, q)
	})
	parallel := DefaultConfig()
	parallel.Concurrency = len(items)
	parOut, err := f.selector(t, slowFirst, parallel).Select(context.Background(), items)
	require.NoError(t, err)

	require.Len(t, seqOut.Results, 2)
	require.Len(t, parOut.Results, 2)
	assert.InDelta(t, 0.5667, seqOut.Results[0].ConvergenceScore, 1e-4)
	assert.InDelta(t, 0.66, seqOut.Results[0].CombinedScore, 1e-4)
	assert.InDelta(t, 0.50, seqOut.Results[1].CombinedScore, 1e-4)

	for i := range items {
		s, p := seqOut.Results[i], parOut.Results[i]
		assert.Equal(t, i, p.ItemIndex)
		assert.Equal(t, s.TopCategoryMatches, p.TopCategoryMatches, "item %d", i)
		assert.Equal(t, s.BestCategorySimilarity, p.BestCategorySimilarity, "item %d", i)
		assert.Equal(t, s.BestDocumentRelevance, p.BestDocumentRelevance, "item %d", i)
		assert.Equal(t, s.CategoryDiversity, p.CategoryDiversity, "item %d", i)
		assert.Equal(t, s.ConvergenceScore, p.ConvergenceScore, "item %d", i)
		assert.Equal(t, s.CombinedScore, p.CombinedScore, "item %d", i)
		assert.Equal(t, s.HasDocument(), p.HasDocument(), "item %d", i)
	}
	assert.Equal(t, 0, seqOut.Best.ItemIndex)
	assert.Equal(t, 0, parOut.Best.ItemIndex)
	assert.Equal(t, "spoof", parOut.Best.Item.ID)
}
