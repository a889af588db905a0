package relevance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/convergence/ai/mock"
	"github.com/poiesic/convergence/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var item = []float32{1, 0}

// doc builds a document whose embedding cosine with item is cos, using
// exact vectors: (1,0)=1, (4,3)=0.8, (3,4)=0.6, (1,2)~0.447, (0,1)=0.
func doc(emb *mock.MockEmbedder, id string, vec []float32, published time.Time) core.CandidateDocument {
	d := core.CandidateDocument{
		ID:          id,
		Title:       "Title " + id,
		Abstract:    "Abstract " + id,
		PublishedAt: published,
	}
	emb.SetVector(d.Text(), vec)
	return d
}

func ids(scores []core.DocumentScore) []string {
	out := make([]string, len(scores))
	for i, s := range scores {
		out[i] = s.DocumentID
	}
	return out
}

func TestNewScorer_Validation(t *testing.T) {
	_, err := NewScorer(nil, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewScorer(mock.NewMockEmbedder(), &Config{MinRelevance: 1.5})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestScore_FiltersAndSorts(t *testing.T) {
	emb := mock.NewMockEmbedder()
	s, err := NewScorer(emb, nil)
	require.NoError(t, err)
	day := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	candidates := []Candidate{
		{Document: doc(emb, "low", []float32{0, 1}, day), CategoryCode: "cs.AI"},
		{Document: doc(emb, "mid", []float32{3, 4}, day), CategoryCode: "cs.AI"},
		{Document: doc(emb, "high", []float32{4, 3}, day), CategoryCode: "cs.CR"},
		{Document: doc(emb, "edge", []float32{1, 2}, day), CategoryCode: "cs.CR"},
	}

	scores := s.Score(context.Background(), item, candidates)
	assert.Equal(t, []string{"high", "mid", "edge"}, ids(scores))
	assert.InDelta(t, 0.8, scores[0].Relevance, 1e-9)
	assert.Equal(t, "cs.CR", scores[0].CategoryCode)
	require.NotNil(t, scores[0].Document)
	assert.Equal(t, []float32{4, 3}, scores[0].Document.Embedding)
	assert.Equal(t, 1, emb.CallCount(), "one batched call")

	for _, sc := range scores {
		assert.NoError(t, core.ValidateDocumentScore(&sc))
	}
}

func TestScore_DedupeKeepsFirstCategory(t *testing.T) {
	emb := mock.NewMockEmbedder()
	s, err := NewScorer(emb, nil)
	require.NoError(t, err)

	d := doc(emb, "2501.00001", []float32{4, 3}, time.Time{})
	scores := s.Score(context.Background(), item, []Candidate{
		{Document: d, CategoryCode: "q-fin.TR"},
		{Document: d, CategoryCode: "cs.AI"},
	})
	require.Len(t, scores, 1)
	assert.Equal(t, "q-fin.TR", scores[0].CategoryCode)
	assert.Equal(t, 1, emb.TextCount())
}

func TestScore_TieBrokenByRecency(t *testing.T) {
	emb := mock.NewMockEmbedder()
	s, err := NewScorer(emb, nil)
	require.NoError(t, err)
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	scores := s.Score(context.Background(), item, []Candidate{
		{Document: doc(emb, "a-old", []float32{4, 3}, old), CategoryCode: "cs.AI"},
		{Document: doc(emb, "b-new", []float32{4, 3}, recent), CategoryCode: "cs.AI"},
		{Document: doc(emb, "c-new", []float32{4, 3}, recent), CategoryCode: "cs.AI"},
	})
	assert.Equal(t, []string{"b-new", "c-new", "a-old"}, ids(scores))
}

func TestScore_AllBelowFloor(t *testing.T) {
	emb := mock.NewMockEmbedder()
	s, err := NewScorer(emb, nil)
	require.NoError(t, err)

	scores := s.Score(context.Background(), item, []Candidate{
		{Document: doc(emb, "x", []float32{0, 1}, time.Time{}), CategoryCode: "cs.AI"},
		{Document: doc(emb, "y", []float32{-1, 0}, time.Time{}), CategoryCode: "cs.AI"},
	})
	assert.Empty(t, scores)
}

func TestScore_NilItemEmbedding(t *testing.T) {
	emb := mock.NewMockEmbedder()
	s, err := NewScorer(emb, nil)
	require.NoError(t, err)

	scores := s.Score(context.Background(), nil, []Candidate{
		{Document: doc(emb, "x", []float32{1, 0}, time.Time{}), CategoryCode: "cs.AI"},
	})
	assert.Empty(t, scores)
	assert.Equal(t, 0, emb.CallCount())
}

func TestScore_SkipsUnparseableDocuments(t *testing.T) {
	emb := mock.NewMockEmbedder()
	s, err := NewScorer(emb, nil)
	require.NoError(t, err)

	scores := s.Score(context.Background(), item, []Candidate{
		{Document: core.CandidateDocument{ID: "blank"}, CategoryCode: "cs.AI"},
		{Document: core.CandidateDocument{Title: "no id"}, CategoryCode: "cs.AI"},
		{Document: doc(emb, "ok", []float32{1, 0}, time.Time{}), CategoryCode: "cs.AI"},
	})
	assert.Equal(t, []string{"ok"}, ids(scores))
	assert.Equal(t, 1, emb.TextCount())
}

func TestScore_PerDocumentFallback(t *testing.T) {
	emb := mock.NewMockEmbedder()
	s, err := NewScorer(emb, nil)
	require.NoError(t, err)

	good := doc(emb, "good", []float32{4, 3}, time.Time{})
	bad := doc(emb, "bad", []float32{1, 0}, time.Time{})
	emb.FailTexts = map[string]bool{bad.Text(): true}

	scores := s.Score(context.Background(), item, []Candidate{
		{Document: bad, CategoryCode: "cs.AI"},
		{Document: good, CategoryCode: "cs.AI"},
	})
	assert.Equal(t, []string{"good"}, ids(scores))
	assert.Equal(t, 3, emb.CallCount(), "failed batch then one call per document")
}

func TestScore_EmbedderDown(t *testing.T) {
	emb := mock.NewMockEmbedder()
	emb.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("down")
	}
	emb.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("down")
	}
	s, err := NewScorer(emb, nil)
	require.NoError(t, err)

	scores := s.Score(context.Background(), item, []Candidate{
		{Document: core.CandidateDocument{ID: "a", Title: "t"}, CategoryCode: "cs.AI"},
	})
	assert.Empty(t, scores)
}

func TestScore_InputNotMutated(t *testing.T) {
	emb := mock.NewMockEmbedder()
	s, err := NewScorer(emb, nil)
	require.NoError(t, err)

	candidates := []Candidate{{Document: doc(emb, "x", []float32{1, 0}, time.Time{}), CategoryCode: "cs.AI"}}
	_ = s.Score(context.Background(), item, candidates)
	assert.Nil(t, candidates[0].Document.Embedding)
}
