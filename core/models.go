package core

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// String renders the id as 16 hex digits.
func (id ID) String() string {
	return fmt.Sprintf("%016x", uint64(id))
}

// Fingerprint returns a short hex digest of the given parts. Parts are
// separated by a NUL byte so ("ab","c") and ("a","bc") differ.
func Fingerprint(parts ...string) string {
	h, _ := blake2b.New(12, nil)
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Category is one entry of the topic taxonomy.
// Embedding is nil when the store is running degraded.
type Category struct {
	Code        string
	Name        string
	Description string
	Embedding   []float32
}

// EmbeddingText is the text sent to the embedder for this category.
func (c *Category) EmbeddingText() string {
	return c.Name + ": " + c.Description
}

// CandidateItem is a ranked headline supplied by the upstream ranker.
// It is read-only to the engine.
type CandidateItem struct {
	ID             string
	Title          string
	Summary        string
	Source         string
	HintCategories []string
	ImpactScore    float64
}

// NewCandidateItem builds a validated item. Hint codes are trimmed and
// de-duplicated preserving their order.
func NewCandidateItem(id, title, summary string, hints []string, impact float64) (*CandidateItem, error) {
	item := &CandidateItem{
		ID:             id,
		Title:          strings.TrimSpace(title),
		Summary:        strings.TrimSpace(summary),
		HintCategories: dedupeHints(hints),
		ImpactScore:    impact,
	}
	if err := ValidateCandidateItem(item); err != nil {
		return nil, err
	}
	return item, nil
}

// Text is the string embedded for category matching and document relevance.
func (i *CandidateItem) Text() string {
	if i.Summary == "" {
		return i.Title
	}
	return i.Title + "\n\n" + i.Summary
}

// CategoryMatch is one ranked category for an item.
type CategoryMatch struct {
	CategoryCode      string
	CategoryName      string
	RawSimilarity     float64
	BoostedSimilarity float64
	WasBoosted        bool
}

// NewCategoryMatch builds a validated match.
func NewCategoryMatch(code, name string, raw, boosted float64, wasBoosted bool) (CategoryMatch, error) {
	m := CategoryMatch{
		CategoryCode:      code,
		CategoryName:      name,
		RawSimilarity:     raw,
		BoostedSimilarity: boosted,
		WasBoosted:        wasBoosted,
	}
	return m, ValidateCategoryMatch(&m)
}

// CandidateDocument is a research paper returned by the search collaborator.
// Documents live for one evaluation run.
type CandidateDocument struct {
	ID               string
	Title            string
	Abstract         string
	Authors          []string
	SourceCategories []string
	PublishedAt      time.Time
	URL              string
	Embedding        []float32
}

// Text is the string embedded for relevance scoring.
func (d *CandidateDocument) Text() string {
	return d.Title + "\n" + d.Abstract
}

// DocumentScore is the relevance of one document to an item.
type DocumentScore struct {
	DocumentID   string
	Relevance    float64
	CategoryCode string
	Document     *CandidateDocument
}

// NewDocumentScore builds a validated score.
func NewDocumentScore(doc *CandidateDocument, relevance float64, categoryCode string) (DocumentScore, error) {
	s := DocumentScore{
		Relevance:    relevance,
		CategoryCode: categoryCode,
		Document:     doc,
	}
	if doc != nil {
		s.DocumentID = doc.ID
	}
	return s, ValidateDocumentScore(&s)
}

// ConvergenceResult is the full evaluation of one item.
type ConvergenceResult struct {
	Item                   *CandidateItem
	ItemIndex              int
	TopCategoryMatches     []CategoryMatch
	ScoredDocuments        []DocumentScore
	BestCategorySimilarity float64
	BestDocumentRelevance  float64
	CategoryDiversity      float64
	ConvergenceScore       float64
	CombinedScore          float64
	BestDocument           *DocumentScore
	Degraded               bool
	Cancelled              bool
}

// HasDocument reports whether a document cleared the relevance floor.
// False signals the caller to run its fallback retrieval.
func (r *ConvergenceResult) HasDocument() bool {
	return r.BestDocument != nil
}

// Snapshot is an immutable view of the taxonomy with its embeddings.
type Snapshot struct {
	Key             string
	ModelID         string
	TaxonomyVersion string
	Categories      []Category
	RefreshedAt     time.Time
	Degraded        bool
}

// Lookup returns the category with the given code.
func (s *Snapshot) Lookup(code string) (*Category, bool) {
	idx := slices.IndexFunc(s.Categories, func(c Category) bool { return c.Code == code })
	if idx < 0 {
		return nil, false
	}
	return &s.Categories[idx], true
}

// Dimensions returns the embedding width, or 0 when no category is embedded.
func (s *Snapshot) Dimensions() int {
	for i := range s.Categories {
		if n := len(s.Categories[i].Embedding); n > 0 {
			return n
		}
	}
	return 0
}

func dedupeHints(hints []string) []string {
	if len(hints) == 0 {
		return nil
	}
	out := make([]string, 0, len(hints))
	for _, h := range hints {
		h = strings.TrimSpace(h)
		if h == "" || slices.Contains(out, h) {
			continue
		}
		out = append(out, h)
	}
	return out
}
