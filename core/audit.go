package core

import "time"

// AuditRecord captures every intermediate score of one batch run.
// The engine only writes these; they exist for debugging and tuning.
type AuditRecord struct {
	RunID          string       `json:"run_id"`
	StartedAt      time.Time    `json:"started_at"`
	FinishedAt     time.Time    `json:"finished_at"`
	SnapshotKey    string       `json:"snapshot_key"`
	Degraded       bool         `json:"degraded"`
	Weights        AuditWeights `json:"weights"`
	Thresholds     AuditLimits  `json:"thresholds"`
	Items          []AuditItem  `json:"items"`
	SelectedIndex  int          `json:"selected_index"`
	SelectedItemID string       `json:"selected_item_id,omitempty"`
}

// AuditWeights mirrors the scoring weights in effect for the run.
type AuditWeights struct {
	Category    float64 `json:"category"`
	Relevance   float64 `json:"relevance"`
	Diversity   float64 `json:"diversity"`
	Impact      float64 `json:"impact"`
	ImpactScale float64 `json:"impact_scale"`
}

// AuditLimits mirrors the thresholds in effect for the run.
type AuditLimits struct {
	TopN          int     `json:"top_n"`
	HintBoost     float64 `json:"hint_boost"`
	MinSimilarity float64 `json:"min_similarity"`
	MinRelevance  float64 `json:"min_relevance"`
}

// AuditItem is the per-item slice of an AuditRecord.
type AuditItem struct {
	Index                  int                  `json:"index"`
	ItemID                 string               `json:"item_id,omitempty"`
	Title                  string               `json:"title"`
	ImpactScore            float64              `json:"impact_score"`
	Matches                []AuditMatch         `json:"matches"`
	Documents              []AuditDocumentScore `json:"documents"`
	BestCategorySimilarity float64              `json:"best_category_similarity"`
	BestDocumentRelevance  float64              `json:"best_document_relevance"`
	CategoryDiversity      float64              `json:"category_diversity"`
	ConvergenceScore       float64              `json:"convergence_score"`
	CombinedScore          float64              `json:"combined_score"`
	BestDocumentID         string               `json:"best_document_id,omitempty"`
	Cancelled              bool                 `json:"cancelled,omitempty"`
}

// AuditMatch is a CategoryMatch in audit form.
type AuditMatch struct {
	Code              string  `json:"code"`
	RawSimilarity     float64 `json:"raw_similarity"`
	BoostedSimilarity float64 `json:"boosted_similarity"`
	WasBoosted        bool    `json:"was_boosted"`
}

// AuditDocumentScore is a DocumentScore in audit form.
type AuditDocumentScore struct {
	DocumentID   string  `json:"document_id"`
	Title        string  `json:"title,omitempty"`
	CategoryCode string  `json:"category_code"`
	Relevance    float64 `json:"relevance"`
}

// NewAuditItem flattens a result for the audit log.
func NewAuditItem(r *ConvergenceResult) AuditItem {
	ai := AuditItem{
		Index:                  r.ItemIndex,
		BestCategorySimilarity: r.BestCategorySimilarity,
		BestDocumentRelevance:  r.BestDocumentRelevance,
		CategoryDiversity:      r.CategoryDiversity,
		ConvergenceScore:       r.ConvergenceScore,
		CombinedScore:          r.CombinedScore,
		Cancelled:              r.Cancelled,
		Matches:                make([]AuditMatch, 0, len(r.TopCategoryMatches)),
		Documents:              make([]AuditDocumentScore, 0, len(r.ScoredDocuments)),
	}
	if r.Item != nil {
		ai.ItemID = r.Item.ID
		ai.Title = r.Item.Title
		ai.ImpactScore = r.Item.ImpactScore
	}
	for _, m := range r.TopCategoryMatches {
		ai.Matches = append(ai.Matches, AuditMatch{
			Code:              m.CategoryCode,
			RawSimilarity:     m.RawSimilarity,
			BoostedSimilarity: m.BoostedSimilarity,
			WasBoosted:        m.WasBoosted,
		})
	}
	for _, s := range r.ScoredDocuments {
		ds := AuditDocumentScore{
			DocumentID:   s.DocumentID,
			CategoryCode: s.CategoryCode,
			Relevance:    s.Relevance,
		}
		if s.Document != nil {
			ds.Title = s.Document.Title
		}
		ai.Documents = append(ai.Documents, ds)
	}
	if r.BestDocument != nil {
		ai.BestDocumentID = r.BestDocument.DocumentID
	}
	return ai
}
