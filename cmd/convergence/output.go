package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/poiesic/convergence/core"
	"github.com/poiesic/convergence/selection"
)

// rankedItem is one line of the printed ranking.
type rankedItem struct {
	Rank             int      `json:"rank"`
	Index            int      `json:"index"`
	ID               string   `json:"id,omitempty"`
	Title            string   `json:"title"`
	ImpactScore      float64  `json:"impact_score"`
	Categories       []string `json:"categories"`
	ConvergenceScore float64  `json:"convergence_score"`
	CombinedScore    float64  `json:"combined_score"`
	PaperID          string   `json:"paper_id,omitempty"`
	PaperTitle       string   `json:"paper_title,omitempty"`
	PaperURL         string   `json:"paper_url,omitempty"`
	PaperRelevance   float64  `json:"paper_relevance,omitempty"`
	Cancelled        bool     `json:"cancelled,omitempty"`
}

type ranking struct {
	RunID    string       `json:"run_id"`
	Degraded bool         `json:"degraded"`
	Winner   int          `json:"winner_index"`
	Items    []rankedItem `json:"items"`
}

// rankingOf orders results by combined score. The sort is stable, so equal
// scores keep input order and the first entry is always Outcome.Best.
func rankingOf(o *selection.Outcome) ranking {
	results := slices.Clone(o.Results)
	slices.SortStableFunc(results, func(a, b *core.ConvergenceResult) int {
		switch {
		case a.CombinedScore > b.CombinedScore:
			return -1
		case a.CombinedScore < b.CombinedScore:
			return 1
		}
		return 0
	})

	r := ranking{RunID: o.RunID, Degraded: o.Degraded, Winner: o.Best.ItemIndex}
	for i, res := range results {
		ri := rankedItem{
			Rank:             i + 1,
			Index:            res.ItemIndex,
			ID:               res.Item.ID,
			Title:            res.Item.Title,
			ImpactScore:      res.Item.ImpactScore,
			Categories:       make([]string, 0, len(res.TopCategoryMatches)),
			ConvergenceScore: res.ConvergenceScore,
			CombinedScore:    res.CombinedScore,
			Cancelled:        res.Cancelled,
		}
		for _, m := range res.TopCategoryMatches {
			ri.Categories = append(ri.Categories, m.CategoryCode)
		}
		if bd := res.BestDocument; bd != nil {
			ri.PaperID = bd.DocumentID
			ri.PaperRelevance = bd.Relevance
			if bd.Document != nil {
				ri.PaperTitle = bd.Document.Title
				ri.PaperURL = bd.Document.URL
			}
		}
		r.Items = append(r.Items, ri)
	}
	return r
}

func printOutcome(w io.Writer, o *selection.Outcome) {
	r := rankingOf(o)
	if r.Degraded {
		fmt.Fprintln(w, "Warning: taxonomy embeddings unavailable, matched on hints only")
	}
	for _, it := range r.Items {
		marker := " "
		if it.Index == r.Winner {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %d. [%.4f] %s\n", marker, it.Rank, it.CombinedScore, it.Title)
		fmt.Fprintf(w, "     impact %.1f  convergence %.4f  categories %v\n", it.ImpactScore, it.ConvergenceScore, it.Categories)
		switch {
		case it.Cancelled:
			fmt.Fprintln(w, "     timed out")
		case it.PaperID != "":
			fmt.Fprintf(w, "     paper %s (%.4f) %s\n", it.PaperID, it.PaperRelevance, it.PaperTitle)
		default:
			fmt.Fprintln(w, "     no paper above the relevance floor")
		}
	}
	fmt.Fprintf(w, "Run %s\n", r.RunID)
}

func printAudit(w io.Writer, rec *core.AuditRecord) {
	took := rec.FinishedAt.Sub(rec.StartedAt).Round(time.Millisecond)
	fmt.Fprintf(w, "%s  %s  %d items  %s\n", rec.StartedAt.Local().Format("2006-01-02 15:04:05"), rec.RunID, len(rec.Items), took)
	if rec.SelectedIndex >= 0 && rec.SelectedIndex < len(rec.Items) {
		sel := rec.Items[rec.SelectedIndex]
		fmt.Fprintf(w, "  winner #%d [%.4f] %s\n", sel.Index, sel.CombinedScore, sel.Title)
		if sel.BestDocumentID != "" {
			fmt.Fprintf(w, "  paper %s\n", sel.BestDocumentID)
		}
	}
	if rec.Degraded {
		fmt.Fprintln(w, "  degraded")
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
