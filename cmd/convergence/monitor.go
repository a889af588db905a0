package main

import (
	"log/slog"

	"github.com/poiesic/convergence/core"
	"github.com/poiesic/convergence/selection"
)

// logMonitor traces every pipeline stage at debug level.
type logMonitor struct {
	logger *slog.Logger
}

var _ selection.Monitor = (*logMonitor)(nil)

func newLogMonitor(logger *slog.Logger) *logMonitor {
	return &logMonitor{logger: logger.With("component", "trace")}
}

func (m *logMonitor) Start(runID string, items int) {
	m.logger.Debug("run started", "run", runID, "items", items)
}

func (m *logMonitor) AfterMatch(index int, matches []core.CategoryMatch, degraded bool) {
	codes := make([]string, len(matches))
	for i, cm := range matches {
		codes[i] = cm.CategoryCode
	}
	m.logger.Debug("categories matched", "index", index, "categories", codes, "degraded", degraded)
}

func (m *logMonitor) AfterKeywords(index int, keywords []string) {
	m.logger.Debug("keywords extracted", "index", index, "keywords", keywords)
}

func (m *logMonitor) AfterRetrieval(index int, categoryCode string, documents int) {
	m.logger.Debug("documents retrieved", "index", index, "category", categoryCode, "documents", documents)
}

func (m *logMonitor) AfterRelevance(index int, scores []core.DocumentScore) {
	m.logger.Debug("documents scored", "index", index, "above_floor", len(scores))
}

func (m *logMonitor) ItemCancelled(index int, err error) {
	m.logger.Debug("item cancelled", "index", index, "err", err)
}

func (m *logMonitor) ItemScored(r *core.ConvergenceResult) {
	m.logger.Debug("item scored", "index", r.ItemIndex, "convergence", r.ConvergenceScore, "combined", r.CombinedScore)
}

func (m *logMonitor) Finish(o *selection.Outcome) {
	if o == nil {
		m.logger.Debug("run failed")
		return
	}
	m.logger.Debug("run finished", "run", o.RunID, "best", o.Best.ItemIndex)
}
