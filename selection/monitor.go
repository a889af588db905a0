package selection

import (
	"github.com/poiesic/convergence/core"
)

// Monitor provides hooks to observe a batch run.
// Items are evaluated concurrently, so implementations must be thread-safe.
// No per-item hook fires after ItemCancelled for that item. Finish is
// called once per Start, with a nil outcome when the run fails.
type Monitor interface {
	Start(runID string, items int)
	AfterMatch(index int, matches []core.CategoryMatch, degraded bool)
	AfterKeywords(index int, keywords []string)
	AfterRetrieval(index int, categoryCode string, documents int)
	AfterRelevance(index int, scores []core.DocumentScore)
	ItemCancelled(index int, err error)
	ItemScored(result *core.ConvergenceResult)
	Finish(outcome *Outcome)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ int)                              {}
func (n *noopMonitor) AfterMatch(_ int, _ []core.CategoryMatch, _ bool)  {}
func (n *noopMonitor) AfterKeywords(_ int, _ []string)                    {}
func (n *noopMonitor) AfterRetrieval(_ int, _ string, _ int)              {}
func (n *noopMonitor) AfterRelevance(_ int, _ []core.DocumentScore)       {}
func (n *noopMonitor) ItemCancelled(_ int, _ error)                       {}
func (n *noopMonitor) ItemScored(_ *core.ConvergenceResult)               {}
func (n *noopMonitor) Finish(_ *Outcome)                                  {}
