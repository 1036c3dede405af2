package engine

import "github.com/pulsecrm/lifecycle/pkg/models"

// pickBranch returns the branch index for a split node. The first visit
// draws from the weighted distribution and records the pick on the
// execution; later visits of the same node reuse the recorded pick, so
// re-advancing after a crash never re-randomizes.
func (e *Engine) pickBranch(execution *models.JourneyExecution, nodeID string, config *models.SplitConfig) int {
	if pick, seen := execution.BranchPicks[nodeID]; seen {
		return pick
	}

	pick := weightedPick(config.Branches, e.draw)

	if execution.BranchPicks == nil {
		execution.BranchPicks = make(map[string]int)
	}

	execution.BranchPicks[nodeID] = pick

	return pick
}

// weightedPick draws a uniform point in [0, total weight) and walks the
// cumulative weights. Branch order is the authored order, so equal inputs
// give equal routing across instances.
func weightedPick(branches []models.SplitBranch, draw func(n int) int) int {
	total := 0
	for _, branch := range branches {
		total += branch.Weight
	}

	if total <= 0 {
		return 0
	}

	point := draw(total)

	cumulative := 0
	for index, branch := range branches {
		cumulative += branch.Weight
		if point < cumulative {
			return index
		}
	}

	return len(branches) - 1
}
