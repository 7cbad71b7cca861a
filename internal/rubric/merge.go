package rubric

import "github.com/MikeSquared-Agency/wayfinder/internal/signal"

// Merge applies readiness hysteresis. Once prev reported ready, a fresh
// snapshot that dropped below ready only because the recent window thinned
// out keeps ready. Readiness is released when coverage itself loses support:
// a category prev covered is now uncovered, or fewer than three remain.
//
// While ready is held, ContextDepth carries the larger of the two values so
// the merged snapshot still satisfies the readiness rule.
func Merge(prev *signal.Rubric, fresh signal.Rubric) signal.Rubric {
	out := fresh.Clone()
	if prev == nil || prev.CardReadiness.Status != signal.CardReady {
		return out
	}
	if fresh.CardReadiness.Status == signal.CardReady {
		return out
	}
	if lostCoverage(prev.InsightCoverage, fresh.InsightCoverage) || fresh.InsightCoverage.Count() < 3 {
		return out
	}

	out.CardReadiness = signal.CardReadiness{Status: signal.CardReady}
	if prev.ContextDepth > out.ContextDepth {
		out.ContextDepth = prev.ContextDepth
	}
	return out
}

func lostCoverage(prev, fresh signal.InsightCoverage) bool {
	for _, cat := range signal.CoverageCategories {
		if prev.Has(cat) && !fresh.Has(cat) {
			return true
		}
	}
	return false
}
