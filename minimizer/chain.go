package minimizer

import (
	"math"

	"github.com/arloliu/corrfit/fit"
)

// Chain returns a minimizer running ms in sequence, each seeded with the
// best point found so far. Typical use is a robust global stage followed by
// a fast local refinement:
//
//	m := minimizer.Chain(nelderMead, bfgs)
//
// The returned solution is the best of all stages; its status is the status
// of the stage that produced it. Evaluations are summed over stages.
func Chain(ms ...fit.Minimizer) fit.Minimizer {
	return fit.MinimizerFunc(func(f fit.Objective, x0 []float64, bounds []fit.Bound) fit.Solution {
		best := fit.Solution{X: append([]float64(nil), x0...), F: math.Inf(1), Status: fit.StatusFailed}
		evals := 0
		for _, m := range ms {
			if m == nil {
				continue
			}

			sol := m.Minimize(f, best.X, bounds)
			evals += sol.Evaluations
			if sol.Status == fit.StatusFailed || len(sol.X) != len(x0) || math.IsNaN(sol.F) {
				continue
			}
			if sol.F <= best.F {
				best = sol
			}
		}
		best.Evaluations = evals

		return best
	})
}
