package spc

import "math"

// RunState is the accumulated memory of the recursive chart families: the
// previous EWMA value, the CUSUM accumulators, and the previous raw value
// for moving ranges. It is a plain value: each evaluation owns its own
// copy and threads it forward through Step, so independent evaluations of
// the same stream never alias state.
type RunState struct {
	// Initialized becomes true after the first Step.
	Initialized bool

	// EWMA is Z_{i}, seeded at the process target.
	EWMA float64

	// CusumHi and CusumLo are the upper and lower one-sided accumulators
	// C+ and C-. Both are >= 0 by construction.
	CusumHi float64
	CusumLo float64

	// Prev is the previous raw value, for moving ranges.
	Prev    float64
	HasPrev bool
}

// NewRunState seeds the recursive state for a spec. EWMA starts at the
// target (Z_0 = mu0); CUSUM accumulators start at zero.
func NewRunState(spec ChartSpec) RunState {
	return RunState{EWMA: spec.Target}
}

// Step advances the recursive state by one observation, strictly in
// stream order, and returns the updated state together with the plotted
// statistic for this point. Each update is O(1).
//
//	EWMA:  Z_i = lambda*x_i + (1-lambda)*Z_{i-1}
//	CUSUM: C+_i = max(0, C+_{i-1} + (x_i - mu0 - k))
//	       C-_i = max(0, C-_{i-1} + (mu0 - x_i - k))
//	MR:    |x_i - x_{i-1}|, NaN at the first point
//
// For CUSUM the returned statistic is max(C+, C-), the quantity the
// decision interval H is compared against.
func Step(state RunState, x float64, spec ChartSpec) (RunState, float64) {
	switch spec.Family {
	case FamilyEWMA:
		if !state.Initialized {
			state.EWMA = spec.Target
		}
		state.EWMA = spec.Lambda*x + (1-spec.Lambda)*state.EWMA
		state.Initialized = true
		state.Prev, state.HasPrev = x, true
		return state, state.EWMA

	case FamilyCUSUM:
		state.CusumHi = math.Max(0, state.CusumHi+(x-spec.Target-spec.K))
		state.CusumLo = math.Max(0, state.CusumLo+(spec.Target-x-spec.K))
		state.Initialized = true
		state.Prev, state.HasPrev = x, true
		return state, math.Max(state.CusumHi, state.CusumLo)

	default:
		// Individuals and everything else: the statistic is the value
		// itself; the state only tracks the previous point for MovingRange.
		state.Initialized = true
		state.Prev, state.HasPrev = x, true
		return state, x
	}
}

// MovingRange returns |x - prev| given the state before consuming x, or
// NaN when no previous point exists.
func (s RunState) MovingRange(x float64) float64 {
	if !s.HasPrev {
		return math.NaN()
	}
	return math.Abs(x - s.Prev)
}
