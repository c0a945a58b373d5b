package spc

import (
	"fmt"
	"math"
)

// PointResult is the per-observation output record: the plotted
// statistic, the limits that applied at that point, its zone, and every
// rule that fired there.
type PointResult struct {
	Index      int     `json:"index"`
	Statistic  float64 `json:"statistic"`
	Center     float64 `json:"center"`
	UCL        float64 `json:"ucl"`
	LCL        float64 `json:"lcl"`
	LCLClamped bool    `json:"lcl_clamped,omitempty"`
	Zone       Zone    `json:"zone"`
	Above      bool    `json:"above"`

	// MovingRange accompanies individuals charts; NaN elsewhere and at
	// the first point, where no previous value exists.
	MovingRange float64 `json:"-"`

	// Rules lists every pattern rule that fired at this index.
	Rules []RuleID `json:"rules,omitempty"`
}

// ChartResult is one complete chart evaluation over a stream.
type ChartResult struct {
	Spec    ChartSpec
	Limits  LimitSet
	Points  []PointResult
	Signals []Signal
}

// Run evaluates a stream in batch mode, deriving limits from the stream
// itself (phase-I style). Limits and signals are recomputed wholesale;
// for incremental evaluation against frozen limits use a Monitor.
func Run(stream []Observation, spec ChartSpec) (*ChartResult, error) {
	stats, err := ReduceStream(stream, spec)
	if err != nil {
		return nil, err
	}
	limits, err := Limits(stats, spec)
	if err != nil {
		return nil, err
	}
	return evaluateStats(stats, spec, limits)
}

// RunWithLimits evaluates a stream against limits established elsewhere,
// typically from an in-control reference segment or known steady-state
// parameters (phase-II style).
func RunWithLimits(stream []Observation, spec ChartSpec, limits LimitSet) (*ChartResult, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	stats, err := ReduceStream(stream, spec)
	if err != nil {
		return nil, err
	}
	return evaluateStats(stats, spec, limits)
}

// effectiveSpec fills an unset target from the limits' resolved target so
// the recursive engine seeds and accumulates around the same value the
// limits were built on.
func effectiveSpec(spec ChartSpec, limits LimitSet) ChartSpec {
	if !spec.TargetSet {
		spec.Target = limits.Target
		spec.TargetSet = true
	}
	if spec.Sigma == 0 {
		spec.Sigma = limits.Sigma
	}
	return spec
}

func evaluateStats(stats []SubgroupStatistic, spec ChartSpec, limits LimitSet) (*ChartResult, error) {
	spec = effectiveSpec(spec, limits)
	rules := rulesFor(spec)
	state := NewRunState(spec)

	points := make([]PointResult, len(stats))
	zoned := make([]ZonedPoint, len(stats))
	for i, s := range stats {
		mr := state.MovingRange(s.Value)
		var plotted float64
		state, plotted = Step(state, s.Value, spec)

		ucl, lcl, clamped := boundsFor(spec, limits, s, i)
		zp := ClassifyZone(s.Index, plotted, limits.Primary.Center, ucl, lcl)
		zoned[i] = zp
		points[i] = PointResult{
			Index:       s.Index,
			Statistic:   plotted,
			Center:      limits.Primary.Center,
			UCL:         ucl,
			LCL:         lcl,
			LCLClamped:  clamped,
			Zone:        zp.Zone,
			Above:       zp.Above(),
			MovingRange: mr,
		}
	}

	signals := EvaluateRules(zoned, rules)
	for _, sig := range signals {
		for i := range points {
			if points[i].Index == sig.Index {
				points[i].Rules = sig.Rules
				break
			}
		}
	}

	return &ChartResult{Spec: spec, Limits: limits, Points: points, Signals: signals}, nil
}

// rulesFor selects the pattern tests applying to a family. EWMA and
// CUSUM statistics are autocorrelated by construction, so the zone
// pattern tests (which assume independent points) would fire constantly
// on in-control data; those charts check only the hard boundary.
func rulesFor(spec ChartSpec) []PatternRule {
	all := NelsonRules()
	if spec.Family == FamilyEWMA || spec.Family == FamilyCUSUM {
		return all[:1]
	}
	return all
}

// boundsFor yields the limits applying to one statistic. Variable-n
// attribute charts recompute the half-width from that point's own sample
// size so streaming points beyond the reference stay correctly bounded.
func boundsFor(spec ChartSpec, ls LimitSet, s SubgroupStatistic, pos int) (ucl, lcl float64, clamped bool) {
	center := ls.Primary.Center
	switch spec.Family {
	case FamilyP:
		half := spec.LimitWidth() * math.Sqrt(center*(1-center)/float64(s.SampleSize))
		ucl = math.Min(1, center+half)
		lcl = center - half
		if lcl < 0 {
			lcl, clamped = 0, true
		}
		return ucl, lcl, clamped
	case FamilyU:
		half := spec.LimitWidth() * math.Sqrt(center/float64(s.SampleSize))
		ucl = center + half
		lcl = center - half
		if lcl < 0 {
			lcl, clamped = 0, true
		}
		return ucl, lcl, clamped
	default:
		ucl, lcl = ls.Primary.BoundsAt(pos)
		return ucl, lcl, ls.Primary.LCLClamped
	}
}

// Monitor evaluates a stream one observation at a time against frozen
// limits. Each arrival costs one O(1) recursive-state update plus a rule
// re-evaluation bounded by the longest rule window. A Monitor owns its
// RunState exclusively; concurrent callers need one Monitor each.
type Monitor struct {
	spec   ChartSpec
	limits LimitSet
	rules  []PatternRule
	state  RunState

	// window is the bounded trailing history of zone-classified points.
	window []ZonedPoint
	next   int
	seen   int
}

// NewMonitor builds a streaming evaluator from a spec and limits frozen
// from a reference segment or steady-state parameters.
func NewMonitor(spec ChartSpec, limits LimitSet) (*Monitor, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	spec = effectiveSpec(spec, limits)
	return &Monitor{
		spec:   spec,
		limits: limits,
		rules:  rulesFor(spec),
		state:  NewRunState(spec),
		window: make([]ZonedPoint, 0, MaxRuleWindow),
	}, nil
}

// Seen returns the number of observations consumed so far.
func (m *Monitor) Seen() int { return m.seen }

// Observe consumes the next observation in stream order and returns its
// result record. Out-of-order or skipped indices are rejected: the
// recursive statistics are only defined over a gapless ordered stream.
func (m *Monitor) Observe(obs Observation) (PointResult, error) {
	if m.seen == 0 {
		m.next = obs.Index
	}
	if obs.Index != m.next {
		return PointResult{}, &ValidationError{
			Field: "Index",
			Msg:   fmt.Sprintf("out-of-order observation: got %d, want %d", obs.Index, m.next),
		}
	}

	s, err := Reduce(obs, m.spec)
	if err != nil {
		return PointResult{}, err
	}

	mr := m.state.MovingRange(s.Value)
	var plotted float64
	m.state, plotted = Step(m.state, s.Value, m.spec)

	ucl, lcl, clamped := boundsFor(m.spec, m.limits, s, m.seen)
	zp := ClassifyZone(s.Index, plotted, m.limits.Primary.Center, ucl, lcl)

	m.window = append(m.window, zp)
	if len(m.window) > MaxRuleWindow {
		m.window = m.window[1:]
	}
	m.next++
	m.seen++

	result := PointResult{
		Index:       s.Index,
		Statistic:   plotted,
		Center:      m.limits.Primary.Center,
		UCL:         ucl,
		LCL:         lcl,
		LCLClamped:  clamped,
		Zone:        zp.Zone,
		Above:       zp.Above(),
		MovingRange: mr,
		Rules:       rulesAt(m.window, len(m.window)-1, m.rules),
	}
	return result, nil
}
