package spc

import "math"

// Zone classifies how far a plotted point sits from the center line, in
// units of one third of the center-to-UCL distance (one "sigma" of the
// chart's own scale).
type Zone int

const (
	// ZoneC is within 1 sigma of center.
	ZoneC Zone = iota
	// ZoneB is between 1 and 2 sigma.
	ZoneB
	// ZoneA is between 2 and 3 sigma.
	ZoneA
	// ZoneBeyond is outside the control limits.
	ZoneBeyond
)

func (z Zone) String() string {
	switch z {
	case ZoneC:
		return "C"
	case ZoneB:
		return "B"
	case ZoneA:
		return "A"
	case ZoneBeyond:
		return "beyond"
	}
	return "?"
}

// RuleID identifies one of the Nelson pattern rules. RuleBeyondLimits is
// rule 1, the hard limit violation.
type RuleID int

const (
	RuleBeyondLimits   RuleID = 1 // single point beyond the 3-sigma limits
	RuleNineSameSide   RuleID = 2 // >= 9 consecutive points one side of center
	RuleSixTrending    RuleID = 3 // >= 6 consecutive strictly monotone points
	RuleFourteenAltern RuleID = 4 // >= 14 consecutive points alternating up/down
	RuleTwoOfThreeA    RuleID = 5 // 2 of 3 in zone A or beyond, same side
	RuleFourOfFiveB    RuleID = 6 // 4 of 5 in zone B or beyond, same side
	RuleFifteenZoneC   RuleID = 7 // >= 15 consecutive points inside zone C
	RuleEightOutsideC  RuleID = 8 // >= 8 consecutive points outside zone C
)

// ZonedPoint is one plotted statistic with its zone classification
// relative to that point's own limits.
type ZonedPoint struct {
	Index int
	Value float64

	// SigmaUnits is the signed distance from center in chart-sigma units
	// ((UCL-center)/3 per unit). Zero when the chart has zero width.
	SigmaUnits float64

	Zone Zone

	// Side is +1 above center, -1 below, 0 exactly on the center line.
	// Points on the center line count for neither side.
	Side int

	// ZeroWidth marks a point classified against zero-width limits
	// (UCL == center). Such a chart has no sigma scale, so zone pattern
	// tests treat the point as unclassifiable; only the hard limit
	// check applies.
	ZeroWidth bool
}

// Above reports whether the point sits above the center line.
func (p ZonedPoint) Above() bool { return p.Side > 0 }

// ClassifyZone places one plotted value relative to its limits. With
// asymmetric limits (clamped attribute charts) a value outside either
// bound classifies as ZoneBeyond even when its symmetric sigma distance
// is under 3.
func ClassifyZone(index int, value, center, ucl, lcl float64) ZonedPoint {
	p := ZonedPoint{Index: index, Value: value}
	switch {
	case value > center:
		p.Side = 1
	case value < center:
		p.Side = -1
	}

	unit := (ucl - center) / 3
	if unit > 0 {
		p.SigmaUnits = (value - center) / unit
	} else {
		p.ZeroWidth = true
	}

	dist := math.Abs(p.SigmaUnits)
	switch {
	case value > ucl || value < lcl:
		p.Zone = ZoneBeyond
	case dist > 2:
		p.Zone = ZoneA
	case dist > 1:
		p.Zone = ZoneB
	default:
		p.Zone = ZoneC
	}
	return p
}

// PatternRule is one pattern test over a fixed trailing window. Rules are
// data: the evaluator slides each rule's window over the zone-classified
// sequence and reports every match, with no rule suppressing another.
type PatternRule struct {
	ID     RuleID
	Window int
	Desc   string
	Match  func(window []ZonedPoint) bool
}

// MaxRuleWindow is the longest trailing window any standard rule needs;
// streaming evaluation keeps only this much history.
const MaxRuleWindow = 15

// NelsonRules returns the standard eight pattern tests. The returned
// slice is freshly allocated and safe to modify.
func NelsonRules() []PatternRule {
	return []PatternRule{
		{
			ID: RuleBeyondLimits, Window: 1,
			Desc: "point beyond control limits",
			Match: func(w []ZonedPoint) bool {
				return w[0].Zone == ZoneBeyond
			},
		},
		{
			ID: RuleNineSameSide, Window: 9,
			Desc: "nine consecutive points on one side of center",
			Match: sameSideRun,
		},
		{
			ID: RuleSixTrending, Window: 6,
			Desc: "six consecutive points steadily increasing or decreasing",
			Match: monotoneRun,
		},
		{
			ID: RuleFourteenAltern, Window: 14,
			Desc: "fourteen consecutive points alternating up and down",
			Match: alternatingRun,
		},
		{
			ID: RuleTwoOfThreeA, Window: 3,
			Desc: "two of three consecutive points in zone A or beyond, same side",
			Match: func(w []ZonedPoint) bool { return zoneScaled(w) && kOfNInZone(w, 2, ZoneA) },
		},
		{
			ID: RuleFourOfFiveB, Window: 5,
			Desc: "four of five consecutive points in zone B or beyond, same side",
			Match: func(w []ZonedPoint) bool { return zoneScaled(w) && kOfNInZone(w, 4, ZoneB) },
		},
		{
			ID: RuleFifteenZoneC, Window: 15,
			Desc: "fifteen consecutive points within zone C (stratification)",
			Match: func(w []ZonedPoint) bool {
				if !zoneScaled(w) {
					return false
				}
				for _, p := range w {
					if p.Zone != ZoneC {
						return false
					}
				}
				return true
			},
		},
		{
			ID: RuleEightOutsideC, Window: 8,
			Desc: "eight consecutive points outside zone C (mixture)",
			Match: func(w []ZonedPoint) bool {
				if !zoneScaled(w) {
					return false
				}
				for _, p := range w {
					if p.Zone == ZoneC {
						return false
					}
				}
				return true
			},
		},
	}
}

func sameSideRun(w []ZonedPoint) bool {
	side := w[0].Side
	if side == 0 {
		return false
	}
	for _, p := range w[1:] {
		if p.Side != side {
			return false
		}
	}
	return true
}

func monotoneRun(w []ZonedPoint) bool {
	increasing, decreasing := true, true
	for i := 1; i < len(w); i++ {
		if w[i].Value <= w[i-1].Value {
			increasing = false
		}
		if w[i].Value >= w[i-1].Value {
			decreasing = false
		}
	}
	return increasing || decreasing
}

func alternatingRun(w []ZonedPoint) bool {
	prevUp := 0
	for i := 1; i < len(w); i++ {
		d := w[i].Value - w[i-1].Value
		if d == 0 {
			return false
		}
		up := 1
		if d < 0 {
			up = -1
		}
		if prevUp != 0 && up == prevUp {
			return false
		}
		prevUp = up
	}
	return true
}

// zoneScaled reports whether every point in the window carries a usable
// zone classification. Zero-width limits admit no zone reasoning.
func zoneScaled(w []ZonedPoint) bool {
	for _, p := range w {
		if p.ZeroWidth {
			return false
		}
	}
	return true
}

// kOfNInZone reports whether at least k points of the window sit in the
// given zone or further out, all on the same side of center.
func kOfNInZone(w []ZonedPoint, k int, zone Zone) bool {
	above, below := 0, 0
	for _, p := range w {
		if p.Zone < zone {
			continue
		}
		switch p.Side {
		case 1:
			above++
		case -1:
			below++
		}
	}
	return above >= k || below >= k
}

// Signal records an out-of-control determination at one stream index:
// every rule that matched there, plus the zone classification the rules
// were derived from. Coincident rules are reported together.
type Signal struct {
	Index int
	Rules []RuleID
	Zone  Zone
	Above bool
}

// EvaluateRules runs every pattern rule over the zone-classified sequence
// and returns all signals in index order. A rule whose window exceeds the
// history available at some index is simply not evaluated there; rule
// evaluation never errors.
func EvaluateRules(points []ZonedPoint, rules []PatternRule) []Signal {
	var signals []Signal
	for i := range points {
		matched := rulesAt(points, i, rules)
		if len(matched) == 0 {
			continue
		}
		signals = append(signals, Signal{
			Index: points[i].Index,
			Rules: matched,
			Zone:  points[i].Zone,
			Above: points[i].Above(),
		})
	}
	return signals
}

// rulesAt evaluates every rule whose window fits the history ending at
// position i, returning the matched rule IDs.
func rulesAt(points []ZonedPoint, i int, rules []PatternRule) []RuleID {
	var matched []RuleID
	for _, rule := range rules {
		if rule.Window > i+1 {
			continue
		}
		if rule.Match(points[i+1-rule.Window : i+1]) {
			matched = append(matched, rule.ID)
		}
	}
	return matched
}
