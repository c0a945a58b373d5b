// Package spc implements the statistical engine behind process control
// charts: per-sample statistic reduction, control limit calculation for
// the Shewhart, EWMA and CUSUM families, zone-based pattern rule
// evaluation (Nelson rules 1-8), and detection-performance comparison
// across chart configurations.
//
// The package is a pure library: it owns no I/O, no rendering and no
// persistence. Streams are append-only; all evaluation state is carried
// in explicit values so independent chart evaluations can run in
// parallel without shared mutable state.
package spc

import (
	"fmt"
	"math"
)

// ChartFamily identifies the chart type a ChartSpec configures.
type ChartFamily int

const (
	// FamilyXbarR is the subgroup mean chart with range-based limits.
	FamilyXbarR ChartFamily = iota
	// FamilyXbarS is the subgroup mean chart with std-dev-based limits.
	FamilyXbarS
	// FamilyIMR is the individuals chart with a moving-range companion.
	FamilyIMR
	// FamilyP is the fraction-defective chart (variable n allowed).
	FamilyP
	// FamilyNP is the count-defective chart (constant n required).
	FamilyNP
	// FamilyC is the defect-count chart (constant opportunity).
	FamilyC
	// FamilyU is the defects-per-unit chart (variable opportunity).
	FamilyU
	// FamilyEWMA is the exponentially weighted moving average chart.
	FamilyEWMA
	// FamilyCUSUM is the tabular cumulative sum chart.
	FamilyCUSUM
)

var familyNames = map[ChartFamily]string{
	FamilyXbarR: "xbar-r",
	FamilyXbarS: "xbar-s",
	FamilyIMR:   "i-mr",
	FamilyP:     "p",
	FamilyNP:    "np",
	FamilyC:     "c",
	FamilyU:     "u",
	FamilyEWMA:  "ewma",
	FamilyCUSUM: "cusum",
}

func (f ChartFamily) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}
	return fmt.Sprintf("family(%d)", int(f))
}

// Subgrouped reports whether the family reduces subgroups of measurements
// rather than scalar observations.
func (f ChartFamily) Subgrouped() bool {
	return f == FamilyXbarR || f == FamilyXbarS
}

// Attribute reports whether the family charts counts or proportions.
func (f ChartFamily) Attribute() bool {
	switch f {
	case FamilyP, FamilyNP, FamilyC, FamilyU:
		return true
	}
	return false
}

// Recursive reports whether the family carries memory between points.
func (f ChartFamily) Recursive() bool {
	return f == FamilyEWMA || f == FamilyCUSUM || f == FamilyIMR
}

// ChartSpec configures one chart evaluation. Family selects which of the
// remaining fields are meaningful; Validate enforces the per-family
// constraints before any computation runs.
type ChartSpec struct {
	Family ChartFamily

	// SubgroupSize is the expected n for subgrouped families and the
	// constant n for np charts. Zero means "take n from each observation".
	SubgroupSize int

	// Lambda is the EWMA smoothing constant, in (0, 1]. Lambda = 1
	// reduces the EWMA to a Shewhart chart on individuals.
	Lambda float64

	// K and H are the CUSUM reference value and decision interval, both
	// in the same units as the observations (not standardised).
	K float64
	H float64

	// L is the limit width multiplier. Zero means DefaultLimitWidth.
	L float64

	// Target is the process target: mu0 for variables/EWMA/CUSUM charts,
	// p0 for proportion charts, c0/u0 for count charts. For Shewhart
	// families it is ignored when limits are estimated from a reference
	// set. NaN or zero with TargetSet false means "estimate".
	Target    float64
	TargetSet bool

	// Sigma is the known process standard deviation for EWMA, CUSUM and
	// IMR charts. Zero means "estimate from the reference moving range".
	Sigma float64
}

// LimitWidth returns L, defaulting to the conventional 3-sigma width.
func (s ChartSpec) LimitWidth() float64 {
	if s.L == 0 {
		return DefaultLimitWidth
	}
	return s.L
}

// Validate checks the family-specific parameter constraints. It returns a
// *ValidationError naming the offending field.
func (s ChartSpec) Validate() error {
	if s.L < 0 || math.IsNaN(s.L) || math.IsInf(s.L, 0) {
		return &ValidationError{Field: "L", Msg: fmt.Sprintf("must be > 0, got %g", s.L)}
	}
	switch s.Family {
	case FamilyXbarR, FamilyXbarS:
		if s.SubgroupSize != 0 && s.SubgroupSize < 2 {
			return &ValidationError{Field: "SubgroupSize", Msg: fmt.Sprintf("must be >= 2 for %s charts, got %d", s.Family, s.SubgroupSize)}
		}
	case FamilyEWMA:
		if s.Lambda <= 0 || s.Lambda > 1 || math.IsNaN(s.Lambda) {
			return &ValidationError{Field: "Lambda", Msg: fmt.Sprintf("must be in (0,1], got %g", s.Lambda)}
		}
	case FamilyCUSUM:
		if s.K < 0 || math.IsNaN(s.K) {
			return &ValidationError{Field: "K", Msg: fmt.Sprintf("must be >= 0, got %g", s.K)}
		}
		if s.H <= 0 || math.IsNaN(s.H) {
			return &ValidationError{Field: "H", Msg: fmt.Sprintf("must be > 0, got %g", s.H)}
		}
	case FamilyIMR, FamilyP, FamilyNP, FamilyC, FamilyU:
		// No extra parameter constraints beyond L.
	default:
		return &ValidationError{Field: "Family", Msg: fmt.Sprintf("unknown chart family %d", int(s.Family))}
	}
	if s.Sigma < 0 || math.IsNaN(s.Sigma) {
		return &ValidationError{Field: "Sigma", Msg: fmt.Sprintf("must be >= 0, got %g", s.Sigma)}
	}
	return nil
}

// Name returns a short human-readable label for the configuration, used
// in reports and logs.
func (s ChartSpec) Name() string {
	switch s.Family {
	case FamilyEWMA:
		return fmt.Sprintf("ewma(lambda=%.3g,L=%.3g)", s.Lambda, s.LimitWidth())
	case FamilyCUSUM:
		return fmt.Sprintf("cusum(k=%.3g,h=%.3g)", s.K, s.H)
	case FamilyXbarR, FamilyXbarS:
		return fmt.Sprintf("%s(n=%d)", s.Family, s.SubgroupSize)
	default:
		return s.Family.String()
	}
}
