package spc

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ControlLimits holds a chart's center line and control boundaries.
// Constant-n charts carry a single triple; variable-n attribute charts
// additionally carry per-point bounds aligned to the reference stream.
type ControlLimits struct {
	Center float64
	UCL    float64
	LCL    float64

	// PointUCL/PointLCL are per-point bounds for variable-n charts,
	// parallel to the reference statistics. Nil when limits are constant.
	PointUCL []float64
	PointLCL []float64

	// LCLClamped is set when a computed lower limit fell below the
	// statistic's natural floor (0 for counts and proportions) and was
	// clamped. A recoverable, flagged condition, not an error.
	LCLClamped bool
}

// BoundsAt returns the limits applying to point i.
func (l ControlLimits) BoundsAt(i int) (ucl, lcl float64) {
	if l.PointUCL != nil && i >= 0 && i < len(l.PointUCL) {
		return l.PointUCL[i], l.PointLCL[i]
	}
	return l.UCL, l.LCL
}

// LimitSet bundles a chart's primary limits with the companion dispersion
// chart (R, S or MR) where the family has one, plus the process sigma the
// limits were derived from (supplied or estimated).
type LimitSet struct {
	Primary    ControlLimits
	Dispersion *ControlLimits

	// Target is the resolved process target the limits were built
	// around. For CUSUM the Primary center is the accumulator zero line,
	// so the target must travel separately.
	Target float64

	// Sigma is the process sigma the limits were derived from, supplied
	// or estimated.
	Sigma float64
}

// Limits computes control limits for the spec from a reference statistic
// set (the output of Reduce over an in-control segment) or, for EWMA and
// CUSUM with Target/Sigma supplied, from steady-state parameters alone.
func Limits(ref []SubgroupStatistic, spec ChartSpec) (LimitSet, error) {
	if err := spec.Validate(); err != nil {
		return LimitSet{}, err
	}
	switch spec.Family {
	case FamilyXbarR:
		return xbarLimits(ref, spec, false)
	case FamilyXbarS:
		return xbarLimits(ref, spec, true)
	case FamilyIMR:
		return imrLimits(ref, spec)
	case FamilyP:
		return pLimits(ref, spec)
	case FamilyNP:
		return npLimits(ref, spec)
	case FamilyC:
		return cLimits(ref, spec)
	case FamilyU:
		return uLimits(ref, spec)
	case FamilyEWMA:
		return ewmaLimits(ref, spec)
	case FamilyCUSUM:
		return cusumLimits(ref, spec)
	default:
		return LimitSet{}, &ValidationError{Field: "Family", Msg: fmt.Sprintf("unknown chart family %d", int(spec.Family))}
	}
}

func requireReference(ref []SubgroupStatistic) error {
	if len(ref) == 0 {
		return &DegenerateInputError{Msg: "empty reference statistic set"}
	}
	return nil
}

// widthScale maps the spec's L onto table constants, which bake in the
// conventional 3-sigma width.
func widthScale(spec ChartSpec) float64 {
	return spec.LimitWidth() / DefaultLimitWidth
}

func xbarLimits(ref []SubgroupStatistic, spec ChartSpec, useStdDev bool) (LimitSet, error) {
	if err := requireReference(ref); err != nil {
		return LimitSet{}, err
	}
	// The table constants assume one n for the whole reference; mixed
	// subgroup sizes would silently apply the wrong factors.
	if !constantSampleSize(ref) {
		return LimitSet{}, &InvalidSpecError{Msg: fmt.Sprintf("%s chart requires a constant subgroup size", spec.Family)}
	}
	n := spec.SubgroupSize
	if n == 0 {
		n = ref[0].SampleSize
	} else if n != ref[0].SampleSize {
		return LimitSet{}, &InvalidSpecError{
			Msg: fmt.Sprintf("reference subgroups have size %d, spec declares %d", ref[0].SampleSize, n),
		}
	}
	c, err := Constants(n)
	if err != nil {
		return LimitSet{}, err
	}

	means := make([]float64, len(ref))
	disps := make([]float64, len(ref))
	for i, s := range ref {
		means[i] = s.Value
		disps[i] = s.Dispersion
	}
	grand := stat.Mean(means, nil)
	dispBar := stat.Mean(disps, nil)

	var halfWidth, dUpper, dLower, sigma float64
	if useStdDev {
		halfWidth = widthScale(spec) * c.A3 * dispBar
		dUpper = c.B4 * dispBar
		dLower = c.B3 * dispBar
		// c4 ~= 4(n-1)/(4n-3) converts S-bar to a sigma estimate.
		c4 := 4 * float64(n-1) / (4*float64(n) - 3)
		sigma = dispBar / c4
	} else {
		halfWidth = widthScale(spec) * c.A2 * dispBar
		dUpper = c.D4 * dispBar
		dLower = c.D3 * dispBar
		sigma = dispBar / c.D2
	}

	return LimitSet{
		Primary: ControlLimits{Center: grand, UCL: grand + halfWidth, LCL: grand - halfWidth},
		Dispersion: &ControlLimits{
			Center: dispBar,
			UCL:    dUpper,
			LCL:    math.Max(0, dLower),
		},
		Target: grand,
		Sigma:  sigma,
	}, nil
}

func imrLimits(ref []SubgroupStatistic, spec ChartSpec) (LimitSet, error) {
	c2, _ := Constants(2) // moving ranges span two points

	// Known parameters need no reference segment; the expected moving
	// range of a normal process is d2(2)*sigma.
	if spec.TargetSet && spec.Sigma > 0 {
		center := spec.Target
		half := spec.LimitWidth() * spec.Sigma
		mrBar := c2.D2 * spec.Sigma
		return LimitSet{
			Primary: ControlLimits{Center: center, UCL: center + half, LCL: center - half},
			Dispersion: &ControlLimits{
				Center: mrBar,
				UCL:    c2.D4 * mrBar,
				LCL:    0,
			},
			Target: center,
			Sigma:  spec.Sigma,
		}, nil
	}

	if err := requireReference(ref); err != nil {
		return LimitSet{}, err
	}
	values := make([]float64, len(ref))
	for i, s := range ref {
		values[i] = s.Value
	}
	center := stat.Mean(values, nil)
	if spec.TargetSet {
		center = spec.Target
	}
	mrBar, err := meanMovingRange(values)
	if err != nil {
		return LimitSet{}, err
	}

	sigma := spec.Sigma
	if sigma == 0 {
		sigma = mrBar / c2.D2
	}
	half := spec.LimitWidth() * sigma

	return LimitSet{
		Primary: ControlLimits{Center: center, UCL: center + half, LCL: center - half},
		Dispersion: &ControlLimits{
			Center: mrBar,
			UCL:    c2.D4 * mrBar,
			LCL:    0,
		},
		Target: center,
		Sigma:  sigma,
	}, nil
}

func pLimits(ref []SubgroupStatistic, spec ChartSpec) (LimitSet, error) {
	if err := requireReference(ref); err != nil {
		return LimitSet{}, err
	}
	var defectives, inspected float64
	for _, s := range ref {
		defectives += s.Value * float64(s.SampleSize)
		inspected += float64(s.SampleSize)
	}
	if inspected == 0 {
		return LimitSet{}, &DegenerateInputError{Msg: "p chart reference has zero total sample size"}
	}
	pBar := defectives / inspected

	limits := ControlLimits{Center: pBar}
	if constantSampleSize(ref) {
		half := spec.LimitWidth() * math.Sqrt(pBar*(1-pBar)/float64(ref[0].SampleSize))
		limits.UCL = math.Min(1, pBar+half)
		limits.LCL = pBar - half
		if limits.LCL < 0 {
			limits.LCL = 0
			limits.LCLClamped = true
		}
	} else {
		limits.PointUCL = make([]float64, len(ref))
		limits.PointLCL = make([]float64, len(ref))
		for i, s := range ref {
			half := spec.LimitWidth() * math.Sqrt(pBar*(1-pBar)/float64(s.SampleSize))
			limits.PointUCL[i] = math.Min(1, pBar+half)
			lcl := pBar - half
			if lcl < 0 {
				lcl = 0
				limits.LCLClamped = true
			}
			limits.PointLCL[i] = lcl
		}
		// Representative constant bounds for callers that want a single
		// triple; per-point values govern evaluation.
		limits.UCL = limits.PointUCL[0]
		limits.LCL = limits.PointLCL[0]
	}
	return LimitSet{Primary: limits, Target: pBar}, nil
}

func npLimits(ref []SubgroupStatistic, spec ChartSpec) (LimitSet, error) {
	if err := requireReference(ref); err != nil {
		return LimitSet{}, err
	}
	if !constantSampleSize(ref) {
		return LimitSet{}, &InvalidSpecError{Msg: "np chart requires a constant sample size"}
	}
	n := float64(ref[0].SampleSize)
	var defectives float64
	for _, s := range ref {
		defectives += s.Value
	}
	pBar := defectives / (n * float64(len(ref)))
	center := n * pBar
	half := spec.LimitWidth() * math.Sqrt(n*pBar*(1-pBar))

	limits := ControlLimits{Center: center, UCL: center + half, LCL: center - half}
	if limits.LCL < 0 {
		limits.LCL = 0
		limits.LCLClamped = true
	}
	return LimitSet{Primary: limits, Target: center}, nil
}

func cLimits(ref []SubgroupStatistic, spec ChartSpec) (LimitSet, error) {
	if err := requireReference(ref); err != nil {
		return LimitSet{}, err
	}
	if !constantSampleSize(ref) {
		return LimitSet{}, &InvalidSpecError{Msg: "c chart requires a constant area of opportunity"}
	}
	values := make([]float64, len(ref))
	for i, s := range ref {
		values[i] = s.Value
	}
	cBar := stat.Mean(values, nil)
	if spec.TargetSet {
		cBar = spec.Target
	}
	half := spec.LimitWidth() * math.Sqrt(cBar)

	limits := ControlLimits{Center: cBar, UCL: cBar + half, LCL: cBar - half}
	if limits.LCL < 0 {
		limits.LCL = 0
		limits.LCLClamped = true
	}
	return LimitSet{Primary: limits, Target: cBar}, nil
}

func uLimits(ref []SubgroupStatistic, spec ChartSpec) (LimitSet, error) {
	if err := requireReference(ref); err != nil {
		return LimitSet{}, err
	}
	var counts, units float64
	for _, s := range ref {
		counts += s.Value * float64(s.SampleSize)
		units += float64(s.SampleSize)
	}
	if units == 0 {
		return LimitSet{}, &DegenerateInputError{Msg: "u chart reference has zero total opportunity"}
	}
	uBar := counts / units

	limits := ControlLimits{Center: uBar}
	if constantSampleSize(ref) {
		half := spec.LimitWidth() * math.Sqrt(uBar/float64(ref[0].SampleSize))
		limits.UCL = uBar + half
		limits.LCL = uBar - half
		if limits.LCL < 0 {
			limits.LCL = 0
			limits.LCLClamped = true
		}
	} else {
		limits.PointUCL = make([]float64, len(ref))
		limits.PointLCL = make([]float64, len(ref))
		for i, s := range ref {
			half := spec.LimitWidth() * math.Sqrt(uBar/float64(s.SampleSize))
			limits.PointUCL[i] = uBar + half
			lcl := uBar - half
			if lcl < 0 {
				lcl = 0
				limits.LCLClamped = true
			}
			limits.PointLCL[i] = lcl
		}
		limits.UCL = limits.PointUCL[0]
		limits.LCL = limits.PointLCL[0]
	}
	return LimitSet{Primary: limits, Target: uBar}, nil
}

// ewmaLimits uses the steady-state EWMA variance sigma^2 * lambda/(2-lambda)
// for every point rather than the exact time-varying variance at finite i.
// This understates the width for early points; it is kept deliberately
// because detection-delay comparisons elsewhere assume it.
func ewmaLimits(ref []SubgroupStatistic, spec ChartSpec) (LimitSet, error) {
	target, sigma, err := resolveTargetSigma(ref, spec)
	if err != nil {
		return LimitSet{}, err
	}
	sigmaZ := sigma * math.Sqrt(spec.Lambda/(2-spec.Lambda))
	half := spec.LimitWidth() * sigmaZ
	return LimitSet{
		Primary: ControlLimits{Center: target, UCL: target + half, LCL: target - half},
		Target:  target,
		Sigma:   sigma,
	}, nil
}

// cusumLimits carries the decision interval as the accumulator boundary:
// the chart has no UCL/LCL in the Shewhart sense, the evaluator compares
// C+ and C- against H.
func cusumLimits(ref []SubgroupStatistic, spec ChartSpec) (LimitSet, error) {
	target, sigma, err := resolveTargetSigma(ref, spec)
	if err != nil {
		return LimitSet{}, err
	}
	return LimitSet{
		Primary: ControlLimits{Center: 0, UCL: spec.H, LCL: -spec.H},
		Target:  target,
		Sigma:   sigma,
	}, nil
}

// resolveTargetSigma yields the process target and sigma for the memory
// charts: supplied values win, otherwise both are estimated from the
// reference segment (sigma via the mean moving range over d2 at n=2).
func resolveTargetSigma(ref []SubgroupStatistic, spec ChartSpec) (target, sigma float64, err error) {
	target = spec.Target
	sigma = spec.Sigma
	if spec.TargetSet && sigma > 0 {
		return target, sigma, nil
	}
	if err := requireReference(ref); err != nil {
		return 0, 0, err
	}
	values := make([]float64, len(ref))
	for i, s := range ref {
		values[i] = s.Value
	}
	if !spec.TargetSet {
		target = stat.Mean(values, nil)
	}
	if sigma == 0 {
		mrBar, mrErr := meanMovingRange(values)
		if mrErr != nil {
			return 0, 0, mrErr
		}
		c2, _ := Constants(2)
		sigma = mrBar / c2.D2
	}
	return target, sigma, nil
}

func meanMovingRange(values []float64) (float64, error) {
	if len(values) < 2 {
		return 0, &DegenerateInputError{Msg: "need >= 2 points to form a moving range"}
	}
	var sum float64
	for i := 1; i < len(values); i++ {
		sum += math.Abs(values[i] - values[i-1])
	}
	return sum / float64(len(values)-1), nil
}

func constantSampleSize(ref []SubgroupStatistic) bool {
	for _, s := range ref[1:] {
		if s.SampleSize != ref[0].SampleSize {
			return false
		}
	}
	return true
}
