package spc

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Reduce converts one raw observation into the per-sample statistic the
// spec's chart family plots. It fails fast on malformed input (empty
// subgroups, n < 2 where a std-dev is required, non-positive sample
// sizes); the caller decides whether to skip the point or halt.
func Reduce(obs Observation, spec ChartSpec) (SubgroupStatistic, error) {
	switch spec.Family {
	case FamilyXbarR:
		return reduceSubgroup(obs, false)
	case FamilyXbarS:
		return reduceSubgroup(obs, true)
	case FamilyIMR, FamilyEWMA, FamilyCUSUM:
		return reduceScalar(obs)
	case FamilyP, FamilyNP:
		return reduceDefectives(obs, spec)
	case FamilyC:
		return reduceCounts(obs, spec, false)
	case FamilyU:
		return reduceCounts(obs, spec, true)
	default:
		return SubgroupStatistic{}, &ValidationError{Field: "Family", Msg: fmt.Sprintf("unknown chart family %d", int(spec.Family))}
	}
}

// ReduceStream reduces a whole stream in order, surfacing the first
// per-observation failure.
func ReduceStream(stream []Observation, spec ChartSpec) ([]SubgroupStatistic, error) {
	if len(stream) == 0 {
		return nil, &DegenerateInputError{Msg: "empty stream"}
	}
	stats := make([]SubgroupStatistic, len(stream))
	for i, obs := range stream {
		s, err := Reduce(obs, spec)
		if err != nil {
			return nil, fmt.Errorf("observation %d: %w", obs.Index, err)
		}
		stats[i] = s
	}
	return stats, nil
}

func reduceSubgroup(obs Observation, wantStdDev bool) (SubgroupStatistic, error) {
	n := len(obs.Subgroup)
	if n < 2 {
		return SubgroupStatistic{}, &DegenerateInputError{
			Msg: fmt.Sprintf("subgroup of %d at index %d, need >= 2 measurements", n, obs.Index),
		}
	}
	mean := stat.Mean(obs.Subgroup, nil)
	var dispersion float64
	if wantStdDev {
		// stat.StdDev applies Bessel's correction (divides by n-1).
		dispersion = stat.StdDev(obs.Subgroup, nil)
	} else {
		dispersion = floats.Max(obs.Subgroup) - floats.Min(obs.Subgroup)
	}
	return SubgroupStatistic{Index: obs.Index, Value: mean, Dispersion: dispersion, SampleSize: n}, nil
}

func reduceScalar(obs Observation) (SubgroupStatistic, error) {
	if len(obs.Subgroup) > 0 {
		return SubgroupStatistic{}, &DegenerateInputError{
			Msg: fmt.Sprintf("subgroup supplied at index %d for a scalar chart family", obs.Index),
		}
	}
	if math.IsNaN(obs.Value) || math.IsInf(obs.Value, 0) {
		return SubgroupStatistic{}, &DegenerateInputError{
			Msg: fmt.Sprintf("non-finite value at index %d", obs.Index),
		}
	}
	return SubgroupStatistic{Index: obs.Index, Value: obs.Value, Dispersion: math.NaN(), SampleSize: 1}, nil
}

func reduceDefectives(obs Observation, spec ChartSpec) (SubgroupStatistic, error) {
	n := obs.SampleSize
	if n == 0 {
		n = spec.SubgroupSize
	}
	if n <= 0 {
		return SubgroupStatistic{}, &DegenerateInputError{
			Msg: fmt.Sprintf("no sample size at index %d for %s chart", obs.Index, spec.Family),
		}
	}
	if obs.Value < 0 || obs.Value > float64(n) {
		return SubgroupStatistic{}, &DegenerateInputError{
			Msg: fmt.Sprintf("defective count %g outside [0,%d] at index %d", obs.Value, n, obs.Index),
		}
	}
	value := obs.Value
	if spec.Family == FamilyP {
		value = obs.Value / float64(n)
	}
	return SubgroupStatistic{Index: obs.Index, Value: value, Dispersion: math.NaN(), SampleSize: n}, nil
}

func reduceCounts(obs Observation, spec ChartSpec, perUnit bool) (SubgroupStatistic, error) {
	if obs.Value < 0 || math.IsNaN(obs.Value) {
		return SubgroupStatistic{}, &DegenerateInputError{
			Msg: fmt.Sprintf("defect count %g at index %d must be >= 0", obs.Value, obs.Index),
		}
	}
	n := obs.SampleSize
	if n == 0 {
		n = spec.SubgroupSize
	}
	if !perUnit {
		// c chart: constant area of opportunity, raw count.
		if n == 0 {
			n = 1
		}
		return SubgroupStatistic{Index: obs.Index, Value: obs.Value, Dispersion: math.NaN(), SampleSize: n}, nil
	}
	if n <= 0 {
		return SubgroupStatistic{}, &DegenerateInputError{
			Msg: fmt.Sprintf("no area of opportunity at index %d for u chart", obs.Index),
		}
	}
	return SubgroupStatistic{Index: obs.Index, Value: obs.Value / float64(n), Dispersion: math.NaN(), SampleSize: n}, nil
}
