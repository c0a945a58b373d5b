package simulate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/process.control/internal/spc"
)

func TestIndividualsDeterministicPerSeed(t *testing.T) {
	t.Parallel()

	p := Process{Mean: 10, Sigma: 2, N: 50, ChangePoint: -1, Seed: 42}
	first := p.Individuals()
	second := p.Individuals()
	require.Len(t, first, 50)
	for i := range first {
		assert.Equal(t, first[i].Value, second[i].Value, "index %d", i)
		assert.Equal(t, i, first[i].Index)
	}

	p.Seed = 43
	other := p.Individuals()
	assert.NotEqual(t, first[0].Value, other[0].Value, "different seeds produce different streams")
}

func TestIndividualsStepShift(t *testing.T) {
	t.Parallel()

	p := Process{Mean: 0, Sigma: 1, N: 400, ChangePoint: 200, ShiftSigma: 3, Seed: 7}
	stream := p.Individuals()

	var before, after float64
	for i, obs := range stream {
		if i < 200 {
			before += obs.Value
		} else {
			after += obs.Value
		}
	}
	before /= 200
	after /= 200

	// A 3-sigma shift over 200 points dwarfs the sampling noise of the
	// two segment means.
	assert.InDelta(t, 0, before, 0.5)
	assert.InDelta(t, 3, after, 0.5)
}

func TestIndividualsDriftAccumulates(t *testing.T) {
	t.Parallel()

	p := Process{Mean: 5, Sigma: 1, N: 120, ChangePoint: 20, DriftSigmaPerStep: 0.1, Seed: 9}
	stream := p.Individuals()

	var tail float64
	for _, obs := range stream[110:] {
		tail += obs.Value
	}
	tail /= 10

	// By index 110 the drift has accumulated at least 9 sigma.
	assert.Greater(t, tail, 10.0)
}

func TestSubgroupsShape(t *testing.T) {
	t.Parallel()

	p := Process{Mean: 1, Sigma: 0.5, N: 30, ChangePoint: -1, Seed: 3}
	stream := p.Subgroups(5)
	require.Len(t, stream, 30)
	for i, obs := range stream {
		assert.Equal(t, i, obs.Index)
		assert.Len(t, obs.Subgroup, 5)
	}
}

func TestDefectivesWithinSampleSize(t *testing.T) {
	t.Parallel()

	stream := Defectives(100, 50, 0.05, 0.15, 60, 21)
	require.Len(t, stream, 100)
	for _, obs := range stream {
		assert.Equal(t, 50, obs.SampleSize)
		assert.GreaterOrEqual(t, obs.Value, 0.0)
		assert.LessOrEqual(t, obs.Value, 50.0)
	}

	// The defect probability tripled at the change point; the post-change
	// average count should reflect that.
	var before, after float64
	for i, obs := range stream {
		if i < 60 {
			before += obs.Value
		} else {
			after += obs.Value
		}
	}
	assert.Greater(t, after/40, before/60)
}

func TestDefectsNonNegativeCounts(t *testing.T) {
	t.Parallel()

	stream := Defects(80, 4, 9, 40, 13)
	require.Len(t, stream, 80)
	for _, obs := range stream {
		assert.GreaterOrEqual(t, obs.Value, 0.0)
		assert.Equal(t, obs.Value, float64(int(obs.Value)), "counts are integral")
		assert.Equal(t, 1, obs.SampleSize)
	}
}

func TestSimulatedStreamFeedsCharts(t *testing.T) {
	t.Parallel()

	p := Process{Mean: 20, Sigma: 2, N: 150, ChangePoint: 100, ShiftSigma: 2.5, Seed: 5}
	stream := p.Individuals()

	spec := spc.ChartSpec{Family: spc.FamilyCUSUM, K: 0.5, H: 5, Target: 20, TargetSet: true, Sigma: 2}
	reports, err := spc.Compare(stream, []spc.ChartSpec{spec}, 100)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.NoError(t, reports[0].Err)
	assert.NotEqual(t, spc.NoSignal, reports[0].DetectionDelay)
}
