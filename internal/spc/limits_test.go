package spc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func refFromSubgroups(t *testing.T, spec ChartSpec, groups ...[]float64) []SubgroupStatistic {
	t.Helper()
	stream := make([]Observation, len(groups))
	for i, g := range groups {
		stream[i] = Grouped(i, g...)
	}
	stats, err := ReduceStream(stream, spec)
	require.NoError(t, err)
	return stats
}

func TestXbarRLimits(t *testing.T) {
	t.Parallel()

	spec := ChartSpec{Family: FamilyXbarR}
	ref := []SubgroupStatistic{
		{Index: 0, Value: 10, Dispersion: 2, SampleSize: 5},
		{Index: 1, Value: 12, Dispersion: 4, SampleSize: 5},
		{Index: 2, Value: 11, Dispersion: 3, SampleSize: 5},
	}
	ls, err := Limits(ref, spec)
	require.NoError(t, err)

	// Grand mean 11, R-bar 3, A2(5) = 0.577.
	assert.InDelta(t, 11.0, ls.Primary.Center, 1e-9)
	assert.InDelta(t, 11.0+0.577*3, ls.Primary.UCL, 1e-9)
	assert.InDelta(t, 11.0-0.577*3, ls.Primary.LCL, 1e-9)

	require.NotNil(t, ls.Dispersion)
	assert.InDelta(t, 3.0, ls.Dispersion.Center, 1e-9)
	assert.InDelta(t, 2.114*3, ls.Dispersion.UCL, 1e-9) // D4(5)
	assert.Zero(t, ls.Dispersion.LCL)                   // D3(5) = 0

	// Sigma estimate from R-bar / d2.
	assert.InDelta(t, 3/2.326, ls.Sigma, 1e-9)
}

func TestXbarLimitsRejectMixedSubgroupSizes(t *testing.T) {
	t.Parallel()

	// Subgroups of four and five would silently pick one row of the
	// constants table for both; reject like np/c do for variable n.
	spec := ChartSpec{Family: FamilyXbarR}
	ref := refFromSubgroups(t, spec,
		[]float64{4, 6, 5, 7},
		[]float64{5, 5, 6, 4, 6},
	)
	_, err := Limits(ref, spec)
	var invalid *InvalidSpecError
	require.ErrorAs(t, err, &invalid)

	// A declared subgroup size must match the reference subgroups.
	spec.SubgroupSize = 5
	ref = refFromSubgroups(t, spec,
		[]float64{4, 6, 5, 7},
		[]float64{5, 5, 6, 4},
	)
	_, err = Limits(ref, spec)
	assert.ErrorAs(t, err, &invalid)
}

func TestXbarSLimits(t *testing.T) {
	t.Parallel()

	spec := ChartSpec{Family: FamilyXbarS}
	ref := refFromSubgroups(t, spec,
		[]float64{4, 6, 5, 7},
		[]float64{5, 5, 6, 4},
		[]float64{6, 7, 5, 6},
	)
	ls, err := Limits(ref, spec)
	require.NoError(t, err)

	sBar := (ref[0].Dispersion + ref[1].Dispersion + ref[2].Dispersion) / 3
	grand := (ref[0].Value + ref[1].Value + ref[2].Value) / 3
	assert.InDelta(t, grand, ls.Primary.Center, 1e-9)
	assert.InDelta(t, grand+1.628*sBar, ls.Primary.UCL, 1e-6) // A3(4)
	require.NotNil(t, ls.Dispersion)
	assert.InDelta(t, 2.266*sBar, ls.Dispersion.UCL, 1e-6) // B4(4)
}

func TestIMRLimits(t *testing.T) {
	t.Parallel()

	spec := ChartSpec{Family: FamilyIMR}
	stream := []Observation{
		Individual(0, 10), Individual(1, 12), Individual(2, 11), Individual(3, 13),
	}
	stats, err := ReduceStream(stream, spec)
	require.NoError(t, err)
	ls, err := Limits(stats, spec)
	require.NoError(t, err)

	// MR-bar = (2+1+2)/3, sigma = MR-bar/1.128.
	mrBar := 5.0 / 3
	sigma := mrBar / 1.128
	assert.InDelta(t, 11.5, ls.Primary.Center, 1e-9)
	assert.InDelta(t, 11.5+3*sigma, ls.Primary.UCL, 1e-9)
	require.NotNil(t, ls.Dispersion)
	assert.InDelta(t, mrBar, ls.Dispersion.Center, 1e-9)
	assert.InDelta(t, 3.267*mrBar, ls.Dispersion.UCL, 1e-9)
	assert.Zero(t, ls.Dispersion.LCL)
}

func TestNPChartScenario(t *testing.T) {
	t.Parallel()

	// Constant n=100, p-bar 0.05: center 5, UCL 11.54, LCL clamped to 0.
	spec := ChartSpec{Family: FamilyNP}
	ref := make([]SubgroupStatistic, 10)
	for i := range ref {
		ref[i] = SubgroupStatistic{Index: i, Value: 5, SampleSize: 100}
	}
	ls, err := Limits(ref, spec)
	require.NoError(t, err)

	assert.InDelta(t, 5.0, ls.Primary.Center, 1e-9)
	assert.InDelta(t, 11.54, ls.Primary.UCL, 0.01)
	assert.Zero(t, ls.Primary.LCL)
	assert.True(t, ls.Primary.LCLClamped)
}

func TestNPChartRejectsVariableN(t *testing.T) {
	t.Parallel()

	ref := []SubgroupStatistic{
		{Index: 0, Value: 5, SampleSize: 100},
		{Index: 1, Value: 6, SampleSize: 120},
	}
	_, err := Limits(ref, ChartSpec{Family: FamilyNP})
	var invalid *InvalidSpecError
	assert.ErrorAs(t, err, &invalid)
}

func TestPChartVariableN(t *testing.T) {
	t.Parallel()

	spec := ChartSpec{Family: FamilyP}
	ref := []SubgroupStatistic{
		{Index: 0, Value: 0.05, SampleSize: 50},
		{Index: 1, Value: 0.05, SampleSize: 200},
	}
	ls, err := Limits(ref, spec)
	require.NoError(t, err)

	require.Len(t, ls.Primary.PointUCL, 2)
	// Smaller samples get wider limits.
	assert.Greater(t, ls.Primary.PointUCL[0], ls.Primary.PointUCL[1])

	ucl0, lcl0 := ls.Primary.BoundsAt(0)
	assert.Equal(t, ls.Primary.PointUCL[0], ucl0)
	assert.Equal(t, ls.Primary.PointLCL[0], lcl0)
}

func TestCChartClampsLCL(t *testing.T) {
	t.Parallel()

	ref := make([]SubgroupStatistic, 5)
	for i := range ref {
		ref[i] = SubgroupStatistic{Index: i, Value: 4, SampleSize: 1}
	}
	ls, err := Limits(ref, ChartSpec{Family: FamilyC})
	require.NoError(t, err)

	// c-bar 4: LCL = 4 - 3*2 = -2, clamped.
	assert.InDelta(t, 4.0, ls.Primary.Center, 1e-9)
	assert.InDelta(t, 10.0, ls.Primary.UCL, 1e-9)
	assert.Zero(t, ls.Primary.LCL)
	assert.True(t, ls.Primary.LCLClamped)
}

func TestUChartWeightedCenter(t *testing.T) {
	t.Parallel()

	ref := []SubgroupStatistic{
		{Index: 0, Value: 2, SampleSize: 1}, // 2 defects over 1 unit
		{Index: 1, Value: 1, SampleSize: 3}, // 3 defects over 3 units
	}
	ls, err := Limits(ref, ChartSpec{Family: FamilyU})
	require.NoError(t, err)

	// u-bar = (2 + 3) / (1 + 3).
	assert.InDelta(t, 1.25, ls.Primary.Center, 1e-9)
	require.Len(t, ls.Primary.PointUCL, 2)
	assert.Greater(t, ls.Primary.PointUCL[0], ls.Primary.PointUCL[1])
}

func TestEWMASteadyStateLimits(t *testing.T) {
	t.Parallel()

	spec := ChartSpec{
		Family: FamilyEWMA,
		Lambda: 0.20,
		L:      3,
		Target: 7.20, TargetSet: true,
		Sigma: 0.08,
	}
	ls, err := Limits(nil, spec)
	require.NoError(t, err)

	// sigma_Z = 0.08 * sqrt(0.2/1.8) = 0.02667.
	assert.InDelta(t, 7.20, ls.Primary.Center, 1e-9)
	assert.InDelta(t, 7.2800, ls.Primary.UCL, 1e-4)
	assert.InDelta(t, 7.1200, ls.Primary.LCL, 1e-4)
}

func TestEWMALimitsEstimatedFromReference(t *testing.T) {
	t.Parallel()

	spec := ChartSpec{Family: FamilyEWMA, Lambda: 0.2}
	ref := []SubgroupStatistic{
		{Index: 0, Value: 10}, {Index: 1, Value: 12}, {Index: 2, Value: 11},
	}
	ls, err := Limits(ref, spec)
	require.NoError(t, err)

	assert.InDelta(t, 11.0, ls.Primary.Center, 1e-9)
	assert.InDelta(t, 11.0, ls.Target, 1e-9)
	assert.Greater(t, ls.Sigma, 0.0)
}

func TestCUSUMBoundaryIsDecisionInterval(t *testing.T) {
	t.Parallel()

	spec := ChartSpec{
		Family: FamilyCUSUM,
		K:      0.5, H: 5,
		Target: 10, TargetSet: true,
		Sigma: 1,
	}
	ls, err := Limits(nil, spec)
	require.NoError(t, err)

	assert.Zero(t, ls.Primary.Center)
	assert.InDelta(t, 5.0, ls.Primary.UCL, 1e-9)
	assert.InDelta(t, -5.0, ls.Primary.LCL, 1e-9)
	assert.InDelta(t, 10.0, ls.Target, 1e-9)
}

func TestZeroVarianceReferenceIsValid(t *testing.T) {
	t.Parallel()

	spec := ChartSpec{Family: FamilyXbarR}
	ref := []SubgroupStatistic{
		{Index: 0, Value: 10, Dispersion: 0, SampleSize: 5},
		{Index: 1, Value: 10, Dispersion: 0, SampleSize: 5},
	}
	ls, err := Limits(ref, spec)
	require.NoError(t, err)
	assert.Equal(t, ls.Primary.Center, ls.Primary.UCL)
	assert.Equal(t, ls.Primary.Center, ls.Primary.LCL)
}

func TestLimitsValidatesSpec(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		spec ChartSpec
	}{
		{"lambda too large", ChartSpec{Family: FamilyEWMA, Lambda: 1.5}},
		{"lambda zero", ChartSpec{Family: FamilyEWMA}},
		{"negative L", ChartSpec{Family: FamilyIMR, L: -1}},
		{"cusum without H", ChartSpec{Family: FamilyCUSUM, K: 0.5}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Limits([]SubgroupStatistic{{Value: 1}}, tc.spec)
			var invalid *ValidationError
			assert.ErrorAs(t, err, &invalid)
		})
	}
}
