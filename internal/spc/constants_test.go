package spc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstantsLookup(t *testing.T) {
	t.Parallel()

	cases := []struct {
		n  int
		a2 float64
		d4 float64
		d2 float64
	}{
		{n: 2, a2: 1.880, d4: 3.267, d2: 1.128},
		{n: 5, a2: 0.577, d4: 2.114, d2: 2.326},
		{n: 10, a2: 0.308, d4: 1.777, d2: 3.078},
		{n: 25, a2: 0.153, d4: 1.541, d2: 3.931},
	}
	for _, tc := range cases {
		c, err := Constants(tc.n)
		require.NoError(t, err, "n=%d", tc.n)
		assert.InDelta(t, tc.a2, c.A2, 1e-9)
		assert.InDelta(t, tc.d4, c.D4, 1e-9)
		assert.InDelta(t, tc.d2, c.D2, 1e-9)
	}
}

func TestConstantsD3FloorsAtZero(t *testing.T) {
	t.Parallel()

	// Small subgroups have no lower range limit.
	for n := 2; n <= 6; n++ {
		c, err := Constants(n)
		require.NoError(t, err)
		assert.Zero(t, c.D3, "D3 for n=%d", n)
	}
	c, err := Constants(7)
	require.NoError(t, err)
	assert.Greater(t, c.D3, 0.0)
}

func TestConstantsUnsupportedSize(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 26, 100} {
		_, err := Constants(n)
		var unsupported *UnsupportedSubgroupSizeError
		require.ErrorAs(t, err, &unsupported, "n=%d", n)
		assert.Equal(t, n, unsupported.N)
	}
}

func TestApproxConstantsLargeSubgroup(t *testing.T) {
	t.Parallel()

	c, err := ApproxConstants(50)
	require.NoError(t, err)

	// c4(50) = 4*49/197.
	c4 := 4.0 * 49 / 197
	assert.InDelta(t, 3/(c4*7.0710678), c.A3, 1e-6)
	assert.Greater(t, c.B4, 1.0)
	assert.Less(t, c.B3, 1.0)
	assert.GreaterOrEqual(t, c.B3, 0.0)

	// Range factors have no asymptotic form.
	assert.True(t, c.A2 != c.A2, "A2 should be NaN")
	assert.True(t, c.D4 != c.D4, "D4 should be NaN")
}

func TestApproxConstantsDelegatesToTable(t *testing.T) {
	t.Parallel()

	got, err := ApproxConstants(5)
	require.NoError(t, err)
	want, err := Constants(5)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = ApproxConstants(1)
	var unsupported *UnsupportedSubgroupSizeError
	assert.True(t, errors.As(err, &unsupported))
}
