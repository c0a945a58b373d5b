package spc

import "math"

// ChartConstants are the distribution-derived factors used to convert a
// mean range or mean std-dev into 3-sigma control limits for subgrouped
// variables charts. Values follow the classical SPC tables.
type ChartConstants struct {
	A2 float64 // X-bar limits from R-bar
	A3 float64 // X-bar limits from S-bar
	B3 float64 // S chart lower factor
	B4 float64 // S chart upper factor
	D3 float64 // R chart lower factor
	D4 float64 // R chart upper factor
	D2 float64 // d2: E[R]/sigma, used to estimate sigma from ranges
}

// Supported range of the constants table.
const (
	MinTableSize = 2
	MaxTableSize = 25
)

// DefaultLimitWidth is the conventional limit multiplier (3-sigma limits).
const DefaultLimitWidth = 3.0

// chartConstantsTable indexes ChartConstants by subgroup size n, n=2..25.
var chartConstantsTable = map[int]ChartConstants{
	2:  {A2: 1.880, A3: 2.659, B3: 0.000, B4: 3.267, D3: 0.000, D4: 3.267, D2: 1.128},
	3:  {A2: 1.023, A3: 1.954, B3: 0.000, B4: 2.568, D3: 0.000, D4: 2.574, D2: 1.693},
	4:  {A2: 0.729, A3: 1.628, B3: 0.000, B4: 2.266, D3: 0.000, D4: 2.282, D2: 2.059},
	5:  {A2: 0.577, A3: 1.427, B3: 0.000, B4: 2.089, D3: 0.000, D4: 2.114, D2: 2.326},
	6:  {A2: 0.483, A3: 1.287, B3: 0.030, B4: 1.970, D3: 0.000, D4: 2.004, D2: 2.534},
	7:  {A2: 0.419, A3: 1.182, B3: 0.118, B4: 1.882, D3: 0.076, D4: 1.924, D2: 2.704},
	8:  {A2: 0.373, A3: 1.099, B3: 0.185, B4: 1.815, D3: 0.136, D4: 1.864, D2: 2.847},
	9:  {A2: 0.337, A3: 1.032, B3: 0.239, B4: 1.761, D3: 0.184, D4: 1.816, D2: 2.970},
	10: {A2: 0.308, A3: 0.975, B3: 0.284, B4: 1.716, D3: 0.223, D4: 1.777, D2: 3.078},
	11: {A2: 0.285, A3: 0.927, B3: 0.321, B4: 1.679, D3: 0.256, D4: 1.744, D2: 3.173},
	12: {A2: 0.266, A3: 0.886, B3: 0.354, B4: 1.646, D3: 0.283, D4: 1.717, D2: 3.258},
	13: {A2: 0.249, A3: 0.850, B3: 0.382, B4: 1.618, D3: 0.307, D4: 1.693, D2: 3.336},
	14: {A2: 0.235, A3: 0.817, B3: 0.406, B4: 1.594, D3: 0.328, D4: 1.672, D2: 3.407},
	15: {A2: 0.223, A3: 0.789, B3: 0.428, B4: 1.572, D3: 0.347, D4: 1.653, D2: 3.472},
	16: {A2: 0.212, A3: 0.763, B3: 0.448, B4: 1.552, D3: 0.363, D4: 1.637, D2: 3.532},
	17: {A2: 0.203, A3: 0.739, B3: 0.466, B4: 1.534, D3: 0.378, D4: 1.622, D2: 3.588},
	18: {A2: 0.194, A3: 0.718, B3: 0.482, B4: 1.518, D3: 0.391, D4: 1.608, D2: 3.640},
	19: {A2: 0.187, A3: 0.698, B3: 0.497, B4: 1.503, D3: 0.403, D4: 1.597, D2: 3.689},
	20: {A2: 0.180, A3: 0.680, B3: 0.510, B4: 1.490, D3: 0.415, D4: 1.585, D2: 3.735},
	21: {A2: 0.173, A3: 0.663, B3: 0.523, B4: 1.477, D3: 0.425, D4: 1.575, D2: 3.778},
	22: {A2: 0.167, A3: 0.647, B3: 0.534, B4: 1.466, D3: 0.434, D4: 1.566, D2: 3.819},
	23: {A2: 0.162, A3: 0.633, B3: 0.545, B4: 1.455, D3: 0.443, D4: 1.557, D2: 3.858},
	24: {A2: 0.157, A3: 0.619, B3: 0.555, B4: 1.445, D3: 0.451, D4: 1.548, D2: 3.895},
	25: {A2: 0.153, A3: 0.606, B3: 0.565, B4: 1.435, D3: 0.459, D4: 1.541, D2: 3.931},
}

// Constants returns the table entry for subgroup size n. Sizes outside
// n=2..25 return *UnsupportedSubgroupSizeError; callers that can tolerate
// an approximation should fall back to ApproxConstants.
func Constants(n int) (ChartConstants, error) {
	c, ok := chartConstantsTable[n]
	if !ok {
		return ChartConstants{}, &UnsupportedSubgroupSizeError{N: n}
	}
	return c, nil
}

// ApproxConstants returns normal-approximation constants for large
// subgroups (n > 25), derived from c4(n) ~= 4(n-1)/(4n-3). Range-based
// factors (A2, D3, D4, D2) have no useful asymptotic form at these sizes;
// they are returned as NaN and the S chart factors should be used instead.
func ApproxConstants(n int) (ChartConstants, error) {
	if n <= MaxTableSize {
		return Constants(n)
	}
	c4 := 4 * float64(n-1) / (4*float64(n) - 3)
	spread := 3 / (c4 * math.Sqrt(2*float64(n-1)))
	return ChartConstants{
		A2: math.NaN(),
		A3: 3 / (c4 * math.Sqrt(float64(n))),
		B3: math.Max(0, 1-spread),
		B4: 1 + spread,
		D3: math.NaN(),
		D4: math.NaN(),
		D2: math.NaN(),
	}, nil
}
