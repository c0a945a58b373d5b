package spc

// Observation is one position in a process stream: either a scalar value
// (individuals, counts, defectives) or a subgroup of measurements taken
// together. Observations are immutable once appended to a stream.
type Observation struct {
	// Index is the zero-based position in the stream. Streams are
	// processed strictly in Index order.
	Index int

	// UnixNanos is an optional sample timestamp, carried through to
	// results but never interpreted by the engine.
	UnixNanos int64

	// Value is the scalar measurement for non-subgrouped families. For
	// attribute charts it is the defective/defect count.
	Value float64

	// Subgroup holds the raw measurements for subgrouped families. When
	// non-empty it takes precedence over Value.
	Subgroup []float64

	// SampleSize is the per-point inspection size (p/np charts) or area
	// of opportunity (u charts). Zero falls back to ChartSpec.SubgroupSize.
	SampleSize int
}

// Individual builds a scalar observation.
func Individual(index int, value float64) Observation {
	return Observation{Index: index, Value: value}
}

// Grouped builds a subgroup observation.
func Grouped(index int, values ...float64) Observation {
	return Observation{Index: index, Subgroup: values}
}

// Counted builds an attribute observation: count defective (or defects)
// out of a per-point sample size.
func Counted(index int, count float64, sampleSize int) Observation {
	return Observation{Index: index, Value: count, SampleSize: sampleSize}
}

// SubgroupStatistic is the reduced per-sample statistic a chart plots:
// the subgroup mean for X-bar charts, the proportion for p charts, the
// raw value for individuals and recursive charts. Dispersion carries the
// companion statistic (range, std-dev) where one exists.
type SubgroupStatistic struct {
	Index int

	// Value is the primary plotted statistic.
	Value float64

	// Dispersion is the subgroup range (X-bar R), std-dev (X-bar S) or
	// NaN when the family has no within-sample dispersion statistic.
	Dispersion float64

	// SampleSize is the n the statistic was computed over. Variable-n
	// attribute charts use it to widen or narrow that point's limits.
	SampleSize int
}
