package spc

import "fmt"

// ValidationError reports a ChartSpec parameter outside its legal range
// (lambda not in (0,1], L <= 0, subgroup size below the family minimum).
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid spec: %s %s", e.Field, e.Msg)
}

// DegenerateInputError reports input too small to reduce: an empty stream,
// an empty subgroup, or a subgroup of one where a std-dev is required.
type DegenerateInputError struct {
	Msg string
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("degenerate input: %s", e.Msg)
}

// InvalidSpecError reports a spec/stream mismatch detected at limit time,
// e.g. an np or c chart applied to a stream with varying sample sizes.
type InvalidSpecError struct {
	Msg string
}

func (e *InvalidSpecError) Error() string {
	return fmt.Sprintf("invalid spec for stream: %s", e.Msg)
}

// UnsupportedSubgroupSizeError reports a constants lookup outside the
// classical table range. Callers may fall back to ApproxConstants rather
// than failing the whole run.
type UnsupportedSubgroupSizeError struct {
	N int
}

func (e *UnsupportedSubgroupSizeError) Error() string {
	return fmt.Sprintf("no control chart constants for subgroup size %d (table covers n=%d..%d)", e.N, MinTableSize, MaxTableSize)
}
