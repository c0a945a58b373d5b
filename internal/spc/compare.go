package spc

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/process.control/internal/monitoring"
)

// NoSignal marks a report field with no applicable index.
const NoSignal = -1

// DetectionReport summarises how one chart configuration performed on a
// stream: where it first signalled, how long after the assumed change
// point, and how often it signalled overall.
type DetectionReport struct {
	// RunID uniquely identifies this evaluation for downstream joins.
	RunID string `json:"run_id"`

	Spec     ChartSpec `json:"-"`
	SpecName string    `json:"spec"`

	// FirstSignalIndex is the stream index of the earliest signal, or
	// NoSignal when the chart never signalled.
	FirstSignalIndex int `json:"first_signal_index"`

	// DetectionDelay is the distance from the assumed change point to
	// the first signal at or after it. NoSignal when no change point was
	// supplied or nothing signalled after it.
	DetectionDelay int `json:"detection_delay"`

	// SignalCount is the total number of signalling points.
	SignalCount int `json:"signal_count"`

	// FalseSignals counts signals strictly before the change point.
	FalseSignals int `json:"false_signals"`

	// Err records a per-spec evaluation failure; the other specs in the
	// comparison are unaffected.
	Err error `json:"-"`
}

// Compare evaluates every spec against the same stream independently and
// in parallel. Each evaluation owns its RunState; nothing is shared.
//
// changePoint is the stream index where the process is assumed to have
// shifted; pass NoSignal when unknown. When supplied, limits are frozen
// from the pre-change prefix (the in-control segment); otherwise the
// whole stream serves as its own reference.
func Compare(stream []Observation, specs []ChartSpec, changePoint int) ([]DetectionReport, error) {
	if len(stream) == 0 {
		return nil, &DegenerateInputError{Msg: "empty stream"}
	}
	if len(specs) == 0 {
		return nil, &ValidationError{Field: "specs", Msg: "at least one chart spec required"}
	}

	reference := stream
	if changePoint > 0 && changePoint < len(stream) {
		reference = stream[:changePoint]
	}

	reports := make([]DetectionReport, len(specs))
	var wg sync.WaitGroup
	for i, spec := range specs {
		wg.Add(1)
		go func(i int, spec ChartSpec) {
			defer wg.Done()
			reports[i] = runOne(reference, stream, spec, changePoint)
		}(i, spec)
	}
	wg.Wait()

	return reports, nil
}

func runOne(reference, stream []Observation, spec ChartSpec, changePoint int) DetectionReport {
	report := DetectionReport{
		RunID:            uuid.New().String(),
		Spec:             spec,
		SpecName:         spec.Name(),
		FirstSignalIndex: NoSignal,
		DetectionDelay:   NoSignal,
	}

	refStats, err := ReduceStream(reference, spec)
	if err != nil {
		report.Err = fmt.Errorf("reducing reference: %w", err)
		return report
	}
	limits, err := Limits(refStats, spec)
	if err != nil {
		report.Err = fmt.Errorf("computing limits: %w", err)
		return report
	}
	result, err := RunWithLimits(stream, spec, limits)
	if err != nil {
		report.Err = fmt.Errorf("evaluating stream: %w", err)
		return report
	}

	report.SignalCount = len(result.Signals)
	if len(result.Signals) > 0 {
		report.FirstSignalIndex = result.Signals[0].Index
	}
	if changePoint >= 0 {
		for _, sig := range result.Signals {
			if sig.Index < changePoint {
				report.FalseSignals++
				continue
			}
			if report.DetectionDelay == NoSignal {
				report.DetectionDelay = sig.Index - changePoint
			}
		}
	}
	return report
}

// RecommendEWMA ranks a grid of EWMA smoothing constants on a stream with
// a known change point and returns the spec with the smallest detection
// delay among those whose false-signal rate on the in-control prefix
// stays within budget. All reports are returned alongside the winner so
// callers can inspect the full ranking.
func RecommendEWMA(stream []Observation, changePoint int, lambdas []float64, limitWidth, maxFalseRate float64) (ChartSpec, []DetectionReport, error) {
	if changePoint <= 0 || changePoint >= len(stream) {
		return ChartSpec{}, nil, &ValidationError{
			Field: "changePoint",
			Msg:   fmt.Sprintf("must lie inside the stream, got %d of %d", changePoint, len(stream)),
		}
	}
	if len(lambdas) == 0 {
		return ChartSpec{}, nil, &ValidationError{Field: "lambdas", Msg: "empty grid"}
	}

	specs := make([]ChartSpec, len(lambdas))
	for i, lambda := range lambdas {
		specs[i] = ChartSpec{Family: FamilyEWMA, Lambda: lambda, L: limitWidth}
	}
	reports, err := Compare(stream, specs, changePoint)
	if err != nil {
		return ChartSpec{}, nil, err
	}

	best := -1
	for i, r := range reports {
		if r.Err != nil || r.DetectionDelay == NoSignal {
			continue
		}
		falseRate := float64(r.FalseSignals) / float64(changePoint)
		if falseRate > maxFalseRate {
			monitoring.Logf("spc: %s disqualified, false-signal rate %.4f over budget %.4f", r.SpecName, falseRate, maxFalseRate)
			continue
		}
		if best == -1 || r.DetectionDelay < reports[best].DetectionDelay {
			best = i
		}
	}
	if best == -1 {
		return ChartSpec{}, reports, &DegenerateInputError{Msg: "no candidate detected the change within the false-signal budget"}
	}
	return reports[best].Spec, reports, nil
}

// RankByDelay orders reports by detection delay, undetected last. The
// input is not modified.
func RankByDelay(reports []DetectionReport) []DetectionReport {
	ranked := make([]DetectionReport, len(reports))
	copy(ranked, reports)
	sort.SliceStable(ranked, func(i, j int) bool {
		di, dj := ranked[i].DetectionDelay, ranked[j].DetectionDelay
		if di == NoSignal {
			return false
		}
		if dj == NoSignal {
			return true
		}
		return di < dj
	})
	return ranked
}
