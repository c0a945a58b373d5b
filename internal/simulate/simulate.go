// Package simulate generates synthetic process streams for detection
// experiments: in-control noise, step shifts and linear drifts for
// variables charts, plus binomial defectives and Poisson defect counts
// for attribute charts. Generation is deterministic for a given seed.
package simulate

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/process.control/internal/spc"
)

// Process describes a simulated measurement process. The stream is
// in-control at Mean/Sigma up to ChangePoint, after which ShiftSigma is
// added once and DriftSigmaPerStep accumulates per step (both expressed
// in sigma units; either may be zero).
type Process struct {
	Mean  float64
	Sigma float64

	// N is the number of observations to generate.
	N int

	// ChangePoint is the index at which the disturbance begins. Use a
	// value >= N (or negative) for a fully in-control stream.
	ChangePoint int

	// ShiftSigma is a one-time step shift applied from ChangePoint on.
	ShiftSigma float64

	// DriftSigmaPerStep is a linear drift accumulating from ChangePoint.
	DriftSigmaPerStep float64

	Seed uint64
}

// meanAt returns the true process mean at index i.
func (p Process) meanAt(i int) float64 {
	if p.ChangePoint < 0 || i < p.ChangePoint {
		return p.Mean
	}
	steps := float64(i - p.ChangePoint + 1)
	return p.Mean + p.ShiftSigma*p.Sigma + p.DriftSigmaPerStep*p.Sigma*steps
}

// Individuals generates a stream of scalar observations.
func (p Process) Individuals() []spc.Observation {
	normal := distuv.Normal{Mu: 0, Sigma: p.Sigma, Src: rand.NewSource(p.Seed)}
	stream := make([]spc.Observation, p.N)
	for i := range stream {
		stream[i] = spc.Individual(i, p.meanAt(i)+normal.Rand())
	}
	return stream
}

// Subgroups generates a stream of subgroup observations of size n drawn
// around the per-index process mean.
func (p Process) Subgroups(n int) []spc.Observation {
	normal := distuv.Normal{Mu: 0, Sigma: p.Sigma, Src: rand.NewSource(p.Seed)}
	stream := make([]spc.Observation, p.N)
	for i := range stream {
		mu := p.meanAt(i)
		group := make([]float64, n)
		for j := range group {
			group[j] = mu + normal.Rand()
		}
		stream[i] = spc.Grouped(i, group...)
	}
	return stream
}

// Defectives generates binomial defective counts: sampleSize inspected
// units per point with fraction defective p0 before the change point and
// p1 after. Suited to p and np charts.
func Defectives(n, sampleSize int, p0, p1 float64, changePoint int, seed uint64) []spc.Observation {
	src := rand.NewSource(seed)
	stream := make([]spc.Observation, n)
	for i := range stream {
		prob := p0
		if changePoint >= 0 && i >= changePoint {
			prob = p1
		}
		b := distuv.Binomial{N: float64(sampleSize), P: prob, Src: src}
		stream[i] = spc.Counted(i, b.Rand(), sampleSize)
	}
	return stream
}

// Defects generates Poisson defect counts with rate c0 per unit before
// the change point and c1 after, over a constant opportunity of one
// unit. Suited to c and u charts.
func Defects(n int, c0, c1 float64, changePoint int, seed uint64) []spc.Observation {
	src := rand.NewSource(seed)
	stream := make([]spc.Observation, n)
	for i := range stream {
		rate := c0
		if changePoint >= 0 && i >= changePoint {
			rate = c1
		}
		pois := distuv.Poisson{Lambda: rate, Src: src}
		stream[i] = spc.Counted(i, pois.Rand(), 1)
	}
	return stream
}
