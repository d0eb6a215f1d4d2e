// Package statistics computes weighted summary figures for a particle
// population: percentiles, moments, mode and shape averages.
package statistics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"grindsize/internal/models"
	"grindsize/pkg/histogram"
)

// modeBins is the resolution of the histogram the mode is read from
const modeBins = 30

// Params selects what is summarised and in which units
type Params struct {
	Metric    models.Metric
	Weighting models.Weighting

	// UnitsPerPixel converts pixel lengths into output units. A scale
	// that is not finite and positive yields an empty summary.
	UnitsPerPixel float64
}

// Summarize computes the summary of particles. Figures that cannot be
// computed are left nil; an empty population leaves every figure nil.
func Summarize(particles []models.Particle, params Params) models.Summary {
	sum := models.Summary{Metric: params.Metric, Weighting: params.Weighting}

	samples := histogram.Samples(particles, params.Metric, params.Weighting, params.UnitsPerPixel)
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].Value < samples[j].Value })

	values := make([]float64, len(samples))
	weights := make([]float64, len(samples))
	for i, s := range samples {
		values[i], weights[i] = s.Value, s.Weight
	}
	if len(samples) == 0 || !(floats.Sum(weights) > 0) {
		return sum
	}
	sum.Count = len(samples)

	d10 := WeightedPercentile(values, weights, 0.1)
	d50 := WeightedPercentile(values, weights, 0.5)
	d90 := WeightedPercentile(values, weights, 0.9)
	sum.D10, sum.D50, sum.D90 = models.Float(d10), models.Float(d50), models.Float(d90)

	mean, std := stat.PopMeanStdDev(values, weights)
	sum.Mean, sum.StdDev = models.Float(mean), models.Float(std)

	lo, hi := floats.Min(values), floats.Max(values)
	sum.Min, sum.Max = models.Float(lo), models.Float(hi)
	sum.Mode = models.Float(mode(values, weights, lo, hi))

	scale := params.UnitsPerPixel
	short := make([]float64, len(samples))
	long := make([]float64, len(samples))
	roundness := make([]float64, len(samples))
	for i, s := range samples {
		p := particles[s.Index]
		short[i] = p.MinorAxis * scale
		long[i] = p.MajorAxis * scale
		roundness[i] = p.Roundness
	}
	sum.AvgShortAxis = models.Float(stat.Mean(short, weights))
	sum.AvgLongAxis = models.Float(stat.Mean(long, weights))
	sum.AvgRoundness = models.Float(stat.Mean(roundness, weights))

	if d90 > 0 {
		sum.Efficiency = models.Float(d10 / d90)
	}
	if d50 > 0 {
		sum.Span = models.Float((d90 - d10) / d50)
	}
	return sum
}

// WeightedPercentile returns the value at fraction p of the cumulative
// weight of values, which must be sorted ascending. Between samples the
// result is interpolated linearly; beyond the ends it clamps.
func WeightedPercentile(values, weights []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	total := floats.Sum(weights)
	if !(total > 0) {
		return values[0]
	}

	cum := make([]float64, n)
	running := 0.0
	for i, w := range weights {
		running += w
		cum[i] = running / total
	}

	i := sort.SearchFloat64s(cum, p)
	switch {
	case i <= 0:
		return values[0]
	case i >= n:
		return values[n-1]
	}

	span := cum[i] - cum[i-1]
	if span <= 0 {
		return values[i]
	}
	t := (p - cum[i-1]) / span
	return values[i-1] + t*(values[i]-values[i-1])
}

// mode returns the center of the heaviest bin of a fixed-resolution
// histogram over [lo, hi]
func mode(values, weights []float64, lo, hi float64) float64 {
	if !(hi > lo) {
		return lo
	}
	dividers := make([]float64, modeBins+1)
	floats.Span(dividers, lo, hi)
	dividers[0] = lo
	dividers[modeBins] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, values, weights)
	best := floats.MaxIdx(counts)

	end := dividers[best+1]
	if best == modeBins-1 {
		end = hi
	}
	return (dividers[best] + end) / 2
}
