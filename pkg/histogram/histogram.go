// Package histogram bins particle measurements into log- and
// linear-spaced distributions.
package histogram

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"grindsize/internal/models"
)

// DefaultBins is the bin count used when none is configured
const DefaultBins = 40

// Default physical diameter range in micrometres
const (
	DefaultMinDiameter = 10.0
	DefaultMaxDiameter = 3000.0
)

// Range bounds the bin table. Samples below Min fall into the first bin
// and samples above Max into the last. The zero Range means "use the
// observed minimum and maximum of the samples".
type Range struct {
	Min float64
	Max float64
}

// IsZero reports whether the range should be taken from the data
func (r Range) IsZero() bool {
	return r.Min == 0 && r.Max == 0
}

// DefaultRange converts a diameter range into the matching range for a
// metric using sphere relations
func DefaultRange(metric models.Metric, minDiameter, maxDiameter float64) Range {
	switch metric {
	case models.MetricSurface:
		return Range{Min: math.Pi * minDiameter * minDiameter, Max: math.Pi * maxDiameter * maxDiameter}
	case models.MetricVolume:
		return Range{
			Min: math.Pi / 6 * minDiameter * minDiameter * minDiameter,
			Max: math.Pi / 6 * maxDiameter * maxDiameter * maxDiameter,
		}
	}
	return Range{Min: minDiameter, Max: maxDiameter}
}

// Params controls histogram construction
type Params struct {
	Bins      int
	Metric    models.Metric
	Weighting models.Weighting

	// UnitsPerPixel converts pixel lengths into output units; it must be
	// finite and positive or the histograms are empty
	UnitsPerPixel float64

	// Range fixes the bin table; zero uses the observed range
	Range Range
}

// Build bins the particles twice, once with log-spaced and once with
// linear-spaced edges. Empty or degenerate inputs give histograms
// without bins.
func Build(particles []models.Particle, params Params) models.HistogramPair {
	samples := Samples(particles, params.Metric, params.Weighting, params.UnitsPerPixel)
	return models.HistogramPair{
		Log:    fromSamples(samples, models.SpacingLog, params),
		Linear: fromSamples(samples, models.SpacingLinear, params),
	}
}

// Edges returns n+1 bin edges from lo to hi. Log spacing needs lo > 0.
func Edges(spacing models.Spacing, lo, hi float64, n int) ([]float64, error) {
	if n < 1 {
		return nil, fmt.Errorf("need at least one bin, got %d", n)
	}
	if !(lo < hi) || !finite(lo) || !finite(hi) {
		return nil, fmt.Errorf("degenerate range [%g, %g]", lo, hi)
	}

	edges := make([]float64, n+1)
	if spacing == models.SpacingLog {
		if lo <= 0 {
			return nil, fmt.Errorf("log spacing needs a positive minimum, got %g", lo)
		}
		floats.LogSpan(edges, lo, hi)
	} else {
		floats.Span(edges, lo, hi)
	}

	// Pin the ends so boundary values land exactly
	edges[0], edges[n] = lo, hi
	return edges, nil
}

func fromSamples(samples []Sample, spacing models.Spacing, params Params) models.Histogram {
	h := models.Histogram{
		Spacing:   spacing,
		Metric:    params.Metric,
		Weighting: params.Weighting,
	}
	if len(samples) == 0 {
		return h
	}

	bins := params.Bins
	if bins < 1 {
		bins = DefaultBins
	}

	lo, hi := params.Range.Min, params.Range.Max
	if params.Range.IsZero() {
		values := make([]float64, len(samples))
		for i, s := range samples {
			values[i] = s.Value
		}
		var err error
		if lo, err = stats.Min(values); err != nil {
			return h
		}
		if hi, err = stats.Max(values); err != nil {
			return h
		}
	}

	edges, err := Edges(spacing, lo, hi, bins)
	if err != nil {
		return h
	}

	// Values outside a fixed range count in the first or last bin so the
	// histogram covers every sample. stat.Histogram wants sorted input
	// inside [first, last) divider.
	clamped := make([]Sample, len(samples))
	for i, s := range samples {
		s.Value = math.Max(lo, math.Min(hi, s.Value))
		clamped[i] = s
	}
	sort.SliceStable(clamped, func(i, j int) bool { return clamped[i].Value < clamped[j].Value })

	xs := make([]float64, len(clamped))
	ws := make([]float64, len(clamped))
	for i, s := range clamped {
		xs[i], ws[i] = s.Value, s.Weight
	}

	dividers := make([]float64, len(edges))
	copy(dividers, edges)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, xs, ws)

	total := floats.Sum(counts)
	if !(total > 0) {
		return h
	}

	h.Bins = make([]models.Bin, bins)
	h.Values = make([]models.BinValue, bins)
	for i := 0; i < bins; i++ {
		start, end := edges[i], edges[i+1]
		center := (start + end) / 2
		if spacing == models.SpacingLog {
			center = math.Sqrt(start * end)
		}
		h.Bins[i] = models.Bin{Start: start, End: end, Center: center}
		h.Values[i] = models.BinValue{Weight: counts[i], Percent: counts[i] / total * 100}
	}
	h.TotalWeight = total
	h.MaxFraction = floats.Max(counts) / total
	return h
}
