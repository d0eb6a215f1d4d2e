package histogram

import (
	"math"

	"grindsize/internal/models"
)

// Sample is the metric value and weight of one particle, in physical units
type Sample struct {
	Value  float64
	Weight float64

	// Index points back into the particle slice the sample came from
	Index int
}

// MetricValue returns the particle's metric in pixel units. Diameter is the
// mean of the fitted axes, falling back to the equivalent diameter when
// no ellipse was fitted.
func MetricValue(p models.Particle, metric models.Metric) float64 {
	switch metric {
	case models.MetricSurface:
		return p.Surface
	case models.MetricVolume:
		return p.Volume
	}
	if p.MajorAxis > 0 && p.MinorAxis > 0 {
		return (p.MajorAxis + p.MinorAxis) / 2
	}
	return p.EquivalentDiameter
}

// Weight returns the contribution of a particle in pixel units
func Weight(p models.Particle, weighting models.Weighting) float64 {
	switch weighting {
	case models.WeightSurface:
		return p.Surface
	case models.WeightVolume:
		return p.Volume
	}
	return 1
}

// Samples converts particles into physical-unit samples. unitsPerPixel is
// the length of one pixel in the output unit; without a finite positive
// scale there are no samples. Values that are not finite and positive,
// and weights that are not finite and non-negative, are dropped.
func Samples(particles []models.Particle, metric models.Metric, weighting models.Weighting, unitsPerPixel float64) []Sample {
	if !(unitsPerPixel > 0) || !finite(unitsPerPixel) {
		return nil
	}
	valueScale := math.Pow(unitsPerPixel, float64(metric.Exponent()))

	weightScale := 1.0
	switch weighting {
	case models.WeightSurface:
		weightScale = unitsPerPixel * unitsPerPixel
	case models.WeightVolume:
		weightScale = unitsPerPixel * unitsPerPixel * unitsPerPixel
	}

	out := make([]Sample, 0, len(particles))
	for i, p := range particles {
		v := MetricValue(p, metric) * valueScale
		w := Weight(p, weighting) * weightScale
		if !finite(v) || v <= 0 || !finite(w) || w < 0 {
			continue
		}
		out = append(out, Sample{Value: v, Weight: w, Index: i})
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
