package models

import (
	"fmt"
	"image"
)

// Particle is one measured region of the cleaned mask. All lengths are in
// pixels; areas in square pixels; volumes in cubic pixels.
type Particle struct {
	// ID is the label value the region was assigned in the label map
	ID uint32

	// CentroidX and CentroidY are the mean pixel coordinates of the region
	CentroidX float64
	CentroidY float64

	// Area is the raw pixel count
	Area int

	// MajorAxis and MinorAxis are the full lengths of the fitted ellipse
	MajorAxis float64
	MinorAxis float64

	// Orientation is the angle of the major axis in radians, measured from
	// the x axis towards increasing y
	Orientation float64

	// EquivalentDiameter is the diameter of a circle with the same area
	EquivalentDiameter float64

	// Surface and Volume come from the oblate spheroid model
	Surface float64
	Volume  float64

	// Roundness is MinorAxis / MajorAxis, 1 for a circle
	Roundness float64

	// Solidity is Area divided by the fitted ellipse area
	Solidity float64

	// Bounds is the axis-aligned bounding box, Max exclusive
	Bounds image.Rectangle

	// Contour is the ordered boundary, nil unless a tracer was used
	Contour []image.Point
}

// Weighting selects how much each particle contributes to a distribution
type Weighting int

const (
	WeightCount Weighting = iota
	WeightSurface
	WeightVolume
)

func (w Weighting) String() string {
	switch w {
	case WeightCount:
		return "count"
	case WeightSurface:
		return "surface"
	case WeightVolume:
		return "volume"
	}
	return fmt.Sprintf("Weighting(%d)", int(w))
}

// ParseWeighting maps a config string onto a Weighting
func ParseWeighting(s string) (Weighting, error) {
	switch s {
	case "count", "":
		return WeightCount, nil
	case "surface":
		return WeightSurface, nil
	case "volume", "mass":
		return WeightVolume, nil
	}
	return 0, fmt.Errorf("unknown weighting %q", s)
}

// Metric selects the scalar measured per particle
type Metric int

const (
	MetricDiameter Metric = iota
	MetricSurface
	MetricVolume
)

func (m Metric) String() string {
	switch m {
	case MetricDiameter:
		return "diameter"
	case MetricSurface:
		return "surface"
	case MetricVolume:
		return "volume"
	}
	return fmt.Sprintf("Metric(%d)", int(m))
}

// Exponent is the power of length the metric scales with
func (m Metric) Exponent() int {
	switch m {
	case MetricSurface:
		return 2
	case MetricVolume:
		return 3
	}
	return 1
}

// ParseMetric maps a config string onto a Metric
func ParseMetric(s string) (Metric, error) {
	switch s {
	case "diameter", "":
		return MetricDiameter, nil
	case "surface":
		return MetricSurface, nil
	case "volume":
		return MetricVolume, nil
	}
	return 0, fmt.Errorf("unknown metric %q", s)
}

// Spacing is the bin edge placement of a histogram
type Spacing int

const (
	SpacingLog Spacing = iota
	SpacingLinear
)

func (s Spacing) String() string {
	if s == SpacingLinear {
		return "linear"
	}
	return "log"
}

// ParseSpacing maps a config string onto a Spacing
func ParseSpacing(s string) (Spacing, error) {
	switch s {
	case "log", "":
		return SpacingLog, nil
	case "linear":
		return SpacingLinear, nil
	}
	return 0, fmt.Errorf("unknown bin spacing %q", s)
}
