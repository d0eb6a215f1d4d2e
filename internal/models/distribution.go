package models

// Bin is one histogram interval [Start, End)
type Bin struct {
	Start  float64
	End    float64
	Center float64
}

// BinValue is the accumulated weight of one bin
type BinValue struct {
	Weight  float64
	Percent float64
}

// Histogram is a binned distribution of one particle metric. Bins and
// Values are parallel; an empty histogram has no bins.
type Histogram struct {
	Spacing   Spacing
	Metric    Metric
	Weighting Weighting

	Bins   []Bin
	Values []BinValue

	// TotalWeight is the sum of all binned weights
	TotalWeight float64

	// MaxFraction is the largest per-bin share of TotalWeight, in [0,1]
	MaxFraction float64
}

// Empty reports whether the histogram has no bins
func (h Histogram) Empty() bool {
	return len(h.Bins) == 0
}

// HistogramPair holds the log and linear renditions built from one call
type HistogramPair struct {
	Log    Histogram
	Linear Histogram
}

// Select returns the rendition matching the requested spacing
func (p HistogramPair) Select(s Spacing) Histogram {
	if s == SpacingLinear {
		return p.Linear
	}
	return p.Log
}

// Summary aggregates one particle population. Pointer fields are nil when
// they cannot be computed, in particular whenever Count is 0.
type Summary struct {
	Count     int
	Weighting Weighting
	Metric    Metric

	D10 *float64
	D50 *float64
	D90 *float64

	Mean   *float64
	StdDev *float64
	Mode   *float64
	Min    *float64
	Max    *float64

	AvgShortAxis *float64
	AvgLongAxis  *float64
	AvgRoundness *float64

	// Efficiency is D10/D90
	Efficiency *float64
	// Span is (D90-D10)/D50
	Span *float64
}

// Float returns a pointer to v, for building Summary values
func Float(v float64) *float64 {
	return &v
}
