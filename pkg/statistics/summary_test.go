package statistics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/stat"

	"grindsize/internal/models"
)

func round(d float64) models.Particle {
	r := d / 2
	return models.Particle{
		MajorAxis:          d,
		MinorAxis:          d,
		EquivalentDiameter: d,
		Surface:            4 * math.Pi * r * r,
		Volume:             4.0 / 3.0 * math.Pi * r * r * r,
		Roundness:          1,
	}
}

func near(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Abs(b))
}

func TestSummarizeMatchesEmpiricalQuantiles(t *testing.T) {
	var (
		particles []models.Particle
		values    []float64
	)
	for d := 1.0; d <= 10; d++ {
		particles = append(particles, round(d))
		values = append(values, d)
	}

	sum := Summarize(particles, Params{UnitsPerPixel: 1})
	if sum.Count != 10 {
		t.Fatalf("Expected count 10, got %d", sum.Count)
	}

	tests := []struct {
		name string
		got  *float64
		p    float64
	}{
		{"D10", sum.D10, 0.1},
		{"D50", sum.D50, 0.5},
		{"D90", sum.D90, 0.9},
	}
	for _, tc := range tests {
		want := stat.Quantile(tc.p, stat.Empirical, values, nil)
		if tc.got == nil || !near(*tc.got, want) {
			t.Errorf("%s = %v, want %f", tc.name, tc.got, want)
		}
	}

	if !near(*sum.Mean, 5.5) {
		t.Errorf("Expected mean 5.5, got %f", *sum.Mean)
	}
	if !near(*sum.StdDev, math.Sqrt(8.25)) {
		t.Errorf("Expected population std %f, got %f", math.Sqrt(8.25), *sum.StdDev)
	}
	if *sum.Min != 1 || *sum.Max != 10 {
		t.Errorf("Expected range [1,10], got [%f,%f]", *sum.Min, *sum.Max)
	}
	if !near(*sum.Efficiency, 1.0/9) {
		t.Errorf("Expected efficiency 1/9, got %f", *sum.Efficiency)
	}
	if !near(*sum.Span, 8.0/5) {
		t.Errorf("Expected span 1.6, got %f", *sum.Span)
	}
	if !near(*sum.AvgRoundness, 1) {
		t.Errorf("Expected roundness 1, got %f", *sum.AvgRoundness)
	}
}

func TestSummarizePercentilesAreOrdered(t *testing.T) {
	var particles []models.Particle
	for _, d := range []float64{2, 2.5, 3, 7, 7.5, 12, 30, 31, 45, 80} {
		particles = append(particles, round(d))
	}

	for _, weighting := range []models.Weighting{models.WeightCount, models.WeightSurface, models.WeightVolume} {
		for _, metric := range []models.Metric{models.MetricDiameter, models.MetricSurface, models.MetricVolume} {
			sum := Summarize(particles, Params{Metric: metric, Weighting: weighting, UnitsPerPixel: 12.5})
			if sum.D10 == nil || sum.D50 == nil || sum.D90 == nil {
				t.Fatalf("%v/%v: missing percentiles", weighting, metric)
			}
			if !(*sum.D10 <= *sum.D50 && *sum.D50 <= *sum.D90) {
				t.Errorf("%v/%v: D10 %f, D50 %f, D90 %f not ordered",
					weighting, metric, *sum.D10, *sum.D50, *sum.D90)
			}
			if *sum.D10 < *sum.Min || *sum.D90 > *sum.Max {
				t.Errorf("%v/%v: percentiles outside [min, max]", weighting, metric)
			}
		}
	}

	count := Summarize(particles, Params{Weighting: models.WeightCount, UnitsPerPixel: 1})
	volume := Summarize(particles, Params{Weighting: models.WeightVolume, UnitsPerPixel: 1})
	if *volume.D50 <= *count.D50 {
		t.Errorf("Volume weighting should shift D50 upward: %f <= %f", *volume.D50, *count.D50)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	for _, particles := range [][]models.Particle{nil, {{}}} {
		sum := Summarize(particles, Params{Weighting: models.WeightVolume, UnitsPerPixel: 1})
		if sum.Count != 0 {
			t.Errorf("Expected count 0, got %d", sum.Count)
		}
		fields := []*float64{sum.D10, sum.D50, sum.D90, sum.Mean, sum.StdDev, sum.Mode,
			sum.Min, sum.Max, sum.AvgShortAxis, sum.AvgLongAxis, sum.AvgRoundness, sum.Efficiency, sum.Span}
		for i, f := range fields {
			if f != nil {
				t.Errorf("field %d should be nil, got %f", i, *f)
			}
		}
		if sum.Weighting != models.WeightVolume {
			t.Error("Weighting should be reported even when empty")
		}
	}
}

func TestSummarizeInvalidScale(t *testing.T) {
	particles := []models.Particle{round(3), round(7)}
	for _, scale := range []float64{0, -1, math.Inf(1)} {
		sum := Summarize(particles, Params{UnitsPerPixel: scale})
		if sum.Count != 0 || sum.D50 != nil || sum.Mean != nil {
			t.Errorf("scale %v: expected an empty summary, got %+v", scale, sum)
		}
	}
}

func TestSummarizeSingleParticle(t *testing.T) {
	p := round(6)
	p.MajorAxis, p.MinorAxis, p.Roundness = 8, 4, 0.5
	sum := Summarize([]models.Particle{p}, Params{UnitsPerPixel: 2})

	for _, f := range []*float64{sum.D10, sum.D50, sum.D90, sum.Mode, sum.Mean} {
		if f == nil || !near(*f, 12) {
			t.Errorf("Expected 12, got %v", f)
		}
	}
	if *sum.StdDev != 0 || *sum.Span != 0 || *sum.Efficiency != 1 {
		t.Errorf("Unexpected spread figures: std %f span %f efficiency %f", *sum.StdDev, *sum.Span, *sum.Efficiency)
	}
	if *sum.AvgShortAxis != 8 || *sum.AvgLongAxis != 16 {
		t.Errorf("Axes should be scaled to output units, got %f and %f", *sum.AvgShortAxis, *sum.AvgLongAxis)
	}
}

func TestSummarizeMode(t *testing.T) {
	particles := []models.Particle{round(1), round(20)}
	for i := 0; i < 10; i++ {
		particles = append(particles, round(5))
	}
	sum := Summarize(particles, Params{UnitsPerPixel: 1})
	if math.Abs(*sum.Mode-5) > 19.0/30 {
		t.Errorf("Expected mode near 5, got %f", *sum.Mode)
	}
}

func TestWeightedPercentile(t *testing.T) {
	values := []float64{1, 2, 3, 4}
	weights := []float64{1, 1, 1, 1}

	tests := []struct {
		p, want float64
	}{
		{0, 1},
		{0.25, 1},
		{0.375, 1.5},
		{0.5, 2},
		{1, 4},
		{1.5, 4},
	}
	for _, tc := range tests {
		if got := WeightedPercentile(values, weights, tc.p); !near(got, tc.want) {
			t.Errorf("WeightedPercentile(%v) = %f, want %f", tc.p, got, tc.want)
		}
	}

	if got := WeightedPercentile(nil, nil, 0.5); got != 0 {
		t.Errorf("Expected 0 for no values, got %f", got)
	}
	if got := WeightedPercentile([]float64{1, 10}, []float64{1, 3}, 0.5); !near(got, 4) {
		t.Errorf("Expected interpolation along the weighted cumulative, got %f", got)
	}
}
