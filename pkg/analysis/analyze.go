// Package analysis runs the particle pipeline on one photograph: lighting
// normalization, adaptive binarization, cleanup, labeling, optional overlap
// separation, and the size distribution.
package analysis

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/sirupsen/logrus"

	"grindsize/internal/models"
	"grindsize/pkg/binarize"
	"grindsize/pkg/config"
	"grindsize/pkg/contour"
	"grindsize/pkg/histogram"
	"grindsize/pkg/labeling"
	"grindsize/pkg/lighting"
	"grindsize/pkg/morphology"
	"grindsize/pkg/statistics"
	"grindsize/pkg/watershed"
)

// ErrInvalidScale is returned when neither the measured nor the fallback
// scale is a finite positive number of pixels per millimetre
var ErrInvalidScale = errors.New("no valid pixel scale")

// Options holds everything one analysis needs
type Options struct {
	BgSigma   float64
	Threshold binarize.Params

	MinAreaPx    int
	EllipseScale float64

	// MaxAreaMm2 drops particles above this physical area after
	// measurement; 0 disables the filter
	MaxAreaMm2 float64

	SplitOverlaps    bool
	SplitSensitivity float64

	Bins      int
	Spacing   models.Spacing
	Weighting models.Weighting
	Metric    models.Metric

	// MinDiameterUm and MaxDiameterUm fix the histogram range; both 0
	// bins over the observed range
	MinDiameterUm float64
	MaxDiameterUm float64

	FallbackPixelsPerMM float64

	Calibrator Calibrator
	Tracer     contour.Tracer
	Logger     logrus.FieldLogger
}

// DefaultOptions mirrors config.DefaultConfig without a calibrator
func DefaultOptions() Options {
	opts, _ := FromConfig(config.DefaultConfig())
	return opts
}

// FromConfig converts a loaded configuration into pipeline options
func FromConfig(cfg *config.Config) (Options, error) {
	spacing, err := models.ParseSpacing(cfg.Distribution.BinSpacing)
	if err != nil {
		return Options{}, err
	}
	weighting, err := models.ParseWeighting(cfg.Distribution.Weighting)
	if err != nil {
		return Options{}, err
	}
	metric, err := models.ParseMetric(cfg.Distribution.Metric)
	if err != nil {
		return Options{}, err
	}
	tracer, err := contour.ByName(cfg.Analysis.ContourTracer)
	if err != nil {
		return Options{}, err
	}

	a := cfg.Analysis
	return Options{
		BgSigma: a.BgSigma,
		Threshold: binarize.Params{
			BlockSize: a.AdaptiveBlockSize,
			C:         a.AdaptiveC,
			DarkMean:  a.DarkMean,
			DarkPixel: uint8(min(max(a.DarkPixel, 0), 255)),
		},
		MinAreaPx:           a.MinAreaPx,
		EllipseScale:        a.EllipseScale,
		MaxAreaMm2:          a.MaxAreaMm2,
		SplitOverlaps:       a.SplitOverlaps,
		SplitSensitivity:    a.SplitSensitivity,
		Bins:                cfg.Distribution.Bins,
		Spacing:             spacing,
		Weighting:           weighting,
		Metric:              metric,
		MinDiameterUm:       cfg.Distribution.MinDiameterUm,
		MaxDiameterUm:       cfg.Distribution.MaxDiameterUm,
		FallbackPixelsPerMM: cfg.Calibration.FallbackPixelsPerMM,
		Tracer:              tracer,
	}, nil
}

// Result is the outcome of one analysis. Particles, Labels and ROI are in
// pixel coordinates of the analysed region; Histograms and Summary are in
// micrometres derived from PixelsPerMM.
type Result struct {
	Gray    *models.Gray
	Mask    *models.Mask
	Cleaned *models.Mask
	Labels  *models.LabelMap

	Particles  []models.Particle
	Histograms models.HistogramPair
	Summary    models.Summary

	PixelsPerMM float64
	ROI         image.Rectangle

	// Truncated is set when overlap separation hit its iteration cap
	Truncated bool

	// Warnings lists degraded-but-valid conditions, such as a missing
	// calibration
	Warnings []string
}

// Histogram returns the rendition selected by the options' spacing
func (r *Result) Histogram(s models.Spacing) models.Histogram {
	return r.Histograms.Select(s)
}

// Analyze runs the whole pipeline on an RGBA photograph
func Analyze(src *models.RGBA, opts Options) (*Result, error) {
	if err := src.Validate(); err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	log := logger(opts)
	start := time.Now()

	img, roi, ppm, warnings := calibrate(src, opts.Calibrator, opts.FallbackPixelsPerMM)
	if !validScale(ppm) {
		return nil, fmt.Errorf("analysis: scale %g px/mm: %w", ppm, ErrInvalidScale)
	}
	for _, w := range warnings {
		log.Warn(w)
	}
	if roi != image.Rect(0, 0, img.Width, img.Height) {
		img = img.Crop(roi.Min.X, roi.Min.Y, roi.Max.X, roi.Max.Y)
	}

	gray, err := lighting.Normalize(img, opts.BgSigma)
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	mask, err := binarize.Adaptive(gray, opts.Threshold)
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	log.WithFields(logrus.Fields{
		"width":      img.Width,
		"height":     img.Height,
		"foreground": mask.Count(),
	}).Debug("binarized")

	res, err := AnalyzeMask(mask, ppm, opts)
	if err != nil {
		return nil, err
	}
	res.Gray = gray
	res.ROI = roi
	res.Warnings = append(warnings, res.Warnings...)

	log.WithFields(logrus.Fields{
		"particles": len(res.Particles),
		"elapsed":   time.Since(start),
	}).Debug("analysis complete")
	return res, nil
}

// AnalyzeMask runs cleanup, labeling, optional separation and the
// distribution on an already binarized mask
func AnalyzeMask(mask *models.Mask, pixelsPerMM float64, opts Options) (*Result, error) {
	if err := mask.Validate(); err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	log := logger(opts)

	res := &Result{
		Mask:        mask,
		PixelsPerMM: pixelsPerMM,
		ROI:         image.Rect(0, 0, mask.Width, mask.Height),
	}
	if !validScale(res.PixelsPerMM) {
		if !validScale(opts.FallbackPixelsPerMM) {
			return nil, fmt.Errorf("analysis: scale %g and fallback %g px/mm: %w",
				pixelsPerMM, opts.FallbackPixelsPerMM, ErrInvalidScale)
		}
		res.PixelsPerMM = opts.FallbackPixelsPerMM
		res.Warnings = append(res.Warnings, fmt.Sprintf("invalid scale %g, using fallback scale %g px/mm", pixelsPerMM, opts.FallbackPixelsPerMM))
	}

	cleaned, err := morphology.Open(mask)
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	res.Cleaned = cleaned

	lopts := labeling.Options{MinArea: opts.MinAreaPx, EllipseScale: opts.EllipseScale}
	labeled, err := labeling.Label(cleaned, lopts)
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}

	if opts.SplitOverlaps && len(labeled.Particles) > 0 {
		sep, err := watershed.Separate(cleaned, labeled.Labels, watershed.Options{
			MinPeakDistance: watershed.MinPeakDistance(opts.SplitSensitivity),
			Logger:          log,
		})
		if err != nil {
			return nil, fmt.Errorf("analysis: %w", err)
		}
		if sep.Truncated {
			res.Truncated = true
			res.Warnings = append(res.Warnings, "overlap separation stopped at its iteration cap")
		}

		before := len(labeled.Particles)
		lopts.Labels = sep.Labels
		if labeled, err = labeling.Label(cleaned, lopts); err != nil {
			return nil, fmt.Errorf("analysis: %w", err)
		}
		log.WithFields(logrus.Fields{
			"seeds":  len(sep.Seeds),
			"before": before,
			"after":  len(labeled.Particles),
		}).Debug("separated overlaps")
	}
	res.Labels = labeled.Labels

	particles := labeled.Particles
	if opts.Tracer != nil {
		particles = labeling.MatchContours(particles, labeled.Labels, opts.Tracer.Trace(cleaned))
	}
	res.Particles = filterArea(particles, opts.MaxAreaMm2, res.PixelsPerMM)

	umPerPixel := 1000 / res.PixelsPerMM
	var rng histogram.Range
	if opts.MinDiameterUm != 0 || opts.MaxDiameterUm != 0 {
		rng = histogram.DefaultRange(opts.Metric, opts.MinDiameterUm, opts.MaxDiameterUm)
	}
	res.Histograms = histogram.Build(res.Particles, histogram.Params{
		Bins:          opts.Bins,
		Metric:        opts.Metric,
		Weighting:     opts.Weighting,
		UnitsPerPixel: umPerPixel,
		Range:         rng,
	})
	res.Summary = statistics.Summarize(res.Particles, statistics.Params{
		Metric:        opts.Metric,
		Weighting:     opts.Weighting,
		UnitsPerPixel: umPerPixel,
	})
	return res, nil
}

// filterArea drops particles whose physical area exceeds maxMm2,
// keeping discovery order
func filterArea(particles []models.Particle, maxMm2, pixelsPerMM float64) []models.Particle {
	if maxMm2 <= 0 {
		return particles
	}
	limit := maxMm2 * pixelsPerMM * pixelsPerMM
	kept := make([]models.Particle, 0, len(particles))
	for _, p := range particles {
		if float64(p.Area) <= limit {
			kept = append(kept, p)
		}
	}
	return kept
}

func logger(opts Options) logrus.FieldLogger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return logrus.StandardLogger()
}
