package analysis

import (
	"errors"
	"fmt"
	"image"
	"math"

	"grindsize/internal/models"
)

// ErrNoScale is returned by calibrators that could not establish a scale
var ErrNoScale = errors.New("no scale reference found")

// Calibration is what a template detector reports for one photograph
type Calibration struct {
	// PixelsPerMM is the physical scale of the (rectified) image
	PixelsPerMM float64

	// Rectified, when set, replaces the source image for analysis
	Rectified *models.RGBA

	// ROI restricts analysis to a rectangle of the analysed image. The
	// zero rectangle selects the whole image.
	ROI image.Rectangle
}

// Calibrator locates the scale reference in a photograph. Marker
// detection and perspective correction live behind this interface.
type Calibrator interface {
	Calibrate(img *models.RGBA) (Calibration, error)
}

// FixedScale is a Calibrator for images with a known scale
type FixedScale float64

// Calibrate implements Calibrator
func (f FixedScale) Calibrate(*models.RGBA) (Calibration, error) {
	if !(f > 0) {
		return Calibration{}, fmt.Errorf("fixed scale %g: %w", float64(f), ErrNoScale)
	}
	return Calibration{PixelsPerMM: float64(f)}, nil
}

// CalibratorFunc adapts a function to the Calibrator interface
type CalibratorFunc func(img *models.RGBA) (Calibration, error)

// Calibrate implements Calibrator
func (fn CalibratorFunc) Calibrate(img *models.RGBA) (Calibration, error) {
	return fn(img)
}

// calibrate resolves the image, ROI and scale to analyse. Collaborator
// failures degrade to the fallback scale on the unrectified image and are
// reported as warnings.
func calibrate(src *models.RGBA, c Calibrator, fallback float64) (*models.RGBA, image.Rectangle, float64, []string) {
	bounds := image.Rect(0, 0, src.Width, src.Height)
	if c == nil {
		return src, bounds, fallback, []string{
			fmt.Sprintf("no calibrator configured, using fallback scale %g px/mm", fallback),
		}
	}

	cal, err := c.Calibrate(src)
	if err != nil {
		return src, bounds, fallback, []string{
			fmt.Sprintf("calibration failed (%v), using fallback scale %g px/mm on the unrectified image", err, fallback),
		}
	}

	var warnings []string
	img := src
	if cal.Rectified != nil {
		if err := cal.Rectified.Validate(); err != nil {
			warnings = append(warnings, fmt.Sprintf("ignoring rectified image: %v", err))
		} else {
			img = cal.Rectified
			bounds = image.Rect(0, 0, img.Width, img.Height)
		}
	}

	ppm := cal.PixelsPerMM
	if !validScale(ppm) {
		warnings = append(warnings, fmt.Sprintf("calibration reported scale %g, using fallback scale %g px/mm", ppm, fallback))
		ppm = fallback
	}

	roi := bounds
	if !cal.ROI.Empty() {
		roi = cal.ROI.Intersect(bounds)
		if roi.Empty() {
			warnings = append(warnings, fmt.Sprintf("region of interest %v lies outside the image, analysing all of it", cal.ROI))
			roi = bounds
		}
	}
	return img, roi, ppm, warnings
}

// validScale reports whether v is a usable pixels-per-millimetre value
func validScale(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
