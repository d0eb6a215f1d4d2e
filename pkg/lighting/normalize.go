// Package lighting removes smooth illumination gradients from photographs
// of particles on a bright template.
package lighting

import (
	"fmt"
	"math"

	"grindsize/internal/models"
)

const (
	// DefaultSigma is the default background blur radius in pixels
	DefaultSigma = 35.0

	minSigma = 3.0
	maxSigma = 80.0

	// scale maps a sample equal to its local background onto mid-gray
	scale = 128.0
)

// Luminance weights (ITU-R BT.601)
const (
	weightR = 0.299
	weightG = 0.587
	weightB = 0.114
)

// Radius converts a background sigma into the box blur radius actually used
func Radius(bgSigma float64) int {
	if math.IsNaN(bgSigma) {
		bgSigma = DefaultSigma
	}
	s := math.Max(minSigma, math.Min(maxSigma, bgSigma))
	return int(math.Round(s))
}

// Luminance converts an RGBA buffer into per-pixel luminance values
func Luminance(img *models.RGBA) ([]float64, error) {
	if err := img.Validate(); err != nil {
		return nil, fmt.Errorf("luminance: %w", err)
	}

	lum := make([]float64, img.Width*img.Height)
	for i := range lum {
		p := img.Pix[i*4 : i*4+3]
		lum[i] = weightR*float64(p[0]) + weightG*float64(p[1]) + weightB*float64(p[2])
	}
	return lum, nil
}

// Normalize divides every luminance sample by its blurred local background
// and rescales the ratio so that background sits near 128.
func Normalize(img *models.RGBA, bgSigma float64) (*models.Gray, error) {
	lum, err := Luminance(img)
	if err != nil {
		return nil, err
	}

	bg := BoxBlur(lum, img.Width, img.Height, Radius(bgSigma))

	out := models.NewGray(img.Width, img.Height)
	for i, v := range lum {
		n := (v + 1) / (bg[i] + 1) * scale
		out.Pix[i] = uint8(math.Max(0, math.Min(255, math.Round(n))))
	}
	return out, nil
}

// BoxBlur applies a separable mean filter of the given radius. Windows are
// truncated at the image border and averaged over the pixels they cover.
func BoxBlur(src []float64, width, height, radius int) []float64 {
	tmp := make([]float64, len(src))
	out := make([]float64, len(src))

	// Horizontal pass
	for y := 0; y < height; y++ {
		row := src[y*width : (y+1)*width]
		slide(row, tmp[y*width:(y+1)*width], radius)
	}

	// Vertical pass
	col := make([]float64, height)
	res := make([]float64, height)
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			col[y] = tmp[y*width+x]
		}
		slide(col, res, radius)
		for y := 0; y < height; y++ {
			out[y*width+x] = res[y]
		}
	}
	return out
}

// slide computes a running-sum window mean of src into dst
func slide(src, dst []float64, radius int) {
	n := len(src)
	var sum float64
	count := 0

	// Prime the window for position 0
	for i := 0; i <= radius && i < n; i++ {
		sum += src[i]
		count++
	}

	for i := 0; i < n; i++ {
		dst[i] = sum / float64(count)

		if add := i + radius + 1; add < n {
			sum += src[add]
			count++
		}
		if drop := i - radius; drop >= 0 {
			sum -= src[drop]
			count--
		}
	}
}
