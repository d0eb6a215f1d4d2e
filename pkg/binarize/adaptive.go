// Package binarize turns a normalized grayscale image into a particle mask
// using a local-mean threshold computed from an integral image.
package binarize

import (
	"fmt"
	"image"
	"image/color"

	"rescribe.xyz/integral"

	"grindsize/internal/models"
)

// Params controls the adaptive threshold
type Params struct {
	// BlockSize is the side of the averaging window. Even values are
	// bumped to the next odd value.
	BlockSize int

	// C is subtracted from the local mean before comparing
	C float64

	// DarkMean and DarkPixel drive the inside-dark-region rule: when the
	// local mean falls below DarkMean, any pixel darker than DarkPixel is
	// foreground regardless of local contrast.
	DarkMean  float64
	DarkPixel uint8
}

// DefaultParams returns the tuned defaults
func DefaultParams() Params {
	return Params{
		BlockSize: 201,
		C:         4,
		DarkMean:  50,
		DarkPixel: 128,
	}
}

// localMean answers window means from an integral image of the buffer
type localMean struct {
	sums   *integral.Image
	bounds image.Rectangle
}

func newLocalMean(g *models.Gray) *localMean {
	b := image.Rect(0, 0, g.Width, g.Height)
	sums := integral.NewImage(b)

	// The integral image accumulates as it is written, so fill in raster order
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			sums.Set(x, y, color.Gray{Y: g.Pix[y*g.Width+x]})
		}
	}
	return &localMean{sums: sums, bounds: b}
}

// Mean returns the average of the window of the given half size centered
// on (x,y), clipped to the image
func (m *localMean) Mean(x, y, half int) float64 {
	win := image.Rect(x-half, y-half, x+half+1, y+half+1).Intersect(m.bounds)
	return m.sums.Mean(win)
}

// Adaptive marks a pixel as foreground when it is darker than its local
// mean by more than C, or when it is dark inside a uniformly dark region.
func Adaptive(g *models.Gray, params Params) (*models.Mask, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("binarize: %w", err)
	}

	block := params.BlockSize
	if block < 1 {
		block = DefaultParams().BlockSize
	}
	if block%2 == 0 {
		block++
	}
	half := block / 2

	local := newLocalMean(g)
	mask := models.NewMask(g.Width, g.Height)

	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			v := g.Pix[y*g.Width+x]
			mean := local.Mean(x, y, half)

			if float64(v) < mean-params.C || (mean < params.DarkMean && v < params.DarkPixel) {
				mask.Pix[y*g.Width+x] = models.Foreground
			}
		}
	}
	return mask, nil
}
