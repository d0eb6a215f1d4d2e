// Package morphology implements the 3x3 binary operators used to clean a
// particle mask.
package morphology

import (
	"fmt"

	"grindsize/internal/models"
)

// Erode keeps a pixel only if its whole 3x3 neighborhood is foreground.
// The outermost rows and columns are always background.
func Erode(m *models.Mask) (*models.Mask, error) {
	return apply(m, func(hits int) bool { return hits == 9 })
}

// Dilate sets a pixel if any pixel of its 3x3 neighborhood is foreground.
// The outermost rows and columns are always background.
func Dilate(m *models.Mask) (*models.Mask, error) {
	return apply(m, func(hits int) bool { return hits > 0 })
}

// Open erodes then dilates, removing speckle and thin bridges
func Open(m *models.Mask) (*models.Mask, error) {
	eroded, err := Erode(m)
	if err != nil {
		return nil, err
	}
	return Dilate(eroded)
}

func apply(m *models.Mask, keep func(hits int) bool) (*models.Mask, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("morphology: %w", err)
	}

	w, h := m.Width, m.Height
	out := models.NewMask(w, h)

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			hits := 0
			for dy := -1; dy <= 1; dy++ {
				row := (y + dy) * w
				for dx := -1; dx <= 1; dx++ {
					if m.Pix[row+x+dx] != models.Background {
						hits++
					}
				}
			}
			if keep(hits) {
				out.Pix[y*w+x] = models.Foreground
			}
		}
	}
	return out, nil
}
