// Package watershed splits touching particles. A chamfer distance map of
// the mask supplies seeds at its peaks, and each seed floods outward in
// order of decreasing distance until the regions meet.
package watershed

import (
	"fmt"

	"grindsize/internal/models"
)

// DistanceMap holds, for every foreground pixel, its 4-connected
// (city-block) distance to the nearest background pixel. Pixels outside
// the image count as background.
type DistanceMap struct {
	Width  int
	Height int
	Dist   []int32
}

// At returns the distance at (x,y)
func (d *DistanceMap) At(x, y int) int32 {
	return d.Dist[y*d.Width+x]
}

// DistanceTransform computes the two-pass chamfer approximation. It is
// deliberately not Euclidean; seed placement depends on this metric.
func DistanceTransform(mask *models.Mask) (*DistanceMap, error) {
	if err := mask.Validate(); err != nil {
		return nil, fmt.Errorf("distance transform: %w", err)
	}

	w, h := mask.Width, mask.Height
	dm := &DistanceMap{Width: w, Height: h, Dist: make([]int32, w*h)}
	d := dm.Dist

	// Forward pass: top-left to bottom-right, looking north and west
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if mask.Pix[i] == models.Background {
				continue
			}
			var north, west int32
			if y > 0 {
				north = d[i-w]
			}
			if x > 0 {
				west = d[i-1]
			}
			d[i] = min(north, west) + 1
		}
	}

	// Backward pass: bottom-right to top-left, looking south and east
	for y := h - 1; y >= 0; y-- {
		for x := w - 1; x >= 0; x-- {
			i := y*w + x
			if d[i] == 0 {
				continue
			}
			var south, east int32
			if y < h-1 {
				south = d[i+w]
			}
			if x < w-1 {
				east = d[i+1]
			}
			d[i] = min(d[i], min(south, east)+1)
		}
	}

	return dm, nil
}
