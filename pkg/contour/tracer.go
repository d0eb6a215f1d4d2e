// Package contour traces particle boundaries. Tracing is an optional
// capability of the pipeline: callers inject a Tracer, and None is used
// when no boundary is wanted.
package contour

import (
	"fmt"
	"image"
	"sort"

	"grindsize/internal/fill"
	"grindsize/internal/models"
)

// Tracer returns the outer boundary of every foreground region of a mask
type Tracer interface {
	Trace(mask *models.Mask) [][]image.Point
}

// available maps config names onto tracers. Optional backends register
// themselves from build-tagged files.
var available = map[string]Tracer{
	"none":  None{},
	"moore": Moore{},
}

// ByName returns the tracer registered under name. An empty name selects
// None.
func ByName(name string) (Tracer, error) {
	if name == "" {
		return None{}, nil
	}
	t, ok := available[name]
	if !ok {
		return nil, fmt.Errorf("unknown contour tracer %q (available: %v)", name, Names())
	}
	return t, nil
}

// Names lists the registered tracers
func Names() []string {
	names := make([]string, 0, len(available))
	for name := range available {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// None traces nothing
type None struct{}

// Trace implements Tracer
func (None) Trace(*models.Mask) [][]image.Point { return nil }

// Moore follows the outer boundary of each 8-connected region with the
// Moore neighborhood, starting from the region's first raster pixel.
type Moore struct{}

// anticlockwise neighbor offsets, starting east (image y grows downward)
var moves = [8]image.Point{
	{1, 0}, {1, -1}, {0, -1}, {-1, -1},
	{-1, 0}, {-1, 1}, {0, 1}, {1, 1},
}

// Trace implements Tracer
func (Moore) Trace(mask *models.Mask) [][]image.Point {
	if mask == nil || mask.Validate() != nil {
		return nil
	}

	w, h := mask.Width, mask.Height
	regions := make([]uint32, w*h)
	fg := func(i int) bool { return mask.Pix[i] != models.Background }

	var (
		stack    fill.Stack
		pixels   []int
		contours [][]image.Point
		next     uint32 = 1
	)
	for start := range mask.Pix {
		if regions[start] != 0 || !fg(start) {
			continue
		}
		pixels = fill.Region(w, h, start, regions, fg, &stack, pixels[:0])
		fill.Commit(regions, pixels, next)

		id := next
		inside := func(p image.Point) bool {
			return p.X >= 0 && p.Y >= 0 && p.X < w && p.Y < h && regions[p.Y*w+p.X] == id
		}
		contours = append(contours, follow(inside, image.Pt(start%w, start/w), 4*len(pixels)+8))
		next++
	}
	return contours
}

// follow walks the boundary anticlockwise until it re-enters the first
// step, or until limit steps have been taken
func follow(inside func(image.Point) bool, start image.Point, limit int) []image.Point {
	pts := []image.Point{start}
	cur := start
	dir := 7

	for step := 0; step < limit; step++ {
		from := (dir + 7) % 8
		if dir%2 == 1 {
			from = (dir + 6) % 8
		}

		found := false
		for k := 0; k < 8; k++ {
			d := (from + k) % 8
			if n := cur.Add(moves[d]); inside(n) {
				cur, dir, found = n, d, true
				break
			}
		}
		if !found {
			return pts
		}
		if len(pts) >= 2 && cur == pts[1] && pts[len(pts)-1] == start {
			return pts[:len(pts)-1]
		}
		pts = append(pts, cur)
	}
	return pts
}
