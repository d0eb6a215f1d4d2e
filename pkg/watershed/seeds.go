package watershed

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"

	"grindsize/internal/fill"
)

// Seed is a distance-map peak that starts one watershed region
type Seed struct {
	X, Y     int
	Distance int32
}

// MinPeakDistance maps a 0-1 split sensitivity onto the minimum seed
// separation in pixels
func MinPeakDistance(sensitivity float64) float64 {
	if math.IsNaN(sensitivity) {
		sensitivity = 0
	}
	s := math.Max(0, math.Min(1, sensitivity))
	return 3 + s*20
}

// seedPoint implements kdtree.Comparable
type seedPoint struct {
	X, Y float64
}

// Compare implements the kdtree.Comparable interface
func (p seedPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(seedPoint)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	default:
		panic("illegal dimension")
	}
}

// Dims returns the number of dimensions for the KD-tree
func (p seedPoint) Dims() int { return 2 }

// Distance returns the squared Euclidean distance between two points
func (p seedPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(seedPoint)
	dx := p.X - q.X
	dy := p.Y - q.Y
	return dx*dx + dy*dy
}

// FindSeeds returns one seed per regional maximum of the distance map
// higher than minPeakDist, keeping the highest first and dropping any
// candidate closer than minPeakDist to a seed already kept. A regional
// maximum is an 8-connected plateau of equal distance with no higher
// neighbor; its seed is the plateau pixel nearest the plateau centroid.
func FindSeeds(dm *DistanceMap, minPeakDist float64) []Seed {
	w, h := dm.Width, dm.Height

	var (
		candidates []Seed
		visited    = make([]uint32, len(dm.Dist))
		stack      fill.Stack
		plateau    []int
	)
	for start, v := range dm.Dist {
		if visited[start] != 0 || float64(v) <= minPeakDist {
			continue
		}
		accept := func(i int) bool { return dm.Dist[i] == v }
		plateau = fill.Region(w, h, start, visited, accept, &stack, plateau[:0])

		if s, ok := plateauSeed(dm, plateau, v); ok {
			candidates = append(candidates, s)
		}
	}

	// Raster order breaks ties between equal peaks
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Distance > candidates[j].Distance
	})

	var (
		tree  kdtree.Tree
		seeds []Seed
	)
	limit := minPeakDist * minPeakDist
	for _, c := range candidates {
		p := seedPoint{X: float64(c.X), Y: float64(c.Y)}
		if tree.Count > 0 {
			if _, d := tree.Nearest(p); d < limit {
				continue
			}
		}
		tree.Insert(p, false)
		seeds = append(seeds, c)
	}
	return seeds
}

// plateauSeed picks the representative pixel of a plateau at height v,
// or reports false when some plateau pixel has a higher neighbor
func plateauSeed(dm *DistanceMap, plateau []int, v int32) (Seed, bool) {
	w := dm.Width
	var sx, sy float64
	for _, i := range plateau {
		if !isPeak(dm, i%w, i/w, v) {
			return Seed{}, false
		}
		sx += float64(i % w)
		sy += float64(i / w)
	}
	cx, cy := sx/float64(len(plateau)), sy/float64(len(plateau))

	best, bestD := -1, math.Inf(1)
	for _, i := range plateau {
		dx, dy := float64(i%w)-cx, float64(i/w)-cy
		d := dx*dx + dy*dy
		if d < bestD || (d == bestD && i < best) {
			best, bestD = i, d
		}
	}
	return Seed{X: best % w, Y: best / w, Distance: v}, true
}

// isPeak reports whether v is at least every in-bounds 8-neighbor
func isPeak(dm *DistanceMap, x, y int, v int32) bool {
	for dy := -1; dy <= 1; dy++ {
		ny := y + dy
		if ny < 0 || ny >= dm.Height {
			continue
		}
		for dx := -1; dx <= 1; dx++ {
			nx := x + dx
			if (dx == 0 && dy == 0) || nx < 0 || nx >= dm.Width {
				continue
			}
			if dm.Dist[ny*dm.Width+nx] > v {
				return false
			}
		}
	}
	return true
}
