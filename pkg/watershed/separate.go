package watershed

import (
	"container/heap"
	"fmt"

	"github.com/sirupsen/logrus"

	"grindsize/internal/fill"
	"grindsize/internal/models"
)

// iterationsPerPixel bounds growth plus recovery work when no explicit
// limit is given
const iterationsPerPixel = 4

// Options controls overlap separation
type Options struct {
	// MinPeakDistance is both the minimum seed height and the minimum
	// spacing between seeds, in pixels
	MinPeakDistance float64

	// MaxIterations caps queue pops and recovered pixels. 0 selects
	// iterationsPerPixel times the pixel count.
	MaxIterations int

	// Logger receives cap warnings; nil uses the logrus standard logger
	Logger logrus.FieldLogger
}

// DefaultOptions uses a split sensitivity of 0.5
func DefaultOptions() Options {
	return Options{MinPeakDistance: MinPeakDistance(0.5)}
}

// Result is the separated partition. Labels is meant to be fed back into
// the labeler, which recomputes per-region moments.
type Result struct {
	Labels   *models.LabelMap
	Distance *DistanceMap
	Seeds    []Seed

	// Truncated is set when the iteration cap stopped work early
	Truncated bool
}

// Separate splits merged particles of the cleaned mask. When regions is
// non-nil, flooding never crosses between its labels, so particles that
// were already apart stay apart.
func Separate(mask *models.Mask, regions *models.LabelMap, opts Options) (*Result, error) {
	dm, err := DistanceTransform(mask)
	if err != nil {
		return nil, fmt.Errorf("watershed: %w", err)
	}
	if regions != nil {
		if err := regions.Validate(); err != nil {
			return nil, fmt.Errorf("watershed: regions: %w", err)
		}
		if regions.Width != mask.Width || regions.Height != mask.Height {
			return nil, fmt.Errorf("watershed: regions %dx%d do not match mask %dx%d: %w",
				regions.Width, regions.Height, mask.Width, mask.Height, models.ErrInvalidShape)
		}
	}

	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	limit := opts.MaxIterations
	if limit <= 0 {
		limit = iterationsPerPixel * len(mask.Pix)
	}

	f := &flooder{
		mask:    mask,
		regions: regions,
		dist:    dm,
		out:     models.NewLabelMap(mask.Width, mask.Height),
		limit:   limit,
	}

	seeds := FindSeeds(dm, opts.MinPeakDistance)
	if regions != nil {
		// Seeds inside components the labeler discarded stay unused
		kept := seeds[:0]
		for _, s := range seeds {
			if regions.Labels[s.Y*mask.Width+s.X] != 0 {
				kept = append(kept, s)
			}
		}
		seeds = kept
	}

	if !f.grow(seeds) {
		log.WithFields(logrus.Fields{
			"seeds":      len(seeds),
			"iterations": f.used,
			"limit":      limit,
		}).Warn("watershed growth hit iteration cap, returning partial labels")
	}

	if lost, ok := f.recover(uint32(len(seeds)) + 1); !ok {
		log.WithFields(logrus.Fields{
			"recovered": lost,
			"limit":     limit,
		}).Warn("watershed recovery stopped at iteration cap")
	}

	return &Result{
		Labels:    f.out,
		Distance:  dm,
		Seeds:     seeds,
		Truncated: f.truncated,
	}, nil
}

var neighbors4 = [4][2]int{{0, -1}, {0, 1}, {-1, 0}, {1, 0}}

// flooder carries the state of one separation run
type flooder struct {
	mask    *models.Mask
	regions *models.LabelMap
	dist    *DistanceMap
	out     *models.LabelMap

	limit     int
	used      int
	truncated bool
}

func (f *flooder) foreground(i int) bool {
	return f.mask.Pix[i] != models.Background
}

func (f *flooder) sameRegion(a, b int) bool {
	return f.regions == nil || f.regions.Labels[a] == f.regions.Labels[b]
}

// grow floods from every seed in order of decreasing distance over
// 4-connectivity, claiming pixels as they are queued. It returns false if
// the iteration cap stopped it.
func (f *flooder) grow(seeds []Seed) bool {
	w, h := f.mask.Width, f.mask.Height
	labels := f.out.Labels
	q := &growQueue{}

	for n, s := range seeds {
		i := s.Y*w + s.X
		labels[i] = uint32(n + 1)
		q.add(i, f.dist.Dist[i])
	}

	for q.Len() > 0 {
		if f.used >= f.limit {
			f.truncated = true
			return false
		}
		f.used++

		i := heap.Pop(q).(growItem).index
		x, y := i%w, i/w
		for _, off := range neighbors4 {
			nx, ny := x+off[0], y+off[1]
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			n := ny*w + nx
			if labels[n] != 0 || !f.foreground(n) || !f.sameRegion(i, n) {
				continue
			}
			labels[n] = labels[i]
			q.add(n, f.dist.Dist[n])
		}
	}
	return true
}

// recover gives foreground pixels that no seed reached their own labels,
// one per 8-connected patch. It returns the number of patches recovered
// and false if the iteration cap stopped it.
func (f *flooder) recover(next uint32) (int, bool) {
	w, h := f.mask.Width, f.mask.Height
	labels := f.out.Labels

	var (
		stack     fill.Stack
		pixels    []int
		recovered int
	)
	for start := range labels {
		if labels[start] != 0 || !f.foreground(start) {
			continue
		}
		if f.regions != nil && f.regions.Labels[start] == 0 {
			continue
		}
		if f.used >= f.limit {
			f.truncated = true
			return recovered, false
		}

		accept := func(i int) bool {
			return f.foreground(i) && f.sameRegion(start, i)
		}
		pixels = fill.Region(w, h, start, labels, accept, &stack, pixels[:0])
		fill.Commit(labels, pixels, next)
		f.used += len(pixels)
		next++
		recovered++
	}
	return recovered, true
}

// growItem is one queued pixel; order breaks distance ties first-in
// first-out so results do not depend on heap internals
type growItem struct {
	index int
	dist  int32
	order int
}

// growQueue is a max-heap on distance
type growQueue struct {
	items []growItem
	seq   int
}

func (q *growQueue) add(index int, dist int32) {
	heap.Push(q, growItem{index: index, dist: dist, order: q.seq})
	q.seq++
}

func (q *growQueue) Len() int { return len(q.items) }

func (q *growQueue) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if a.dist != b.dist {
		return a.dist > b.dist
	}
	return a.order < b.order
}

func (q *growQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *growQueue) Push(x any) { q.items = append(q.items, x.(growItem)) }

func (q *growQueue) Pop() any {
	n := len(q.items) - 1
	it := q.items[n]
	q.items = q.items[:n]
	return it
}
