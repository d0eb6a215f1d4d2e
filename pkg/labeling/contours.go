package labeling

import (
	"image"

	"grindsize/internal/models"
)

// maxContourSamples bounds how many boundary points vote per contour
const maxContourSamples = 64

// MatchContours attaches traced boundaries to particles. Each contour
// votes for the label found most often around a sample of its points; the
// winning particle receives the contour unless it already has one. The
// input particles are not modified.
func MatchContours(particles []models.Particle, labels *models.LabelMap, contours [][]image.Point) []models.Particle {
	out := make([]models.Particle, len(particles))
	copy(out, particles)

	if len(contours) == 0 || labels == nil {
		return out
	}

	index := make(map[uint32]int, len(out))
	for i, p := range out {
		index[p.ID] = i
	}

	for _, contour := range contours {
		id, ok := dominantLabel(labels, contour)
		if !ok {
			continue
		}
		i, ok := index[id]
		if !ok || out[i].Contour != nil {
			continue
		}
		pts := make([]image.Point, len(contour))
		copy(pts, contour)
		out[i].Contour = pts
	}
	return out
}

// dominantLabel returns the most frequent non-zero label in the 3x3
// neighborhoods of a down-sampled set of contour points
func dominantLabel(labels *models.LabelMap, contour []image.Point) (uint32, bool) {
	if len(contour) == 0 {
		return 0, false
	}

	step := 1
	if len(contour) > maxContourSamples {
		step = (len(contour) + maxContourSamples - 1) / maxContourSamples
	}

	votes := make(map[uint32]int)
	var (
		best      uint32
		bestVotes int
	)
	for i := 0; i < len(contour); i += step {
		p := contour[i]
		for dy := -1; dy <= 1; dy++ {
			y := p.Y + dy
			if y < 0 || y >= labels.Height {
				continue
			}
			for dx := -1; dx <= 1; dx++ {
				x := p.X + dx
				if x < 0 || x >= labels.Width {
					continue
				}
				id := labels.Labels[y*labels.Width+x]
				if id == 0 {
					continue
				}
				votes[id]++
				// Strictly greater keeps the earliest leader on ties
				if votes[id] > bestVotes {
					best, bestVotes = id, votes[id]
				}
			}
		}
	}
	return best, bestVotes > 0
}
