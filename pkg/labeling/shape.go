package labeling

import (
	"image"
	"math"

	"grindsize/internal/models"
)

// moments accumulates the raw sums needed for the ellipse fit. Coordinates
// are taken relative to the first pixel to keep the second-order sums small.
type moments struct {
	originX, originY int

	n             float64
	sx, sy        float64
	sxx, syy, sxy float64

	minX, minY, maxX, maxY int
}

func newMoments(x, y int) *moments {
	return &moments{originX: x, originY: y, minX: x, minY: y, maxX: x, maxY: y}
}

func (m *moments) add(x, y int) {
	dx := float64(x - m.originX)
	dy := float64(y - m.originY)
	m.n++
	m.sx += dx
	m.sy += dy
	m.sxx += dx * dx
	m.syy += dy * dy
	m.sxy += dx * dy

	m.minX = min(m.minX, x)
	m.minY = min(m.minY, y)
	m.maxX = max(m.maxX, x)
	m.maxY = max(m.maxY, y)
}

// central returns the centroid and the centered second-order moments
func (m *moments) central() (cx, cy, varX, varY, cov float64) {
	mx := m.sx / m.n
	my := m.sy / m.n
	varX = m.sxx/m.n - mx*mx
	varY = m.syy/m.n - my*my
	cov = m.sxy/m.n - mx*my
	return float64(m.originX) + mx, float64(m.originY) + my, varX, varY, cov
}

// Ellipse is the moment-equivalent ellipse of a region
type Ellipse struct {
	Major       float64
	Minor       float64
	Orientation float64
}

// FitEllipse derives axis lengths and orientation from centered second
// moments. With scale 8 the lengths are exact for a uniformly filled
// ellipse.
func FitEllipse(varX, varY, cov, scale float64) Ellipse {
	sum := varX + varY
	diff := varX - varY
	root := math.Sqrt(diff*diff + 4*cov*cov)

	return Ellipse{
		Major:       math.Sqrt(math.Max(0, scale*(sum+root))),
		Minor:       math.Sqrt(math.Max(0, scale*(sum-root))),
		Orientation: 0.5 * math.Atan2(2*cov, diff),
	}
}

// Spheroid estimates the volume and surface area of a particle seen from
// above as an oblate spheroid. The equatorial radius comes from the
// equivalent diameter; the polar radius is shortened by the aspect ratio.
func Spheroid(equivalentDiameter, major, minor float64) (volume, surface float64) {
	a := equivalentDiameter / 2
	aspect := 1.0
	if minor > 0 && major > minor {
		aspect = major / minor
	}
	c := a / aspect

	volume = 4.0 / 3.0 * math.Pi * a * a * c

	e := math.Sqrt(math.Max(0, 1-(c*c)/(a*a)))
	if a == 0 || e < 1e-9 {
		return volume, 4 * math.Pi * a * a
	}
	surface = 2*math.Pi*a*a + math.Pi*c*c/e*math.Log((1+e)/(1-e))
	return volume, surface
}

// measure turns accumulated moments into an immutable particle record
func measure(id uint32, m *moments, scale float64) models.Particle {
	cx, cy, varX, varY, cov := m.central()
	ell := FitEllipse(varX, varY, cov, scale)

	area := m.n
	eqd := 2 * math.Sqrt(area/math.Pi)

	roundness := 1.0
	if ell.Major > 0 {
		roundness = ell.Minor / ell.Major
	}

	solidity := 0.0
	if ellipseArea := math.Pi * ell.Major * ell.Minor / 4; ellipseArea > 0 {
		solidity = area / ellipseArea
	}

	volume, surface := Spheroid(eqd, ell.Major, ell.Minor)

	return models.Particle{
		ID:                 id,
		CentroidX:          cx,
		CentroidY:          cy,
		Area:               int(area),
		MajorAxis:          ell.Major,
		MinorAxis:          ell.Minor,
		Orientation:        ell.Orientation,
		EquivalentDiameter: eqd,
		Surface:            surface,
		Volume:             volume,
		Roundness:          roundness,
		Solidity:           solidity,
		Bounds:             image.Rect(m.minX, m.minY, m.maxX+1, m.maxY+1),
	}
}
