package morphology

import (
	"testing"

	"grindsize/internal/models"
)

func maskFrom(width, height int, fg func(x, y int) bool) *models.Mask {
	m := models.NewMask(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if fg(x, y) {
				m.Pix[y*width+x] = models.Foreground
			}
		}
	}
	return m
}

func TestOpenRemovesSpeckle(t *testing.T) {
	m := maskFrom(20, 20, func(x, y int) bool {
		return (x == 3 && y == 3) || (x == 15 && y == 4)
	})

	out, err := Open(m)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if out.Count() != 0 {
		t.Errorf("Expected isolated pixels to vanish, %d remain", out.Count())
	}
}

func TestOpenPreservesSquare(t *testing.T) {
	m := maskFrom(20, 20, func(x, y int) bool {
		return x >= 5 && x < 12 && y >= 6 && y < 14
	})

	out, err := Open(m)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if out.Count() != m.Count() {
		t.Errorf("Opening a rectangle should preserve it: had %d, got %d", m.Count(), out.Count())
	}
}

func TestOpenBreaksThinBridge(t *testing.T) {
	// Two 5x5 squares joined by a one-pixel-wide bridge
	m := maskFrom(24, 11, func(x, y int) bool {
		if y >= 3 && y < 8 && ((x >= 2 && x < 7) || (x >= 15 && x < 20)) {
			return true
		}
		return y == 5 && x >= 7 && x < 15
	})

	out, err := Open(m)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	for x := 8; x < 14; x++ {
		if out.Pix[5*24+x] != models.Background {
			t.Fatalf("Bridge pixel at x=%d should have been removed", x)
		}
	}
	if out.Pix[5*24+4] != models.Foreground || out.Pix[5*24+17] != models.Foreground {
		t.Error("Square centers should survive")
	}
}

func TestBordersStayBackground(t *testing.T) {
	full := maskFrom(6, 5, func(x, y int) bool { return true })

	for name, op := range map[string]func(*models.Mask) (*models.Mask, error){
		"erode":  Erode,
		"dilate": Dilate,
		"open":   Open,
	} {
		out, err := op(full)
		if err != nil {
			t.Fatalf("%s failed: %v", name, err)
		}
		for x := 0; x < 6; x++ {
			if out.Pix[x] != 0 || out.Pix[4*6+x] != 0 {
				t.Errorf("%s: top/bottom border must be background", name)
			}
		}
		for y := 0; y < 5; y++ {
			if out.Pix[y*6] != 0 || out.Pix[y*6+5] != 0 {
				t.Errorf("%s: left/right border must be background", name)
			}
		}
	}
}

func TestErodeDilateSingle(t *testing.T) {
	m := maskFrom(7, 7, func(x, y int) bool { return x == 3 && y == 3 })

	d, _ := Dilate(m)
	if d.Count() != 9 {
		t.Errorf("Dilating a single pixel should give 9, got %d", d.Count())
	}
	e, _ := Erode(d)
	if e.Count() != 1 || e.Pix[3*7+3] != models.Foreground {
		t.Errorf("Eroding the 3x3 block should leave only its center, got %d", e.Count())
	}
}
