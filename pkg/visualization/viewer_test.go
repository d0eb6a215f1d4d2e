package visualization

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"grindsize/internal/models"
)

// TestGrayImage verifies that buffers are copied pixel for pixel
func TestGrayImage(t *testing.T) {
	g := models.NewGray(4, 3)
	for i := range g.Pix {
		g.Pix[i] = uint8(i * 10)
	}

	img := GrayImage(g)
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 3 {
		t.Fatalf("Expected 4x3 image, got %v", img.Bounds())
	}
	if got := img.GrayAt(2, 1).Y; got != 60 {
		t.Errorf("Expected 60 at (2,1), got %d", got)
	}

	// The image must not alias the buffer
	g.Pix[0] = 99
	if img.GrayAt(0, 0).Y != 0 {
		t.Error("GrayImage should copy its input")
	}
}

func TestMaskImage(t *testing.T) {
	m := models.NewMask(3, 3)
	m.Pix[4] = models.Foreground

	img := MaskImage(m)
	if img.GrayAt(1, 1).Y != 255 || img.GrayAt(0, 0).Y != 0 {
		t.Error("Expected foreground white on black")
	}
}

func TestLabelImage(t *testing.T) {
	l := models.NewLabelMap(4, 1)
	l.Labels = []uint32{0, 1, 1, 2}

	img := LabelImage(l)
	if c := img.RGBAAt(0, 0); c != (color.RGBA{A: 255}) {
		t.Errorf("Expected black background, got %v", c)
	}
	if img.RGBAAt(1, 0) != img.RGBAAt(2, 0) {
		t.Error("Pixels of one label must share a color")
	}
	if img.RGBAAt(1, 0) == img.RGBAAt(3, 0) {
		t.Error("Different labels should get different colors")
	}
}

func TestLabelColorNeverBlack(t *testing.T) {
	for id := uint32(1); id < 500; id++ {
		c := labelColor(id)
		if c.R == 0 && c.G == 0 && c.B == 0 {
			t.Fatalf("Label %d rendered as background", id)
		}
	}
}

func TestWriterSaveStages(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "stages")
	w := NewWriter(dir, "sample")

	mask := models.NewMask(8, 8)
	mask.Pix[9] = models.Foreground
	labels := models.NewLabelMap(8, 8)
	labels.Labels[9] = 1

	paths, err := w.SaveStages(models.NewGray(8, 8), mask, nil, labels)
	if err != nil {
		t.Fatalf("SaveStages failed: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("Expected 3 files for 3 non-nil stages, got %d", len(paths))
	}

	want := filepath.Join(dir, "sample_02_mask.png")
	if paths[1] != want {
		t.Errorf("Expected %s, got %s", want, paths[1])
	}

	f, err := os.Open(want)
	if err != nil {
		t.Fatalf("Failed to open saved mask: %v", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("Saved file is not a valid PNG: %v", err)
	}
	if r, _, _, _ := img.At(1, 1).RGBA(); r != 0xffff {
		t.Errorf("Expected the foreground pixel to survive the round trip, got %d", r)
	}
}

// failingCloser buffers writes and fails on Close like a file whose final
// flush is lost
type failingCloser struct {
	bytes.Buffer
	closed bool
}

var errFlush = errors.New("flush failed")

func (f *failingCloser) Close() error {
	f.closed = true
	return errFlush
}

func TestEncodePNGReportsCloseError(t *testing.T) {
	wc := &failingCloser{}
	err := encodePNG(wc, image.NewGray(image.Rect(0, 0, 2, 2)))
	if !errors.Is(err, errFlush) {
		t.Errorf("Expected the close error, got %v", err)
	}
	if !wc.closed {
		t.Error("Writer was not closed")
	}
	if wc.Len() == 0 {
		t.Error("Expected PNG data before the close")
	}
}
