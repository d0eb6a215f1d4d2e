// Package visualization turns engine buffers into images and writes the
// intermediary stages of an analysis to disk.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"

	"grindsize/internal/models"
)

// GrayImage wraps a copy of a grayscale buffer as an image
func GrayImage(g *models.Gray) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.Width, g.Height))
	copy(img.Pix, g.Pix)
	return img
}

// MaskImage renders foreground white on black
func MaskImage(m *models.Mask) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Pix {
		if v != models.Background {
			img.Pix[i] = 255
		}
	}
	return img
}

// LabelImage paints every label in its own color on black
func LabelImage(l *models.LabelMap) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, l.Width, l.Height))
	palette := make(map[uint32]color.RGBA)

	for i, id := range l.Labels {
		c := color.RGBA{A: 255}
		if id != 0 {
			var ok bool
			if c, ok = palette[id]; !ok {
				c = labelColor(id)
				palette[id] = c
			}
		}
		img.SetRGBA(i%l.Width, i/l.Width, c)
	}
	return img
}

// labelColor spreads ids around the hue circle by the golden ratio so
// neighboring labels get distinct colors
func labelColor(id uint32) color.RGBA {
	hue := math.Mod(float64(id)*0.618033988749895, 1) * 6
	const s, v = 0.7, 0.95

	sector := int(hue)
	f := hue - float64(sector)
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))

	var r, g, b float64
	switch sector {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}
	return color.RGBA{R: uint8(r * 255), G: uint8(g * 255), B: uint8(b * 255), A: 255}
}

// Writer saves stage images of one analysis as PNG files named
// <prefix>_<stage>.png under a directory
type Writer struct {
	dir    string
	prefix string
}

// NewWriter creates a writer for the given output directory and file prefix
func NewWriter(dir, prefix string) *Writer {
	return &Writer{dir: dir, prefix: prefix}
}

// Save writes one image and returns its path
func (w *Writer) Save(stage string, img image.Image) (string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", err
	}

	path := filepath.Join(w.dir, fmt.Sprintf("%s_%s.png", w.prefix, stage))
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := encodePNG(file, img); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// encodePNG writes img to wc and closes it, reporting the close error when
// encoding succeeded
func encodePNG(wc io.WriteCloser, img image.Image) error {
	if err := png.Encode(wc, img); err != nil {
		wc.Close()
		return err
	}
	return wc.Close()
}

// SaveStages writes the normalized image, the raw and cleaned masks and
// the label map. Nil buffers are skipped.
func (w *Writer) SaveStages(gray *models.Gray, mask, cleaned *models.Mask, labels *models.LabelMap) ([]string, error) {
	var stages []struct {
		name string
		img  image.Image
	}
	add := func(name string, img image.Image) {
		stages = append(stages, struct {
			name string
			img  image.Image
		}{name, img})
	}

	if gray != nil {
		add("01_normalized", GrayImage(gray))
	}
	if mask != nil {
		add("02_mask", MaskImage(mask))
	}
	if cleaned != nil {
		add("03_cleaned", MaskImage(cleaned))
	}
	if labels != nil {
		add("04_labels", LabelImage(labels))
	}

	paths := make([]string, 0, len(stages))
	for _, s := range stages {
		path, err := w.Save(s.name, s.img)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
