package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidShape is returned when a buffer length does not match its
	// declared dimensions.
	ErrInvalidShape = errors.New("buffer length does not match dimensions")

	// ErrEmptyImage is returned for images with zero width or height.
	ErrEmptyImage = errors.New("image has zero area")
)

// Mask values
const (
	Background uint8 = 0
	Foreground uint8 = 255
)

// RGBA is an interleaved 8-bit RGBA pixel buffer in row-major order
type RGBA struct {
	Width  int
	Height int
	Pix    []uint8
}

// Gray is a single-channel luminance buffer in row-major order
type Gray struct {
	Width  int
	Height int
	Pix    []uint8
}

// Mask is a binary buffer; every sample is either Background or Foreground
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// LabelMap assigns a component id to every pixel. 0 is background.
type LabelMap struct {
	Width  int
	Height int
	Labels []uint32
}

// NewGray allocates a zeroed grayscale buffer
func NewGray(width, height int) *Gray {
	return &Gray{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

// NewMask allocates an all-background mask
func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

// NewLabelMap allocates an unlabeled map
func NewLabelMap(width, height int) *LabelMap {
	return &LabelMap{Width: width, Height: height, Labels: make([]uint32, width*height)}
}

// Validate checks the buffer against its dimensions
func (img *RGBA) Validate() error {
	return checkShape(img.Width, img.Height, 4, len(img.Pix))
}

// Validate checks the buffer against its dimensions
func (g *Gray) Validate() error {
	return checkShape(g.Width, g.Height, 1, len(g.Pix))
}

// Validate checks the buffer against its dimensions
func (m *Mask) Validate() error {
	return checkShape(m.Width, m.Height, 1, len(m.Pix))
}

// Validate checks the buffer against its dimensions
func (l *LabelMap) Validate() error {
	return checkShape(l.Width, l.Height, 1, len(l.Labels))
}

// Crop copies the rectangle [minX,maxX)x[minY,maxY) into a new buffer.
// The rectangle must already lie inside the image.
func (img *RGBA) Crop(minX, minY, maxX, maxY int) *RGBA {
	w, h := maxX-minX, maxY-minY
	out := &RGBA{Width: w, Height: h, Pix: make([]uint8, w*h*4)}
	for y := 0; y < h; y++ {
		src := ((minY+y)*img.Width + minX) * 4
		copy(out.Pix[y*w*4:(y+1)*w*4], img.Pix[src:src+w*4])
	}
	return out
}

// Count returns the number of foreground samples
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v != Background {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the label map
func (l *LabelMap) Clone() *LabelMap {
	out := &LabelMap{Width: l.Width, Height: l.Height, Labels: make([]uint32, len(l.Labels))}
	copy(out.Labels, l.Labels)
	return out
}

func checkShape(width, height, channels, n int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%dx%d: %w", width, height, ErrEmptyImage)
	}
	if want := width * height * channels; n != want {
		return fmt.Errorf("%dx%d (x%d) needs %d samples, got %d: %w",
			width, height, channels, want, n, ErrInvalidShape)
	}
	return nil
}
